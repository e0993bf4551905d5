package server

import (
	"log"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/zarishnasir123/LawFlow-sub000/internal/config"
	"github.com/zarishnasir123/LawFlow-sub000/internal/fetch"
	"github.com/zarishnasir123/LawFlow-sub000/internal/handlers"
	"github.com/zarishnasir123/LawFlow-sub000/internal/httpx"
	"github.com/zarishnasir123/LawFlow-sub000/internal/services"
	"github.com/zarishnasir123/LawFlow-sub000/internal/signature"
	"github.com/zarishnasir123/LawFlow-sub000/internal/stamp"
	"github.com/zarishnasir123/LawFlow-sub000/internal/uploads"
)

// App holds the long-lived application state the routes close over. Tests and
// main both build one; the autosave loop needs Cases after the handler is
// constructed.
type App struct {
	Cases   *services.CaseManager
	Handler http.Handler
}

// New constructs the root http.Handler with all routes and middlewares applied.
func New(db *gorm.DB, cfg config.Config) (*App, error) {
	up, err := uploads.NewStore(cfg.UploadDir)
	if err != nil {
		return nil, err
	}

	cases := services.NewCaseManager(db, up)
	requests := signature.NewStore(db)
	metrics := stamp.NewMetricsRegistry()
	sessions := stamp.NewSessions()
	sign := &services.SignService{
		Cases:    cases,
		Requests: requests,
		Metrics:  metrics,
		Sessions: sessions,
		Engine:   stamp.NewEngine(),
		Fetcher:  fetch.New(cfg.UploadDir, cfg.FetchTimeout),
		Uploads:  up,
	}

	mux := http.NewServeMux()

	// --- Health endpoints ---
	//revive:disable:unused-parameter simple handlers intentionally ignore *http.Request
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Exec("SELECT 1").Error; err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"degraded"}`))
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	//revive:enable:unused-parameter

	// Bundle endpoints
	bh := handlers.NewBundleHandler(cases, up, sign)
	mux.HandleFunc("/bundle", requireMethod(http.MethodGet, bh.List))
	mux.HandleFunc("/bundle/documents", requireMethod(http.MethodPost, bh.AddDocument))
	mux.HandleFunc("/bundle/templates", requireMethod(http.MethodGet, bh.Templates))
	mux.HandleFunc("/bundle/attachments", requireMethod(http.MethodPost, bh.Upload))
	mux.HandleFunc("/bundle/remove", requireMethod(http.MethodPost, bh.Remove))
	mux.HandleFunc("/bundle/reorder", requireMethod(http.MethodPost, bh.Reorder))
	mux.HandleFunc("/bundle/content", bh.Content) // GET and POST, dispatched inside
	mux.HandleFunc("/bundle/download", requireMethod(http.MethodGet, bh.Download))

	// Signature request endpoints
	sh := handlers.NewSignatureHandler(cases, requests, up)
	mux.HandleFunc("/signatures", requireMethod(http.MethodGet, sh.List))
	mux.HandleFunc("/signatures/send", requireMethod(http.MethodPost, sh.Send))
	mux.HandleFunc("/signatures/counts", requireMethod(http.MethodGet, sh.Counts))
	mux.HandleFunc("/signatures/signed", requireMethod(http.MethodPost, sh.MarkSigned))
	mux.HandleFunc("/signatures/sent", requireMethod(http.MethodPost, sh.MarkSent))
	mux.HandleFunc("/signatures/delete", requireMethod(http.MethodPost, sh.Delete))

	// Viewer endpoints
	vh := handlers.NewViewerHandler(sign, metrics, sessions)
	mux.HandleFunc("/viewer/pages", requireMethod(http.MethodGet, vh.Pages))
	mux.HandleFunc("/viewer/metrics", requireMethod(http.MethodPost, vh.ReportMetrics))
	mux.HandleFunc("/viewer/placement", requireMethod(http.MethodPost, vh.Placement))
	mux.HandleFunc("/viewer/placement/clear", requireMethod(http.MethodPost, vh.ClearPlacement))
	mux.HandleFunc("/viewer/confirm", requireMethod(http.MethodPost, vh.Confirm))

	return &App{Cases: cases, Handler: withRecover(withLogging(mux))}, nil
}

func requireMethod(method string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			httpx.MethodNotAllowed(w, method)
			return
		}
		next(w, r)
	}
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

func withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("panic serving %s %s: %v", r.Method, r.URL.Path, rec)
				httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
