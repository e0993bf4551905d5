package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/zarishnasir123/LawFlow-sub000/internal/bundle"
	"github.com/zarishnasir123/LawFlow-sub000/internal/fetch"
	"github.com/zarishnasir123/LawFlow-sub000/internal/httpx"
	"github.com/zarishnasir123/LawFlow-sub000/internal/services"
	"github.com/zarishnasir123/LawFlow-sub000/internal/stamp"
)

// ViewerHandler is the API surface the page-rasterizing viewer talks to:
// native page sizes out, render metrics and placements in, confirm to embed.
type ViewerHandler struct {
	Sign     *services.SignService
	Metrics  *stamp.MetricsRegistry
	Sessions *stamp.Sessions
}

func NewViewerHandler(sign *services.SignService, metrics *stamp.MetricsRegistry, sessions *stamp.Sessions) *ViewerHandler {
	return &ViewerHandler{Sign: sign, Metrics: metrics, Sessions: sessions}
}

// Pages: GET /viewer/pages?case_id=...&entry_id=... – native page dimensions.
func (h *ViewerHandler) Pages(w http.ResponseWriter, r *http.Request) {
	cid := r.URL.Query().Get("case_id")
	entryID := r.URL.Query().Get("entry_id")
	if cid == "" || entryID == "" {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	data, _, err := h.Sign.EntryBytes(r.Context(), cid, entryID)
	if err != nil {
		writeFetchError(w, err)
		return
	}
	dims, err := stamp.PageDimensions(data)
	if err != nil {
		httpx.JSONError(w, http.StatusUnprocessableEntity, "unreadable_document", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"pages": dims})
}

// ReportMetrics: POST /viewer/metrics – the viewer reports one page's render
// metrics after rasterizing it.
func (h *ViewerHandler) ReportMetrics(w http.ResponseWriter, r *http.Request) {
	type metricsReq struct {
		EntryID string              `json:"entry_id"`
		Page    int                 `json:"page"`
		Metrics stamp.RenderMetrics `json:"metrics"`
	}
	var req metricsReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if req.EntryID == "" || req.Page < 1 {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	if err := h.Metrics.Record(req.EntryID, req.Page, req.Metrics); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_metrics", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

// Placement: POST /viewer/placement – set (or replace) the pending rectangle.
func (h *ViewerHandler) Placement(w http.ResponseWriter, r *http.Request) {
	type placementReq struct {
		EntryID string     `json:"entry_id"`
		Page    int        `json:"page"`
		Rect    stamp.Rect `json:"rect"`
	}
	var req placementReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	p := stamp.Placement{EntryID: req.EntryID, Page: req.Page, Rect: req.Rect}
	if p.EntryID == "" {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	if _, ok := h.Metrics.Get(p.EntryID, p.Page); !ok {
		// placement before the page reported its metrics cannot be mapped
		// into document space later; refuse it up front
		httpx.JSONError(w, http.StatusConflict, "no_render_metrics", nil)
		return
	}
	if err := h.Sessions.Set(p); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_placement", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "placed"})
}

// ClearPlacement: POST /viewer/placement/clear?entry_id=...
func (h *ViewerHandler) ClearPlacement(w http.ResponseWriter, r *http.Request) {
	entryID := r.URL.Query().Get("entry_id")
	if entryID == "" {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	h.Sessions.Clear(entryID)
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// Confirm: POST /viewer/confirm – embed the signature at the pending
// placement and swap the signed artifact into the bundle.
func (h *ViewerHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	type confirmReq struct {
		CaseID    string `json:"case_id"`
		EntryID   string `json:"entry_id"`
		Track     string `json:"track"`
		Signature string `json:"signature"` // data URL or bare base64 PNG/JPEG
	}
	var req confirmReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if req.CaseID == "" || req.EntryID == "" || req.Signature == "" {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	track, ok := parseTrack(req.Track)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_track", nil)
		return
	}
	img, err := decodeSignature(req.Signature)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_signature_image", nil)
		return
	}
	res, err := h.Sign.ConfirmPlacement(r.Context(), req.CaseID, req.EntryID, track, img)
	if err != nil {
		switch {
		case errors.Is(err, bundle.ErrNotFound):
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		case errors.Is(err, stamp.ErrNoPlacement):
			httpx.JSONError(w, http.StatusConflict, "no_pending_placement", nil)
		case errors.Is(err, stamp.ErrNoMetrics):
			httpx.JSONError(w, http.StatusConflict, "no_render_metrics", nil)
		case errors.Is(err, stamp.ErrEmptyRect), errors.Is(err, stamp.ErrBadPage), errors.Is(err, stamp.ErrBadMetrics):
			httpx.JSONError(w, http.StatusBadRequest, "invalid_placement", nil)
		case errors.Is(err, fetch.ErrTimeout):
			httpx.JSONError(w, http.StatusGatewayTimeout, "fetch_timeout", nil)
		default:
			httpx.JSONError(w, http.StatusInternalServerError, "embed_failed", nil)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func decodeSignature(s string) ([]byte, error) {
	if strings.HasPrefix(s, "data:") {
		i := strings.Index(s, ",")
		if i < 0 || !strings.HasSuffix(s[:i], ";base64") {
			return nil, errors.New("unsupported data url")
		}
		s = s[i+1:]
	}
	return base64.StdEncoding.DecodeString(s)
}

func writeFetchError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, bundle.ErrNotFound):
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
	case errors.Is(err, fetch.ErrTimeout):
		httpx.JSONError(w, http.StatusGatewayTimeout, "fetch_timeout", nil)
	default:
		httpx.JSONError(w, http.StatusBadGateway, "fetch_failed", nil)
	}
}
