package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/zarishnasir123/LawFlow-sub000/internal/bundle"
	"github.com/zarishnasir123/LawFlow-sub000/internal/fetch"
	"github.com/zarishnasir123/LawFlow-sub000/internal/httpx"
	"github.com/zarishnasir123/LawFlow-sub000/internal/render"
	"github.com/zarishnasir123/LawFlow-sub000/internal/services"
	"github.com/zarishnasir123/LawFlow-sub000/internal/uploads"
)

const maxUploadBytes = 32 << 20

// BundleHandler exposes the case bundle: listing with integrity faults,
// adding documents and attachments, removal, reorder, content edits and
// entry downloads.
type BundleHandler struct {
	Cases   *services.CaseManager
	Uploads *uploads.Store
	Sign    *services.SignService
}

func NewBundleHandler(cases *services.CaseManager, up *uploads.Store, sign *services.SignService) *BundleHandler {
	return &BundleHandler{Cases: cases, Uploads: up, Sign: sign}
}

func caseID(r *http.Request) string {
	if v := r.URL.Query().Get("case_id"); v != "" {
		return v
	}
	return r.FormValue("case_id")
}

// List: GET /bundle?case_id=...
func (h *BundleHandler) List(w http.ResponseWriter, r *http.Request) {
	cid := caseID(r)
	if cid == "" {
		httpx.JSONError(w, http.StatusBadRequest, "missing_case_id", nil)
		return
	}
	st := h.Cases.Get(cid)
	report := h.Cases.Report(cid)
	resp := map[string]any{
		"items":  st.Entries(),
		"faults": st.Integrity(),
	}
	if report.Corrupt {
		// the stored snapshot could not be read; the user works on a fresh
		// bundle and deserves to know why
		resp["snapshotCorrupt"] = true
	}
	httpx.JSON(w, http.StatusOK, resp)
}

// AddDocument: POST /bundle/documents – blank document or one of the default
// templates.
func (h *BundleHandler) AddDocument(w http.ResponseWriter, r *http.Request) {
	cid := caseID(r)
	if cid == "" {
		httpx.JSONError(w, http.StatusBadRequest, "missing_case_id", nil)
		return
	}
	type addReq struct {
		Title        string `json:"title"`
		TemplateID   string `json:"template_id"`
		AfterEntryID string `json:"after_entry_id"`
	}
	var req addReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	var doc bundle.Document
	if req.TemplateID != "" {
		tpl, ok := render.TemplateByID(req.TemplateID)
		if !ok {
			httpx.JSONError(w, http.StatusNotFound, "template_not_found", nil)
			return
		}
		doc = tpl
		doc.ID = "" // the bundle copy is a fresh document, not the template
		doc.IsTemplate = false
		if req.Title != "" {
			doc.Title = req.Title
		}
	} else {
		if req.Title == "" {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"title": "required"})
			return
		}
		doc = bundle.Document{Title: req.Title}
	}
	st := h.Cases.Get(cid)
	entry := st.AddDocument(doc, bundle.InsertPolicy{AfterEntryID: req.AfterEntryID})
	httpx.JSON(w, http.StatusCreated, entry)
}

// Templates: GET /bundle/templates – the default template set.
func (h *BundleHandler) Templates(w http.ResponseWriter, r *http.Request) {
	type tplResp struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	}
	var out []tplResp
	for _, t := range render.DefaultTemplates() {
		out = append(out, tplResp{ID: t.ID, Title: t.Title})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"templates": out})
}

// Upload: POST /bundle/attachments – multipart file upload.
func (h *BundleHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_multipart", nil)
		return
	}
	cid := caseID(r)
	if cid == "" {
		httpx.JSONError(w, http.StatusBadRequest, "missing_case_id", nil)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "missing_file", nil)
		return
	}
	defer file.Close()

	// uploaded blobs are transient until something durable references them;
	// removing the entry releases the blob through the store's release hook
	src, size, err := h.Uploads.SavePreview(header.Filename, file)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "upload_failed", nil)
		return
	}
	mime := header.Header.Get("Content-Type")
	if mime == "" {
		mime = "application/octet-stream"
	}
	st := h.Cases.Get(cid)
	entry := st.AddAttachment(bundle.Attachment{
		Name:          header.Filename,
		MimeType:      mime,
		SizeBytes:     size,
		ByteSourceURL: src,
		UploadedAt:    time.Now().UTC(),
	}, bundle.InsertPolicy{AfterEntryID: r.FormValue("after_entry_id")})
	httpx.JSON(w, http.StatusCreated, entry)
}

// Remove: POST /bundle/remove?case_id=...&entry_id=...
func (h *BundleHandler) Remove(w http.ResponseWriter, r *http.Request) {
	cid := caseID(r)
	entryID := r.URL.Query().Get("entry_id")
	if cid == "" || entryID == "" {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	st := h.Cases.Get(cid)
	if !st.RemoveEntry(entryID) {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// Reorder: POST /bundle/reorder – wholesale replacement of the sequence.
func (h *BundleHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	cid := caseID(r)
	if cid == "" {
		httpx.JSONError(w, http.StatusBadRequest, "missing_case_id", nil)
		return
	}
	type reorderReq struct {
		Order []string `json:"order"`
	}
	var req reorderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	st := h.Cases.Get(cid)
	if err := st.Reorder(req.Order); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_reorder", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": st.Entries()})
}

// Content: GET returns a document's content (converting legacy markup for
// display only), POST replaces it with structured blocks (the conversion
// point for legacy documents).
func (h *BundleHandler) Content(w http.ResponseWriter, r *http.Request) {
	cid := caseID(r)
	docID := r.URL.Query().Get("document_id")
	if cid == "" || docID == "" {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	st := h.Cases.Get(cid)
	switch r.Method {
	case http.MethodGet:
		doc, ok := st.DocumentByID(docID)
		if !ok {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
			return
		}
		blocks := doc.StructuredContent
		legacy := false
		if len(blocks) == 0 && doc.LegacyMarkup != "" {
			blocks = bundle.ConvertLegacyMarkup(doc.LegacyMarkup)
			legacy = true
		}
		httpx.JSON(w, http.StatusOK, map[string]any{"title": doc.Title, "blocks": blocks, "legacy": legacy})
	case http.MethodPost:
		type contentReq struct {
			Title  string         `json:"title"`
			Blocks []bundle.Block `json:"blocks"`
		}
		var req contentReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
			return
		}
		if err := st.UpdateDocumentContent(docID, req.Blocks); err != nil {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
			return
		}
		if req.Title != "" {
			if err := st.RenameDocument(docID, req.Title); err != nil {
				httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
				return
			}
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "updated"})
	default:
		httpx.MethodNotAllowed(w, "GET,POST")
	}
}

// Download: GET /bundle/download?case_id=...&entry_id=... – the entry's
// finalized byte stream.
func (h *BundleHandler) Download(w http.ResponseWriter, r *http.Request) {
	cid := caseID(r)
	entryID := r.URL.Query().Get("entry_id")
	if cid == "" || entryID == "" {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	data, mime, err := h.Sign.EntryBytes(r.Context(), cid, entryID)
	if err != nil {
		switch {
		case errors.Is(err, bundle.ErrNotFound):
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		case errors.Is(err, fetch.ErrTimeout):
			httpx.JSONError(w, http.StatusGatewayTimeout, "fetch_timeout", nil)
		default:
			httpx.JSONError(w, http.StatusBadGateway, "fetch_failed", nil)
		}
		return
	}
	w.Header().Set("Content-Type", mime)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
