package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/zarishnasir123/LawFlow-sub000/internal/httpx"
	"github.com/zarishnasir123/LawFlow-sub000/internal/services"
	"github.com/zarishnasir123/LawFlow-sub000/internal/signature"
	"github.com/zarishnasir123/LawFlow-sub000/internal/uploads"
)

// SignatureHandler exposes the signature request worklist.
type SignatureHandler struct {
	Cases    *services.CaseManager
	Requests *signature.Store
	Uploads  *uploads.Store
}

func NewSignatureHandler(cases *services.CaseManager, store *signature.Store, up *uploads.Store) *SignatureHandler {
	return &SignatureHandler{Cases: cases, Requests: store, Uploads: up}
}

func parseTrack(s string) (signature.Track, bool) {
	switch s {
	case "client":
		return signature.TrackClient, true
	case "lawyer":
		return signature.TrackLawyer, true
	}
	return "", false
}

// Send: POST /signatures/send – reconcile requests against the selection.
func (h *SignatureHandler) Send(w http.ResponseWriter, r *http.Request) {
	type entrySel struct {
		BundleEntryID  string `json:"bundle_entry_id"`
		RequiresClient bool   `json:"requires_client"`
		RequiresLawyer bool   `json:"requires_lawyer"`
	}
	type sendReq struct {
		CaseID  string     `json:"case_id"`
		Entries []entrySel `json:"entries"`
	}
	var req sendReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if req.CaseID == "" {
		httpx.JSONError(w, http.StatusBadRequest, "missing_case_id", nil)
		return
	}
	st := h.Cases.Get(req.CaseID)
	specs := make([]signature.RequestSpec, 0, len(req.Entries))
	for _, sel := range req.Entries {
		entry, ok := st.Entry(sel.BundleEntryID)
		if !ok {
			httpx.JSONError(w, http.StatusNotFound, "entry_not_found", map[string]string{"bundle_entry_id": sel.BundleEntryID})
			return
		}
		specs = append(specs, signature.RequestSpec{
			BundleEntryID:           sel.BundleEntryID,
			DocumentTitle:           entry.Title,
			RequiresClientSignature: sel.RequiresClient,
			RequiresLawyerSignature: sel.RequiresLawyer,
		})
	}
	out, err := h.Requests.SendRequestsForCase(req.CaseID, specs)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_send_requests", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"requests": out})
}

// List: GET /signatures?case_id=...&status=pending|completed
func (h *SignatureHandler) List(w http.ResponseWriter, r *http.Request) {
	cid := r.URL.Query().Get("case_id")
	if cid == "" {
		httpx.JSONError(w, http.StatusBadRequest, "missing_case_id", nil)
		return
	}
	var err error
	var out any
	switch r.URL.Query().Get("status") {
	case "pending":
		out, err = h.Requests.Pending(cid)
	case "completed":
		out, err = h.Requests.Completed(cid)
	default:
		pending, perr := h.Requests.Pending(cid)
		if perr != nil {
			err = perr
			break
		}
		completed, cerr := h.Requests.Completed(cid)
		if cerr != nil {
			err = cerr
			break
		}
		out = map[string]any{"pending": pending, "completed": completed}
	}
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_requests", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

// Counts: GET /signatures/counts?case_id=... – dashboard badge counters,
// recomputed from rows on every call.
func (h *SignatureHandler) Counts(w http.ResponseWriter, r *http.Request) {
	cid := r.URL.Query().Get("case_id")
	if cid == "" {
		httpx.JSONError(w, http.StatusBadRequest, "missing_case_id", nil)
		return
	}
	pending, err := h.Requests.CountPending(cid)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_count", nil)
		return
	}
	completed, err := h.Requests.CountCompleted(cid)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_count", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int{"pending": pending, "completed": completed})
}

// MarkSigned: POST /signatures/signed – record a track signed outside the
// viewer flow (e.g. a scanned wet-ink copy). When the caller references a
// previously uploaded blob it is promoted so removing its bundle entry later
// does not delete the audit artifact.
func (h *SignatureHandler) MarkSigned(w http.ResponseWriter, r *http.Request) {
	type signedReq struct {
		ID            string `json:"id"`
		Track         string `json:"track"`
		ByteSourceURL string `json:"byte_source_url"`
		AttachmentID  string `json:"attachment_id"`
	}
	var req signedReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if req.ID == "" {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	track, ok := parseTrack(req.Track)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_track", nil)
		return
	}
	out, err := h.Requests.MarkSigned(req.ID, track, signature.SignedArtifact{
		ByteSourceURL: req.ByteSourceURL,
		AttachmentID:  req.AttachmentID,
	})
	if err != nil {
		if errors.Is(err, signature.ErrNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update", nil)
		return
	}
	if req.ByteSourceURL != "" && h.Uploads != nil {
		h.Uploads.Promote(req.ByteSourceURL)
	}
	httpx.JSON(w, http.StatusOK, out)
}

// MarkSent: POST /signatures/sent?id=...
func (h *SignatureHandler) MarkSent(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	req, err := h.Requests.MarkSent(id)
	if err != nil {
		if errors.Is(err, signature.ErrNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, req)
}

// Delete: POST /signatures/delete?id=... – the only way back to pending is
// deleting and re-requesting.
func (h *SignatureHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	if err := h.Requests.Delete(id); err != nil {
		if errors.Is(err, signature.ErrNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_delete", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
