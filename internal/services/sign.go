package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/zarishnasir123/LawFlow-sub000/internal/bundle"
	"github.com/zarishnasir123/LawFlow-sub000/internal/fetch"
	"github.com/zarishnasir123/LawFlow-sub000/internal/models"
	"github.com/zarishnasir123/LawFlow-sub000/internal/render"
	"github.com/zarishnasir123/LawFlow-sub000/internal/signature"
	"github.com/zarishnasir123/LawFlow-sub000/internal/stamp"
	"github.com/zarishnasir123/LawFlow-sub000/internal/uploads"
)

// SignService drives the signature workflow: it resolves a bundle entry's
// byte stream, turns the pending on-screen placement into a document-space
// rectangle, embeds the signature mark, and tracks the result on the entry's
// signature request. The unsigned entry stays in the bundle until every
// required track has signed; only the final confirm swaps in the signed
// attachment and removes the original.
type SignService struct {
	Cases    *CaseManager
	Requests *signature.Store
	Metrics  *stamp.MetricsRegistry
	Sessions *stamp.Sessions
	Engine   *stamp.Engine
	Fetcher  *fetch.Fetcher
	Uploads  *uploads.Store
}

// ConfirmResult reports the outcome of a confirmed placement. Completed is
// false while required tracks remain: the bundle entry is then unchanged and
// ByteSourceURL points at the partially signed stream held for the next
// signer.
type ConfirmResult struct {
	SignedEntry   bundle.Entry             `json:"signedEntry"`
	AttachmentID  string                   `json:"attachmentId,omitempty"`
	ByteSourceURL string                   `json:"byteSourceUrl"`
	Completed     bool                     `json:"completed"`
	Request       *models.SignatureRequest `json:"request,omitempty"`
}

// EntryBytes resolves the current byte stream of a bundle entry: documents
// are rendered from their content, attachments fetched from their byte
// source.
func (s *SignService) EntryBytes(ctx context.Context, caseID, entryID string) ([]byte, string, error) {
	st := s.Cases.Get(caseID)
	entry, ok := st.Entry(entryID)
	if !ok {
		return nil, "", bundle.ErrNotFound
	}
	switch entry.Kind {
	case bundle.KindDocument:
		doc, ok := st.DocumentByID(entry.ReferenceID)
		if !ok {
			return nil, "", fmt.Errorf("%w: dangling document reference %s", bundle.ErrNotFound, entry.ReferenceID)
		}
		data, err := render.DocumentPDF(doc)
		if err != nil {
			return nil, "", err
		}
		return data, "application/pdf", nil
	default:
		att, ok := st.AttachmentByID(entry.ReferenceID)
		if !ok {
			return nil, "", fmt.Errorf("%w: dangling attachment reference %s", bundle.ErrNotFound, entry.ReferenceID)
		}
		data, err := s.Fetcher.Fetch(ctx, att.ByteSourceURL)
		if err != nil {
			return nil, "", err
		}
		mime := att.MimeType
		if mime == "" {
			mime = "application/octet-stream"
		}
		return data, mime, nil
	}
}

// ConfirmPlacement embeds the signature image at the entry's pending
// placement. Rejections (no pending placement, no render metrics for the
// target page) happen before any mutation. The pending placement is consumed
// only on success, so confirming again without a new placement fails instead
// of producing a second signed stream.
//
// When the entry's request still has another required track unsigned, the
// partially signed stream is parked as a transient blob on the request and
// the unsigned entry stays in place; the remaining signer embeds into that
// stream. The final required track swaps the signed attachment into the
// bundle at the original position. The request row is updated before the
// bundle mutates, so a request-store failure leaves the bundle untouched.
func (s *SignService) ConfirmPlacement(ctx context.Context, caseID, entryID string, track signature.Track, signatureImage []byte) (ConfirmResult, error) {
	st := s.Cases.Get(caseID)
	entry, ok := st.Entry(entryID)
	if !ok {
		return ConfirmResult{}, bundle.ErrNotFound
	}
	placement, ok := s.Sessions.Peek(entryID)
	if !ok {
		return ConfirmResult{}, stamp.ErrNoPlacement
	}
	metrics, ok := s.Metrics.Get(entryID, placement.Page)
	if !ok {
		return ConfirmResult{}, stamp.ErrNoMetrics
	}
	docRect, err := stamp.ToDocumentSpace(metrics, placement.Rect)
	if err != nil {
		return ConfirmResult{}, err
	}

	var req *models.SignatureRequest
	if found, err := s.Requests.GetByEntry(caseID, entryID); err == nil {
		req = &found
	} else if err != signature.ErrNotFound {
		return ConfirmResult{}, err
	}

	// embed into the other track's partially signed stream when one exists,
	// so both marks land on a single artifact
	var src []byte
	if req != nil && req.SignedByteSourceURL != "" {
		src, err = s.Fetcher.Fetch(ctx, req.SignedByteSourceURL)
	} else {
		src, _, err = s.EntryBytes(ctx, caseID, entryID)
	}
	if err != nil {
		return ConfirmResult{}, err
	}
	signed, err := s.Engine.Embed(ctx, src, placement.Page, docRect, signatureImage)
	if err != nil {
		return ConfirmResult{}, err
	}

	if req != nil && !completesRequest(*req, track) {
		return s.confirmIntermediate(entry, req, track, signed)
	}
	return s.confirmFinal(st, caseID, entry, req, track, signed)
}

// confirmIntermediate records one track of a multi-track request: the stream
// is parked as a transient blob, the entry stays unsigned in the bundle.
func (s *SignService) confirmIntermediate(entry bundle.Entry, req *models.SignatureRequest, track signature.Track, signed []byte) (ConfirmResult, error) {
	name := entry.Title + " (partially signed).pdf"
	srcURL, _, err := s.Uploads.SavePreview(name, bytes.NewReader(signed))
	if err != nil {
		return ConfirmResult{}, err
	}
	prev := req.SignedByteSourceURL
	updated, err := s.Requests.MarkSigned(req.ID, track, signature.SignedArtifact{ByteSourceURL: srcURL})
	if err != nil {
		s.Uploads.Release(srcURL)
		return ConfirmResult{}, err
	}
	if updated.SignedByteSourceURL != srcURL {
		// the track was already signed; the re-embedded stream is discarded
		s.Uploads.Release(srcURL)
		srcURL = updated.SignedByteSourceURL
	} else if prev != "" && prev != srcURL {
		s.Uploads.Release(prev)
	}
	s.Sessions.Take(entry.ID)
	s.Metrics.Clear(entry.ID)
	return ConfirmResult{SignedEntry: entry, ByteSourceURL: srcURL, Request: &updated}, nil
}

// confirmFinal stores the fully signed artifact, updates the request, then
// swaps the attachment into the bundle in place of the original entry.
func (s *SignService) confirmFinal(st *bundle.Store, caseID string, entry bundle.Entry, req *models.SignatureRequest, track signature.Track, signed []byte) (ConfirmResult, error) {
	name := entry.Title + " (signed).pdf"
	srcURL, size, err := s.Uploads.Save(name, bytes.NewReader(signed))
	if err != nil {
		return ConfirmResult{}, err
	}
	// the attachment id is fixed up front so the request can record it
	// before the bundle mutates
	attachmentID := uuid.New().String()
	result := ConfirmResult{AttachmentID: attachmentID, ByteSourceURL: srcURL, Completed: true}

	var prev string
	if req != nil {
		prev = req.SignedByteSourceURL
		updated, err := s.Requests.MarkSigned(req.ID, track, signature.SignedArtifact{
			ByteSourceURL: srcURL,
			AttachmentID:  attachmentID,
		})
		if err != nil {
			return ConfirmResult{}, err
		}
		result.Request = &updated
	}

	signedEntry, err := st.ReplaceEntryWithAttachment(entry.ID, bundle.Attachment{
		ID:            attachmentID,
		Name:          name,
		MimeType:      "application/pdf",
		SizeBytes:     size,
		ByteSourceURL: srcURL,
		UploadedAt:    time.Now().UTC(),
	})
	if err != nil {
		return ConfirmResult{}, err
	}
	result.SignedEntry = signedEntry
	if prev != "" {
		s.Uploads.Release(prev)
	}
	s.Sessions.Take(entry.ID)
	s.Metrics.Clear(entry.ID)

	if err := s.Cases.Save(caseID); err != nil {
		return ConfirmResult{}, err
	}
	return result, nil
}

// completesRequest reports whether signing the given track leaves no required
// track unsigned.
func completesRequest(req models.SignatureRequest, track signature.Track) bool {
	switch track {
	case signature.TrackClient:
		req.ClientSigned = true
	case signature.TrackLawyer:
		req.LawyerSigned = true
	}
	return req.Completed()
}
