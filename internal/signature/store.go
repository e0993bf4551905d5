// Package signature owns the per-document signature request lifecycle: one
// request per (case, bundle entry), with independent client and lawyer tracks.
package signature

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/zarishnasir123/LawFlow-sub000/internal/models"
)

var ErrNotFound = errors.New("signature: request not found")

// Track identifies one signature obligation on a request.
type Track string

const (
	TrackClient Track = "client"
	TrackLawyer Track = "lawyer"
)

// RequestSpec describes one selected bundle entry when sending requests.
type RequestSpec struct {
	BundleEntryID           string
	DocumentTitle           string
	RequiresClientSignature bool
	RequiresLawyerSignature bool
}

// SignedArtifact carries the signed byte stream reference recorded when a
// track is marked signed.
type SignedArtifact struct {
	ByteSourceURL string
	AttachmentID  string
}

type Store struct {
	DB *gorm.DB
}

func NewStore(db *gorm.DB) *Store { return &Store{DB: db} }

// SendRequestsForCase reconciles the case's requests against the current
// selection. Selected entries get a request created or refreshed (title and
// requirement flags updated in place, never duplicated). Previously requested
// entries that are no longer selected are pruned only if already fully
// complete; incomplete deselected requests are left intact — work in progress
// is never silently cancelled.
func (s *Store) SendRequestsForCase(caseID string, specs []RequestSpec) ([]models.SignatureRequest, error) {
	var existing []models.SignatureRequest
	if err := s.DB.Where("case_id = ?", caseID).Find(&existing).Error; err != nil {
		return nil, err
	}
	byEntry := make(map[string]*models.SignatureRequest, len(existing))
	for i := range existing {
		byEntry[existing[i].BundleEntryID] = &existing[i]
	}
	selected := make(map[string]bool, len(specs))
	now := time.Now().UTC()

	var out []models.SignatureRequest
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		for _, spec := range specs {
			selected[spec.BundleEntryID] = true
			if req, ok := byEntry[spec.BundleEntryID]; ok {
				req.DocumentTitle = spec.DocumentTitle
				req.RequiresClientSignature = spec.RequiresClientSignature
				req.RequiresLawyerSignature = spec.RequiresLawyerSignature
				req.RequestedAt = now
				if err := tx.Save(req).Error; err != nil {
					return err
				}
				out = append(out, *req)
				continue
			}
			req := models.SignatureRequest{
				CaseID:                  caseID,
				BundleEntryID:           spec.BundleEntryID,
				DocumentTitle:           spec.DocumentTitle,
				RequestedAt:             now,
				RequiresClientSignature: spec.RequiresClientSignature,
				RequiresLawyerSignature: spec.RequiresLawyerSignature,
			}
			if err := tx.Create(&req).Error; err != nil {
				return err
			}
			out = append(out, req)
		}
		for _, req := range existing {
			if selected[req.BundleEntryID] {
				continue
			}
			if req.Completed() {
				if err := tx.Delete(&models.SignatureRequest{}, "id = ?", req.ID).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns the request by id.
func (s *Store) Get(requestID string) (models.SignatureRequest, error) {
	var req models.SignatureRequest
	if err := s.DB.First(&req, "id = ?", requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return req, ErrNotFound
		}
		return req, err
	}
	return req, nil
}

// GetByEntry returns the request for (caseID, bundleEntryID).
func (s *Store) GetByEntry(caseID, bundleEntryID string) (models.SignatureRequest, error) {
	var req models.SignatureRequest
	err := s.DB.First(&req, "case_id = ? AND bundle_entry_id = ?", caseID, bundleEntryID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return req, ErrNotFound
	}
	return req, err
}

// MarkSigned sets the given track's signed flag and timestamp and records the
// signed artifact reference. Idempotent: a second call for an already signed
// track changes nothing, including the timestamp.
func (s *Store) MarkSigned(requestID string, track Track, artifact SignedArtifact) (models.SignatureRequest, error) {
	req, err := s.Get(requestID)
	if err != nil {
		return req, err
	}
	now := time.Now().UTC()
	changed := false
	switch track {
	case TrackClient:
		if !req.ClientSigned {
			req.ClientSigned = true
			req.ClientSignedAt = &now
			changed = true
		}
	case TrackLawyer:
		if !req.LawyerSigned {
			req.LawyerSigned = true
			req.LawyerSignedAt = &now
			changed = true
		}
	default:
		return req, errors.New("signature: unknown track")
	}
	if !changed {
		return req, nil
	}
	if artifact.ByteSourceURL != "" {
		req.SignedByteSourceURL = artifact.ByteSourceURL
	}
	if artifact.AttachmentID != "" {
		req.SignedAttachmentID = artifact.AttachmentID
	}
	if err := s.DB.Save(&req).Error; err != nil {
		return req, err
	}
	return req, nil
}

// MarkSent records when the request was sent to the counterparty.
func (s *Store) MarkSent(requestID string) (models.SignatureRequest, error) {
	req, err := s.Get(requestID)
	if err != nil {
		return req, err
	}
	if req.SentToCounterpartyAt == nil {
		now := time.Now().UTC()
		req.SentToCounterpartyAt = &now
		if err := s.DB.Save(&req).Error; err != nil {
			return req, err
		}
	}
	return req, nil
}

// Delete removes a request outright. Returning a request to pending is only
// possible by deleting and re-requesting; there is no rejected state.
func (s *Store) Delete(requestID string) error {
	res := s.DB.Delete(&models.SignatureRequest{}, "id = ?", requestID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Pending returns the case's requests with at least one required track not
// yet signed.
func (s *Store) Pending(caseID string) ([]models.SignatureRequest, error) {
	pending, _, err := s.partition(caseID)
	return pending, err
}

// Completed returns the case's requests with every required track signed.
func (s *Store) Completed(caseID string) ([]models.SignatureRequest, error) {
	_, completed, err := s.partition(caseID)
	return completed, err
}

// CountPending and CountCompleted recompute from rows on every call rather
// than maintaining counters, so badge counts cannot drift from the source.
func (s *Store) CountPending(caseID string) (int, error) {
	pending, _, err := s.partition(caseID)
	return len(pending), err
}

func (s *Store) CountCompleted(caseID string) (int, error) {
	_, completed, err := s.partition(caseID)
	return len(completed), err
}

func (s *Store) partition(caseID string) (pending, completed []models.SignatureRequest, err error) {
	var all []models.SignatureRequest
	if err := s.DB.Where("case_id = ?", caseID).Order("requested_at").Find(&all).Error; err != nil {
		return nil, nil, err
	}
	for _, req := range all {
		if req.Completed() {
			completed = append(completed, req)
		} else {
			pending = append(pending, req)
		}
	}
	return pending, completed, nil
}
