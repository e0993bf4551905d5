package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SignatureRequest tracks the client and lawyer signature obligations for one
// bundle entry. Exactly one row exists per (case, bundle entry); re-requesting
// updates the existing row rather than duplicating it. Rows outlive the bundle
// entry they point at: once the signed artifact replaces the original entry,
// the request remains as the audit trail.
type SignatureRequest struct {
	ID                      string `gorm:"type:uuid;primaryKey"`
	CaseID                  string `gorm:"index;uniqueIndex:idx_case_entry"`
	BundleEntryID           string `gorm:"uniqueIndex:idx_case_entry"`
	DocumentTitle           string
	RequestedAt             time.Time
	RequiresClientSignature bool
	RequiresLawyerSignature bool
	ClientSigned            bool
	ClientSignedAt          *time.Time
	LawyerSigned            bool
	LawyerSignedAt          *time.Time
	SignedByteSourceURL     string
	SignedAttachmentID      string
	SentToCounterpartyAt    *time.Time
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

func (r *SignatureRequest) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

// Completed reports whether every required signature track is signed.
// A track whose requirement flag is false is vacuously satisfied.
func (r *SignatureRequest) Completed() bool {
	if r.RequiresClientSignature && !r.ClientSigned {
		return false
	}
	if r.RequiresLawyerSignature && !r.LawyerSigned {
		return false
	}
	return true
}

// CaseSnapshot is the durable slot holding one case's serialized bundle state.
// Payload carries the versioned JSON snapshot; SchemaVersion is duplicated
// outside the payload so stale slots are cheap to find.
type CaseSnapshot struct {
	CaseID        string `gorm:"primaryKey"`
	SchemaVersion int    `gorm:"not null"`
	Payload       []byte `gorm:"type:blob"`
	LastSavedAt   time.Time
}
