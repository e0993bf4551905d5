// Package persist serializes case bundle state to the local durable store and
// migrates older snapshot schemas forward on load.
package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/zarishnasir123/LawFlow-sub000/internal/bundle"
	"github.com/zarishnasir123/LawFlow-sub000/internal/models"
)

// Snapshot is the persisted shape of one case's bundle state.
type Snapshot struct {
	SchemaVersion   int                          `json:"schemaVersion"`
	BundleItems     []bundle.Entry               `json:"bundleItems"`
	DocumentsByID   map[string]bundle.Document   `json:"documentsById"`
	AttachmentsByID map[string]bundle.Attachment `json:"attachmentsById"`
	LastSavedAt     time.Time                    `json:"lastSavedAt"`
}

// LoadReport tells the caller what happened during a load. A corrupt snapshot
// is absorbed here: the store comes back empty and usable, never half
// migrated.
type LoadReport struct {
	Found    bool
	Migrated bool
	Corrupt  bool
	Err      error
}

// SaveSnapshot serializes the store into its per-case slot and clears the
// store's dirty flag.
func SaveSnapshot(db *gorm.DB, store *bundle.Store) error {
	entries, docs, atts := store.Export()
	snap := Snapshot{
		SchemaVersion:   CurrentSchemaVersion,
		BundleItems:     entries,
		DocumentsByID:   docs,
		AttachmentsByID: atts,
		LastSavedAt:     time.Now().UTC(),
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	row := models.CaseSnapshot{
		CaseID:        store.CaseID(),
		SchemaVersion: CurrentSchemaVersion,
		Payload:       payload,
		LastSavedAt:   snap.LastSavedAt,
	}
	if err := db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	store.ClearDirty()
	return nil
}

// LoadSnapshot restores a case's bundle store from its slot, running schema
// migrations when the stored version predates the current one. A missing slot
// yields an empty store; an unparseable one abandons the load and also falls
// back to an empty store, reported via the LoadReport.
func LoadSnapshot(db *gorm.DB, caseID string) (*bundle.Store, LoadReport) {
	store := bundle.NewStore(caseID)
	var row models.CaseSnapshot
	if err := db.First(&row, "case_id = ?", caseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return store, LoadReport{}
		}
		return store, LoadReport{Err: err}
	}

	migrated, fromVersion, err := Migrate(row.Payload)
	if err != nil {
		return store, LoadReport{Found: true, Corrupt: true, Err: err}
	}
	var snap Snapshot
	if err := json.Unmarshal(migrated, &snap); err != nil {
		return store, LoadReport{Found: true, Corrupt: true, Err: err}
	}
	store.Restore(snap.BundleItems, snap.DocumentsByID, snap.AttachmentsByID)
	return store, LoadReport{Found: true, Migrated: fromVersion < CurrentSchemaVersion}
}
