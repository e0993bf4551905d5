package persist

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/zarishnasir123/LawFlow-sub000/internal/bundle"
)

// CurrentSchemaVersion is the snapshot schema this build reads and writes.
//
// v1: flat maps — "documents" (document id -> raw legacy markup) and
// "attachments" (ordered list); no bundle sequence.
// v2: explicit ordered bundleItems plus documentsById / attachmentsById.
const CurrentSchemaVersion = 2

// A migrationStep maps a snapshot from version N to N+1. Steps must be pure
// and deterministic: migrating the same input twice yields identical bytes,
// and running the chain on already-current data is a no-op.
type migrationStep func(raw map[string]json.RawMessage) (map[string]json.RawMessage, error)

var migrations = map[int]migrationStep{
	1: migrateV1toV2,
}

// Migrate upgrades a stored snapshot payload to the current schema version.
// It returns the upgraded payload and the version it started from. Payloads
// without a schemaVersion field are treated as v1.
func Migrate(payload []byte) ([]byte, int, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, 0, fmt.Errorf("parse snapshot: %w", err)
	}
	version := 1
	if v, ok := raw["schemaVersion"]; ok {
		if err := json.Unmarshal(v, &version); err != nil {
			return nil, 0, fmt.Errorf("parse schemaVersion: %w", err)
		}
	}
	from := version
	for version < CurrentSchemaVersion {
		step, ok := migrations[version]
		if !ok {
			return nil, from, fmt.Errorf("no migration from snapshot version %d", version)
		}
		next, err := step(raw)
		if err != nil {
			return nil, from, fmt.Errorf("migrate v%d: %w", version, err)
		}
		version++
		v, _ := json.Marshal(version)
		next["schemaVersion"] = v
		raw = next
	}
	out, err := json.Marshal(raw)
	if err != nil {
		return nil, from, err
	}
	return out, from, nil
}

// migrateV1toV2 converts the legacy flat shape into the entry sequence:
// attachments first in their original list order, then one synthetic entry
// per legacy document in sorted-id order. Entry ids are derived from the
// referenced record ids so the step is deterministic. Markup stays legacy
// content; conversion to structured content happens lazily on first edit.
func migrateV1toV2(raw map[string]json.RawMessage) (map[string]json.RawMessage, error) {
	var legacyDocs map[string]string
	if v, ok := raw["documents"]; ok {
		if err := json.Unmarshal(v, &legacyDocs); err != nil {
			return nil, fmt.Errorf("parse documents: %w", err)
		}
	}
	type legacyAttachment struct {
		ID            string    `json:"id"`
		Name          string    `json:"name"`
		MimeType      string    `json:"mimeType"`
		SizeBytes     int64     `json:"sizeBytes"`
		ByteSourceURL string    `json:"byteSourceUrl"`
		UploadedAt    time.Time `json:"uploadedAt"`
	}
	var legacyAtts []legacyAttachment
	if v, ok := raw["attachments"]; ok {
		if err := json.Unmarshal(v, &legacyAtts); err != nil {
			return nil, fmt.Errorf("parse attachments: %w", err)
		}
	}

	var items []bundle.Entry
	attsByID := map[string]bundle.Attachment{}
	for i, a := range legacyAtts {
		id := a.ID
		if id == "" {
			id = fmt.Sprintf("att-%d", i+1)
		}
		attsByID[id] = bundle.Attachment{
			Name:          a.Name,
			MimeType:      a.MimeType,
			SizeBytes:     a.SizeBytes,
			ByteSourceURL: a.ByteSourceURL,
			UploadedAt:    a.UploadedAt,
		}
		items = append(items, bundle.Entry{
			ID:          "entry-att-" + id,
			Kind:        bundle.KindAttachment,
			ReferenceID: id,
			Title:       a.Name,
			CreatedAt:   a.UploadedAt,
		})
	}

	docIDs := make([]string, 0, len(legacyDocs))
	for id := range legacyDocs {
		docIDs = append(docIDs, id)
	}
	sort.Strings(docIDs)
	docsByID := map[string]bundle.Document{}
	for _, id := range docIDs {
		markup := legacyDocs[id]
		title := bundle.LegacyTitle(markup)
		if title == "" {
			title = "Document " + id
		}
		docsByID[id] = bundle.Document{Title: title, LegacyMarkup: markup}
		items = append(items, bundle.Entry{
			ID:          "entry-doc-" + id,
			Kind:        bundle.KindDocument,
			ReferenceID: id,
			Title:       title,
		})
	}

	out := map[string]json.RawMessage{}
	if v, ok := raw["lastSavedAt"]; ok {
		out["lastSavedAt"] = v
	} else {
		v, _ := json.Marshal(time.Time{})
		out["lastSavedAt"] = v
	}
	var err error
	if out["bundleItems"], err = json.Marshal(items); err != nil {
		return nil, err
	}
	if out["documentsById"], err = json.Marshal(docsByID); err != nil {
		return nil, err
	}
	if out["attachmentsById"], err = json.Marshal(attsByID); err != nil {
		return nil, err
	}
	return out, nil
}
