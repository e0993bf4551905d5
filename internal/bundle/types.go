package bundle

import "time"

type Kind string

const (
	KindDocument   Kind = "document"
	KindAttachment Kind = "attachment"
)

// Entry is one positioned slot in the case bundle. The slice order inside the
// store IS the canonical filing order; there is no separate order field.
type Entry struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"kind"`
	ReferenceID string    `json:"referenceId"`
	Title       string    `json:"title"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Block is one unit of a document's structured content.
type Block struct {
	Type string `json:"type"` // "heading" or "paragraph"
	Text string `json:"text"`
}

// Document holds editable prose content. Exactly one representation is
// canonical at a time: once StructuredContent is set it supersedes
// LegacyMarkup, which is retained only until first edit converts it.
type Document struct {
	ID                string  `json:"-"`
	Title             string  `json:"title"`
	StructuredContent []Block `json:"structuredContent,omitempty"`
	LegacyMarkup      string  `json:"legacyMarkup,omitempty"`
	IsTemplate        bool    `json:"isTemplate"`
	SourceURL         string  `json:"sourceUrl,omitempty"`
}

// Attachment is immutable once created; a signed variant is a new Attachment,
// never an in-place mutation of the original.
type Attachment struct {
	ID            string    `json:"-"`
	Name          string    `json:"name"`
	MimeType      string    `json:"mimeType"`
	SizeBytes     int64     `json:"sizeBytes"`
	ByteSourceURL string    `json:"byteSourceUrl"`
	UploadedAt    time.Time `json:"uploadedAt"`
}

// Fault describes a bundle entry whose reference does not resolve. Faults are
// surfaced to the caller so the user can remove the entry explicitly; the
// store never prunes them on its own.
type Fault struct {
	EntryID     string `json:"entryId"`
	Kind        Kind   `json:"kind"`
	ReferenceID string `json:"referenceId"`
	Title       string `json:"title"`
}

// InsertPolicy controls where a new entry lands. When AfterEntryID names an
// existing entry the new one goes immediately after it, keeping fresh material
// near the caller's current focus. Otherwise the entry is appended after the
// last entry of its own kind (documents cluster before attachments).
type InsertPolicy struct {
	AfterEntryID string
}
