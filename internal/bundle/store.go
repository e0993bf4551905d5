package bundle

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound       = errors.New("bundle: not found")
	ErrInvalidReorder = errors.New("bundle: reorder is not a permutation of current entries")
)

// ReleaseFunc is invoked with an attachment's byte source when the last bundle
// entry referencing it is removed or replaced, so transient blob handles can
// be freed. The underlying Attachment record itself is never cascade-deleted.
type ReleaseFunc func(byteSourceURL string)

// Store owns one case's ordered bundle and the document/attachment tables the
// entries reference. All mutations are synchronous and mark the store dirty
// for the persistence layer.
type Store struct {
	mu          sync.Mutex
	caseID      string
	entries     []Entry
	documents   map[string]*Document
	attachments map[string]*Attachment
	dirty       bool
	release     ReleaseFunc
}

func NewStore(caseID string) *Store {
	return &Store{
		caseID:      caseID,
		documents:   map[string]*Document{},
		attachments: map[string]*Attachment{},
	}
}

func (s *Store) CaseID() string { return s.caseID }

// SetReleaseFunc wires the blob release hook. Optional.
func (s *Store) SetReleaseFunc(f ReleaseFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.release = f
}

// AddDocument stores doc and inserts a bundle entry for it per pol.
func (s *Store) AddDocument(doc Document, pol InsertPolicy) Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	d := doc
	s.documents[d.ID] = &d
	e := Entry{
		ID:          uuid.New().String(),
		Kind:        KindDocument,
		ReferenceID: d.ID,
		Title:       d.Title,
		CreatedAt:   time.Now().UTC(),
	}
	s.insertLocked(e, pol)
	s.dirty = true
	return e
}

// AddAttachment stores att and inserts a bundle entry for it per pol.
func (s *Store) AddAttachment(att Attachment, pol InsertPolicy) Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.addAttachmentLocked(att, pol)
	s.dirty = true
	return e
}

func (s *Store) addAttachmentLocked(att Attachment, pol InsertPolicy) Entry {
	if att.ID == "" {
		att.ID = uuid.New().String()
	}
	a := att
	s.attachments[a.ID] = &a
	e := Entry{
		ID:          uuid.New().String(),
		Kind:        KindAttachment,
		ReferenceID: a.ID,
		Title:       a.Name,
		CreatedAt:   time.Now().UTC(),
	}
	s.insertLocked(e, pol)
	return e
}

// insertLocked applies the insertion policy: after the named entry when it
// exists, else after the last entry of the same kind, else at the kind
// boundary (documents before attachments).
func (s *Store) insertLocked(e Entry, pol InsertPolicy) {
	if pol.AfterEntryID != "" {
		if i := s.indexLocked(pol.AfterEntryID); i >= 0 {
			s.entries = append(s.entries, Entry{})
			copy(s.entries[i+2:], s.entries[i+1:])
			s.entries[i+1] = e
			return
		}
	}
	last := -1
	for i, cur := range s.entries {
		if cur.Kind == e.Kind {
			last = i
		}
	}
	if last >= 0 {
		s.entries = append(s.entries, Entry{})
		copy(s.entries[last+2:], s.entries[last+1:])
		s.entries[last+1] = e
		return
	}
	if e.Kind == KindDocument {
		// no documents yet: documents cluster before attachments
		s.entries = append([]Entry{e}, s.entries...)
		return
	}
	s.entries = append(s.entries, e)
}

func (s *Store) indexLocked(entryID string) int {
	for i, e := range s.entries {
		if e.ID == entryID {
			return i
		}
	}
	return -1
}

// RemoveEntry removes the entry from the sequence. The referenced
// Document/Attachment record is kept for audit and history; only a transient
// blob handle, if the hook owns one, is released.
func (s *Store) RemoveEntry(entryID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(entryID)
	if i < 0 {
		return false
	}
	removed := s.entries[i]
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	s.dirty = true
	s.releaseIfUnreferencedLocked(removed)
	return true
}

func (s *Store) releaseIfUnreferencedLocked(removed Entry) {
	if removed.Kind != KindAttachment || s.release == nil {
		return
	}
	for _, e := range s.entries {
		if e.Kind == KindAttachment && e.ReferenceID == removed.ReferenceID {
			return
		}
	}
	if att, ok := s.attachments[removed.ReferenceID]; ok {
		s.release(att.ByteSourceURL)
	}
}

// Reorder replaces the sequence wholesale. The new order must be a
// permutation of the current entry ids; anything else is rejected and the
// bundle is left untouched.
func (s *Store) Reorder(newOrder []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(newOrder) != len(s.entries) {
		return ErrInvalidReorder
	}
	byID := make(map[string]Entry, len(s.entries))
	for _, e := range s.entries {
		byID[e.ID] = e
	}
	next := make([]Entry, 0, len(newOrder))
	for _, id := range newOrder {
		e, ok := byID[id]
		if !ok {
			return ErrInvalidReorder
		}
		delete(byID, id) // reject duplicates
		next = append(next, e)
	}
	s.entries = next
	s.dirty = true
	return nil
}

// ReplaceEntryWithAttachment swaps the entry at entryID for a new attachment
// entry at the same bundle position (insert after, then remove the original),
// preserving reading order. Used to attach a signed artifact in place of the
// unsigned original.
func (s *Store) ReplaceEntryWithAttachment(entryID string, signed Attachment) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(entryID)
	if i < 0 {
		return Entry{}, ErrNotFound
	}
	original := s.entries[i]
	e := s.addAttachmentLocked(signed, InsertPolicy{AfterEntryID: entryID})
	j := s.indexLocked(entryID)
	s.entries = append(s.entries[:j], s.entries[j+1:]...)
	s.dirty = true
	s.releaseIfUnreferencedLocked(original)
	return e, nil
}

// Entries returns a copy of the ordered bundle.
func (s *Store) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *Store) Entry(entryID string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(entryID); i >= 0 {
		return s.entries[i], true
	}
	return Entry{}, false
}

func (s *Store) DocumentByID(id string) (Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.documents[id]; ok {
		return *d, true
	}
	return Document{}, false
}

func (s *Store) AttachmentByID(id string) (Attachment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.attachments[id]; ok {
		return *a, true
	}
	return Attachment{}, false
}

// UpdateDocumentContent replaces a document's structured content. If the
// document still carries legacy markup it is dropped here: the first edit is
// the conversion point and structured content becomes canonical.
func (s *Store) UpdateDocumentContent(docID string, blocks []Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.documents[docID]
	if !ok {
		return ErrNotFound
	}
	d.StructuredContent = blocks
	d.LegacyMarkup = ""
	s.dirty = true
	return nil
}

// RenameDocument updates the document title and the titles of entries
// referencing it.
func (s *Store) RenameDocument(docID, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.documents[docID]
	if !ok {
		return ErrNotFound
	}
	d.Title = title
	for i := range s.entries {
		if s.entries[i].Kind == KindDocument && s.entries[i].ReferenceID == docID {
			s.entries[i].Title = title
		}
	}
	s.dirty = true
	return nil
}

// Integrity reports entries whose referenceId has no matching record.
// Dangling references are a data-integrity fault the caller must surface,
// never silently drop.
func (s *Store) Integrity() []Fault {
	s.mu.Lock()
	defer s.mu.Unlock()
	var faults []Fault
	for _, e := range s.entries {
		var ok bool
		switch e.Kind {
		case KindDocument:
			_, ok = s.documents[e.ReferenceID]
		case KindAttachment:
			_, ok = s.attachments[e.ReferenceID]
		}
		if !ok {
			faults = append(faults, Fault{EntryID: e.ID, Kind: e.Kind, ReferenceID: e.ReferenceID, Title: e.Title})
		}
	}
	return faults
}

func (s *Store) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

func (s *Store) ClearDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = false
}

// Export returns copies of the store contents for serialization.
func (s *Store) Export() (entries []Entry, docs map[string]Document, atts map[string]Attachment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries = make([]Entry, len(s.entries))
	copy(entries, s.entries)
	docs = make(map[string]Document, len(s.documents))
	for id, d := range s.documents {
		docs[id] = *d
	}
	atts = make(map[string]Attachment, len(s.attachments))
	for id, a := range s.attachments {
		atts[id] = *a
	}
	return entries, docs, atts
}

// Restore replaces the store contents from a loaded snapshot and clears the
// dirty flag (the loaded state is what is on disk).
func (s *Store) Restore(entries []Entry, docs map[string]Document, atts map[string]Attachment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make([]Entry, len(entries))
	copy(s.entries, entries)
	s.documents = make(map[string]*Document, len(docs))
	for id, d := range docs {
		dd := d
		dd.ID = id
		s.documents[id] = &dd
	}
	s.attachments = make(map[string]*Attachment, len(atts))
	for id, a := range atts {
		aa := a
		aa.ID = id
		s.attachments[id] = &aa
	}
	s.dirty = false
}
