package persist

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/zarishnasir123/LawFlow-sub000/internal/bundle"
	"github.com/zarishnasir123/LawFlow-sub000/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.CaseSnapshot{}))
	return db
}

func TestSaveLoadRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	store := bundle.NewStore("case-1")
	d := store.AddDocument(bundle.Document{
		Title:             "Engagement Letter",
		StructuredContent: []bundle.Block{{Type: "heading", Text: "Engagement Letter"}, {Type: "paragraph", Text: "Terms."}},
	}, bundle.InsertPolicy{})
	a := store.AddAttachment(bundle.Attachment{Name: "evidence.pdf", MimeType: "application/pdf", SizeBytes: 123, ByteSourceURL: "uploads/evidence.pdf"}, bundle.InsertPolicy{})

	require.NoError(t, SaveSnapshot(db, store))
	assert.False(t, store.Dirty(), "save should clear the dirty flag")

	loaded, report := LoadSnapshot(db, "case-1")
	require.NoError(t, report.Err)
	assert.True(t, report.Found)
	assert.False(t, report.Migrated)
	assert.False(t, report.Corrupt)

	wantEntries, wantDocs, wantAtts := store.Export()
	gotEntries, gotDocs, gotAtts := loaded.Export()
	assert.Equal(t, wantEntries, gotEntries)
	assert.Equal(t, wantDocs, gotDocs)
	assert.Equal(t, wantAtts, gotAtts)

	gotDoc, ok := loaded.DocumentByID(d.ReferenceID)
	require.True(t, ok)
	assert.Len(t, gotDoc.StructuredContent, 2)
	gotAtt, ok := loaded.AttachmentByID(a.ReferenceID)
	require.True(t, ok)
	assert.Equal(t, int64(123), gotAtt.SizeBytes)
}

func TestSaveOverwritesSlot(t *testing.T) {
	db := setupTestDB(t)
	store := bundle.NewStore("case-1")
	store.AddDocument(bundle.Document{Title: "A"}, bundle.InsertPolicy{})
	require.NoError(t, SaveSnapshot(db, store))
	store.AddDocument(bundle.Document{Title: "B"}, bundle.InsertPolicy{})
	require.NoError(t, SaveSnapshot(db, store))

	var count int64
	db.Model(&models.CaseSnapshot{}).Count(&count)
	assert.EqualValues(t, 1, count, "one slot per case")

	loaded, _ := LoadSnapshot(db, "case-1")
	assert.Len(t, loaded.Entries(), 2)
}

func TestLoadMissingCaseYieldsEmptyStore(t *testing.T) {
	db := setupTestDB(t)
	store, report := LoadSnapshot(db, "case-404")
	require.NoError(t, report.Err)
	assert.False(t, report.Found)
	assert.Empty(t, store.Entries())
}

func TestLoadCorruptSnapshotFallsBackEmpty(t *testing.T) {
	db := setupTestDB(t)
	row := models.CaseSnapshot{CaseID: "case-1", SchemaVersion: 2, Payload: []byte("{not json")}
	require.NoError(t, db.Create(&row).Error)

	store, report := LoadSnapshot(db, "case-1")
	assert.True(t, report.Found)
	assert.True(t, report.Corrupt)
	assert.Error(t, report.Err)
	assert.Empty(t, store.Entries(), "no partial state committed")
}

const v1Payload = `{
	"schemaVersion": 1,
	"documents": {
		"7": "<h1>Engagement Letter</h1><p>Terms of engagement.</p>",
		"12": "<p>Plain note without heading.</p>"
	},
	"attachments": [
		{"name": "evidence.pdf", "mimeType": "application/pdf", "sizeBytes": 10, "byteSourceUrl": "uploads/evidence.pdf"},
		{"name": "photo.jpg", "mimeType": "image/jpeg", "sizeBytes": 20, "byteSourceUrl": "uploads/photo.jpg"}
	]
}`

func TestMigrateV1(t *testing.T) {
	out, from, err := Migrate([]byte(v1Payload))
	require.NoError(t, err)
	assert.Equal(t, 1, from)

	db := setupTestDB(t)
	require.NoError(t, db.Create(&models.CaseSnapshot{CaseID: "case-1", SchemaVersion: 1, Payload: []byte(v1Payload)}).Error)
	store, report := LoadSnapshot(db, "case-1")
	require.NoError(t, report.Err)
	assert.True(t, report.Migrated)

	entries := store.Entries()
	require.Len(t, entries, 4)
	// attachments first in original order, then documents in sorted-id order
	assert.Equal(t, bundle.KindAttachment, entries[0].Kind)
	assert.Equal(t, "evidence.pdf", entries[0].Title)
	assert.Equal(t, "photo.jpg", entries[1].Title)
	assert.Equal(t, bundle.KindDocument, entries[2].Kind)

	// markup retained as legacy content, not eagerly converted
	var docEntry bundle.Entry
	for _, e := range entries {
		if e.Kind == bundle.KindDocument && e.Title == "Engagement Letter" {
			docEntry = e
		}
	}
	require.NotEmpty(t, docEntry.ID, "legacy heading should become the title, out=%s", out)
	doc, ok := store.DocumentByID(docEntry.ReferenceID)
	require.True(t, ok)
	assert.Empty(t, doc.StructuredContent)
	assert.Contains(t, doc.LegacyMarkup, "<h1>")

	assert.Empty(t, store.Integrity(), "migrated references must resolve")
}

func TestMigrateIdempotentAndDeterministic(t *testing.T) {
	once, _, err := Migrate([]byte(v1Payload))
	require.NoError(t, err)
	twiceInput, _, err := Migrate([]byte(v1Payload))
	require.NoError(t, err)
	assert.Equal(t, string(once), string(twiceInput), "same input migrates identically")

	// migrating already-current data is a no-op
	again, from, err := Migrate(once)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, from)
	assert.Equal(t, string(once), string(again))
}

func TestMigrateUnknownVersion(t *testing.T) {
	_, _, err := Migrate([]byte(`{"schemaVersion": 0}`))
	assert.Error(t, err)
}
