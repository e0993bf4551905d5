package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/zarishnasir123/LawFlow-sub000/internal/models"
	"github.com/zarishnasir123/LawFlow-sub000/internal/services"
	"github.com/zarishnasir123/LawFlow-sub000/internal/signature"
	"github.com/zarishnasir123/LawFlow-sub000/internal/uploads"
)

func setupSignatureHandler(t *testing.T) (*SignatureHandler, *uploads.Store) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("db open: %v", err)
	}
	if err := db.AutoMigrate(&models.SignatureRequest{}, &models.CaseSnapshot{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	up, err := uploads.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("uploads: %v", err)
	}
	return NewSignatureHandler(services.NewCaseManager(db, up), signature.NewStore(db), up), up
}

func TestMarkSignedEndpoint(t *testing.T) {
	h, up := setupSignatureHandler(t)
	reqs, err := h.Requests.SendRequestsForCase("c1", []signature.RequestSpec{
		{BundleEntryID: "e1", DocumentTitle: "Retainer", RequiresClientSignature: true},
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	// the scanned copy arrives as a transient upload
	src, _, err := up.SavePreview("retainer-signed.pdf", strings.NewReader("%PDF-scan"))
	if err != nil {
		t.Fatalf("save preview: %v", err)
	}

	body, _ := json.Marshal(map[string]string{
		"id": reqs[0].ID, "track": "client", "byte_source_url": src,
	})
	r := httptest.NewRequest(http.MethodPost, "/signatures/signed", bytes.NewReader(body))
	w := httptest.NewRecorder()
	h.MarkSigned(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("mark signed: %d %s", w.Code, w.Body.String())
	}
	got, err := h.Requests.Get(reqs[0].ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.ClientSigned || !got.Completed() || got.SignedByteSourceURL != src {
		t.Fatalf("request not updated: %+v", got)
	}

	// the referenced blob was promoted: releasing it is now a no-op
	up.Release(src)
	if _, err := os.Stat(filepath.FromSlash(src)); err != nil {
		t.Fatalf("promoted blob must survive release: %v", err)
	}
}

func TestMarkSignedEndpointValidation(t *testing.T) {
	h, _ := setupSignatureHandler(t)

	r := httptest.NewRequest(http.MethodPost, "/signatures/signed", strings.NewReader(`{"id":"x","track":"witness"}`))
	w := httptest.NewRecorder()
	h.MarkSigned(w, r)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unknown track should be 400, got %d", w.Code)
	}

	r = httptest.NewRequest(http.MethodPost, "/signatures/signed", strings.NewReader(`{"id":"missing","track":"client"}`))
	w = httptest.NewRecorder()
	h.MarkSigned(w, r)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown request should be 404, got %d", w.Code)
	}
}
