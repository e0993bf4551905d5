package fetch

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFetchDataURL(t *testing.T) {
	f := New("", time.Second)
	payload := []byte{0x89, 'P', 'N', 'G'}
	src := "data:image/png;base64," + base64.StdEncoding.EncodeToString(payload)
	got, err := f.Fetch(context.Background(), src)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload mismatch: %v", got)
	}
	if _, err := f.Fetch(context.Background(), "data:image/png,rawdata"); !errors.Is(err, ErrBadSource) {
		t.Fatalf("non-base64 data url should be rejected, got %v", err)
	}
}

func TestFetchLocalContainment(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.pdf"), []byte("%PDF-stub"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	f := New(dir, time.Second)

	got, err := f.Fetch(context.Background(), filepath.Join(dir, "a.pdf"))
	if err != nil {
		t.Fatalf("absolute path inside base: %v", err)
	}
	if string(got) != "%PDF-stub" {
		t.Fatalf("unexpected content: %q", got)
	}

	if _, err := f.Fetch(context.Background(), "../../etc/passwd"); !errors.Is(err, ErrOutsideDir) {
		t.Fatalf("traversal should be rejected, got %v", err)
	}
	if _, err := f.Fetch(context.Background(), "/etc/passwd"); !errors.Is(err, ErrOutsideDir) {
		t.Fatalf("absolute path outside base should be rejected, got %v", err)
	}
	if _, err := f.Fetch(context.Background(), ""); !errors.Is(err, ErrBadSource) {
		t.Fatalf("empty source should be rejected, got %v", err)
	}
}

func TestFetchHTTPTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte("late"))
	}))
	defer srv.Close()

	f := New("", 20*time.Millisecond)
	if _, err := f.Fetch(context.Background(), srv.URL); !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}

	fast := New("", 5*time.Second)
	got, err := fast.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(got) != "late" {
		t.Fatalf("unexpected body: %q", got)
	}
}
