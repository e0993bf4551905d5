package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestJSONError(t *testing.T) {
	w := httptest.NewRecorder()
	JSONError(w, http.StatusNotFound, "not_found", map[string]string{"entry_id": "e1"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("status: %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type: %s", ct)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error != "not_found" {
		t.Fatalf("code: %s", resp.Error)
	}
}

func TestJSONEncodeFailure(t *testing.T) {
	w := httptest.NewRecorder()
	JSON(w, http.StatusOK, map[string]any{"bad": func() {}})
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("encode failure should yield 500, got %d", w.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	w := httptest.NewRecorder()
	MethodNotAllowed(w, "GET,POST")
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status: %d", w.Code)
	}
	if allow := w.Header().Get("Allow"); allow != "GET,POST" {
		t.Fatalf("allow header: %q", allow)
	}
}
