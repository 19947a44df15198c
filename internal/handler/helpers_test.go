package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	writeError(w, http.StatusBadRequest, "Invalid input")

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %s", ct)
	}
	body := w.Body.String()
	if !strings.Contains(body, `"code":400`) {
		t.Errorf("expected code 400 in body: %s", body)
	}
	if !strings.Contains(body, `"message":"Invalid input"`) {
		t.Errorf("expected message in body: %s", body)
	}
	if strings.Contains(body, `"reason"`) {
		t.Errorf("empty reason should be omitted: %s", body)
	}
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	writeJSON(w, http.StatusOK, map[string]string{"hello": "world"})

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"hello":"world"`) {
		t.Errorf("expected JSON body, got: %s", w.Body.String())
	}
}

func TestReadJSONTooLarge(t *testing.T) {
	w := httptest.NewRecorder()
	body := `{"email":"` + strings.Repeat("a", maxBodySize) + `"}`
	r := httptest.NewRequest("POST", "/", strings.NewReader(body))

	var v loginRequest
	if err := readJSON(w, r, &v); err == nil {
		t.Error("expected error for oversized body")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		remote string
		want   string
	}{
		{"192.0.2.1:1234", "192.0.2.1"},
		{"[2001:db8::1]:443", "2001:db8::1"},
		{"198.51.100.7", "198.51.100.7"},
	}
	for _, tt := range tests {
		r := httptest.NewRequest("GET", "/", nil)
		r.RemoteAddr = tt.remote
		if got := clientIP(r); got != tt.want {
			t.Errorf("clientIP(%q) = %q, want %q", tt.remote, got, tt.want)
		}
	}
}
