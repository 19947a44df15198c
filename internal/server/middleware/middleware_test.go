package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/text2trait/t2t/internal/metrics"
	"github.com/text2trait/t2t/internal/model"
	"github.com/text2trait/t2t/internal/service"
)

// ---------------------------------------------------------------------------
// RequestID middleware tests
// ---------------------------------------------------------------------------

func TestRequestIDGeneratesUUID(t *testing.T) {
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetRequestID(r.Context()) == "" {
			t.Error("expected non-empty request ID in context")
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	respID := rr.Header().Get("X-Request-ID")
	// UUID v7 format check: 36 chars with dashes
	if len(respID) != 36 {
		t.Errorf("expected UUID-length request ID, got %q (len=%d)", respID, len(respID))
	}
}

func TestRequestIDPreservesClientID(t *testing.T) {
	clientID := "my-custom-trace-id-123"

	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := GetRequestID(r.Context()); id != clientID {
			t.Errorf("expected context ID %q, got %q", clientID, id)
		}
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-Request-ID", clientID)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if respID := rr.Header().Get("X-Request-ID"); respID != clientID {
		t.Errorf("expected response X-Request-ID %q, got %q", clientID, respID)
	}
}

func TestRequestIDReplacesUnsafeClientID(t *testing.T) {
	for _, bad := range []string{"has space", "tab\there", strings.Repeat("x", maxRequestIDLen+1)} {
		handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("X-Request-ID", bad)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if got := rr.Header().Get("X-Request-ID"); got == bad || len(got) != 36 {
			t.Errorf("client ID %q should have been replaced, got %q", bad, got)
		}
	}
}

func TestGetRequestIDEmptyContext(t *testing.T) {
	if id := GetRequestID(context.Background()); id != "" {
		t.Errorf("expected empty string from bare context, got %q", id)
	}
}

// ---------------------------------------------------------------------------
// Logger middleware tests
// ---------------------------------------------------------------------------

func TestLoggerQuietPaths(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	status := http.StatusOK
	handler := Logger(logger, "/healthz")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/healthz", nil))
	if buf.Len() != 0 {
		t.Errorf("quiet path logged on success: %s", buf.String())
	}

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/admin/verify", nil))
	if !strings.Contains(buf.String(), "path=/api/admin/verify") {
		t.Errorf("expected request line, got %q", buf.String())
	}

	buf.Reset()
	status = http.StatusServiceUnavailable
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/healthz", nil))
	if !strings.Contains(buf.String(), "status=503") {
		t.Errorf("failing quiet path should be logged, got %q", buf.String())
	}
}

// ---------------------------------------------------------------------------
// Gate tests
// ---------------------------------------------------------------------------

type stubVerifier struct {
	tokens map[string]model.Identity
	err    error
	calls  int
}

func (s *stubVerifier) Verify(_ context.Context, token string) (*model.Identity, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	id, ok := s.tokens[token]
	if !ok {
		return nil, service.ErrNotFound
	}
	return &id, nil
}

var alice = model.Identity{ID: "a1", Email: "alice@example.org", DisplayName: "alice"}

func echoIdentity(w http.ResponseWriter, r *http.Request, admin model.Identity) {
	json.NewEncoder(w).Encode(admin)
}

func newTestGate(v IdentityVerifier, cfg GateConfig) (*Gate, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewGate(v, cfg, slog.New(slog.NewTextHandler(&buf, nil))), &buf
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) model.ErrorDetail {
	t.Helper()
	var resp model.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return resp.Error
}

func TestGateBearerHeader(t *testing.T) {
	v := &stubVerifier{tokens: map[string]model.Identity{"good": alice}}
	gate, _ := newTestGate(v, GateConfig{})

	req := httptest.NewRequest("GET", "/api/admin/verify", nil)
	req.Header.Set("Authorization", "Bearer good")
	rr := httptest.NewRecorder()
	gate.Require(echoIdentity)(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var got model.Identity
	json.NewDecoder(rr.Body).Decode(&got)
	if got != alice {
		t.Errorf("identity = %+v, want %+v", got, alice)
	}
}

func TestGateBodyToken(t *testing.T) {
	v := &stubVerifier{tokens: map[string]model.Identity{"good": alice}}
	gate, _ := newTestGate(v, GateConfig{})

	body := `{"session_token":"good","project":"maize"}`
	var seenBody string
	handler := gate.Require(func(w http.ResponseWriter, r *http.Request, admin model.Identity) {
		b, _ := io.ReadAll(r.Body)
		seenBody = string(b)
	})

	req := httptest.NewRequest("POST", "/api/projects", strings.NewReader(body))
	rr := httptest.NewRecorder()
	handler(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if seenBody != body {
		t.Errorf("handler saw body %q, want %q", seenBody, body)
	}
}

func TestGateHeaderWinsOverBody(t *testing.T) {
	bob := model.Identity{ID: "b1", Email: "bob@example.org"}
	v := &stubVerifier{tokens: map[string]model.Identity{"header": alice, "body": bob}}
	gate, _ := newTestGate(v, GateConfig{})

	req := httptest.NewRequest("POST", "/x", strings.NewReader(`{"session_token":"body"}`))
	req.Header.Set("Authorization", "Bearer header")
	rr := httptest.NewRecorder()
	gate.Require(echoIdentity)(rr, req)

	var got model.Identity
	json.NewDecoder(rr.Body).Decode(&got)
	if got.ID != alice.ID {
		t.Errorf("expected header token to win, got identity %+v", got)
	}
}

func TestGateNoToken(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	v := &stubVerifier{}
	gate, logs := newTestGate(v, GateConfig{Metrics: m})

	cases := []*http.Request{
		httptest.NewRequest("GET", "/x", nil),
		httptest.NewRequest("POST", "/x", strings.NewReader(`{"other":"field"}`)),
		httptest.NewRequest("POST", "/x", strings.NewReader(`not json`)),
		httptest.NewRequest("POST", "/x", strings.NewReader(`{"session_token":42}`)),
	}
	basic := httptest.NewRequest("GET", "/x", nil)
	basic.Header.Set("Authorization", "Basic Zm9vOmJhcg==")
	cases = append(cases, basic)

	for i, req := range cases {
		rr := httptest.NewRecorder()
		gate.Require(echoIdentity)(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("case %d: status = %d, want 401", i, rr.Code)
			continue
		}
		detail := decodeError(t, rr)
		if detail.Reason != ReasonNoSession || detail.Message != "Authentication required" {
			t.Errorf("case %d: error = %+v", i, detail)
		}
	}
	if v.calls != 0 {
		t.Errorf("verifier called %d times without a token", v.calls)
	}
	if got := testutil.ToFloat64(m.GateRejections.WithLabelValues(ReasonNoSession)); got != float64(len(cases)) {
		t.Errorf("NO_SESSION rejections = %v, want %d", got, len(cases))
	}
	if !strings.Contains(logs.String(), "level=WARN") {
		t.Error("expected a warning for rejected requests")
	}
}

func TestGateInvalidSession(t *testing.T) {
	for _, verr := range []error{service.ErrNotFound, service.ErrAccountDisabled} {
		v := &stubVerifier{err: verr}
		gate, logs := newTestGate(v, GateConfig{})

		req := httptest.NewRequest("GET", "/x", nil)
		req.Header.Set("Authorization", "Bearer secret-token-value")
		rr := httptest.NewRecorder()
		gate.Require(echoIdentity)(rr, req)

		if rr.Code != http.StatusUnauthorized {
			t.Errorf("%v: status = %d, want 401", verr, rr.Code)
			continue
		}
		if detail := decodeError(t, rr); detail.Reason != ReasonInvalidSession {
			t.Errorf("%v: reason = %q, want %q", verr, detail.Reason, ReasonInvalidSession)
		}
		if strings.Contains(logs.String(), "secret-token-value") {
			t.Error("token leaked into logs")
		}
	}
}

func TestGateStorageFailure(t *testing.T) {
	v := &stubVerifier{err: fmt.Errorf("%w: get session: %w", service.ErrStorageFailure, errors.New("db down"))}
	gate, _ := newTestGate(v, GateConfig{})

	req := httptest.NewRequest("GET", "/x", nil)
	req.Header.Set("Authorization", "Bearer whatever")
	rr := httptest.NewRecorder()
	called := false
	gate.Require(func(http.ResponseWriter, *http.Request, model.Identity) { called = true })(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rr.Code)
	}
	if called {
		t.Error("handler must not run when verification fails")
	}
}

func TestGateBypass(t *testing.T) {
	v := &stubVerifier{}
	bypassed, _ := newTestGate(v, GateConfig{Bypass: true})
	enforced, _ := newTestGate(v, GateConfig{})

	// Same handler, both modes side by side.
	rr := httptest.NewRecorder()
	bypassed.Require(echoIdentity)(rr, httptest.NewRequest("GET", "/x", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("bypass: status = %d, want 200", rr.Code)
	}
	var got model.Identity
	json.NewDecoder(rr.Body).Decode(&got)
	if got != DevIdentity {
		t.Errorf("bypass identity = %+v, want %+v", got, DevIdentity)
	}
	if v.calls != 0 {
		t.Error("bypass must not consult the verifier")
	}

	rr = httptest.NewRecorder()
	enforced.Require(echoIdentity)(rr, httptest.NewRequest("GET", "/x", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("enforced: status = %d, want 401", rr.Code)
	}
	if !bypassed.Bypass() || enforced.Bypass() {
		t.Error("Bypass() does not reflect configuration")
	}
}

func TestBearerHeader(t *testing.T) {
	extract := BearerHeader("Authorization")
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"Bearer   abc  ", "abc", true},
		{"Bearer ", "", false},
		{"Bearer", "", false},
		{"Token abc", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		token, ok := extract(req)
		if token != tt.token || ok != tt.ok {
			t.Errorf("%q: got (%q, %v), want (%q, %v)", tt.header, token, ok, tt.token, tt.ok)
		}
	}
}

func TestCustomExtractorOrder(t *testing.T) {
	v := &stubVerifier{tokens: map[string]model.Identity{"cookie-token": alice}}
	fromCookie := func(r *http.Request) (string, bool) {
		c, err := r.Cookie("t2t_session")
		if err != nil {
			return "", false
		}
		return c.Value, true
	}
	gate, _ := newTestGate(v, GateConfig{Extractors: []TokenExtractor{fromCookie}})

	req := httptest.NewRequest("GET", "/x", nil)
	req.AddCookie(&http.Cookie{Name: "t2t_session", Value: "cookie-token"})
	req.Header.Set("Authorization", "Bearer ignored")
	rr := httptest.NewRecorder()
	gate.Require(echoIdentity)(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
}
