package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/text2trait/t2t/internal/config"
	"github.com/text2trait/t2t/internal/model"
	"github.com/text2trait/t2t/internal/server/middleware"
	"github.com/text2trait/t2t/internal/service"
)

const testPassword = "supersecretpassword"

// testEnv holds shared state for handler integration tests.
type testEnv struct {
	store    *config.Store
	sessions *service.SessionManager
	router   chi.Router
	now      time.Time
}

// newTestEnv creates a fresh test environment with an in-memory store and
// the auth routes mounted behind a real gate.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := config.NewStore("") // in-memory SQLite
	if err != nil {
		t.Fatalf("config.NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hasher, err := service.NewPasswordHasher(0)
	if err != nil {
		t.Fatalf("NewPasswordHasher: %v", err)
	}
	env := &testEnv{store: store, now: time.Now().UTC()}
	env.sessions = service.NewSessionManager(store, hasher, service.NewSecretGenerator(nil),
		service.SessionConfig{Now: func() time.Time { return env.now }}, nil, logger)

	gate := middleware.NewGate(env.sessions, middleware.GateConfig{}, logger)
	auth := NewAuthHandler(env.sessions, gate.ExtractToken, logger)

	r := chi.NewRouter()
	r.Route("/api/admin", func(r chi.Router) {
		r.Post("/login", auth.Login)
		r.Post("/logout", auth.Logout)
		r.Get("/verify", gate.Require(auth.Verify))
		r.Get("/sessions", gate.Require(auth.ListSessions))
	})
	r.Get("/openapi.json", NewOpenAPIHandler("").ServeSpec)
	env.router = r
	return env
}

// seedAdmin stores an account for testPassword. The hash uses the minimum
// bcrypt cost to keep tests quick; verification reads the cost from the hash.
func (e *testEnv) seedAdmin(t *testing.T, email string, active bool) *model.Admin {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	admin := &model.Admin{
		ID:           "id-" + email,
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  "Test Admin",
		IsActive:     active,
	}
	if err := e.store.CreateAdmin(context.Background(), admin); err != nil {
		t.Fatalf("seedAdmin: %v", err)
	}
	return admin
}

// do executes an HTTP request against the test router and returns the recorder.
func (e *testEnv) do(t *testing.T, method, path string, body io.Reader, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

// login performs a successful login and returns the token.
func (e *testEnv) login(t *testing.T, email string) string {
	t.Helper()
	rr := e.do(t, "POST", "/api/admin/login", toJSON(t, map[string]string{
		"email":    email,
		"password": testPassword,
	}))
	assertStatus(t, rr, 200)
	var resp loginResponse
	decodeJSON(t, rr, &resp)
	return resp.Token
}

func toJSON(t *testing.T, v interface{}) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(v); err != nil {
		t.Fatalf("toJSON: %v", err)
	}
	return buf
}

func assertStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Errorf("status = %d, want %d; body = %s", rr.Code, want, rr.Body.String())
	}
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decodeJSON: %v; body = %s", err, rr.Body.String())
	}
}
