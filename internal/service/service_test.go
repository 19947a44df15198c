package service

import (
	"bytes"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/text2trait/t2t/internal/config"
	"github.com/text2trait/t2t/internal/metrics"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	store    *config.Store
	creds    *CredentialManager
	sessions *SessionManager
	clock    *fakeClock
	metrics  *metrics.Metrics
	logs     *bytes.Buffer
}

func newFixture(t *testing.T, credCfg CredentialConfig) *fixture {
	t.Helper()
	store, err := config.NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	clock := &fakeClock{now: time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)}
	m := metrics.New(prometheus.NewRegistry())
	hasher := fastHasher()
	secrets := NewSecretGenerator(nil)

	return &fixture{
		store:    store,
		creds:    NewCredentialManager(store, hasher, secrets, credCfg, m, logger),
		sessions: NewSessionManager(store, hasher, secrets, SessionConfig{Now: clock.Now}, m, logger),
		clock:    clock,
		metrics:  m,
		logs:     logs,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
