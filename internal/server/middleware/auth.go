package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/text2trait/t2t/internal/metrics"
	"github.com/text2trait/t2t/internal/model"
	"github.com/text2trait/t2t/internal/service"
)

// Reasons reported in the "reason" field of a 401 response.
const (
	ReasonNoSession      = "NO_SESSION"
	ReasonInvalidSession = "INVALID_SESSION"
)

// maxTokenBody bounds how much of a request body is scanned for a token.
const maxTokenBody = 1 << 20

// DevIdentity is injected for every request when the gate runs in bypass
// mode.
var DevIdentity = model.Identity{
	ID:          "dev-admin",
	Email:       "dev@localhost",
	DisplayName: "Development Admin",
}

// IdentityVerifier resolves a session token. *service.SessionManager
// implements it.
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (*model.Identity, error)
}

// TokenExtractor pulls a session token out of a request. It reports false
// when the request carries no token in the place it looks.
type TokenExtractor func(r *http.Request) (string, bool)

// BearerHeader reads "Bearer <token>" from the named header.
func BearerHeader(name string) TokenExtractor {
	return func(r *http.Request) (string, bool) {
		scheme, token, ok := strings.Cut(r.Header.Get(name), " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return "", false
		}
		token = strings.TrimSpace(token)
		return token, token != ""
	}
}

// JSONBodyField reads a string field from a JSON request body. The body is
// put back so the handler can still decode it.
func JSONBodyField(field string) TokenExtractor {
	return func(r *http.Request) (string, bool) {
		if r.Body == nil || r.Body == http.NoBody {
			return "", false
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, maxTokenBody))
		r.Body = struct {
			io.Reader
			io.Closer
		}{io.MultiReader(bytes.NewReader(body), r.Body), r.Body}
		if err != nil || !gjson.ValidBytes(body) {
			return "", false
		}
		v := gjson.GetBytes(body, field)
		if v.Type != gjson.String || v.Str == "" {
			return "", false
		}
		return v.Str, true
	}
}

// DefaultExtractors checks the Authorization header first and falls back to
// a session_token field in the JSON body.
func DefaultExtractors() []TokenExtractor {
	return []TokenExtractor{
		BearerHeader("Authorization"),
		JSONBodyField("session_token"),
	}
}

// AdminHandlerFunc is a handler that runs with a resolved admin identity.
type AdminHandlerFunc func(w http.ResponseWriter, r *http.Request, admin model.Identity)

// GateConfig configures a Gate.
type GateConfig struct {
	// Bypass skips token verification and hands every request DevIdentity.
	// Only for local development.
	Bypass bool

	// Extractors are tried in order; the first token found wins.
	// DefaultExtractors when empty.
	Extractors []TokenExtractor

	Metrics *metrics.Metrics
}

// Gate guards admin-only handlers.
type Gate struct {
	verifier   IdentityVerifier
	bypass     bool
	extractors []TokenExtractor
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

func NewGate(verifier IdentityVerifier, cfg GateConfig, logger *slog.Logger) *Gate {
	if len(cfg.Extractors) == 0 {
		cfg.Extractors = DefaultExtractors()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		verifier:   verifier,
		bypass:     cfg.Bypass,
		extractors: cfg.Extractors,
		metrics:    cfg.Metrics,
		logger:     logger,
	}
}

// Bypass reports whether the gate is in development bypass mode.
func (g *Gate) Bypass() bool {
	return g.bypass
}

// ExtractToken returns the first token any extractor finds.
func (g *Gate) ExtractToken(r *http.Request) (string, bool) {
	for _, extract := range g.extractors {
		if token, ok := extract(r); ok {
			return token, true
		}
	}
	return "", false
}

// Require wraps next so it only runs for requests carrying a valid session.
func (g *Gate) Require(next AdminHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.bypass {
			next(w, r, DevIdentity)
			return
		}

		token, ok := g.ExtractToken(r)
		if !ok {
			g.reject(w, r, service.ErrAuthenticationRequired, ReasonNoSession, "Authentication required")
			return
		}

		admin, err := g.verifier.Verify(r.Context(), token)
		switch {
		case err == nil:
			next(w, r, *admin)
		case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrAccountDisabled):
			g.reject(w, r, service.ErrInvalidSession, ReasonInvalidSession, "Invalid or expired session")
		default:
			g.logger.Error("session verification failed",
				"request_id", GetRequestID(r.Context()),
				"path", r.URL.Path,
				"error", err,
			)
			writeAuthError(w, http.StatusInternalServerError, "Internal server error", "")
		}
	}
}

func (g *Gate) reject(w http.ResponseWriter, r *http.Request, err error, reason, message string) {
	g.metrics.IncrementGateRejections(reason)
	g.logger.Warn("admin authentication failed",
		"request_id", GetRequestID(r.Context()),
		"path", r.URL.Path,
		"reason", reason,
		"error", err,
	)
	writeAuthError(w, http.StatusUnauthorized, message, reason)
}

func writeAuthError(w http.ResponseWriter, status int, message, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(model.ErrorResponse{
		Error: model.ErrorDetail{Code: status, Message: message, Reason: reason},
	})
}
