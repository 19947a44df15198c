package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/text2trait/t2t/internal/model"
	"github.com/text2trait/t2t/internal/server/middleware"
	"github.com/text2trait/t2t/internal/service"
)

// SessionService is the part of *service.SessionManager the auth endpoints
// need.
type SessionService interface {
	Login(ctx context.Context, email, password string, prov service.Provenance) (*service.LoginResult, error)
	Logout(ctx context.Context, token string) error
	ListSessions(ctx context.Context, adminID string) ([]model.Session, error)
}

// AuthHandler serves admin login, logout, verify and session listing.
type AuthHandler struct {
	sessions SessionService
	extract  middleware.TokenExtractor
	logger   *slog.Logger
}

// NewAuthHandler creates an AuthHandler. extract locates the token for
// logout and should match the gate's extraction order.
func NewAuthHandler(sessions SessionService, extract middleware.TokenExtractor, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		sessions: sessions,
		extract:  extract,
		logger:   logger,
	}
}

// loginRequest is the expected payload for the Login endpoint.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginResponse is the response payload for a successful login.
type loginResponse struct {
	Token     string         `json:"session_token"`
	ExpiresAt time.Time      `json:"expires_at"`
	Admin     model.Identity `json:"admin"`
}

// Login exchanges credentials for a session token.
// POST /api/admin/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	// Missing fields get the same answer as wrong ones.
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		writeError(w, http.StatusUnauthorized, "Authentication failed")
		return
	}

	res, err := h.sessions.Login(r.Context(), email, req.Password, service.Provenance{
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
	})
	switch {
	case err == nil:
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Authentication failed")
		return
	case errors.Is(err, service.ErrAccountDisabled):
		writeError(w, http.StatusForbidden, "Account is disabled")
		return
	default:
		h.logger.Error("login failed", "request_id", middleware.GetRequestID(r.Context()), "error", err)
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
		Admin:     res.Admin,
	})
}

// Logout deletes the presented session. It answers 200 whether or not a
// session existed.
// POST /api/admin/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token, ok := h.extract(r); ok {
		if err := h.sessions.Logout(r.Context(), token); err != nil {
			h.logger.Error("logout failed", "request_id", middleware.GetRequestID(r.Context()), "error", err)
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Logged out successfully",
	})
}

// Verify confirms the caller's session and echoes the identity.
// GET /api/admin/verify
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request, admin model.Identity) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"valid": true,
		"admin": admin,
	})
}

type sessionView struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	IPAddress string    `json:"ip_address"`
	Device    string    `json:"device"`
}

// ListSessions returns the caller's unexpired sessions.
// GET /api/admin/sessions
func (h *AuthHandler) ListSessions(w http.ResponseWriter, r *http.Request, admin model.Identity) {
	sessions, err := h.sessions.ListSessions(r.Context(), admin.ID)
	if err != nil {
		h.logger.Error("list sessions failed", "request_id", middleware.GetRequestID(r.Context()), "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}

	views := make([]sessionView, len(sessions))
	for i, s := range sessions {
		views[i] = sessionView{
			ID:        s.ID,
			CreatedAt: s.CreatedAt,
			ExpiresAt: s.ExpiresAt,
			IPAddress: s.IPAddress,
			Device:    s.Device,
		}
	}
	writeJSON(w, http.StatusOK, model.ListResponse{
		Resource: views,
		Meta:     &model.ResponseMeta{Count: len(views)},
	})
}
