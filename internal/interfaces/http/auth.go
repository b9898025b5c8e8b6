package http

import (
	"context"
	"log/slog"
	"net/http"

	"horizon/internal/domain/auth"
	"horizon/internal/domain/user"
	"horizon/internal/shared/errs"
)

// AuthService is the enrollment and session surface the handler needs.
type AuthService interface {
	SignUp(ctx context.Context, params user.SignUpParams) (*auth.Result, error)
	SignIn(ctx context.Context, email, password string) (*auth.Result, error)
	GetLoggedInUser(ctx context.Context, secret string) (*user.User, error)
	Logout(ctx context.Context, secret string) error
}

type AuthHandler struct {
	auth   AuthService
	cookie SessionCookie
	logger *slog.Logger
}

func NewAuthHandler(svc AuthService, cookie SessionCookie, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: svc, cookie: cookie, logger: logger}
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleSignUp enrolls a customer and starts their session.
func (h *AuthHandler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req user.SignUpParams
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	res, err := h.auth.SignUp(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.cookie.set(w, res.Session.Secret, res.Session.ExpiresAt)
	writeJSON(w, http.StatusCreated, res.User)
}

func (h *AuthHandler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req SignInRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	res, err := h.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.cookie.set(w, res.Session.Secret, res.Session.ExpiresAt)
	writeJSON(w, http.StatusOK, res.User)
}

// HandleMe returns the signed-in user, or null when there is no live session.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	secret := h.cookie.read(r)
	if secret == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	u, err := h.auth.GetLoggedInUser(r.Context(), secret)
	if err != nil {
		h.logger.DebugContext(r.Context(), "no logged in user", slog.String("error", err.Error()))
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	secret := h.cookie.read(r)
	h.cookie.clear(w)

	// Revocation is best effort; the browser is logged out either way.
	if err := h.auth.Logout(r.Context(), secret); err != nil {
		h.logger.WarnContext(r.Context(), "session revocation failed",
			slog.String("kind", string(errs.KindOf(err))),
			slog.String("error", err.Error()),
		)
	}
	w.WriteHeader(http.StatusNoContent)
}
