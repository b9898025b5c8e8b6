package http

import (
	"context"
	"log/slog"
	"net/http"

	"horizon/internal/domain/home"
	"horizon/internal/domain/user"
	"horizon/internal/shared/middleware"
)

type HomeService interface {
	Home(ctx context.Context, u *user.User) (*home.View, error)
}

type HomeHandler struct {
	home   HomeService
	logger *slog.Logger
}

func NewHomeHandler(svc HomeService, logger *slog.Logger) *HomeHandler {
	return &HomeHandler{home: svc, logger: logger}
}

// HandleHome returns the root page view for the session user.
func (h *HomeHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	u, _ := middleware.UserFromContext(r.Context())
	view, err := h.home.Home(r.Context(), u)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	w.Header().Set("Cache-Control", "private, no-store")
	writeJSON(w, http.StatusOK, view)
}
