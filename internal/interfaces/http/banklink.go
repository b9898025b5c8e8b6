package http

import (
	"context"
	"log/slog"
	"net/http"

	"horizon/internal/domain/aggregation"
	"horizon/internal/domain/banklink"
	"horizon/internal/domain/user"
	"horizon/internal/shared/middleware"
)

type BankLinkService interface {
	CreateLinkToken(ctx context.Context, u *user.User) (*aggregation.LinkToken, error)
	ExchangePublicToken(ctx context.Context, u *user.User, publicToken string) (*banklink.ExchangeResult, error)
}

// BankLinkHandler serves the link flow. Routes must sit behind
// middleware.RequireSession.
type BankLinkHandler struct {
	banklink BankLinkService
	logger   *slog.Logger
}

func NewBankLinkHandler(svc BankLinkService, logger *slog.Logger) *BankLinkHandler {
	return &BankLinkHandler{banklink: svc, logger: logger}
}

type ExchangeRequest struct {
	PublicToken string `json:"publicToken"`
}

func (h *BankLinkHandler) HandleCreateLinkToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	u, _ := middleware.UserFromContext(r.Context())
	tok, err := h.banklink.CreateLinkToken(r.Context(), u)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tok)
}

func (h *BankLinkHandler) HandleExchangePublicToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ExchangeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	u, _ := middleware.UserFromContext(r.Context())
	res, err := h.banklink.ExchangePublicToken(r.Context(), u, req.PublicToken)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
