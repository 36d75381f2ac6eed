package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/user-hobbies/internal/auth"
	"github.com/sakif/user-hobbies/internal/service"
)

// TokenIssuer signs bearer tokens. *service.AccountService implements it.
type TokenIssuer interface {
	IssueToken(p auth.Principal) (string, error)
}

// TokenResponse is the body of a successful POST /auth/token.
type TokenResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"tokenType"`
}

// TokenHandler trades Basic credentials for a bearer token.
type TokenHandler struct {
	tokens TokenIssuer
	logger *slog.Logger
}

// NewTokenHandler creates a TokenHandler.
func NewTokenHandler(tokens TokenIssuer, logger *slog.Logger) *TokenHandler {
	return &TokenHandler{tokens: tokens, logger: logger}
}

// HandleIssue signs a token for the caller.
//
// HTTP: POST /auth/token (behind auth.Guard.RequireBasic)
//
// Use the token as "Authorization: Bearer <token>" on /user until it expires.
// Answers 503 when the server has no JWT secret configured.
func (h *TokenHandler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "valid authentication required",
		})
		return
	}

	token, err := h.tokens.IssueToken(p)
	if errors.Is(err, service.ErrTokensDisabled) {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{
			Error:   "unavailable",
			Message: "bearer tokens are not enabled on this server",
		})
		return
	}
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, TokenResponse{Token: token, TokenType: "Bearer"})
}
