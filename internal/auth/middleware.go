package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/user-hobbies/internal/apperror"
	"github.com/sakif/user-hobbies/internal/middleware"
)

// Principal is the authenticated caller. Username doubles as the owner of
// every user record the caller creates.
type Principal struct {
	Username string
	Role     string
}

// Authenticator checks credentials. service.AccountService implements it; the
// interface lives here so this package does not import the service layer.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (Principal, error)
	ValidateToken(token string) (Principal, error)
}

// contextKey is an unexported type used for context keys in this package, so
// no other package can read or overwrite the principal by accident.
type contextKey string

const principalKey contextKey = "principal"

// DefaultRealm is sent in the WWW-Authenticate challenge when none is configured.
const DefaultRealm = "user-hobbies"

// Guard builds authentication middleware around an Authenticator.
type Guard struct {
	authn  Authenticator
	realm  string
	logger *slog.Logger
}

// NewGuard creates a Guard. An empty realm means DefaultRealm.
func NewGuard(authn Authenticator, realm string, logger *slog.Logger) *Guard {
	if realm == "" {
		realm = DefaultRealm
	}
	return &Guard{authn: authn, realm: realm, logger: logger}
}

// RequireRole accepts Basic or Bearer credentials and lets the request through
// only when the caller has the given role.
//
//	no/invalid credentials → 401 with a WWW-Authenticate: Basic challenge
//	valid, wrong role      → 403
//
// On success the principal is stored in the request context; read it with
// PrincipalFromContext.
func (g *Guard) RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := g.identify(r, true)
			if err != nil {
				g.reject(w, r, err)
				return
			}
			middleware.SetPrincipal(r.Context(), p.Username)
			if p.Role != role {
				g.reject(w, r, apperror.Forbidden(fmt.Sprintf("role %s required", role)))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// RequireBasic only accepts Basic credentials. It guards POST /auth/token,
// where a bearer token must not be usable to mint a fresh one.
func (g *Guard) RequireBasic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := g.identify(r, false)
		if err != nil {
			g.reject(w, r, err)
			return
		}
		middleware.SetPrincipal(r.Context(), p.Username)
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// identify reads the Authorization header and checks the credentials.
func (g *Guard) identify(r *http.Request, allowBearer bool) (Principal, error) {
	if username, password, ok := r.BasicAuth(); ok {
		return g.authn.Authenticate(r.Context(), username, password)
	}

	if allowBearer {
		header := r.Header.Get("Authorization")
		if token, ok := strings.CutPrefix(header, "Bearer "); ok && token != "" {
			p, err := g.authn.ValidateToken(token)
			if err != nil {
				return Principal{}, apperror.Unauthorized()
			}
			return p, nil
		}
	}

	return Principal{}, apperror.Unauthorized()
}

// reject answers a request the guard does not let through.
//
//	apperror.ErrUnauthorized → 401 + WWW-Authenticate challenge
//	apperror.ErrForbidden    → 403 with the error's message
//	anything else            → 500, logged
func (g *Guard) reject(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, apperror.ErrUnauthorized) {
		w.Header().Set("WWW-Authenticate", fmt.Sprintf(`Basic realm=%q`, g.realm))
		writeAuthError(w, http.StatusUnauthorized, "unauthorized", "valid authentication required")
		return
	}

	var appErr *apperror.AppError
	if errors.Is(err, apperror.ErrForbidden) && errors.As(err, &appErr) {
		writeAuthError(w, http.StatusForbidden, "forbidden", appErr.Message)
		return
	}

	// The credentials could not be checked at all (e.g. the database is down).
	g.logger.Error("authentication failed",
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	writeAuthError(w, http.StatusInternalServerError, "internal_error", "an unexpected error occurred")
}

// authError has the same JSON shape as handler.ErrorResponse. It is declared
// here because handler imports this package.
type authError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeAuthError writes the same JSON error shape the handlers use.
func writeAuthError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(authError{Error: code, Message: message})
}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the caller stored by the middleware.
// ok is false for requests that did not pass through it.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok && p.Username != ""
}
