package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/user-hobbies/internal/apperror"
	"github.com/sakif/user-hobbies/internal/auth"
	"github.com/sakif/user-hobbies/internal/model"
	"github.com/sakif/user-hobbies/internal/repository"
)

// ErrTokensDisabled is returned by IssueToken when no JWT secret is configured.
var ErrTokensDisabled = errors.New("service/account: bearer tokens are not configured")

// Compile-time check: the auth middleware authenticates through AccountService.
var _ auth.Authenticator = (*AccountService)(nil)

// AccountService handles the credentials behind HTTP Basic and bearer auth.
//
//	Guard (middleware) → AccountService → AccountRepository (DB)
//	                                    ↘ PasswordService (bcrypt)
//	                                    ↘ TokenService (JWT, optional)
type AccountService struct {
	accounts  repository.AccountRepository
	passwords *auth.PasswordService
	tokens    *auth.TokenService
	logger    *slog.Logger
}

// NewAccountService creates an AccountService. tokens may be nil, which
// disables bearer tokens: IssueToken fails with ErrTokensDisabled and every
// token is rejected.
func NewAccountService(
	accounts repository.AccountRepository,
	passwords *auth.PasswordService,
	tokens *auth.TokenService,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		accounts:  accounts,
		passwords: passwords,
		tokens:    tokens,
		logger:    logger,
	}
}

// Authenticate checks a username/password pair.
//
// An unknown username and a wrong password give the same
// apperror.ErrUnauthorized, so callers cannot discover which accounts exist.
// Other errors mean the check itself failed (database down, corrupt hash).
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (auth.Principal, error) {
	account, err := s.accounts.GetAccount(ctx, username)
	if errors.Is(err, apperror.ErrNotFound) {
		return auth.Principal{}, apperror.Unauthorized()
	}
	if err != nil {
		return auth.Principal{}, fmt.Errorf("service/account: loading %q: %w", username, err)
	}

	if err := s.passwords.Verify(account.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return auth.Principal{}, apperror.Unauthorized()
		}
		return auth.Principal{}, fmt.Errorf("service/account: verifying %q: %w", username, err)
	}

	return auth.Principal{Username: account.Username, Role: account.Role}, nil
}

// Register creates an account. An empty role means model.RoleUser.
//
// Usernames may not contain ':' because HTTP Basic uses it to separate the
// username from the password.
func (s *AccountService) Register(ctx context.Context, username, password, role string) error {
	if username == "" {
		return apperror.ValidationFailed("username", "username is required")
	}
	if strings.Contains(username, ":") {
		return apperror.ValidationFailed("username", "username must not contain ':'")
	}
	if password == "" {
		return apperror.ValidationFailed("password", "password is required")
	}
	if role == "" {
		role = model.RoleUser
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return apperror.ValidationFailed("password", err.Error())
	}

	err = s.accounts.CreateAccount(ctx, &model.Account{
		Username:     username,
		PasswordHash: hash,
		Role:         role,
	})
	if errors.Is(err, apperror.ErrConstraint) {
		return apperror.Conflict("account", username)
	}
	if err != nil {
		return fmt.Errorf("service/account: registering %q: %w", username, err)
	}

	s.logger.Info("account registered",
		slog.String("username", username),
		slog.String("role", role),
	)
	return nil
}

// IssueToken signs a bearer token for an already authenticated principal.
func (s *AccountService) IssueToken(p auth.Principal) (string, error) {
	if s.tokens == nil {
		return "", ErrTokensDisabled
	}

	token, err := s.tokens.Generate(p)
	if err != nil {
		return "", fmt.Errorf("service/account: issuing token for %q: %w", p.Username, err)
	}

	s.logger.Info("token issued", slog.String("username", p.Username))
	return token, nil
}

// ValidateToken returns the principal a bearer token was issued to.
func (s *AccountService) ValidateToken(token string) (auth.Principal, error) {
	if s.tokens == nil {
		return auth.Principal{}, apperror.Unauthorized()
	}

	p, err := s.tokens.Validate(token)
	if err != nil {
		s.logger.Debug("bearer token rejected", slog.String("error", err.Error()))
		return auth.Principal{}, apperror.Unauthorized()
	}
	return p, nil
}
