package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sakif/user-hobbies/internal/apperror"
	"github.com/sakif/user-hobbies/internal/model"
	"github.com/sakif/user-hobbies/internal/repository"
)

var _ repository.AccountRepository = (*AccountStore)(nil)

// AccountStore persists the credentials checked by HTTP Basic authentication.
type AccountStore struct {
	q sqlx.ExtContext
}

// NewAccountStore binds an account store to a pool or transaction.
func NewAccountStore(q sqlx.ExtContext) *AccountStore {
	return &AccountStore{q: q}
}

// GetAccount loads an account by username.
func (s *AccountStore) GetAccount(ctx context.Context, username string) (*model.Account, error) {
	var a model.Account
	err := sqlx.GetContext(ctx, s.q, &a, s.q.Rebind(`
		SELECT username, password_hash, role, created_at
		FROM accounts
		WHERE username = ?`), username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("account", username)
	}
	if err != nil {
		return nil, mapError(opf("getting account %q", username), err)
	}
	return &a, nil
}

// CreateAccount inserts a new account. A duplicate username fails with
// apperror.ErrConstraint. CreatedAt is filled in when zero.
func (s *AccountStore) CreateAccount(ctx context.Context, account *model.Account) error {
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}

	_, err := s.q.ExecContext(ctx, s.q.Rebind(`
		INSERT INTO accounts (username, password_hash, role, created_at)
		VALUES (?, ?, ?, ?)`),
		account.Username, account.PasswordHash, account.Role, account.CreatedAt,
	)
	if err != nil {
		return mapError(opf("creating account %q", account.Username), err)
	}
	return nil
}
