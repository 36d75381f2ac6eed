// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → transactions, ownership, typed failures
//	Repository (Data layer)  → reads/writes the database
//
// The services take repository interfaces, not *sqlstore.DB, so tests pass
// in-memory fakes (see user_test.go) and the HTTP layer never sees SQL.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/sakif/user-hobbies/internal/apperror"
	"github.com/sakif/user-hobbies/internal/model"
	"github.com/sakif/user-hobbies/internal/repository"
)

// UserService is the transactional boundary around the user store.
//
// Writes touch up to three tables (users, hobbies, user_hobby_association),
// so every write runs inside one transaction from tx. Reads go straight to
// users.
type UserService struct {
	users  repository.UserRepository
	tx     repository.Transactor
	logger *slog.Logger
}

// NewUserService creates a UserService.
func NewUserService(users repository.UserRepository, tx repository.Transactor, logger *slog.Logger) *UserService {
	return &UserService{
		users:  users,
		tx:     tx,
		logger: logger,
	}
}

// scopeFor turns an owner into a repository scope. An empty owner is the
// unrestricted scope used by imports.
func scopeFor(owner string) repository.Scope {
	if owner == "" {
		return repository.AnyOwner
	}
	return repository.OwnedBy(owner)
}

// GetByID returns the user with the given id if owner may see it.
// A missing user and a user owned by someone else both yield apperror.ErrNotFound.
func (s *UserService) GetByID(ctx context.Context, id int64, owner string) (*model.User, error) {
	user, err := s.users.GetByID(ctx, id, scopeFor(owner))
	if err != nil {
		return nil, fmt.Errorf("service/user: getting user %d: %w", id, err)
	}
	return user, nil
}

// Create stores a new user owned by user.Owner and returns its id.
// Any id in the payload is ignored; the store generates one.
func (s *UserService) Create(ctx context.Context, user *model.User) (int64, error) {
	user.ID = nil

	var id int64
	err := s.tx.WithinTx(ctx, func(ctx context.Context, stores repository.Stores) error {
		var err error
		id, err = stores.Users.Create(ctx, user)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("service/user: creating user: %w", err)
	}

	s.logger.Info("user created",
		slog.Int64("userID", id),
		slog.String("owner", user.Owner),
	)
	return id, nil
}

// DeleteByID deletes the user and its hobby links.
// Returns apperror.ErrNotFound when nothing visible to owner was deleted.
func (s *UserService) DeleteByID(ctx context.Context, id int64, owner string) error {
	var deleted int64
	err := s.tx.WithinTx(ctx, func(ctx context.Context, stores repository.Stores) error {
		var err error
		deleted, err = stores.Users.DeleteByID(ctx, id, scopeFor(owner))
		return err
	})
	if err != nil {
		return fmt.Errorf("service/user: deleting user %d: %w", id, err)
	}
	if deleted == 0 {
		return apperror.NotFound("user", strconv.FormatInt(id, 10))
	}

	s.logger.Info("user deleted",
		slog.Int64("userID", id),
		slog.String("owner", owner),
	)
	return nil
}

// Update replaces the fields and hobbies of an existing user, scoped to
// user.Owner.
//
// Errors:
//   - apperror.ErrValidation when user.ID is nil
//   - apperror.ErrNotFound when the user does not exist for this owner
//   - apperror.ErrConflict when user.Revision is stale
func (s *UserService) Update(ctx context.Context, user *model.User) error {
	if user.ID == nil {
		return apperror.ValidationFailed("userId", "userId is required for update")
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context, stores repository.Stores) error {
		return stores.Users.Update(ctx, user, scopeFor(user.Owner))
	})
	if err != nil {
		return fmt.Errorf("service/user: updating user %d: %w", *user.ID, err)
	}

	s.logger.Info("user updated",
		slog.Int64("userID", *user.ID),
		slog.String("owner", user.Owner),
		slog.String("revision", user.Revision),
	)
	return nil
}

// Import stores users with their given ids in one transaction. Either all of
// them are stored or none is. Used by cmd/seed to load fixtures.
func (s *UserService) Import(ctx context.Context, users []model.User) error {
	err := s.tx.WithinTx(ctx, func(ctx context.Context, stores repository.Stores) error {
		for i := range users {
			if _, err := stores.Users.CreateWithID(ctx, &users[i]); err != nil {
				return fmt.Errorf("importing user %d: %w", users[i].UserID(), err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("service/user: %w", err)
	}

	s.logger.Info("users imported", slog.Int("count", len(users)))
	return nil
}
