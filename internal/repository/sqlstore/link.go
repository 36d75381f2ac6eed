package sqlstore

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/sakif/user-hobbies/internal/model"
	"github.com/sakif/user-hobbies/internal/repository"
)

var _ repository.LinkRepository = (*LinkStore)(nil)

// LinkStore maintains the user_hobby_association join table.
// Every write returns the number of rows it affected.
type LinkStore struct {
	q sqlx.ExtContext
}

// NewLinkStore binds a link store to a pool or transaction.
func NewLinkStore(q sqlx.ExtContext) *LinkStore {
	return &LinkStore{q: q}
}

// Link associates a hobby with a user at the given position.
func (s *LinkStore) Link(ctx context.Context, userID, hobbyID int64, position int) (int64, error) {
	return s.exec(ctx, opf("linking hobby %d to user %d", hobbyID, userID),
		`INSERT INTO user_hobby_association (user_id, hobby_id, position) VALUES (?, ?, ?)`,
		userID, hobbyID, position)
}

// Unlink removes one association. Returns 0 when it did not exist.
func (s *LinkStore) Unlink(ctx context.Context, userID, hobbyID int64) (int64, error) {
	return s.exec(ctx, opf("unlinking hobby %d from user %d", hobbyID, userID),
		`DELETE FROM user_hobby_association WHERE user_id = ? AND hobby_id = ?`,
		userID, hobbyID)
}

// Reposition moves an existing association to a new position.
func (s *LinkStore) Reposition(ctx context.Context, userID, hobbyID int64, position int) (int64, error) {
	return s.exec(ctx, opf("repositioning hobby %d for user %d", hobbyID, userID),
		`UPDATE user_hobby_association SET position = ? WHERE user_id = ? AND hobby_id = ?`,
		position, userID, hobbyID)
}

// UnlinkAll removes every association of the user. Calling it for a user with
// no links is not an error; it returns 0.
func (s *LinkStore) UnlinkAll(ctx context.Context, userID int64) (int64, error) {
	return s.exec(ctx, opf("unlinking hobbies of user %d", userID),
		`DELETE FROM user_hobby_association WHERE user_id = ?`,
		userID)
}

// ListByUser returns the user's links ordered by position.
func (s *LinkStore) ListByUser(ctx context.Context, userID int64) ([]model.UserHobbyLink, error) {
	links := []model.UserHobbyLink{}
	err := sqlx.SelectContext(ctx, s.q, &links, s.q.Rebind(`
		SELECT user_id, hobby_id, position
		FROM user_hobby_association
		WHERE user_id = ?
		ORDER BY position, hobby_id`), userID)
	if err != nil {
		return nil, mapError(opf("listing hobbies of user %d", userID), err)
	}
	return links, nil
}

func (s *LinkStore) exec(ctx context.Context, op, query string, args ...any) (int64, error) {
	result, err := s.q.ExecContext(ctx, s.q.Rebind(query), args...)
	if err != nil {
		return 0, mapError(op, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, mapError(op, err)
	}
	return n, nil
}
