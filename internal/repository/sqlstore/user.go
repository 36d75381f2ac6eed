package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/jmoiron/sqlx"
	"github.com/rs/xid"

	"github.com/sakif/user-hobbies/internal/apperror"
	"github.com/sakif/user-hobbies/internal/model"
	"github.com/sakif/user-hobbies/internal/repository"
)

var _ repository.UserRepository = (*UserStore)(nil)

// UserStore owns the users table and keeps the hobby links in step with each
// user's hobby string.
//
// A single write (Create, Update, DeleteByID) touches several tables. The store
// does not open transactions itself: run it through DB.WithinTx so a failure
// half-way leaves nothing behind.
type UserStore struct {
	q       sqlx.ExtContext
	hobbies repository.HobbyRepository
	links   repository.LinkRepository
	dialect dialect
}

// newUserStore binds a user store to a pool or transaction. Use DB.Users or
// DB.WithinTx to get a store for the configured driver.
func newUserStore(q sqlx.ExtContext, d dialect) *UserStore {
	return &UserStore{
		q:       q,
		hobbies: NewHobbyStore(q),
		links:   NewLinkStore(q),
		dialect: d,
	}
}

// scopeFilter builds the WHERE clause for a single user, restricted to the
// scope's owner when it has one.
func scopeFilter(id int64, scope repository.Scope) (string, []any) {
	if scope.Scoped() {
		return `user_id = ? AND owner = ?`, []any{id, scope.Owner}
	}
	return `user_id = ?`, []any{id}
}

// GetByID reads a user together with its hobby string.
//
// A row owned by someone other than the scope's owner is reported exactly
// like a missing row: apperror.ErrNotFound.
func (s *UserStore) GetByID(ctx context.Context, id int64, scope repository.Scope) (*model.User, error) {
	where, args := scopeFilter(id, scope)

	var u model.User
	err := sqlx.GetContext(ctx, s.q, &u, s.q.Rebind(`
		SELECT user_id, first_name, last_name, age, owner, revision, hobbies
		FROM user_with_hobbies
		WHERE `+where), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("user", strconv.FormatInt(id, 10))
	}
	if err != nil {
		return nil, mapError(opf("getting user %d", id), err)
	}
	return &u, nil
}

// Create inserts the user with a generated id, then links each hobby in the
// order it appears in the hobby string, creating hobbies that do not exist yet.
//
// On success user.ID and user.Revision are set.
func (s *UserStore) Create(ctx context.Context, user *model.User) (int64, error) {
	rev := xid.New().String()

	var id int64
	err := s.q.QueryRowxContext(ctx, s.q.Rebind(`
		INSERT INTO users (first_name, last_name, age, owner, revision)
		VALUES (?, ?, ?, ?, ?)
		RETURNING user_id`),
		user.FirstName, user.LastName, user.Age, user.Owner, rev,
	).Scan(&id)
	if err != nil {
		return 0, mapError("sqlstore: inserting user", err)
	}

	if err := s.linkHobbies(ctx, id, model.ParseHobbies(user.Hobbies)); err != nil {
		return 0, err
	}

	user.ID = model.Int64Ptr(id)
	user.Revision = rev
	return id, nil
}

// CreateWithID is Create with a caller-supplied id. It is used to load
// fixtures whose ids must stay stable.
func (s *UserStore) CreateWithID(ctx context.Context, user *model.User) (int64, error) {
	if user.ID == nil {
		return 0, apperror.ValidationFailed("userId", "userId is required")
	}
	id := *user.ID
	rev := xid.New().String()

	_, err := s.q.ExecContext(ctx, s.q.Rebind(`
		INSERT INTO users (user_id, first_name, last_name, age, owner, revision)
		VALUES (?, ?, ?, ?, ?, ?)`),
		id, user.FirstName, user.LastName, user.Age, user.Owner, rev,
	)
	if err != nil {
		return 0, mapError(opf("inserting user %d", id), err)
	}

	// Postgres identity columns do not notice explicit ids; move the sequence
	// past them so the next generated id does not collide.
	if s.dialect.syncUserSequence != "" {
		if _, err := s.q.ExecContext(ctx, s.dialect.syncUserSequence); err != nil {
			return 0, mapError("sqlstore: syncing user id sequence", err)
		}
	}

	if err := s.linkHobbies(ctx, id, model.ParseHobbies(user.Hobbies)); err != nil {
		return 0, err
	}

	user.Revision = rev
	return id, nil
}

// DeleteByID deletes the user row and, only if a row was deleted, its hobby
// links. Hobby rows themselves are never deleted. Returns the number of user
// rows deleted (0 or 1).
func (s *UserStore) DeleteByID(ctx context.Context, id int64, scope repository.Scope) (int64, error) {
	where, args := scopeFilter(id, scope)

	result, err := s.q.ExecContext(ctx, s.q.Rebind(`DELETE FROM users WHERE `+where), args...)
	if err != nil {
		return 0, mapError(opf("deleting user %d", id), err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, mapError(opf("deleting user %d", id), err)
	}
	if n == 0 {
		return 0, nil
	}

	// The foreign key cascades on both dialects; this also covers databases
	// where SQLite foreign key enforcement is switched off.
	if _, err := s.links.UnlinkAll(ctx, id); err != nil {
		return 0, err
	}
	return n, nil
}

// Update replaces the user's fields and hobby links in place.
//
// HOW IT WORKS:
//  1. Read the stored revision. No row (or someone else's row) means there is
//     nothing to update: apperror.UpdateTargetMissing.
//  2. If the caller sent a revision and it is not the stored one, somebody
//     else updated the user in between: apperror.StaleRevision.
//  3. UPDATE ... WHERE revision = <stored>. Zero rows affected means a
//     concurrent writer got there first, also StaleRevision.
//  4. Diff the hobby links: link new hobbies, unlink dropped ones, and
//     reposition the ones that moved inside the string.
//
// An empty user.Revision skips the check in step 2 (last write wins).
// On success user.Revision holds the new revision and user.Owner the stored owner.
func (s *UserStore) Update(ctx context.Context, user *model.User, scope repository.Scope) error {
	if user.ID == nil {
		return apperror.ValidationFailed("userId", "userId is required for update")
	}
	id := *user.ID
	idStr := strconv.FormatInt(id, 10)
	where, args := scopeFilter(id, scope)

	var current struct {
		Owner    string `db:"owner"`
		Revision string `db:"revision"`
	}
	err := sqlx.GetContext(ctx, s.q, &current,
		s.q.Rebind(`SELECT owner, revision FROM users WHERE `+where), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return apperror.UpdateTargetMissing("user", idStr)
	}
	if err != nil {
		return mapError(opf("reading user %d", id), err)
	}

	if user.Revision != "" && user.Revision != current.Revision {
		return apperror.StaleRevision("user", idStr)
	}

	next := xid.New().String()
	updateArgs := append([]any{user.FirstName, user.LastName, user.Age, next}, args...)
	updateArgs = append(updateArgs, current.Revision)

	result, err := s.q.ExecContext(ctx, s.q.Rebind(`
		UPDATE users
		SET first_name = ?, last_name = ?, age = ?, revision = ?
		WHERE `+where+` AND revision = ?`), updateArgs...)
	if err != nil {
		return mapError(opf("updating user %d", id), err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return mapError(opf("updating user %d", id), err)
	}
	if n == 0 {
		return apperror.StaleRevision("user", idStr)
	}

	if err := s.syncHobbies(ctx, id, model.ParseHobbies(user.Hobbies)); err != nil {
		return err
	}

	user.Owner = current.Owner
	user.Revision = next
	return nil
}

// resolveHobby returns the id for name, creating the hobby when it is new.
// The insert goes through Ensure, so a concurrent writer adding the same
// name between the lookup and the insert is not an error.
func (s *UserStore) resolveHobby(ctx context.Context, name string) (int64, error) {
	id, err := s.hobbies.FindIDByName(ctx, name)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return 0, err
	}
	return s.hobbies.Ensure(ctx, name)
}

func (s *UserStore) linkHobbies(ctx context.Context, userID int64, names []string) error {
	for pos, name := range names {
		hobbyID, err := s.resolveHobby(ctx, name)
		if err != nil {
			return err
		}
		if _, err := s.links.Link(ctx, userID, hobbyID, pos); err != nil {
			return err
		}
	}
	return nil
}

// syncHobbies makes the user's links equal to names, touching only the rows
// that differ.
func (s *UserStore) syncHobbies(ctx context.Context, userID int64, names []string) error {
	existing, err := s.links.ListByUser(ctx, userID)
	if err != nil {
		return err
	}

	linked := make(map[int64]int, len(existing)) // hobby id → position
	for _, l := range existing {
		linked[l.HobbyID] = l.Position
	}

	wanted := make(map[int64]struct{}, len(names))
	for pos, name := range names {
		hobbyID, err := s.resolveHobby(ctx, name)
		if err != nil {
			return err
		}
		wanted[hobbyID] = struct{}{}

		oldPos, ok := linked[hobbyID]
		switch {
		case !ok:
			_, err = s.links.Link(ctx, userID, hobbyID, pos)
		case oldPos != pos:
			_, err = s.links.Reposition(ctx, userID, hobbyID, pos)
		}
		if err != nil {
			return err
		}
	}

	for _, l := range existing {
		if _, keep := wanted[l.HobbyID]; keep {
			continue
		}
		if _, err := s.links.Unlink(ctx, userID, l.HobbyID); err != nil {
			return err
		}
	}
	return nil
}
