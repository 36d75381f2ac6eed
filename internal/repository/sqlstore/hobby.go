package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/sakif/user-hobbies/internal/apperror"
	"github.com/sakif/user-hobbies/internal/repository"
)

var _ repository.HobbyRepository = (*HobbyStore)(nil)

// HobbyStore maps hobby names to their ids.
//
// sqlx.ExtContext is satisfied by both *sqlx.DB and *sqlx.Tx, so the same
// store works on the pool and inside a transaction.
type HobbyStore struct {
	q sqlx.ExtContext
}

// NewHobbyStore binds a hobby store to a pool or transaction.
func NewHobbyStore(q sqlx.ExtContext) *HobbyStore {
	return &HobbyStore{q: q}
}

// FindIDByName returns the id of the hobby with exactly this name.
func (s *HobbyStore) FindIDByName(ctx context.Context, name string) (int64, error) {
	var id int64
	err := sqlx.GetContext(ctx, s.q, &id,
		s.q.Rebind(`SELECT hobby_id FROM hobbies WHERE hobby_name = ?`), name)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, apperror.NotFound("hobby", name)
	}
	if err != nil {
		return 0, mapError(opf("finding hobby %q", name), err)
	}
	return id, nil
}

// Create inserts a new hobby and returns its generated id.
//
// There is no existence check: callers look the name up first. Inserting a
// name twice fails on the UNIQUE constraint with apperror.ErrConstraint.
func (s *HobbyStore) Create(ctx context.Context, name string) (int64, error) {
	var id int64
	err := s.q.QueryRowxContext(ctx,
		s.q.Rebind(`INSERT INTO hobbies (hobby_name) VALUES (?) RETURNING hobby_id`), name,
	).Scan(&id)
	if err != nil {
		return 0, mapError(opf("creating hobby %q", name), err)
	}
	return id, nil
}

// Ensure returns the id of the hobby, inserting it when the name is new.
//
// Two transactions may both miss FindIDByName for the same new name. With
// ON CONFLICT DO NOTHING the later insert waits for the earlier one and then
// inserts nothing instead of failing on the UNIQUE constraint; the SELECT
// afterwards reads the committed row. Works on SQLite and Postgres alike.
func (s *HobbyStore) Ensure(ctx context.Context, name string) (int64, error) {
	_, err := s.q.ExecContext(ctx, s.q.Rebind(`
		INSERT INTO hobbies (hobby_name) VALUES (?)
		ON CONFLICT (hobby_name) DO NOTHING`), name)
	if err != nil {
		return 0, mapError(opf("ensuring hobby %q", name), err)
	}

	var id int64
	err = sqlx.GetContext(ctx, s.q, &id,
		s.q.Rebind(`SELECT hobby_id FROM hobbies WHERE hobby_name = ?`), name)
	if err != nil {
		return 0, mapError(opf("ensuring hobby %q", name), err)
	}
	return id, nil
}
