package sqlstore

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/user-hobbies/internal/apperror"
	"github.com/sakif/user-hobbies/internal/model"
)

func TestHobbyCreateAndFind(t *testing.T) {
	db := newTestDB(t)
	hobbies := db.Hobbies()
	ctx := context.Background()

	id, err := hobbies.Create(ctx, "biking")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if id <= 0 {
		t.Fatalf("Create() id = %d, want > 0", id)
	}

	got, err := hobbies.FindIDByName(ctx, "biking")
	if err != nil {
		t.Fatalf("FindIDByName() error = %v", err)
	}
	if got != id {
		t.Errorf("FindIDByName() = %d, want %d", got, id)
	}
}

func TestHobbyFindIDByName_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.Hobbies().FindIDByName(context.Background(), "knitting")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("FindIDByName() error = %v, want ErrNotFound", err)
	}
}

func TestHobbyFindIDByName_ExactMatchOnly(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if _, err := db.Hobbies().Create(ctx, "watching tv"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	for _, name := range []string{"watching", "Watching TV", "watching tv "} {
		if _, err := db.Hobbies().FindIDByName(ctx, name); !errors.Is(err, apperror.ErrNotFound) {
			t.Errorf("FindIDByName(%q) error = %v, want ErrNotFound", name, err)
		}
	}
}

func TestHobbyCreate_DuplicateName(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if _, err := db.Hobbies().Create(ctx, "gaming"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	_, err := db.Hobbies().Create(ctx, "gaming")
	if !errors.Is(err, apperror.ErrConstraint) {
		t.Fatalf("second Create() error = %v, want ErrConstraint", err)
	}

	// The driver error is kept as the cause.
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Cause == nil {
		t.Errorf("error should carry the driver cause, got %#v", err)
	}
}

func TestHobbyEnsure(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	id, err := db.Hobbies().Ensure(ctx, "chess")
	if err != nil {
		t.Fatalf("Ensure() on a new name error = %v", err)
	}

	again, err := db.Hobbies().Ensure(ctx, "chess")
	if err != nil {
		t.Fatalf("Ensure() on an existing name error = %v", err)
	}
	if again != id {
		t.Errorf("Ensure() = %d, want the existing id %d", again, id)
	}
	if n := countRows(t, db, "hobbies"); n != 1 {
		t.Errorf("hobbies rows = %d, want 1", n)
	}
}

// staleLookup misses every lookup, like a transaction that ran FindIDByName
// just before another one committed the same hobby.
type staleLookup struct {
	*HobbyStore
}

func (staleLookup) FindIDByName(context.Context, string) (int64, error) {
	return 0, apperror.NotFound("hobby", "stale")
}

func TestUserCreate_HobbyAddedConcurrently(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	existing, err := db.Hobbies().Create(ctx, "anime")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	users := db.Users()
	users.hobbies = staleLookup{db.Hobbies()}

	user := &model.User{FirstName: "Thomas", Hobbies: "anime, legos", Owner: "btriggiani"}
	if _, err := users.Create(ctx, user); err != nil {
		t.Fatalf("Create() with a hobby inserted meanwhile error = %v", err)
	}

	links, err := db.Links().ListByUser(ctx, *user.ID)
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if len(links) != 2 || links[0].HobbyID != existing {
		t.Errorf("links = %+v, want anime (id %d) first", links, existing)
	}
	if n := countRows(t, db, "hobbies"); n != 2 {
		t.Errorf("hobbies rows = %d, want 2", n)
	}
}
