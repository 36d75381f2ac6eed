// Package repository declares the data-access contracts used by the service layer.
// Implementations live in sub-packages (see repository/sqlstore).
package repository

import (
	"context"

	"github.com/sakif/user-hobbies/internal/model"
)

// Scope restricts a user lookup, update or delete to the rows of one owner.
//
// The zero value (AnyOwner) matches every row. HTTP requests always build a
// scope from the authenticated principal with OwnedBy, so a record owned by
// someone else looks exactly like a record that does not exist.
type Scope struct {
	Owner string
}

// AnyOwner is the unrestricted scope used by imports and maintenance tools.
var AnyOwner = Scope{}

// OwnedBy returns a scope that only matches rows whose owner is the given principal.
func OwnedBy(owner string) Scope {
	return Scope{Owner: owner}
}

// Scoped reports whether the scope filters by owner.
func (s Scope) Scoped() bool {
	return s.Owner != ""
}

// HobbyRepository maps hobby names to stable ids.
type HobbyRepository interface {
	FindIDByName(ctx context.Context, name string) (int64, error)
	Create(ctx context.Context, name string) (int64, error)
	Ensure(ctx context.Context, name string) (int64, error)
}

// LinkRepository maintains the user ↔ hobby association rows.
type LinkRepository interface {
	Link(ctx context.Context, userID, hobbyID int64, position int) (int64, error)
	Unlink(ctx context.Context, userID, hobbyID int64) (int64, error)
	Reposition(ctx context.Context, userID, hobbyID int64, position int) (int64, error)
	UnlinkAll(ctx context.Context, userID int64) (int64, error)
	ListByUser(ctx context.Context, userID int64) ([]model.UserHobbyLink, error)
}

// UserRepository owns the user rows and keeps their hobby links consistent.
type UserRepository interface {
	GetByID(ctx context.Context, id int64, scope Scope) (*model.User, error)
	Create(ctx context.Context, user *model.User) (int64, error)
	CreateWithID(ctx context.Context, user *model.User) (int64, error)
	DeleteByID(ctx context.Context, id int64, scope Scope) (int64, error)
	Update(ctx context.Context, user *model.User, scope Scope) error
}

// AccountRepository stores HTTP Basic credentials.
type AccountRepository interface {
	GetAccount(ctx context.Context, username string) (*model.Account, error)
	CreateAccount(ctx context.Context, account *model.Account) error
}

// Stores is the set of repositories bound to one transaction.
type Stores struct {
	Users    UserRepository
	Accounts AccountRepository
}

// Transactor runs fn inside a single database transaction. The transaction is
// committed when fn returns nil and rolled back otherwise.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, stores Stores) error) error
}
