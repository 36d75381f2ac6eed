// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data. They are similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

// User is a person record together with its hobbies.
//
// WHY ID *int64?
// A user that has not been persisted yet has no id. The JSON for a create request
// usually sends "userId": null (or omits it), and a pointer lets us tell "no id"
// apart from a real id of 0. Once the store inserts the row, ID is set.
//
// WHY Hobbies string (not []string)?
// The API exchanges hobbies as a single comma-and-space-joined string, e.g.
// "biking, running, gaming". The database stores them normalised across three
// tables; ParseHobbies / JoinHobbies convert between the two shapes.
//
// Owner is the username of the account that created the record. Handlers always
// overwrite it with the authenticated principal, so clients cannot spoof it.
//
// Revision is an opaque token that changes on every write. Sending it back on
// update lets the store detect that someone else changed the row in between.
type User struct {
	ID        *int64 `json:"userId"             db:"user_id"`
	FirstName string `json:"firstName"          db:"first_name"`
	LastName  string `json:"lastName"           db:"last_name"`
	Age       int    `json:"age"                db:"age"`
	Hobbies   string `json:"hobbies"            db:"hobbies"`
	Owner     string `json:"owner,omitempty"    db:"owner"`
	Revision  string `json:"revision,omitempty" db:"revision"`
}

// UserID returns the id or 0 when the user has not been persisted.
func (u *User) UserID() int64 {
	if u == nil || u.ID == nil {
		return 0
	}
	return *u.ID
}

// Int64Ptr is a small helper for building users with a known id in tests and fixtures.
func Int64Ptr(v int64) *int64 {
	return &v
}
