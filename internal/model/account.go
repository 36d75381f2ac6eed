package model

import "time"

// RoleUser is the role required to call the /user endpoints.
const RoleUser = "USER"

// Account is a login credential for HTTP Basic authentication.
//
// PasswordHash holds the full bcrypt output ($2a$...), never the plaintext.
// The json:"-" tag keeps it out of every API response even if an Account is
// accidentally written with writeJSON.
type Account struct {
	Username     string    `json:"username"  db:"username"`
	PasswordHash string    `json:"-"         db:"password_hash"`
	Role         string    `json:"role"      db:"role"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}
