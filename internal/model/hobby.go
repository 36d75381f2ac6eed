package model

import "strings"

// HobbySeparator is the delimiter used in the external hobby string.
const HobbySeparator = ", "

// UserHobbyLink is one row of the user_hobby_association join table. Hobby
// names are shared by all users and hobby rows are never deleted, only unlinked.
// Position keeps the order in which the hobby appeared in the user's hobby string.
type UserHobbyLink struct {
	UserID   int64 `db:"user_id"`
	HobbyID  int64 `db:"hobby_id"`
	Position int   `db:"position"`
}

// ParseHobbies splits a hobby string on ", ".
//
// An empty string yields no hobbies, and a name repeated in the same string
// is kept only once (at its first position) because the join table is keyed
// by (user_id, hobby_id).
func ParseHobbies(s string) []string {
	if s == "" {
		return nil
	}

	parts := strings.Split(s, HobbySeparator)
	names := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, name := range parts {
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

// JoinHobbies is the inverse of ParseHobbies.
func JoinHobbies(names []string) string {
	return strings.Join(names, HobbySeparator)
}
