// Package model defines the data structures used throughout the application.
package model

import "time"

// Roles a profile can carry. Anything other than RoleAdmin is treated as a
// standard account.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User is the profile row of an authenticated principal (the `users` table).
//
// The ID is the same string as the Identity that owns it: the profile is
// created right after the identity during registration and looked up by that
// ID whenever a session is resolved.
//
// Phone and Img are pointers because both columns are nullable and the JSON
// contract returns null for them rather than an empty string.
type User struct {
	ID        string    `json:"id"         db:"id"`
	Name      string    `json:"name"       db:"name"`
	Email     string    `json:"email"      db:"email"`
	Phone     *string   `json:"phone"      db:"phone"`
	Img       *string   `json:"img"        db:"img"` // avatar storage path
	Role      string    `json:"role"       db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsAdmin reports whether the profile carries the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Identity is the authentication principal behind a profile (the
// `identities` table). Password identities carry a bcrypt hash; GitHub
// identities carry the GitHub user ID and an empty hash.
type Identity struct {
	ID           string    `json:"id"        db:"id"`
	Email        string    `json:"email"     db:"email"`
	PasswordHash string    `json:"-"         db:"password_hash"`
	GitHubID     *int64    `json:"githubId"  db:"github_id"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}
