// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data — similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// Role is the user's permission class. It is assigned at signup and never
// changes afterwards.
//
// WHY A NAMED STRING TYPE?
// A plain string would work, but a named type lets the compiler catch
// mistakes like passing a filename where a role is expected, and it gives
// the constants below a home. The underlying value is still the string
// stored in the database ("ops" / "client").
type Role string

const (
	// RoleOps users upload files.
	RoleOps Role = "ops"
	// RoleClient users list files and request download links.
	RoleClient Role = "client"
)

// Valid reports whether r is one of the two known roles.
func (r Role) Valid() bool {
	return r == RoleOps || r == RoleClient
}

// User represents a registered account.
//
// PasswordHash holds a bcrypt hash — never the plaintext password. The salt
// and cost are embedded in the hash string itself, so no extra columns are
// needed.
//
// VerificationToken is an opaque random string that exists only while the
// account is unverified. Verifying the email clears it to "" — a verified
// user never has a live verification token (the repository writes both
// fields in one UPDATE).
type User struct {
	ID                int64     `json:"id"`
	Email             string    `json:"email"`
	PasswordHash      string    `json:"-"` // never serialized
	Role              Role      `json:"role"`
	IsVerified        bool      `json:"is_verified"`
	VerificationToken string    `json:"-"`
	CreatedAt         time.Time `json:"created_at"`
}
