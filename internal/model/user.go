package model

import "time"

// Roles carried in the access token.
const (
	RoleUser      = "USER"
	RoleOrganizer = "ORGANIZER"
	RoleAdmin     = "ADMIN"
)

// User represents an application user record as stored in the
// `users` table.  The json tags are omitted because handlers build
// their own response shapes and never expose PasswordHash.
//
// Fields:
//  ID           – UUID primary key.
//  Name         – display name, may be empty.
//  Email        – unique, lower-cased email address.
//  PasswordHash – bcrypt hashed password.
//  Role         – USER, ORGANIZER or ADMIN.
//  CreatedAt    – timestamp of creation.
type User struct {
	ID           string    // users.id
	Name         string    // users.name
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	CreatedAt    time.Time // users.created_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  The plain
// token is not stored; only its SHA-256 hash.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    string     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
