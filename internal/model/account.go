package model

import "time"

// Account represents a row in the `accounts` table.  PasswordHash never leaves
// the server; DeletedAt marks a soft-deleted account that is excluded from
// every query but kept for audit.
type Account struct {
	ID           uint64     `json:"id"`         // accounts.id
	Email        string     `json:"email"`      // accounts.email, unique among live accounts
	Name         string     `json:"name"`       // accounts.name
	PasswordHash string     `json:"-"`          // accounts.password_hash (bcrypt)
	CreatedAt    time.Time  `json:"created_at"` // accounts.created_at
	UpdatedAt    time.Time  `json:"updated_at"` // accounts.updated_at
	DeletedAt    *time.Time `json:"-"`          // accounts.deleted_at (nullable)
}
