package auth

import (
	"context"

	"shopledger/internal/core/id"
)

// UserRepository persists users.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, userID id.ID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Exists(ctx context.Context, email string) (bool, error)

	// UpdateLoginState saves lockout counters and last login time.
	UpdateLoginState(ctx context.Context, u *User) error
}
