// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/JesseOrSomething/ZenCode/internal/model"
	"github.com/gofrs/uuid/v5"
)

// UserRepository provides CRUD access for user accounts.
type UserRepository interface {
	// Create inserts a new user; ErrAlreadyExists on a taken email.
	Create(ctx context.Context, u *model.User) error
	// GetByID loads a user by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	// GetByEmail loads a user by email.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// UpdatePlan persists a plan change together with billing references.
	UpdatePlan(ctx context.Context, u *model.User) error
}
