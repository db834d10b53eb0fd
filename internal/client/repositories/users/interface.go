// Package users persists local accounts in the users table.
package users

import (
	"context"

	"github.com/dmitrijs2005/suitewaste/internal/client/models"
)

// Repository describes the user lookups needed by sign-in and seeding.
type Repository interface {
	// Add inserts u. A duplicate email surfaces as a unique violation
	// (see dbx.IsUniqueViolation).
	Add(ctx context.Context, u *models.User) error

	// BulkAdd inserts every user in one transaction; any failure rolls back all.
	BulkAdd(ctx context.Context, us []*models.User) error

	// Get returns the user by id, or nil when absent.
	Get(ctx context.Context, id string) (*models.User, error)

	// GetByEmail matches the email case-insensitively, nil when absent.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// FindByRole returns the first user holding role ordered by id, nil when absent.
	FindByRole(ctx context.Context, role string) (*models.User, error)

	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}
