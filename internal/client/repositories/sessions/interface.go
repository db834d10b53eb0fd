// Package sessions persists sign-in sessions. A client keeps at most one.
package sessions

import (
	"context"

	"github.com/dmitrijs2005/suitewaste/internal/client/models"
)

type Repository interface {
	Add(ctx context.Context, s *models.Session) error
	// Latest returns the most recently created session, nil when none exists.
	Latest(ctx context.Context) (*models.Session, error)
	GetByToken(ctx context.Context, token string) (*models.Session, error)
	DeleteByToken(ctx context.Context, token string) error
	DeleteAll(ctx context.Context) error
	Count(ctx context.Context) (int, error)
}
