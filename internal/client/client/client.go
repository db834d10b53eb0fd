package client

import (
	"context"
	"encoding/json"

	"github.com/dmitrijs2005/suitewaste/internal/models"
)

// Client is the remote API used by the sync engine. Entity names are the
// REST path segments (tasks, payments, compliancelogs, ...).
type Client interface {
	Ping(ctx context.Context) error
	Create(ctx context.Context, entity string, payload json.RawMessage) (json.RawMessage, error)
	Patch(ctx context.Context, entity, id string, partial json.RawMessage) (json.RawMessage, error)
	Delete(ctx context.Context, entity, id string) (bool, error)
	List(ctx context.Context, entity, cursor string, limit int) (*models.Page[json.RawMessage], error)
	Sync(ctx context.Context, items []models.OutboxItem) (*models.SyncResult, error)
	Close() error
}
