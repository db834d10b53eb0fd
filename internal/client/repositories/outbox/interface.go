// Package outbox persists local mutations that the server has not yet
// acknowledged. Items are kept in insertion order and leave the table only
// through Remove or Clear.
package outbox

import (
	"context"
	"encoding/json"

	"github.com/dmitrijs2005/suitewaste/internal/models"
)

type Repository interface {
	// Enqueue appends a mutation with a generated id and the current time.
	Enqueue(ctx context.Context, table string, action models.Action, payload json.RawMessage) (*models.OutboxItem, error)
	// Snapshot returns every queued item in insertion order.
	Snapshot(ctx context.Context) ([]models.OutboxItem, error)
	Count(ctx context.Context) (int, error)
	// Remove deletes exactly the given ids; items enqueued later survive.
	Remove(ctx context.Context, ids []string) error
	Clear(ctx context.Context) error
}
