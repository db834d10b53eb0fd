// Package entities stores indexed entity records for the server. Every
// record lives under an index name (one per entity kind) and is listed in
// insertion order through a sequence-numbered index.
package entities

import (
	"context"
	"encoding/json"

	"github.com/dmitrijs2005/suitewaste/internal/server/models"
)

// RepairResult reports what Repair changed.
type RepairResult struct {
	// Dropped index entries had no record.
	Dropped int
	// Added records had no index entry.
	Added int
}

// Backend keeps records and their listing index in agreement: Put adds the
// record before the index entry, Delete removes the index entry before the
// record, and both run atomically where the storage allows it.
type Backend interface {
	// Put creates or overwrites the record. A new id is appended to the index;
	// an overwritten one keeps its position.
	Put(ctx context.Context, index, id string, data json.RawMessage) error
	// Get returns nil, nil when the record does not exist.
	Get(ctx context.Context, index, id string) (json.RawMessage, error)
	Delete(ctx context.Context, index, id string) (bool, error)
	// List returns up to limit records with a sequence number above after,
	// in index order. Index entries without a record are skipped.
	List(ctx context.Context, index string, after int64, limit int) ([]models.Record, error)
	IndexCount(ctx context.Context, index string) (int, error)
	// Repair drops index entries without a record and indexes records that
	// are missing from the index.
	Repair(ctx context.Context, index string) (RepairResult, error)
	// WithTx runs fn with a backend whose calls form one unit of work.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Backend) error) error
}
