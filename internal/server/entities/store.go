// Package entities implements the remote entity store: one indexed
// collection per entity kind over a shared storage backend, with demo seed
// data injected at construction.
package entities

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/dmitrijs2005/suitewaste/internal/common"
	"github.com/dmitrijs2005/suitewaste/internal/models"
	servermodels "github.com/dmitrijs2005/suitewaste/internal/server/models"
	entityrepo "github.com/dmitrijs2005/suitewaste/internal/server/repositories/entities"
	"github.com/google/uuid"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Store is the collection of one entity kind. Records are JSON objects keyed
// by their "id" field.
type Store[T any] struct {
	index   string
	backend entityrepo.Backend
	seed    []T

	seedMu   *sync.Mutex
	seedDone *bool
}

func NewStore[T any](index string, backend entityrepo.Backend, seed []T) *Store[T] {
	return &Store[T]{
		index:    index,
		backend:  backend,
		seed:     seed,
		seedMu:   &sync.Mutex{},
		seedDone: new(bool),
	}
}

// Name returns the index name, which is also the REST path segment.
func (s *Store[T]) Name() string {
	return s.index
}

// bound returns a copy of s that runs against tx.
func (s *Store[T]) bound(tx entityrepo.Backend) *Store[T] {
	c := *s
	c.backend = tx
	return &c
}

func (s *Store[T]) withTx(ctx context.Context, fn func(ctx context.Context, st *Store[T]) error) error {
	return s.backend.WithTx(ctx, func(ctx context.Context, tx entityrepo.Backend) error {
		return fn(ctx, s.bound(tx))
	})
}

// ParseCursor validates a listing cursor. The empty cursor starts from the
// beginning.
func ParseCursor(cursor string) (int64, error) {
	if cursor == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(cursor, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: invalid cursor %q", common.ErrorValidation, cursor)
	}
	return n, nil
}

// ClampLimit applies the default and maximum page sizes.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

func (s *Store[T]) listRecords(ctx context.Context, cursor string, limit int) ([]servermodels.Record, *string, error) {
	after, err := ParseCursor(cursor)
	if err != nil {
		return nil, nil, err
	}
	limit = ClampLimit(limit)

	recs, err := s.backend.List(ctx, s.index, after, limit+1)
	if err != nil {
		return nil, nil, err
	}

	var next *string
	if len(recs) > limit {
		recs = recs[:limit]
		n := strconv.FormatInt(recs[limit-1].Seq, 10)
		next = &n
	}

	return recs, next, nil
}

// List returns one page in insertion order. The returned Next cursor is nil
// on the last page.
func (s *Store[T]) List(ctx context.Context, cursor string, limit int) (*models.Page[T], error) {
	recs, next, err := s.listRecords(ctx, cursor, limit)
	if err != nil {
		return nil, err
	}
	page := &models.Page[T]{Items: make([]T, 0, len(recs)), Next: next}
	for _, r := range recs {
		var v T
		if err := json.Unmarshal(r.Data, &v); err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", s.index, r.ID, err)
		}
		page.Items = append(page.Items, v)
	}
	return page, nil
}

// ListJSON is List without decoding the records.
func (s *Store[T]) ListJSON(ctx context.Context, cursor string, limit int) (*models.Page[json.RawMessage], error) {
	recs, next, err := s.listRecords(ctx, cursor, limit)
	if err != nil {
		return nil, err
	}
	page := &models.Page[json.RawMessage]{Items: make([]json.RawMessage, 0, len(recs)), Next: next}
	for _, r := range recs {
		page.Items = append(page.Items, r.Data)
	}
	return page, nil
}

// normalize encodes v as a JSON object and makes sure it has an id.
func normalize[T any](v T) (string, []byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return "", nil, fmt.Errorf("%w: record must be an object", common.ErrorValidation)
	}
	id, _ := doc["id"].(string)
	if id == "" {
		id = uuid.NewString()
		doc["id"] = id
		if raw, err = json.Marshal(doc); err != nil {
			return "", nil, err
		}
	}
	return id, raw, nil
}

// Create stores v, assigning a new id when it has none. An existing record
// with the same id is overwritten.
func (s *Store[T]) Create(ctx context.Context, v T) (T, error) {
	var zero T
	id, raw, err := normalize(v)
	if err != nil {
		return zero, err
	}
	if err := s.backend.Put(ctx, s.index, id, raw); err != nil {
		return zero, err
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return zero, err
	}
	return out, nil
}

func decodePayload[T any](payload json.RawMessage) (T, error) {
	var v T
	if err := json.Unmarshal(payload, &v); err != nil {
		return v, fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}
	return v, nil
}

// CreateJSON decodes payload as T and creates it.
func (s *Store[T]) CreateJSON(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	v, err := decodePayload[T](payload)
	if err != nil {
		return nil, err
	}
	created, err := s.Create(ctx, v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(created)
}

func (s *Store[T]) Get(ctx context.Context, id string) (T, error) {
	var v T
	raw, err := s.backend.Get(ctx, s.index, id)
	if err != nil {
		return v, err
	}
	if raw == nil {
		return v, fmt.Errorf("%s %s: %w", s.index, id, common.ErrorNotFound)
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("decode %s/%s: %w", s.index, id, err)
	}
	return v, nil
}

func (s *Store[T]) Exists(ctx context.Context, id string) (bool, error) {
	raw, err := s.backend.Get(ctx, s.index, id)
	if err != nil {
		return false, err
	}
	return raw != nil, nil
}

func (s *Store[T]) patchRaw(ctx context.Context, id string, partial map[string]any) ([]byte, error) {
	var out []byte
	err := s.withTx(ctx, func(ctx context.Context, st *Store[T]) error {
		raw, err := st.backend.Get(ctx, st.index, id)
		if err != nil {
			return err
		}
		if raw == nil {
			return fmt.Errorf("%s %s: %w", st.index, id, common.ErrorNotFound)
		}
		merged, err := models.Merge(raw, partial)
		if err != nil {
			return err
		}
		v, err := decodePayload[T](merged)
		if err != nil {
			return err
		}
		if out, err = json.Marshal(v); err != nil {
			return err
		}
		return st.backend.Put(ctx, st.index, id, out)
	})
	return out, err
}

// Patch shallow-merges partial into the stored record. Nested objects are
// replaced wholesale and the id never changes.
func (s *Store[T]) Patch(ctx context.Context, id string, partial map[string]any) (T, error) {
	var v T
	raw, err := s.patchRaw(ctx, id, partial)
	if err != nil {
		return v, err
	}
	err = json.Unmarshal(raw, &v)
	return v, err
}

func (s *Store[T]) PatchJSON(ctx context.Context, id string, partial map[string]any) (json.RawMessage, error) {
	return s.patchRaw(ctx, id, partial)
}

func (s *Store[T]) Delete(ctx context.Context, id string) (bool, error) {
	return s.backend.Delete(ctx, s.index, id)
}

// DeleteMany deletes ids in one unit of work and returns how many existed.
func (s *Store[T]) DeleteMany(ctx context.Context, ids []string) (int, error) {
	var n int
	err := s.withTx(ctx, func(ctx context.Context, st *Store[T]) error {
		for _, id := range ids {
			ok, err := st.backend.Delete(ctx, st.index, id)
			if err != nil {
				return err
			}
			if ok {
				n++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// EnsureSeed inserts the seed records the first time it finds the index
// empty. Later calls return immediately.
func (s *Store[T]) EnsureSeed(ctx context.Context) error {
	s.seedMu.Lock()
	defer s.seedMu.Unlock()
	if *s.seedDone {
		return nil
	}

	err := s.withTx(ctx, func(ctx context.Context, st *Store[T]) error {
		n, err := st.backend.IndexCount(ctx, st.index)
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		for _, v := range st.seed {
			if _, err := st.Create(ctx, v); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("seed %s: %w", s.index, err)
	}
	*s.seedDone = true
	return nil
}

func (s *Store[T]) Repair(ctx context.Context) (entityrepo.RepairResult, error) {
	return s.backend.Repair(ctx, s.index)
}
