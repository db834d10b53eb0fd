package services

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"

	"github.com/dmitrijs2005/suitewaste/internal/client/client"
	"github.com/dmitrijs2005/suitewaste/internal/client/store"
	"github.com/dmitrijs2005/suitewaste/internal/models"
	"github.com/stretchr/testify/require"
)

// fakeClient records calls and answers from preset errors.
type fakeClient struct {
	mu sync.Mutex

	pingErr   error
	createErr error
	patchErr  error
	deleteErr error
	// syncErrs are returned by successive Sync calls; after they run out
	// syncResult is returned.
	syncErrs   []error
	syncResult *models.SyncResult
	syncGate   chan struct{}
	syncCalls  int
	synced     [][]models.OutboxItem
	pages      map[string]models.Page[json.RawMessage]

	creates, patches, deletes int
}

func (f *fakeClient) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pingErr
}

func (f *fakeClient) setPingErr(err error) {
	f.mu.Lock()
	f.pingErr = err
	f.mu.Unlock()
}

func (f *fakeClient) Create(_ context.Context, _ string, payload json.RawMessage) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	return payload, f.createErr
}

func (f *fakeClient) Patch(_ context.Context, _, _ string, partial json.RawMessage) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patches++
	return partial, f.patchErr
}

func (f *fakeClient) Delete(context.Context, string, string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	return true, f.deleteErr
}

func (f *fakeClient) List(_ context.Context, _ string, cursor string, _ int) (*models.Page[json.RawMessage], error) {
	p := f.pages[cursor]
	return &p, nil
}

func (f *fakeClient) Sync(ctx context.Context, items []models.OutboxItem) (*models.SyncResult, error) {
	if f.syncGate != nil {
		select {
		case <-f.syncGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.syncCalls++
	f.synced = append(f.synced, items)
	if len(f.syncErrs) > 0 {
		err := f.syncErrs[0]
		f.syncErrs = f.syncErrs[1:]
		return nil, err
	}
	if f.syncResult != nil {
		return f.syncResult, nil
	}
	return &models.SyncResult{Synced: len(items), Total: len(items)}, nil
}

func (f *fakeClient) Close() error { return nil }

func (f *fakeClient) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.syncCalls
}

var _ client.Client = (*fakeClient)(nil)

// recorder collects notices.
type recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *recorder) Notify(_ context.Context, n Notice) {
	r.mu.Lock()
	r.notices = append(r.notices, n)
	r.mu.Unlock()
}

func (r *recorder) levels() []NoticeLevel {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]NoticeLevel, len(r.notices))
	for i, n := range r.notices {
		out[i] = n.Level
	}
	return out
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "local.db"), store.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}
