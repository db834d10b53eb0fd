package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/suitewaste/internal/client/migrations"
	"github.com/dmitrijs2005/suitewaste/internal/common"
	"github.com/dmitrijs2005/suitewaste/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "outbox.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, migrations.Up(context.Background(), db))
	return db
}

func TestEnqueue_SnapshotPreservesInsertionOrder(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	a, err := r.Enqueue(ctx, models.TableTasks, models.ActionCreate, json.RawMessage(`{"id":"t1"}`))
	require.NoError(t, err)
	b, err := r.Enqueue(ctx, models.TableTasks, models.ActionUpdate, json.RawMessage(`{"id":"t1","status":"completed"}`))
	require.NoError(t, err)
	c, err := r.Enqueue(ctx, models.TablePayments, models.ActionDelete, json.RawMessage(`{"id":"p1"}`))
	require.NoError(t, err)

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Positive(t, a.Timestamp)

	items, err := r.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, []string{a.ID, b.ID, c.ID}, []string{items[0].ID, items[1].ID, items[2].ID})
	assert.Equal(t, models.ActionUpdate, items[1].Action)
	assert.JSONEq(t, `{"id":"t1","status":"completed"}`, string(items[1].Payload))
}

func TestEnqueue_RejectsUnknownTableAndAction(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	_, err := r.Enqueue(ctx, "chats", models.ActionCreate, json.RawMessage(`{}`))
	require.ErrorIs(t, err, common.ErrorUnknownTable)

	_, err = r.Enqueue(ctx, models.TableTasks, models.Action("upsert"), json.RawMessage(`{}`))
	require.ErrorIs(t, err, common.ErrorUnknownAction)

	_, err = r.Enqueue(ctx, models.TableTasks, models.ActionCreate, json.RawMessage(`{`))
	require.ErrorIs(t, err, common.ErrorValidation)

	n, err := r.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRemove_KeepsItemsOutsideSnapshot(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	first, err := r.Enqueue(ctx, models.TableTasks, models.ActionCreate, json.RawMessage(`{"id":"t1"}`))
	require.NoError(t, err)
	late, err := r.Enqueue(ctx, models.TableTasks, models.ActionCreate, json.RawMessage(`{"id":"t2"}`))
	require.NoError(t, err)

	require.NoError(t, r.Remove(ctx, []string{first.ID}))
	require.NoError(t, r.Remove(ctx, nil))

	items, err := r.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, late.ID, items[0].ID)
}

func TestClear(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	_, err := r.Enqueue(ctx, models.TableAIMessages, models.ActionCreate, json.RawMessage(`{"id":"m1"}`))
	require.NoError(t, err)
	require.NoError(t, r.Clear(ctx))

	n, err := r.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
