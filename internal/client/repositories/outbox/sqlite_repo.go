package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/suitewaste/internal/common"
	"github.com/dmitrijs2005/suitewaste/internal/dbx"
	"github.com/dmitrijs2005/suitewaste/internal/models"
	"github.com/google/uuid"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Enqueue(ctx context.Context, table string, action models.Action, payload json.RawMessage) (*models.OutboxItem, error) {
	if _, err := models.EntityPath(table); err != nil {
		return nil, err
	}
	if !action.Valid() {
		return nil, fmt.Errorf("%w: %s", common.ErrorUnknownAction, action)
	}
	if !json.Valid(payload) {
		return nil, fmt.Errorf("%w: outbox payload is not valid JSON", common.ErrorValidation)
	}

	item := &models.OutboxItem{
		ID:        uuid.NewString(),
		Table:     table,
		Action:    action,
		Payload:   payload,
		Timestamp: common.NowMillis(),
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO outbox (id, tbl, action, payload, timestamp) VALUES (?, ?, ?, ?, ?)`,
		item.ID, item.Table, string(item.Action), string(item.Payload), item.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue outbox item: %w", err)
	}
	return item, nil
}

func (r *SQLiteRepository) Snapshot(ctx context.Context) ([]models.OutboxItem, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, tbl, action, payload, timestamp FROM outbox ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to select outbox: %w", err)
	}
	defer rows.Close()

	result := make([]models.OutboxItem, 0)
	for rows.Next() {
		var (
			item    models.OutboxItem
			action  string
			payload string
		)
		if err := rows.Scan(&item.ID, &item.Table, &action, &payload, &item.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan outbox row: %w", err)
		}
		item.Action = models.Action(action)
		item.Payload = json.RawMessage(payload)
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate outbox rows: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM outbox`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count outbox: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) Remove(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	_, err := r.db.ExecContext(ctx, `DELETE FROM outbox WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return fmt.Errorf("failed to remove outbox items: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM outbox`); err != nil {
		return fmt.Errorf("failed to clear outbox: %w", err)
	}
	return nil
}
