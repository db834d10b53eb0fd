package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/suitewaste/internal/common"
	"github.com/dmitrijs2005/suitewaste/internal/dbx"
	"github.com/dmitrijs2005/suitewaste/internal/models"
)

// Table is a typed accessor over one record table. T must marshal to a JSON
// object carrying a string "id".
type Table[T any] struct {
	db     dbx.DBTX
	schema Schema
}

func NewTable[T any](db dbx.DBTX, schema Schema) *Table[T] {
	return &Table[T]{db: db, schema: schema}
}

// WithTx returns a copy of t bound to tx.
func (t *Table[T]) WithTx(tx dbx.DBTX) *Table[T] {
	return &Table[T]{db: tx, schema: t.schema}
}

func (t *Table[T]) Name() string { return t.schema.Table }

func (t *Table[T]) Add(ctx context.Context, v T) error {
	id, data, err := encode(v)
	if err != nil {
		return err
	}
	_, err = t.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (id, data, updated_at) VALUES (?, ?, ?)`, t.schema.Table),
		id, data, common.NowMillis())
	if dbx.IsUniqueViolation(err) {
		return fmt.Errorf("%w: %s/%s", common.ErrorAlreadyExists, t.schema.Table, id)
	}
	if err != nil {
		return fmt.Errorf("failed to insert into %s: %w", t.schema.Table, err)
	}
	return nil
}

// BulkAdd inserts every item in one transaction. When t is already bound to
// a transaction the items join it.
func (t *Table[T]) BulkAdd(ctx context.Context, vs []T) error {
	insertAll := func(ctx context.Context, tx dbx.DBTX) error {
		tt := t.WithTx(tx)
		for _, v := range vs {
			if err := tt.Add(ctx, v); err != nil {
				return err
			}
		}
		return nil
	}

	if db, ok := t.db.(*sql.DB); ok {
		return dbx.WithTx(ctx, db, nil, insertAll)
	}
	return insertAll(ctx, t.db)
}

// Put inserts v or replaces the stored record with the same id.
func (t *Table[T]) Put(ctx context.Context, v T) error {
	id, data, err := encode(v)
	if err != nil {
		return err
	}
	_, err = t.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`, t.schema.Table), id, data, common.NowMillis())
	if err != nil {
		return fmt.Errorf("failed to put into %s: %w", t.schema.Table, err)
	}
	return nil
}

// Get returns the record with id, or nil when absent.
func (t *Table[T]) Get(ctx context.Context, id string) (*T, error) {
	var data string
	err := t.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT data FROM %s WHERE id = ?`, t.schema.Table), id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s/%s: %w", t.schema.Table, id, err)
	}
	var v T
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		return nil, fmt.Errorf("failed to decode %s/%s: %w", t.schema.Table, id, err)
	}
	return &v, nil
}

// Update shallow-merges partial into the stored record. Nested objects in
// partial replace the stored value wholesale. The id cannot be changed.
func (t *Table[T]) Update(ctx context.Context, id string, partial map[string]any) (*T, error) {
	var data string
	err := t.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT data FROM %s WHERE id = ?`, t.schema.Table), id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", common.ErrorNotFound, t.schema.Table, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s/%s: %w", t.schema.Table, id, err)
	}

	merged, err := models.Merge([]byte(data), partial)
	if err != nil {
		return nil, err
	}

	var v T
	if err := json.Unmarshal(merged, &v); err != nil {
		return nil, fmt.Errorf("failed to decode %s/%s: %w", t.schema.Table, id, err)
	}
	if err := t.Put(ctx, v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Delete removes the record and reports whether it existed.
func (t *Table[T]) Delete(ctx context.Context, id string) (bool, error) {
	res, err := t.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, t.schema.Table), id)
	if err != nil {
		return false, fmt.Errorf("failed to delete %s/%s: %w", t.schema.Table, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

// Where returns the records whose indexed field equals value, ordered by id.
func (t *Table[T]) Where(ctx context.Context, field string, value any) ([]T, error) {
	expr, err := t.schema.expr(field)
	if err != nil {
		return nil, err
	}
	return t.query(ctx, fmt.Sprintf(`SELECT data FROM %s WHERE %s = ? ORDER BY id`, t.schema.Table, expr), value)
}

// OrderBy returns all records sorted by an indexed field.
func (t *Table[T]) OrderBy(ctx context.Context, field string, desc bool) ([]T, error) {
	expr, err := t.schema.expr(field)
	if err != nil {
		return nil, err
	}
	dir := "ASC"
	if desc {
		dir = "DESC"
	}
	return t.query(ctx, fmt.Sprintf(`SELECT data FROM %s ORDER BY %s %s, id`, t.schema.Table, expr, dir))
}

func (t *Table[T]) All(ctx context.Context) ([]T, error) {
	return t.query(ctx, fmt.Sprintf(`SELECT data FROM %s ORDER BY id`, t.schema.Table))
}

func (t *Table[T]) Count(ctx context.Context) (int, error) {
	var n int
	err := t.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, t.schema.Table)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", t.schema.Table, err)
	}
	return n, nil
}

func (t *Table[T]) Clear(ctx context.Context) error {
	if _, err := t.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, t.schema.Table)); err != nil {
		return fmt.Errorf("failed to clear %s: %w", t.schema.Table, err)
	}
	return nil
}

// PutJSON decodes raw into T and upserts it.
func (t *Table[T]) PutJSON(ctx context.Context, raw json.RawMessage) error {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("%w: %s payload: %v", common.ErrorValidation, t.schema.Table, err)
	}
	return t.Put(ctx, v)
}

// MergeJSON applies a JSON object as a shallow partial update.
func (t *Table[T]) MergeJSON(ctx context.Context, id string, raw json.RawMessage) error {
	var partial map[string]any
	if err := json.Unmarshal(raw, &partial); err != nil {
		return fmt.Errorf("%w: %s partial: %v", common.ErrorValidation, t.schema.Table, err)
	}
	_, err := t.Update(ctx, id, partial)
	return err
}

func (t *Table[T]) query(ctx context.Context, query string, args ...any) ([]T, error) {
	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", t.schema.Table, err)
	}
	defer rows.Close()

	result := make([]T, 0)
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", t.schema.Table, err)
		}
		var v T
		if err := json.Unmarshal([]byte(data), &v); err != nil {
			return nil, fmt.Errorf("failed to decode %s row: %w", t.schema.Table, err)
		}
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s rows: %w", t.schema.Table, err)
	}
	return result, nil
}

func encode(v any) (string, string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode record: %w", err)
	}
	var head struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return "", "", fmt.Errorf("%w: record is not an object", common.ErrorValidation)
	}
	if head.ID == "" {
		return "", "", fmt.Errorf("%w: record id is required", common.ErrorValidation)
	}
	return head.ID, string(data), nil
}
