package entities

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/suitewaste/internal/dbx"
	"github.com/dmitrijs2005/suitewaste/internal/server/models"
)

// PostgresBackend implements Backend over a dbx.DBTX. Record and index
// writes of one call share a transaction.
type PostgresBackend struct {
	// db is nil when the backend is bound to an open transaction.
	db *sql.DB
	q  dbx.DBTX
}

func NewPostgresBackend(db *sql.DB) *PostgresBackend {
	return &PostgresBackend{db: db, q: db}
}

func (b *PostgresBackend) atomic(ctx context.Context, fn func(ctx context.Context, q dbx.DBTX) error) error {
	if b.db == nil {
		return fn(ctx, b.q)
	}
	return dbx.WithTx(ctx, b.db, nil, fn)
}

func (b *PostgresBackend) WithTx(ctx context.Context, fn func(ctx context.Context, tx Backend) error) error {
	return b.atomic(ctx, func(ctx context.Context, q dbx.DBTX) error {
		return fn(ctx, &PostgresBackend{q: q})
	})
}

func (b *PostgresBackend) Put(ctx context.Context, index, id string, data json.RawMessage) error {
	return b.atomic(ctx, func(ctx context.Context, q dbx.DBTX) error {
		_, err := q.ExecContext(ctx, `
			INSERT INTO records (idx, id, data, updated_at) VALUES ($1, $2, $3, now())
			ON CONFLICT (idx, id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
			index, id, string(data))
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		_, err = q.ExecContext(ctx, `
			INSERT INTO record_index (idx, id) VALUES ($1, $2)
			ON CONFLICT (idx, id) DO NOTHING`, index, id)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		return nil
	})
}

func (b *PostgresBackend) Get(ctx context.Context, index, id string) (json.RawMessage, error) {
	var data []byte
	err := b.q.QueryRowContext(ctx, `SELECT data FROM records WHERE idx = $1 AND id = $2`, index, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return data, nil
}

func (b *PostgresBackend) Delete(ctx context.Context, index, id string) (bool, error) {
	var deleted bool
	err := b.atomic(ctx, func(ctx context.Context, q dbx.DBTX) error {
		if _, err := q.ExecContext(ctx, `DELETE FROM record_index WHERE idx = $1 AND id = $2`, index, id); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		res, err := q.ExecContext(ctx, `DELETE FROM records WHERE idx = $1 AND id = $2`, index, id)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected error: %w", err)
		}
		deleted = n > 0
		return nil
	})
	return deleted, err
}

func (b *PostgresBackend) List(ctx context.Context, index string, after int64, limit int) ([]models.Record, error) {
	rows, err := b.q.QueryContext(ctx, `
		SELECT i.seq, i.id, r.data FROM record_index i
		JOIN records r ON r.idx = i.idx AND r.id = i.id
		WHERE i.idx = $1 AND i.seq > $2
		ORDER BY i.seq LIMIT $3`, index, after, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", index, err)
	}
	defer rows.Close()

	var result []models.Record
	for rows.Next() {
		rec := models.Record{Index: index}
		var data []byte
		if err := rows.Scan(&rec.Seq, &rec.ID, &data); err != nil {
			return nil, err
		}
		rec.Data = data
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (b *PostgresBackend) IndexCount(ctx context.Context, index string) (int, error) {
	var n int
	if err := b.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM record_index WHERE idx = $1`, index).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (b *PostgresBackend) Repair(ctx context.Context, index string) (RepairResult, error) {
	var out RepairResult
	err := b.atomic(ctx, func(ctx context.Context, q dbx.DBTX) error {
		res, err := q.ExecContext(ctx, `
			DELETE FROM record_index i WHERE i.idx = $1
			AND NOT EXISTS (SELECT 1 FROM records r WHERE r.idx = i.idx AND r.id = i.id)`, index)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		dropped, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected error: %w", err)
		}

		res, err = q.ExecContext(ctx, `
			INSERT INTO record_index (idx, id)
			SELECT r.idx, r.id FROM records r WHERE r.idx = $1
			AND NOT EXISTS (SELECT 1 FROM record_index i WHERE i.idx = r.idx AND i.id = r.id)
			ORDER BY r.id`, index)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		added, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected error: %w", err)
		}
		out = RepairResult{Dropped: int(dropped), Added: int(added)}
		return nil
	})
	return out, err
}
