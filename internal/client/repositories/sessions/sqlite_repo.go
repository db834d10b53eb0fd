package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/suitewaste/internal/client/models"
	"github.com/dmitrijs2005/suitewaste/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Add(ctx context.Context, s *models.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, token, created_at) VALUES (?, ?, ?, ?)`,
		s.ID, s.UserID, s.Token, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Latest(ctx context.Context) (*models.Session, error) {
	return r.one(ctx, `SELECT id, user_id, token, created_at FROM sessions ORDER BY created_at DESC, rowid DESC LIMIT 1`)
}

func (r *SQLiteRepository) GetByToken(ctx context.Context, token string) (*models.Session, error) {
	return r.one(ctx, `SELECT id, user_id, token, created_at FROM sessions WHERE token = ?`, token)
}

func (r *SQLiteRepository) DeleteByToken(ctx context.Context, token string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions`); err != nil {
		return fmt.Errorf("failed to delete sessions: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) one(ctx context.Context, query string, args ...any) (*models.Session, error) {
	var s models.Session
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&s.ID, &s.UserID, &s.Token, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select session: %w", err)
	}
	return &s, nil
}
