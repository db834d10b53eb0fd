package users

import (
	"context"
	"database/sql"
	"encoding/json"
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

const selectUser = `SELECT id, email, password_hash, role, permissions FROM users`

func (r *SQLiteRepository) Add(ctx context.Context, u *models.User) error {
	perms, err := json.Marshal(u.Permissions)
	if err != nil {
		return fmt.Errorf("failed to encode permissions: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, role, permissions) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, u.Role, string(perms))
	if err != nil {
		return fmt.Errorf("failed to insert user %s: %w", u.Email, err)
	}
	return nil
}

func (r *SQLiteRepository) BulkAdd(ctx context.Context, us []*models.User) error {
	insertAll := func(ctx context.Context, tx dbx.DBTX) error {
		rr := NewSQLiteRepository(tx)
		for _, u := range us {
			if err := rr.Add(ctx, u); err != nil {
				return err
			}
		}
		return nil
	}

	if db, ok := r.db.(*sql.DB); ok {
		return dbx.WithTx(ctx, db, nil, insertAll)
	}
	return insertAll(ctx, r.db)
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*models.User, error) {
	return r.one(ctx, selectUser+` WHERE id = ?`, id)
}

func (r *SQLiteRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.one(ctx, selectUser+` WHERE email = ? COLLATE NOCASE`, email)
}

func (r *SQLiteRepository) FindByRole(ctx context.Context, role string) (*models.User, error) {
	return r.one(ctx, selectUser+` WHERE role = ? ORDER BY id LIMIT 1`, role)
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM users`); err != nil {
		return fmt.Errorf("failed to clear users: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) one(ctx context.Context, query string, args ...any) (*models.User, error) {
	var (
		u     models.User
		perms string
	)
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &perms)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select user: %w", err)
	}
	if err := json.Unmarshal([]byte(perms), &u.Permissions); err != nil {
		return nil, fmt.Errorf("failed to decode permissions of %s: %w", u.ID, err)
	}
	return &u, nil
}
