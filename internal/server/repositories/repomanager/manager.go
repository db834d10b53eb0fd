// Package repomanager opens the server's entity storage: PostgreSQL through
// pgx with goose migrations when a DSN is configured, process memory
// otherwise.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/suitewaste/internal/server/migrations"
	"github.com/dmitrijs2005/suitewaste/internal/server/repositories/entities"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// RepositoryManager vends entity backends and runs schema migrations.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Entities(db *sql.DB) entities.Backend
}

// PostgresRepositoryManager vends PostgreSQL-backed entity storage.
type PostgresRepositoryManager struct{}

func NewPostgresRepositoryManager() RepositoryManager {
	return &PostgresRepositoryManager{}
}

func (m *PostgresRepositoryManager) Entities(db *sql.DB) entities.Backend {
	return entities.NewPostgresBackend(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// sqlOpen is a seam for testing sql.Open.
var sqlOpen = sql.Open

// RunMigrations applies the embedded migrations.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return err
	}
	return nil
}

// Storage is an opened backend together with its release function.
type Storage struct {
	Backend entities.Backend
	Kind    string
	close   func() error
}

func (s *Storage) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// Open returns in-memory storage for an empty dsn and migrated PostgreSQL
// storage otherwise.
func Open(ctx context.Context, dsn string) (*Storage, error) {
	if dsn == "" {
		return &Storage{Backend: entities.NewMemoryBackend(), Kind: "memory"}, nil
	}

	db, err := sqlOpen("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	m := NewPostgresRepositoryManager()
	if err := m.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return &Storage{Backend: m.Entities(db), Kind: "postgres", close: db.Close}, nil
}
