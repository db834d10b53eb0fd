// Package store is the local, transactional data store of the client. It
// owns the SQLite database, seeds the demo data set and manages the single
// active session.
//
// A Store is created with Open and released with Close; tests open one per
// test against a temporary file.
package store

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/suitewaste/internal/auth"
	"github.com/dmitrijs2005/suitewaste/internal/client/migrations"
	"github.com/dmitrijs2005/suitewaste/internal/client/models"
	"github.com/dmitrijs2005/suitewaste/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/suitewaste/internal/client/repositories/outbox"
	"github.com/dmitrijs2005/suitewaste/internal/client/repositories/records"
	"github.com/dmitrijs2005/suitewaste/internal/client/repositories/sessions"
	"github.com/dmitrijs2005/suitewaste/internal/client/repositories/users"
	"github.com/dmitrijs2005/suitewaste/internal/common"
	"github.com/dmitrijs2005/suitewaste/internal/dbx"
	"github.com/dmitrijs2005/suitewaste/internal/hashx"
	"github.com/dmitrijs2005/suitewaste/internal/logging"
	smodels "github.com/dmitrijs2005/suitewaste/internal/models"
	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

var nowMillis = common.NowMillis

// Options configures a Store. Zero values select the defaults.
type Options struct {
	Hasher     hashx.Hasher
	Secret     []byte
	SessionTTL time.Duration
	Tokens     TokenStore
	Logger     logging.Logger
}

// RecordTable is the untyped view of a record table used when applying
// mutations that arrive as JSON.
type RecordTable interface {
	Name() string
	PutJSON(ctx context.Context, raw json.RawMessage) error
	MergeJSON(ctx context.Context, id string, raw json.RawMessage) error
	Delete(ctx context.Context, id string) (bool, error)
	Clear(ctx context.Context) error
}

var _ RecordTable = (*records.Table[smodels.Task])(nil)

type Store struct {
	db     *sql.DB
	hasher hashx.Hasher
	secret []byte
	ttl    time.Duration
	tokens TokenStore
	log    logging.Logger

	users    users.Repository
	sessions sessions.Repository
	outbox   outbox.Repository
	metadata metadata.Repository

	tasks           *records.Table[smodels.Task]
	payments        *records.Table[smodels.Payment]
	complianceLogs  *records.Table[smodels.ComplianceLog]
	trainingModules *records.Table[smodels.TrainingModule]
	aiMessages      *records.Table[smodels.AIMessage]

	seedMu sync.Mutex
}

// Open opens (creating if needed) the SQLite database at dsn and migrates it.
func Open(ctx context.Context, dsn string, opts Options) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}
	// one connection serializes writers and keeps :memory: databases shared
	db.SetMaxOpenConns(1)

	if err := migrations.Up(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	if opts.Hasher == nil {
		opts.Hasher = hashx.SHA256Hasher{Salt: hashx.DefaultSalt}
	}
	if len(opts.Secret) == 0 {
		opts.Secret = []byte(hashx.DefaultSalt)
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 7 * 24 * time.Hour
	}
	if opts.Tokens == nil {
		opts.Tokens = &MemoryTokenStore{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}

	return &Store{
		db:     db,
		hasher: opts.Hasher,
		secret: opts.Secret,
		ttl:    opts.SessionTTL,
		tokens: opts.Tokens,
		log:    opts.Logger,

		users:    users.NewSQLiteRepository(db),
		sessions: sessions.NewSQLiteRepository(db),
		outbox:   outbox.NewSQLiteRepository(db),
		metadata: metadata.NewSQLiteRepository(db),

		tasks:           records.NewTable[smodels.Task](db, records.TasksSchema),
		payments:        records.NewTable[smodels.Payment](db, records.PaymentsSchema),
		complianceLogs:  records.NewTable[smodels.ComplianceLog](db, records.ComplianceLogsSchema),
		trainingModules: records.NewTable[smodels.TrainingModule](db, records.TrainingModulesSchema),
		aiMessages:      records.NewTable[smodels.AIMessage](db, records.AIMessagesSchema),
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Users() users.Repository       { return s.users }
func (s *Store) Sessions() sessions.Repository { return s.sessions }
func (s *Store) Outbox() outbox.Repository     { return s.outbox }
func (s *Store) Metadata() metadata.Repository { return s.metadata }

func (s *Store) Tasks() *records.Table[smodels.Task] { return s.tasks }

func (s *Store) Payments() *records.Table[smodels.Payment] { return s.payments }

func (s *Store) ComplianceLogs() *records.Table[smodels.ComplianceLog] {
	return s.complianceLogs
}

func (s *Store) TrainingModules() *records.Table[smodels.TrainingModule] {
	return s.trainingModules
}

func (s *Store) AIMessages() *records.Table[smodels.AIMessage] { return s.aiMessages }

// Table resolves a sync table name to its record table.
func (s *Store) Table(name string) (RecordTable, error) {
	switch name {
	case smodels.TableTasks:
		return s.tasks, nil
	case smodels.TablePayments:
		return s.payments, nil
	case smodels.TableComplianceLogs:
		return s.complianceLogs, nil
	case smodels.TableTrainingModules:
		return s.trainingModules, nil
	case smodels.TableAIMessages:
		return s.aiMessages, nil
	}
	return nil, fmt.Errorf("%w: %s", common.ErrorUnknownTable, name)
}

// SignIn checks the credentials and, on success, replaces every existing
// session with a new one. Bad credentials yield (nil, nil).
func (s *Store) SignIn(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}

	hash := s.hasher.Hash(password)
	if subtle.ConstantTimeCompare([]byte(hash), []byte(user.PasswordHash)) != 1 {
		return nil, nil
	}

	session := &models.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		CreatedAt: nowMillis(),
	}
	session.Token, err = auth.GenerateToken(user.ID, session.ID, user.Role, s.secret, s.ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session token: %w", err)
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := sessions.NewSQLiteRepository(tx)
		if err := repo.DeleteAll(ctx); err != nil {
			return err
		}
		return repo.Add(ctx, session)
	})
	if err != nil {
		return nil, err
	}

	if err := s.tokens.Set(session.Token); err != nil {
		return nil, err
	}

	s.log.Info(ctx, "signed in", "user", user.Email, "role", user.Role)
	return user, nil
}

// SignOut removes every session and forgets the token. Only one session is
// ever active, so a lost token file still signs the user out.
func (s *Store) SignOut(ctx context.Context) error {
	if err := s.sessions.DeleteAll(ctx); err != nil {
		return err
	}
	return s.tokens.Clear()
}

// CurrentUser returns the user of the most recent session, or nil when
// there is no session or its user no longer exists. A dangling session is
// left in place.
func (s *Store) CurrentUser(ctx context.Context) (*models.User, error) {
	session, err := s.sessions.Latest(ctx)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}
	return s.users.Get(ctx, session.UserID)
}

// Token returns the current session token, "" when signed out.
func (s *Store) Token() string {
	token, err := s.tokens.Get()
	if err != nil {
		return ""
	}
	return token
}

// Clear wipes every table, including users and the outbox, and the token.
func (s *Store) Clear(ctx context.Context) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, table := range []string{
			"sessions", "users", "outbox", "metadata",
			records.TasksSchema.Table, records.PaymentsSchema.Table,
			records.ComplianceLogsSchema.Table, records.TrainingModulesSchema.Table,
			records.AIMessagesSchema.Table,
		} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return s.tokens.Clear()
}
