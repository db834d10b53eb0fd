package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/suitewaste/internal/client/client"
	"github.com/dmitrijs2005/suitewaste/internal/client/config"
	"github.com/dmitrijs2005/suitewaste/internal/client/models"
	"github.com/dmitrijs2005/suitewaste/internal/client/services"
	"github.com/dmitrijs2005/suitewaste/internal/client/store"
	"github.com/dmitrijs2005/suitewaste/internal/client/transport"
	"github.com/dmitrijs2005/suitewaste/internal/filex"
	"github.com/dmitrijs2005/suitewaste/internal/hashx"
	"github.com/dmitrijs2005/suitewaste/internal/logging"
)

const (
	dbFileName    = "suitewaste.db"
	tokenFileName = "session.token"
	logFileName   = "client.log"
	cliClientID   = "cli"
)

var (
	errNotLoggedIn = errors.New("not logged in, use 'login'")
	errForbidden   = errors.New("your role has no access to this module")
)

type App struct {
	cfg    *config.Config
	log    logging.Logger
	local  *store.Store
	api    client.Client
	auth   services.AuthService
	engine *services.SyncService
	worker *transport.Worker
	reader *bufio.Reader
	out    io.Writer
	user   *models.User
}

// NewApp opens the local store under cfg.DataDir and wires the sync engine
// to the server through the offline-first transport.
func NewApp(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer) (*App, error) {
	dir, err := filex.EnsureDir(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare data dir: %w", err)
	}

	logFile := cfg.LogFile
	if logFile == "" {
		logFile = filepath.Join(dir, logFileName)
	}
	log := logging.New(logging.Options{Format: "text", Level: cfg.LogLevel, File: logFile})

	hasher, err := hashx.New(cfg.Hasher, "")
	if err != nil {
		return nil, err
	}

	local, err := store.Open(ctx, filepath.Join(dir, dbFileName), store.Options{
		Hasher: hasher,
		Secret: []byte(cfg.Secret),
		Tokens: store.NewFileTokenStore(filepath.Join(dir, tokenFileName)),
		Logger: log,
	})
	if err != nil {
		return nil, err
	}

	worker := transport.NewWorker(transport.DefaultConfig(cfg.ServerURL), nil, log)

	opts := []client.Option{
		client.WithTransport(worker),
		client.WithTimeout(cfg.RequestTimeout),
		client.WithToken(local.Token),
	}
	if cfg.HealthAddr != "" {
		prober, err := client.NewGRPCHealthProber(cfg.HealthAddr)
		if err != nil {
			_ = local.Close()
			return nil, err
		}
		opts = append(opts, client.WithProber(prober))
	}
	api := client.NewHTTPClient(cfg.ServerURL, opts...)

	return newApp(cfg, log, local, api, worker, in, out), nil
}

func newApp(cfg *config.Config, log logging.Logger, local *store.Store, api client.Client, worker *transport.Worker, in io.Reader, out io.Writer) *App {
	engine := services.NewSyncService(local, api, services.SyncOptions{
		RequestTimeout: cfg.RequestTimeout,
		Notifier:       NewNotifier(out),
		Logger:         log,
	})
	return &App{
		cfg:    cfg,
		log:    log,
		local:  local,
		api:    api,
		auth:   services.NewAuthService(local, api),
		engine: engine,
		worker: worker,
		reader: bufio.NewReader(in),
		out:    out,
	}
}

// Close releases the API client and the local database.
func (a *App) Close(ctx context.Context) error {
	a.worker.Wait()
	return errors.Join(a.auth.Close(ctx), a.local.Close())
}

// Start seeds the demo data when needed, restores the previous session and
// probes the server once.
func (a *App) Start(ctx context.Context) error {
	if err := a.auth.Bootstrap(ctx); err != nil {
		return err
	}
	user, err := a.auth.CurrentUser(ctx)
	if err != nil {
		return err
	}
	a.user = user
	a.probe(ctx)
	return nil
}

// Run starts the connectivity watcher and blocks in the REPL until the user
// exits or ctx is done.
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		return err
	}

	go a.engine.Watch(ctx, a.cfg.OnlineCheckInterval)

	fmt.Fprintln(a.out, "Welcome to SuiteWaste OS (type 'help' for commands)")
	if a.user == nil {
		if err := a.Login(ctx); err != nil {
			fmt.Fprintln(a.out, "Error:", err)
		}
	}

	runREPL(ctx, a, a.status, a.reader)
	return nil
}

// probe checks the server once, records the result and installs the
// transport when the server is reachable.
func (a *App) probe(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, a.cfg.RequestTimeout)
	err := a.api.Ping(pctx)
	cancel()
	a.engine.SetOnline(ctx, err == nil)
	if err == nil {
		a.installWorker(ctx)
	}
}

// installWorker installs and activates the transport if it is not active
// yet. Failure is logged; requests then go straight to the network.
func (a *App) installWorker(ctx context.Context) {
	if a.worker.State() == transport.StateActive {
		return
	}
	ictx, cancel := context.WithTimeout(ctx, a.cfg.RequestTimeout)
	defer cancel()
	if err := a.worker.Install(ictx); err != nil {
		a.log.Warn(ctx, "transport install failed", "error", err)
		return
	}
	if err := a.worker.Activate(ictx); err != nil {
		a.log.Warn(ctx, "transport activation failed", "error", err)
	}
}

func (a *App) status() string {
	mode := "offline"
	if a.engine.Online() {
		mode = "online"
	}
	if a.user == nil {
		return mode
	}
	return a.user.Email + " " + mode
}

func (a *App) isLoggedIn() bool {
	return a.user != nil
}

func (a *App) require(permission string) error {
	if a.user == nil {
		return errNotLoggedIn
	}
	if !a.user.HasPermission(permission) {
		return fmt.Errorf("%w (needs %q)", errForbidden, permission)
	}
	return nil
}

func formatMillis(ms int64) string {
	if ms == 0 {
		return "-"
	}
	return time.UnixMilli(ms).Format("2006-01-02")
}
