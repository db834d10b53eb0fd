// Package server wires the SuiteWaste API server: entity storage, the REST
// surface, the gRPC health endpoint and graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrijs2005/suitewaste/internal/logging"
	"github.com/dmitrijs2005/suitewaste/internal/server/config"
	"github.com/dmitrijs2005/suitewaste/internal/server/entities"
	"github.com/dmitrijs2005/suitewaste/internal/server/httpapi"
	"github.com/dmitrijs2005/suitewaste/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/suitewaste/internal/server/services"
	"github.com/gin-gonic/gin"

	gs "github.com/dmitrijs2005/suitewaste/internal/server/grpc"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	config   *config.Config
	logger   logging.Logger
	storage  *repomanager.Storage
	registry *entities.Registry
	handler  http.Handler
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(logging.Options{Format: "json", Level: c.LogLevel, File: c.LogFile})

	storage, err := repomanager.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	registry := entities.NewRegistry(storage.Backend, time.Now())

	var putter services.ObjectPutter
	if c.S3Bucket != "" {
		if putter, err = services.NewS3Putter(ctx, c); err != nil {
			_ = storage.Close()
			return nil, fmt.Errorf("s3 init error: %w", err)
		}
	}
	snapshots := services.NewSnapshotService(registry, putter, c.S3Bucket, logger)
	syncer := services.NewSyncService(registry, logger)

	gin.SetMode(gin.ReleaseMode)
	router := httpapi.NewRouter(httpapi.Options{
		Secret:         c.SecretKey,
		TokenMaxAge:    c.TokenValidityDuration,
		AllowedOrigins: c.AllowedOrigins,
	}, httpapi.NewHandler(registry, syncer, snapshots, logger))

	logger.Info(ctx, "storage ready", "backend", storage.Kind)
	return &App{config: c, logger: logger, storage: storage, registry: registry, handler: router}, nil
}

// repair reconciles every listing index with its records.
func (app *App) repair(ctx context.Context) {
	for _, c := range app.registry.All() {
		res, err := c.Repair(ctx)
		if err != nil {
			app.logger.Error(ctx, "index repair failed", "index", c.Name(), "error", err)
			continue
		}
		if res.Dropped > 0 || res.Added > 0 {
			app.logger.Warn(ctx, "index repaired", "index", c.Name(), "dropped", res.Dropped, "added", res.Added)
		}
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc, lis net.Listener) {
	srv := &http.Server{Handler: app.handler, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		app.logger.Info(ctx, "Stopping HTTP server...")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			app.logger.Error(ctx, "http shutdown", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", lis.Addr().String())
	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled or a server fails, then shuts both
// servers down and releases storage.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.repair(ctx)

	lis, err := net.Listen("tcp", app.config.EndpointAddrHTTP)
	if err != nil {
		_ = app.storage.Close()
		return err
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc, lis)
	}()

	if app.config.EndpointAddrGRPC != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startGRPCServer(ctx, cancelFunc)
		}()
	}

	wg.Wait()
	app.logger.Info(context.Background(), "App stopped")
	return app.storage.Close()
}
