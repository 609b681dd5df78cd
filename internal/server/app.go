// Package server wires configuration, storage, providers and services into
// the HTTP application and runs it until a termination signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/photoforge/internal/logging"
	"github.com/dmitrijs2005/photoforge/internal/server/auth"
	"github.com/dmitrijs2005/photoforge/internal/server/config"
	"github.com/dmitrijs2005/photoforge/internal/server/deliveries"
	"github.com/dmitrijs2005/photoforge/internal/server/httpapi"
	"github.com/dmitrijs2005/photoforge/internal/server/identity"
	"github.com/dmitrijs2005/photoforge/internal/server/providers"
	"github.com/dmitrijs2005/photoforge/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/photoforge/internal/server/services"
	"github.com/dmitrijs2005/photoforge/internal/server/storage"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	handler *httpapi.Handler
	closers []func()
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, flush, err := logging.New(c.LogBackend)
	if err != nil {
		return nil, err
	}
	app := &App{config: c, logger: logger, closers: []func(){flush}}

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("db open error: %w", err)
	}
	app.db = db
	app.closers = append(app.closers, func() { _ = db.Close() })

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		app.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	var cache deliveries.Cache = deliveries.Nop{}
	if c.RedisAddr != "" {
		r := deliveries.NewRedis(deliveries.RedisConfig{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
			TTL:      c.DeliveryCacheTTL,
		})
		if err := r.Ping(ctx); err != nil {
			logger.Warn(ctx, "redis unavailable, delivery cache degraded", "addr", c.RedisAddr, "error", err)
		}
		cache = r
		app.closers = append(app.closers, func() { _ = r.Close() })
	}

	verifier, err := identity.NewGoogle(ctx, c.GoogleClientID)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("identity provider init error: %w", err)
	}

	issuer, err := auth.NewIssuer([]byte(c.SecretKey))
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("token issuer init error: %w", err)
	}

	presigner := storage.NewS3(c)
	registry := providers.NewRegistry(c, nil)

	credits := services.NewCreditService(db, rm)
	tokens := services.NewTokenService(db, rm, issuer, c)

	app.handler = httpapi.NewHandler(httpapi.Services{
		Users:      services.NewUserService(db, rm, verifier, tokens, credits, c),
		Tokens:     tokens,
		Credits:    credits,
		Models:     services.NewModelService(db, rm, presigner),
		Jobs:       services.NewJobService(db, rm),
		Dispatcher: services.NewDispatcher(db, rm, credits, registry, presigner, c, logger),
		Reconciler: services.NewReconciler(db, rm, registry, cache, c, logger),
		Admin:      services.NewAdminService(db, rm, c),
	}, logger, strings.HasPrefix(c.PublicBaseURL, "https://"))

	return app, nil
}

// Close releases everything NewApp opened, in reverse order.
func (app *App) Close() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		app.closers[i]()
	}
	app.closers = nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpapi.NewServer(app.config.HTTPAddr, app.handler.Routes(), app.logger, app.config.ShutdownTimeout)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()
	app.logger.Info(ctx, "App stopped")
}
