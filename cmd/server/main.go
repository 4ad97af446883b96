package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jimdaga/tophive/internal/auth"
	"github.com/jimdaga/tophive/internal/briefings"
	"github.com/jimdaga/tophive/internal/catalog"
	"github.com/jimdaga/tophive/internal/companies"
	"github.com/jimdaga/tophive/internal/config"
	"github.com/jimdaga/tophive/internal/database"
	"github.com/jimdaga/tophive/internal/health"
	"github.com/jimdaga/tophive/internal/models"
	"github.com/jimdaga/tophive/internal/streams"
	"github.com/jimdaga/tophive/internal/webhook"
	"github.com/jimdaga/tophive/internal/worker"
	"github.com/redis/go-redis/v9"
)

// lookupIdleExpiry is how long a user's company searcher is kept unused
const lookupIdleExpiry = 30 * time.Minute

func main() {
	if err := run(); err != nil {
		slog.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	slog.SetDefault(worker.NewLogger(cfg.LogLevel, cfg.LogFormat))
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if cfg.EncryptionKey != "" {
		if err := models.InitEncryption(cfg.EncryptionKey); err != nil {
			return err
		}
	} else {
		slog.Warn("ENCRYPTION_KEY not set, OAuth tokens are stored unencrypted")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Init(cfg.DatabaseURL, database.PoolOptions{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		SlowQuery:       cfg.DBSlowQuery,
	})
	if err != nil {
		return err
	}
	defer database.Close(db)

	if err := database.RunMigrations(db); err != nil {
		return err
	}

	directory := companies.NewFixtureSource(cfg.LogoHost)
	if !cfg.IsProduction() {
		if snowflake, ok := directory.ByID("1"); ok {
			if err := database.SeedDevData(ctx, db, snowflake); err != nil {
				slog.Warn("Failed to seed development data", "error", err)
			}
		}
	}

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return err
	}

	checks := map[string]health.Check{
		"database": func(ctx context.Context) error { return database.Ping(ctx, db) },
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return err
		}
		rdb = redis.NewClient(opts)
		defer rdb.Close()
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	var source companies.Source = directory
	if cfg.LookupBaseURL != "" {
		source = companies.NewHTTPSource(cfg.LookupBaseURL, cfg.LogoHost, cfg.LookupRPS)
	}
	if rdb != nil {
		source = companies.NewCachedSource(source, rdb, cfg.LookupCacheTTL)
	}

	deps := briefings.Deps{
		Store:     briefings.NewStore(db),
		Generator: webhook.NewClient(cfg.N8NWebhookURL, cfg.N8NWebhookSecret, cfg.StubMode, cfg.FixtureLatency),
		Fallback:  webhook.NewFixture(0),
		Directory: directory,
		Catalog:   cat,
	}
	if rdb != nil {
		deps.Events = streams.NewPublisherWithClient(rdb)
	}

	async := cfg.GenerationMode == config.GenerationModeAsync
	if async {
		tasks, err := worker.NewClient(cfg.RedisURL)
		if err != nil {
			return err
		}
		defer tasks.Close()
		deps.Tasks = tasks
	}

	svc := briefings.NewService(deps)

	if cfg.RedisURL != "" {
		stopWorker, err := worker.Start(cfg, svc)
		if err != nil {
			return err
		}
		defer stopWorker()

		stopScheduler, err := worker.StartScheduler(cfg)
		if err != nil {
			return err
		}
		defer stopScheduler()

		stopConsumer, err := streams.StartResultConsumer(cfg.RedisURL, svc)
		if err != nil {
			return err
		}
		defer stopConsumer()
	}

	hubs := auth.NewHubs()
	router := newRouter(&app{
		sessionSecret: cfg.SessionSecret,
		secureCookies: cfg.IsProduction(),
		async:         async,
		oauth:         auth.InitProviders(cfg),
		manager:       auth.NewManager(db, hubs),
		hubs:          hubs,
		resolve:       auth.CookieResolver(db, hubs),
		briefings:     svc,
		catalog:       cat,
		lookups:       companies.NewPool(source, cfg.LookupDebounce, lookupIdleExpiry),
		checks:        checks,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "port", cfg.Port, "env", cfg.Env, "generation_mode", cfg.GenerationMode, "stub_mode", cfg.StubMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
