// Command imsd runs the Incident Management System server: the JSON
// API under /ims/api/, the server-sent-event stream, and a Prometheus
// /metrics endpoint. main wires high-level dependencies and keeps the
// server lifecycle small; business logic lives in internal/ packages.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"ims/internal/api"
	"ims/internal/auth"
	"ims/internal/auth/jwttoken"
	"ims/internal/auth/revocation"
	"ims/internal/config"
	"ims/internal/directory"
	"ims/internal/directory/sqlfile"
	"ims/internal/directory/yamlfile"
	"ims/internal/eventbus"
	"ims/internal/obsv/audittrail"
	"ims/internal/obsv/metrics"
	"ims/internal/store"
	"ims/internal/store/memory"
	"ims/internal/store/postgres"
	"ims/pkg/middleware"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "imsd:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("deployment", cfg.Deployment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	bus := eventbus.New()
	sinks := store.Fanout{bus}

	if len(cfg.KafkaBrokers) > 0 {
		trail, err := audittrail.New(ctx, cfg.KafkaBrokers, cfg.AuditTopic, logger)
		if err != nil {
			return fmt.Errorf("connect audit trail: %w", err)
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = trail.Close(flushCtx)
		}()
		sinks = append(sinks, trail)
	}

	st, db, err := buildStore(ctx, cfg, sinks)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}
	if err := seedIncidentTypes(ctx, st, cfg.EventTypesSeed); err != nil {
		return fmt.Errorf("seed incident types: %w", err)
	}

	dir, err := buildDirectory(cfg, logger)
	if err != nil {
		return err
	}
	go sampleBreaker(ctx, dir, m)

	revocations, redisClient, err := buildRevocations(ctx, cfg, db)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	tokens := jwttoken.New(cfg.JWTSigningKey, "ims")
	provider := auth.NewProvider(st, cfg.Admins)

	surface := api.New(api.Deps{
		Logger:        logger,
		Store:         st,
		Directory:     dir,
		Provider:      provider,
		Tokens:        tokens,
		Revocations:   revocations,
		Bus:           bus,
		Metrics:       m,
		TokenLifetime: cfg.TokenLifetime,
		Deployment:    cfg.Deployment,
	})

	root := chi.NewRouter()
	root.Mount("/", surface.Router())
	root.Handle("/metrics", middleware.Chain(middleware.Recovery(logger))(promhttp.Handler()))

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           root,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("imsd listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	logger.Info("imsd stopped")
	return nil
}

// buildStore selects the Postgres store when a database URL is
// configured and falls back to the in-memory store for local
// development. The returned *sql.DB is nil in the memory case.
func buildStore(ctx context.Context, cfg config.Config, sink store.Sink) (store.Store, *sql.DB, error) {
	if cfg.DatabaseURL == "" {
		return memory.New(memory.WithSink(sink)), nil, nil
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}
	if err := postgres.Migrate(db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate database: %w", err)
	}

	st, err := postgres.New(ctx, db, postgres.WithSink(sink))
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("initialize store: %w", err)
	}
	return st, db, nil
}

// sampleBreaker mirrors the personnel breaker's state into the
// ims_directory_breaker_open gauge.
func sampleBreaker(ctx context.Context, dir *directory.DegradingDirectory, m *metrics.Metrics) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.SetDirectoryBreakerOpen(dir.Breaker().IsOpen())
		}
	}
}

// buildDirectory constructs the configured personnel backend, wrapped
// with the personnel cache and the degrading circuit breaker. The SQL
// roster is a separate database from the IMS store and is opened via
// the pgx stdlib driver.
func buildDirectory(cfg config.Config, logger *slog.Logger) (*directory.DegradingDirectory, error) {
	var backend directory.Directory
	switch cfg.DirectoryBackend {
	case "yamlfile":
		backend = yamlfile.New(cfg.DirectoryPath, cfg.MasterKey)
	case "sqlfile":
		rosterDB, err := sql.Open("pgx", cfg.RosterDatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open roster database: %w", err)
		}
		backend = sqlfile.New(rosterDB, cfg.MasterKey)
	default:
		return nil, fmt.Errorf("unknown directory backend %q", cfg.DirectoryBackend)
	}

	cached := directory.NewCaching(backend, cfg.PersonnelCacheInterval)
	return directory.NewDegrading(cached, logger), nil
}

// buildRevocations picks the widest-visibility revocation list
// available: Redis when configured, then the store database, then
// process memory.
func buildRevocations(ctx context.Context, cfg config.Config, db *sql.DB) (revocation.List, *redis.Client, error) {
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("parse redis URL: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		return revocation.NewRedisList(client), client, nil
	}
	if db != nil {
		return revocation.NewPostgresList(db), nil, nil
	}
	return revocation.NewMemoryList(), nil, nil
}

func seedIncidentTypes(ctx context.Context, st store.Store, seed []string) error {
	for _, name := range seed {
		if err := st.CreateIncidentType(ctx, name, false); err != nil {
			return err
		}
	}
	return nil
}
