package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/frameview/internal/catalog"
	"github.com/JonMunkholm/frameview/internal/config"
	"github.com/JonMunkholm/frameview/internal/core"
	"github.com/JonMunkholm/frameview/internal/logging"
	"github.com/JonMunkholm/frameview/internal/source"
	"github.com/JonMunkholm/frameview/internal/web"
)

func main() {
	// Load .env file if it exists; real environment variables win.
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	cleanup := logging.Setup(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.SeqURL)
	defer cleanup()

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"source_dir", cfg.Source.Dir,
		"upload_max_concurrent", cfg.Upload.MaxConcurrent,
		"postgres", cfg.Database.PostgresEnabled(),
		"mysql", cfg.Database.MySQLEnabled(),
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	service := core.NewService(core.Config{
		Source: source.Options{
			MaxTables: cfg.Sharing.MaxTables,
			Timeout:   cfg.Sharing.Timeout,
		},
		Database: source.Options{
			MaxTables: cfg.Database.MaxTables,
			RowLimit:  cfg.Database.RowLimit,
		},
		MaxUploadSize: cfg.Upload.MaxFileSize,
		MaxSessions:   cfg.View.MaxSessions,
		MaxConcurrent: cfg.Upload.MaxConcurrent,
		MaxWait:       cfg.Upload.MaxWaitTime,
		LoadTimeout:   cfg.Upload.Timeout,
	}, catalog.NewCache(cfg.View.CacheSize))

	ctx := context.Background()

	if cfg.Source.AutoLoad {
		autoLoad(ctx, service, cfg)
	}

	if cfg.Database.PostgresEnabled() {
		pool, err := openPostgres(ctx, cfg)
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
		} else {
			defer pool.Close()
			service.LoadPostgres(ctx, pool, cfg.Database.Schema)
		}
	}

	if cfg.Database.MySQLEnabled() {
		db, err := source.OpenMySQL(cfg.Database.MySQLDSN)
		if err != nil {
			slog.Error("failed to connect to mysql", "error", err)
		} else {
			defer db.Close()
			applyPoolLimits(db, cfg)
			service.LoadMySQL(ctx, db, source.MySQLDatabase(cfg.Database.MySQLDSN))
		}
	}

	server := web.NewServer(service, cfg)

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if status := service.LimiterStatus(); status.Active > 0 {
			slog.Info("waiting for loads to complete", "active", status.Active)
			if err := service.WaitForLoads(shutdownCtx); err != nil {
				slog.Warn("loads did not complete in time", "error", err)
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(cfg.Server.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		return
	}
	<-done
}

// autoLoad loads SOURCE_PATH when set, otherwise the first bundle in SOURCE_DIR.
func autoLoad(ctx context.Context, service *core.Service, cfg *config.Config) {
	if cfg.Source.Path != "" {
		service.LoadDefault(ctx, cfg.Source.Path)
		return
	}
	if _, err := service.AutoLoad(ctx, cfg.Source.Dir); err != nil {
		slog.Warn("auto-load skipped", "dir", cfg.Source.Dir, "error", err)
	}
}

func openPostgres(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, err
	}

	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func applyPoolLimits(db *sql.DB, cfg *config.Config) {
	db.SetMaxOpenConns(cfg.Database.MaxConns)
	db.SetMaxIdleConns(cfg.Database.MaxConns)
	db.SetConnMaxLifetime(cfg.Database.MaxConnLifetime)
	db.SetConnMaxIdleTime(cfg.Database.MaxConnIdleTime)
}
