package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/pressly/goose/v3"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/EgehanKilicarslan/mbs-auth/internal/config"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

const (
	maxConnectRetries = 30
	connectRetryDelay = 2 * time.Second
)

// ConnectDatabase opens the PostgreSQL pool, retrying until the server is
// reachable, and applies pending migrations.
func ConnectDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*gorm.DB, error) {
	logger.Info("🔌 [Database] Connecting to PostgreSQL...",
		"host", cfg.PostgreSQL.Host,
		"port", cfg.PostgreSQL.Port,
		"database", cfg.PostgreSQL.Database,
	)

	gormCfg := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	}

	var db *gorm.DB
	var err error

	for i := 0; i < maxConnectRetries; i++ {
		db, err = gorm.Open(postgres.Open(cfg.PostgreSQL.DSN()), gormCfg)
		if err == nil {
			var sqlDB *sql.DB
			if sqlDB, err = db.DB(); err == nil {
				if err = sqlDB.PingContext(ctx); err == nil {
					break
				}
			}
		}

		if i < maxConnectRetries-1 {
			logger.Warn("⏳ [Database] Connection failed, retrying...",
				"attempt", i+1,
				"max_retries", maxConnectRetries,
				"retry_in", connectRetryDelay,
				"error", err,
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(connectRetryDelay):
			}
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL after %d attempts: %w", maxConnectRetries, err)
	}

	logger.Info("✅ [Database] Database connection established")

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	logger.Info("🔄 [Database] Running migrations...")
	if err := RunMigrations(ctx, sqlDB, "up"); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.Info("✅ [Database] Migrations completed successfully")

	return db, nil
}

// RunMigrations executes a goose command ("up", "down", "status", ...) against
// the embedded migration set.
func RunMigrations(ctx context.Context, sqlDB *sql.DB, command string, args ...string) error {
	goose.SetBaseFS(embedMigrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.RunContext(ctx, command, sqlDB, "migrations", args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}

	return nil
}
