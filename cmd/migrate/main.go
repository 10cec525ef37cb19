package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/lib/pq"

	"github.com/EgehanKilicarslan/mbs-auth/internal/config"
	"github.com/EgehanKilicarslan/mbs-auth/internal/database"
	"github.com/EgehanKilicarslan/mbs-auth/internal/logger"
)

const usage = "usage: migrate [up|down|status|version|reset] [args...]"

func main() {
	command := "up"
	var args []string
	if len(os.Args) > 1 {
		command = os.Args[1]
		args = os.Args[2:]
	}

	switch command {
	case "up", "down", "status", "version", "reset", "up-to", "down-to", "redo":
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Invalid configuration: %v\n", err)
		os.Exit(1)
	}
	appLogger := logger.New(cfg)

	db, err := sql.Open("postgres", cfg.PostgreSQL.DSN())
	if err != nil {
		appLogger.Error("❌ Failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		appLogger.Error("❌ Failed to reach database", "error", err)
		os.Exit(1)
	}

	appLogger.Info("🔄 [Migrate] Running goose command", "command", command, "args", args)
	if err := database.RunMigrations(ctx, db, command, args...); err != nil {
		appLogger.Error("❌ [Migrate] Migration failed", "error", err)
		os.Exit(1)
	}
	appLogger.Info("✅ [Migrate] Done", "command", command)
}
