package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/strandnet/console/internal/config"
	"github.com/strandnet/console/internal/database"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: migrate <up|down|status>")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	dsn := cfg.Database.DSN()

	switch os.Args[1] {
	case "up":
		if err := database.RunMigrations(dsn); err != nil {
			logger.Error("migrations failed", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("migrations applied")
	case "down":
		if err := database.MigrateDown(dsn); err != nil {
			logger.Error("rollback failed", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("migration rolled back")
	case "status":
		if err := database.MigrationStatus(dsn); err != nil {
			logger.Error("failed to read migration status", slog.Any("error", err))
			os.Exit(1)
		}
	default:
		fmt.Fprintln(os.Stderr, "usage: migrate <up|down|status>")
		os.Exit(2)
	}
}
