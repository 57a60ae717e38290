package main

import (
	"context"
	"fmt"
	"os"

	"event-template-platform/internal/config"
	"event-template-platform/internal/database"
	"event-template-platform/internal/logging"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	var (
		statusFlag = pflag.Bool("status", false, "Show migration status")
		upFlag     = pflag.Bool("up", false, "Run pending migrations")
	)
	pflag.Parse()

	if !*statusFlag && !*upFlag {
		fmt.Println("Usage:")
		fmt.Println("  migrate --status   # Show migration status")
		fmt.Println("  migrate --up       # Run pending migrations")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load config:", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Server.Env, cfg.Log.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logging.Sync(logger)

	ctx := context.Background()
	db, err := database.NewConnection(ctx, database.ConfigFrom(cfg.Database), logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	switch {
	case *statusFlag:
		states, err := db.MigrationStatus(ctx)
		if err != nil {
			logger.Fatal("failed to get migration status", zap.Error(err))
		}
		for _, s := range states {
			mark := "pending"
			if s.Applied {
				mark = "applied"
			}
			fmt.Printf("%03d  %-40s %s\n", s.Version, s.Name, mark)
		}
	case *upFlag:
		if err := db.RunMigrations(ctx); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
		fmt.Println("All migrations completed successfully!")
	}
}
