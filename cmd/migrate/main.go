package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"go.uber.org/zap"

	"github.com/kdimtricp/otoscan/internal/app"
	"github.com/kdimtricp/otoscan/internal/config"
	"github.com/kdimtricp/otoscan/internal/database"
	"github.com/kdimtricp/otoscan/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	status := bindFlags(flag.CommandLine, cfg)
	flag.Parse()

	zl, err := logger.New(cfg.LogLevel, "console")
	if err != nil {
		log.Fatal("Failed to create logger:", err)
	}
	defer zl.Sync()

	db, err := database.NewDB(app.DatabaseConfig(cfg))
	if err != nil {
		zl.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if cfg.DBType != "postgres" {
		fmt.Println("SQLite schema is created on connect; nothing to migrate.")
		return
	}

	ctx := context.Background()
	migrator := database.NewMigrator(db, cfg.MigrationsPath, zl)

	if *status {
		statuses, err := migrator.Status(ctx)
		if err != nil {
			zl.Fatal("failed to read migration status", zap.Error(err))
		}

		fmt.Println("Migration Status:")
		fmt.Println("=================")
		for _, s := range statuses {
			state := "pending"
			if s.Applied {
				state = "applied"
			}
			fmt.Printf("%03d - %s [%s]\n", s.Version, s.File, state)
		}
		return
	}

	fmt.Printf("Running migrations from %s...\n", cfg.MigrationsPath)
	n, err := migrator.Migrate(ctx)
	if err != nil {
		zl.Fatal("failed to run migrations", zap.Error(err))
	}
	fmt.Printf("Migrations completed successfully! (%d applied)\n", n)
}

// bindFlags registers the database flags on fs. Each flag defaults to the
// value already loaded from the environment, so an explicit flag wins.
func bindFlags(fs *flag.FlagSet, cfg *config.Config) *bool {
	fs.StringVar(&cfg.DBType, "db", cfg.DBType, "Database type (postgres or sqlite)")
	fs.StringVar(&cfg.DBHost, "host", cfg.DBHost, "Database host")
	fs.IntVar(&cfg.DBPort, "port", cfg.DBPort, "Database port")
	fs.StringVar(&cfg.DBUser, "user", cfg.DBUser, "Database user")
	fs.StringVar(&cfg.DBPassword, "password", cfg.DBPassword, "Database password")
	fs.StringVar(&cfg.DBName, "name", cfg.DBName, "Database name")
	fs.StringVar(&cfg.DBPath, "path", cfg.DBPath, "SQLite database path")
	fs.StringVar(&cfg.MigrationsPath, "migrations", cfg.MigrationsPath, "Path to migrations directory")
	return fs.Bool("status", false, "Show migration status only")
}
