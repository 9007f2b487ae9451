package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

const migrationsPath = "../../migrations"

func setupTestDB(t *testing.T) (*DB, func()) {
	if testing.Short() {
		t.Skip("skipping PostgreSQL container test in short mode")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("otoscan_test"),
		postgres.WithUsername("otoscan_test"),
		postgres.WithPassword("otoscan_test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}

	host, err := pgContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := pgContainer.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	config := Config{
		Type:     "postgres",
		Host:     host,
		Port:     port.Int(),
		User:     "otoscan_test",
		Password: "otoscan_test_password",
		Name:     "otoscan_test",
	}

	db, err := NewDB(config)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := db.RunMigrations(ctx, migrationsPath, zap.NewNop()); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		db.Close()

		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}

	return db, cleanup
}

func setupSQLiteDB(t *testing.T) (*DB, func()) {
	db, err := NewDB(Config{
		Type:       "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("Failed to create sqlite database: %v", err)
	}
	return db, func() { db.Close() }
}

// forEachDialect runs fn against SQLite and, outside short mode, PostgreSQL.
func forEachDialect(t *testing.T, fn func(t *testing.T, db *DB)) {
	t.Run("sqlite", func(t *testing.T) {
		db, cleanup := setupSQLiteDB(t)
		defer cleanup()
		fn(t, db)
	})
	t.Run("postgres", func(t *testing.T) {
		db, cleanup := setupTestDB(t)
		defer cleanup()
		fn(t, db)
	})
}
