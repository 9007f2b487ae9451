package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// migration is one numbered schema file, e.g. 002_create_classifications.sql.
type migration struct {
	version int
	file    string
	sql     string
}

// MigrationStatus reports whether a schema file has been applied.
type MigrationStatus struct {
	Version int
	File    string
	Applied bool
}

// Migrator applies the numbered SQL files in dir to a PostgreSQL database.
// SQLite schemas are created on connect, so it is a no-op there.
type Migrator struct {
	db     *DB
	dir    string
	logger *zap.Logger
}

func NewMigrator(db *DB, dir string, logger *zap.Logger) *Migrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Migrator{db: db, dir: dir, logger: logger}
}

// Migrate applies pending files in version order, each in its own
// transaction, and returns how many it applied.
func (m *Migrator) Migrate(ctx context.Context) (int, error) {
	if m.db.dbType != "postgres" {
		m.logger.Debug("schema managed on connect, skipping migrations", zap.String("db_type", m.db.dbType))
		return 0, nil
	}

	pending, err := m.pending(ctx)
	if err != nil {
		return 0, err
	}

	for i, mg := range pending {
		if err := m.apply(ctx, mg); err != nil {
			return i, err
		}
	}

	if len(pending) == 0 {
		m.logger.Info("schema up to date")
	} else {
		m.logger.Info("applied migrations", zap.Int("count", len(pending)))
	}
	return len(pending), nil
}

// Status lists every schema file with its applied state.
func (m *Migrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	if m.db.dbType != "postgres" {
		return nil, fmt.Errorf("migration status is only tracked for postgres, not %s", m.db.dbType)
	}

	files, err := loadMigrations(m.dir)
	if err != nil {
		return nil, err
	}
	applied, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]MigrationStatus, 0, len(files))
	for _, mg := range files {
		out = append(out, MigrationStatus{Version: mg.version, File: mg.file, Applied: applied[mg.version]})
	}
	return out, nil
}

func (m *Migrator) pending(ctx context.Context) ([]migration, error) {
	files, err := loadMigrations(m.dir)
	if err != nil {
		return nil, err
	}
	applied, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}

	var pending []migration
	for _, mg := range files {
		if !applied[mg.version] {
			pending = append(pending, mg)
		}
	}
	return pending, nil
}

func (m *Migrator) applied(ctx context.Context) (map[int]bool, error) {
	const ddl = `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`
	if _, err := m.db.conn.ExecContext(ctx, ddl); err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}

	rows, err := m.db.conn.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("query schema_migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan schema version: %w", err)
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

func (m *Migrator) apply(ctx context.Context, mg migration) error {
	tx, err := m.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s: %w", mg.file, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, mg.sql); err != nil {
		return fmt.Errorf("execute %s: %w", mg.file, err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", mg.version); err != nil {
		return fmt.Errorf("record %s: %w", mg.file, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", mg.file, err)
	}

	m.logger.Info("applied migration", zap.String("file", mg.file), zap.Int("version", mg.version))
	return nil
}

// loadMigrations reads "<number>_<name>.sql" files from dir ordered by their
// numeric prefix. Other files are ignored; a repeated number is an error.
func loadMigrations(dir string) ([]migration, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	seen := make(map[int]string)
	var out []migration
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".sql" {
			continue
		}
		prefix, _, ok := strings.Cut(e.Name(), "_")
		if !ok {
			continue
		}
		version, err := strconv.Atoi(prefix)
		if err != nil {
			continue
		}
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("migrations %s and %s share version %d", prev, e.Name(), version)
		}
		seen[version] = e.Name()

		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		out = append(out, migration{version: version, file: e.Name(), sql: string(data)})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].version < out[j].version })
	return out, nil
}
