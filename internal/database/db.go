package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

type DB struct {
	conn   *sql.DB
	gorm   *gorm.DB
	dbType string
}

type Config struct {
	Type       string
	Host       string
	Port       int
	User       string
	Password   string
	Name       string
	SQLitePath string
}

func NewDB(config Config) (*DB, error) {
	var conn *sql.DB
	var err error

	switch config.Type {
	case "sqlite":
		conn, err = sql.Open("sqlite3", config.SQLitePath+"?_busy_timeout=5000")
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			config.Host, config.Port, config.User, config.Password, config.Name)
		conn, err = sql.Open("pgx", dsn)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", config.Type)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	gormDB, err := openGORM(conn, config.Type)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open gorm: %w", err)
	}

	db := &DB{conn: conn, gorm: gormDB, dbType: config.Type}

	// Only create tables for SQLite; PostgreSQL is migrated from files.
	if config.Type == "sqlite" {
		if err := db.createTables(); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to create tables: %w", err)
		}
	}

	return db, nil
}

func openGORM(conn *sql.DB, dbType string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if dbType == "postgres" {
		dialector = postgres.New(postgres.Config{Conn: conn})
	} else {
		dialector = sqlite.Dialector{Conn: conn}
	}

	return gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
}

func (db *DB) createTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS doctors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		mobile_number TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		email TEXT NOT NULL,
		hospital_name TEXT NOT NULL,
		doctor_id_number TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS classifications (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		filename TEXT,
		prediction TEXT,
		best_accuracy REAL,
		best_frame_label TEXT,
		frame_count INTEGER,
		counts TEXT,
		image_key TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS frame_predictions (
		id TEXT PRIMARY KEY,
		classification_id TEXT NOT NULL REFERENCES classifications(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		frame_index INTEGER NOT NULL,
		label TEXT NOT NULL,
		confidence REAL NOT NULL,
		probabilities TEXT,
		created_at DATETIME NOT NULL,
		UNIQUE (classification_id, position)
	);
	`

	_, err := db.conn.Exec(query)
	return err
}

// RunMigrations brings a PostgreSQL schema up to date from migrationsPath.
func (db *DB) RunMigrations(ctx context.Context, migrationsPath string, logger *zap.Logger) error {
	_, err := NewMigrator(db, migrationsPath, logger).Migrate(ctx)
	return err
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Conn() *sql.DB {
	return db.conn
}

func (db *DB) GORM() *gorm.DB {
	return db.gorm
}

func (db *DB) Type() string {
	return db.dbType
}
