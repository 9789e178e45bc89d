package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Config describes how to reach the SQL database
type Config struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Connect opens the database, applies pool settings and creates the schema
func Connect(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	switch cfg.Driver {
	case DriverSQLite:
		if err := ensureDataDir(cfg.DSN); err != nil {
			return nil, err
		}
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", cfg.Driver)
	}

	db, err := sqlx.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.Driver == DriverSQLite {
		// SQLite doesn't support multiple writers
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		if cfg.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			db.SetMaxIdleConns(cfg.MaxIdleConns)
		}
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// ensureDataDir creates the directory holding a file-backed SQLite database
func ensureDataDir(dsn string) error {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return nil
}

// Migrate creates the tables if they don't exist
func Migrate(ctx context.Context, db *sqlx.DB) error {
	serial := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if db.DriverName() == DriverPostgres {
		serial = "BIGSERIAL PRIMARY KEY"
	}

	statements := []struct {
		name  string
		query string
	}{
		{"users", `
			CREATE TABLE IF NOT EXISTS users (
				id BIGINT PRIMARY KEY,
				username TEXT NOT NULL DEFAULT '',
				first_name TEXT NOT NULL DEFAULT '',
				last_name TEXT NOT NULL DEFAULT '',
				source_lang TEXT NOT NULL DEFAULT 'en',
				target_lang TEXT NOT NULL DEFAULT 'es',
				notification_enabled BOOLEAN NOT NULL DEFAULT TRUE,
				notification_hour INTEGER NOT NULL DEFAULT 9,
				items_per_session INTEGER NOT NULL DEFAULT 10,
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL
			)`},
		{"translations", `
			CREATE TABLE IF NOT EXISTS translations (
				id TEXT PRIMARY KEY,
				user_id BIGINT NOT NULL,
				source_text TEXT NOT NULL,
				target_text TEXT NOT NULL,
				source_lang TEXT NOT NULL,
				target_lang TEXT NOT NULL,
				frequency INTEGER NOT NULL DEFAULT 1,
				last_translated TIMESTAMP NOT NULL,
				created_at TIMESTAMP NOT NULL,
				UNIQUE (user_id, source_text, target_text, source_lang, target_lang)
			)`},
		{"review_items", `
			CREATE TABLE IF NOT EXISTS review_items (
				id TEXT PRIMARY KEY,
				user_id BIGINT NOT NULL,
				kind TEXT NOT NULL,
				translation_id TEXT NOT NULL DEFAULT '',
				source_text TEXT NOT NULL,
				target_text TEXT NOT NULL,
				category TEXT NOT NULL DEFAULT '',
				recall_strength DOUBLE PRECISION NOT NULL DEFAULT 2.5,
				interval_days INTEGER NOT NULL DEFAULT 1,
				streak INTEGER NOT NULL DEFAULT 0,
				next_review_at TIMESTAMP NOT NULL,
				created_at TIMESTAMP NOT NULL,
				last_reviewed_at TIMESTAMP NULL,
				version BIGINT NOT NULL DEFAULT 1
			)`},
		{"review_items_user_index", `
			CREATE INDEX IF NOT EXISTS review_items_user_idx ON review_items (user_id, next_review_at)`},
		{"user_progress", `
			CREATE TABLE IF NOT EXISTS user_progress (
				user_id BIGINT PRIMARY KEY,
				total_translations INTEGER NOT NULL DEFAULT 0,
				unique_words INTEGER NOT NULL DEFAULT 0,
				reviews_done INTEGER NOT NULL DEFAULT 0,
				streak_days INTEGER NOT NULL DEFAULT 0,
				longest_streak INTEGER NOT NULL DEFAULT 0,
				last_active TIMESTAMP NULL,
				xp INTEGER NOT NULL DEFAULT 0,
				level TEXT NOT NULL DEFAULT 'beginner',
				badges TEXT NOT NULL DEFAULT '[]',
				daily_activity TEXT NOT NULL DEFAULT '{}',
				updated_at TIMESTAMP NOT NULL
			)`},
		{"quiz_results", `
			CREATE TABLE IF NOT EXISTS quiz_results (
				id ` + serial + `,
				user_id BIGINT NOT NULL,
				quiz_kind TEXT NOT NULL,
				total_questions INTEGER NOT NULL,
				correct_answers INTEGER NOT NULL,
				taken_at TIMESTAMP NOT NULL
			)`},
	}

	for _, s := range statements {
		if _, err := db.ExecContext(ctx, s.query); err != nil {
			return fmt.Errorf("failed to create %s: %w", s.name, err)
		}
	}

	return nil
}
