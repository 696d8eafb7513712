package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLite holds the database connection for the durable sink
type SQLite struct {
	DB     *sql.DB
	Path   string
	Logger *zap.SugaredLogger
}

// NewSQLite opens (creating if necessary) the SQLite database at dbPath and
// runs schema migration. WAL mode keeps background sink writes from blocking
// reads.
func NewSQLite(dbPath string, logger *zap.SugaredLogger) (*SQLite, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	s := &SQLite{DB: db, Path: dbPath, Logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Infow("SQLite sink ready", "path", dbPath)
	return s, nil
}

// migrate creates the sink schema if it does not exist
func (s *SQLite) migrate() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS events (
			event_id TEXT PRIMARY KEY,
			timestamp TEXT NOT NULL,
			level TEXT NOT NULL,
			source TEXT NOT NULL,
			message TEXT NOT NULL,
			ip_address TEXT,
			user_agent TEXT,
			status_code INTEGER,
			response_time_ms INTEGER,
			thread_name TEXT,
			logger_name TEXT,
			metadata TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_events_level ON events(level)`,
		`CREATE TABLE IF NOT EXISTS alerts (
			alert_id TEXT PRIMARY KEY,
			created_at TEXT NOT NULL,
			severity TEXT NOT NULL,
			type TEXT NOT NULL,
			message TEXT NOT NULL,
			source TEXT NOT NULL,
			risk_score INTEGER NOT NULL,
			related_events TEXT,
			resolved INTEGER NOT NULL DEFAULT 0,
			resolved_by TEXT,
			resolved_at TEXT,
			resolution_notes TEXT,
			acknowledged INTEGER NOT NULL DEFAULT 0,
			acknowledged_by TEXT,
			acknowledged_at TEXT,
			acknowledgment_required INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_created_at ON alerts(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_resolved ON alerts(resolved)`,
	}

	for _, stmt := range schema {
		if _, err := s.DB.Exec(stmt); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}
	return nil
}

// Close closes the database connection
func (s *SQLite) Close() error {
	return s.DB.Close()
}
