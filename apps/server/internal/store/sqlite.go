package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const defaultLocalDBName = "baccarat_road.db"

var sqliteSchema = []string{
	`
CREATE TABLE IF NOT EXISTS road_sessions (
    id TEXT PRIMARY KEY,
    created_seq INTEGER NOT NULL UNIQUE,
    started_at_ms INTEGER NOT NULL,
    ended_at_ms INTEGER
)`,
	`
CREATE TABLE IF NOT EXISTS road_outcome_events (
    session_id TEXT NOT NULL REFERENCES road_sessions(id) ON DELETE CASCADE,
    seq INTEGER NOT NULL,
    symbol TEXT NOT NULL,
    ts_ms INTEGER NOT NULL,
    PRIMARY KEY (session_id, seq)
)`,
	`
CREATE TABLE IF NOT EXISTS road_bet_events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL REFERENCES road_sessions(id) ON DELETE CASCADE,
    ts_ms INTEGER NOT NULL,
    symbol TEXT NOT NULL,
    historical INTEGER NOT NULL DEFAULT 0
)`,
	`CREATE INDEX IF NOT EXISTS idx_road_bet_events_session ON road_bet_events(session_id, id)`,
	`CREATE INDEX IF NOT EXISTS idx_road_sessions_open ON road_sessions(ended_at_ms, created_seq DESC)`,
}

// Only one connection is open, so MAX+1 cannot race.
const sqliteNextSeq = `(SELECT COALESCE(MAX(created_seq), 0) + 1 FROM road_sessions)`

type SQLiteService struct {
	sqlService
}

func NewSQLiteService(dbPath string) (*SQLiteService, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, fmt.Errorf("empty sqlite database path")
	}
	if dbPath != ":memory:" {
		parent := filepath.Dir(dbPath)
		if parent != "" && parent != "." {
			if err := os.MkdirAll(parent, 0o755); err != nil {
				return nil, err
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// :memory: databases live per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	pragmas := []string{
		`PRAGMA busy_timeout = 5000;`,
		`PRAGMA journal_mode = WAL;`,
		`PRAGMA foreign_keys = ON;`,
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ensureSchema(ctx, db, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteService{sqlService{db: db, nextSeq: sqliteNextSeq}}, nil
}

func defaultLocalDatabasePath() (string, error) {
	userConfigDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(userConfigDir, "BaccaratRoad", defaultLocalDBName), nil
}
