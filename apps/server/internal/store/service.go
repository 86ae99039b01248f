package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"baccarat-road/apps/server/internal/config"
	"baccarat-road/road"
)

const defaultSessionLimit = 50

var ErrNotFound = errors.New("not found")

// Service persists sessions and their outcome and bet logs.
type Service interface {
	Close() error
	CreateSession(ctx context.Context) (string, error)
	CloseSession(ctx context.Context, sessionID string, endTime time.Time) error
	// ActiveSession returns the most recently started session that is not closed.
	ActiveSession(ctx context.Context) (string, bool, error)
	ListSessions(ctx context.Context, limit int) ([]SessionItem, error)

	InsertBetEvent(ctx context.Context, ev road.BetEvent) error
	// DeleteBetEventAt removes the newest non-historical bet of the session
	// carrying the given timestamp.
	DeleteBetEventAt(ctx context.Context, sessionID string, ts time.Time) error
	ListBetEvents(ctx context.Context, sessionID string) ([]road.BetEvent, error)

	// SaveOutcomeEvents replaces the outcome log of the session.
	SaveOutcomeEvents(ctx context.Context, sessionID string, events []road.OutcomeEvent) error
	ListOutcomeEvents(ctx context.Context, sessionID string) ([]road.OutcomeEvent, error)
}

type SessionItem struct {
	ID        string     `json:"id"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Outcomes  int        `json:"outcomes"`
	Bets      int        `json:"bets"`
}

// NewService opens the backend selected by cfg.Mode and returns it with its label.
func NewService(cfg config.StoreConfig) (Service, string, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Mode)) {
	case config.StoreModeMemory:
		return NewMemoryService(), "memory", nil
	case config.StoreModeSQLite, "":
		path := strings.TrimSpace(cfg.SQLitePath)
		if path == "" {
			p, err := defaultLocalDatabasePath()
			if err != nil {
				return nil, "", err
			}
			path = p
		}
		service, err := NewSQLiteService(path)
		if err != nil {
			return nil, "", err
		}
		return service, "sqlite", nil
	case config.StoreModePostgres:
		service, err := NewPostgresService(cfg.DSN)
		if err != nil {
			return nil, "", err
		}
		return service, "postgres", nil
	default:
		return nil, "", fmt.Errorf("unknown store mode %q", cfg.Mode)
	}
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return defaultSessionLimit
	}
	return limit
}
