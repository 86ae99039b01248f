package prefs

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"baccarat-road/apps/server/internal/config"
	"baccarat-road/road"
	"baccarat-road/symbol"
)

// Store keeps the small pieces of state that survive a restart: the current
// outcome list, the active session id and the timer start.
type Store interface {
	Close() error
	SaveOutcomes(ctx context.Context, sessionID string, events []road.OutcomeEvent) error
	// LoadOutcomes returns ok=false when nothing was saved for sessionID.
	LoadOutcomes(ctx context.Context, sessionID string) ([]road.OutcomeEvent, bool, error)
	SetActiveSession(ctx context.Context, sessionID string) error
	ActiveSession(ctx context.Context) (string, bool, error)
	// SetTimerStart with a zero time clears the timer.
	SetTimerStart(ctx context.Context, start time.Time) error
	TimerStart(ctx context.Context) (time.Time, bool, error)
}

func NewStore(cfg config.PrefsConfig) (Store, string, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Mode)) {
	case config.PrefsModeMemory, "":
		return NewMemoryStore(), "memory", nil
	case config.PrefsModeRedis:
		s, err := NewRedisStore(cfg)
		if err != nil {
			return nil, "", err
		}
		return s, "redis", nil
	default:
		return nil, "", fmt.Errorf("unknown prefs mode %q", cfg.Mode)
	}
}

// outcomeRecord is the stored form of the outcome list.
type outcomeRecord struct {
	SessionID string  `json:"session_id"`
	Letters   string  `json:"letters"`
	TsMs      []int64 `json:"ts_ms"`
}

func encodeOutcomes(sessionID string, events []road.OutcomeEvent) ([]byte, error) {
	rec := outcomeRecord{SessionID: sessionID, TsMs: make([]int64, len(events))}
	letters := make([]byte, len(events))
	for i, ev := range events {
		letters[i] = ev.Symbol.Letter()
		rec.TsMs[i] = ev.Timestamp.UnixMilli()
	}
	rec.Letters = string(letters)
	return json.Marshal(rec)
}

func decodeOutcomes(raw []byte) (string, []road.OutcomeEvent, error) {
	var rec outcomeRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return "", nil, err
	}
	if len(rec.TsMs) != len(rec.Letters) {
		return "", nil, fmt.Errorf("outcome record length mismatch: letters=%d ts=%d", len(rec.Letters), len(rec.TsMs))
	}
	list, err := symbol.ParseList(rec.Letters)
	if err != nil {
		return "", nil, err
	}
	events := make([]road.OutcomeEvent, len(list))
	for i, s := range list {
		events[i] = road.OutcomeEvent{
			Seq:       uint64(i),
			Symbol:    s,
			Timestamp: time.UnixMilli(rec.TsMs[i]).UTC(),
			SessionID: rec.SessionID,
		}
	}
	return rec.SessionID, events, nil
}
