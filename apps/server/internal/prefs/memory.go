package prefs

import (
	"context"
	"sync"
	"time"

	"baccarat-road/road"
)

type MemoryStore struct {
	mu         sync.RWMutex
	outcomes   []byte
	active     string
	timerStart time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) SaveOutcomes(_ context.Context, sessionID string, events []road.OutcomeEvent) error {
	raw, err := encodeOutcomes(sessionID, events)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.outcomes = raw
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) LoadOutcomes(_ context.Context, sessionID string) ([]road.OutcomeEvent, bool, error) {
	m.mu.RLock()
	raw := m.outcomes
	m.mu.RUnlock()
	if raw == nil {
		return nil, false, nil
	}
	owner, events, err := decodeOutcomes(raw)
	if err != nil {
		return nil, false, err
	}
	if owner != sessionID {
		return nil, false, nil
	}
	return events, true, nil
}

func (m *MemoryStore) SetActiveSession(_ context.Context, sessionID string) error {
	m.mu.Lock()
	m.active = sessionID
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) ActiveSession(_ context.Context) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active, m.active != "", nil
}

func (m *MemoryStore) SetTimerStart(_ context.Context, start time.Time) error {
	m.mu.Lock()
	m.timerStart = start
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) TimerStart(_ context.Context) (time.Time, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.timerStart, !m.timerStart.IsZero(), nil
}
