package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"baccarat-road/road"
)

type memorySession struct {
	item     SessionItem
	outcomes []road.OutcomeEvent
	bets     []road.BetEvent
}

// MemoryService keeps everything in process. Used for tests and throwaway runs.
type MemoryService struct {
	mu       sync.RWMutex
	sessions map[string]*memorySession
	order    []string
}

func NewMemoryService() *MemoryService {
	return &MemoryService{sessions: make(map[string]*memorySession)}
}

func (m *MemoryService) Close() error { return nil }

func (m *MemoryService) CreateSession(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.NewString()
	m.sessions[id] = &memorySession{item: SessionItem{ID: id, StartedAt: time.Now().UTC()}}
	m.order = append(m.order, id)
	return id, nil
}

func (m *MemoryService) CloseSession(_ context.Context, sessionID string, endTime time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	end := endTime.UTC()
	s.item.EndedAt = &end
	return nil
}

func (m *MemoryService) ActiveSession(_ context.Context) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.order) - 1; i >= 0; i-- {
		s := m.sessions[m.order[i]]
		if s.item.EndedAt == nil {
			return s.item.ID, true, nil
		}
	}
	return "", false, nil
}

func (m *MemoryService) ListSessions(_ context.Context, limit int) ([]SessionItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	limit = clampLimit(limit)
	items := make([]SessionItem, 0, len(m.order))
	for i := len(m.order) - 1; i >= 0 && len(items) < limit; i-- {
		s := m.sessions[m.order[i]]
		item := s.item
		item.Outcomes = len(s.outcomes)
		item.Bets = len(s.bets)
		items = append(items, item)
	}
	return items, nil
}

func (m *MemoryService) InsertBetEvent(_ context.Context, ev road.BetEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.lookup(ev.SessionID)
	if err != nil {
		return err
	}
	ev.Timestamp = fromMillis(toMillis(ev.Timestamp))
	s.bets = append(s.bets, ev)
	return nil
}

func (m *MemoryService) DeleteBetEventAt(_ context.Context, sessionID string, ts time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.lookup(sessionID)
	if err != nil {
		return err
	}
	want := toMillis(ts)
	for i := len(s.bets) - 1; i >= 0; i-- {
		b := s.bets[i]
		if !b.Historical && toMillis(b.Timestamp) == want {
			s.bets = append(s.bets[:i], s.bets[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *MemoryService) ListBetEvents(_ context.Context, sessionID string) ([]road.BetEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return []road.BetEvent{}, nil
	}
	return append([]road.BetEvent{}, s.bets...), nil
}

func (m *MemoryService) SaveOutcomeEvents(_ context.Context, sessionID string, events []road.OutcomeEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.lookup(sessionID)
	if err != nil {
		return err
	}
	out := make([]road.OutcomeEvent, len(events))
	for i, ev := range events {
		ev.Seq = uint64(i)
		ev.SessionID = sessionID
		ev.Timestamp = fromMillis(toMillis(ev.Timestamp))
		out[i] = ev
	}
	s.outcomes = out
	return nil
}

func (m *MemoryService) ListOutcomeEvents(_ context.Context, sessionID string) ([]road.OutcomeEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return []road.OutcomeEvent{}, nil
	}
	out := append([]road.OutcomeEvent{}, s.outcomes...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func (m *MemoryService) lookup(sessionID string) (*memorySession, error) {
	s, ok := m.sessions[strings.TrimSpace(sessionID)]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	return s, nil
}
