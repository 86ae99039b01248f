package session

import (
	"context"
	"fmt"
	"log"
	"time"

	"baccarat-road/road"
)

// load resolves the active session and resumes the engine from persisted logs.
// Outcomes prefer the preference store; bets always come from the store.
func (s *Session) load(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*storeTimeout)
	defer cancel()

	id, err := s.resolveSessionID(ctx)
	if err != nil {
		return err
	}
	s.id = id

	outcomes, ok, err := s.prefs.LoadOutcomes(ctx, id)
	if err != nil {
		log.Printf("[Prefs] load outcomes failed: session=%s err=%v", id, err)
		ok = false
	}
	if !ok {
		outcomes, err = s.store.ListOutcomeEvents(ctx, id)
		if err != nil {
			return fmt.Errorf("list outcomes: %w", err)
		}
	}
	bets, err := s.store.ListBetEvents(ctx, id)
	if err != nil {
		return fmt.Errorf("list bets: %w", err)
	}

	s.engine.Resume(outcomes)
	s.engine.ResumeBets(bets)
	if n := len(outcomes); n > 0 {
		s.lastTs = outcomes[n-1].Timestamp
	}

	if start, ok, err := s.prefs.TimerStart(ctx); err != nil {
		log.Printf("[Prefs] load timer failed: err=%v", err)
	} else if ok {
		s.timerStart = start
	}

	if err := s.prefs.SetActiveSession(ctx, id); err != nil {
		log.Printf("[Prefs] set active session failed: session=%s err=%v", id, err)
	}
	return nil
}

func (s *Session) resolveSessionID(ctx context.Context) (string, error) {
	if id, ok, err := s.prefs.ActiveSession(ctx); err != nil {
		log.Printf("[Prefs] active session lookup failed: err=%v", err)
	} else if ok {
		return id, nil
	}
	if id, ok, err := s.store.ActiveSession(ctx); err != nil {
		return "", fmt.Errorf("active session: %w", err)
	} else if ok {
		return id, nil
	}
	id, err := s.store.CreateSession(ctx)
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	log.Printf("[Session %s] Created", id)
	return id, nil
}

// Outcomes and Bets return copies of the in-memory logs.
func (s *Session) Outcomes() []road.OutcomeEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine.Outcomes()
}

func (s *Session) Bets() []road.BetEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine.Bets()
}

func (s *Session) timerStateLocked(now time.Time) TimerState {
	ts := TimerState{
		ReminderSec: int64(s.reminder / time.Second),
	}
	if s.timerStart.IsZero() {
		return ts
	}
	start := s.timerStart
	ts.Running = true
	ts.StartedAt = &start
	ts.ElapsedMs = now.Sub(start).Milliseconds()
	ts.ReminderDue = s.reminderDue
	return ts
}
