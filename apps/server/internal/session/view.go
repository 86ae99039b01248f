package session

import (
	"context"
	"sync"
	"time"

	"baccarat-road/replay"
	"baccarat-road/road"
)

// View is the read model published after every mutation. It never aliases
// engine memory.
type View struct {
	SessionID string        `json:"session_id"`
	Version   uint64        `json:"version"`
	Road      road.Snapshot `json:"road"`
	Timer     TimerState    `json:"timer"`
}

type TimerState struct {
	Running     bool       `json:"running"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	ElapsedMs   int64      `json:"elapsed_ms"`
	ReminderSec int64      `json:"reminder_sec"`
	ReminderDue bool       `json:"reminder_due"`
}

// cell holds the latest View and fans it out to subscribers.
type cell struct {
	mu      sync.RWMutex
	current View
	version uint64
	nextID  int
	subs    map[int]func(View)
}

func newCell() *cell {
	return &cell{subs: make(map[int]func(View))}
}

func (c *cell) set(v View) {
	c.mu.Lock()
	c.version++
	v.Version = c.version
	c.current = v
	fns := make([]func(View), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

func (c *cell) get() View {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

func (c *cell) subscribe(fn func(View)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
		})
	}
}

// Subscribe registers fn for every future View. fn runs on the actor
// goroutine and must not submit events synchronously.
func (s *Session) Subscribe(fn func(View)) (cancel func()) {
	return s.cell.subscribe(fn)
}

// View returns the most recently published read model.
func (s *Session) View() View {
	return s.cell.get()
}

func (s *Session) publish() {
	s.mu.RLock()
	v := View{
		SessionID: s.id,
		Road:      s.engine.Snapshot(),
		Timer:     s.timerStateLocked(s.now()),
	}
	s.mu.RUnlock()
	s.cell.set(v)
}

// Tape exports the current session as a replay tape.
func (s *Session) Tape() *replay.Tape {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return replay.FromLogs(s.id, s.engine.Config(), s.engine.Outcomes(), s.engine.Bets())
}

// TapeFor exports any stored session. The live session is served from memory
// so writes still queued are included.
func (s *Session) TapeFor(ctx context.Context, sessionID string) (*replay.Tape, error) {
	if sessionID == s.ID() {
		return s.Tape(), nil
	}
	outcomes, err := s.store.ListOutcomeEvents(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	bets, err := s.store.ListBetEvents(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return replay.FromLogs(sessionID, s.engine.Config(), outcomes, bets), nil
}
