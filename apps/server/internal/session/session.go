package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"baccarat-road/apps/server/internal/prefs"
	"baccarat-road/apps/server/internal/store"
	"baccarat-road/road"
	"baccarat-road/symbol"
)

// Session is the single writer for one road engine. Every mutation runs on
// the actor goroutine; readers get immutable Views.
type Session struct {
	mu       sync.RWMutex
	engine   *road.Engine
	id       string
	closed   bool
	stopOnce sync.Once
	lastTs   time.Time

	// Pacing timer.
	timerStart  time.Time
	reminder    time.Duration
	reminderDue bool

	// Event channel for actor pattern
	events chan Event
	done   chan struct{}

	store   store.Service
	prefs   prefs.Store
	persist *persister

	cell *cell
	now  func() time.Time
}

type Options struct {
	Engine   road.Config
	Store    store.Service
	Prefs    prefs.Store
	Reminder time.Duration
	// Now overrides the clock, tests only.
	Now func() time.Time
}

type EventType int

const (
	EventOpen EventType = iota
	EventUndoOpen
	EventStageBet
	EventUndoBet
	EventNewGame
	EventSave
	EventTimerStart
	EventTimerStop
	EventClose
)

var eventTypeNames = map[EventType]string{
	EventOpen:       "open",
	EventUndoOpen:   "undoOpen",
	EventStageBet:   "stageBet",
	EventUndoBet:    "undoBet",
	EventNewGame:    "newGame",
	EventSave:       "save",
	EventTimerStart: "timerStart",
	EventTimerStop:  "timerStop",
	EventClose:      "close",
}

func (t EventType) String() string {
	if s, ok := eventTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("event(%d)", int(t))
}

// Event represents a message to the session actor
type Event struct {
	Type      EventType
	Symbol    symbol.Symbol
	Timestamp time.Time
	Response  chan error
}

var ErrSessionClosed = errors.New("session closed")

const (
	storeTimeout = 3 * time.Second
	tickInterval = 500 * time.Millisecond
)

// New loads the active session from prefs and store and starts the actor.
func New(ctx context.Context, opts Options) (*Session, error) {
	if opts.Store == nil {
		opts.Store = store.NewMemoryService()
	}
	if opts.Prefs == nil {
		opts.Prefs = prefs.NewMemoryStore()
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	engine, err := road.NewEngine(opts.Engine)
	if err != nil {
		return nil, err
	}

	s := &Session{
		engine:   engine,
		reminder: opts.Reminder,
		events:   make(chan Event, 64),
		done:     make(chan struct{}),
		store:    opts.Store,
		prefs:    opts.Prefs,
		cell:     newCell(),
		now:      opts.Now,
	}
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	s.persist = newPersister(s.store, s.prefs)
	s.publish()
	log.Printf("[Session %s] Loaded (outcomes=%d bets=%d)", s.id, len(engine.Outcomes()), len(engine.Bets()))

	go s.run()
	return s, nil
}

// run is the main actor loop
func (s *Session) run() {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case event := <-s.events:
			err := s.handleEvent(event)
			if err == nil {
				s.publish()
			}
			if event.Response != nil {
				event.Response <- err
			}
		case <-ticker.C:
			if s.tick() {
				s.publish()
			}
		case <-s.done:
			s.persist.stop()
			log.Printf("[Session %s] Actor stopped", s.ID())
			return
		}
	}
}

func (s *Session) handleEvent(e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed && e.Type != EventClose {
		return ErrSessionClosed
	}

	switch e.Type {
	case EventOpen:
		return s.handleOpen(e.Symbol, e.Timestamp)
	case EventUndoOpen:
		return s.handleUndoOpen()
	case EventStageBet:
		return s.engine.StageBet(e.Symbol)
	case EventUndoBet:
		return s.handleUndoBet()
	case EventNewGame:
		return s.handleNewGame(e.Timestamp)
	case EventSave:
		return s.handleSave(e.Timestamp)
	case EventTimerStart:
		return s.handleTimerStart(e.Timestamp)
	case EventTimerStop:
		return s.handleTimerStop()
	case EventClose:
		s.stopLocked()
		return nil
	default:
		return fmt.Errorf("unknown event type: %d", e.Type)
	}
}

func (s *Session) handleOpen(sym symbol.Symbol, ts time.Time) error {
	bet, err := s.engine.Open(road.OutcomeEvent{
		Symbol:    sym,
		Timestamp: s.nextTimestamp(ts),
		SessionID: s.id,
	})
	if err != nil {
		return err
	}
	s.persistOutcomes()
	if bet != nil {
		ev := *bet
		s.persist.enqueue("insert bet", func(ctx context.Context, st store.Service, _ prefs.Store) error {
			return st.InsertBetEvent(ctx, ev)
		})
	}
	return nil
}

func (s *Session) handleUndoOpen() error {
	_, bet, ok := s.engine.UndoOpen()
	if !ok {
		return nil
	}
	s.persistOutcomes()
	if bet != nil {
		s.deleteBet(*bet)
	}
	return nil
}

func (s *Session) handleUndoBet() error {
	removed, err := s.engine.UndoBet()
	if err != nil {
		return err
	}
	if removed != nil {
		s.deleteBet(*removed)
	}
	return nil
}

func (s *Session) deleteBet(bet road.BetEvent) {
	sessionID, ts := bet.SessionID, bet.Timestamp
	s.persist.enqueue("delete bet", func(ctx context.Context, st store.Service, _ prefs.Store) error {
		return st.DeleteBetEventAt(ctx, sessionID, ts)
	})
}

// handleNewGame closes the current session and starts an empty one.
func (s *Session) handleNewGame(ts time.Time) error {
	id, err := s.rotateSession(ts)
	if err != nil {
		return err
	}
	s.engine.Reset()
	s.id = id
	s.lastTs = time.Time{}
	log.Printf("[Session %s] New game", id)
	return nil
}

// handleSave freezes the current session and opens a new one that carries the
// resolved bets forward as historical entries.
func (s *Session) handleSave(ts time.Time) error {
	carried := s.engine.Bets()
	id, err := s.rotateSession(ts)
	if err != nil {
		return err
	}
	for i := range carried {
		carried[i].SessionID = id
		carried[i].Historical = true
	}
	s.engine.Reset()
	s.engine.ResumeBets(carried)
	s.id = id
	s.lastTs = time.Time{}

	for _, b := range carried {
		ev := b
		s.persist.enqueue("carry bet", func(ctx context.Context, st store.Service, _ prefs.Store) error {
			return st.InsertBetEvent(ctx, ev)
		})
	}
	log.Printf("[Session %s] Saved previous session, carried %d bets", id, len(carried))
	return nil
}

// rotateSession creates the next session synchronously since every later
// event needs its id. Closing the old one and the prefs writes are queued.
func (s *Session) rotateSession(ts time.Time) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	id, err := s.store.CreateSession(ctx)
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}

	prev := s.id
	end := ts
	if end.IsZero() {
		end = s.now()
	}
	s.persist.enqueue("close session", func(ctx context.Context, st store.Service, _ prefs.Store) error {
		return st.CloseSession(ctx, prev, end)
	})
	s.persist.enqueue("set active session", func(ctx context.Context, _ store.Service, p prefs.Store) error {
		if err := p.SetActiveSession(ctx, id); err != nil {
			return err
		}
		return p.SaveOutcomes(ctx, id, nil)
	})
	return id, nil
}

func (s *Session) handleTimerStart(ts time.Time) error {
	if ts.IsZero() {
		ts = s.now()
	}
	s.timerStart = ts
	s.reminderDue = false
	s.persist.enqueue("timer start", func(ctx context.Context, _ store.Service, p prefs.Store) error {
		return p.SetTimerStart(ctx, ts)
	})
	return nil
}

func (s *Session) handleTimerStop() error {
	if s.timerStart.IsZero() {
		return nil
	}
	s.timerStart = time.Time{}
	s.reminderDue = false
	s.persist.enqueue("timer stop", func(ctx context.Context, _ store.Service, p prefs.Store) error {
		return p.SetTimerStart(ctx, time.Time{})
	})
	return nil
}

// tick reports whether the reminder flag changed.
func (s *Session) tick() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.timerStart.IsZero() || s.reminder <= 0 {
		return false
	}
	due := s.now().Sub(s.timerStart) >= s.reminder
	if due == s.reminderDue {
		return false
	}
	s.reminderDue = due
	if due {
		log.Printf("[Session %s] Timer reminder due after %s", s.id, s.reminder)
	}
	return true
}

func (s *Session) persistOutcomes() {
	sessionID := s.id
	outcomes := s.engine.Outcomes()
	s.persist.enqueue("save outcomes", func(ctx context.Context, st store.Service, p prefs.Store) error {
		if err := p.SaveOutcomes(ctx, sessionID, outcomes); err != nil {
			return err
		}
		return st.SaveOutcomeEvents(ctx, sessionID, outcomes)
	})
}

// nextTimestamp truncates to milliseconds and keeps outcome timestamps
// strictly increasing so bets can be matched to their outcome after a reload.
func (s *Session) nextTimestamp(ts time.Time) time.Time {
	if ts.IsZero() {
		ts = s.now()
	}
	ts = ts.UTC().Truncate(time.Millisecond)
	if !s.lastTs.IsZero() && !ts.After(s.lastTs) {
		ts = s.lastTs.Add(time.Millisecond)
	}
	s.lastTs = ts
	return ts
}

// SubmitEvent enqueues e and waits for the actor to handle it.
func (s *Session) SubmitEvent(e Event) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = s.now()
	}
	if e.Response == nil {
		e.Response = make(chan error, 1)
	}

	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return ErrSessionClosed
	}

	select {
	case s.events <- e:
	case <-s.done:
		return ErrSessionClosed
	}

	select {
	case err := <-e.Response:
		return err
	case <-s.done:
		return ErrSessionClosed
	}
}

func (s *Session) Open(sym symbol.Symbol) error {
	return s.SubmitEvent(Event{Type: EventOpen, Symbol: sym})
}

func (s *Session) UndoOpen() error {
	return s.SubmitEvent(Event{Type: EventUndoOpen})
}

func (s *Session) StageBet(sym symbol.Symbol) error {
	return s.SubmitEvent(Event{Type: EventStageBet, Symbol: sym})
}

func (s *Session) UndoBet() error {
	return s.SubmitEvent(Event{Type: EventUndoBet})
}

func (s *Session) NewGame() error {
	return s.SubmitEvent(Event{Type: EventNewGame})
}

func (s *Session) Save() error {
	return s.SubmitEvent(Event{Type: EventSave})
}

func (s *Session) StartTimer() error {
	return s.SubmitEvent(Event{Type: EventTimerStart})
}

func (s *Session) StopTimer() error {
	return s.SubmitEvent(Event{Type: EventTimerStop})
}

// Stop shuts down the actor after draining queued persistence writes.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Session) stopLocked() {
	s.closed = true
	s.stopOnce.Do(func() {
		close(s.done)
	})
}

// Flush blocks until every persistence write queued so far has run.
func (s *Session) Flush(ctx context.Context) error {
	return s.persist.flush(ctx)
}

func (s *Session) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

func (s *Session) EngineConfig() road.Config {
	return s.engine.Config()
}

func (s *Session) Store() store.Service {
	return s.store
}
