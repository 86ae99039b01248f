package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"baccarat-road/apps/server/internal/prefs"
	"baccarat-road/apps/server/internal/store"
	"baccarat-road/replay"
	"baccarat-road/road"
	"baccarat-road/symbol"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	store *store.MemoryService
	prefs *prefs.MemoryStore
	clock *fakeClock
}

func newFixture() *fixture {
	return &fixture{
		store: store.NewMemoryService(),
		prefs: prefs.NewMemoryStore(),
		clock: &fakeClock{t: time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC)},
	}
}

func (f *fixture) start(t *testing.T, reminder time.Duration) *Session {
	t.Helper()
	s, err := New(context.Background(), Options{
		Engine:   road.Config{MinColumns: 6, MinTrackColumns: 6},
		Store:    f.store,
		Prefs:    f.prefs,
		Reminder: reminder,
		Now:      f.clock.Now,
	})
	if err != nil {
		t.Fatalf("New err: %v", err)
	}
	t.Cleanup(s.Stop)
	return s
}

func openAll(t *testing.T, s *Session, letters string) {
	t.Helper()
	for i := 0; i < len(letters); i++ {
		sym, err := symbol.FromLetter(letters[i])
		if err != nil {
			t.Fatalf("bad letter %q", letters[i])
		}
		if err := s.Open(sym); err != nil {
			t.Fatalf("Open(%c) err: %v", letters[i], err)
		}
	}
}

func betAndOpen(t *testing.T, s *Session, bet, outcome symbol.Symbol) {
	t.Helper()
	if err := s.StageBet(bet); err != nil {
		t.Fatalf("StageBet err: %v", err)
	}
	if err := s.Open(outcome); err != nil {
		t.Fatalf("Open err: %v", err)
	}
}

func flush(t *testing.T, s *Session) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("Flush err: %v", err)
	}
}

func TestNew_CreatesSessionAndPublishes(t *testing.T) {
	f := newFixture()
	s := f.start(t, 0)

	v := s.View()
	if v.SessionID == "" || v.Version != 1 {
		t.Fatalf("unexpected initial view %+v", v)
	}
	if id, ok, _ := f.store.ActiveSession(context.Background()); !ok || id != v.SessionID {
		t.Fatalf("store active session = %q,%v want %q", id, ok, v.SessionID)
	}
	if id, ok, _ := f.prefs.ActiveSession(context.Background()); !ok || id != v.SessionID {
		t.Fatalf("prefs active session = %q,%v want %q", id, ok, v.SessionID)
	}
}

func TestOpen_PublishesToSubscribers(t *testing.T) {
	f := newFixture()
	s := f.start(t, 0)

	var got []View
	cancel := s.Subscribe(func(v View) { got = append(got, v) })

	openAll(t, s, "BPBPPBBBP")
	if len(got) != 9 {
		t.Fatalf("expected 9 published views, got %d", len(got))
	}
	last := got[len(got)-1]
	if last.Road.Outcomes != "BPBPPBBBP" {
		t.Fatalf("unexpected outcomes %q", last.Road.Outcomes)
	}
	if last.Road.BP.Banker != 5 || last.Road.BP.Player != 4 {
		t.Fatalf("unexpected counter %+v", last.Road.BP)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Version <= got[i-1].Version {
			t.Fatalf("versions not increasing at %d", i)
		}
	}
	if s.View().Version != last.Version {
		t.Fatalf("View() is not the last published value")
	}

	cancel()
	openAll(t, s, "B")
	if len(got) != 9 {
		t.Fatalf("cancelled subscriber still notified")
	}
}

func TestOpen_InvalidSymbolLeavesViewUntouched(t *testing.T) {
	f := newFixture()
	s := f.start(t, 0)
	before := s.View()

	err := s.Open(symbol.Invalid)
	if !errors.Is(err, symbol.ErrInvalidSymbol) {
		t.Fatalf("expected ErrInvalidSymbol, got %v", err)
	}
	if s.View().Version != before.Version {
		t.Fatalf("failed event must not publish")
	}
}

func TestPersistence_WritesThroughQueue(t *testing.T) {
	f := newFixture()
	s := f.start(t, 0)

	openAll(t, s, "BP")
	betAndOpen(t, s, symbol.Banker, symbol.Banker)
	flush(t, s)

	ctx := context.Background()
	id := s.ID()
	outcomes, err := f.store.ListOutcomeEvents(ctx, id)
	if err != nil || len(outcomes) != 3 {
		t.Fatalf("store outcomes = %d err=%v", len(outcomes), err)
	}
	bets, err := f.store.ListBetEvents(ctx, id)
	if err != nil || len(bets) != 1 || bets[0].Symbol != symbol.Win {
		t.Fatalf("store bets = %+v err=%v", bets, err)
	}
	if !bets[0].Timestamp.Equal(outcomes[2].Timestamp) {
		t.Fatalf("bet timestamp %v does not match its outcome %v", bets[0].Timestamp, outcomes[2].Timestamp)
	}
	cached, ok, err := f.prefs.LoadOutcomes(ctx, id)
	if err != nil || !ok || len(cached) != 3 {
		t.Fatalf("prefs outcomes = %d ok=%v err=%v", len(cached), ok, err)
	}

	if err := s.UndoOpen(); err != nil {
		t.Fatalf("UndoOpen err: %v", err)
	}
	if err := s.UndoBet(); err != nil {
		t.Fatalf("UndoBet err: %v", err)
	}
	flush(t, s)
	outcomes, _ = f.store.ListOutcomeEvents(ctx, id)
	bets, _ = f.store.ListBetEvents(ctx, id)
	if len(outcomes) != 2 || len(bets) != 0 {
		t.Fatalf("after undo: outcomes=%d bets=%d", len(outcomes), len(bets))
	}
}

func TestReload_ResumesSameView(t *testing.T) {
	f := newFixture()
	s1 := f.start(t, 0)
	openAll(t, s1, "BPBPP")
	betAndOpen(t, s1, symbol.Banker, symbol.Banker)
	betAndOpen(t, s1, symbol.Player, symbol.Banker)
	betAndOpen(t, s1, symbol.Player, symbol.Player)
	openAll(t, s1, "BBP")
	flush(t, s1)
	want := s1.View()
	s1.Stop()

	s2 := f.start(t, 0)
	got := s2.View()
	if got.SessionID != want.SessionID {
		t.Fatalf("reloaded session %s want %s", got.SessionID, want.SessionID)
	}
	if diff := cmp.Diff(want.Road, got.Road); diff != "" {
		t.Fatalf("reloaded road differs (-want +got):\n%s", diff)
	}
}

func TestReload_FallsBackToStoreOutcomes(t *testing.T) {
	f := newFixture()
	s1 := f.start(t, 0)
	openAll(t, s1, "PPBPB")
	flush(t, s1)
	want := s1.View()
	s1.Stop()

	// A fresh preference store forgets everything but the store still has the session.
	f.prefs = prefs.NewMemoryStore()
	s2 := f.start(t, 0)
	if got := s2.View(); got.SessionID != want.SessionID || got.Road.Outcomes != "PPBPB" {
		t.Fatalf("unexpected reload view session=%s outcomes=%q", got.SessionID, got.Road.Outcomes)
	}
}

func TestUndo_EmptyIsNoop(t *testing.T) {
	f := newFixture()
	s := f.start(t, 0)
	if err := s.UndoOpen(); err != nil {
		t.Fatalf("UndoOpen err: %v", err)
	}
	if err := s.UndoBet(); err != nil {
		t.Fatalf("UndoBet err: %v", err)
	}
	if v := s.View(); v.Road.Outcomes != "" || v.Road.Bets != "" {
		t.Fatalf("unexpected view %+v", v.Road)
	}
}

func TestUndoBet_ClearsStagedFirst(t *testing.T) {
	f := newFixture()
	s := f.start(t, 0)
	betAndOpen(t, s, symbol.Banker, symbol.Player)
	if err := s.StageBet(symbol.Player); err != nil {
		t.Fatalf("StageBet err: %v", err)
	}
	if s.View().Road.StagedBet != "P" {
		t.Fatalf("expected staged P")
	}
	if err := s.UndoBet(); err != nil {
		t.Fatalf("UndoBet err: %v", err)
	}
	v := s.View()
	if v.Road.StagedBet != "" || v.Road.Bets != "L" {
		t.Fatalf("staged=%q bets=%q", v.Road.StagedBet, v.Road.Bets)
	}
}

func TestSave_CarriesHistoricalBets(t *testing.T) {
	f := newFixture()
	s := f.start(t, 0)
	oldID := s.ID()
	betAndOpen(t, s, symbol.Banker, symbol.Banker)
	betAndOpen(t, s, symbol.Banker, symbol.Player)
	betAndOpen(t, s, symbol.Player, symbol.Player)

	if err := s.Save(); err != nil {
		t.Fatalf("Save err: %v", err)
	}
	v := s.View()
	if v.SessionID == oldID {
		t.Fatalf("save must start a new session")
	}
	if v.Road.Outcomes != "" || v.Road.Bets != "WLW" {
		t.Fatalf("unexpected road after save outcomes=%q bets=%q", v.Road.Outcomes, v.Road.Bets)
	}
	if c := v.Road.WLRoad[0][0]; !c.Set || !c.Historical {
		t.Fatalf("carried WL cell must be historical: %+v", v.Road.WLRoad[0])
	}

	before := s.View()
	if err := s.UndoBet(); !errors.Is(err, road.ErrHistoricalBet) {
		t.Fatalf("expected ErrHistoricalBet, got %v", err)
	}
	if diff := cmp.Diff(before, s.View()); diff != "" {
		t.Fatalf("refused undo changed the view:\n%s", diff)
	}

	flush(t, s)
	ctx := context.Background()
	carried, _ := f.store.ListBetEvents(ctx, v.SessionID)
	if len(carried) != 3 || !carried[0].Historical {
		t.Fatalf("carried bets not persisted: %+v", carried)
	}
	items, _ := f.store.ListSessions(ctx, 10)
	var closed bool
	for _, it := range items {
		if it.ID == oldID && it.EndedAt != nil {
			closed = true
		}
	}
	if !closed {
		t.Fatalf("old session %s not closed: %+v", oldID, items)
	}
}

func TestNewGame_ClearsEverything(t *testing.T) {
	f := newFixture()
	s := f.start(t, 0)
	oldID := s.ID()
	openAll(t, s, "BPBPPB")
	betAndOpen(t, s, symbol.Banker, symbol.Banker)

	if err := s.NewGame(); err != nil {
		t.Fatalf("NewGame err: %v", err)
	}
	v := s.View()
	if v.SessionID == oldID || v.Road.Outcomes != "" || v.Road.Bets != "" || v.Road.Preview != "" {
		t.Fatalf("unexpected view after new game %+v", v)
	}
	flush(t, s)
	if id, _, _ := f.prefs.ActiveSession(context.Background()); id != v.SessionID {
		t.Fatalf("prefs active session %s want %s", id, v.SessionID)
	}
}

func TestTimer_ReminderFlag(t *testing.T) {
	f := newFixture()
	s := f.start(t, 10*time.Second)

	if err := s.StartTimer(); err != nil {
		t.Fatalf("StartTimer err: %v", err)
	}
	if v := s.View(); !v.Timer.Running || v.Timer.ReminderDue || v.Timer.ReminderSec != 10 {
		t.Fatalf("unexpected timer %+v", v.Timer)
	}

	f.clock.Advance(time.Minute)
	deadline := time.Now().Add(3 * time.Second)
	for !s.View().Timer.ReminderDue {
		if time.Now().After(deadline) {
			t.Fatalf("reminder never became due")
		}
		time.Sleep(20 * time.Millisecond)
	}

	if err := s.StopTimer(); err != nil {
		t.Fatalf("StopTimer err: %v", err)
	}
	if v := s.View(); v.Timer.Running || v.Timer.ReminderDue {
		t.Fatalf("timer still running %+v", v.Timer)
	}
	flush(t, s)
	if _, ok, _ := f.prefs.TimerStart(context.Background()); ok {
		t.Fatalf("timer start should be cleared")
	}
}

func TestTape_VerifiesAgainstReplay(t *testing.T) {
	f := newFixture()
	s := f.start(t, 0)
	openAll(t, s, "BPB")
	betAndOpen(t, s, symbol.Player, symbol.Player)
	betAndOpen(t, s, symbol.Banker, symbol.Player)
	openAll(t, s, "BB")
	betAndOpen(t, s, symbol.Banker, symbol.Banker)

	snap, err := replay.Verify(s.Tape())
	if err != nil {
		t.Fatalf("Verify err: %v", err)
	}
	if diff := cmp.Diff(s.View().Road, snap); diff != "" {
		t.Fatalf("replayed snapshot differs (-live +replay):\n%s", diff)
	}

	oldID := s.ID()
	want := s.View().Road
	if err := s.NewGame(); err != nil {
		t.Fatalf("NewGame err: %v", err)
	}
	flush(t, s)
	stored, err := s.TapeFor(context.Background(), oldID)
	if err != nil {
		t.Fatalf("TapeFor err: %v", err)
	}
	snap, err = replay.Verify(stored)
	if err != nil {
		t.Fatalf("Verify stored tape err: %v", err)
	}
	if snap.Outcomes != want.Outcomes || snap.Bets != want.Bets {
		t.Fatalf("stored tape outcomes=%q bets=%q want %q/%q", snap.Outcomes, snap.Bets, want.Outcomes, want.Bets)
	}
}

func TestUndoOpen_RestagesResolvedBet(t *testing.T) {
	f := newFixture()
	s := f.start(t, 0)
	openAll(t, s, "BPB")
	betAndOpen(t, s, symbol.Banker, symbol.Banker)
	if err := s.UndoOpen(); err != nil {
		t.Fatalf("UndoOpen err: %v", err)
	}
	v := s.View()
	if v.Road.Outcomes != "BPB" || v.Road.Bets != "" || v.Road.StagedBet != "B" || v.Road.WL.Win != 0 {
		t.Fatalf("after undo outcomes=%q bets=%q staged=%q wl=%+v", v.Road.Outcomes, v.Road.Bets, v.Road.StagedBet, v.Road.WL)
	}
	openAll(t, s, "P")
	flush(t, s)

	live := s.View().Road
	if live.Outcomes != "BPBP" || live.Bets != "L" || live.WL.Loss != 1 || live.WL.Win != 0 {
		t.Fatalf("live outcomes=%q bets=%q wl=%+v", live.Outcomes, live.Bets, live.WL)
	}
	bets, err := f.store.ListBetEvents(context.Background(), s.ID())
	if err != nil || len(bets) != 1 || bets[0].Symbol != symbol.Loss {
		t.Fatalf("store bets = %+v err=%v", bets, err)
	}

	snap, err := replay.Verify(s.Tape())
	if err != nil {
		t.Fatalf("Verify err: %v", err)
	}
	if snap.Bets != live.Bets || snap.WL != live.WL {
		t.Fatalf("tape bets=%q wl=%+v, live bets=%q wl=%+v", snap.Bets, snap.WL, live.Bets, live.WL)
	}
	if diff := cmp.Diff(live, snap); diff != "" {
		t.Fatalf("replayed snapshot differs (-live +replay):\n%s", diff)
	}

	s.Stop()
	reloaded := f.start(t, 0).View().Road
	if diff := cmp.Diff(live, reloaded); diff != "" {
		t.Fatalf("reloaded road differs (-live +reload):\n%s", diff)
	}
}

func TestStop_RejectsEvents(t *testing.T) {
	f := newFixture()
	s := f.start(t, 0)
	s.Stop()
	if err := s.Open(symbol.Banker); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
}
