package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"baccarat-road/road"
	"baccarat-road/symbol"
)

func newBackends(t *testing.T) map[string]Service {
	t.Helper()
	sqlite, err := NewSQLiteService(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteService err: %v", err)
	}
	t.Cleanup(func() { _ = sqlite.Close() })
	return map[string]Service{
		"memory": NewMemoryService(),
		"sqlite": sqlite,
	}
}

func TestSessionLifecycle(t *testing.T) {
	for name, svc := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, ok, err := svc.ActiveSession(ctx); err != nil || ok {
				t.Fatalf("expected no active session, ok=%v err=%v", ok, err)
			}
			id, err := svc.CreateSession(ctx)
			if err != nil || id == "" {
				t.Fatalf("CreateSession id=%q err=%v", id, err)
			}
			active, ok, err := svc.ActiveSession(ctx)
			if err != nil || !ok || active != id {
				t.Fatalf("ActiveSession = %q,%v,%v want %q", active, ok, err, id)
			}
			if err := svc.CloseSession(ctx, id, time.Now()); err != nil {
				t.Fatalf("CloseSession err: %v", err)
			}
			if _, ok, _ := svc.ActiveSession(ctx); ok {
				t.Fatalf("closed session still active")
			}
			if err := svc.CloseSession(ctx, "missing", time.Now()); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}

			items, err := svc.ListSessions(ctx, 10)
			if err != nil {
				t.Fatalf("ListSessions err: %v", err)
			}
			if len(items) != 1 || items[0].ID != id || items[0].EndedAt == nil {
				t.Fatalf("unexpected sessions %+v", items)
			}
		})
	}
}

func TestActiveSessionFollowsCreationOrder(t *testing.T) {
	for name, svc := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			var ids []string
			// Created back to back, usually within one millisecond.
			for i := 0; i < 5; i++ {
				id, err := svc.CreateSession(ctx)
				if err != nil {
					t.Fatalf("CreateSession err: %v", err)
				}
				ids = append(ids, id)
			}
			newest := ids[len(ids)-1]
			if active, ok, err := svc.ActiveSession(ctx); err != nil || !ok || active != newest {
				t.Fatalf("ActiveSession = %q,%v,%v want newest %q", active, ok, err, newest)
			}

			// The previous session is closed after its successor exists.
			if err := svc.CloseSession(ctx, ids[len(ids)-2], time.Now()); err != nil {
				t.Fatalf("CloseSession err: %v", err)
			}
			if active, _, _ := svc.ActiveSession(ctx); active != newest {
				t.Fatalf("ActiveSession = %q want %q", active, newest)
			}

			items, err := svc.ListSessions(ctx, 10)
			if err != nil || len(items) != len(ids) {
				t.Fatalf("ListSessions = %d err=%v", len(items), err)
			}
			for i, item := range items {
				if want := ids[len(ids)-1-i]; item.ID != want {
					t.Fatalf("ListSessions[%d] = %s want %s", i, item.ID, want)
				}
			}
		})
	}
}

func TestOutcomeEventsReplaced(t *testing.T) {
	for name, svc := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			id, _ := svc.CreateSession(ctx)
			base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
			events := []road.OutcomeEvent{
				{Symbol: symbol.Banker, Timestamp: base},
				{Symbol: symbol.Player, Timestamp: base.Add(time.Second)},
				{Symbol: symbol.Player, Timestamp: base.Add(2 * time.Second)},
			}
			if err := svc.SaveOutcomeEvents(ctx, id, events); err != nil {
				t.Fatalf("SaveOutcomeEvents err: %v", err)
			}
			if err := svc.SaveOutcomeEvents(ctx, id, events[:2]); err != nil {
				t.Fatalf("SaveOutcomeEvents err: %v", err)
			}
			got, err := svc.ListOutcomeEvents(ctx, id)
			if err != nil {
				t.Fatalf("ListOutcomeEvents err: %v", err)
			}
			if len(got) != 2 {
				t.Fatalf("expected 2 outcomes, got %d", len(got))
			}
			for i, ev := range got {
				if ev.Seq != uint64(i) || ev.Symbol != events[i].Symbol || !ev.Timestamp.Equal(events[i].Timestamp) {
					t.Fatalf("outcome %d mismatch: %+v", i, ev)
				}
				if ev.SessionID != id {
					t.Fatalf("outcome %d session=%s", i, ev.SessionID)
				}
			}
		})
	}
}

func TestBetEventsInsertDelete(t *testing.T) {
	for name, svc := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			id, _ := svc.CreateSession(ctx)
			ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

			bets := []road.BetEvent{
				{SessionID: id, Timestamp: ts, Symbol: symbol.Win, Historical: true},
				{SessionID: id, Timestamp: ts.Add(time.Second), Symbol: symbol.Loss},
				{SessionID: id, Timestamp: ts.Add(2 * time.Second), Symbol: symbol.Win},
			}
			for _, b := range bets {
				if err := svc.InsertBetEvent(ctx, b); err != nil {
					t.Fatalf("InsertBetEvent err: %v", err)
				}
			}

			// Historical rows are never deleted by timestamp.
			if err := svc.DeleteBetEventAt(ctx, id, ts); err != nil {
				t.Fatalf("DeleteBetEventAt err: %v", err)
			}
			if err := svc.DeleteBetEventAt(ctx, id, ts.Add(2*time.Second)); err != nil {
				t.Fatalf("DeleteBetEventAt err: %v", err)
			}

			got, err := svc.ListBetEvents(ctx, id)
			if err != nil {
				t.Fatalf("ListBetEvents err: %v", err)
			}
			if len(got) != 2 {
				t.Fatalf("expected 2 bets, got %+v", got)
			}
			if got[0].Symbol != symbol.Win || !got[0].Historical {
				t.Fatalf("unexpected first bet %+v", got[0])
			}
			if got[1].Symbol != symbol.Loss || got[1].Historical || !got[1].Timestamp.Equal(ts.Add(time.Second)) {
				t.Fatalf("unexpected second bet %+v", got[1])
			}

			items, _ := svc.ListSessions(ctx, 0)
			if len(items) != 1 || items[0].Bets != 2 {
				t.Fatalf("unexpected session counts %+v", items)
			}
		})
	}
}

func TestRebindDollarPlaceholders(t *testing.T) {
	s := &sqlService{dollarPH: true}
	got := s.rebind(`SELECT a FROM t WHERE b = ? AND c = ?`)
	want := `SELECT a FROM t WHERE b = $1 AND c = $2`
	if got != want {
		t.Fatalf("rebind = %q want %q", got, want)
	}
	plain := &sqlService{}
	if plain.rebind("x = ?") != "x = ?" {
		t.Fatalf("sqlite queries must keep ? placeholders")
	}
}
