package replay

import (
	"errors"
	"fmt"
	"time"

	"baccarat-road/road"
	"baccarat-road/symbol"

	"github.com/google/go-cmp/cmp"
)

// Play applies every tape event to a fresh engine, one at a time.
func Play(tape *Tape) (*road.Engine, error) {
	if tape == nil {
		return nil, &ReplayError{StepIndex: -1, Reason: "invalid_tape", Message: "nil tape"}
	}
	if tape.TapeVersion != CurrentTapeVersion {
		return nil, &ReplayError{
			StepIndex: -1,
			Reason:    "unsupported_version",
			Message:   fmt.Sprintf("tape version %d (supported: %d)", tape.TapeVersion, CurrentTapeVersion),
		}
	}
	engine, err := road.NewEngine(tape.engineConfig())
	if err != nil {
		return nil, &ReplayError{StepIndex: -1, Reason: "engine_init_failed", Message: err.Error()}
	}

	for i, ev := range tape.Events {
		if err := applyEvent(engine, tape.SessionID, ev); err != nil {
			return nil, &ReplayError{
				StepIndex: int32(i),
				Reason:    reasonFor(err),
				Message:   err.Error(),
				Expected:  expectedState(engine),
			}
		}
	}
	return engine, nil
}

func applyEvent(engine *road.Engine, sessionID string, ev TapeEvent) error {
	ts := time.UnixMilli(ev.TsMs).UTC()
	switch ev.Type {
	case EventOpen:
		s, err := symbol.Parse(ev.Symbol)
		if err != nil {
			return err
		}
		_, err = engine.Open(road.OutcomeEvent{Symbol: s, Timestamp: ts, SessionID: sessionID})
		return err
	case EventUndoOpen:
		engine.UndoOpen()
		return nil
	case EventStageBet:
		s, err := symbol.Parse(ev.Symbol)
		if err != nil {
			return err
		}
		return engine.StageBet(s)
	case EventUndoBet:
		_, err := engine.UndoBet()
		return err
	case EventCarryBet:
		b, err := symbol.ParseBet(ev.Symbol)
		if err != nil {
			return err
		}
		bets := append(engine.Bets(), road.BetEvent{
			Timestamp:  ts,
			SessionID:  sessionID,
			Symbol:     b,
			Historical: true,
		})
		engine.ResumeBets(bets)
		return nil
	default:
		return fmt.Errorf("unknown event type %q", ev.Type)
	}
}

func reasonFor(err error) string {
	switch {
	case errors.Is(err, symbol.ErrInvalidSymbol):
		return "invalid_symbol"
	case errors.Is(err, road.ErrHistoricalBet):
		return "historical_bet"
	default:
		return "invalid_event"
	}
}

func expectedState(engine *road.Engine) *ExpectedState {
	snap := engine.Snapshot()
	return &ExpectedState{
		Outcomes:  snap.Outcomes,
		Bets:      snap.Bets,
		StagedBet: snap.StagedBet,
	}
}

// Verify plays the tape incrementally, then resumes a second engine from the
// resulting logs and checks both derive the same snapshot.
func Verify(tape *Tape) (road.Snapshot, error) {
	played, err := Play(tape)
	if err != nil {
		return road.Snapshot{}, err
	}

	resumed, err := road.NewEngine(played.Config())
	if err != nil {
		return road.Snapshot{}, &ReplayError{StepIndex: -1, Reason: "engine_init_failed", Message: err.Error()}
	}
	resumed.Resume(played.Outcomes())
	resumed.ResumeBets(played.Bets())
	if st, ok := played.StagedBet(); ok {
		_ = resumed.StageBet(st)
	}

	want := played.Snapshot()
	if diff := cmp.Diff(want, resumed.Snapshot()); diff != "" {
		return want, &ReplayError{
			StepIndex: int32(len(tape.Events) - 1),
			Reason:    "resume_mismatch",
			Message:   diff,
			Expected:  expectedState(played),
		}
	}
	return want, nil
}
