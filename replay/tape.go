package replay

import (
	"sort"
	"time"

	"baccarat-road/road"
	"baccarat-road/symbol"
)

func NewTape(sessionID string, cfg road.Config) *Tape {
	return &Tape{
		TapeVersion: CurrentTapeVersion,
		SessionID:   sessionID,
		Config: TapeConfig{
			MinColumns:      cfg.MinColumns,
			MinTrackColumns: cfg.MinTrackColumns,
		},
	}
}

// Append records one action with the next sequence number.
func (t *Tape) Append(eventType, sym string, ts time.Time) {
	e := TapeEvent{
		Seq:    uint64(len(t.Events)),
		Type:   eventType,
		Symbol: sym,
	}
	if !ts.IsZero() {
		e.TsMs = ts.UTC().UnixMilli()
	}
	t.Events = append(t.Events, e)
}

func (t *Tape) engineConfig() road.Config {
	cfg := road.DefaultConfig()
	if t.Config.MinColumns > 0 {
		cfg.MinColumns = t.Config.MinColumns
	}
	if t.Config.MinTrackColumns > 0 {
		cfg.MinTrackColumns = t.Config.MinTrackColumns
	}
	return cfg
}

// FromLogs rebuilds a tape from persisted outcome and bet logs. A bet shares
// the timestamp of the outcome that resolved it, so the staged symbol is
// recovered from the bet result and that outcome. Historical bets become
// carry events at the start of the tape.
func FromLogs(sessionID string, cfg road.Config, outcomes []road.OutcomeEvent, bets []road.BetEvent) *Tape {
	tape := NewTape(sessionID, cfg)

	live := make(map[int64]road.BetEvent, len(bets))
	for _, b := range bets {
		if b.Historical {
			tape.Append(EventCarryBet, b.Symbol.String(), b.Timestamp)
			continue
		}
		live[b.Timestamp.UTC().UnixMilli()] = b
	}

	ordered := make([]road.OutcomeEvent, len(outcomes))
	copy(ordered, outcomes)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Seq < ordered[j].Seq })

	for _, o := range ordered {
		if b, ok := live[o.Timestamp.UTC().UnixMilli()]; ok {
			staged := o.Symbol
			if b.Symbol == symbol.Loss {
				staged = o.Symbol.Opposite()
			}
			tape.Append(EventStageBet, staged.String(), o.Timestamp)
		}
		tape.Append(EventOpen, o.Symbol.String(), o.Timestamp)
	}
	return tape
}
