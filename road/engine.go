package road

import (
	"fmt"
	"time"

	"baccarat-road/symbol"
)

// Engine derives the road tables, trend tracks and grid predictions from the
// outcome and bet logs. It is not safe for concurrent use.
type Engine struct {
	cfg Config

	// outcome domain
	outcomes []OutcomeEvent
	symbols  []symbol.Symbol
	bp       BPCounter
	bppc     *Table
	trends   *Trends
	grid     *Grid
	preview  symbol.Symbol

	// bet domain
	bets   []BetEvent
	staged symbol.Symbol
	wl     WLCounter
	wlRoad *Table
}

func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:    cfg,
		bppc:   NewTable(cfg.MinColumns),
		trends: NewTrends(cfg.MinTrackColumns),
		grid:   NewGrid(OutcomeTriads),
		wlRoad: NewTable(cfg.MinColumns),
	}
	return e, nil
}

func (e *Engine) Config() Config { return e.cfg }

// Open records a revealed outcome and resolves the staged bet against it.
// The resolved bet is returned, or nil when no bet was staged.
func (e *Engine) Open(ev OutcomeEvent) (*BetEvent, error) {
	if !ev.Symbol.Valid() {
		return nil, fmt.Errorf("%w: %v", symbol.ErrInvalidSymbol, ev.Symbol)
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	ev.Seq = uint64(len(e.outcomes))
	e.outcomes = append(e.outcomes, ev)
	e.symbols = append(e.symbols, ev.Symbol)
	e.applyOutcome(len(e.outcomes) - 1)
	e.refreshPreview()

	return e.resolveBet(ev), nil
}

// UndoOpen removes the most recent outcome and rebuilds derived state by replay.
// When that outcome resolved a bet, the bet is dropped, the bet log replayed
// and the bet staged again. The dropped bet is returned, or nil.
func (e *Engine) UndoOpen() (OutcomeEvent, *BetEvent, bool) {
	n := len(e.outcomes)
	if n == 0 {
		return OutcomeEvent{}, nil, false
	}
	removed := e.outcomes[n-1]
	e.Resume(e.outcomes[:n-1])

	bet, ok := e.resolvedBy(removed)
	if !ok {
		return removed, nil, true
	}
	e.ResumeBets(e.bets[:len(e.bets)-1])
	if bet.Symbol == symbol.Win {
		e.staged = removed.Symbol
	} else {
		e.staged = removed.Symbol.Opposite()
	}
	return removed, &bet, true
}

// resolvedBy reports the live bet resolved by outcome. A bet carries the
// timestamp of the outcome that resolved it, so this holds after a reload too.
func (e *Engine) resolvedBy(outcome OutcomeEvent) (BetEvent, bool) {
	n := len(e.bets)
	if n == 0 {
		return BetEvent{}, false
	}
	last := e.bets[n-1]
	if last.Historical || last.SessionID != outcome.SessionID || !last.Timestamp.Equal(outcome.Timestamp) {
		return BetEvent{}, false
	}
	return last, true
}

// Resume clears all outcome-derived state and replays events through the same
// per-event step Open uses.
func (e *Engine) Resume(events []OutcomeEvent) {
	replay := make([]OutcomeEvent, len(events))
	copy(replay, events)

	e.resetOutcomes()
	for i := range replay {
		replay[i].Seq = uint64(i)
		e.outcomes = append(e.outcomes, replay[i])
		e.symbols = append(e.symbols, replay[i].Symbol)
		e.applyOutcome(i)
	}
	if len(e.outcomes) > 0 {
		e.refreshPreview()
	}
}

func (e *Engine) resetOutcomes() {
	e.outcomes = nil
	e.symbols = nil
	e.bp = BPCounter{}
	e.bppc.Reset()
	e.trends.Reset()
	e.grid.Reset()
	e.preview = symbol.Invalid
}

// applyOutcome runs the derivation step for outcomes[i].
func (e *Engine) applyOutcome(i int) {
	e.trends.Record(e.symbols, i)

	if i >= 2 {
		window := symbol.List(e.symbols[i-2 : i+1]).Letters()
		id, ok := OutcomeTriads.Classify(window)
		if !ok {
			panic(ErrInvalidState(fmt.Sprintf("unclassifiable outcome window %q at %d", window, i)))
		}
		col := e.bppc.Advance(id, false)
		e.trends.OnFilled(col)
		e.grid.OnFilled(col, window, e.symbols[i].String())
	}

	switch e.symbols[i] {
	case symbol.Banker:
		e.bp.Banker++
	case symbol.Player:
		e.bp.Player++
	}
}

// refreshPreview: odd count repeats the last symbol, even count flips it.
func (e *Engine) refreshPreview() {
	n := len(e.symbols)
	if n == 0 {
		e.preview = symbol.Invalid
		return
	}
	last := e.symbols[n-1]
	if n%2 == 1 {
		e.preview = last
		return
	}
	e.preview = last.Opposite()
}

// StageBet holds a bet until the next outcome. A later call replaces it.
func (e *Engine) StageBet(s symbol.Symbol) error {
	if !s.Valid() {
		return fmt.Errorf("%w: %v", symbol.ErrInvalidSymbol, s)
	}
	e.staged = s
	return nil
}

func (e *Engine) StagedBet() (symbol.Symbol, bool) {
	return e.staged, e.staged != symbol.Invalid
}

func (e *Engine) resolveBet(outcome OutcomeEvent) *BetEvent {
	if e.staged == symbol.Invalid {
		return nil
	}
	bet := BetEvent{
		Timestamp: outcome.Timestamp,
		SessionID: outcome.SessionID,
		Symbol:    symbol.Resolve(e.staged, outcome.Symbol),
	}
	e.staged = symbol.Invalid
	e.bets = append(e.bets, bet)
	e.applyBet(len(e.bets) - 1)
	return &bet
}

// UndoBet clears a staged bet if there is one, otherwise removes the most
// recent resolved bet and replays the bet log. The removed bet is returned.
func (e *Engine) UndoBet() (*BetEvent, error) {
	if e.staged != symbol.Invalid {
		e.staged = symbol.Invalid
		return nil, nil
	}
	n := len(e.bets)
	if n == 0 {
		return nil, nil
	}
	last := e.bets[n-1]
	if last.Historical {
		return nil, ErrHistoricalBet
	}
	e.ResumeBets(e.bets[:n-1])
	return &last, nil
}

// ResumeBets clears the WL road and counter and replays bets.
func (e *Engine) ResumeBets(bets []BetEvent) {
	replay := make([]BetEvent, len(bets))
	copy(replay, bets)

	e.bets = nil
	e.wl = WLCounter{}
	e.wlRoad.Reset()
	for i := range replay {
		e.bets = append(e.bets, replay[i])
		e.applyBet(i)
	}
}

// applyBet recomputes the WL counter and, from the third bet on, advances the WL road.
func (e *Engine) applyBet(i int) {
	e.wl = WLCounter{}
	for _, b := range e.bets[:i+1] {
		switch b.Symbol {
		case symbol.Win:
			e.wl.Win++
		case symbol.Loss:
			e.wl.Loss++
		}
	}
	if i < 2 {
		return
	}
	window := betLetters(e.bets[i-2 : i+1])
	id, ok := BetTriads.Classify(window)
	if !ok {
		panic(ErrInvalidState(fmt.Sprintf("unclassifiable bet window %q at %d", window, i)))
	}
	e.wlRoad.Advance(id, e.bets[i].Historical)
}

func betLetters(bets []BetEvent) string {
	out := make([]byte, len(bets))
	for i, b := range bets {
		out[i] = b.Symbol.Letter()
	}
	return string(out)
}

// Reset clears both logs, the staged bet and every derived structure.
func (e *Engine) Reset() {
	e.resetOutcomes()
	e.staged = symbol.Invalid
	e.ResumeBets(nil)
}

func (e *Engine) Outcomes() []OutcomeEvent {
	return append([]OutcomeEvent(nil), e.outcomes...)
}

func (e *Engine) Bets() []BetEvent {
	return append([]BetEvent(nil), e.bets...)
}

func (e *Engine) Preview() (symbol.Symbol, bool) {
	return e.preview, e.preview != symbol.Invalid
}

func (e *Engine) Trends() *Trends { return e.trends }

func (e *Engine) Grid() *Grid { return e.grid }
