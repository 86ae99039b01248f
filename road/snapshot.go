package road

import "baccarat-road/symbol"

type TrackSnapshot struct {
	Kind  string   `json:"kind"`
	Cells []Column `json:"cells"`
}

type ColumnSnapshot struct {
	Column string          `json:"column"`
	Tracks []TrackSnapshot `json:"tracks"`
	Grid   GridState       `json:"grid"`
}

// Snapshot is a detached copy of everything the engine derives.
type Snapshot struct {
	Outcomes string    `json:"outcomes"`
	Bets     string    `json:"bets"`
	BP       BPCounter `json:"bp"`
	WL       WLCounter `json:"wl"`

	BPPC   []Column `json:"bppc"`
	WLRoad []Column `json:"wl_road"`

	Columns []ColumnSnapshot `json:"columns"`

	Preview   string `json:"preview,omitempty"`
	StagedBet string `json:"staged_bet,omitempty"`
}

func (e *Engine) Snapshot() Snapshot {
	s := Snapshot{
		Outcomes: symbol.List(e.symbols).Letters(),
		Bets:     betLetters(e.bets),
		BP:       e.bp,
		WL:       e.wl,
		BPPC:     e.bppc.Columns(),
		WLRoad:   e.wlRoad.Columns(),
	}
	if p, ok := e.Preview(); ok {
		s.Preview = p.String()
	}
	if st, ok := e.StagedBet(); ok {
		s.StagedBet = st.String()
	}

	for _, col := range Columns {
		cs := ColumnSnapshot{
			Column: col.String(),
			Grid:   e.grid.State(col),
		}
		for _, kind := range TrackKinds {
			cs.Tracks = append(cs.Tracks, TrackSnapshot{
				Kind:  kind.String(),
				Cells: e.trends.Track(col, kind).Cells(),
			})
		}
		s.Columns = append(s.Columns, cs)
	}
	return s
}
