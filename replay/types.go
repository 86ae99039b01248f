package replay

const CurrentTapeVersion = 1

// Event types recorded on a tape.
const (
	EventOpen     = "open"
	EventUndoOpen = "undoOpen"
	EventStageBet = "stageBet"
	EventUndoBet  = "undoBet"
	// EventCarryBet injects a bet carried over from a closed session.
	EventCarryBet = "carryBet"
)

type TapeConfig struct {
	MinColumns      int `json:"min_columns"`
	MinTrackColumns int `json:"min_track_columns"`
}

// Tape is the ordered list of user actions of one session.
type Tape struct {
	TapeVersion int         `json:"tape_version"`
	SessionID   string      `json:"session_id"`
	Config      TapeConfig  `json:"config"`
	Events      []TapeEvent `json:"events"`
}

type TapeEvent struct {
	Seq    uint64 `json:"seq"`
	Type   string `json:"type"`
	Symbol string `json:"symbol,omitempty"`
	TsMs   int64  `json:"ts_ms,omitempty"`
}
