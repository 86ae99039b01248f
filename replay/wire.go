package replay

type WireTape struct {
	TapeVersion     int         `json:"tapeVersion"`
	SessionID       string      `json:"sessionId"`
	MinColumns      int         `json:"minColumns"`
	MinTrackColumns int         `json:"minTrackColumns"`
	Events          []WireEvent `json:"events"`
}

type WireEvent struct {
	Type   string `json:"type"`
	Seq    uint64 `json:"seq"`
	Symbol string `json:"symbol,omitempty"`
	TsMs   int64  `json:"tsMs,omitempty"`
}

func ToWireTape(tape *Tape) *WireTape {
	if tape == nil {
		return nil
	}
	out := &WireTape{
		TapeVersion:     tape.TapeVersion,
		SessionID:       tape.SessionID,
		MinColumns:      tape.Config.MinColumns,
		MinTrackColumns: tape.Config.MinTrackColumns,
		Events:          make([]WireEvent, 0, len(tape.Events)),
	}
	for _, e := range tape.Events {
		out.Events = append(out.Events, WireEvent{
			Type:   e.Type,
			Seq:    e.Seq,
			Symbol: e.Symbol,
			TsMs:   e.TsMs,
		})
	}
	return out
}
