//go:build js && wasm

package main

import (
	"encoding/json"
	"errors"
	"syscall/js"

	"baccarat-road/replay"
	"baccarat-road/road"
)

type verifyRequest struct {
	Tape replay.Tape `json:"tape"`
}

type verifyResponse struct {
	OK       bool                `json:"ok"`
	Snapshot *road.Snapshot      `json:"snapshot,omitempty"`
	Tape     *replay.WireTape    `json:"tape,omitempty"`
	Error    *replay.ReplayError `json:"error,omitempty"`
}

func main() {
	js.Global().Set("__roadReplay", js.FuncOf(func(this js.Value, args []js.Value) any {
		if len(args) < 1 {
			return mustJSON(verifyResponse{
				OK:    false,
				Error: &replay.ReplayError{StepIndex: -1, Reason: "invalid_request", Message: "missing request payload"},
			})
		}
		return mustJSON(handleVerify(args[0].String()))
	}))

	select {}
}

func handleVerify(raw string) verifyResponse {
	var req verifyRequest
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		return verifyResponse{
			OK:    false,
			Error: &replay.ReplayError{StepIndex: -1, Reason: "invalid_json", Message: err.Error()},
		}
	}

	snap, err := replay.Verify(&req.Tape)
	if err != nil {
		var replayErr *replay.ReplayError
		if errors.As(err, &replayErr) {
			return verifyResponse{OK: false, Error: replayErr}
		}
		return verifyResponse{
			OK:    false,
			Error: &replay.ReplayError{StepIndex: -1, Reason: "replay_failed", Message: err.Error()},
		}
	}
	return verifyResponse{
		OK:       true,
		Snapshot: &snap,
		Tape:     replay.ToWireTape(&req.Tape),
	}
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		fallback := verifyResponse{
			OK:    false,
			Error: &replay.ReplayError{StepIndex: -1, Reason: "marshal_failed", Message: err.Error()},
		}
		b2, _ := json.Marshal(fallback)
		return string(b2)
	}
	return string(b)
}
