package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"baccarat-road/apps/server/internal/session"
	"baccarat-road/symbol"
)

const (
	FrameView  = "view"
	FrameError = "error"
)

var ErrUnknownAction = errors.New("unknown action")

// EncodeView wraps the view in an envelope and marshals it as a binary
// structpb.Struct.
func EncodeView(v session.View) ([]byte, error) {
	payload, err := toStructMap(v)
	if err != nil {
		return nil, err
	}
	return encodeEnvelope(FrameView, v.Version, payload)
}

func EncodeError(reason, message string) ([]byte, error) {
	return encodeEnvelope(FrameError, 0, map[string]any{
		"reason":  reason,
		"message": message,
	})
}

func encodeEnvelope(frameType string, seq uint64, payload map[string]any) ([]byte, error) {
	st, err := structpb.NewStruct(map[string]any{
		"type":         frameType,
		"seq":          float64(seq),
		"server_ts_ms": float64(time.Now().UnixMilli()),
		"payload":      payload,
	})
	if err != nil {
		return nil, fmt.Errorf("build %s frame: %w", frameType, err)
	}
	return proto.Marshal(st)
}

// DecodeEnvelope is the inverse of the Encode functions.
func DecodeEnvelope(data []byte) (frameType string, payload map[string]any, err error) {
	var st structpb.Struct
	if err := proto.Unmarshal(data, &st); err != nil {
		return "", nil, err
	}
	m := st.AsMap()
	frameType, _ = m["type"].(string)
	payload, _ = m["payload"].(map[string]any)
	return frameType, payload, nil
}

// toStructMap goes through JSON so struct tags decide the field names.
func toStructMap(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// Command is a client request: {"action": "open", "symbol": "B"}.
type Command struct {
	Action string
	Symbol string
}

var actionEvents = map[string]session.EventType{
	"open":       session.EventOpen,
	"undoopen":   session.EventUndoOpen,
	"stagebet":   session.EventStageBet,
	"undobet":    session.EventUndoBet,
	"newgame":    session.EventNewGame,
	"save":       session.EventSave,
	"timerstart": session.EventTimerStart,
	"timerstop":  session.EventTimerStop,
}

// DecodeCommand accepts a binary structpb.Struct frame.
func DecodeCommand(data []byte) (Command, error) {
	var st structpb.Struct
	if err := proto.Unmarshal(data, &st); err != nil {
		return Command{}, fmt.Errorf("decode command: %w", err)
	}
	return commandFromStruct(&st)
}

// DecodeTextCommand accepts the same command as JSON text.
func DecodeTextCommand(data []byte) (Command, error) {
	var st structpb.Struct
	if err := protojson.Unmarshal(data, &st); err != nil {
		return Command{}, fmt.Errorf("decode command: %w", err)
	}
	return commandFromStruct(&st)
}

func EncodeCommand(c Command) ([]byte, error) {
	st, err := structpb.NewStruct(map[string]any{
		"action": c.Action,
		"symbol": c.Symbol,
	})
	if err != nil {
		return nil, err
	}
	return proto.Marshal(st)
}

func commandFromStruct(st *structpb.Struct) (Command, error) {
	fields := st.GetFields()
	c := Command{
		Action: fields["action"].GetStringValue(),
		Symbol: fields["symbol"].GetStringValue(),
	}
	if strings.TrimSpace(c.Action) == "" {
		return Command{}, fmt.Errorf("%w: missing action", ErrUnknownAction)
	}
	return c, nil
}

// Event maps the command onto a session event.
func (c Command) Event() (session.Event, error) {
	key := strings.ToLower(strings.NewReplacer("_", "", "-", "").Replace(strings.TrimSpace(c.Action)))
	typ, ok := actionEvents[key]
	if !ok {
		return session.Event{}, fmt.Errorf("%w: %q", ErrUnknownAction, c.Action)
	}
	ev := session.Event{Type: typ}
	if typ == session.EventOpen || typ == session.EventStageBet {
		s, err := symbol.Parse(c.Symbol)
		if err != nil {
			return session.Event{}, err
		}
		ev.Symbol = s
	}
	return ev, nil
}
