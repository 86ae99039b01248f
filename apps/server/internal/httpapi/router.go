package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"baccarat-road/apps/server/internal/session"
	"baccarat-road/apps/server/internal/store"
	"baccarat-road/replay"
	"baccarat-road/road"
	"baccarat-road/symbol"
)

const maxTapeBytes = 4 << 20

type Handler struct {
	session *session.Session
}

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

type verifyResponse struct {
	OK       bool                `json:"ok"`
	Snapshot *road.Snapshot      `json:"snapshot,omitempty"`
	Error    *replay.ReplayError `json:"error,omitempty"`
}

// NewRouter mounts the REST routes and, when ws is non-nil, the websocket endpoint.
func NewRouter(sess *session.Session, ws http.HandlerFunc, allowedOrigins []string) http.Handler {
	h := &Handler{session: sess}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.Health)
	if ws != nil {
		r.Get("/ws", ws)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", h.GetState)

		r.Post("/outcomes/{symbol}", h.OpenOutcome)
		r.Delete("/outcomes/last", h.UndoOutcome)

		r.Post("/bets/{symbol}", h.StageBet)
		r.Delete("/bets/last", h.UndoBet)

		r.Post("/game/new", h.submit(session.EventNewGame))
		r.Post("/game/save", h.submit(session.EventSave))

		r.Post("/timer/start", h.submit(session.EventTimerStart))
		r.Post("/timer/stop", h.submit(session.EventTimerStop))

		r.Get("/sessions", h.ListSessions)
		r.Get("/sessions/{id}/tape", h.GetTape)
		r.Post("/replay/verify", h.VerifyTape)
	})
	return r
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"session_id": h.session.ID(),
		"timestamp":  time.Now().UTC(),
	})
}

func (h *Handler) GetState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.session.View())
}

func (h *Handler) OpenOutcome(w http.ResponseWriter, r *http.Request) {
	h.submitWithSymbol(w, r, session.EventOpen)
}

func (h *Handler) StageBet(w http.ResponseWriter, r *http.Request) {
	h.submitWithSymbol(w, r, session.EventStageBet)
}

func (h *Handler) UndoOutcome(w http.ResponseWriter, r *http.Request) {
	h.submit(session.EventUndoOpen)(w, r)
}

func (h *Handler) UndoBet(w http.ResponseWriter, r *http.Request) {
	h.submit(session.EventUndoBet)(w, r)
}

func (h *Handler) submitWithSymbol(w http.ResponseWriter, r *http.Request, typ session.EventType) {
	sym, err := symbol.Parse(chi.URLParam(r, "symbol"))
	if err != nil {
		writeSubmitError(w, err)
		return
	}
	if err := h.session.SubmitEvent(session.Event{Type: typ, Symbol: sym}); err != nil {
		writeSubmitError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.session.View())
}

func (h *Handler) submit(typ session.EventType) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if err := h.session.SubmitEvent(session.Event{Type: typ}); err != nil {
			writeSubmitError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, h.session.View())
	}
}

func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	items, err := h.session.Store().ListSessions(ctx, parseLimit(r.URL.Query().Get("limit")))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list sessions", "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// GetTape exports a session tape. ?format=wire returns the camelCase form
// the browser replayer reads.
func (h *Handler) GetTape(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	tape, err := h.session.TapeFor(ctx, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found", "")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load tape", "")
		return
	}
	if r.URL.Query().Get("format") == "wire" {
		writeJSON(w, http.StatusOK, replay.ToWireTape(tape))
		return
	}
	writeJSON(w, http.StatusOK, tape)
}

func (h *Handler) VerifyTape(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxTapeBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body", "")
		return
	}
	var tape replay.Tape
	if err := json.Unmarshal(body, &tape); err != nil {
		writeError(w, http.StatusBadRequest, "invalid tape json", "")
		return
	}

	snap, err := replay.Verify(&tape)
	if err != nil {
		var rerr *replay.ReplayError
		if errors.As(err, &rerr) {
			writeJSON(w, http.StatusUnprocessableEntity, verifyResponse{Error: rerr})
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error(), "")
		return
	}
	writeJSON(w, http.StatusOK, verifyResponse{OK: true, Snapshot: &snap})
}

func writeSubmitError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, symbol.ErrInvalidSymbol):
		writeError(w, http.StatusBadRequest, err.Error(), "invalid_symbol")
	case errors.Is(err, road.ErrHistoricalBet):
		writeError(w, http.StatusConflict, err.Error(), "historical_bet")
	case errors.Is(err, session.ErrSessionClosed):
		writeError(w, http.StatusServiceUnavailable, err.Error(), "session_closed")
	default:
		writeError(w, http.StatusInternalServerError, err.Error(), "internal")
	}
}

func parseLimit(raw string) int {
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0
	}
	return n
}

func writeError(w http.ResponseWriter, status int, msg, reason string) {
	writeJSON(w, status, errorResponse{Error: msg, Reason: reason})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
