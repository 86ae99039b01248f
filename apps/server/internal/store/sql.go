package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"baccarat-road/road"
	"baccarat-road/symbol"
)

// sqlService holds the queries shared by the SQLite and Postgres backends.
// Queries are written with ? placeholders and rebound per dialect.
// Sessions are ordered by created_seq; nextSeq is the dialect's SQL for it.
type sqlService struct {
	db       *sql.DB
	dollarPH bool
	nextSeq  string
}

func (s *sqlService) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqlService) rebind(query string) string {
	if !s.dollarPH {
		return query
	}
	var sb strings.Builder
	sb.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteByte(query[i])
	}
	return sb.String()
}

func (s *sqlService) CreateSession(ctx context.Context) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, s.rebind(`
INSERT INTO road_sessions (id, created_seq, started_at_ms, ended_at_ms)
VALUES (?, `+s.nextSeq+`, ?, NULL)`), id, time.Now().UTC().UnixMilli())
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *sqlService) CloseSession(ctx context.Context, sessionID string, endTime time.Time) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`
UPDATE road_sessions SET ended_at_ms = ? WHERE id = ?`), toMillis(endTime.UTC()), sessionID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	return nil
}

func (s *sqlService) ActiveSession(ctx context.Context) (string, bool, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
SELECT id FROM road_sessions
WHERE ended_at_ms IS NULL
ORDER BY created_seq DESC
LIMIT 1`).Scan(&id)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

func (s *sqlService) ListSessions(ctx context.Context, limit int) ([]SessionItem, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
SELECT
    rs.id,
    rs.started_at_ms,
    rs.ended_at_ms,
    (SELECT COUNT(*) FROM road_outcome_events oe WHERE oe.session_id = rs.id),
    (SELECT COUNT(*) FROM road_bet_events be WHERE be.session_id = rs.id)
FROM road_sessions rs
ORDER BY rs.created_seq DESC
LIMIT ?`), clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]SessionItem, 0)
	for rows.Next() {
		var (
			item    SessionItem
			started int64
			ended   sql.NullInt64
		)
		if err := rows.Scan(&item.ID, &started, &ended, &item.Outcomes, &item.Bets); err != nil {
			return nil, err
		}
		item.StartedAt = fromMillis(started)
		if ended.Valid {
			t := fromMillis(ended.Int64)
			item.EndedAt = &t
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *sqlService) InsertBetEvent(ctx context.Context, ev road.BetEvent) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
INSERT INTO road_bet_events (session_id, ts_ms, symbol, historical)
VALUES (?, ?, ?, ?)`), ev.SessionID, toMillis(ev.Timestamp), ev.Symbol.String(), ev.Historical)
	return err
}

func (s *sqlService) DeleteBetEventAt(ctx context.Context, sessionID string, ts time.Time) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
DELETE FROM road_bet_events
WHERE id = (
    SELECT id FROM road_bet_events
    WHERE session_id = ? AND ts_ms = ? AND historical = ?
    ORDER BY id DESC
    LIMIT 1
)`), sessionID, toMillis(ts), false)
	return err
}

func (s *sqlService) ListBetEvents(ctx context.Context, sessionID string) ([]road.BetEvent, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
SELECT ts_ms, symbol, historical
FROM road_bet_events
WHERE session_id = ?
ORDER BY id ASC`), sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]road.BetEvent, 0)
	for rows.Next() {
		var (
			ts         int64
			letter     string
			historical bool
		)
		if err := rows.Scan(&ts, &letter, &historical); err != nil {
			return nil, err
		}
		sym, err := symbol.ParseBet(letter)
		if err != nil {
			return nil, fmt.Errorf("bet event session=%s ts=%d: %w", sessionID, ts, err)
		}
		out = append(out, road.BetEvent{
			Timestamp:  fromMillis(ts),
			SessionID:  sessionID,
			Symbol:     sym,
			Historical: historical,
		})
	}
	return out, rows.Err()
}

func (s *sqlService) SaveOutcomeEvents(ctx context.Context, sessionID string, events []road.OutcomeEvent) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM road_outcome_events WHERE session_id = ?`), sessionID); err != nil {
		return err
	}
	insert := s.rebind(`
INSERT INTO road_outcome_events (session_id, seq, symbol, ts_ms)
VALUES (?, ?, ?, ?)`)
	for i, ev := range events {
		if _, err := tx.ExecContext(ctx, insert, sessionID, i, ev.Symbol.String(), toMillis(ev.Timestamp)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *sqlService) ListOutcomeEvents(ctx context.Context, sessionID string) ([]road.OutcomeEvent, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
SELECT seq, symbol, ts_ms
FROM road_outcome_events
WHERE session_id = ?
ORDER BY seq ASC`), sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]road.OutcomeEvent, 0)
	for rows.Next() {
		var (
			seq    int64
			letter string
			ts     int64
		)
		if err := rows.Scan(&seq, &letter, &ts); err != nil {
			return nil, err
		}
		sym, err := symbol.Parse(letter)
		if err != nil {
			return nil, fmt.Errorf("outcome event session=%s seq=%d: %w", sessionID, seq, err)
		}
		out = append(out, road.OutcomeEvent{
			Seq:       uint64(seq),
			Symbol:    sym,
			Timestamp: fromMillis(ts),
			SessionID: sessionID,
		})
	}
	return out, rows.Err()
}

func ensureSchema(ctx context.Context, db *sql.DB, statements []string) error {
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
