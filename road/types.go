package road

import (
	"time"

	"baccarat-road/symbol"
)

// ColumnType 三列轮转：A -> B -> C -> A
type ColumnType byte

const (
	ColumnA ColumnType = 0
	ColumnB ColumnType = 1
	ColumnC ColumnType = 2
)

const columnCount = 3

var ColumnTypeDictionary = map[ColumnType]string{
	ColumnA: "A",
	ColumnB: "B",
	ColumnC: "C",
}

var Columns = [columnCount]ColumnType{ColumnA, ColumnB, ColumnC}

func (c ColumnType) String() string {
	if s, ok := ColumnTypeDictionary[c]; ok {
		return s
	}
	return "?"
}

func (c ColumnType) Next() ColumnType {
	return ColumnType((int(c) + 1) % columnCount)
}

func (c ColumnType) Index() int { return int(c) }

// PatternID identifies one of the 8 triads, 1..8. Zero means no pattern.
type PatternID int

type OutcomeEvent struct {
	Seq       uint64        `json:"seq"`
	Symbol    symbol.Symbol `json:"symbol"`
	Timestamp time.Time     `json:"timestamp"`
	SessionID string        `json:"session_id"`
}

type BetEvent struct {
	Timestamp  time.Time        `json:"timestamp"`
	SessionID  string           `json:"session_id"`
	Symbol     symbol.BetSymbol `json:"symbol"`
	Historical bool             `json:"historical"`
}

type BPCounter struct {
	Banker int `json:"banker"`
	Player int `json:"player"`
}

type WLCounter struct {
	Win  int `json:"win"`
	Loss int `json:"loss"`
}
