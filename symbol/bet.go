package symbol

import (
	"fmt"
	"strings"
)

// BetSymbol 下注结果
type BetSymbol byte

const (
	BetInvalid BetSymbol = 0
	Win        BetSymbol = 1
	Loss       BetSymbol = 2
)

var BetSymbolDictionary = map[BetSymbol]string{
	Win:  "W",
	Loss: "L",
}

func (b BetSymbol) String() string {
	if l, ok := BetSymbolDictionary[b]; ok {
		return l
	}
	return "?"
}

func (b BetSymbol) Letter() byte {
	switch b {
	case Win:
		return 'W'
	case Loss:
		return 'L'
	}
	return '?'
}

func (b BetSymbol) Valid() bool {
	return b == Win || b == Loss
}

// Resolve compares a placed bet with the outcome revealed after it.
func Resolve(bet, outcome Symbol) BetSymbol {
	if !bet.Valid() || !outcome.Valid() {
		return BetInvalid
	}
	if bet == outcome {
		return Win
	}
	return Loss
}

func ParseBet(raw string) (BetSymbol, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "W", "WIN":
		return Win, nil
	case "L", "LOSS", "LOSE":
		return Loss, nil
	}
	return BetInvalid, fmt.Errorf("%w: %q", ErrInvalidSymbol, raw)
}
