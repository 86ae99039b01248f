package symbol

import (
	"errors"
	"fmt"
	"strings"
)

// Symbol 开牌结果
type Symbol byte

const (
	Invalid Symbol = 0
	Banker  Symbol = 1
	Player  Symbol = 2
)

var ErrInvalidSymbol = errors.New("invalid symbol")

var SymbolDictionary = map[Symbol]string{
	Banker: "B",
	Player: "P",
}

func (s Symbol) String() string {
	if l, ok := SymbolDictionary[s]; ok {
		return l
	}
	return "?"
}

func (s Symbol) Letter() byte {
	switch s {
	case Banker:
		return 'B'
	case Player:
		return 'P'
	}
	return '?'
}

func (s Symbol) Valid() bool {
	return s == Banker || s == Player
}

// Opposite flips Banker and Player.
func (s Symbol) Opposite() Symbol {
	switch s {
	case Banker:
		return Player
	case Player:
		return Banker
	}
	return Invalid
}

// Parse accepts "B"/"P" as well as "banker"/"player" in any case.
func Parse(raw string) (Symbol, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "B", "BANKER":
		return Banker, nil
	case "P", "PLAYER":
		return Player, nil
	}
	return Invalid, fmt.Errorf("%w: %q", ErrInvalidSymbol, raw)
}

// FromLetter is the inverse of Letter.
func FromLetter(b byte) (Symbol, error) {
	switch b {
	case 'B', 'b':
		return Banker, nil
	case 'P', 'p':
		return Player, nil
	}
	return Invalid, fmt.Errorf("%w: %q", ErrInvalidSymbol, string(b))
}
