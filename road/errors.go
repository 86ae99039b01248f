package road

import "errors"

var ErrHistoricalBet = errors.New("bet belongs to a closed session")

type InvalidStateError string

func (e InvalidStateError) Error() string { return "invalid state: " + string(e) }

func ErrInvalidState(msg string) error { return InvalidStateError(msg) }
