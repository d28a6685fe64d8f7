package game

import (
	"errors"
	"fmt"
)

// ErrInvalidOperation is matched by every rule violation the engine reports.
// A failed operation never modifies the round it was given.
var ErrInvalidOperation = errors.New("invalid operation")

// ErrorKind classifies an invalid operation
type ErrorKind int

const (
	WrongTurn ErrorKind = iota
	InsufficientFunds
	InvalidBet
	IllegalSplit
	IllegalDouble
	PlayersDepleted
	ShoeEmpty
	PlayerNotFound
	InvalidSetup
)

func (k ErrorKind) String() string {
	switch k {
	case WrongTurn:
		return "wrong-turn"
	case InsufficientFunds:
		return "insufficient-funds"
	case InvalidBet:
		return "invalid-bet"
	case IllegalSplit:
		return "illegal-split"
	case IllegalDouble:
		return "illegal-double"
	case PlayersDepleted:
		return "all-players-depleted"
	case ShoeEmpty:
		return "shoe-empty"
	case PlayerNotFound:
		return "player-not-found"
	case InvalidSetup:
		return "invalid-setup"
	default:
		return "unknown"
	}
}

// OperationError describes why an operation was rejected
type OperationError struct {
	Kind   ErrorKind
	Reason string
	Err    error
}

func (e *OperationError) Error() string {
	return e.Reason
}

// Unwrap lets errors.Is match ErrInvalidOperation and any wrapped cause
func (e *OperationError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrInvalidOperation, e.Err}
	}
	return []error{ErrInvalidOperation}
}

func invalid(kind ErrorKind, format string, args ...any) error {
	return &OperationError{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of an OperationError anywhere in err's chain
func KindOf(err error) (ErrorKind, bool) {
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return opErr.Kind, true
	}
	return 0, false
}
