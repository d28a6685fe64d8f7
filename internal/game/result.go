package game

import (
	"encoding/json"
	"fmt"
)

// Result is the outcome of a single player hand
type Result int

const (
	InProgress Result = iota
	PlayerBust
	DealerBust
	PlayerWin
	DealerWin
	Push
)

var resultNames = map[Result]string{
	InProgress: "in-progress",
	PlayerBust: "player-bust",
	DealerBust: "dealer-bust",
	PlayerWin:  "player-win",
	DealerWin:  "dealer-win",
	Push:       "push",
}

func (r Result) String() string {
	if name, ok := resultNames[r]; ok {
		return name
	}
	return fmt.Sprintf("Result(%d)", int(r))
}

// Settled reports whether the hand has been paid out
func (r Result) Settled() bool {
	return r != InProgress
}

// Winner reports who took the hand: "player", "dealer", "push", or "" while
// the hand is still being played.
func (r Result) Winner() string {
	switch r {
	case PlayerWin, DealerBust:
		return "player"
	case DealerWin, PlayerBust:
		return "dealer"
	case Push:
		return "push"
	default:
		return ""
	}
}

// MarshalJSON encodes the result by name
func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON decodes a result name
func (r *Result) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for k, v := range resultNames {
		if v == name {
			*r = k
			return nil
		}
	}
	return fmt.Errorf("unknown result %q", name)
}
