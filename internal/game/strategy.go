package game

import (
	"fmt"
	"strings"
)

// Action is a move a player can make on their active hand
type Action int

const (
	Hit Action = iota
	Stand
	Double
	Split
)

func (a Action) String() string {
	switch a {
	case Hit:
		return "hit"
	case Stand:
		return "stand"
	case Double:
		return "double"
	case Split:
		return "split"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// ParseAction parses an action name such as "hit" or "double"
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hit", "h":
		return Hit, nil
	case "stand", "s":
		return Stand, nil
	case "double", "d":
		return Double, nil
	case "split", "p":
		return Split, nil
	default:
		return 0, fmt.Errorf("unknown action %q", s)
	}
}

// Strategy decides the move for a hand. dealerUp is the value of the
// dealer's visible card with an ace counted as 1.
type Strategy interface {
	Decide(hand Hand, dealerUp int, canDouble, canSplit bool) Action
}

// StrategyFunc adapts a function to the Strategy interface
type StrategyFunc func(hand Hand, dealerUp int, canDouble, canSplit bool) Action

// Decide calls f
func (f StrategyFunc) Decide(hand Hand, dealerUp int, canDouble, canSplit bool) Action {
	return f(hand, dealerUp, canDouble, canSplit)
}

// BasicStrategy is the fixed basic-strategy table the computer seats play
type BasicStrategy struct{}

// Decide implements Strategy
func (BasicStrategy) Decide(hand Hand, dealerUp int, canDouble, canSplit bool) Action {
	if canSplit && hand.IsPair() && shouldSplit(hand.Cards[0].Value(), dealerUp) {
		return Split
	}
	if hand.IsSoft() {
		return softTotal(hand.BestValue(), dealerUp, canDouble)
	}
	return hardTotal(hand.BestValue(), dealerUp, canDouble)
}

// dealerIn reports whether the up card lies in [lo, hi]. Aces count as 1.
func dealerIn(up, lo, hi int) bool {
	return up >= lo && up <= hi
}

func shouldSplit(pair, up int) bool {
	switch pair {
	case 1, 8:
		return true
	case 2, 3, 6, 7:
		return dealerIn(up, 2, 7)
	case 4:
		return dealerIn(up, 5, 6)
	case 9:
		return dealerIn(up, 2, 9) && up != 7
	default:
		// 5s and tens are played as totals
		return false
	}
}

func softTotal(total, up int, canDouble bool) Action {
	switch {
	case total >= 19:
		return Stand
	case total == 18:
		if canDouble && dealerIn(up, 3, 6) {
			return Double
		}
		if up >= 9 || up == 1 {
			return Hit
		}
		return Stand
	case total == 17:
		if canDouble && dealerIn(up, 3, 6) {
			return Double
		}
		return Hit
	case total >= 13:
		if canDouble && dealerIn(up, 5, 6) {
			return Double
		}
		return Hit
	default:
		return Hit
	}
}

func hardTotal(total, up int, canDouble bool) Action {
	switch {
	case total >= 17:
		return Stand
	case total >= 13:
		if dealerIn(up, 2, 6) {
			return Stand
		}
		return Hit
	case total == 12:
		if dealerIn(up, 4, 6) {
			return Stand
		}
		return Hit
	case total == 11:
		if canDouble {
			return Double
		}
		return Hit
	case total == 10:
		if canDouble && dealerIn(up, 2, 9) {
			return Double
		}
		return Hit
	case total == 9:
		if canDouble && dealerIn(up, 3, 6) {
			return Double
		}
		return Hit
	default:
		return Hit
	}
}
