package statistics

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/lox/blackjack/internal/game"
)

func TestStatistics_Empty(t *testing.T) {
	stats := New()

	if stats.Mean() != 0 {
		t.Errorf("Expected mean of 0 for empty stats, got %f", stats.Mean())
	}
	if stats.Variance() != 0 {
		t.Errorf("Expected variance of 0 for empty stats, got %f", stats.Variance())
	}
	if stats.StdError() != 0 {
		t.Errorf("Expected stderr of 0 for empty stats, got %f", stats.StdError())
	}
	if stats.Median() != 0 {
		t.Errorf("Expected median of 0 for empty stats, got %f", stats.Median())
	}
	if stats.Rate(game.Push) != 0 {
		t.Errorf("Expected push rate of 0 for empty stats, got %f", stats.Rate(game.Push))
	}
	if err := stats.Validate(); err != nil {
		t.Errorf("Empty stats should validate: %v", err)
	}
}

func TestStatistics_ZeroValueUsable(t *testing.T) {
	var stats Statistics
	stats.Add(HandResult{Net: 1, Outcome: game.PlayerWin})

	if stats.Outcomes["player-win"] != 1 {
		t.Errorf("Expected one player win, got %v", stats.Outcomes)
	}
}

func TestStatistics_MultipleValues(t *testing.T) {
	stats := New()
	results := []HandResult{
		{Net: 1.5, Seat: 0, Outcome: game.PlayerWin, Natural: true},
		{Net: -1, Seat: 1, Outcome: game.DealerWin},
		{Net: 2, Seat: 0, Outcome: game.DealerBust, Doubled: true},
		{Net: 0, Seat: 2, Outcome: game.Push},
		{Net: -1, Seat: 1, Outcome: game.PlayerBust, Split: true},
	}
	for _, r := range results {
		stats.Add(r)
	}

	if stats.Hands != 5 {
		t.Fatalf("Expected 5 hands, got %d", stats.Hands)
	}
	if got := stats.Mean(); math.Abs(got-0.3) > 1e-9 {
		t.Errorf("Expected mean 0.3, got %f", got)
	}
	// Values: -1, -1, 0, 1.5, 2
	if got := stats.Median(); got != 0 {
		t.Errorf("Expected median 0, got %f", got)
	}
	if got := stats.Percentile(1); got != 2 {
		t.Errorf("Expected max 2, got %f", got)
	}
	if got := stats.Percentile(0.125); got != -1 {
		t.Errorf("Expected P12.5 of -1, got %f", got)
	}

	wantVariance := (1.5*1.5 + 1 + 4 + 0 + 1 - 5*0.3*0.3) / 4
	if got := stats.Variance(); math.Abs(got-wantVariance) > 1e-9 {
		t.Errorf("Expected variance %f, got %f", wantVariance, got)
	}
	low, high := stats.ConfidenceInterval95()
	if low >= stats.Mean() || high <= stats.Mean() {
		t.Errorf("Mean %f outside interval [%f, %f]", stats.Mean(), low, high)
	}

	if stats.Naturals != 1 || stats.Doubles != 1 || stats.Splits != 1 {
		t.Errorf("Unexpected flag counts: naturals=%d doubles=%d splits=%d", stats.Naturals, stats.Doubles, stats.Splits)
	}
	if got := stats.Rate(game.DealerWin); got != 0.2 {
		t.Errorf("Expected dealer win rate 0.2, got %f", got)
	}
	if got := stats.SeatMean(0); got != 1.75 {
		t.Errorf("Expected seat 0 mean 1.75, got %f", got)
	}
	if got := stats.SeatMean(1); got != -1 {
		t.Errorf("Expected seat 1 mean -1, got %f", got)
	}
	if got := stats.SeatMean(game.MaxPlayers); got != 0 {
		t.Errorf("Expected out of range seat mean 0, got %f", got)
	}
	if err := stats.Validate(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
}

func TestStatistics_Merge(t *testing.T) {
	a, b := New(), New()
	a.Add(HandResult{Net: 1, Seat: 0, Outcome: game.PlayerWin})
	b.Add(HandResult{Net: -1, Seat: 3, Outcome: game.DealerWin, Doubled: true})
	b.Add(HandResult{Net: 0, Seat: 3, Outcome: game.Push})

	a.Merge(b)

	if a.Hands != 3 {
		t.Errorf("Expected 3 hands, got %d", a.Hands)
	}
	if a.Sum != 0 {
		t.Errorf("Expected sum 0, got %f", a.Sum)
	}
	if a.Seats[3].Hands != 2 {
		t.Errorf("Expected 2 hands at seat 3, got %d", a.Seats[3].Hands)
	}
	if a.Doubles != 1 {
		t.Errorf("Expected 1 double, got %d", a.Doubles)
	}
	if len(a.Values) != 3 {
		t.Errorf("Expected 3 values, got %d", len(a.Values))
	}
	if err := a.Validate(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
}

func TestStatistics_ValidateCatchesMismatch(t *testing.T) {
	stats := New()
	stats.Add(HandResult{Net: 1, Outcome: game.PlayerWin})
	stats.Hands++

	if err := stats.Validate(); err == nil {
		t.Error("Expected outcome mismatch to fail validation")
	}

	stats = New()
	stats.Add(HandResult{Net: 0, Outcome: game.InProgress})
	if err := stats.Validate(); err == nil {
		t.Error("Expected unsettled hands to fail validation")
	}
}

func TestStatistics_JSON(t *testing.T) {
	stats := New()
	stats.Add(HandResult{Net: 1.5, Outcome: game.PlayerWin, Natural: true})

	data, err := json.Marshal(stats)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if _, ok := decoded["Values"]; ok {
		t.Error("Raw values should not be serialised")
	}
	outcomes, ok := decoded["outcomes"].(map[string]any)
	if !ok || outcomes["player-win"] != float64(1) {
		t.Errorf("Unexpected outcomes: %v", decoded["outcomes"])
	}
}
