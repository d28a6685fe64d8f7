// Package statistics accumulates hand results from simulated play.
package statistics

import (
	"fmt"
	"math"
	"sort"

	"github.com/lox/blackjack/internal/game"
)

// HandResult is the outcome of a single settled hand
type HandResult struct {
	Net     float64     // Net result in minimum bets
	Seat    int         // Seat index the hand was played from
	Outcome game.Result // Settlement result
	Natural bool        // Two card 21 on an unsplit hand
	Doubled bool
	Split   bool
}

// SeatStats tracks results for one seat at the table
type SeatStats struct {
	Hands int     `json:"hands"`
	Sum   float64 `json:"sum"`
	SumSq float64 `json:"-"`
}

// Statistics tracks results across many hands
type Statistics struct {
	Hands  int       `json:"hands"`
	Sum    float64   `json:"sum"`
	SumSq  float64   `json:"-"` // Sum of squares for variance calculation
	Values []float64 `json:"-"` // Kept for median and percentiles

	Outcomes map[string]int `json:"outcomes"`
	Naturals int            `json:"naturals"`
	Doubles  int            `json:"doubles"`
	Splits   int            `json:"splits"`

	Seats [game.MaxPlayers]SeatStats `json:"seats"`
}

// New returns empty statistics
func New() *Statistics {
	return &Statistics{Outcomes: make(map[string]int)}
}

// Add incorporates one hand
func (s *Statistics) Add(result HandResult) {
	if s.Outcomes == nil {
		s.Outcomes = make(map[string]int)
	}
	net := result.Net
	s.Hands++
	s.Sum += net
	s.SumSq += net * net
	s.Values = append(s.Values, net)
	s.Outcomes[result.Outcome.String()]++

	if result.Natural {
		s.Naturals++
	}
	if result.Doubled {
		s.Doubles++
	}
	if result.Split {
		s.Splits++
	}

	if result.Seat >= 0 && result.Seat < len(s.Seats) {
		s.Seats[result.Seat].Hands++
		s.Seats[result.Seat].Sum += net
		s.Seats[result.Seat].SumSq += net * net
	}
}

// Merge folds other into s. Used to combine per-worker results.
func (s *Statistics) Merge(other *Statistics) {
	if s.Outcomes == nil {
		s.Outcomes = make(map[string]int)
	}
	s.Hands += other.Hands
	s.Sum += other.Sum
	s.SumSq += other.SumSq
	s.Values = append(s.Values, other.Values...)
	for k, v := range other.Outcomes {
		s.Outcomes[k] += v
	}
	s.Naturals += other.Naturals
	s.Doubles += other.Doubles
	s.Splits += other.Splits
	for i := range s.Seats {
		s.Seats[i].Hands += other.Seats[i].Hands
		s.Seats[i].Sum += other.Seats[i].Sum
		s.Seats[i].SumSq += other.Seats[i].SumSq
	}
}

// Mean returns the average net result per hand
func (s *Statistics) Mean() float64 {
	if s.Hands == 0 {
		return 0
	}
	return s.Sum / float64(s.Hands)
}

// Variance returns the sample variance
func (s *Statistics) Variance() float64 {
	if s.Hands < 2 {
		return 0
	}
	mean := s.Mean()
	return (s.SumSq - float64(s.Hands)*mean*mean) / float64(s.Hands-1)
}

// StdDev returns the sample standard deviation
func (s *Statistics) StdDev() float64 {
	return math.Sqrt(s.Variance())
}

// StdError returns the standard error of the mean
func (s *Statistics) StdError() float64 {
	if s.Hands == 0 {
		return 0
	}
	return s.StdDev() / math.Sqrt(float64(s.Hands))
}

// ConfidenceInterval95 returns the 95% confidence interval for the mean
func (s *Statistics) ConfidenceInterval95() (float64, float64) {
	mean := s.Mean()
	margin := 1.96 * s.StdError()
	return mean - margin, mean + margin
}

// Median returns the median net result
func (s *Statistics) Median() float64 {
	return s.Percentile(0.5)
}

// Percentile returns the value at p in [0, 1], interpolating between neighbours
func (s *Statistics) Percentile(p float64) float64 {
	if len(s.Values) == 0 {
		return 0
	}
	sorted := make([]float64, len(s.Values))
	copy(sorted, s.Values)
	sort.Float64s(sorted)

	index := p * float64(len(sorted)-1)
	lower := int(index)
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// Rate returns the fraction of hands that ended with outcome
func (s *Statistics) Rate(outcome game.Result) float64 {
	if s.Hands == 0 {
		return 0
	}
	return float64(s.Outcomes[outcome.String()]) / float64(s.Hands)
}

// SeatMean returns the mean result for one seat
func (s *Statistics) SeatMean(seat int) float64 {
	if seat < 0 || seat >= len(s.Seats) || s.Seats[seat].Hands == 0 {
		return 0
	}
	return s.Seats[seat].Sum / float64(s.Seats[seat].Hands)
}

// Validate checks the counters agree with each other
func (s *Statistics) Validate() error {
	if s.Hands < 0 {
		return fmt.Errorf("negative hand count: %d", s.Hands)
	}
	if n := s.Outcomes[game.InProgress.String()]; n > 0 {
		return fmt.Errorf("%d hands were never settled", n)
	}

	outcomes := 0
	for _, n := range s.Outcomes {
		outcomes += n
	}
	if outcomes != s.Hands {
		return fmt.Errorf("outcome count mismatch: %d outcomes for %d hands", outcomes, s.Hands)
	}

	seatHands := 0
	seatSum := 0.0
	for _, seat := range s.Seats {
		seatHands += seat.Hands
		seatSum += seat.Sum
	}
	if seatHands != s.Hands {
		return fmt.Errorf("seat count mismatch: %d seat hands for %d hands", seatHands, s.Hands)
	}
	if math.Abs(seatSum-s.Sum) > 1e-6 {
		return fmt.Errorf("ledger mismatch: seats=%.6f total=%.6f", seatSum, s.Sum)
	}
	if math.IsNaN(s.Mean()) || math.IsInf(s.Mean(), 0) {
		return fmt.Errorf("invalid mean: %f", s.Mean())
	}
	return nil
}
