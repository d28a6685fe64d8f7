// Package randutil builds the random sources used for shuffling and seat assignment.
package randutil

import (
	rand "math/rand/v2"
	"sync"
	"time"
)

const (
	goldenRatio64 = 0x9e3779b97f4a7c15
)

// New returns a *rand.Rand seeded deterministically from the provided int64.
// The helper centralises how we derive the two 64-bit seeds required by rand/v2
// so that all call sites get reproducible sequences.
func New(seed int64) *rand.Rand {
	return rand.New(newPCG(seed))
}

// NewLocked is like New but the returned generator is safe for concurrent use.
// The engine shares one generator across every session it serves.
func NewLocked(seed int64) *rand.Rand {
	return rand.New(&lockedSource{src: newPCG(seed)})
}

// Seed returns *explicit when set, otherwise a time derived seed.
func Seed(explicit *int64) int64 {
	if explicit != nil {
		return *explicit
	}
	return time.Now().UnixNano()
}

func newPCG(seed int64) *rand.PCG {
	u := uint64(seed)
	return rand.NewPCG(mix(u), mix(u+goldenRatio64))
}

type lockedSource struct {
	mu  sync.Mutex
	src rand.Source
}

func (s *lockedSource) Uint64() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Uint64()
}

func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
