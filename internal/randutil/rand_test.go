package randutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewIsDeterministic(t *testing.T) {
	a := New(42)
	b := New(42)
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.Uint64(), b.Uint64())
	}
	assert.NotEqual(t, New(1).Uint64(), New(2).Uint64())
}

func TestNewLockedMatchesNew(t *testing.T) {
	a := New(7)
	b := NewLocked(7)
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.IntN(52), b.IntN(52))
	}
}

func TestNewLockedConcurrentUse(t *testing.T) {
	rng := NewLocked(99)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				_ = rng.IntN(52)
			}
		}()
	}
	wg.Wait()
}

func TestSeed(t *testing.T) {
	explicit := int64(1234)
	assert.Equal(t, explicit, Seed(&explicit))
	assert.NotZero(t, Seed(nil))
}
