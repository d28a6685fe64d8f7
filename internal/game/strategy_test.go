package game

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasicStrategy(t *testing.T) {
	tests := []struct {
		cards     string
		up        int
		canDouble bool
		canSplit  bool
		want      Action
	}{
		// Pairs
		{"AsAh", 10, true, true, Split},
		{"AsAh", 1, true, true, Split},
		{"8s8h", 10, true, true, Split},
		{"8s8h", 1, false, true, Split},
		{"2s2h", 7, true, true, Split},
		{"2s2h", 8, true, true, Hit},
		{"7s7h", 2, true, true, Split},
		{"6s6h", 8, true, true, Hit},
		{"4s4h", 5, true, true, Split},
		{"4s4h", 4, true, true, Hit},
		{"9s9h", 6, true, true, Split},
		{"9s9h", 7, true, true, Stand},
		{"9s9h", 10, true, true, Stand},
		{"5s5h", 6, true, true, Double},
		{"TsKh", 6, true, true, Stand},

		// Pairs that may not be split fall through to totals
		{"8s8h", 10, true, false, Hit},
		{"AsAh", 6, true, false, Hit},

		// Soft totals
		{"As8h", 6, true, false, Stand},
		{"As7h", 2, true, false, Stand},
		{"As7h", 4, true, false, Double},
		{"As7h", 4, false, false, Stand},
		{"As7h", 9, true, false, Hit},
		{"As7h", 1, true, false, Hit},
		{"As6h", 3, true, false, Double},
		{"As6h", 3, false, false, Hit},
		{"As6h", 2, true, false, Hit},
		{"As2h", 5, true, false, Double},
		{"As2h", 4, true, false, Hit},
		{"AsAh9d", 2, false, false, Stand},

		// Hard totals
		{"Ts7h", 1, true, false, Stand},
		{"Ts6h", 6, true, false, Stand},
		{"Ts6h", 10, true, false, Hit},
		{"Ts3h", 2, true, false, Stand},
		{"Ts2h", 4, true, false, Stand},
		{"Ts2h", 3, true, false, Hit},
		{"Ts2h", 7, true, false, Hit},
		{"6s5h", 10, true, false, Double},
		{"6s5h", 1, true, false, Double},
		{"6s5h", 1, false, false, Hit},
		{"6s4h", 9, true, false, Double},
		{"6s4h", 10, true, false, Hit},
		{"6s4h", 1, true, false, Hit},
		{"5s4h", 3, true, false, Double},
		{"5s4h", 2, true, false, Hit},
		{"5s3h", 5, true, false, Hit},
		{"2s3h4d", 6, false, false, Hit},
	}

	var s BasicStrategy
	for _, tt := range tests {
		name := fmt.Sprintf("%s_vs_%d_double=%v_split=%v", tt.cards, tt.up, tt.canDouble, tt.canSplit)
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Decide(hand(tt.cards), tt.up, tt.canDouble, tt.canSplit))
		})
	}
}

func TestStrategyFunc(t *testing.T) {
	var s Strategy = StrategyFunc(func(Hand, int, bool, bool) Action { return Stand })
	assert.Equal(t, Stand, s.Decide(hand("2s3h"), 10, true, false))
}

func TestParseAction(t *testing.T) {
	for _, a := range []Action{Hit, Stand, Double, Split} {
		got, err := ParseAction(a.String())
		require.NoError(t, err)
		assert.Equal(t, a, got)
	}

	got, err := ParseAction(" P ")
	require.NoError(t, err)
	assert.Equal(t, Split, got)

	_, err = ParseAction("surrender")
	assert.Error(t, err)
}
