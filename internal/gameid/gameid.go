// Package gameid generates round identifiers: UUIDv7 values encoded as
// 26-character Crockford base32 strings, so ids sort by creation time.
package gameid

import (
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
)

// Base32 alphabet used by TypeID (Crockford's base32)
const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

// Generator creates round ids, optionally from a fixed entropy source
type Generator struct {
	entropy io.Reader
}

// NewGenerator creates a generator. A nil reader uses crypto randomness.
func NewGenerator(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// Generate creates a new round id using crypto randomness
func Generate() string {
	return NewGenerator(nil).Generate()
}

// Generate creates a new round id
func (g *Generator) Generate() string {
	var (
		id  uuid.UUID
		err error
	)
	if g.entropy != nil {
		id, err = uuid.NewV7FromReader(g.entropy)
	} else {
		id, err = uuid.NewV7()
	}
	if err != nil {
		panic("gameid: failed to generate uuid: " + err.Error())
	}
	return encodeBase32(id)
}

// encodeBase32 encodes a 128-bit UUID as a 26-character base32 string.
// The value is treated as 130 bits with two leading zero bits.
func encodeBase32(data [16]byte) string {
	result := make([]byte, 26)
	for i := 0; i < 26; i++ {
		// Bit position counted from the most significant bit of the 130-bit value
		bitOffset := i*5 - 2
		var value uint8
		for b := 0; b < 5; b++ {
			pos := bitOffset + b
			value <<= 1
			if pos < 0 {
				continue
			}
			if data[pos/8]&(0x80>>(pos%8)) != 0 {
				value |= 1
			}
		}
		result[i] = alphabet[value]
	}
	return string(result)
}

// Validate checks if a round id is valid (26 characters, valid base32)
func Validate(id string) error {
	if len(id) != 26 {
		return fmt.Errorf("round ID must be exactly 26 characters, got %d", len(id))
	}

	// The two padding bits keep the first character in 0-7
	if id[0] > '7' {
		return fmt.Errorf("round ID first character must be 0-7, got %c", id[0])
	}

	for i, char := range id {
		if !strings.ContainsRune(alphabet, char) {
			return fmt.Errorf("invalid character %c at position %d", char, i)
		}
	}

	return nil
}
