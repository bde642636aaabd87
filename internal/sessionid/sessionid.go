// Package sessionid generates the opaque identifiers handed out for game
// sessions and accounts. IDs are UUIDv7 values encoded as 26-character
// Crockford base32, so they sort by creation time and stay URL-safe.
package sessionid

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"
)

const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

// RandSource supplies the random tail of an ID. Injected by tests that need
// deterministic IDs.
type RandSource interface {
	Intn(n int) int
}

// Generator produces IDs with configurable randomness.
type Generator struct {
	randSource RandSource
}

// NewGenerator creates a generator. A nil RandSource means crypto/rand.
func NewGenerator(randSource RandSource) *Generator {
	return &Generator{randSource: randSource}
}

// Generate creates a new ID using crypto/rand for the random bits.
func Generate() string {
	return NewGenerator(nil).Generate()
}

// Generate creates a new ID using the generator's RandSource.
func (g *Generator) Generate() string {
	return encodeBase32(g.uuidv7())
}

// uuidv7 builds a 128-bit UUIDv7: 48-bit millisecond timestamp, then version
// and variant bits over random data.
func (g *Generator) uuidv7() [16]byte {
	var uuid [16]byte

	now := time.Now().UnixMilli()
	uuid[0] = byte(now >> 40)
	uuid[1] = byte(now >> 32)
	uuid[2] = byte(now >> 24)
	uuid[3] = byte(now >> 16)
	uuid[4] = byte(now >> 8)
	uuid[5] = byte(now)

	if g.randSource != nil {
		for i := 6; i < 16; i++ {
			uuid[i] = byte(g.randSource.Intn(256))
		}
	} else {
		if _, err := rand.Read(uuid[6:]); err != nil {
			panic("sessionid: failed to generate random bytes: " + err.Error())
		}
	}

	uuid[6] = (uuid[6] & 0x0f) | 0x70 // version 7
	uuid[8] = (uuid[8] & 0x3f) | 0x80 // variant 10

	return uuid
}

// encodeBase32 writes the 128 bits as 26 base32 characters, MSB first. The
// final character carries the trailing 3 bits padded with zeros. The first
// character stays in 0-7 while the timestamp's top two bits are zero, which
// holds for millisecond timestamps far beyond this century.
func encodeBase32(data [16]byte) string {
	var out [26]byte

	var acc uint64
	bits := 0
	idx := 0
	for _, b := range data {
		acc = acc<<8 | uint64(b)
		bits += 8
		for bits >= 5 {
			out[idx] = alphabet[(acc>>uint(bits-5))&0x1f]
			bits -= 5
			idx++
		}
	}
	out[idx] = alphabet[(acc&0x07)<<2]

	return string(out[:])
}

// Validate checks that an ID is 26 characters of valid base32.
func Validate(id string) error {
	if len(id) != 26 {
		return fmt.Errorf("id must be exactly 26 characters, got %d", len(id))
	}
	if id[0] > '7' {
		return fmt.Errorf("id first character must be 0-7, got %c", id[0])
	}
	for i, char := range id {
		if !strings.ContainsRune(alphabet, char) {
			return fmt.Errorf("invalid character %c at position %d", char, i)
		}
	}
	return nil
}
