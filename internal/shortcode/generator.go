package shortcode

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// Alphabet is the 62-symbol alphanumeric alphabet short codes are drawn
// from. Codes are case-sensitive, so upper and lower case are distinct
// symbols.
const Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

var alphabetSize = big.NewInt(int64(len(Alphabet)))

// MaxAttempts is the retry ceiling for generated-code collisions. Exceeding
// it is a system health signal, not something to paper over with longer
// codes or sequential fallbacks.
const MaxAttempts = 5

// Generator produces fixed-length random short code candidates.
type Generator struct {
	length          int
	maxCustomLength int
}

// New creates a generator producing codes of the given length. Custom codes
// supplied by users may be anywhere from 1 to maxCustomLength characters.
func New(length, maxCustomLength int) *Generator {
	if length <= 0 {
		length = 6
	}
	if maxCustomLength <= 0 {
		maxCustomLength = 32
	}
	return &Generator{length: length, maxCustomLength: maxCustomLength}
}

// Generate returns a random candidate code. Uniqueness is the caller's
// responsibility: the storage layer's unique constraint decides, and the
// caller regenerates on collision.
func (g *Generator) Generate() (string, error) {
	var b strings.Builder
	b.Grow(g.length)
	for i := 0; i < g.length; i++ {
		idx, err := rand.Int(rand.Reader, alphabetSize) // uniform in [0,62)
		if err != nil {
			return "", fmt.Errorf("failed to read random source: %w", err)
		}
		b.WriteByte(Alphabet[idx.Int64()])
	}
	return b.String(), nil
}

// ValidateCustom checks a user-supplied code against the charset and length
// rules. The code is used verbatim on success; collision detection stays
// with the storage layer.
func (g *Generator) ValidateCustom(code string) error {
	if code == "" {
		return fmt.Errorf("custom code must not be empty")
	}
	if len(code) > g.maxCustomLength {
		return fmt.Errorf("custom code must be at most %d characters", g.maxCustomLength)
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if !isAlphanumeric(c) {
			return fmt.Errorf("custom code may only contain alphanumeric characters")
		}
	}
	return nil
}

func isAlphanumeric(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z'
}
