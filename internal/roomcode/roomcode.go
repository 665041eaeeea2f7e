// Package roomcode generates short join codes for rooms.
package roomcode

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// alphabet omits characters that read ambiguously when shared out loud or
// scrawled on paper (0/O, 1/I/L).
const alphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// New returns a random room code of the given length.
func New(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("room code length must be positive, got %d", length)
	}
	max := big.NewInt(int64(len(alphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate room code: %w", err)
		}
		out[i] = alphabet[n.Int64()]
	}
	return string(out), nil
}

// Valid reports whether a code could have been produced by New with the
// given length.
func Valid(code string, length int) bool {
	if len(code) != length {
		return false
	}
	for i := 0; i < len(code); i++ {
		found := false
		for j := 0; j < len(alphabet); j++ {
			if code[i] == alphabet[j] {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
