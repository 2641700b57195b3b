package tangle

import (
	"crypto/rand"
	"fmt"
)

const seedLen = 81

const seedChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ9"

// GenerateSeed returns a random 81-character seed over the tangle alphabet
// (A-Z and 9), drawn from crypto/rand.
func GenerateSeed() (string, error) {
	buf := make([]byte, seedLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	seed := make([]byte, seedLen)
	for i, b := range buf {
		seed[i] = seedChars[int(b)%len(seedChars)]
	}
	return string(seed), nil
}
