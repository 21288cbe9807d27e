package util

import (
	"crypto/rand"
	"encoding/hex"
)

// NewID returns a random hex identifier used for request ids and object
// keys. 12 bytes keeps keys short while making collisions negligible.
func NewID() string {
	b := make([]byte, 12)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
