package utils

import (
	"crypto/rand"
	"encoding/hex"
)

// GenerateClickToken returns a fresh one-time click-tracking token: 16 random
// bytes (128 bits of entropy) hex encoded. The token is embedded in a
// delivery's deep link and must be unguessable, so this always uses
// crypto/rand and panics only if the OS entropy source is broken.
func GenerateClickToken() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		panic("utils: crypto/rand unavailable: " + err.Error())
	}
	return hex.EncodeToString(buf)
}
