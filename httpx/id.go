package httpx

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// genID returns 8 random bytes as hex, enough to tell connections apart
// in logs.
func genID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err == nil {
		return hex.EncodeToString(b[:])
	}
	t := time.Now().UnixNano()
	for i := range b {
		b[i] = byte(t >> (uint(i) * 8))
	}
	return hex.EncodeToString(b[:])
}
