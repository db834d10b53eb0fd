package common

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// MakeRandHexString returns size random bytes encoded as hex, so the result
// is 2*size characters long. It fails only if the system RNG fails.
func MakeRandHexString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// WipeByteArray zeroes b in place. Used for passwords read from the terminal.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// NowMillis returns the current time as Unix milliseconds, the timestamp unit
// used by every record and outbox item.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
