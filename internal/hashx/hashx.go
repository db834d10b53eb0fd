// Package hashx implements the deterministic salted digests used for demo
// credential checks. Both hashers are deterministic for a fixed salt so that a
// stored digest can be compared with a freshly computed one.
package hashx

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// DefaultSalt is the application-wide salt used by the demo data set.
const DefaultSalt = "suitewaste-os-pwa-demo-salt"

const (
	KindSHA256 = "sha256"
	KindArgon2 = "argon2"
)

// Hasher turns a secret into a hex digest.
type Hasher interface {
	Hash(text string) string
}

// SHA256Hasher computes hex(SHA-256(text + Salt)).
type SHA256Hasher struct {
	Salt string
}

func (h SHA256Hasher) Hash(text string) string {
	sum := sha256.Sum256([]byte(text + h.Salt))
	return hex.EncodeToString(sum[:])
}

// Argon2Hasher computes hex(argon2id(text, Salt)) with the same cost
// parameters the vault key derivation used.
type Argon2Hasher struct {
	Salt string
}

func (h Argon2Hasher) Hash(text string) string {
	key := argon2.IDKey([]byte(text), []byte(h.Salt), 1, 64*1024, 4, 32)
	return hex.EncodeToString(key)
}

// New returns the hasher registered under kind. An empty salt selects DefaultSalt.
func New(kind, salt string) (Hasher, error) {
	if salt == "" {
		salt = DefaultSalt
	}
	switch kind {
	case "", KindSHA256:
		return SHA256Hasher{Salt: salt}, nil
	case KindArgon2:
		return Argon2Hasher{Salt: salt}, nil
	default:
		return nil, fmt.Errorf("unknown hasher %q", kind)
	}
}
