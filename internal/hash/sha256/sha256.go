// Package sha256 derives stable cache keys from prompt material.
package sha256

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// Hasher implements cache.Hasher using SHA-256.
type Hasher struct{}

// New returns a SHA-256 hasher.
func New() *Hasher {
	return &Hasher{}
}

// HashParts hashes parts with length prefixes, so ("ab","c") and ("a","bc")
// produce different digests.
func (h *Hasher) HashParts(parts ...string) string {
	d := sha256.New()
	var size [8]byte
	for _, p := range parts {
		binary.BigEndian.PutUint64(size[:], uint64(len(p)))
		d.Write(size[:])
		d.Write([]byte(p))
	}
	return hex.EncodeToString(d.Sum(nil))
}
