// Package hash provides the incremental content hasher used to fingerprint
// compiler invocations: normalized arguments, source content and, in the
// second phase, every prerequisite file's content.
package hash

import (
	"encoding/hex"

	"lukechampine.com/blake3"
)

// Hasher accumulates bytes in feed order and produces a fixed-width hex
// fingerprint. Two hashers fed the same byte sequence in the same order
// always finalize to the same string; feed order matters, nothing else does.
type Hasher struct {
	impl *blake3.Hasher
}

// NewHasher returns a fresh incremental hasher.
func NewHasher() *Hasher {
	return &Hasher{impl: blake3.New(32, nil)}
}

// Update feeds p into the hash state.
func (h *Hasher) Update(p []byte) {
	_, _ = h.impl.Write(p)
}

// Finalize returns the lowercase 64-hex-character fingerprint. The Hasher
// remains usable afterward (blake3 supports repeated Sum calls), but callers
// should treat a finalized Hasher as done.
func (h *Hasher) Finalize() string {
	return hex.EncodeToString(h.impl.Sum(nil))
}

// HashBytes is a one-shot convenience over a single byte slice.
func HashBytes(p []byte) string {
	h := NewHasher()
	h.Update(p)
	return h.Finalize()
}
