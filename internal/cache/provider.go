// Package cache implements the tiered cache: a composition of backing
// providers (filesystem, remote key-value) behind one get/set/has/delete
// interface, with read-through promotion and self-healing of corrupt
// entries.
package cache

import "errors"

// Category is the closed set of cache entry kinds. CategoryNone addresses a
// provider's flat namespace directly (no category folder/prefix).
type Category string

const (
	CategoryNone   Category = ""
	CategoryObj    Category = "obj"
	CategoryDep    Category = "dep"
	CategoryStdout Category = "stdout"
	CategoryStderr Category = "stderr"
)

// ErrNotFound is returned by a Provider (or the TieredCache) when a key is
// absent. It is distinct from a transport error: a transport error is also
// treated as a miss by the tiered cache, but it is diagnosable separately.
var ErrNotFound = errors.New("cache: entry not found")

// Provider is one backing store participating in the tiered cache. Identity
// is a stable string assigned at construction (configuration order), used
// to pin promotion/lookup targets.
type Provider interface {
	ID() string

	// Get returns the raw (compressed) bytes stored under (category, key),
	// or ErrNotFound if absent, or a transport error.
	Get(category Category, key string) ([]byte, error)

	// Set stores value under (category, key). Idempotent; see the
	// panic-on-mismatch contract on concrete providers for the one case
	// where Set can abort the whole process.
	Set(category Category, key string, value []byte) error

	// Has reports presence without fetching the payload.
	Has(category Category, key string) bool

	// Delete removes (category, key). Idempotent: a missing entry is not
	// an error.
	Delete(category Category, key string) error

	// Update reports whether this provider accepts writes from promotions
	// and from TieredCache.Set's fan-out.
	Update() bool

	// TestIfUpdateIsRequired reports whether promotion to this provider
	// should first check absence (skip the write if already present,
	// unless a corrupt entry was found upstream this call).
	TestIfUpdateIsRequired() bool
}
