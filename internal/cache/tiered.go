package cache

import (
	"errors"
	"fmt"

	"github.com/fabtrie/cade/internal/common"
	"github.com/fabtrie/cade/internal/compress"
)

// TieredCache composes an ordered list of providers behind one (category,
// key) interface. Reads are read-through with promotion; writes fan out to
// every updatable provider. Consumers always see uncompressed bytes;
// providers only ever see compressed bytes — that boundary is enforced
// here, nowhere else.
type TieredCache struct {
	providers []Provider
	logger    *common.LoggerWrapper
}

// NewTieredCache builds a tiered cache over providers, in the given order.
// An empty provider list is a valid, explicit no-op cache: spec's Open
// Question resolves "cache == none" as soft-disable, not an error.
func NewTieredCache(providers []Provider, logger *common.LoggerWrapper) *TieredCache {
	return &TieredCache{providers: providers, logger: logger}
}

// Get performs the read-through/promote/self-heal algorithm described in
// spec §4.2. When pinnedProviderID is non-empty, only the provider with
// that id is consulted — used to guarantee stdout/stderr are read from the
// same provider that served the object, avoiding partial-promotion
// inconsistencies across providers holding disjoint subsets.
//
// Returns the uncompressed bytes and the id of the provider that served
// them, or ErrNotFound if no provider holds a decodable entry.
func (c *TieredCache) Get(category Category, key string, pinnedProviderID string) ([]byte, string, error) {
	foundFaultyEntry := false

	for _, provider := range c.providers {
		if pinnedProviderID != "" && provider.ID() != pinnedProviderID {
			continue
		}

		raw, err := provider.Get(category, key)
		if err != nil {
			continue // miss or transport error: both mean "try the next provider"
		}

		decompressed, err := compress.Decompress(raw)
		if err != nil {
			// Self-heal: the entry is undecodable. Delete it and force
			// re-promotion to downstream providers once a good copy
			// is found.
			if c.logger != nil {
				c.logger.Debug("faulty entry found in cache provider", provider.ID(), "category", string(category), "key", key)
			}
			_ = provider.Delete(category, key)
			foundFaultyEntry = true
			continue
		}

		c.promote(category, key, raw, provider.ID(), foundFaultyEntry)
		return decompressed, provider.ID(), nil
	}

	return nil, "", ErrNotFound
}

// promote writes the already-compressed payload to every other provider
// that accepts updates, provided either it doesn't require a presence
// check, it doesn't already have the entry, or an earlier provider in this
// same Get call was found corrupt (forcing a re-promotion everywhere).
func (c *TieredCache) promote(category Category, key string, compressedData []byte, hitProviderID string, foundFaultyEntry bool) {
	for _, provider := range c.providers {
		if provider.ID() == hitProviderID || !provider.Update() {
			continue
		}
		if provider.TestIfUpdateIsRequired() && provider.Has(category, key) && !foundFaultyEntry {
			continue
		}

		if c.logger != nil {
			c.logger.Debug("updating cache provider", provider.ID(), "category", string(category), "key", key)
		}
		if err := provider.Set(category, key, compressedData); err != nil && c.logger != nil {
			c.logger.Debug("promotion write failed on provider", provider.ID(), err)
		}
	}
}

// Set compresses value once and writes it to every provider whose Update()
// is true. A failure on one provider is recorded but does not abort the
// fan-out to the rest; the combined diagnostic (if any) is returned so
// callers can log it without treating it as fatal.
func (c *TieredCache) Set(category Category, key string, value []byte) error {
	compressed := compress.Compress(value)

	var errs []error
	for _, provider := range c.providers {
		if !provider.Update() {
			continue
		}
		if err := provider.Set(category, key, compressed); err != nil {
			errs = append(errs, fmt.Errorf("provider %s: %w", provider.ID(), err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
