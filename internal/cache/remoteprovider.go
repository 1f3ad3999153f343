package cache

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RemoteProvider is a key-value backing store reached over the network.
// Keys are flattened to "<category>_<key>" (or "<key>" when category is
// CategoryNone). Reads refresh the configured TTL; a missing TTL simply
// skips the refresh call rather than panicking on an absent value.
type RemoteProvider struct {
	id                     string
	client                 *redis.Client
	update                 bool
	testIfUpdateIsRequired bool
	panicOnMismatch        bool
	expire                 *time.Duration
}

// NewRemoteProvider dials (lazily, via the redis client's own connection
// pool) a remote key-value store at url. expire, when non-nil, is the TTL
// reset on every read and applied on every write.
func NewRemoteProvider(id string, url string, update bool, testIfUpdateIsRequired bool, panicOnMismatch bool, expire *time.Duration) (*RemoteProvider, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid remote cache url %q: %w", url, err)
	}

	return &RemoteProvider{
		id:                     id,
		client:                 redis.NewClient(opt),
		update:                 update,
		testIfUpdateIsRequired: testIfUpdateIsRequired,
		panicOnMismatch:        panicOnMismatch,
		expire:                 expire,
	}, nil
}

func (p *RemoteProvider) key(category Category, key string) string {
	if category == CategoryNone {
		return key
	}
	return fmt.Sprintf("%s_%s", category, key)
}

// Get fetches the full key, refreshing the TTL when configured. An empty
// payload (the store's own idea of "value is there but zero bytes") is
// reported as ErrNotFound, matching the reference behavior. Any transport
// failure is returned as-is: the tiered cache treats it as a miss but it
// remains distinguishable from ErrNotFound for diagnostics.
func (p *RemoteProvider) Get(category Category, key string) ([]byte, error) {
	ctx := context.Background()
	fullKey := p.key(category, key)

	var data []byte
	var err error
	if p.expire != nil {
		data, err = p.client.GetEx(ctx, fullKey, *p.expire).Bytes()
	} else {
		data, err = p.client.Get(ctx, fullKey).Bytes()
	}

	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("remote cache transport error: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrNotFound
	}
	return data, nil
}

func (p *RemoteProvider) Set(category Category, key string, value []byte) error {
	ctx := context.Background()
	fullKey := p.key(category, key)

	if p.panicOnMismatch && category != CategoryObj {
		if existing, err := p.client.Get(ctx, fullKey).Bytes(); err == nil {
			if !bytes.Equal(existing, value) {
				panic(fmt.Sprintf("cache: content of remote key %q does not match expected value (hash collision?)", fullKey))
			}
			return nil
		}
	}

	if p.expire != nil {
		return p.client.Set(ctx, fullKey, value, *p.expire).Err()
	}
	return p.client.Set(ctx, fullKey, value, 0).Err()
}

func (p *RemoteProvider) Has(category Category, key string) bool {
	n, err := p.client.Exists(context.Background(), p.key(category, key)).Result()
	return err == nil && n > 0
}

func (p *RemoteProvider) Delete(category Category, key string) error {
	return p.client.Del(context.Background(), p.key(category, key)).Err()
}

func (p *RemoteProvider) ID() string                        { return p.id }
func (p *RemoteProvider) Update() bool                      { return p.update }
func (p *RemoteProvider) TestIfUpdateIsRequired() bool      { return p.testIfUpdateIsRequired }
