package cache

import (
	"testing"

	"github.com/fabtrie/cade/internal/compress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memProvider is a minimal in-memory Provider for exercising TieredCache
// without touching disk or network.
type memProvider struct {
	id                     string
	data                   map[string][]byte
	update                 bool
	testIfUpdateIsRequired bool
}

func newMemProvider(id string, update bool, testIfUpdateIsRequired bool) *memProvider {
	return &memProvider{id: id, data: map[string][]byte{}, update: update, testIfUpdateIsRequired: testIfUpdateIsRequired}
}

func (p *memProvider) fullKey(category Category, key string) string {
	return string(category) + "/" + key
}

func (p *memProvider) ID() string { return p.id }

func (p *memProvider) Get(category Category, key string) ([]byte, error) {
	v, ok := p.data[p.fullKey(category, key)]
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

func (p *memProvider) Set(category Category, key string, value []byte) error {
	p.data[p.fullKey(category, key)] = value
	return nil
}

func (p *memProvider) Has(category Category, key string) bool {
	_, ok := p.data[p.fullKey(category, key)]
	return ok
}

func (p *memProvider) Delete(category Category, key string) error {
	delete(p.data, p.fullKey(category, key))
	return nil
}

func (p *memProvider) Update() bool                 { return p.update }
func (p *memProvider) TestIfUpdateIsRequired() bool { return p.testIfUpdateIsRequired }

func TestSetThenGetRoundTrip(t *testing.T) {
	p1 := newMemProvider("0", true, true)
	tc := NewTieredCache([]Provider{p1}, nil)

	require.NoError(t, tc.Set(CategoryObj, "fp1", []byte("object bytes")))

	got, providerID, err := tc.Get(CategoryObj, "fp1", "")
	require.NoError(t, err)
	assert.Equal(t, []byte("object bytes"), got)
	assert.Equal(t, "0", providerID)
}

func TestSetIsIdempotent(t *testing.T) {
	p1 := newMemProvider("0", true, true)
	tc := NewTieredCache([]Provider{p1}, nil)

	for i := 0; i < 3; i++ {
		require.NoError(t, tc.Set(CategoryObj, "fp1", []byte("v")))
	}
	got, _, err := tc.Get(CategoryObj, "fp1", "")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}

func TestPromotionToSecondProvider(t *testing.T) {
	p1 := newMemProvider("0", true, true)
	p2 := newMemProvider("1", true, true)
	tc := NewTieredCache([]Provider{p1, p2}, nil)

	// seed only p1
	compressed := compress.Compress([]byte("object bytes"))
	require.NoError(t, p1.Set(CategoryObj, "fp1", compressed))

	got, hitID, err := tc.Get(CategoryObj, "fp1", "")
	require.NoError(t, err)
	assert.Equal(t, []byte("object bytes"), got)
	assert.Equal(t, "0", hitID)

	// p2 should now hold the same compressed bytes
	p2Raw, err := p2.Get(CategoryObj, "fp1")
	require.NoError(t, err)
	assert.Equal(t, compressed, p2Raw)
}

func TestSelfHealOnCorruptFirstProvider(t *testing.T) {
	p1 := newMemProvider("0", true, true)
	p2 := newMemProvider("1", true, true)
	tc := NewTieredCache([]Provider{p1, p2}, nil)

	// p1 holds garbage, p2 holds a valid entry
	require.NoError(t, p1.Set(CategoryObj, "fp1", []byte{0xFF, 0xFF, 0xFF}))
	validCompressed := compress.Compress([]byte("good bytes"))
	require.NoError(t, p2.Set(CategoryObj, "fp1", validCompressed))

	got, hitID, err := tc.Get(CategoryObj, "fp1", "")
	require.NoError(t, err)
	assert.Equal(t, []byte("good bytes"), got)
	assert.Equal(t, "1", hitID)

	// p1 no longer holds the corrupt bytes...
	p1Raw, err := p1.Get(CategoryObj, "fp1")
	require.NoError(t, err)
	assert.NotEqual(t, []byte{0xFF, 0xFF, 0xFF}, p1Raw)

	// ...and was re-promoted with p2's valid bytes.
	assert.Equal(t, validCompressed, p1Raw)
}

func TestGetNotFoundAcrossAllProviders(t *testing.T) {
	p1 := newMemProvider("0", true, true)
	tc := NewTieredCache([]Provider{p1}, nil)

	_, _, err := tc.Get(CategoryObj, "missing", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPinnedGetSkipsOtherProviders(t *testing.T) {
	p1 := newMemProvider("0", true, true)
	p2 := newMemProvider("1", true, true)
	tc := NewTieredCache([]Provider{p1, p2}, nil)

	require.NoError(t, p2.Set(CategoryStdout, "fp1", compress.Compress([]byte("out"))))

	_, _, err := tc.Get(CategoryStdout, "fp1", "0")
	assert.ErrorIs(t, err, ErrNotFound)

	got, hitID, err := tc.Get(CategoryStdout, "fp1", "1")
	require.NoError(t, err)
	assert.Equal(t, []byte("out"), got)
	assert.Equal(t, "1", hitID)
}

func TestPromotionSkippedWhenTestRequiredAndAlreadyPresent(t *testing.T) {
	p1 := newMemProvider("0", true, true)
	p2 := newMemProvider("1", true, true)
	tc := NewTieredCache([]Provider{p1, p2}, nil)

	require.NoError(t, p1.Set(CategoryObj, "fp1", compress.Compress([]byte("a"))))
	// p2 already has a (different) entry and requires a presence test
	require.NoError(t, p2.Set(CategoryObj, "fp1", compress.Compress([]byte("stale"))))

	_, _, err := tc.Get(CategoryObj, "fp1", "")
	require.NoError(t, err)

	p2Raw, err := p2.Get(CategoryObj, "fp1")
	require.NoError(t, err)
	decoded, _ := compress.Decompress(p2Raw)
	assert.Equal(t, []byte("stale"), decoded) // untouched: not overwritten
}
