package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "cade.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaultsWhenFieldsAbsent(t *testing.T) {
	path := writeConfig(t, `{"cache": [{"kind": "filesystem", "path": "/var/cache/cade"}]}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.False(t, cfg.Debug)
	assert.False(t, cfg.PanicOnCacheContentMismatch)
	require.Len(t, cfg.Cache, 1)
	assert.True(t, cfg.Cache[0].ResolvedUpdateOnHit())
	assert.True(t, cfg.Cache[0].ResolvedTestIfUpdateIsRequired())
}

func TestLoadHonorsExplicitFalse(t *testing.T) {
	path := writeConfig(t, `{"cache": [{"kind": "filesystem", "path": "/cache", "update_on_hit": false}]}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Len(t, cfg.Cache, 1)
	assert.False(t, cfg.Cache[0].ResolvedUpdateOnHit())
	assert.True(t, cfg.Cache[0].ResolvedTestIfUpdateIsRequired())
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.json"))
	require.NoError(t, err)
	assert.Empty(t, cfg.Cache)
	assert.False(t, cfg.Debug)
}

func TestLoadEnvironmentOverlay(t *testing.T) {
	path := writeConfig(t, `{"debug": false}`)

	require.NoError(t, os.Setenv("CADE_DEBUG", "true"))
	t.Cleanup(func() { os.Unsetenv("CADE_DEBUG") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Debug)
}

func TestLoadBaseDirAndMismatchFlag(t *testing.T) {
	path := writeConfig(t, `{"base_dir": "/build", "panic_on_cache_content_mismatch": true}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/build", cfg.BaseDir)
	assert.True(t, cfg.PanicOnCacheContentMismatch)
}

func TestLoadRemoteProviderFields(t *testing.T) {
	path := writeConfig(t, `{"cache": [{"kind": "remote", "url": "redis://localhost:6379", "expire_seconds": 3600}]}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Cache, 1)
	assert.Equal(t, "redis://localhost:6379", cfg.Cache[0].URL)
	require.NotNil(t, cfg.Cache[0].ExpireSeconds)
	assert.Equal(t, 3600, *cfg.Cache[0].ExpireSeconds)
}
