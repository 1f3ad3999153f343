// Package config loads the wrapper's single JSON configuration file,
// overlaid with CADE_-prefixed environment variables, and decodes it into
// the typed Config the rest of the program consumes.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/viper"
)

// ProviderConfig describes one cache tier entry, in configuration order.
// Kind selects which concrete cache.Provider cmd/cade builds from it.
// UpdateOnHit and TestIfUpdateIsRequired are pointers so Load can tell "not
// present in the file" (default true, per the original's
// #[serde(default = "bool_true_default")]) apart from an explicit false.
type ProviderConfig struct {
	Kind                   string `mapstructure:"kind"`
	Path                   string `mapstructure:"path"`
	URL                    string `mapstructure:"url"`
	ExpireSeconds          *int   `mapstructure:"expire_seconds"`
	UpdateOnHit            *bool  `mapstructure:"update_on_hit"`
	TestIfUpdateIsRequired *bool  `mapstructure:"test_if_update_is_required"`
	Access                 string `mapstructure:"access"`
}

// ResolvedUpdateOnHit returns the effective flag: true unless the config
// file explicitly set it to false.
func (p ProviderConfig) ResolvedUpdateOnHit() bool {
	return p.UpdateOnHit == nil || *p.UpdateOnHit
}

// ResolvedTestIfUpdateIsRequired returns the effective flag: true unless
// the config file explicitly set it to false.
func (p ProviderConfig) ResolvedTestIfUpdateIsRequired() bool {
	return p.TestIfUpdateIsRequired == nil || *p.TestIfUpdateIsRequired
}

// LogTarget optionally mirrors replayed stdout/stderr to a file in addition
// to the process's real streams. Path may reference the {obj_folder}/
// {obj_path} templates resolved by internal/replay.
type LogTarget struct {
	Path   string `mapstructure:"path"`
	Append bool   `mapstructure:"append"`
}

// Config is the fully decoded wrapper configuration, per spec §6.
type Config struct {
	BaseDir                     string           `mapstructure:"base_dir"`
	Cache                       []ProviderConfig `mapstructure:"cache"`
	Debug                       bool             `mapstructure:"debug"`
	PanicOnCacheContentMismatch bool             `mapstructure:"panic_on_cache_content_mismatch"`
	LogStdout                   LogTarget        `mapstructure:"log_stdout"`
	LogStderr                   LogTarget        `mapstructure:"log_stderr"`
}

// Load reads path as JSON, overlays CADE_-prefixed environment variables
// (nested keys joined with "_", list values space-separated), and decodes
// the result into a Config. A missing file is not an error: an
// all-environment-variable configuration, or an empty one with every field
// at its zero value, is valid (spec §6, "cache == none" resolves as a
// soft-disabled cache rather than a required section).
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	v.SetEnvPrefix("CADE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("debug", false)
	v.SetDefault("panic_on_cache_content_mismatch", false)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: reading %q: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decoding: %w", err)
	}

	return &cfg, nil
}
