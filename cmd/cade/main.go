// Command cade wraps a C/C++ compiler invocation with a content-addressed
// cache: when the current arguments, source file, and recorded
// dependencies are unchanged from a prior run, the cached object file (and
// captured diagnostics) are replayed instead of invoking the real
// compiler.
package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/fabtrie/cade/internal/cache"
	"github.com/fabtrie/cade/internal/common"
	"github.com/fabtrie/cade/internal/compiler"
	"github.com/fabtrie/cade/internal/config"
)

func main() {
	exeName, args := splitCompilerAndArgs(os.Args)

	spec, ok := compiler.SpecForExeName(exeName)
	if !ok {
		fmt.Fprintln(os.Stderr, "[cade] unknown compiler:", exeName)
		os.Exit(1)
	}

	configPath := os.Getenv("CADE_CONFIG")
	if configPath == "" {
		configPath = ".cade.json"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "[cade]", err)
		os.Exit(1)
	}

	logger := common.MakeLogger(cfg.Debug)

	compilerPath, err := findRealCompiler(exeName)
	if err != nil {
		logger.Error(err)
		os.Exit(1)
	}

	providers, err := buildProviders(cfg)
	if err != nil {
		logger.Error(err)
		os.Exit(1)
	}

	tiered := cache.NewTieredCache(providers, logger)
	handler := compiler.NewHandler(spec, tiered, logger, cfg, cfg.BaseDir, cfg.Debug)

	os.Exit(handler.Run(compilerPath, args))
}

// splitCompilerAndArgs recovers the wrapped compiler's base name and the
// rest of argv, per spec §6's invocation convention: cade is installed
// under the compiler's own name (a symlink or copy named "gcc", "cctc",
// etc.) earlier in PATH than the real compiler.
func splitCompilerAndArgs(args []string) (exeName string, rest []string) {
	return filepath.Base(args[0]), args[1:]
}

// findRealCompiler locates the actual compiler binary in PATH, skipping
// this very executable (and anything resolving to it) so the wrapper
// doesn't recursively invoke itself when installed under the compiler's
// name — the same convention the teacher's cmd/nocc/main.go uses.
func findRealCompiler(exeName string) (string, error) {
	self, _ := os.Executable()
	selfReal, _ := filepath.EvalSymlinks(self)

	for _, dir := range filepath.SplitList(os.Getenv("PATH")) {
		candidate := filepath.Join(dir, exeName)
		real, err := filepath.EvalSymlinks(candidate)
		if err != nil || real == selfReal {
			continue
		}
		if _, err := exec.LookPath(real); err != nil {
			continue
		}
		return candidate, nil
	}

	return "", fmt.Errorf("compiler %q not found in PATH (past this wrapper)", exeName)
}

// buildProviders constructs the tiered cache's provider list, in
// configuration order, dispatching on ProviderConfig.Kind.
func buildProviders(cfg *config.Config) ([]cache.Provider, error) {
	providers := make([]cache.Provider, 0, len(cfg.Cache))

	for i, pc := range cfg.Cache {
		id := fmt.Sprintf("%d", i)
		update := pc.ResolvedUpdateOnHit()
		testRequired := pc.ResolvedTestIfUpdateIsRequired()

		switch pc.Kind {
		case "filesystem":
			providers = append(providers, cache.NewFilesystemProvider(id, pc.Path, update, testRequired, cfg.PanicOnCacheContentMismatch))
		case "remote":
			var expire *time.Duration
			if pc.ExpireSeconds != nil {
				d := time.Duration(*pc.ExpireSeconds) * time.Second
				expire = &d
			}
			provider, err := cache.NewRemoteProvider(id, pc.URL, update, testRequired, cfg.PanicOnCacheContentMismatch, expire)
			if err != nil {
				return nil, err
			}
			providers = append(providers, provider)
		default:
			return nil, fmt.Errorf("config: unknown cache provider kind %q at index %d", pc.Kind, i)
		}
	}

	return providers, nil
}
