package compiler

import (
	"bytes"
	"os"
	"os/exec"
	"strings"

	"github.com/fabtrie/cade/internal/cache"
	"github.com/fabtrie/cade/internal/common"
	"github.com/fabtrie/cade/internal/config"
	"github.com/fabtrie/cade/internal/depfile"
	"github.com/fabtrie/cade/internal/hash"
	"github.com/fabtrie/cade/internal/replay"
)

// baseDirToken is the placeholder substituted for the configured base
// directory in every cached dep file and captured stdout/stderr blob, so a
// cache entry written on one machine/checkout replays correctly on another.
const baseDirToken = "%%%BASE_DIR%%%"

// Handler drives the two-phase compile cache protocol described in spec
// §4.5: a source-hash keyed dependency-file lookup, followed by a full-hash
// keyed object lookup, falling back to actually invoking the compiler and
// populating both cache tiers on success.
type Handler struct {
	Spec    CompilerSpec
	Cache   *cache.TieredCache
	Logger  *common.LoggerWrapper
	Config  *config.Config
	BaseDir string
	Debug   bool
}

// NewHandler constructs a Handler for one compiler invocation. cfg supplies
// the optional stdout/stderr log-mirror targets (see internal/replay) and
// must not be nil; a pointer to a zero-value config.Config disables mirroring.
func NewHandler(spec CompilerSpec, tiered *cache.TieredCache, logger *common.LoggerWrapper, cfg *config.Config, baseDir string, debug bool) *Handler {
	return &Handler{
		Spec:    spec,
		Cache:   tiered,
		Logger:  logger,
		Config:  cfg,
		BaseDir: baseDir,
		Debug:   debug,
	}
}

// Run parses args, attempts the cached path, and falls back to actually
// invoking compilerPath on any miss. It returns the process exit code the
// caller (cmd/cade) should propagate.
func (h *Handler) Run(compilerPath string, args []string) int {
	parsed, err := ParseArgs(h.Spec, args, h.BaseDir)
	if err != nil {
		h.Logger.Error("parsing compiler arguments:", err)
		return 1
	}

	cacheable := parsed.DepFile != "" && parsed.OutFile != "" && parsed.SourceFile != ""
	writer := replay.NewWriter(h.Config, parsed.OutFile, h.Logger)

	var sourceHash string
	if cacheable {
		sourceData, err := os.ReadFile(parsed.SourceFile)
		if err != nil {
			h.Logger.Error("could not read source file", parsed.SourceFile, err)
			return 1
		}
		sourceHasher := hash.NewHasher()
		sourceHasher.Update([]byte(strings.Join(parsed.Args, "")))
		sourceHasher.Update(sourceData)
		sourceHash = sourceHasher.Finalize()

		if hit, provider, full := h.tryCachedObject(parsed, sourceHash); hit {
			h.replayOutput(writer, full, provider)
			return 0
		}
	}

	stdout, stderr, exitCode, err := h.runCompiler(compilerPath, args)
	if err != nil {
		h.Logger.Error("could not execute compiler:", err)
		return 1
	}

	writer.Stdout(stdout)
	writer.Stderr(stderr)

	if exitCode != 0 || !cacheable {
		return exitCode
	}

	h.populateCache(parsed, sourceHash, stdout, stderr)

	return 0
}

// tryCachedObject implements the dep-lookup -> full-hash -> obj-lookup
// chain. It returns hit=true only when both the dependency list and the
// object itself were found, written to disk, and are ready to replay.
func (h *Handler) tryCachedObject(parsed ParsedArgs, sourceHash string) (hit bool, provider string, fullHash string) {
	df, depProvider, ok := h.lookupDepFile(sourceHash, parsed.DepFile)
	if !ok {
		return false, "", ""
	}

	full, err := h.computeFullHash(parsed.Args, df)
	if err != nil {
		h.Logger.Debug("could not hash recorded dependencies, falling back to compile:", err)
		return false, "", ""
	}

	// The provider that served the dep file is tried first; the other
	// providers are consulted only when it does not hold the object.
	objData, objProvider, err := h.Cache.Get(cache.CategoryObj, full, depProvider)
	if err != nil {
		objData, objProvider, err = h.Cache.Get(cache.CategoryObj, full, "")
	}
	if err != nil {
		return false, "", ""
	}

	if err := common.MkdirForFile(parsed.OutFile); err != nil {
		h.Logger.Debug("could not create object output directory:", err)
		return false, "", ""
	}
	if err := common.WriteFile(parsed.OutFile, objData); err != nil {
		h.Logger.Debug("could not write cached object file:", err)
		return false, "", ""
	}

	return true, objProvider, full
}

// lookupDepFile fetches the recorded dependency list keyed by sourceHash,
// detokenizes and writes it to depFilePath (mirroring what the real
// compiler would have produced), and parses it back for hashing.
func (h *Handler) lookupDepFile(sourceHash, depFilePath string) (depfile.DepFile, string, bool) {
	data, provider, err := h.Cache.Get(cache.CategoryDep, sourceHash, "")
	if err != nil {
		return depfile.DepFile{}, "", false
	}

	content := h.detokenize(data)

	if err := common.MkdirForFile(depFilePath); err != nil {
		h.Logger.Debug("could not create dep file directory:", err)
		return depfile.DepFile{}, "", false
	}
	if err := common.WriteFile(depFilePath, content); err != nil {
		h.Logger.Debug("could not write dep file:", err)
		return depfile.DepFile{}, "", false
	}

	df, err := depfile.Parse(string(content))
	if err != nil {
		h.Logger.Debug("could not parse restored dep file:", err)
		return depfile.DepFile{}, "", false
	}

	return df, provider, true
}

// computeFullHash combines the processed argument vector with the content
// of every recorded prerequisite, per spec §4.5's full-fingerprint formula.
func (h *Handler) computeFullHash(processedArgs []string, df depfile.DepFile) (string, error) {
	hasher := hash.NewHasher()
	hasher.Update([]byte(strings.Join(processedArgs, "")))
	if err := df.HashInto(hasher); err != nil {
		return "", err
	}
	return hasher.Finalize(), nil
}

// runCompiler executes the real compiler with the original (unmodified)
// argument vector, buffering its stdout/stderr for replay and for caching.
func (h *Handler) runCompiler(compilerPath string, args []string) (stdout, stderr []byte, exitCode int, err error) {
	cmd := exec.Command(compilerPath, args...)
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	runErr := cmd.Run()
	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			return outBuf.Bytes(), errBuf.Bytes(), exitErr.ExitCode(), nil
		}
		return nil, nil, 0, runErr
	}

	return outBuf.Bytes(), errBuf.Bytes(), 0, nil
}

// populateCache runs after a successful real compile: it reads the dep file
// the compiler just wrote, recomputes the full hash from it and records the
// dep file, the object, and any captured stdout/stderr, all keyed and
// tokenized per spec §4.5/§5. A full hash already computed during a dep-cache
// hit is not reused, and the dep entry is written again even after such a hit.
func (h *Handler) populateCache(parsed ParsedArgs, sourceHash string, stdout, stderr []byte) {
	df, err := h.readDepFileFromDisk(parsed.DepFile)
	if err != nil {
		h.Logger.Error("could not read dep file produced by compiler:", err)
		return
	}

	full, err := h.computeFullHash(parsed.Args, df)
	if err != nil {
		h.Logger.Debug("could not hash dependencies, skipping cache store:", err)
		return
	}

	h.storeDepFile(parsed, sourceHash, df)
	h.storeObject(full, parsed.OutFile)
	h.storeOutput(full, stdout, stderr)
}

func (h *Handler) readDepFileFromDisk(path string) (depfile.DepFile, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return depfile.DepFile{}, err
	}
	return depfile.Parse(string(content))
}

func (h *Handler) storeDepFile(parsed ParsedArgs, sourceHash string, df depfile.DepFile) {
	rendered := []byte(h.tokenize(df.Render()))

	if err := h.Cache.Set(cache.CategoryDep, sourceHash, rendered); err != nil {
		h.Logger.Debug("could not store dep cache entry:", err)
	}

	if h.Debug {
		_ = common.WriteFile(parsed.OutFile+".cade_dep", rendered)
	}
}

func (h *Handler) storeObject(fullHash, outFile string) {
	data, err := os.ReadFile(outFile)
	if err != nil {
		h.Logger.Error("could not read object file for caching:", err)
		return
	}
	if err := h.Cache.Set(cache.CategoryObj, fullHash, data); err != nil {
		h.Logger.Debug("could not store object cache entry:", err)
	}
}

// storeOutput caches stdout/stderr captured from a real compile so a future
// replayed hit reproduces diagnostics byte-for-byte (modulo base-dir
// tokenization). Empty streams are not stored: nothing to replay, and an
// absent entry is cheaper than an empty one in every provider.
func (h *Handler) storeOutput(fullHash string, stdout, stderr []byte) {
	if len(stdout) > 0 {
		if err := h.Cache.Set(cache.CategoryStdout, fullHash, []byte(h.tokenize(string(stdout)))); err != nil {
			h.Logger.Debug("could not store stdout cache entry:", err)
		}
	}
	if len(stderr) > 0 {
		if err := h.Cache.Set(cache.CategoryStderr, fullHash, []byte(h.tokenize(string(stderr)))); err != nil {
			h.Logger.Debug("could not store stderr cache entry:", err)
		}
	}
}

// replayOutput writes cached stdout/stderr (if any) for fullHash, pinned to
// provider so both streams come from the same provider that served the
// object — avoiding a partial promotion leaving one stream stale.
func (h *Handler) replayOutput(writer *replay.Writer, fullHash, provider string) {
	if data, _, err := h.Cache.Get(cache.CategoryStdout, fullHash, provider); err == nil {
		writer.Stdout(h.detokenize(data))
	}
	if data, _, err := h.Cache.Get(cache.CategoryStderr, fullHash, provider); err == nil {
		writer.Stderr(h.detokenize(data))
	}
}

func (h *Handler) tokenize(s string) string {
	if h.BaseDir == "" {
		return s
	}
	return strings.ReplaceAll(s, h.BaseDir, baseDirToken)
}

func (h *Handler) detokenize(data []byte) []byte {
	if h.BaseDir == "" {
		return data
	}
	return []byte(strings.ReplaceAll(string(data), baseDirToken, h.BaseDir))
}
