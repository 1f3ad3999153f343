// Package replay writes a cached compile's captured stdout/stderr back to
// the real process streams, and optionally mirrors a copy to a log file
// whose path may reference the object file's location.
package replay

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/fabtrie/cade/internal/common"
	"github.com/fabtrie/cade/internal/config"
)

// ResolveTemplate substitutes {obj_folder} and {obj_path} in tmpl with
// objPath's directory and objPath itself, mirroring the teacher's template
// mechanism and `original_source/src/wrapper/compiler/compile_handler.rs::resolve_tmpl`.
func ResolveTemplate(tmpl, objPath string) string {
	r := strings.NewReplacer(
		"{obj_folder}", filepath.Dir(objPath),
		"{obj_path}", objPath,
	)
	return r.Replace(tmpl)
}

// Writer replays captured output to the real process streams and, when
// configured, duplicates it into a log file per stream — the same
// duplicate-to-file-and-stderr idiom as common.LoggerWrapper, generalized
// to arbitrary target paths instead of always stderr.
type Writer struct {
	stdout LogTarget
	stderr LogTarget
	logger *common.LoggerWrapper
}

// LogTarget is a resolved mirror destination: empty Path means "no mirror".
type LogTarget struct {
	Path   string
	Append bool
}

// NewWriter builds a Writer from configuration, resolving any {obj_folder}/
// {obj_path} templates in the configured log paths against objPath.
func NewWriter(cfg *config.Config, objPath string, logger *common.LoggerWrapper) *Writer {
	return &Writer{
		stdout: resolveTarget(cfg.LogStdout, objPath),
		stderr: resolveTarget(cfg.LogStderr, objPath),
		logger: logger,
	}
}

func resolveTarget(t config.LogTarget, objPath string) LogTarget {
	if t.Path == "" {
		return LogTarget{}
	}
	return LogTarget{Path: ResolveTemplate(t.Path, objPath), Append: t.Append}
}

// Stdout writes data to os.Stdout and, if configured, mirrors it to the
// resolved stdout log target.
func (w *Writer) Stdout(data []byte) {
	os.Stdout.Write(data)
	w.mirror(w.stdout, data)
}

// Stderr writes data to os.Stderr and, if configured, mirrors it to the
// resolved stderr log target.
func (w *Writer) Stderr(data []byte) {
	os.Stderr.Write(data)
	w.mirror(w.stderr, data)
}

func (w *Writer) mirror(target LogTarget, data []byte) {
	if target.Path == "" || len(data) == 0 {
		return
	}

	flags := os.O_WRONLY | os.O_CREATE
	if target.Append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	if err := common.MkdirForFile(target.Path); err != nil {
		if w.logger != nil {
			w.logger.Debug("could not create log mirror directory", target.Path, err)
		}
		return
	}

	f, err := os.OpenFile(target.Path, flags, 0o666)
	if err != nil {
		if w.logger != nil {
			w.logger.Debug("could not open log mirror target", target.Path, err)
		}
		return
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil && w.logger != nil {
		w.logger.Debug("could not write log mirror target", target.Path, err)
	}
}
