package cache

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
)

// FilesystemProvider maps (category, key) to <root>/<category>/<key>, or
// <root>/<key> when category is CategoryNone.
type FilesystemProvider struct {
	id                      string
	root                    string
	update                  bool
	testIfUpdateIsRequired  bool
	panicOnMismatch         bool
}

// NewFilesystemProvider constructs a provider rooted at path. Parent
// directories are created lazily, on write, not here.
func NewFilesystemProvider(id string, root string, update bool, testIfUpdateIsRequired bool, panicOnMismatch bool) *FilesystemProvider {
	return &FilesystemProvider{
		id:                     id,
		root:                   root,
		update:                 update,
		testIfUpdateIsRequired: testIfUpdateIsRequired,
		panicOnMismatch:        panicOnMismatch,
	}
}

func (p *FilesystemProvider) pathFor(category Category, key string) string {
	if category == CategoryNone {
		return filepath.Join(p.root, key)
	}
	return filepath.Join(p.root, string(category), key)
}

func (p *FilesystemProvider) ID() string { return p.id }

func (p *FilesystemProvider) Get(category Category, key string) ([]byte, error) {
	data, err := os.ReadFile(p.pathFor(category, key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// Set writes value to disk. For non-obj categories, when panicOnMismatch is
// enabled and the path already holds different bytes, this is a fatal
// integrity violation (a fingerprint collision or corrupted pipeline): the
// whole process aborts rather than silently diverging. The obj category is
// exempt, per spec: object files legitimately vary run to run (timestamps,
// PID-stamped symbols) even for an identical fingerprint.
func (p *FilesystemProvider) Set(category Category, key string, value []byte) error {
	path := p.pathFor(category, key)

	if p.panicOnMismatch && category != CategoryObj {
		if existing, err := os.ReadFile(path); err == nil {
			if !bytes.Equal(existing, value) {
				panic(fmt.Sprintf("cache: content of %q does not match expected value (hash collision?)", path))
			}
			return nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return err
	}
	return os.WriteFile(path, value, 0o666)
}

func (p *FilesystemProvider) Has(category Category, key string) bool {
	_, err := os.Stat(p.pathFor(category, key))
	return err == nil
}

func (p *FilesystemProvider) Delete(category Category, key string) error {
	err := os.Remove(p.pathFor(category, key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (p *FilesystemProvider) Update() bool                 { return p.update }
func (p *FilesystemProvider) TestIfUpdateIsRequired() bool { return p.testIfUpdateIsRequired }
