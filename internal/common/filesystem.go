package common

import (
	"os"
	"path"
	"path/filepath"
)

// MkdirForFile creates the parent directory of fileName, tolerating
// creation races: MkdirAll already tolerates concurrent creation by other
// processes writing into the same cache root (spec §5: "creation races are
// tolerated").
func MkdirForFile(fileName string) error {
	return os.MkdirAll(filepath.Dir(fileName), os.ModePerm)
}

// WriteFile writes data to name, creating or truncating it. Unlike the
// teacher's daemon-oriented variant, there is no uid/gid to apply here:
// cade runs as a single-user build-step process, not a multi-tenant daemon.
func WriteFile(name string, data []byte) error {
	f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o666)
	if err != nil {
		return err
	}

	_, err = f.Write(data)
	if err1 := f.Close(); err1 != nil && err == nil {
		err = err1
	}
	return err
}

// ReplaceFileExt swaps fileName's extension for newExt.
func ReplaceFileExt(fileName string, newExt string) string {
	ext := path.Ext(fileName)
	return fileName[0:len(fileName)-len(ext)] + newExt
}
