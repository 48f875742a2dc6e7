// Package resource locates the data directory that holds classifiers,
// translations and other files shipped with the application.
package resource

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// DataDirEnv overrides data directory guessing.
const DataDirEnv = "EYEGRADE_DATA_DIR"

var ErrDataDirNotFound = errors.New("data directory not found")

// DataDir resolves resource names against a root directory.
type DataDir struct {
	Root string
}

// NewDataDir returns a DataDir rooted at root, which must be an existing directory.
func NewDataDir(root string) (*DataDir, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("error resolving data directory %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataDirNotFound, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrDataDirNotFound, abs)
	}
	return &DataDir{Root: abs}, nil
}

// GuessDataDir returns the directory named by DataDirEnv if set, otherwise
// the first "data" directory found next to or above the executable or the
// working directory.
func GuessDataDir() (*DataDir, error) {
	if dir := os.Getenv(DataDirEnv); dir != "" {
		return NewDataDir(dir)
	}
	var bases []string
	if exe, err := os.Executable(); err == nil {
		bases = append(bases, filepath.Dir(exe))
	}
	if wd, err := os.Getwd(); err == nil {
		bases = append(bases, wd)
	}
	return findDataDir(bases)
}

func findDataDir(bases []string) (*DataDir, error) {
	for _, base := range bases {
		for _, candidate := range []string{
			filepath.Join(base, "data"),
			filepath.Join(base, "..", "data"),
			filepath.Join(base, "..", "..", "data"),
			filepath.Join(base, "..", "..", "..", "data"),
		} {
			if info, err := os.Stat(candidate); err == nil && info.IsDir() {
				return NewDataDir(candidate)
			}
		}
	}
	return nil, ErrDataDirNotFound
}

// Path returns the absolute path of the resource called name. Names use
// forward slashes regardless of the platform.
func (d *DataDir) Path(name string) (string, error) {
	if filepath.IsAbs(name) {
		return "", fmt.Errorf("resource name %s must be relative", name)
	}
	return filepath.Join(d.Root, filepath.FromSlash(name)), nil
}
