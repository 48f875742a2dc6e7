package resource

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDataDirPath(t *testing.T) {
	root := t.TempDir()
	dir, err := NewDataDir(root)
	require.NoError(t, err)

	path, err := dir.Path("classifiers/digit_classifier.gob.sz")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir.Root, "classifiers", "digit_classifier.gob.sz"), path)
	require.True(t, filepath.IsAbs(path))

	_, err = dir.Path(filepath.Join(root, "x"))
	require.Error(t, err)
}

func TestNewDataDirErrors(t *testing.T) {
	_, err := NewDataDir(filepath.Join(t.TempDir(), "missing"))
	require.ErrorIs(t, err, ErrDataDirNotFound)

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = NewDataDir(file)
	require.ErrorIs(t, err, ErrDataDirNotFound)
}

func TestFindDataDir(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "data"), 0o755))
	base := filepath.Join(root, "bin", "linux")
	require.NoError(t, os.MkdirAll(base, 0o755))

	dir, err := findDataDir([]string{base})
	require.NoError(t, err)
	expected, err := filepath.Abs(filepath.Join(root, "data"))
	require.NoError(t, err)
	require.Equal(t, expected, dir.Root)

	_, err = findDataDir(nil)
	require.ErrorIs(t, err, ErrDataDirNotFound)
}

func TestGuessDataDirFromEnv(t *testing.T) {
	root := t.TempDir()
	t.Setenv(DataDirEnv, root)
	dir, err := GuessDataDir()
	require.NoError(t, err)
	expected, err := filepath.Abs(root)
	require.NoError(t, err)
	require.Equal(t, expected, dir.Root)
}
