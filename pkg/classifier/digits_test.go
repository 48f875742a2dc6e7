package classifier

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// fixedClassifier predicts the same class for every sample.
type fixedClassifier int

func (f fixedClassifier) Classify(*Sample) (int, error) {
	return int(f), nil
}

func writeFile(t *testing.T, dir, name, content string) string {
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestClassifyDigitIdentity(t *testing.T) {
	recognizer := NewDigitRecognizer(fixedClassifier(7), nil)
	digit, weights, err := recognizer.ClassifyDigit(&Sample{})
	require.NoError(t, err)
	require.Equal(t, 7, digit)
	expected := make([]float64, NumDigits)
	expected[7] = 1
	require.Equal(t, expected, weights)
}

func TestClassifyDigitConfusionColumn(t *testing.T) {
	confusion, err := NewConfusionMatrix([][]float64{
		{0.9, 0.2, 0},
		{0.1, 0.7, 0},
		{0, 0.1, 1},
	})
	require.NoError(t, err)
	recognizer := NewDigitRecognizer(fixedClassifier(1), confusion)
	digit, weights, err := recognizer.ClassifyDigit(&Sample{})
	require.NoError(t, err)
	require.Equal(t, 1, digit)
	require.Equal(t, []float64{0.2, 0.7, 0.1}, weights)

	_, _, err = NewDigitRecognizer(fixedClassifier(3), confusion).ClassifyDigit(&Sample{})
	require.Error(t, err)
}

func TestLoadConfusionMatrix(t *testing.T) {
	dir := t.TempDir()
	identity := IdentityConfusionMatrix(NumDigits)

	m, err := LoadConfusionMatrix("")
	require.NoError(t, err)
	require.True(t, mat.Equal(identity, m))

	m, err = LoadConfusionMatrix(filepath.Join(dir, "missing.json"))
	require.NoError(t, err)
	require.True(t, mat.Equal(identity, m))

	m, err = LoadConfusionMatrix(writeFile(t, dir, "nofield.json", `{"accuracy": 0.9}`))
	require.NoError(t, err)
	require.True(t, mat.Equal(identity, m))

	m, err = LoadConfusionMatrix(writeFile(t, dir, "meta.json", `{"confusion_matrix": [[0.5, 0.25], [0.5, 0.75]]}`))
	require.NoError(t, err)
	require.Equal(t, 0.25, m.At(0, 1))
	require.Equal(t, 0.5, m.At(1, 0))

	_, err = LoadConfusionMatrix(writeFile(t, dir, "bad.json", `{"confusion_matrix": "x"`))
	require.Error(t, err)

	_, err = LoadConfusionMatrix(writeFile(t, dir, "ragged.json", `{"confusion_matrix": [[1, 0], [0]]}`))
	require.Error(t, err)
}

func TestNewConfusionMatrixEmpty(t *testing.T) {
	_, err := NewConfusionMatrix(nil)
	require.Error(t, err)
}
