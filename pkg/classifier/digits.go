package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"gonum.org/v1/gonum/mat"
)

const NumDigits = 10

// DigitRecognizer classifies handwritten digits and weights each prediction
// with the confusion matrix observed when the classifier was evaluated.
type DigitRecognizer struct {
	classifier Classifier
	confusion  *mat.Dense
}

// NewDigitRecognizer wraps classifier. A nil confusion matrix means full
// confidence in the raw prediction (identity matrix of size NumDigits).
func NewDigitRecognizer(classifier Classifier, confusion *mat.Dense) *DigitRecognizer {
	if confusion == nil {
		confusion = IdentityConfusionMatrix(NumDigits)
	}
	return &DigitRecognizer{classifier: classifier, confusion: confusion}
}

// ClassifyDigit returns the predicted digit and, for every candidate digit d,
// the weight with which a true d was historically recognized as that
// prediction (column digit of the confusion matrix).
func (d *DigitRecognizer) ClassifyDigit(sample *Sample) (int, []float64, error) {
	digit, err := d.classifier.Classify(sample)
	if err != nil {
		return 0, nil, err
	}
	_, cols := d.confusion.Dims()
	if digit < 0 || digit >= cols {
		return digit, nil, fmt.Errorf("predicted digit %d outside the confusion matrix of size %d", digit, cols)
	}
	return digit, mat.Col(nil, digit, d.confusion), nil
}

// ConfusionMatrix returns a read-only view of the confusion matrix.
func (d *DigitRecognizer) ConfusionMatrix() mat.Matrix {
	return d.confusion
}

func IdentityConfusionMatrix(size int) *mat.Dense {
	m := mat.NewDense(size, size, nil)
	for i := 0; i < size; i++ {
		m.Set(i, i, 1)
	}
	return m
}

type confusionMetadata struct {
	ConfusionMatrix [][]float64 `json:"confusion_matrix"`
}

// LoadConfusionMatrix reads the confusion_matrix field of a JSON metadata
// file. An empty path, a missing file or a missing field give the identity
// matrix; unreadable or malformed metadata is an error.
func LoadConfusionMatrix(path string) (*mat.Dense, error) {
	if path == "" {
		return IdentityConfusionMatrix(NumDigits), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return IdentityConfusionMatrix(NumDigits), nil
		}
		return nil, fmt.Errorf("error reading classifier metadata %s: %w", path, err)
	}
	var metadata confusionMetadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return nil, fmt.Errorf("error decoding classifier metadata %s: %w", path, err)
	}
	if metadata.ConfusionMatrix == nil {
		return IdentityConfusionMatrix(NumDigits), nil
	}
	matrix, err := NewConfusionMatrix(metadata.ConfusionMatrix)
	if err != nil {
		return nil, fmt.Errorf("error in classifier metadata %s: %w", path, err)
	}
	return matrix, nil
}

// NewConfusionMatrix copies rows into a square matrix.
func NewConfusionMatrix(rows [][]float64) (*mat.Dense, error) {
	size := len(rows)
	if size == 0 {
		return nil, errors.New("empty confusion matrix")
	}
	m := mat.NewDense(size, size, nil)
	for i, row := range rows {
		if len(row) != size {
			return nil, fmt.Errorf("confusion matrix row %d has %d values, expected %d", i, len(row), size)
		}
		m.SetRow(i, row)
	}
	return m, nil
}
