package pkg

import (
	"fmt"
	gio "io"
	"os"
	"strconv"
	"strings"

	"github.com/KinKir/eyegrade/pkg/classifier"
	"github.com/KinKir/eyegrade/pkg/io"
	"github.com/KinKir/eyegrade/pkg/resource"
)

const (
	KindDigits = "digits"
	KindMarks  = "marks"
)

// OpenDataDir returns the data directory at root, or the guessed one when root is empty.
func OpenDataDir(root string) (*resource.DataDir, error) {
	if root == "" {
		return resource.GuessDataDir()
	}
	return resource.NewDataDir(root)
}

// Classify runs the default digit recognizer or mark detector of the data
// directory on every row of a feature file and writes one result per row:
// the digit followed by its weights, or whether the cell is marked.
func Classify(dataDir *resource.DataDir, inputFileName, kind string, output gio.Writer) error {
	inputFile, err := os.Open(inputFileName)
	if err != nil {
		return fmt.Errorf("error opening file: %w", err)
	}
	defer inputFile.Close()
	rows, err := io.ReadFeatures(inputFile)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("no data to classify in %s", inputFileName)
	}

	extractor := classifier.PrecomputedExtractor{Length: len(rows[0])}
	registry := classifier.NewRegistry(dataDir, extractor, extractor)
	switch kind {
	case KindDigits:
		recognizer, err := registry.DigitRecognizer()
		if err != nil {
			return err
		}
		for _, features := range rows {
			digit, weights, err := recognizer.ClassifyDigit(&classifier.Sample{Features: features})
			if err != nil {
				return err
			}
			fmt.Fprintf(output, "%d,%s\n", digit, formatWeights(weights))
		}
	case KindMarks:
		detector, err := registry.MarkDetector()
		if err != nil {
			return err
		}
		for _, features := range rows {
			marked, err := detector.IsMarked(&classifier.Sample{Features: features})
			if err != nil {
				return err
			}
			fmt.Fprintln(output, marked)
		}
	default:
		return fmt.Errorf("unknown kind %q: use %s or %s", kind, KindDigits, KindMarks)
	}
	return nil
}

func formatWeights(weights []float64) string {
	parts := make([]string, len(weights))
	for i, w := range weights {
		parts[i] = strconv.FormatFloat(w, 'f', 3, 64)
	}
	return strings.Join(parts, ",")
}
