// Package classifier implements the trainable recognizers used to read exam
// sheets: a generic pattern classifier over feature vectors, a digit
// recognizer weighted by a confusion matrix and an answer mark detector.
package classifier

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/rs/zerolog/log"
)

var (
	ErrEmptyTrainingSet = errors.New("no samples to train")
	ErrMissingLabel     = errors.New("sample has no label")
	ErrFeaturesLength   = errors.New("feature vector length mismatch")
	ErrNotTrained       = errors.New("classifier has not been trained or loaded")
	ErrInvalidParams    = errors.New("invalid training parameters")
)

const (
	DefaultC     = 10.0
	DefaultGamma = 0.01
)

// Sample is a single cell cropped from a sheet: an answer box or a digit box.
type Sample struct {
	Image image.Image

	// Features holds the feature vector when it was extracted upstream
	Features []float64

	// Label is the class of the sample, only meaningful when Labeled is set
	Label   int
	Labeled bool
}

// NewLabeledSample returns a sample with precomputed features and a label.
func NewLabeledSample(features []float64, label int) *Sample {
	return &Sample{Features: features, Label: label, Labeled: true}
}

// FeatureExtractor turns a sample into a vector of FeaturesLen numbers.
type FeatureExtractor interface {
	Extract(sample *Sample) ([]float64, error)
	FeaturesLen() int
}

// PrecomputedExtractor returns the features a sample already carries.
type PrecomputedExtractor struct {
	Length int
}

func (p PrecomputedExtractor) Extract(sample *Sample) ([]float64, error) {
	if len(sample.Features) != p.Length {
		return nil, fmt.Errorf("%w: sample has %d features, expected %d", ErrFeaturesLength, len(sample.Features), p.Length)
	}
	return sample.Features, nil
}

func (p PrecomputedExtractor) FeaturesLen() int {
	return p.Length
}

// Params are the training hyperparameters. Zero fields keep their defaults.
type Params struct {
	// C is the regularization strength of the SVM engine
	C float64

	// Gamma is the width of the RBF kernel of the SVM engine
	Gamma float64

	HiddenDimension int
	NumEpochs       int
	BatchSize       int
	LearningRate    float64
	RndSeed         uint64
}

// DefaultParams returns the parameters used when training without overrides.
func DefaultParams() Params {
	return Params{
		C:               DefaultC,
		Gamma:           DefaultGamma,
		HiddenDimension: 32,
		NumEpochs:       30,
		BatchSize:       16,
		LearningRate:    0.01,
		RndSeed:         42,
	}
}

// Merge returns the defaults overridden by the non-zero fields of p.
func (p *Params) Merge() Params {
	result := DefaultParams()
	if p == nil {
		return result
	}
	if p.C != 0 {
		result.C = p.C
	}
	if p.Gamma != 0 {
		result.Gamma = p.Gamma
	}
	if p.HiddenDimension != 0 {
		result.HiddenDimension = p.HiddenDimension
	}
	if p.NumEpochs != 0 {
		result.NumEpochs = p.NumEpochs
	}
	if p.BatchSize != 0 {
		result.BatchSize = p.BatchSize
	}
	if p.LearningRate != 0 {
		result.LearningRate = p.LearningRate
	}
	if p.RndSeed != 0 {
		result.RndSeed = p.RndSeed
	}
	return result
}

// Validate checks that every parameter is positive.
func (p Params) Validate() error {
	switch {
	case p.C <= 0:
		return fmt.Errorf("%w: C must be positive, got %v", ErrInvalidParams, p.C)
	case p.Gamma <= 0:
		return fmt.Errorf("%w: gamma must be positive, got %v", ErrInvalidParams, p.Gamma)
	case p.HiddenDimension <= 0:
		return fmt.Errorf("%w: hidden dimension must be positive, got %d", ErrInvalidParams, p.HiddenDimension)
	case p.NumEpochs <= 0:
		return fmt.Errorf("%w: number of epochs must be positive, got %d", ErrInvalidParams, p.NumEpochs)
	case p.BatchSize <= 0:
		return fmt.Errorf("%w: batch size must be positive, got %d", ErrInvalidParams, p.BatchSize)
	case p.LearningRate <= 0:
		return fmt.Errorf("%w: learning rate must be positive, got %v", ErrInvalidParams, p.LearningRate)
	}
	return nil
}

// Engine is the numeric classification backend of a PatternClassifier.
type Engine interface {
	// Train fits the engine. labels are class ids in [0, numClasses).
	Train(features [][]float64, labels []int, numClasses int, params Params) error

	// Predict returns the continuous decision output for one feature vector.
	Predict(features []float64) float64

	// FeaturesLen is the feature vector length the engine was trained with.
	FeaturesLen() int
}

// EngineFactory creates an untrained engine.
type EngineFactory func() Engine

// Classifier is anything able to assign a class id to a sample.
type Classifier interface {
	Classify(sample *Sample) (int, error)
}

// PatternClassifier is a trainable classifier of samples into NumClasses classes.
// An instance is either fully trained (or loaded) or untrained.
type PatternClassifier struct {
	NumClasses int

	extractor FeatureExtractor
	newEngine EngineFactory
	engine    Engine
}

func NewPatternClassifier(numClasses int, extractor FeatureExtractor, newEngine EngineFactory) *PatternClassifier {
	return &PatternClassifier{
		NumClasses: numClasses,
		extractor:  extractor,
		newEngine:  newEngine,
	}
}

func (c *PatternClassifier) FeaturesLen() int {
	return c.extractor.FeaturesLen()
}

func (c *PatternClassifier) Trained() bool {
	return c.engine != nil
}

// Train replaces the classifier state with one fitted to samples. On error
// the previous state is kept.
func (c *PatternClassifier) Train(samples []*Sample, params *Params) error {
	if len(samples) == 0 {
		return ErrEmptyTrainingSet
	}
	features := make([][]float64, len(samples))
	labels := make([]int, len(samples))
	for i, sample := range samples {
		if !sample.Labeled {
			return fmt.Errorf("sample %d: %w", i, ErrMissingLabel)
		}
		if sample.Label < 0 || sample.Label >= c.NumClasses {
			return fmt.Errorf("sample %d: label %d outside [0, %d)", i, sample.Label, c.NumClasses)
		}
		f, err := c.extract(sample)
		if err != nil {
			return fmt.Errorf("error extracting features of sample %d: %w", i, err)
		}
		features[i] = f
		labels[i] = sample.Label
	}

	merged := params.Merge()
	if err := merged.Validate(); err != nil {
		return err
	}
	log.Debug().Int("Samples", len(samples)).Int("Classes", c.NumClasses).
		Float64("C", merged.C).Float64("Gamma", merged.Gamma).Msg("Training classifier")

	engine := c.newEngine()
	if err := engine.Train(features, labels, c.NumClasses, merged); err != nil {
		return fmt.Errorf("error training classifier: %w", err)
	}
	c.engine = engine
	return nil
}

// Classify returns the class id of sample, the engine output rounded to the
// nearest integer. It panics if the classifier holds no state.
func (c *PatternClassifier) Classify(sample *Sample) (int, error) {
	if c.engine == nil {
		panic(ErrNotTrained)
	}
	features, err := c.extract(sample)
	if err != nil {
		return 0, err
	}
	if len(features) != c.engine.FeaturesLen() {
		return 0, fmt.Errorf("%w: got %d features, classifier trained with %d",
			ErrFeaturesLength, len(features), c.engine.FeaturesLen())
	}
	return int(math.Round(c.engine.Predict(features))), nil
}

// Reset discards the classifier state.
func (c *PatternClassifier) Reset() {
	c.engine = nil
}

// Persist writes the classifier state to path.
func (c *PatternClassifier) Persist(path string) error {
	if c.engine == nil {
		return ErrNotTrained
	}
	return SaveEngineFile(c.engine, path)
}

// Load replaces the classifier state with the one stored at path.
func (c *PatternClassifier) Load(path string) error {
	engine, err := LoadEngineFile(path)
	if err != nil {
		return err
	}
	if engine.FeaturesLen() != c.FeaturesLen() {
		return fmt.Errorf("%w: %s was trained with %d features, extractor produces %d",
			ErrFeaturesLength, path, engine.FeaturesLen(), c.FeaturesLen())
	}
	c.engine = engine
	return nil
}

func (c *PatternClassifier) extract(sample *Sample) ([]float64, error) {
	features, err := c.extractor.Extract(sample)
	if err != nil {
		return nil, err
	}
	if len(features) != c.extractor.FeaturesLen() {
		return nil, fmt.Errorf("%w: extractor returned %d features, declares %d",
			ErrFeaturesLength, len(features), c.extractor.FeaturesLen())
	}
	return features, nil
}
