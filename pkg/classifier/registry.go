package classifier

import (
	"fmt"
	"path"
	"sync"

	"github.com/rs/zerolog/log"
)

const (
	ClassifiersDir      = "classifiers"
	DigitClassifierFile = "digit_classifier.gob.sz"
	DigitMetadataFile   = "digit_classifier_meta.json"
	MarkClassifierFile  = "cross_classifier.gob.sz"
)

// Resolver maps a logical resource name to an absolute file path.
type Resolver interface {
	Path(name string) (string, error)
}

// Registry owns the default classifiers of the application. Each one is
// loaded from the data directory the first time it is requested and kept
// for the lifetime of the registry.
type Registry struct {
	resolver       Resolver
	digitExtractor FeatureExtractor
	markExtractor  FeatureExtractor

	mu     sync.Mutex
	digits *DigitRecognizer
	marks  *MarkDetector
}

func NewRegistry(resolver Resolver, digitExtractor, markExtractor FeatureExtractor) *Registry {
	return &Registry{
		resolver:       resolver,
		digitExtractor: digitExtractor,
		markExtractor:  markExtractor,
	}
}

// DigitRecognizer returns the default digit recognizer, loading it on first use.
func (r *Registry) DigitRecognizer() (*DigitRecognizer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.digits != nil {
		return r.digits, nil
	}

	classifierPath, err := r.resolver.Path(path.Join(ClassifiersDir, DigitClassifierFile))
	if err != nil {
		return nil, err
	}
	metadataPath, err := r.resolver.Path(path.Join(ClassifiersDir, DigitMetadataFile))
	if err != nil {
		return nil, err
	}

	classifier := NewPatternClassifier(NumDigits, r.digitExtractor, NewNetwork)
	if err := classifier.Load(classifierPath); err != nil {
		return nil, fmt.Errorf("error loading digit classifier: %w", err)
	}
	confusion, err := LoadConfusionMatrix(metadataPath)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("Classifier", classifierPath).Str("Metadata", metadataPath).Msg("Loaded digit recognizer")
	r.digits = NewDigitRecognizer(classifier, confusion)
	return r.digits, nil
}

// MarkDetector returns the default mark detector, loading it on first use.
func (r *Registry) MarkDetector() (*MarkDetector, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.marks != nil {
		return r.marks, nil
	}

	classifierPath, err := r.resolver.Path(path.Join(ClassifiersDir, MarkClassifierFile))
	if err != nil {
		return nil, err
	}
	detector := NewDefaultMarkDetector(r.markExtractor)
	if err := detector.Load(classifierPath); err != nil {
		return nil, fmt.Errorf("error loading mark detector: %w", err)
	}
	log.Debug().Str("Classifier", classifierPath).Msg("Loaded mark detector")
	r.marks = detector
	return r.marks, nil
}
