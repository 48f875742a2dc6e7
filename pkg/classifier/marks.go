package classifier

const (
	MarkAbsent  = 0
	MarkPresent = 1

	DefaultMarkC     = 100.0
	DefaultMarkGamma = 0.01
)

// MarkDetector tells whether an answer cell has been marked.
type MarkDetector struct {
	*PatternClassifier

	// fixedParams, when set, replace whatever parameters Train receives
	fixedParams *Params
}

func NewMarkDetector(extractor FeatureExtractor, newEngine EngineFactory) *MarkDetector {
	return &MarkDetector{PatternClassifier: NewPatternClassifier(2, extractor, newEngine)}
}

// NewDefaultMarkDetector returns an SVM mark detector over the given mark
// feature extractor that always trains with C=100 and gamma=0.01.
func NewDefaultMarkDetector(extractor FeatureExtractor) *MarkDetector {
	detector := NewMarkDetector(extractor, NewSVM)
	detector.fixedParams = &Params{C: DefaultMarkC, Gamma: DefaultMarkGamma}
	return detector
}

func (m *MarkDetector) Train(samples []*Sample, params *Params) error {
	if m.fixedParams != nil {
		params = m.fixedParams
	}
	return m.PatternClassifier.Train(samples, params)
}

func (m *MarkDetector) IsMarked(sample *Sample) (bool, error) {
	class, err := m.Classify(sample)
	if err != nil {
		return false, err
	}
	return class == MarkPresent, nil
}
