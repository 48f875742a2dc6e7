package classifier

import "fmt"

const (
	EngineSVM     = "svm"
	EngineNetwork = "network"
)

// EngineByName returns the factory of the engine called name.
func EngineByName(name string) (EngineFactory, error) {
	switch name {
	case EngineSVM:
		return NewSVM, nil
	case EngineNetwork:
		return NewNetwork, nil
	default:
		return nil, fmt.Errorf("unknown classifier engine %q", name)
	}
}

// EngineName returns the name EngineByName knows engine by.
func EngineName(engine Engine) string {
	switch engine.(type) {
	case *SVM:
		return EngineSVM
	case *Network:
		return EngineNetwork
	default:
		return fmt.Sprintf("%T", engine)
	}
}

// EngineName returns the name of the engine holding the classifier state,
// or the empty string when untrained.
func (c *PatternClassifier) EngineName() string {
	if c.engine == nil {
		return ""
	}
	return EngineName(c.engine)
}
