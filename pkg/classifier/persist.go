package classifier

import (
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/golang/snappy"
)

func init() {
	gob.Register(&SVM{})
	gob.Register(&Network{})
}

type engineFile struct {
	Engine Engine
}

// SaveEngine writes a snappy-compressed gob encoding of engine to writer.
func SaveEngine(engine Engine, writer io.Writer) error {
	compressed := snappy.NewBufferedWriter(writer)
	if err := gob.NewEncoder(compressed).Encode(&engineFile{Engine: engine}); err != nil {
		return fmt.Errorf("error encoding classifier: %w", err)
	}
	if err := compressed.Close(); err != nil {
		return fmt.Errorf("error flushing classifier: %w", err)
	}
	return nil
}

// LoadEngine reads an engine written by SaveEngine.
func LoadEngine(input io.Reader) (Engine, error) {
	var file engineFile
	if err := gob.NewDecoder(snappy.NewReader(input)).Decode(&file); err != nil {
		return nil, fmt.Errorf("error decoding classifier: %w", err)
	}
	if file.Engine == nil {
		return nil, fmt.Errorf("error decoding classifier: %w", ErrNotTrained)
	}
	return file.Engine, nil
}

// SaveEngineFile writes engine to path. The file is replaced only once the
// whole engine has been written, so a failed save leaves nothing behind.
func SaveEngineFile(engine Engine, path string) error {
	outputFile, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("error creating classifier file %s: %w", path, err)
	}
	tmpName := outputFile.Name()
	if err := SaveEngine(engine, outputFile); err != nil {
		outputFile.Close()
		os.Remove(tmpName)
		return fmt.Errorf("error saving classifier to %s: %w", path, err)
	}
	if err := outputFile.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("error saving classifier to %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("error saving classifier to %s: %w", path, err)
	}
	return nil
}

func LoadEngineFile(path string) (Engine, error) {
	inputFile, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening classifier file %s: %w", path, err)
	}
	defer inputFile.Close()
	engine, err := LoadEngine(inputFile)
	if err != nil {
		return nil, fmt.Errorf("error loading classifier from %s: %w", path, err)
	}
	return engine, nil
}
