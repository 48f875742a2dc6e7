package io

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/KinKir/eyegrade/pkg/model"
)

// DataRecord is a labelled feature vector read from a data file.
type DataRecord struct {
	Features []float64
	Label    int

	// Line is the data line the record was read from, starting at 0 after the header
	Line int
}

type DataBatch []*DataRecord

type DataParameters struct {
	DataFile     string
	TargetColumn string
}

type DataError struct {
	Line  int
	Error string
}

// LoadData reads a CSV data file with a header line. The target column holds
// integer class labels and every other column a numeric feature.
// When metaData is nil the column layout is taken from the header and
// returned as new metadata; otherwise the given layout is used.
// Rows that cannot be parsed are skipped and reported as DataErrors.
func LoadData(p DataParameters, metaData *model.Metadata) (*model.Metadata, []*DataRecord, []DataError, error) {
	inputFile, err := os.Open(p.DataFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("error opening file: %w", err)
	}
	defer inputFile.Close()
	return ReadData(inputFile, p.TargetColumn, metaData)
}

func ReadData(input io.Reader, targetColumn string, metaData *model.Metadata) (*model.Metadata, []*DataRecord, []DataError, error) {
	reader := csv.NewReader(input)
	reader.Comma = ','
	reader.FieldsPerRecord = -1

	//First line is expected to be a header
	header, err := reader.Read()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("error reading data header: %w", err)
	}

	if metaData == nil {
		metaData = model.NewMetadata()
		metaData.Columns = header
		if err := metaData.SetTargetColumn(targetColumn); err != nil {
			return nil, nil, nil, err
		}
		metaData.BuildFeatureIndex()
	} else if len(header) != len(metaData.Columns) {
		return nil, nil, nil, fmt.Errorf("data header has %d columns, expected %d", len(header), len(metaData.Columns))
	}

	var result []*DataRecord
	var dataErrors []DataError
	for currentLine := 0; ; currentLine++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		var parseError *csv.ParseError
		if err != nil && !errors.As(err, &parseError) {
			return nil, nil, nil, fmt.Errorf("error reading data at line %d: %w", currentLine, err)
		}
		if err == nil {
			var dataRecord *DataRecord
			if dataRecord, err = parseRecord(metaData, record); err == nil {
				dataRecord.Line = currentLine
				result = append(result, dataRecord)
				continue
			}
		}
		dataErrors = append(dataErrors, DataError{Line: currentLine, Error: err.Error()})
	}

	return metaData, result, dataErrors, nil
}

func parseRecord(metaData *model.Metadata, record []string) (*DataRecord, error) {
	if len(record) != len(metaData.Columns) {
		return nil, fmt.Errorf("row has %d columns, expected %d", len(record), len(metaData.Columns))
	}
	label, err := strconv.Atoi(strings.TrimSpace(record[metaData.TargetColumn]))
	if err != nil {
		return nil, fmt.Errorf("error parsing label: %w", err)
	}
	features := make([]float64, metaData.FeatureCount())
	for column, index := range metaData.FeaturesMap.ColumnToIndex {
		value, err := strconv.ParseFloat(strings.TrimSpace(record[column]), 64)
		if err != nil {
			return nil, fmt.Errorf("error parsing feature %s: %w", metaData.Columns[column], err)
		}
		features[index] = value
	}
	return &DataRecord{Features: features, Label: label}, nil
}

// SaveMetadata writes metaData as indented JSON.
func SaveMetadata(metaData *model.Metadata, fileName string) error {
	data, err := json.MarshalIndent(metaData, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding metadata: %w", err)
	}
	if err := os.WriteFile(fileName, data, 0o644); err != nil {
		return fmt.Errorf("error writing metadata file %s: %w", fileName, err)
	}
	return nil
}

// LoadMetadata reads metadata written by SaveMetadata and rebuilds its feature index.
// A missing file is reported with an error wrapping os.ErrNotExist.
func LoadMetadata(fileName string) (*model.Metadata, error) {
	data, err := os.ReadFile(fileName)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("metadata file %s: %w", fileName, err)
		}
		return nil, fmt.Errorf("error reading metadata file %s: %w", fileName, err)
	}
	metaData := model.NewMetadata()
	if err := json.Unmarshal(data, metaData); err != nil {
		return nil, fmt.Errorf("error decoding metadata file %s: %w", fileName, err)
	}
	if len(metaData.Columns) > 0 {
		metaData.BuildFeatureIndex()
	}
	return metaData, nil
}

// ReadFeatures reads a CSV file with a header line where every column is a
// numeric feature.
func ReadFeatures(input io.Reader) ([][]float64, error) {
	reader := csv.NewReader(input)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("error reading data header: %w", err)
	}
	var result [][]float64
	for line := 0; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading data at line %d: %w", line, err)
		}
		features := make([]float64, len(header))
		for i := range record {
			if features[i], err = strconv.ParseFloat(strings.TrimSpace(record[i]), 64); err != nil {
				return nil, fmt.Errorf("error parsing feature %s at line %d: %w", header[i], line, err)
			}
		}
		result = append(result, features)
	}
	return result, nil
}
