package model

import "fmt"

// ColumnMap is a bidirectional mapping between a data row column index and a feature vector index
type ColumnMap struct {
	ColumnToIndex map[int]int
	IndexToColumn map[int]int
}

func (f ColumnMap) Set(column int, index int) {
	f.ColumnToIndex[column] = index
	f.IndexToColumn[index] = column
}

func (f ColumnMap) Size() int {
	return len(f.ColumnToIndex)
}

func (f ColumnMap) GetColumn(column int) (int, bool) {
	index, ok := f.ColumnToIndex[column]
	return index, ok
}

func NewColumnMap() ColumnMap {
	return ColumnMap{
		ColumnToIndex: map[int]int{},
		IndexToColumn: map[int]int{},
	}
}

// Metadata describes a trained classifier: the layout of the data it was
// trained on, how it was trained and how well it did on evaluation data.
// It is stored as JSON next to the classifier file.
type Metadata struct {
	TrainingID string `json:"training_id,omitempty"`
	Engine     string `json:"engine,omitempty"`

	// Columns holds the header of the training data
	Columns []string `json:"columns,omitempty"`

	// TargetColumn points to the column in the data row that contains the class label
	TargetColumn int `json:"target_column"`

	// FeaturesMap maps a data row column index to a feature vector index
	FeaturesMap ColumnMap `json:"-"`

	NumClasses int     `json:"num_classes,omitempty"`
	C          float64 `json:"C,omitempty"`
	Gamma      float64 `json:"gamma,omitempty"`

	Accuracy float64 `json:"accuracy,omitempty"`

	// ConfusionMatrix is indexed [actual][predicted]; every column sums to one
	ConfusionMatrix [][]float64 `json:"confusion_matrix,omitempty"`
}

func NewMetadata() *Metadata {
	return &Metadata{
		TargetColumn: -1,
		FeaturesMap:  NewColumnMap(),
	}
}

func (d *Metadata) FeatureCount() int {
	return d.FeaturesMap.Size()
}

// SetTargetColumn points TargetColumn to the column named name.
func (d *Metadata) SetTargetColumn(name string) error {
	for i, col := range d.Columns {
		if col == name {
			d.TargetColumn = i
			return nil
		}
	}
	return fmt.Errorf("target column %s not found in data header", name)
}

// BuildFeatureIndex maps every column except the target column to consecutive feature indexes.
func (d *Metadata) BuildFeatureIndex() {
	d.FeaturesMap = NewColumnMap()
	featureIndex := 0
	for i := range d.Columns {
		if i != d.TargetColumn {
			d.FeaturesMap.Set(i, featureIndex)
			featureIndex++
		}
	}
}
