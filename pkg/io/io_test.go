package io

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const trainData = `f0,f1,digit,f2
0.1,0.2,3,0.3
0.4,0.5,7,0.6
bad,0.5,7,0.6
0.7,0.8,x,0.9
1.0,1.1,1
`

func TestReadData(t *testing.T) {
	metaData, data, dataErrors, err := ReadData(strings.NewReader(trainData), "digit", nil)
	require.NoError(t, err)
	require.NotNil(t, metaData)
	require.Equal(t, 2, metaData.TargetColumn)
	require.Equal(t, 3, metaData.FeatureCount())

	require.Len(t, data, 2)
	require.Equal(t, []float64{0.1, 0.2, 0.3}, data[0].Features)
	require.Equal(t, 3, data[0].Label)
	require.Equal(t, 7, data[1].Label)
	require.Equal(t, 1, data[1].Line)

	require.Len(t, dataErrors, 3)
	require.Equal(t, 2, dataErrors[0].Line)
	require.Equal(t, 3, dataErrors[1].Line)
	require.Equal(t, 4, dataErrors[2].Line)
}

func TestReadDataWithMetadata(t *testing.T) {
	metaData, _, _, err := ReadData(strings.NewReader(trainData), "digit", nil)
	require.NoError(t, err)

	testMetaData, data, dataErrors, err := ReadData(strings.NewReader("a,b,c,d\n1,2,5,3\n"), "ignored", metaData)
	require.NoError(t, err)
	require.Equal(t, metaData, testMetaData)
	require.Empty(t, dataErrors)
	require.Len(t, data, 1)
	require.Equal(t, 5, data[0].Label)
	require.Equal(t, []float64{1, 2, 3}, data[0].Features)

	_, _, _, err = ReadData(strings.NewReader("a,b\n1,2\n"), "", metaData)
	require.Error(t, err)
}

func TestReadDataMissingTarget(t *testing.T) {
	_, _, _, err := ReadData(strings.NewReader(trainData), "label", nil)
	require.Error(t, err)
}

func TestMetadataRoundTrip(t *testing.T) {
	metaData, _, _, err := ReadData(strings.NewReader(trainData), "digit", nil)
	require.NoError(t, err)
	metaData.Engine = "svm"
	metaData.NumClasses = 10
	metaData.ConfusionMatrix = [][]float64{{1, 0}, {0, 1}}

	fileName := filepath.Join(t.TempDir(), "meta.json")
	require.NoError(t, SaveMetadata(metaData, fileName))
	loaded, err := LoadMetadata(fileName)
	require.NoError(t, err)
	require.Equal(t, metaData, loaded)

	_, err = LoadMetadata(filepath.Join(t.TempDir(), "missing.json"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestDataSet(t *testing.T) {
	records := make([]*DataRecord, 5)
	for i := range records {
		records[i] = &DataRecord{Label: i}
	}
	ds := NewDataSet(records, 2, 42)
	require.Equal(t, 5, ds.Size())

	var sizes []int
	for batch := ds.Next(); len(batch) > 0; batch = ds.Next() {
		sizes = append(sizes, len(batch))
	}
	require.Equal(t, []int{2, 2, 1}, sizes)

	ds.ResetOrder(RandomOrder)
	seen := map[int]bool{}
	for _, r := range ds.Records() {
		seen[r.Label] = true
	}
	require.Len(t, seen, 5)

	splits := ds.RandomSplit(3, 2)
	require.Equal(t, 3, splits[0].Size())
	require.Equal(t, 2, splits[1].Size())
}

func TestReadFeatures(t *testing.T) {
	features, err := ReadFeatures(strings.NewReader("a,b\n1,2\n3.5, 4\n"))
	require.NoError(t, err)
	require.Equal(t, [][]float64{{1, 2}, {3.5, 4}}, features)

	_, err = ReadFeatures(strings.NewReader("a,b\n1,x\n"))
	require.Error(t, err)
	_, err = ReadFeatures(strings.NewReader("a,b\n1\n"))
	require.Error(t, err)
}
