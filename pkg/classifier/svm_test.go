package classifier

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func trainSVM(t *testing.T, samples []*Sample, numClasses int, params Params) *SVM {
	features := make([][]float64, len(samples))
	labels := make([]int, len(samples))
	for i, s := range samples {
		features[i], labels[i] = s.Features, s.Label
	}
	svm := NewSVM().(*SVM)
	require.NoError(t, svm.Train(features, labels, numClasses, params))
	return svm
}

func TestSVMBinary(t *testing.T) {
	svm := trainSVM(t, clusterSamples([][]float64{{0, 0}, {2, 2}}, 9), 2, Params{C: 10, Gamma: 0.5})
	require.Equal(t, []int{0, 1}, svm.Labels)
	require.Len(t, svm.Machines, 1)
	require.NotEmpty(t, svm.Machines[0].Vectors)
	require.Equal(t, 2, svm.FeaturesLen())

	require.Equal(t, 0.0, svm.Predict([]float64{-0.5, 0.1}))
	require.Equal(t, 1.0, svm.Predict([]float64{2.4, 1.8}))
}

func TestSVMMultiClass(t *testing.T) {
	centres := [][]float64{{0, 0}, {5, 0}, {0, 5}, {5, 5}}
	svm := trainSVM(t, clusterSamples(centres, 9), 4, Params{C: 10, Gamma: 0.5})
	require.Len(t, svm.Machines, 6)
	for label, centre := range centres {
		require.Equal(t, float64(label), svm.Predict(centre))
	}
}

func TestSVMDualConstraints(t *testing.T) {
	c := 1.0
	svm := trainSVM(t, clusterSamples([][]float64{{0, 0}, {1, 1}}, 9), 2, Params{C: c, Gamma: 1})
	sum := 0.0
	for _, coef := range svm.Machines[0].Coefs {
		require.LessOrEqual(t, coef, c+1e-9)
		require.GreaterOrEqual(t, coef, -c-1e-9)
		sum += coef
	}
	require.InDelta(t, 0, sum, 1e-6)
}

func TestSVMSingleClass(t *testing.T) {
	svm := trainSVM(t, []*Sample{NewLabeledSample([]float64{1, 2}, 3), NewLabeledSample([]float64{2, 1}, 3)}, 4, Params{C: 10, Gamma: 0.1})
	require.Empty(t, svm.Machines)
	require.Equal(t, 3.0, svm.Predict([]float64{100, -100}))
}

func TestSVMUntrainedPanics(t *testing.T) {
	require.Panics(t, func() { NewSVM().Predict([]float64{0}) })
}

func TestSVMSaveLoad(t *testing.T) {
	svm := trainSVM(t, clusterSamples([][]float64{{0, 0}, {3, 0}, {0, 3}}, 9), 3, Params{C: 10, Gamma: 0.5})
	var buf bytes.Buffer
	require.NoError(t, SaveEngine(svm, &buf))

	loaded, err := LoadEngine(&buf)
	require.NoError(t, err)
	require.Equal(t, svm, loaded)
}

func TestLoadEngineCorrupt(t *testing.T) {
	_, err := LoadEngine(bytes.NewReader([]byte("not a classifier")))
	require.Error(t, err)
}

// With two points the dual has the closed form alpha = 1/(1-k), k being the
// kernel between them, and both points lie on the margin.
func TestSVMTwoPointsClosedForm(t *testing.T) {
	svm := trainSVM(t, []*Sample{NewLabeledSample([]float64{0}, 0), NewLabeledSample([]float64{1}, 1)}, 2, Params{C: 10, Gamma: 1})
	k := math.Exp(-1)
	m := &svm.Machines[0]
	require.Len(t, m.Coefs, 2)
	require.InDelta(t, 1/(1-k), m.Coefs[0], 1e-9)
	require.InDelta(t, -1/(1-k), m.Coefs[1], 1e-9)
	require.InDelta(t, 0, m.Rho, 1e-9)
	require.InDelta(t, 1, svm.decision(m, []float64{0}), 1e-9)
	require.InDelta(t, -1, svm.decision(m, []float64{1}), 1e-9)
}

func TestSVMTwoPointsBoundedByC(t *testing.T) {
	svm := trainSVM(t, []*Sample{NewLabeledSample([]float64{0}, 0), NewLabeledSample([]float64{1}, 1)}, 2, Params{C: 1, Gamma: 1})
	m := &svm.Machines[0]
	require.Equal(t, []float64{1, -1}, m.Coefs)
	require.InDelta(t, 0, m.Rho, 1e-9)
}
