package classifier

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"math"

	mat "github.com/nlpodyssey/spago/pkg/mat32"
	"github.com/nlpodyssey/spago/pkg/mat32/rand"
	"github.com/nlpodyssey/spago/pkg/ml/ag"
	"github.com/nlpodyssey/spago/pkg/ml/losses"
	"github.com/nlpodyssey/spago/pkg/ml/nn"
	"github.com/nlpodyssey/spago/pkg/ml/optimizers/gd"
	"github.com/nlpodyssey/spago/pkg/ml/optimizers/gd/adam"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/stat"

	"github.com/KinKir/eyegrade/pkg/io"
	"github.com/KinKir/eyegrade/pkg/model"
)

// GradientClipThreshold bounds every gradient component of a Network update.
const GradientClipThreshold = 5.0

var ErrDiverged = errors.New("network training diverged")

// Network is a neural network engine trained with Adam on the cross entropy
// loss. Its decision output is the index of the largest logit.
// Inputs are standardized with the per-feature mean and scale of the
// training data.
type Network struct {
	Config model.NetworkConfig
	Mean   []float64
	Scale  []float64
	model  *model.Network
}

func NewNetwork() Engine {
	return &Network{}
}

func (n *Network) FeaturesLen() int {
	return n.Config.NumColumns
}

func (n *Network) Train(features [][]float64, labels []int, numClasses int, params Params) error {
	if len(features) == 0 {
		return ErrEmptyTrainingSet
	}
	if err := params.Validate(); err != nil {
		return err
	}
	records := make([]*io.DataRecord, len(features))
	for i := range features {
		if len(features[i]) != len(features[0]) {
			return fmt.Errorf("%w: vector %d has %d features, expected %d", ErrFeaturesLength, i, len(features[i]), len(features[0]))
		}
		records[i] = &io.DataRecord{Features: features[i], Label: labels[i], Line: i}
	}

	n.Config = model.NetworkConfig{
		NumColumns:       len(features[0]),
		FeatureDimension: params.HiddenDimension,
		OutputDimension:  numClasses,
	}
	n.Mean, n.Scale = standardization(features)
	n.model = model.NewNetwork(n.Config)
	rndGen := rand.NewLockedRand(params.RndSeed)
	n.model.Init(rndGen)

	updaterConfig := adam.NewDefaultConfig()
	updaterConfig.StepSize = mat.Float(params.LearningRate)
	optimizer := gd.NewOptimizer(adam.New(updaterConfig), nn.NewDefaultParamsIterator(n.model),
		gd.ClipGradByValue(GradientClipThreshold))

	dataset := io.NewDataSet(records, params.BatchSize, int64(params.RndSeed))
	for epoch := 0; epoch < params.NumEpochs; epoch++ {
		optimizer.IncEpoch()
		dataset.ResetOrder(io.RandomOrder)
		epochLoss, numBatches := 0.0, 0
		for batch := dataset.Next(); len(batch) > 0; batch = dataset.Next() {
			optimizer.IncBatch()
			loss, err := n.trainBatch(batch, rndGen)
			if err != nil {
				n.model = nil
				return fmt.Errorf("epoch %d: %w", epoch, err)
			}
			optimizer.Optimize()
			// Adam counts its time steps in examples
			optimizer.IncExample()
			epochLoss += loss
			numBatches++
		}
		log.Debug().Int("Epoch", epoch).Float64("Loss", epochLoss/float64(numBatches)).Msg("")
	}
	return nil
}

func (n *Network) trainBatch(batch io.DataBatch, rndGen *rand.LockedRand) (float64, error) {
	g := ag.NewGraph(ag.Rand(rndGen))
	defer g.Clear()
	proc := nn.Reify(nn.Context{Graph: g, Mode: nn.Training}, n.model).(*model.Network)
	logits := proc.Forward(n.createInputNodes(g, batch)...)

	var loss ag.Node
	for i := range batch {
		example, err := stableCrossEntropy(g, logits[i], batch[i].Label)
		if err != nil {
			return 0, err
		}
		loss = g.Add(loss, example)
	}
	loss = g.Div(loss, g.NewScalar(mat.Float(len(batch))))
	value := float64(loss.ScalarValue())
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("%w: loss is %v", ErrDiverged, value)
	}
	g.Backward(loss)
	return value, nil
}

// stableCrossEntropy is the cross entropy of the softmax of logits for the
// target class, computed on logits shifted by their maximum so that no
// exponential overflows.
func stableCrossEntropy(g *ag.Graph, logits ag.Node, target int) (ag.Node, error) {
	values := logits.Value().Data()
	for _, v := range values {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return nil, fmt.Errorf("%w: logit is %v", ErrDiverged, v)
		}
	}
	_, maxLogit := argmax(values)
	return losses.CrossEntropy(g, g.SubScalar(logits, g.NewScalar(maxLogit)), target), nil
}

func (n *Network) Predict(features []float64) float64 {
	if n.model == nil {
		panic(ErrNotTrained)
	}
	g := ag.NewGraph()
	defer g.Clear()
	proc := nn.Reify(nn.Context{Graph: g, Mode: nn.Inference}, n.model).(*model.Network)
	logits := proc.Forward(g.NewVariable(mat.NewVecDense(n.normalize(features)), false))
	class, _ := argmax(logits[0].Value().Data())
	return float64(class)
}

func (n *Network) createInputNodes(g *ag.Graph, batch io.DataBatch) []ag.Node {
	input := make([]ag.Node, len(batch))
	for i := range input {
		input[i] = g.NewVariable(mat.NewVecDense(n.normalize(batch[i].Features)), false)
	}
	return input
}

// standardization returns the mean and standard deviation of every feature.
// Constant features, and a single sample, get a unit scale.
func standardization(features [][]float64) ([]float64, []float64) {
	dim := len(features[0])
	mean, scale := make([]float64, dim), make([]float64, dim)
	column := make([]float64, len(features))
	for j := 0; j < dim; j++ {
		for i := range features {
			column[i] = features[i][j]
		}
		mean[j], scale[j] = stat.MeanStdDev(column, nil)
		if !(scale[j] > 1e-9) {
			scale[j] = 1
		}
	}
	return mean, scale
}

func (n *Network) normalize(features []float64) []mat.Float {
	result := make([]mat.Float, len(features))
	for i, v := range features {
		result[i] = mat.Float((v - n.Mean[i]) / n.Scale[i])
	}
	return result
}

func argmax(data []mat.Float) (int, mat.Float) {
	maxInd := 0
	for i := range data {
		if data[i] > data[maxInd] {
			maxInd = i
		}
	}
	return maxInd, data[maxInd]
}

type networkSnapshot struct {
	Config  model.NetworkConfig
	Mean    []float64
	Scale   []float64
	Weights [][]mat.Float
}

func (n *Network) GobEncode() ([]byte, error) {
	if n.model == nil {
		return nil, ErrNotTrained
	}
	snapshot := networkSnapshot{Config: n.Config, Mean: n.Mean, Scale: n.Scale}
	for _, w := range n.model.Weights() {
		snapshot.Weights = append(snapshot.Weights, append([]mat.Float(nil), w.Data()...))
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&snapshot); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (n *Network) GobDecode(data []byte) error {
	var snapshot networkSnapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snapshot); err != nil {
		return err
	}
	network := model.NewNetwork(snapshot.Config)
	weights := network.Weights()
	if len(weights) != len(snapshot.Weights) {
		return fmt.Errorf("network snapshot has %d weight matrices, expected %d", len(snapshot.Weights), len(weights))
	}
	for i, w := range weights {
		if w.Size() != len(snapshot.Weights[i]) {
			return fmt.Errorf("network snapshot matrix %d has %d values, expected %d", i, len(snapshot.Weights[i]), w.Size())
		}
		w.SetData(snapshot.Weights[i])
	}
	if len(snapshot.Mean) != snapshot.Config.NumColumns || len(snapshot.Scale) != snapshot.Config.NumColumns {
		return fmt.Errorf("network snapshot has %d means and %d scales for %d features",
			len(snapshot.Mean), len(snapshot.Scale), snapshot.Config.NumColumns)
	}
	n.Config = snapshot.Config
	n.Mean, n.Scale = snapshot.Mean, snapshot.Scale
	n.model = network
	return nil
}
