package model

import (
	mat "github.com/nlpodyssey/spago/pkg/mat32"
	"github.com/nlpodyssey/spago/pkg/mat32/rand"
	"github.com/nlpodyssey/spago/pkg/ml/ag"
	"github.com/nlpodyssey/spago/pkg/ml/initializers"
	"github.com/nlpodyssey/spago/pkg/ml/nn"
	"github.com/nlpodyssey/spago/pkg/ml/nn/linear"

	"github.com/KinKir/eyegrade/pkg/model/featuretransformer"
)

var (
	_ nn.Model = &Network{}
)

type NetworkConfig struct {
	NumColumns       int
	FeatureDimension int
	OutputDimension  int
}

// Network maps a feature vector to one logit per class through a gated
// feature transformer block and a linear output layer.
type Network struct {
	nn.BaseModel
	NetworkConfig
	FeatureTransformer *featuretransformer.Model
	OutputLayer        *linear.Model
}

func NewNetwork(config NetworkConfig) *Network {
	return &Network{
		NetworkConfig:      config,
		FeatureTransformer: featuretransformer.New(config.NumColumns, config.FeatureDimension),
		OutputLayer:        linear.New(config.FeatureDimension, config.OutputDimension),
	}
}

func (m *Network) Init(generator *rand.LockedRand) {
	m.FeatureTransformer.Init(generator)
	initializers.XavierUniform(m.OutputLayer.W.Value(), initializers.Gain(ag.OpIdentity), generator)
}

func (m *Network) Forward(xs ...ag.Node) []ag.Node {
	return m.OutputLayer.Forward(m.FeatureTransformer.Forward(xs...)...)
}

// Weights returns every trainable matrix of the network in a fixed order, so
// that a snapshot of their data can be restored into a fresh network.
func (m *Network) Weights() []mat.Matrix {
	return append(m.FeatureTransformer.Weights(), m.OutputLayer.W.Value(), m.OutputLayer.B.Value())
}
