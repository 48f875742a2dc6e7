package featuretransformer

import (
	"github.com/nlpodyssey/spago/pkg/mat32/rand"
	"github.com/nlpodyssey/spago/pkg/ml/ag"
	"github.com/nlpodyssey/spago/pkg/ml/initializers"
	"github.com/nlpodyssey/spago/pkg/ml/nn"
	"github.com/nlpodyssey/spago/pkg/ml/nn/linear"
)

var (
	_ nn.Model = &Layer{}
)

// Layer projects its input to twice the feature dimension and gates one half
// with the other (gated linear unit).
type Layer struct {
	nn.BaseModel
	InputDimension   int
	FeatureDimension int
	DenseLayer       *linear.Model
}

func NewLayer(inputDimension, featureDimension int) *Layer {
	return &Layer{
		InputDimension:   inputDimension,
		FeatureDimension: featureDimension,
		DenseLayer:       linear.New(inputDimension, 2*featureDimension),
	}
}

func (m *Layer) Init(generator *rand.LockedRand) {
	initializers.XavierUniform(m.DenseLayer.W.Value(), initializers.Gain(ag.OpSigmoid), generator)
}

func (m *Layer) Forward(xs ...ag.Node) []ag.Node {
	transformed := m.DenseLayer.Forward(xs...)
	out := make([]ag.Node, len(xs))
	for i := range out {
		out[i] = glu(m.Graph(), m.FeatureDimension, transformed[i])
	}
	return out
}

func glu(g *ag.Graph, half int, x ag.Node) ag.Node {
	value := g.View(x, 0, 0, half, 1)
	gate := g.View(x, half, 0, half, 1)
	return g.Prod(value, g.Sigmoid(gate))
}
