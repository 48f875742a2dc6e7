package featuretransformer

import (
	"math"

	mat "github.com/nlpodyssey/spago/pkg/mat32"
	"github.com/nlpodyssey/spago/pkg/mat32/rand"
	"github.com/nlpodyssey/spago/pkg/ml/ag"
	"github.com/nlpodyssey/spago/pkg/ml/nn"
)

var (
	_ nn.Model = &Model{}
)

// Model is a block of two gated layers. The second layer output is added to
// the first one and scaled by sqrt(0.5) to keep the variance stable.
type Model struct {
	nn.BaseModel
	Layer1 *Layer
	Layer2 *Layer
}

func New(numInputFeatures, featureDimension int) *Model {
	return &Model{
		Layer1: NewLayer(numInputFeatures, featureDimension),
		Layer2: NewLayer(featureDimension, featureDimension),
	}
}

func (m *Model) Init(generator *rand.LockedRand) {
	m.Layer1.Init(generator)
	m.Layer2.Init(generator)
}

var SquareRootHalf = mat.Float(math.Sqrt(0.5))

func (m *Model) Forward(xs ...ag.Node) []ag.Node {
	g := m.Graph()
	theta := g.Constant(SquareRootHalf)

	l1 := m.Layer1.Forward(xs...)
	l2 := m.Layer2.Forward(l1...)
	for i := range xs {
		l2[i] = g.Mul(g.Add(l1[i], l2[i]), theta)
	}
	return l2
}

// Weights returns the trainable matrices of the block in a fixed order.
func (m *Model) Weights() []mat.Matrix {
	return []mat.Matrix{
		m.Layer1.DenseLayer.W.Value(), m.Layer1.DenseLayer.B.Value(),
		m.Layer2.DenseLayer.W.Value(), m.Layer2.DenseLayer.B.Value(),
	}
}
