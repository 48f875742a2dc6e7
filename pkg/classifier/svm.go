package classifier

import (
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	svmTolerance = 1e-3
	svmTau       = 1e-12
)

// SVM is a C-SVC engine with an RBF kernel. More than two classes are handled
// one-vs-one: every pair of classes gets a machine and the class with most
// votes wins.
type SVM struct {
	Gamma    float64
	Dim      int
	Labels   []int
	Machines []BinaryMachine
}

// BinaryMachine separates Labels[Positive] from Labels[Negative].
type BinaryMachine struct {
	Positive int
	Negative int
	Vectors  [][]float64

	// Coefs holds alpha_i * y_i for every support vector
	Coefs []float64
	Rho   float64
}

func NewSVM() Engine {
	return &SVM{}
}

func (s *SVM) FeaturesLen() int {
	return s.Dim
}

func (s *SVM) Train(features [][]float64, labels []int, numClasses int, params Params) error {
	if len(features) == 0 {
		return ErrEmptyTrainingSet
	}
	s.Gamma = params.Gamma
	s.Dim = len(features[0])
	for i, f := range features {
		if len(f) != s.Dim {
			return fmt.Errorf("%w: vector %d has %d features, expected %d", ErrFeaturesLength, i, len(f), s.Dim)
		}
	}

	byLabel := make(map[int][]int)
	for i, label := range labels {
		byLabel[label] = append(byLabel[label], i)
	}
	s.Labels = make([]int, 0, len(byLabel))
	for label := range byLabel {
		s.Labels = append(s.Labels, label)
	}
	sort.Ints(s.Labels)

	s.Machines = nil
	for p := 0; p < len(s.Labels); p++ {
		for q := p + 1; q < len(s.Labels); q++ {
			positives, negatives := byLabel[s.Labels[p]], byLabel[s.Labels[q]]
			x := make([][]float64, 0, len(positives)+len(negatives))
			y := make([]float64, 0, len(positives)+len(negatives))
			for _, i := range positives {
				x = append(x, features[i])
				y = append(y, 1)
			}
			for _, i := range negatives {
				x = append(x, features[i])
				y = append(y, -1)
			}
			machine := s.solve(x, y, params.C)
			machine.Positive, machine.Negative = p, q
			log.Debug().Int("Positive", s.Labels[p]).Int("Negative", s.Labels[q]).
				Int("SupportVectors", len(machine.Vectors)).Float64("Rho", machine.Rho).Msg("Trained binary machine")
			s.Machines = append(s.Machines, machine)
		}
	}
	return nil
}

func (s *SVM) Predict(features []float64) float64 {
	switch len(s.Labels) {
	case 0:
		panic(ErrNotTrained)
	case 1:
		return float64(s.Labels[0])
	}
	votes := make([]int, len(s.Labels))
	for i := range s.Machines {
		m := &s.Machines[i]
		if s.decision(m, features) > 0 {
			votes[m.Positive]++
		} else {
			votes[m.Negative]++
		}
	}
	winner := 0
	for i := range votes {
		if votes[i] > votes[winner] {
			winner = i
		}
	}
	return float64(s.Labels[winner])
}

func (s *SVM) decision(m *BinaryMachine, x []float64) float64 {
	sum := 0.0
	for i, v := range m.Vectors {
		sum += m.Coefs[i] * s.kernel(v, x)
	}
	return sum - m.Rho
}

func (s *SVM) kernel(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return math.Exp(-s.Gamma * d * d)
}

// solve runs SMO with maximal violating pair selection on the dual problem
// min 1/2 a'Qa - e'a, 0 <= a <= C, y'a = 0.
func (s *SVM) solve(x [][]float64, y []float64, c float64) BinaryMachine {
	n := len(x)
	gram := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			gram.SetSym(i, j, s.kernel(x[i], x[j]))
		}
	}
	q := func(i, j int) float64 {
		return y[i] * y[j] * gram.At(i, j)
	}

	alpha := make([]float64, n)
	grad := make([]float64, n)
	for i := range grad {
		grad[i] = -1
	}
	isUpper := func(t int) bool { return alpha[t] >= c }
	isLower := func(t int) bool { return alpha[t] <= 0 }

	maxIter := 100 * n
	if maxIter < 10000000 {
		maxIter = 10000000
	}
	iter := 0
	for ; iter < maxIter; iter++ {
		i, j := -1, -1
		gMax, gMax2 := math.Inf(-1), math.Inf(-1)
		for t := 0; t < n; t++ {
			if y[t] > 0 {
				if !isUpper(t) && -grad[t] >= gMax {
					gMax, i = -grad[t], t
				}
				if !isLower(t) && grad[t] >= gMax2 {
					gMax2, j = grad[t], t
				}
			} else {
				if !isLower(t) && grad[t] >= gMax {
					gMax, i = grad[t], t
				}
				if !isUpper(t) && -grad[t] >= gMax2 {
					gMax2, j = -grad[t], t
				}
			}
		}
		if i < 0 || j < 0 || gMax+gMax2 < svmTolerance {
			break
		}

		oldI, oldJ := alpha[i], alpha[j]
		if y[i] != y[j] {
			quad := gram.At(i, i) + gram.At(j, j) + 2*q(i, j)
			if quad <= 0 {
				quad = svmTau
			}
			delta := (-grad[i] - grad[j]) / quad
			diff := alpha[i] - alpha[j]
			alpha[i] += delta
			alpha[j] += delta
			if diff > 0 {
				if alpha[j] < 0 {
					alpha[j], alpha[i] = 0, diff
				}
			} else if alpha[i] < 0 {
				alpha[i], alpha[j] = 0, -diff
			}
			if diff > 0 {
				if alpha[i] > c {
					alpha[i], alpha[j] = c, c-diff
				}
			} else if alpha[j] > c {
				alpha[j], alpha[i] = c, c+diff
			}
		} else {
			quad := gram.At(i, i) + gram.At(j, j) - 2*q(i, j)
			if quad <= 0 {
				quad = svmTau
			}
			delta := (grad[i] - grad[j]) / quad
			sum := alpha[i] + alpha[j]
			alpha[i] -= delta
			alpha[j] += delta
			if sum > c {
				if alpha[i] > c {
					alpha[i], alpha[j] = c, sum-c
				}
			} else if alpha[j] < 0 {
				alpha[j], alpha[i] = 0, sum
			}
			if sum > c {
				if alpha[j] > c {
					alpha[j], alpha[i] = c, sum-c
				}
			} else if alpha[i] < 0 {
				alpha[i], alpha[j] = 0, sum
			}
		}

		deltaI, deltaJ := alpha[i]-oldI, alpha[j]-oldJ
		for t := 0; t < n; t++ {
			grad[t] += q(i, t)*deltaI + q(j, t)*deltaJ
		}
	}
	if iter == maxIter {
		log.Warn().Int("Iterations", iter).Msg("SMO reached the iteration limit")
	}

	machine := BinaryMachine{Rho: rho(alpha, grad, y, c)}
	for t := 0; t < n; t++ {
		if alpha[t] > 0 {
			machine.Vectors = append(machine.Vectors, x[t])
			machine.Coefs = append(machine.Coefs, alpha[t]*y[t])
		}
	}
	return machine
}

func rho(alpha, grad, y []float64, c float64) float64 {
	ub, lb := math.Inf(1), math.Inf(-1)
	sumFree, numFree := 0.0, 0
	for t := range alpha {
		yg := y[t] * grad[t]
		switch {
		case alpha[t] >= c:
			if y[t] < 0 {
				ub = math.Min(ub, yg)
			} else {
				lb = math.Max(lb, yg)
			}
		case alpha[t] <= 0:
			if y[t] > 0 {
				ub = math.Min(ub, yg)
			} else {
				lb = math.Max(lb, yg)
			}
		default:
			numFree++
			sumFree += yg
		}
	}
	if numFree > 0 {
		return sumFree / float64(numFree)
	}
	return (ub + lb) / 2
}
