package decision

import (
	"math/rand"
	"time"

	"gonum.org/v1/gonum/stat/distuv"
)

// airmIterations is the number of Monte-Carlo draws AIRM takes over the
// weight simplex.
const airmIterations = 500

// AIRMKernel ranks by normalized win frequency across repeated draws of a
// perturbed weight vector w' ~ Dirichlet(5w), re-scoring with SAW on each
// draw and tallying which node wins.
type AIRMKernel struct {
	iterations int
	rng        *rand.Rand
}

// NewAIRMKernel creates an AIRM kernel with the default 500 Monte-Carlo
// iterations and a time-seeded source.
func NewAIRMKernel() *AIRMKernel {
	return NewAIRMKernelWithIterations(airmIterations)
}

// NewAIRMKernelWithIterations creates an AIRM kernel with a caller-supplied
// iteration count (decision.airm_iterations), falling back to the default
// when iterations <= 0.
func NewAIRMKernelWithIterations(iterations int) *AIRMKernel {
	if iterations <= 0 {
		iterations = airmIterations
	}
	return &AIRMKernel{
		iterations: iterations,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (k *AIRMKernel) Name() string { return "airm" }

func (k *AIRMKernel) ScoreAll(x Matrix, w []float64) ([]float64, error) {
	m := x.Rows()
	if m == 0 {
		return nil, ErrEmptyMatrix
	}
	if m == 1 {
		return []float64{1}, nil
	}

	wins := make([]float64, m)
	for iter := 0; iter < k.iterations; iter++ {
		draw := k.sampleDirichlet(w)
		scores, err := sawScore(x, draw)
		if err != nil {
			return nil, err
		}
		wins[Choose(scores)]++
	}

	total := float64(k.iterations)
	result := make([]float64, m)
	for i := range result {
		result[i] = wins[i] / total
	}
	return result, nil
}

// sampleDirichlet draws from Dirichlet(5*w) via independent Gamma(5*wj, 1)
// draws normalized to sum to 1. A zero-weight column draws a degenerate
// Gamma and contributes 0, which is the correct Dirichlet boundary case.
func (k *AIRMKernel) sampleDirichlet(w []float64) []float64 {
	draw := make([]float64, len(w))
	var sum float64
	for j, wj := range w {
		alpha := 5 * wj
		if alpha <= 0 {
			draw[j] = 0
			continue
		}
		g := distuv.Gamma{Alpha: alpha, Beta: 1, Src: k.rng}
		draw[j] = g.Rand()
		sum += draw[j]
	}
	if sum == 0 {
		uniform := 1.0 / float64(len(w))
		for j := range draw {
			draw[j] = uniform
		}
		return draw
	}
	for j := range draw {
		draw[j] /= sum
	}
	return draw
}
