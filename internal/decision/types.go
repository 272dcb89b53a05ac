// Package decision implements the MCDM ranking kernels, the entropy weights
// provider, the strategy/weights registries (the Decision Resolver), and the
// choose-node use case that turns a telemetry snapshot into a ranked list of
// replica endpoints.
package decision

import "errors"

// ErrEmptyMatrix is returned by a Kernel when the criteria matrix has zero
// rows; every kernel must reject m = 0 rather than silently returning an
// empty ranking.
var ErrEmptyMatrix = errors.New("decision: criteria matrix has no rows")

// Matrix is a row-major m x n criteria matrix: m candidate nodes, n
// criteria columns. All criteria are expected to already be in cost
// framing (lower = better) by the time they reach a Kernel; ChooseNode is
// responsible for that normalization.
type Matrix [][]float64

// Rows returns m, the number of candidate nodes.
func (x Matrix) Rows() int { return len(x) }

// Cols returns n, the number of criteria columns, or 0 for an empty matrix.
func (x Matrix) Cols() int {
	if len(x) == 0 {
		return 0
	}
	return len(x[0])
}

// Kernel is a pure ranking function over a criteria matrix and a weight
// vector. Scores are higher-is-better; Choose breaks ties by lower index.
type Kernel interface {
	Name() string
	ScoreAll(x Matrix, w []float64) ([]float64, error)
}

// Choose returns the index of the highest-scoring row, breaking ties by
// lower index. It is a thin helper shared by every Kernel implementation.
func Choose(scores []float64) int {
	best := 0
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[best] {
			best = i
		}
	}
	return best
}

// colMinMax returns the per-column minimum and maximum of x.
func colMinMax(x Matrix) (mins, maxs []float64) {
	n := x.Cols()
	mins = make([]float64, n)
	maxs = make([]float64, n)
	for j := 0; j < n; j++ {
		mins[j] = x[0][j]
		maxs[j] = x[0][j]
	}
	for i := 1; i < x.Rows(); i++ {
		for j := 0; j < n; j++ {
			if x[i][j] < mins[j] {
				mins[j] = x[i][j]
			}
			if x[i][j] > maxs[j] {
				maxs[j] = x[i][j]
			}
		}
	}
	return mins, maxs
}
