package decision

// SAWKernel is the simple additive weighting kernel: criteria are
// max-normalized per column and inverted from cost to benefit framing
// (max(col) - x), then scored as a weighted sum.
type SAWKernel struct{}

func (SAWKernel) Name() string { return "saw" }

func (SAWKernel) ScoreAll(x Matrix, w []float64) ([]float64, error) {
	return sawScore(x, w)
}

// LinearKernel is the linear-scalarization kernel. It is identical to SAW
// on cost-only matrices, which is the only framing the choose-node use
// case ever builds.
type LinearKernel struct{}

func (LinearKernel) Name() string { return "lc" }

func (LinearKernel) ScoreAll(x Matrix, w []float64) ([]float64, error) {
	return sawScore(x, w)
}

func sawScore(x Matrix, w []float64) ([]float64, error) {
	m := x.Rows()
	if m == 0 {
		return nil, ErrEmptyMatrix
	}
	if m == 1 {
		return []float64{1}, nil
	}
	n := x.Cols()
	_, maxs := colMinMax(x)

	scores := make([]float64, m)
	for i := 0; i < m; i++ {
		var sum float64
		for j := 0; j < n; j++ {
			if maxs[j] == 0 {
				continue
			}
			benefit := (maxs[j] - x[i][j]) / maxs[j]
			sum += w[j] * benefit
		}
		scores[i] = sum
	}
	return scores, nil
}
