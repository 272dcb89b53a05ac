package decision

import "math"

// WeightsProvider computes a per-criterion weight vector from the criteria
// matrix. Weights must sum to 1.
type WeightsProvider interface {
	Name() string
	Weights(x Matrix) ([]float64, error)
}

// EntropyWeights derives weights from the Shannon entropy of each
// criterion's column distribution: columns whose values vary more across
// candidates have lower entropy, carry more discriminating power and get
// more weight; near-uniform columns get little.
type EntropyWeights struct{}

func (EntropyWeights) Name() string { return "entropy" }

func (EntropyWeights) Weights(x Matrix) ([]float64, error) {
	m := x.Rows()
	if m == 0 {
		return nil, ErrEmptyMatrix
	}
	n := x.Cols()

	if m <= 1 {
		return uniform(n), nil
	}

	k := 1 / math.Log(float64(m))
	divergence := make([]float64, n)

	for j := 0; j < n; j++ {
		var colSum float64
		for i := 0; i < m; i++ {
			colSum += x[i][j]
		}

		var entropy float64
		if colSum == 0 {
			// Zero column: every p_ij is undefined: fall back to the
			// uniform distribution for this column's entropy term.
			p := 1.0 / float64(m)
			for i := 0; i < m; i++ {
				entropy += plogp(p)
			}
		} else {
			for i := 0; i < m; i++ {
				p := x[i][j] / colSum
				entropy += plogp(p)
			}
		}
		entropy = -k * entropy
		divergence[j] = 1 - entropy
	}

	var total float64
	for _, d := range divergence {
		total += d
	}
	if total == 0 {
		return uniform(n), nil
	}

	weights := make([]float64, n)
	for j, d := range divergence {
		weights[j] = d / total
	}
	return weights, nil
}

// FixedWeights assigns every criterion equal weight regardless of the
// matrix contents. It backs the "fixed" weights strategy named in the BRS
// envelope, for callers who don't want the entropy-derived emphasis to
// shift between requests.
type FixedWeights struct{}

func (FixedWeights) Name() string { return "fixed" }

func (FixedWeights) Weights(x Matrix) ([]float64, error) {
	if x.Rows() == 0 {
		return nil, ErrEmptyMatrix
	}
	return uniform(x.Cols()), nil
}

func uniform(n int) []float64 {
	if n == 0 {
		return nil
	}
	w := make([]float64, n)
	share := 1.0 / float64(n)
	for i := range w {
		w[i] = share
	}
	return w
}

// plogp computes p*ln(p), defined as 0 at p = 0.
func plogp(p float64) float64 {
	if p == 0 {
		return 0
	}
	return p * math.Log(p)
}
