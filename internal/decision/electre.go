package decision

// electreConcordanceThreshold and electreDiscordanceThreshold gate the
// outranking test: i outranks j iff concordance is at least the former and
// discordance is at most the latter.
const (
	electreConcordanceThreshold = 0.6
	electreDiscordanceThreshold = 0.4
	electreEpsilon              = 1e-9
)

// ELECTREKernel ranks by outranking: for every ordered pair (i, j) it
// computes a concordance (weighted agreement that i is at least as good as
// j) and a discordance (worst normalized disagreement), and counts how many
// nodes i outranks.
type ELECTREKernel struct{}

func (ELECTREKernel) Name() string { return "electre" }

func (ELECTREKernel) ScoreAll(x Matrix, w []float64) ([]float64, error) {
	m := x.Rows()
	if m == 0 {
		return nil, ErrEmptyMatrix
	}
	if m == 1 {
		return []float64{1}, nil
	}
	n := x.Cols()
	mins, maxs := colMinMax(x)
	ranges := make([]float64, n)
	for j := 0; j < n; j++ {
		ranges[j] = maxs[j] - mins[j] + electreEpsilon
	}

	scores := make([]float64, m)
	for i := 0; i < m; i++ {
		for j := 0; j < m; j++ {
			if i == j {
				continue
			}
			var concordance float64
			var discordance float64
			for k := 0; k < n; k++ {
				if x[i][k] <= x[j][k] {
					concordance += w[k]
				}
				diff := (x[i][k] - x[j][k]) / ranges[k]
				if diff > discordance {
					discordance = diff
				}
			}
			if concordance >= electreConcordanceThreshold && discordance <= electreDiscordanceThreshold {
				scores[i]++
			}
		}
	}
	return scores, nil
}
