package decision

import "math"

// TOPSISKernel ranks by closeness to the ideal solution after
// column-L2-normalizing and weighting the criteria matrix. Criteria are in
// cost framing, so the ideal point is the column-wise minimum.
type TOPSISKernel struct{}

func (TOPSISKernel) Name() string { return "topsis" }

func (TOPSISKernel) ScoreAll(x Matrix, w []float64) ([]float64, error) {
	m := x.Rows()
	if m == 0 {
		return nil, ErrEmptyMatrix
	}
	if m == 1 {
		return []float64{1}, nil
	}
	n := x.Cols()

	norms := make([]float64, n)
	for j := 0; j < n; j++ {
		var sumSq float64
		for i := 0; i < m; i++ {
			sumSq += x[i][j] * x[i][j]
		}
		norms[j] = math.Sqrt(sumSq)
	}

	v := make(Matrix, m)
	for i := 0; i < m; i++ {
		v[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			if norms[j] == 0 {
				continue
			}
			v[i][j] = (x[i][j] / norms[j]) * w[j]
		}
	}

	ideal := make([]float64, n)
	antiIdeal := make([]float64, n)
	for j := 0; j < n; j++ {
		ideal[j] = v[0][j]
		antiIdeal[j] = v[0][j]
		for i := 1; i < m; i++ {
			if v[i][j] < ideal[j] {
				ideal[j] = v[i][j]
			}
			if v[i][j] > antiIdeal[j] {
				antiIdeal[j] = v[i][j]
			}
		}
	}

	scores := make([]float64, m)
	for i := 0; i < m; i++ {
		var dPlus, dMinus float64
		for j := 0; j < n; j++ {
			dPlus += (v[i][j] - ideal[j]) * (v[i][j] - ideal[j])
			dMinus += (v[i][j] - antiIdeal[j]) * (v[i][j] - antiIdeal[j])
		}
		dPlus = math.Sqrt(dPlus)
		dMinus = math.Sqrt(dMinus)
		denom := dPlus + dMinus
		if denom == 0 {
			scores[i] = 0
			continue
		}
		scores[i] = dMinus / denom
	}
	return scores, nil
}
