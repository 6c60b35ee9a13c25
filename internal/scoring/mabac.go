package scoring

import "math"

// rankMABAC scores each alternative by its summed distance from the border
// approximation area, the geometric mean of each weighted column.
func rankMABAC(v *view, normalized Matrix) ([]float64, *MABACDetails) {
	m, n := len(normalized), len(v.weights)
	d := &MABACDetails{
		Weighted: make(Matrix, m),
		Border:   make([]float64, n),
		Distance: make(Matrix, m),
		Totals:   make([]float64, m),
		Areas:    make([][]Area, m),
	}

	for i := 0; i < m; i++ {
		d.Weighted[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			d.Weighted[i][j] = v.weights[j] * (normalized[i][j] + 1)
		}
	}

	for j := 0; j < n; j++ {
		d.Border[j] = geometricMean(d.Weighted, j)
	}

	for i := 0; i < m; i++ {
		d.Distance[i] = make([]float64, n)
		d.Areas[i] = make([]Area, n)
		var total float64
		for j := 0; j < n; j++ {
			q := d.Weighted[i][j] - d.Border[j]
			d.Distance[i][j] = q
			switch {
			case q > 0:
				d.Areas[i][j] = AreaUpper
			case q < 0:
				d.Areas[i][j] = AreaLower
			default:
				d.Areas[i][j] = AreaBorder
			}
			total += q
		}
		d.Totals[i] = total
	}

	scores := make([]float64, m)
	copy(scores, d.Totals)
	return scores, d
}

// geometricMean of column j, computed in log space so that long columns do
// not overflow. A constant column returns its value exactly.
func geometricMean(matrix Matrix, j int) float64 {
	lo, hi := columnRange(matrix, j)
	if lo == hi {
		return lo
	}
	if lo <= 0 {
		return 0
	}
	var logs float64
	for i := range matrix {
		logs += math.Log(matrix[i][j])
	}
	return math.Exp(logs / float64(len(matrix)))
}
