package scoring

import "math"

// WPMEpsilon replaces non-positive values before they are raised to a weight.
const WPMEpsilon = 1e-3

// rankWPM scores each alternative by the product of its raw values raised to
// the criterion weights. Cost values are inverted first. The ratio matrix
// holds P_i / P_k, so R[i][k] >= 1 means i is at least as good as k.
func rankWPM(v *view) ([]float64, *WPMDetails) {
	m, n := len(v.matrix), len(v.weights)
	d := &WPMDetails{
		Epsilon:       WPMEpsilon,
		Contributions: make(Matrix, m),
		Products:      make([]float64, m),
		Ratios:        make(Matrix, m),
	}

	for i := 0; i < m; i++ {
		d.Contributions[i] = make([]float64, n)
		product := 1.0
		for j := 0; j < n; j++ {
			x := v.matrix[i][j]
			if x <= 0 {
				d.Substituted = true
				d.SubstitutedCells = append(d.SubstitutedCells, Cell{
					Alt:       v.altNames[i],
					Criterion: v.critNames[j],
					Original:  x,
				})
				x = WPMEpsilon
			}
			if v.directions[j] == Cost {
				x = 1 / x
			}
			c := math.Pow(x, v.weights[j])
			d.Contributions[i][j] = c
			product *= c
		}
		d.Products[i] = product
	}

	for i := 0; i < m; i++ {
		d.Ratios[i] = make([]float64, m)
		for k := 0; k < m; k++ {
			if d.Products[k] == 0 {
				d.Ratios[i][k] = math.Inf(1)
				d.InfiniteRatios = true
				continue
			}
			d.Ratios[i][k] = d.Products[i] / d.Products[k]
		}
	}

	scores := make([]float64, m)
	copy(scores, d.Products)
	return scores, d
}
