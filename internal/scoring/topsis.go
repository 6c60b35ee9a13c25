package scoring

import "math"

// rankTOPSIS scores each alternative by its relative closeness to the ideal
// solution. The raw matrix is vector-normalized; directions only decide which
// extreme is ideal.
func rankTOPSIS(v *view) ([]float64, *TOPSISDetails) {
	m, n := len(v.matrix), len(v.weights)
	r := NormalizeEuclidean(v.matrix)
	weighted := weightColumns(r, v.weights)

	ideal := make([]float64, n)
	anti := make([]float64, n)
	for j := 0; j < n; j++ {
		lo, hi := columnRange(weighted, j)
		if v.directions[j] == Cost {
			ideal[j], anti[j] = lo, hi
		} else {
			ideal[j], anti[j] = hi, lo
		}
	}

	d := &TOPSISDetails{
		VectorNormalized:  r,
		Weighted:          weighted,
		Ideal:             ideal,
		AntiIdeal:         anti,
		DistanceIdeal:     make([]float64, m),
		DistanceAntiIdeal: make([]float64, m),
		Closeness:         make([]float64, m),
	}
	for i := 0; i < m; i++ {
		var sp, sm float64
		for j := 0; j < n; j++ {
			dp := weighted[i][j] - ideal[j]
			dm := weighted[i][j] - anti[j]
			sp += dp * dp
			sm += dm * dm
		}
		d.DistanceIdeal[i] = math.Sqrt(sp)
		d.DistanceAntiIdeal[i] = math.Sqrt(sm)

		total := d.DistanceIdeal[i] + d.DistanceAntiIdeal[i]
		if total == 0 {
			d.DegenerateAlternatives = append(d.DegenerateAlternatives, v.altNames[i])
			continue
		}
		d.Closeness[i] = d.DistanceAntiIdeal[i] / total
	}

	scores := make([]float64, m)
	copy(scores, d.Closeness)
	return scores, d
}
