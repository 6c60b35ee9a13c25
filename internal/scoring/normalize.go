package scoring

import "math"

// NormalizeMinMax rescales every column of matrix to [0, 1] so that 1 is the
// best value on that criterion whatever its direction. A column whose values
// are all equal becomes all ones; the indices of such columns are returned.
func NormalizeMinMax(matrix [][]float64, directions []Direction) (Matrix, []int) {
	m := len(matrix)
	n := len(directions)
	out := make(Matrix, m)
	for i := range out {
		out[i] = make([]float64, n)
	}

	var degenerate []int
	for j := 0; j < n; j++ {
		lo, hi := columnRange(matrix, j)
		if hi == lo {
			degenerate = append(degenerate, j)
			for i := 0; i < m; i++ {
				out[i][j] = 1.0
			}
			continue
		}
		span := hi - lo
		for i := 0; i < m; i++ {
			x := matrix[i][j]
			if directions[j] == Cost {
				out[i][j] = (hi - x) / span
			} else {
				out[i][j] = (x - lo) / span
			}
		}
	}
	return out, degenerate
}

// NormalizeEuclidean divides every column by its L2 norm. Directions are not
// applied here. A column with zero norm becomes all zeros.
func NormalizeEuclidean(matrix [][]float64) Matrix {
	m := len(matrix)
	if m == 0 {
		return Matrix{}
	}
	n := len(matrix[0])
	out := make(Matrix, m)
	for i := range out {
		out[i] = make([]float64, n)
	}
	for j := 0; j < n; j++ {
		var sq float64
		for i := 0; i < m; i++ {
			sq += matrix[i][j] * matrix[i][j]
		}
		norm := math.Sqrt(sq)
		if norm == 0 {
			continue
		}
		for i := 0; i < m; i++ {
			out[i][j] = matrix[i][j] / norm
		}
	}
	return out
}

func columnRange(matrix [][]float64, j int) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for i := range matrix {
		x := matrix[i][j]
		if x < lo {
			lo = x
		}
		if x > hi {
			hi = x
		}
	}
	return lo, hi
}

// weightColumns returns V[i][j] = N[i][j] * w[j].
func weightColumns(n Matrix, weights []float64) Matrix {
	out := make(Matrix, len(n))
	for i, row := range n {
		out[i] = make([]float64, len(row))
		for j, v := range row {
			out[i][j] = v * weights[j]
		}
	}
	return out
}

func rowSums(m Matrix) []float64 {
	out := make([]float64, len(m))
	for i, row := range m {
		var s float64
		for _, v := range row {
			s += v
		}
		out[i] = s
	}
	return out
}
