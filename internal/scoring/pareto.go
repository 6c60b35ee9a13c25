package scoring

// ParetoFront returns the indices of alternatives that no other alternative
// dominates on the min-max normalized matrix, where larger is always better.
// O(m^2 n) dominance check, fine for realistic problem sizes.
func ParetoFront(normalized Matrix) []int {
	front := make([]int, 0, len(normalized))
	for i := range normalized {
		dominated := false
		for k := range normalized {
			if i == k {
				continue
			}
			if dominates(normalized[k], normalized[i]) {
				dominated = true
				break
			}
		}
		if !dominated {
			front = append(front, i)
		}
	}
	return front
}

// dominates returns true if a is >= b on every criterion and strictly better
// on at least one.
func dominates(a, b []float64) bool {
	strict := false
	for j := range a {
		if a[j] < b[j] {
			return false
		}
		if a[j] > b[j] {
			strict = true
		}
	}
	return strict
}
