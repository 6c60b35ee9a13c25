package scoring

// rankWSM scores each alternative by the weighted sum of its min-max
// normalized values.
func rankWSM(v *view, normalized Matrix) ([]float64, *WSMDetails) {
	weighted := weightColumns(normalized, v.weights)
	totals := rowSums(weighted)
	return totals, &WSMDetails{
		Weighted: weighted,
		Totals:   totals,
	}
}
