package scoring

import "math"

// thresholdTolerance absorbs rounding in summed weights compared against
// the ELECTRE thresholds.
const thresholdTolerance = 1e-9

// rankELECTRE builds the concordance, discordance and outranking matrices on
// the min-max normalized values and scores each alternative by its net flow:
// how many alternatives it outranks minus how many outrank it.
func rankELECTRE(v *view, normalized Matrix, opts Options) ([]float64, *ELECTREDetails) {
	m, n := len(normalized), len(v.weights)
	d := &ELECTREDetails{
		ConcordanceThreshold: opts.ConcordanceThreshold,
		DiscordanceThreshold: opts.DiscordanceThreshold,
		Concordance:          make(Matrix, m),
		Discordance:          make(Matrix, m),
		Outranking:           make([][]int, m),
		Outranks:             make([]int, m),
		OutrankedBy:          make([]int, m),
		NetFlow:              make([]int, m),
	}

	for i := 0; i < m; i++ {
		d.Concordance[i] = make([]float64, m)
		d.Discordance[i] = make([]float64, m)
		d.Outranking[i] = make([]int, m)
		for k := 0; k < m; k++ {
			if i == k {
				d.Concordance[i][k] = math.NaN()
				d.Discordance[i][k] = math.NaN()
				continue
			}
			var c, worst float64
			for j := 0; j < n; j++ {
				if normalized[i][j] >= normalized[k][j] {
					c += v.weights[j]
				}
				if gap := normalized[k][j] - normalized[i][j]; gap > worst {
					worst = gap
				}
			}
			d.Concordance[i][k] = c
			// The normalized scale spans [0, 1], so the largest gap is
			// already relative to the scale range.
			d.Discordance[i][k] = worst

			if c >= opts.ConcordanceThreshold-thresholdTolerance && worst <= opts.DiscordanceThreshold+thresholdTolerance {
				d.Outranking[i][k] = 1
			}
		}
	}

	found := false
	for i := 0; i < m; i++ {
		for k := 0; k < m; k++ {
			if d.Outranking[i][k] == 1 {
				d.Outranks[i]++
				d.OutrankedBy[k]++
				found = true
			}
		}
	}
	d.NoOutranking = !found

	scores := make([]float64, m)
	for i := 0; i < m; i++ {
		d.NetFlow[i] = d.Outranks[i] - d.OutrankedBy[i]
		scores[i] = float64(d.NetFlow[i])
	}
	return scores, d
}
