package scoring

type altRow struct {
	name   string
	scores []float64
}

func row(name string, scores ...float64) altRow {
	return altRow{name: name, scores: scores}
}

func crit(name string, d Direction, w float64) Criterion {
	return Criterion{Name: name, Direction: d, Weight: w}
}

// mkProblem builds a problem whose score columns follow the criteria order.
func mkProblem(criteria []Criterion, rows ...altRow) *Problem {
	p := &Problem{Name: "fixture", Criteria: criteria}
	for _, r := range rows {
		a := Alternative{Name: r.name, Scores: make(map[string]float64, len(r.scores))}
		for j, v := range r.scores {
			a.Scores[criteria[j].Name] = v
		}
		p.Alternatives = append(p.Alternatives, a)
	}
	return p
}

// laptops is a small mixed-direction problem with no ties under any method.
func laptops() *Problem {
	return mkProblem(
		[]Criterion{
			crit("price", Cost, 0.4),
			crit("battery", Benefit, 0.25),
			crit("weight", Cost, 0.15),
			crit("screen", Benefit, 0.2),
		},
		row("air", 1200, 15, 1.2, 13.6),
		row("pro", 2400, 18, 1.6, 16.2),
		row("budget", 650, 8, 2.1, 15.6),
		row("travel", 950, 12, 0.9, 12.5),
	)
}

func floatPtr(v float64) *float64 { return &v }
