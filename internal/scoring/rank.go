package scoring

import "sort"

// rankOrder returns alternative indices from best to worst. Higher scores
// come first; equal scores keep their natural order.
func rankOrder(scores []float64) []int {
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})
	return order
}

// ranksOf returns the 1-based rank of every alternative in natural order.
func ranksOf(scores []float64) []int {
	ranks := make([]int, len(scores))
	for pos, i := range rankOrder(scores) {
		ranks[i] = pos + 1
	}
	return ranks
}

func buildRanking(names []string, scores []float64) []RankEntry {
	order := rankOrder(scores)
	out := make([]RankEntry, len(order))
	for pos, i := range order {
		out[pos] = RankEntry{Alt: names[i], Rank: pos + 1, Score: scores[i]}
	}
	return out
}
