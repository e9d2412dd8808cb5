package retrieval

import (
	"github.com/kailas-cloud/askdex/internal/domain"
	"github.com/kailas-cloud/askdex/internal/domain/search/result"
)

// rankMMR greedily selects up to k candidates by maximal marginal relevance:
//
//	score(c) = lambda*sim(query, c) - (1-lambda)*max over selected s of sim(c, s)
//
// lambda=1 degenerates to pure relevance order; lambda=0 to pure diversity.
// Candidates arrive sorted by ascending distance, and ties keep the earliest
// candidate, so the output is deterministic for a fixed pool. When the pool
// holds fewer than k candidates, every candidate is returned exactly once,
// still in greedy order.
func rankMMR(query []float32, candidates []result.Match, k int, lambda float64) []result.Match {
	if k > len(candidates) {
		k = len(candidates)
	}

	relevance := make([]float64, len(candidates))
	for i := range candidates {
		relevance[i] = domain.CosineSimilarity(query, candidates[i].Vector())
	}

	selected := make([]result.Match, 0, k)
	picked := make([]bool, len(candidates))

	for len(selected) < k {
		best := -1
		bestScore := 0.0

		for i := range candidates {
			if picked[i] {
				continue
			}

			maxSim := 0.0
			for j := range selected {
				sim := domain.CosineSimilarity(candidates[i].Vector(), selected[j].Vector())
				if j == 0 || sim > maxSim {
					maxSim = sim
				}
			}

			score := lambda*relevance[i] - (1-lambda)*maxSim
			if best == -1 || score > bestScore {
				best = i
				bestScore = score
			}
		}

		picked[best] = true
		selected = append(selected, candidates[best])
	}

	return selected
}
