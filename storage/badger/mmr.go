package badger

import (
	"math"
	"slices"

	"github.com/poiesic/policyrag/core"
	"github.com/poiesic/policyrag/storage"
)

type candidate struct {
	chunk     *core.Chunk
	relevance float64
}

// selectMMR keeps the opts.FetchK chunks most similar to query, then greedily
// picks opts.K of them maximizing
//
//	lambda*sim(query, c) - (1-lambda)*max(sim(c, picked))
//
// Ties go to the earlier, more relevant candidate.
func selectMMR(query []float32, chunks []*core.Chunk, opts storage.SearchOptions) []core.ScoredChunk {
	pool := make([]candidate, 0, len(chunks))
	for _, chunk := range chunks {
		rel := cosineSimilarity(query, chunk.Vector)
		if math.IsNaN(rel) {
			continue
		}
		pool = append(pool, candidate{chunk: chunk, relevance: rel})
	}
	slices.SortStableFunc(pool, func(a, b candidate) int {
		switch {
		case a.relevance > b.relevance:
			return -1
		case a.relevance < b.relevance:
			return 1
		}
		return 0
	})
	if len(pool) > opts.FetchK {
		pool = pool[:opts.FetchK]
	}

	// redundancy[i] is the highest similarity of pool[i] to any picked chunk.
	redundancy := make([]float64, len(pool))
	used := make([]bool, len(pool))
	results := make([]core.ScoredChunk, 0, min(opts.K, len(pool)))

	for len(results) < opts.K && len(results) < len(pool) {
		best := -1
		bestScore := math.Inf(-1)
		for i, c := range pool {
			if used[i] {
				continue
			}
			score := opts.Lambda*c.relevance - (1-opts.Lambda)*redundancy[i]
			if score > bestScore {
				best, bestScore = i, score
			}
		}
		if best < 0 {
			break
		}
		used[best] = true
		picked := pool[best]
		results = append(results, core.ScoredChunk{
			Chunk: picked.chunk,
			Score: math.Max(0, picked.relevance),
		})
		for i, c := range pool {
			if used[i] {
				continue
			}
			if sim := cosineSimilarity(c.chunk.Vector, picked.chunk.Vector); sim > redundancy[i] {
				redundancy[i] = sim
			}
		}
	}
	return results
}

// cosineSimilarity compares vectors over their common prefix.
// Zero vectors have similarity 0.
func cosineSimilarity(a, b []float32) float64 {
	n := min(len(a), len(b))
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
