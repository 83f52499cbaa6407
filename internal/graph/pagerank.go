package graph

import (
	"math"
	"sort"
)

// ScoredNode pairs a node key with its PageRank score.
type ScoredNode struct {
	Key   int64
	Score float64
}

const pageRankEpsilon = 1e-6

// PageRank runs synchronous power iteration over every node in the store
// (spec.md §4.9): score_{t+1}[v] = (1-d)/N + d·Σ_{u→v} score_t[u]/outdeg(u),
// with dangling-node mass redistributed uniformly across all nodes.
// Terminates once max|Δ| < 1e-6 or after maxIterations (0 defaults to 50).
// Results are sorted by score descending.
func PageRank(s *Store, damping float64, maxIterations int) []ScoredNode {
	if maxIterations <= 0 {
		maxIterations = 50
	}
	keys := s.NodeKeys()
	n := len(keys)
	if n == 0 {
		return nil
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] }) // deterministic iteration order

	index := make(map[int64]int, n)
	for i, k := range keys {
		index[k] = i
	}

	incoming := make([][]int64, n) // incoming[v] = predecessors u with u->v
	outDeg := make([]int, n)
	for i, k := range keys {
		s.mu.RLock()
		edges := s.outgoing[k]
		outDeg[i] = len(edges)
		s.mu.RUnlock()
		for _, e := range edges {
			if j, ok := index[e.To]; ok {
				incoming[j] = append(incoming[j], k)
			}
		}
	}

	scores := make([]float64, n)
	for i := range scores {
		scores[i] = 1.0 / float64(n)
	}

	base := (1 - damping) / float64(n)
	for iter := 0; iter < maxIterations; iter++ {
		var danglingSum float64
		for i, k := range keys {
			if outDeg[i] == 0 {
				danglingSum += scores[index[k]]
			}
		}
		danglingShare := damping * danglingSum / float64(n)

		next := make([]float64, n)
		maxDelta := 0.0
		for i := range keys {
			sum := 0.0
			for _, u := range incoming[i] {
				ui := index[u]
				sum += scores[ui] / float64(outDeg[ui])
			}
			v := base + damping*sum + danglingShare
			next[i] = v
			if delta := math.Abs(v - scores[i]); delta > maxDelta {
				maxDelta = delta
			}
		}
		scores = next
		if maxDelta < pageRankEpsilon {
			break
		}
	}

	out := make([]ScoredNode, n)
	for i, k := range keys {
		out[i] = ScoredNode{Key: k, Score: scores[i]}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
