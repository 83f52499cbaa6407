package graph

import (
	"fmt"
	"sort"

	"github.com/revred/sharc/internal/sharcerr"
)

type color uint8

const (
	white color = iota
	gray
	black
)

// TopoSort returns a topological order over the outgoing-edge adjacency
// list restricted to nodeKeys, using iterative tri-colour DFS (spec.md
// §4.9): a back-edge (an edge into a gray node) raises ErrCycle. Output
// is the DFS post-order reversed.
func TopoSort(s *Store, nodeKeys []int64) ([]int64, error) {
	colors := make(map[int64]color, len(nodeKeys))
	keys := append([]int64(nil), nodeKeys...)
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] }) // deterministic visitation order
	inSet := make(map[int64]bool, len(keys))
	for _, k := range keys {
		colors[k] = white
		inSet[k] = true
	}

	var postOrder []int64

	type frame struct {
		key      int64
		edgeIdx  int
		children []int64
	}

	for _, start := range keys {
		if colors[start] != white {
			continue
		}
		stack := []*frame{{key: start, children: neighborsOf(s, start, inSet)}}
		colors[start] = gray
		for len(stack) > 0 {
			top := stack[len(stack)-1]
			if top.edgeIdx >= len(top.children) {
				colors[top.key] = black
				postOrder = append(postOrder, top.key)
				stack = stack[:len(stack)-1]
				continue
			}
			child := top.children[top.edgeIdx]
			top.edgeIdx++
			switch colors[child] {
			case white:
				colors[child] = gray
				stack = append(stack, &frame{key: child, children: neighborsOf(s, child, inSet)})
			case gray:
				return nil, fmt.Errorf("back edge into %d: %w", child, sharcerr.ErrCycle)
			case black:
				// already finished, no-op
			}
		}
	}

	reversed := make([]int64, len(postOrder))
	for i, k := range postOrder {
		reversed[len(postOrder)-1-i] = k
	}
	return reversed, nil
}

func neighborsOf(s *Store, key int64, inSet map[int64]bool) []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]int64, 0, len(s.outgoing[key]))
	for _, e := range s.outgoing[key] {
		if inSet[e.To] {
			out = append(out, e.To)
		}
	}
	return out
}
