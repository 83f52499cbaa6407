package graph

import (
	"errors"
	"math"
	"testing"

	"github.com/revred/sharc/internal/sharcerr"
)

func buildChain(t *testing.T, n int) *Store {
	t.Helper()
	s := NewStore()
	for i := 0; i < n; i++ {
		s.AddNode(&NodeRecord{Key: int64(i), TypeID: 1, TokenCount: 100})
	}
	for i := 0; i < n-1; i++ {
		s.AddEdge(Edge{From: int64(i), To: int64(i + 1), Kind: 1, Weight: 1})
	}
	return s
}

func TestBFSTokenBudget(t *testing.T) {
	s := buildChain(t, 50)
	pt := s.Prepare(TraversalPolicy{Direction: Outgoing, MaxTokens: 350})
	nodes, err := pt.Run(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 3 {
		t.Fatalf("expected 3 nodes (300<=350, 400>350), got %d: %+v", len(nodes), nodes)
	}
	want := []int64{0, 1, 2}
	for i, n := range nodes {
		if n.Key != want[i] {
			t.Errorf("nodes[%d] = %d, want %d", i, n.Key, want[i])
		}
	}
}

func TestBFSMaxDepthAndFanOut(t *testing.T) {
	s := NewStore()
	const root, a, b, c, d = 0, 1, 2, 3, 4
	for _, k := range []int64{root, a, b, c, d} {
		s.AddNode(&NodeRecord{Key: k, TypeID: 1})
	}
	s.AddEdge(Edge{From: root, To: a, Kind: 9, Weight: 1})
	s.AddEdge(Edge{From: root, To: b, Kind: 9, Weight: 1})
	s.AddEdge(Edge{From: a, To: c, Kind: 9, Weight: 1})
	s.AddEdge(Edge{From: b, To: d, Kind: 9, Weight: 1})

	pt := s.Prepare(TraversalPolicy{Direction: Outgoing, MaxDepth: 1})
	nodes, err := pt.Run(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 3 {
		t.Fatalf("expected root+2 depth-1 nodes, got %d: %+v", len(nodes), nodes)
	}

	pt2 := s.Prepare(TraversalPolicy{Direction: Outgoing, MaxFanOut: 1})
	nodes2, err := pt2.Run(root)
	if err != nil {
		t.Fatal(err)
	}
	// root -> only first outgoing edge followed (a), then a -> c; b/d never reached.
	if len(nodes2) != 3 {
		t.Fatalf("expected 3 nodes under fan-out cap, got %d: %+v", len(nodes2), nodes2)
	}
}

func TestBFSPathReconstruction(t *testing.T) {
	s := NewStore()
	const root, mid, leaf = 0, 1, 2
	for _, k := range []int64{root, mid, leaf} {
		s.AddNode(&NodeRecord{Key: k})
	}
	s.AddEdge(Edge{From: root, To: mid, Weight: 1})
	s.AddEdge(Edge{From: mid, To: leaf, Weight: 1})

	pt := s.Prepare(TraversalPolicy{Direction: Outgoing, IncludePaths: true})
	nodes, err := pt.Run(root)
	if err != nil {
		t.Fatal(err)
	}
	got := nodes[len(nodes)-1]
	want := []int64{root, mid, leaf}
	if len(got.Path) != len(want) {
		t.Fatalf("path = %v, want %v", got.Path, want)
	}
	for i, k := range want {
		if got.Path[i] != k {
			t.Errorf("path[%d] = %d, want %d", i, got.Path[i], k)
		}
	}
}

func TestBFSStopAtKey(t *testing.T) {
	s := NewStore()
	const a, b, c = 0, 1, 2
	for _, k := range []int64{a, b, c} {
		s.AddNode(&NodeRecord{Key: k})
	}
	s.AddEdge(Edge{From: a, To: b, Weight: 1})
	s.AddEdge(Edge{From: b, To: c, Weight: 1})

	stop := int64(b)
	pt := s.Prepare(TraversalPolicy{Direction: Outgoing, StopAtKey: &stop})
	nodes, err := pt.Run(a)
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 2 {
		t.Fatalf("expected traversal to stop expanding at b (a, b only), got %+v", nodes)
	}
}

func TestBFSTargetTypeFilter(t *testing.T) {
	s := NewStore()
	const a, b = 0, 1
	s.AddNode(&NodeRecord{Key: a, TypeID: 1})
	s.AddNode(&NodeRecord{Key: b, TypeID: 2})
	s.AddEdge(Edge{From: a, To: b, Weight: 1})

	want := int32(1)
	pt := s.Prepare(TraversalPolicy{Direction: Outgoing, TargetTypeFilter: &want})
	nodes, err := pt.Run(a)
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 1 || nodes[0].Key != a {
		t.Fatalf("expected only type-1 node %d, got %+v", a, nodes)
	}
}

func TestPageRankConvergesOnStronglyConnectedGraph(t *testing.T) {
	s := NewStore()
	keys := []int64{0, 1, 2, 3}
	for _, k := range keys {
		s.AddNode(&NodeRecord{Key: k})
	}
	for i, from := range keys {
		to := keys[(i+1)%len(keys)]
		s.AddEdge(Edge{From: from, To: to, Weight: 1})
	}
	ranked := PageRank(s, 0.85, 50)
	if len(ranked) != 4 {
		t.Fatalf("expected 4 scored nodes, got %d", len(ranked))
	}
	sum := 0.0
	for _, r := range ranked {
		sum += r.Score
	}
	if math.Abs(sum-1.0) > 1e-4 {
		t.Errorf("scores should sum to ~1, got %v", sum)
	}
	// Symmetric cycle: every node should converge to equal score.
	for _, r := range ranked {
		if math.Abs(r.Score-0.25) > 1e-4 {
			t.Errorf("expected uniform score 0.25 on symmetric cycle, got %v for %d", r.Score, r.Key)
		}
	}
}

func TestPageRankDanglingNodeRedistribution(t *testing.T) {
	s := NewStore()
	const a, dangling = 0, 1
	s.AddNode(&NodeRecord{Key: a})
	s.AddNode(&NodeRecord{Key: dangling})
	s.AddEdge(Edge{From: a, To: dangling, Weight: 1})
	ranked := PageRank(s, 0.85, 50)
	sum := 0.0
	for _, r := range ranked {
		sum += r.Score
	}
	if math.Abs(sum-1.0) > 1e-4 {
		t.Errorf("dangling mass should redistribute, scores sum to %v, want ~1", sum)
	}
}

func TestTopoSortOrdersEdges(t *testing.T) {
	s := NewStore()
	const a, b, c = 0, 1, 2
	for _, k := range []int64{a, b, c} {
		s.AddNode(&NodeRecord{Key: k})
	}
	s.AddEdge(Edge{From: a, To: b})
	s.AddEdge(Edge{From: b, To: c})

	order, err := TopoSort(s, []int64{a, b, c})
	if err != nil {
		t.Fatal(err)
	}
	index := make(map[int64]int, len(order))
	for i, k := range order {
		index[k] = i
	}
	if index[a] >= index[b] || index[b] >= index[c] {
		t.Errorf("order %v violates edge a->b->c", order)
	}
}

func TestTopoSortDetectsCycle(t *testing.T) {
	s := NewStore()
	const a, b, c = 0, 1, 2
	for _, k := range []int64{a, b, c} {
		s.AddNode(&NodeRecord{Key: k})
	}
	s.AddEdge(Edge{From: a, To: b})
	s.AddEdge(Edge{From: b, To: c})
	s.AddEdge(Edge{From: c, To: a})

	_, err := TopoSort(s, []int64{a, b, c})
	if !errors.Is(err, sharcerr.ErrCycle) {
		t.Fatalf("expected ErrCycle, got %v", err)
	}
}
