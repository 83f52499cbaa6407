package graph

import "time"

// TraversalPolicy pre-binds the parameters of a BFS traversal (spec.md
// §4.9's policy table).
type TraversalPolicy struct {
	Direction        Direction
	Kind             *EdgeKind // nil = any relation kind
	MaxDepth         int       // 0 = unbounded
	MaxFanOut        int       // 0 = unbounded
	MinWeight        float32
	StopAtKey        *int64 // nil = no stop-at
	TargetTypeFilter *int32 // nil = no type filter
	MaxTokens        int64  // 0 = unbounded
	Timeout          time.Duration
	IncludePaths     bool
	IncludeData      bool
}

// TraversalNode is one node yielded by a prepared traversal.
type TraversalNode struct {
	Key   int64
	Depth int
	Node  *NodeRecord
	Path  []int64 // populated only when IncludePaths is set
}

// PreparedTraversal pre-binds a policy and a Store, and owns private BFS
// state for one traversal run — independent instances run concurrently
// over the same Store without sharing any mutable frontier state.
type PreparedTraversal struct {
	store  *Store
	policy TraversalPolicy
}

// Prepare returns a PreparedTraversal bound to policy. Every call to Run
// on the result starts a fresh, independently-owned BFS.
func (s *Store) Prepare(policy TraversalPolicy) *PreparedTraversal {
	return &PreparedTraversal{store: s, policy: policy}
}

type frontierEntry struct {
	key       int64
	depth     int
	parentIdx int // index into discovery order, -1 for the start node
}

// Run executes a fresh two-phase BFS from start: phase 1 walks edges only
// (depth/fan-out/weight/kind/stop-at/timeout bounds), phase 2 batches node
// lookups in discovery order, applying the type filter and token budget.
func (pt *PreparedTraversal) Run(start int64) ([]TraversalNode, error) {
	discovery, err := pt.walkEdges(start)
	if err != nil {
		return nil, err
	}
	return pt.fetchNodes(discovery), nil
}

func (pt *PreparedTraversal) walkEdges(start int64) ([]frontierEntry, error) {
	policy := pt.policy
	visited := map[int64]bool{start: true}
	discovery := []frontierEntry{{key: start, depth: 0, parentIdx: -1}}
	queue := []int{0} // indices into discovery

	deadline := time.Time{}
	if policy.Timeout > 0 {
		deadline = time.Now().Add(policy.Timeout)
	}
	iterations := 0

	for len(queue) > 0 {
		curIdx := queue[0]
		queue = queue[1:]
		cur := discovery[curIdx]

		iterations++
		if !deadline.IsZero() && iterations%64 == 0 && time.Now().After(deadline) {
			break
		}

		if policy.StopAtKey != nil && cur.key == *policy.StopAtKey && curIdx != 0 {
			continue
		}
		if policy.MaxDepth > 0 && cur.depth >= policy.MaxDepth {
			continue
		}

		edges := pt.store.edgesFor(cur.key, policy.Direction)
		followed := 0
		for _, e := range edges {
			if policy.Kind != nil && e.Kind != *policy.Kind {
				continue
			}
			if e.Weight < policy.MinWeight {
				continue
			}
			if policy.MaxFanOut > 0 && followed >= policy.MaxFanOut {
				break
			}
			neighbor := neighborOf(e, cur.key)
			if visited[neighbor] {
				continue
			}
			visited[neighbor] = true
			followed++
			discovery = append(discovery, frontierEntry{key: neighbor, depth: cur.depth + 1, parentIdx: curIdx})
			queue = append(queue, len(discovery)-1)
		}
	}
	return discovery, nil
}

func (pt *PreparedTraversal) fetchNodes(discovery []frontierEntry) []TraversalNode {
	policy := pt.policy
	var out []TraversalNode
	var tokenSum int64

	for i, entry := range discovery {
		rec, ok := pt.store.Node(entry.key)
		if !ok {
			continue
		}
		if policy.TargetTypeFilter != nil && rec.TypeID != *policy.TargetTypeFilter {
			continue
		}
		if policy.MaxTokens > 0 {
			if tokenSum+rec.TokenCount > policy.MaxTokens {
				break
			}
			tokenSum += rec.TokenCount
		}

		tn := TraversalNode{Key: entry.key, Depth: entry.depth}
		if policy.IncludeData {
			tn.Node = rec
		}
		if policy.IncludePaths {
			tn.Path = reconstructPath(discovery, i)
		}
		out = append(out, tn)
	}
	return out
}

// reconstructPath walks the parent-index chain in reverse to produce the
// root-to-node key sequence for discovery[idx].
func reconstructPath(discovery []frontierEntry, idx int) []int64 {
	var rev []int64
	for idx != -1 {
		rev = append(rev, discovery[idx].key)
		idx = discovery[idx].parentIdx
	}
	path := make([]int64, len(rev))
	for i, k := range rev {
		path[len(rev)-1-i] = k
	}
	return path
}
