// Package indexselect implements spec.md §4.7/§4.8: scoring sargable
// conditions against a table's indexes and producing either no plan, a
// single index-seek plan, or a rowid-intersection plan of two
// single-column seeks.
//
// What: ExtractSargable flattens the top-level AND chain of a compiled
// predicate.Tree into column-op-value conditions (OR/NOT subtrees are
// never sargable and are left for residual evaluation elsewhere). Select
// scores every candidate index against those conditions using spec.md
// §4.7's point table and returns the winning Plan. How: modeled on the
// teacher's ColumnIndex value-to-row-indices map
// (internal/engine/optimizations.go), generalized from an in-memory hash
// index lookup to a cost-scored chooser over on-disk B-tree indexes.
// Why: keeping the scorer a pure function over ([]*catalog.Index,
// []SargableCondition) makes it trivially unit-testable without a real
// page source.
package indexselect

import (
	"github.com/revred/sharc/internal/catalog"
	"github.com/revred/sharc/internal/predicate"
)

// SargableCondition is one column-op-value leaf extracted from a
// compiled predicate tree, addressed by physical record ordinal (the
// same ordinal space predicate.Tree nodes already resolved to).
type SargableCondition struct {
	PhysicalOrdinal int
	Op              predicate.Op
	Value           predicate.Value
	Upper           predicate.Value // only meaningful when Op == predicate.OpBetween
}

// ExtractSargable flattens the top-level conjunction of tree into
// sargable conditions. Only leaves reachable through a chain of And
// nodes from the root are sargable; anything under Or/Not is excluded.
func ExtractSargable(tree *predicate.Tree) []SargableCondition {
	var out []SargableCondition
	collectAnd(tree, tree.Root(), &out)
	return out
}

func collectAnd(tree *predicate.Tree, idx int, out *[]SargableCondition) {
	n := &tree.Nodes[idx]
	if n.Op == predicate.OpAnd {
		collectAnd(tree, n.Left, out)
		collectAnd(tree, n.Right, out)
		return
	}
	if n.Op == predicate.OpOr || n.Op == predicate.OpNot {
		return
	}
	switch n.Op {
	case predicate.OpEq, predicate.OpBetween, predicate.OpLt, predicate.OpLte, predicate.OpGt, predicate.OpGte:
		*out = append(*out, SargableCondition{
			PhysicalOrdinal: n.ColumnOrdinal,
			Op:              n.Op,
			Value:           n.Value,
			Upper:           n.Upper,
		})
	}
}

// PlanKind tags the shape of a selected plan.
type PlanKind int

const (
	PlanNone PlanKind = iota
	PlanSingleSeek
	PlanIntersection
)

// IndexSeek describes driving one index via its leading key column, plus
// the residual constraints (on later index columns) to check against
// the decoded index record before materializing the table row.
type IndexSeek struct {
	Index    *catalog.Index
	Op       predicate.Op
	Value    predicate.Value
	Upper    predicate.Value
	Residual []SargableCondition
	Score    int

	// coveredPrefix is the number of leading index columns consumed by
	// the Eq-prefix chain (always >= 1); used to tell whether a plan
	// covers only its first column (a precondition for intersection).
	coveredPrefix int
}

// Plan is the index selector's output.
type Plan struct {
	Kind PlanKind

	// Populated when Kind == PlanSingleSeek.
	Seek *IndexSeek

	// Populated when Kind == PlanIntersection. HashSide is the more
	// selective seek (the side that builds the rowid hash set);
	// StreamSide streams its own matches against that set.
	HashSide   *IndexSeek
	StreamSide *IndexSeek
}

// firstColumnScore implements spec.md §4.7's base scoring row for the
// leading index column, or ok=false if op isn't sargable at all.
func firstColumnScore(unique bool, op predicate.Op) (score int, ok bool) {
	switch op {
	case predicate.OpEq:
		if unique {
			return 400, true
		}
		return 300, true
	case predicate.OpBetween:
		return 200, true
	case predicate.OpLt, predicate.OpLte, predicate.OpGt, predicate.OpGte:
		return 100, true
	default:
		return 0, false
	}
}

// opClassScore weights a residual constraint's operator class for the
// "+8 plus op-class score ×15" scoring row: equality scores 3, Between 2,
// and one-sided ranges and everything else (text ops, set membership) 1.
func opClassScore(op predicate.Op) int {
	switch op {
	case predicate.OpEq:
		return 3
	case predicate.OpBetween:
		return 2
	case predicate.OpLt, predicate.OpLte, predicate.OpGt, predicate.OpGte:
		return 1
	default:
		return 1
	}
}

// findCondition returns the first condition in conds referencing
// physical ordinal ord, or ok=false.
func findCondition(conds []SargableCondition, ord int) (SargableCondition, bool) {
	for _, c := range conds {
		if c.PhysicalOrdinal == ord {
			return c, true
		}
	}
	return SargableCondition{}, false
}

// physicalOrdinalOfIndexColumn resolves one index key column's name to
// its physical record ordinal via the table's catalog entry.
func physicalOrdinalOfIndexColumn(table *catalog.Table, columnName string) (int, bool) {
	col, ok := table.ColumnByName(columnName)
	if !ok || len(col.PhysicalOrdinals) == 0 {
		return 0, false
	}
	return col.PhysicalOrdinals[0], true
}

// scoreIndex scores idx as a standalone single-seek candidate against
// conditions, or ok=false if idx's leading column isn't sargable here.
func scoreIndex(table *catalog.Table, idx *catalog.Index, conditions []SargableCondition) (*IndexSeek, bool) {
	if len(idx.Columns) == 0 {
		return nil, false
	}
	firstOrd, ok := physicalOrdinalOfIndexColumn(table, idx.Columns[0].Name)
	if !ok {
		return nil, false
	}
	firstCond, ok := findCondition(conditions, firstOrd)
	if !ok {
		return nil, false
	}
	score, ok := firstColumnScore(idx.Unique, firstCond.Op)
	if !ok {
		return nil, false
	}

	seek := &IndexSeek{Index: idx, Op: firstCond.Op, Value: firstCond.Value, Upper: firstCond.Upper}

	covered := 1
	for covered < len(idx.Columns) {
		ord, ok := physicalOrdinalOfIndexColumn(table, idx.Columns[covered].Name)
		if !ok {
			break
		}
		cond, ok := findCondition(conditions, ord)
		if !ok || cond.Op != predicate.OpEq {
			break
		}
		score += 35
		covered++
	}

	// Residual: any later index column (beyond the Eq prefix) carrying a
	// condition, evaluated against the index record itself rather than
	// driving the seek.
	for i := covered; i < len(idx.Columns); i++ {
		ord, ok := physicalOrdinalOfIndexColumn(table, idx.Columns[i].Name)
		if !ok {
			continue
		}
		cond, ok := findCondition(conditions, ord)
		if !ok {
			continue
		}
		score += 8 + opClassScore(cond.Op)*15
		seek.Residual = append(seek.Residual, cond)
	}

	seek.Score = score
	seek.coveredPrefix = covered
	return seek, true
}

// Select scores every index in indexes against conditions and returns
// the winning Plan: PlanNone if no index is sargable, PlanSingleSeek for
// the best scorer, or PlanIntersection when two non-overlapping
// single-column seeks together beat the best single plan by more than 40
// points (spec.md §4.7).
func Select(table *catalog.Table, indexes []*catalog.Index, conditions []SargableCondition) *Plan {
	var best *IndexSeek
	candidates := make([]*IndexSeek, 0, len(indexes))
	for _, idx := range indexes {
		seek, ok := scoreIndex(table, idx, conditions)
		if !ok {
			continue
		}
		candidates = append(candidates, seek)
		if best == nil || seek.Score > best.Score {
			best = seek
		}
	}
	if best == nil {
		return &Plan{Kind: PlanNone}
	}

	if !best.Index.Unique && best.coveredPrefix == 1 {
		var secondBest *IndexSeek
		for _, c := range candidates {
			if c.Index == best.Index || c.coveredPrefix != 1 {
				continue
			}
			if sameFirstColumn(table, c.Index, best.Index) {
				continue
			}
			if secondBest == nil || c.Score > secondBest.Score {
				secondBest = c
			}
		}
		if secondBest != nil && best.Score+secondBest.Score > best.Score+40 {
			hash, stream := best, secondBest
			if stream.Score > hash.Score {
				hash, stream = stream, hash
			}
			return &Plan{Kind: PlanIntersection, HashSide: hash, StreamSide: stream}
		}
	}
	return &Plan{Kind: PlanSingleSeek, Seek: best}
}

func sameFirstColumn(table *catalog.Table, a, b *catalog.Index) bool {
	if len(a.Columns) == 0 || len(b.Columns) == 0 {
		return false
	}
	oa, ok1 := physicalOrdinalOfIndexColumn(table, a.Columns[0].Name)
	ob, ok2 := physicalOrdinalOfIndexColumn(table, b.Columns[0].Name)
	return ok1 && ok2 && oa == ob
}
