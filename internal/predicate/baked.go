package predicate

import (
	"github.com/revred/sharc/internal/record"
	"github.com/revred/sharc/internal/serialtype"
	"github.com/revred/sharc/internal/sharcerr"
)

// evalFunc is one compiled node's evaluator, closed over everything
// Bake could resolve ahead of time (child evaluators, the compiled
// Value/Upper/Set) so the baked tier never re-dispatches on Op at call
// time the way the interpreted tier's switch does.
type evalFunc func(d decoded) (bool, error)

// Baked is a predicate tree specialized into a closure per node at
// build time (spec.md §4.6's "baked/specialized tree"). It must produce
// results identical to Eval on the same Tree and inputs; property tests
// assert this.
type Baked struct {
	root evalFunc
}

// Eval runs the baked evaluator against one decoded record.
func (b *Baked) Eval(payload []byte, serialTypes []int64, offsets []int, rowID int64, rowidAliasOrd int) (bool, error) {
	return b.root(decoded{payload, serialTypes, offsets, rowID, rowidAliasOrd})
}

// Bake compiles tree into a Baked evaluator.
func Bake(tree *Tree) (*Baked, error) {
	fn, err := bakeNode(tree, tree.Root())
	if err != nil {
		return nil, err
	}
	return &Baked{root: fn}, nil
}

func bakeNode(tree *Tree, idx int) (evalFunc, error) {
	n := &tree.Nodes[idx]
	switch n.Op {
	case OpAnd:
		left, err := bakeNode(tree, n.Left)
		if err != nil {
			return nil, err
		}
		right, err := bakeNode(tree, n.Right)
		if err != nil {
			return nil, err
		}
		return func(d decoded) (bool, error) {
			ok, err := left(d)
			if err != nil || !ok {
				return false, err
			}
			return right(d)
		}, nil
	case OpOr:
		left, err := bakeNode(tree, n.Left)
		if err != nil {
			return nil, err
		}
		right, err := bakeNode(tree, n.Right)
		if err != nil {
			return nil, err
		}
		return func(d decoded) (bool, error) {
			ok, err := left(d)
			if err != nil || ok {
				return ok, err
			}
			return right(d)
		}, nil
	case OpNot:
		child, err := bakeNode(tree, n.Left)
		if err != nil {
			return nil, err
		}
		return func(d decoded) (bool, error) {
			v, err := child(d)
			if err != nil {
				return false, err
			}
			return !v, nil
		}, nil
	default:
		return bakeLeaf(n)
	}
}

// bakeLeaf specializes a leaf node's evaluator by Op, binding its
// physical ordinal and compiled comparison value(s) into the closure so
// evaluation never re-examines n.Op.
func bakeLeaf(n *Node) (evalFunc, error) {
	ord := n.ColumnOrdinal
	value := n.Value
	upper := n.Upper
	set := n.Set

	switch n.Op {
	case OpIsNull:
		return func(d decoded) (bool, error) {
			return record.IsNull(d.serialTypes, ord) && ord != d.rowidAliasOrd, nil
		}, nil
	case OpIsNotNull:
		return func(d decoded) (bool, error) {
			return !(record.IsNull(d.serialTypes, ord) && ord != d.rowidAliasOrd), nil
		}, nil
	case OpEq, OpNeq, OpLt, OpLte, OpGt, OpGte:
		cmp := comparisonFor(n.Op)
		return func(d decoded) (bool, error) {
			if nullLeaf(d, ord) {
				return false, nil
			}
			return bakedNumericCompare(d, ord, value, cmp)
		}, nil
	case OpBetween:
		return func(d decoded) (bool, error) {
			if nullLeaf(d, ord) {
				return false, nil
			}
			return bakedBetween(d, ord, value, upper)
		}, nil
	case OpStartsWith:
		return func(d decoded) (bool, error) {
			return bakedText(d, ord, func(s string) bool { return record.UTF8StartsWith(s, value.Text) })
		}, nil
	case OpEndsWith:
		return func(d decoded) (bool, error) {
			return bakedText(d, ord, func(s string) bool { return record.UTF8EndsWith(s, value.Text) })
		}, nil
	case OpContains:
		return func(d decoded) (bool, error) {
			return bakedText(d, ord, func(s string) bool { return record.UTF8Contains(s, value.Text) })
		}, nil
	case OpIn:
		return func(d decoded) (bool, error) {
			return bakedText(d, ord, func(s string) bool { return inSet(s, set) })
		}, nil
	case OpNotIn:
		return func(d decoded) (bool, error) {
			if nullLeaf(d, ord) {
				return false, nil
			}
			ok, err := bakedText(d, ord, func(s string) bool { return !inSet(s, set) })
			return ok, err
		}, nil
	case OpLike:
		return func(d decoded) (bool, error) {
			return bakedText(d, ord, func(s string) bool { return likeMatch(s, value.Text) })
		}, nil
	case OpNotLike:
		return func(d decoded) (bool, error) {
			if nullLeaf(d, ord) {
				return false, nil
			}
			ok, err := bakedText(d, ord, func(s string) bool { return !likeMatch(s, value.Text) })
			return ok, err
		}, nil
	default:
		return nil, sharcerr.UnsupportedFeature("predicate op")
	}
}

func nullLeaf(d decoded, ord int) bool {
	return record.IsNull(d.serialTypes, ord) && ord != d.rowidAliasOrd
}

func inSet(s string, set []Value) bool {
	for _, v := range set {
		if record.UTF8Compare(s, v.Text) == 0 {
			return true
		}
	}
	return false
}

type cmpClass int

const (
	cmpEq cmpClass = iota
	cmpNeq
	cmpLt
	cmpLte
	cmpGt
	cmpGte
)

func comparisonFor(op Op) cmpClass {
	switch op {
	case OpEq:
		return cmpEq
	case OpNeq:
		return cmpNeq
	case OpLt:
		return cmpLt
	case OpLte:
		return cmpLte
	case OpGt:
		return cmpGt
	default:
		return cmpGte
	}
}

func applyCmp(c cmpClass, result int) bool {
	switch c {
	case cmpEq:
		return result == 0
	case cmpNeq:
		return result != 0
	case cmpLt:
		return result < 0
	case cmpLte:
		return result <= 0
	case cmpGt:
		return result > 0
	default:
		return result >= 0
	}
}

func bakedNumericCompare(d decoded, ord int, value Value, c cmpClass) (bool, error) {
	class := serialtype.StorageClass(d.serialTypes[ord])
	if class == serialtype.ClassReal || value.Class == serialtype.ClassReal {
		v, err := record.DecodeDoubleDirect(d.payload, d.serialTypes, d.offsets, ord)
		if err != nil {
			return false, err
		}
		return applyCmp(c, record.CompareDouble(v, asFloat(value))), nil
	}
	v, err := record.DecodeInt64Direct(d.payload, d.serialTypes, d.offsets, ord, d.rowID, d.rowidAliasOrd)
	if err != nil {
		return false, err
	}
	return applyCmp(c, record.CompareInt64(v, value.Int)), nil
}

func bakedBetween(d decoded, ord int, lower, upper Value) (bool, error) {
	class := serialtype.StorageClass(d.serialTypes[ord])
	if class == serialtype.ClassReal || lower.Class == serialtype.ClassReal {
		v, err := record.DecodeDoubleDirect(d.payload, d.serialTypes, d.offsets, ord)
		if err != nil {
			return false, err
		}
		return record.CompareDouble(v, asFloat(lower)) >= 0 && record.CompareDouble(v, asFloat(upper)) <= 0, nil
	}
	v, err := record.DecodeInt64Direct(d.payload, d.serialTypes, d.offsets, ord, d.rowID, d.rowidAliasOrd)
	if err != nil {
		return false, err
	}
	return record.CompareInt64(v, lower.Int) >= 0 && record.CompareInt64(v, upper.Int) <= 0, nil
}

func bakedText(d decoded, ord int, f func(string) bool) (bool, error) {
	if nullLeaf(d, ord) {
		return false, nil
	}
	class := serialtype.StorageClass(d.serialTypes[ord])
	if class != serialtype.ClassText {
		return false, nil
	}
	s, err := record.DecodeStringDirect(d.payload, d.serialTypes, d.offsets, ord)
	if err != nil {
		return false, err
	}
	return f(s), nil
}
