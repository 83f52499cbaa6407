// Package predicate implements the predicate tree of spec.md §4.6: a
// compiled, post-order node array evaluated either by a generic
// interpreted tier or by a type-specialized baked tier, both sharing the
// raw-byte comparators in internal/record so they stay provably
// equivalent.
//
// What: Compile resolves column references (case-insensitive name or
// explicit physical ordinal) against a catalog.Table into physical
// ordinals, rejects unknown columns and trees deeper than 32, and emits
// a Tree whose Root is the last node. Eval walks it against raw record
// bytes without materializing values it doesn't need. Bake produces a
// closure-based evaluator with identical semantics, specialized per node
// at build time instead of dispatching on a tag at every call. How:
// modeled on the teacher's tagged Expr/Binary AST (internal/engine
// parser.go) and its Binary-walking evaluator, generalized from boxed
// `any` comparisons to the raw-byte comparators internal/record exposes.
// Why: keeping node dispatch a flat array (not a parser-built tree of
// pointers) makes short-circuit AND/OR/NOT and depth-limit enforcement a
// simple array walk, and keeps both evaluation tiers trivially testable
// against the same fixtures.
package predicate

import (
	"strings"

	"github.com/revred/sharc/internal/catalog"
	"github.com/revred/sharc/internal/record"
	"github.com/revred/sharc/internal/serialtype"
	"github.com/revred/sharc/internal/sharcerr"
)

// Op tags every predicate node. Leaf ops compare one column against a
// compiled value; combinator ops (And/Or/Not) carry child indices
// instead.
type Op uint8

const (
	OpEq Op = iota
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
	OpBetween
	OpStartsWith
	OpEndsWith
	OpContains
	OpLike
	OpNotLike
	OpIn
	OpNotIn
	OpIsNull
	OpIsNotNull
	OpAnd
	OpOr
	OpNot
)

// MaxDepth is the deepest a predicate tree may nest (spec.md §4.6).
const MaxDepth = 32

// ColumnRef names a column either by case-insensitive name or, when Name
// is empty, by explicit physical ordinal.
type ColumnRef struct {
	Name    string
	Ordinal int
}

// Value is a compiled leaf comparison value, tagged by the storage class
// it should be compared as.
type Value struct {
	Class serialtype.Class
	Int   int64
	Float float64
	Text  string
}

// IntValue, FloatValue, and TextValue build compiled Values of the
// matching class.
func IntValue(v int64) Value     { return Value{Class: serialtype.ClassIntegral, Int: v} }
func FloatValue(v float64) Value { return Value{Class: serialtype.ClassReal, Float: v} }
func TextValue(v string) Value   { return Value{Class: serialtype.ClassText, Text: v} }

// Expr is the uncompiled predicate AST a caller builds before Compile
// resolves it against a schema. It intentionally has no parser behind
// it: callers (the index selector, tests, or any future SQL layer)
// construct Expr values directly.
type Expr interface{ isExpr() }

// Leaf is a single column-op-value(s) predicate.
type Leaf struct {
	Column ColumnRef
	Op     Op
	Value  Value
	Upper  Value   // only used by OpBetween (closed upper bound)
	Set    []Value // only used by OpIn / OpNotIn
	Null   bool    // only used by OpIsNull / OpIsNotNull (value ignored)
}

func (Leaf) isExpr() {}

// Combinator is a logical And/Or/Not over child expressions. Not takes
// exactly one child; And/Or take any number (folded pairwise at compile
// time).
type Combinator struct {
	Op       Op
	Children []Expr
}

func (Combinator) isExpr() {}

// Node is one entry of a compiled, post-order Tree.
type Node struct {
	Op            Op
	ColumnOrdinal int
	Value         Value
	Upper         Value
	Set           []Value
	Left, Right   int // child indices into Tree.Nodes; -1 if unused
}

// Tree is a compiled predicate: a flat post-order node array whose root
// is always the last element.
type Tree struct {
	Nodes []Node
}

// Root returns the index of the tree's root node.
func (t *Tree) Root() int { return len(t.Nodes) - 1 }

// Compile resolves every column reference in expr against table's
// logical columns, rejects unknown columns, rejects a tree deeper than
// MaxDepth, and emits a compiled Tree.
func Compile(table *catalog.Table, expr Expr) (*Tree, error) {
	c := &compiler{table: table}
	if _, err := c.compile(expr, 1); err != nil {
		return nil, err
	}
	return &Tree{Nodes: c.nodes}, nil
}

type compiler struct {
	table *catalog.Table
	nodes []Node
}

func (c *compiler) compile(expr Expr, depth int) (int, error) {
	if depth > MaxDepth {
		return 0, sharcerr.InvalidArgument("predicate tree exceeds max depth")
	}
	switch e := expr.(type) {
	case Leaf:
		ord, err := c.resolve(e.Column)
		if err != nil {
			return 0, err
		}
		c.nodes = append(c.nodes, Node{
			Op:            e.Op,
			ColumnOrdinal: ord,
			Value:         e.Value,
			Upper:         e.Upper,
			Set:           e.Set,
			Left:          -1,
			Right:         -1,
		})
		return len(c.nodes) - 1, nil
	case Combinator:
		switch e.Op {
		case OpNot:
			if len(e.Children) != 1 {
				return 0, sharcerr.InvalidArgument("NOT takes exactly one child")
			}
			child, err := c.compile(e.Children[0], depth+1)
			if err != nil {
				return 0, err
			}
			c.nodes = append(c.nodes, Node{Op: OpNot, Left: child, Right: -1})
			return len(c.nodes) - 1, nil
		case OpAnd, OpOr:
			if len(e.Children) == 0 {
				return 0, sharcerr.InvalidArgument("And/Or require at least one child")
			}
			left, err := c.compile(e.Children[0], depth+1)
			if err != nil {
				return 0, err
			}
			for _, child := range e.Children[1:] {
				right, err := c.compile(child, depth+1)
				if err != nil {
					return 0, err
				}
				c.nodes = append(c.nodes, Node{Op: e.Op, Left: left, Right: right})
				left = len(c.nodes) - 1
			}
			return left, nil
		default:
			return 0, sharcerr.InvalidArgument("unknown combinator op")
		}
	default:
		return 0, sharcerr.InvalidArgument("unknown expression type")
	}
}

func (c *compiler) resolve(ref ColumnRef) (int, error) {
	if ref.Name == "" {
		if ref.Ordinal < 0 || ref.Ordinal >= len(c.table.Columns) {
			return 0, sharcerr.OutOfRange("column ordinal out of range")
		}
		return physicalOrdinalOf(c.table, ref.Ordinal), nil
	}
	col, ok := c.table.ColumnByName(ref.Name)
	if !ok {
		return 0, sharcerr.InvalidArgument("unknown column: " + ref.Name)
	}
	return physicalOrdinalOf(c.table, col.Ordinal), nil
}

// physicalOrdinalOf returns the primary physical ordinal backing a
// logical column (the first of its PhysicalOrdinals; merged GUID columns
// are not addressable as single-ordinal predicate leaves here).
func physicalOrdinalOf(table *catalog.Table, logicalOrdinal int) int {
	return table.Columns[logicalOrdinal].PhysicalOrdinals[0]
}

// decoded holds the per-record state every evaluation tier needs.
type decoded struct {
	payload       []byte
	serialTypes   []int64
	offsets       []int
	rowID         int64
	rowidAliasOrd int
}

// Eval evaluates tree against one decoded record's raw bytes: the
// interpreted tier, dispatching on each node's Op tag.
func Eval(tree *Tree, payload []byte, serialTypes []int64, offsets []int, rowID int64, rowidAliasOrd int) (bool, error) {
	d := decoded{payload, serialTypes, offsets, rowID, rowidAliasOrd}
	return evalNode(tree, tree.Root(), d)
}

func evalNode(tree *Tree, idx int, d decoded) (bool, error) {
	n := &tree.Nodes[idx]
	switch n.Op {
	case OpAnd:
		left, err := evalNode(tree, n.Left, d)
		if err != nil || !left {
			return false, err
		}
		return evalNode(tree, n.Right, d)
	case OpOr:
		left, err := evalNode(tree, n.Left, d)
		if err != nil || left {
			return left, err
		}
		return evalNode(tree, n.Right, d)
	case OpNot:
		v, err := evalNode(tree, n.Left, d)
		if err != nil {
			return false, err
		}
		return !v, nil
	default:
		return evalLeaf(n, d)
	}
}

func evalLeaf(n *Node, d decoded) (bool, error) {
	ord := n.ColumnOrdinal
	isNull := record.IsNull(d.serialTypes, ord) && ord != d.rowidAliasOrd
	switch n.Op {
	case OpIsNull:
		return isNull, nil
	case OpIsNotNull:
		return !isNull, nil
	}
	if isNull {
		return false, nil
	}

	class := serialtype.StorageClass(d.serialTypes[ord])
	switch n.Op {
	case OpEq, OpNeq, OpLt, OpLte, OpGt, OpGte, OpBetween:
		return evalNumeric(n, d, ord, class)
	case OpStartsWith, OpEndsWith, OpContains, OpIn, OpNotIn, OpLike, OpNotLike:
		return evalTextual(n, d, ord, class)
	default:
		return false, sharcerr.UnsupportedFeature("predicate op")
	}
}

func evalNumeric(n *Node, d decoded, ord int, class serialtype.Class) (bool, error) {
	useFloat := class == serialtype.ClassReal || n.Value.Class == serialtype.ClassReal
	if useFloat {
		v, err := record.DecodeDoubleDirect(d.payload, d.serialTypes, d.offsets, ord)
		if err != nil {
			return false, err
		}
		switch n.Op {
		case OpEq:
			return record.CompareDouble(v, asFloat(n.Value)) == 0, nil
		case OpNeq:
			return record.CompareDouble(v, asFloat(n.Value)) != 0, nil
		case OpLt:
			return record.CompareDouble(v, asFloat(n.Value)) < 0, nil
		case OpLte:
			return record.CompareDouble(v, asFloat(n.Value)) <= 0, nil
		case OpGt:
			return record.CompareDouble(v, asFloat(n.Value)) > 0, nil
		case OpGte:
			return record.CompareDouble(v, asFloat(n.Value)) >= 0, nil
		case OpBetween:
			return record.CompareDouble(v, asFloat(n.Value)) >= 0 && record.CompareDouble(v, asFloat(n.Upper)) <= 0, nil
		}
	}
	v, err := record.DecodeInt64Direct(d.payload, d.serialTypes, d.offsets, ord, d.rowID, d.rowidAliasOrd)
	if err != nil {
		return false, err
	}
	switch n.Op {
	case OpEq:
		return record.CompareInt64(v, n.Value.Int) == 0, nil
	case OpNeq:
		return record.CompareInt64(v, n.Value.Int) != 0, nil
	case OpLt:
		return record.CompareInt64(v, n.Value.Int) < 0, nil
	case OpLte:
		return record.CompareInt64(v, n.Value.Int) <= 0, nil
	case OpGt:
		return record.CompareInt64(v, n.Value.Int) > 0, nil
	case OpGte:
		return record.CompareInt64(v, n.Value.Int) >= 0, nil
	case OpBetween:
		return record.CompareInt64(v, n.Value.Int) >= 0 && record.CompareInt64(v, n.Upper.Int) <= 0, nil
	}
	return false, sharcerr.UnsupportedFeature("numeric predicate op")
}

func asFloat(v Value) float64 {
	if v.Class == serialtype.ClassReal {
		return v.Float
	}
	return float64(v.Int)
}

func evalTextual(n *Node, d decoded, ord int, class serialtype.Class) (bool, error) {
	if class != serialtype.ClassText {
		return false, nil
	}
	s, err := record.DecodeStringDirect(d.payload, d.serialTypes, d.offsets, ord)
	if err != nil {
		return false, err
	}
	switch n.Op {
	case OpStartsWith:
		return record.UTF8StartsWith(s, n.Value.Text), nil
	case OpEndsWith:
		return record.UTF8EndsWith(s, n.Value.Text), nil
	case OpContains:
		return record.UTF8Contains(s, n.Value.Text), nil
	case OpIn:
		for _, v := range n.Set {
			if record.UTF8Compare(s, v.Text) == 0 {
				return true, nil
			}
		}
		return false, nil
	case OpNotIn:
		for _, v := range n.Set {
			if record.UTF8Compare(s, v.Text) == 0 {
				return false, nil
			}
		}
		return true, nil
	case OpLike:
		return likeMatch(s, n.Value.Text), nil
	case OpNotLike:
		return !likeMatch(s, n.Value.Text), nil
	}
	return false, sharcerr.UnsupportedFeature("textual predicate op")
}

// DecomposeLike recognizes the three fast LIKE shapes spec.md §4.6 names
// (`foo%`, `%foo`, `%foo%`) and returns the equivalent Op plus the
// literal with its wildcards stripped; ok is false for any other pattern
// (the caller falls back to a generic Like leaf).
func DecomposeLike(pattern string) (op Op, literal string, ok bool) {
	if pattern == "" {
		return 0, "", false
	}
	hasPrefix := strings.HasPrefix(pattern, "%")
	hasSuffix := strings.HasSuffix(pattern, "%")
	inner := pattern
	if hasPrefix {
		inner = inner[1:]
	}
	if hasSuffix && len(inner) > 0 {
		inner = inner[:len(inner)-1]
	}
	if strings.ContainsAny(inner, "%_") {
		return 0, "", false
	}
	switch {
	case hasPrefix && hasSuffix:
		return OpContains, inner, true
	case hasSuffix:
		return OpStartsWith, inner, true
	case hasPrefix:
		return OpEndsWith, inner, true
	default:
		return 0, "", false
	}
}

// likeMatch is the generic SQL LIKE slow path: '%' matches any run of
// characters, '_' matches exactly one.
func likeMatch(s, pattern string) bool {
	sr := []rune(s)
	pr := []rune(pattern)
	// dp[i][j]: sr[:i] matches pr[:j]
	dp := make([][]bool, len(sr)+1)
	for i := range dp {
		dp[i] = make([]bool, len(pr)+1)
	}
	dp[0][0] = true
	for j := 1; j <= len(pr); j++ {
		if pr[j-1] == '%' {
			dp[0][j] = dp[0][j-1]
		}
	}
	for i := 1; i <= len(sr); i++ {
		for j := 1; j <= len(pr); j++ {
			switch pr[j-1] {
			case '%':
				dp[i][j] = dp[i-1][j] || dp[i][j-1]
			case '_':
				dp[i][j] = dp[i-1][j-1]
			default:
				dp[i][j] = dp[i-1][j-1] && sr[i-1] == pr[j-1]
			}
		}
	}
	return dp[len(sr)][len(pr)]
}
