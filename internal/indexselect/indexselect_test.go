package indexselect

import (
	"testing"

	"github.com/revred/sharc/internal/catalog"
	"github.com/revred/sharc/internal/predicate"
)

func mustTable(t *testing.T, sql string) *catalog.Table {
	t.Helper()
	tbl, err := catalog.ParseCreateTable(sql, 1)
	if err != nil {
		t.Fatal(err)
	}
	return tbl
}

func mustIndex(t *testing.T, sql string) *catalog.Index {
	t.Helper()
	idx, err := catalog.ParseCreateIndex(sql, 2)
	if err != nil {
		t.Fatal(err)
	}
	return idx
}

func ordinalOf(t *testing.T, tbl *catalog.Table, name string) int {
	t.Helper()
	col, ok := tbl.ColumnByName(name)
	if !ok {
		t.Fatalf("no such column %q", name)
	}
	return col.PhysicalOrdinals[0]
}

func TestSelectNoIndexSargable(t *testing.T) {
	tbl := mustTable(t, `CREATE TABLE T (id INTEGER PRIMARY KEY, name TEXT, age INTEGER)`)
	idx := mustIndex(t, `CREATE INDEX idx_name ON T (name)`)
	conditions := []SargableCondition{
		{PhysicalOrdinal: ordinalOf(t, tbl, "age"), Op: predicate.OpEq, Value: predicate.IntValue(5)},
	}
	plan := Select(tbl, []*catalog.Index{idx}, conditions)
	if plan.Kind != PlanNone {
		t.Fatalf("expected PlanNone, got %v", plan.Kind)
	}
}

func TestSelectSingleSeekUniqueEqBeatsNonUnique(t *testing.T) {
	tbl := mustTable(t, `CREATE TABLE T (id INTEGER PRIMARY KEY, email TEXT, age INTEGER)`)
	uniqueIdx := mustIndex(t, `CREATE UNIQUE INDEX idx_email ON T (email)`)
	ageIdx := mustIndex(t, `CREATE INDEX idx_age ON T (age)`)

	conditions := []SargableCondition{
		{PhysicalOrdinal: ordinalOf(t, tbl, "email"), Op: predicate.OpEq, Value: predicate.TextValue("a@b.com")},
		{PhysicalOrdinal: ordinalOf(t, tbl, "age"), Op: predicate.OpEq, Value: predicate.IntValue(30)},
	}
	plan := Select(tbl, []*catalog.Index{ageIdx, uniqueIdx}, conditions)
	if plan.Kind != PlanSingleSeek {
		t.Fatalf("expected PlanSingleSeek, got %v", plan.Kind)
	}
	if plan.Seek.Index != uniqueIdx {
		t.Errorf("expected unique index to win (400 > 300), got %s", plan.Seek.Index.Name)
	}
}

func TestSelectPrefixExtensionScoresHigher(t *testing.T) {
	tbl := mustTable(t, `CREATE TABLE T (id INTEGER PRIMARY KEY, a INTEGER, b INTEGER)`)
	composite := mustIndex(t, `CREATE INDEX idx_ab ON T (a, b)`)
	single := mustIndex(t, `CREATE INDEX idx_a ON T (a)`)

	conditions := []SargableCondition{
		{PhysicalOrdinal: ordinalOf(t, tbl, "a"), Op: predicate.OpEq, Value: predicate.IntValue(1)},
		{PhysicalOrdinal: ordinalOf(t, tbl, "b"), Op: predicate.OpEq, Value: predicate.IntValue(2)},
	}
	plan := Select(tbl, []*catalog.Index{single, composite}, conditions)
	if plan.Kind != PlanSingleSeek || plan.Seek.Index != composite {
		t.Fatalf("expected composite index to win via +35 prefix bonus, got %+v", plan)
	}
	if plan.Seek.Score != 300+35 {
		t.Errorf("score = %d, want %d", plan.Seek.Score, 335)
	}
}

func TestSelectResidualConstraintScored(t *testing.T) {
	tbl := mustTable(t, `CREATE TABLE T (id INTEGER PRIMARY KEY, a INTEGER, b INTEGER)`)
	composite := mustIndex(t, `CREATE INDEX idx_ab ON T (a, b)`)

	conditions := []SargableCondition{
		{PhysicalOrdinal: ordinalOf(t, tbl, "a"), Op: predicate.OpEq, Value: predicate.IntValue(1)},
		{PhysicalOrdinal: ordinalOf(t, tbl, "b"), Op: predicate.OpGt, Value: predicate.IntValue(10)},
	}
	plan := Select(tbl, []*catalog.Index{composite}, conditions)
	if plan.Kind != PlanSingleSeek {
		t.Fatalf("expected PlanSingleSeek, got %v", plan.Kind)
	}
	if len(plan.Seek.Residual) != 1 {
		t.Fatalf("expected 1 residual constraint, got %d", len(plan.Seek.Residual))
	}
	want := 300 + 8 + 1*15
	if plan.Seek.Score != want {
		t.Errorf("score = %d, want %d", plan.Seek.Score, want)
	}
}

func TestSelectIntersectionForNonUniqueSingleColumnSeeks(t *testing.T) {
	tbl := mustTable(t, `CREATE TABLE T (id INTEGER PRIMARY KEY, a INTEGER, b INTEGER)`)
	idxA := mustIndex(t, `CREATE INDEX idx_a ON T (a)`)
	idxB := mustIndex(t, `CREATE INDEX idx_b ON T (b)`)

	conditions := []SargableCondition{
		{PhysicalOrdinal: ordinalOf(t, tbl, "a"), Op: predicate.OpEq, Value: predicate.IntValue(1)},
		{PhysicalOrdinal: ordinalOf(t, tbl, "b"), Op: predicate.OpEq, Value: predicate.IntValue(2)},
	}
	plan := Select(tbl, []*catalog.Index{idxA, idxB}, conditions)
	if plan.Kind != PlanIntersection {
		t.Fatalf("expected PlanIntersection (300+300 > 300+40), got %v", plan.Kind)
	}
	if plan.HashSide == nil || plan.StreamSide == nil {
		t.Fatal("expected both sides populated")
	}
}

func TestSelectNoIntersectionWithoutASecondSargableIndex(t *testing.T) {
	tbl := mustTable(t, `CREATE TABLE T (id INTEGER PRIMARY KEY, a INTEGER, b INTEGER)`)
	idxA := mustIndex(t, `CREATE INDEX idx_a ON T (a)`)

	conditions := []SargableCondition{
		{PhysicalOrdinal: ordinalOf(t, tbl, "a"), Op: predicate.OpEq, Value: predicate.IntValue(1)},
		{PhysicalOrdinal: ordinalOf(t, tbl, "b"), Op: predicate.OpGt, Value: predicate.IntValue(5)},
	}
	plan := Select(tbl, []*catalog.Index{idxA}, conditions)
	if plan.Kind != PlanSingleSeek {
		t.Fatalf("expected PlanSingleSeek (no second sargable index available), got %v", plan.Kind)
	}
}

func TestSelectNoIntersectionWhenSecondIndexSharesFirstColumn(t *testing.T) {
	tbl := mustTable(t, `CREATE TABLE T (id INTEGER PRIMARY KEY, a INTEGER, b INTEGER)`)
	idxA1 := mustIndex(t, `CREATE INDEX idx_a1 ON T (a)`)
	idxA2 := mustIndex(t, `CREATE INDEX idx_a2 ON T (a, b)`)

	conditions := []SargableCondition{
		{PhysicalOrdinal: ordinalOf(t, tbl, "a"), Op: predicate.OpEq, Value: predicate.IntValue(1)},
		{PhysicalOrdinal: ordinalOf(t, tbl, "b"), Op: predicate.OpEq, Value: predicate.IntValue(2)},
	}
	plan := Select(tbl, []*catalog.Index{idxA1, idxA2}, conditions)
	if plan.Kind != PlanSingleSeek {
		t.Fatalf("expected PlanSingleSeek (both candidates share first column 'a'), got %v", plan.Kind)
	}
	if plan.Seek.Index != idxA2 {
		t.Errorf("expected the prefix-extending index idx_a2 to win, got %s", plan.Seek.Index.Name)
	}
}

func TestExtractSargableSkipsOrAndNot(t *testing.T) {
	tbl := mustTable(t, `CREATE TABLE T (id INTEGER PRIMARY KEY, a INTEGER, b INTEGER)`)
	expr := predicate.Combinator{
		Op: predicate.OpAnd,
		Children: []predicate.Expr{
			predicate.Leaf{Column: predicate.ColumnRef{Name: "a"}, Op: predicate.OpEq, Value: predicate.IntValue(1)},
			predicate.Combinator{
				Op: predicate.OpOr,
				Children: []predicate.Expr{
					predicate.Leaf{Column: predicate.ColumnRef{Name: "b"}, Op: predicate.OpEq, Value: predicate.IntValue(2)},
					predicate.Leaf{Column: predicate.ColumnRef{Name: "b"}, Op: predicate.OpEq, Value: predicate.IntValue(3)},
				},
			},
		},
	}
	tree, err := predicate.Compile(tbl, expr)
	if err != nil {
		t.Fatal(err)
	}
	sargable := ExtractSargable(tree)
	if len(sargable) != 1 {
		t.Fatalf("expected only the AND-reachable leaf, got %d: %+v", len(sargable), sargable)
	}
	if sargable[0].PhysicalOrdinal != ordinalOf(t, tbl, "a") {
		t.Errorf("unexpected sargable column ordinal %d", sargable[0].PhysicalOrdinal)
	}
}
