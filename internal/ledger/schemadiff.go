package ledger

import (
	"strings"

	"github.com/revred/sharc/internal/catalog"
)

// ColumnDiff reports one column whose presence or declared type differs
// between two versions of the same table.
type ColumnDiff struct {
	Name         string
	LeftOnly     bool
	RightOnly    bool
	TypeChanged  bool
	LeftDeclared string
	RightDeclared string
}

// TableSchemaDiff is the per-common-table column diff.
type TableSchemaDiff struct {
	TableName string
	Columns   []ColumnDiff
}

// SchemaDiffResult is the structured output of DiffSchema.
type SchemaDiffResult struct {
	LeftOnlyTables  []string
	RightOnlyTables []string
	CommonTables    []TableSchemaDiff
}

// DiffSchema computes a set diff of user tables between left and right,
// plus a per-common-table column set diff and declared-type comparison
// (spec.md §4.10). System tables (catalog.IsSystemTable) are excluded
// from both sides, matching the catalog's own user-facing table listing.
func DiffSchema(left, right *catalog.Catalog) SchemaDiffResult {
	var result SchemaDiffResult

	leftTables := left.UserTables()
	rightTables := right.UserTables()

	rightByName := make(map[string]*catalog.Table, len(rightTables))
	for _, t := range rightTables {
		rightByName[strings.ToLower(t.Name)] = t
	}
	leftByName := make(map[string]*catalog.Table, len(leftTables))
	for _, t := range leftTables {
		leftByName[strings.ToLower(t.Name)] = t
	}

	for _, lt := range leftTables {
		rt, ok := rightByName[strings.ToLower(lt.Name)]
		if !ok {
			result.LeftOnlyTables = append(result.LeftOnlyTables, lt.Name)
			continue
		}
		result.CommonTables = append(result.CommonTables, diffTableSchema(lt, rt))
	}
	for _, rt := range rightTables {
		if _, ok := leftByName[strings.ToLower(rt.Name)]; !ok {
			result.RightOnlyTables = append(result.RightOnlyTables, rt.Name)
		}
	}
	return result
}

func diffTableSchema(left, right *catalog.Table) TableSchemaDiff {
	diff := TableSchemaDiff{TableName: left.Name}

	rightCols := make(map[string]catalog.Column, len(right.Columns))
	for _, c := range right.Columns {
		rightCols[strings.ToLower(c.Name)] = c
	}
	leftCols := make(map[string]catalog.Column, len(left.Columns))
	for _, c := range left.Columns {
		leftCols[strings.ToLower(c.Name)] = c
	}

	for _, lc := range left.Columns {
		rc, ok := rightCols[strings.ToLower(lc.Name)]
		if !ok {
			diff.Columns = append(diff.Columns, ColumnDiff{Name: lc.Name, LeftOnly: true})
			continue
		}
		if !sameDeclaredType(lc.DeclaredType, rc.DeclaredType) {
			diff.Columns = append(diff.Columns, ColumnDiff{
				Name: lc.Name, TypeChanged: true,
				LeftDeclared: lc.DeclaredType, RightDeclared: rc.DeclaredType,
			})
		}
	}
	for _, rc := range right.Columns {
		if _, ok := leftCols[strings.ToLower(rc.Name)]; !ok {
			diff.Columns = append(diff.Columns, ColumnDiff{Name: rc.Name, RightOnly: true})
		}
	}
	return diff
}

func sameDeclaredType(a, b string) bool { return strings.ToLower(a) == strings.ToLower(b) }
