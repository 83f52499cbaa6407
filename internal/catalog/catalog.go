// Package catalog implements the schema catalog of spec.md §3/§4: table
// and index metadata, a minimal CREATE TABLE/INDEX recognizer (not a
// general SQL parser — that remains explicitly out of scope), and the
// `__hi`/`__lo` physical-column merge into logical GUID columns.
//
// What: Catalog holds Table and Index definitions keyed by
// case-insensitive name, exposes physical-to-logical column translation,
// and decodes both GUID representations (the single 16-byte serial-type
// 44 blob, and the split hi/lo 64-bit pair) into uuid.UUID. How: table
// shape follows the teacher's CatalogTable/CatalogColumn split
// (internal/storage/catalog.go), normalized-lowercase lookup keys the
// way the teacher's own engine normalizes identifiers before dispatch.
// Why: every higher layer (predicate compiler, index selector, ledger)
// needs to resolve a column name to a physical record ordinal without
// re-deriving catalog state itself.
package catalog

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/revred/sharc/internal/sharcerr"
)

// Column describes one logical column of a Table after `__hi`/`__lo`
// merging. Ordinal is the logical position in Columns; PhysicalOrdinals
// holds the one (normal column) or two (merged GUID pair) physical
// record ordinals backing it, in storage order.
type Column struct {
	Name              string
	DeclaredType      string
	Ordinal           int
	IsPrimaryKey      bool
	IsNotNull         bool
	IsGUID            bool
	PhysicalOrdinals  []int
}

// IndexColumn is one key column of an Index: name plus sort direction.
type IndexColumn struct {
	Name       string
	Descending bool
}

// Table is the catalog's record for one user or system table: its root
// B-tree page, its logical columns (post GUID-merge), and the
// physical-to-logical ordinal map spec.md §9 requires so that ledger and
// diff code — which must match on raw storage — can bypass the merge.
type Table struct {
	Name               string
	RootPage           uint32
	Columns            []Column
	RowidAliasOrdinal  int // physical ordinal of the INTEGER PRIMARY KEY alias, -1 if none
	physicalToLogical  []int
	columnByLowerName  map[string]int
}

// ColumnByName looks up a logical column by case-insensitive name.
func (t *Table) ColumnByName(name string) (Column, bool) {
	idx, ok := t.columnByLowerName[strings.ToLower(name)]
	if !ok {
		return Column{}, false
	}
	return t.Columns[idx], true
}

// LogicalOrdinal translates a physical record ordinal into the logical
// column index that exposes it, or -1 if no column claims it (should not
// happen for a well-formed table).
func (t *Table) LogicalOrdinal(physical int) int {
	if physical < 0 || physical >= len(t.physicalToLogical) {
		return -1
	}
	return t.physicalToLogical[physical]
}

// Index is the catalog's record for one B-tree index: its root page,
// owning table, uniqueness flag, and ordered key columns.
type Index struct {
	Name      string
	TableName string
	RootPage  uint32
	Unique    bool
	Columns   []IndexColumn
}

// Catalog holds every known Table and Index, keyed by case-insensitive
// name. Schema lookups normalize to ASCII lowercase at load time (spec.md
// §9) rather than sprinkling case folding through hot read paths.
type Catalog struct {
	tables  map[string]*Table
	indexes map[string]*Index
}

// New returns an empty Catalog.
func New() *Catalog {
	return &Catalog{
		tables:  make(map[string]*Table),
		indexes: make(map[string]*Index),
	}
}

// AddTable registers t, overwriting any existing table of the same name.
func (c *Catalog) AddTable(t *Table) {
	c.tables[strings.ToLower(t.Name)] = t
}

// AddIndex registers idx, overwriting any existing index of the same name.
func (c *Catalog) AddIndex(idx *Index) {
	c.indexes[strings.ToLower(idx.Name)] = idx
}

// Table looks up a table by case-insensitive name.
func (c *Catalog) Table(name string) (*Table, bool) {
	t, ok := c.tables[strings.ToLower(name)]
	return t, ok
}

// Index looks up an index by case-insensitive name.
func (c *Catalog) Index(name string) (*Index, bool) {
	idx, ok := c.indexes[strings.ToLower(name)]
	return idx, ok
}

// IndexesOn returns every index defined on the named table. The order of
// the returned indexes is not defined.
func (c *Catalog) IndexesOn(tableName string) []*Index {
	var out []*Index
	for _, idx := range c.indexes {
		if strings.EqualFold(idx.TableName, tableName) {
			out = append(out, idx)
		}
	}
	return out
}

// IsSystemTable reports whether name is a catalog-internal table filtered
// from "user tables" at the diff and discovery boundary (spec.md §3):
// names starting `_sharc_` or matching the `sqlite_*` family.
func IsSystemTable(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasPrefix(lower, "_sharc_") || strings.HasPrefix(lower, "sqlite_")
}

// UserTables returns every registered table that is not a system table.
func (c *Catalog) UserTables() []*Table {
	var out []*Table
	for _, t := range c.tables {
		if !IsSystemTable(t.Name) {
			out = append(out, t)
		}
	}
	return out
}

// rawColumn is one physical column as recognized straight off a CREATE
// TABLE column-definition list, before `__hi`/`__lo` merging.
type rawColumn struct {
	name         string
	declaredType string
	primaryKey   bool
	notNull      bool
}

var (
	createTableRe = regexp.MustCompile(`(?is)^\s*CREATE\s+TABLE\s+(?:IF\s+NOT\s+EXISTS\s+)?([A-Za-z_][A-Za-z0-9_]*)\s*\((.*)\)\s*;?\s*$`)
	createIndexRe = regexp.MustCompile(`(?is)^\s*CREATE\s+(UNIQUE\s+)?INDEX\s+(?:IF\s+NOT\s+EXISTS\s+)?([A-Za-z_][A-Za-z0-9_]*)\s+ON\s+([A-Za-z_][A-Za-z0-9_]*)\s*\((.*)\)\s*;?\s*$`)
	columnDefRe   = regexp.MustCompile(`(?i)^([A-Za-z_][A-Za-z0-9_]*)\s+([A-Za-z][A-Za-z0-9_]*(?:\s*\(\s*\d+\s*(?:,\s*\d+\s*)?\))?)?(.*)$`)
)

// ParseCreateTable recognizes a single, minimal `CREATE TABLE name (col
// type [PRIMARY KEY] [NOT NULL], ...)` statement. It is not a general SQL
// parser: expressions, constraints spanning multiple columns, CHECK, and
// FOREIGN KEY clauses are rejected as unsupported. `__hi`/`__lo` column
// pairs sharing a base name are merged into one logical GUID column.
func ParseCreateTable(sql string, rootPage uint32) (*Table, error) {
	m := createTableRe.FindStringSubmatch(sql)
	if m == nil {
		return nil, sharcerr.UnsupportedFeature("CREATE TABLE statement not recognized")
	}
	name := m[1]
	cols, err := parseColumnDefs(m[2])
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, sharcerr.InvalidArgument("CREATE TABLE has no columns")
	}
	return buildTable(name, rootPage, cols)
}

// splitTopLevel splits s on commas that are not nested inside parentheses,
// the way a column-definition list needs (so TYPE(10,2) isn't split).
func splitTopLevel(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}

func parseColumnDefs(body string) ([]rawColumn, error) {
	var cols []rawColumn
	for _, part := range splitTopLevel(body) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		upper := strings.ToUpper(part)
		if strings.HasPrefix(upper, "PRIMARY KEY") || strings.HasPrefix(upper, "FOREIGN KEY") || strings.HasPrefix(upper, "CHECK") || strings.HasPrefix(upper, "CONSTRAINT") || strings.HasPrefix(upper, "UNIQUE") {
			return nil, sharcerr.UnsupportedFeature("table-level constraint clauses not recognized")
		}
		m := columnDefRe.FindStringSubmatch(part)
		if m == nil {
			return nil, sharcerr.UnsupportedFeature(fmt.Sprintf("column definition not recognized: %q", part))
		}
		rest := strings.ToUpper(m[3])
		cols = append(cols, rawColumn{
			name:         m[1],
			declaredType: strings.TrimSpace(m[2]),
			primaryKey:   strings.Contains(rest, "PRIMARY KEY"),
			notNull:      strings.Contains(rest, "NOT NULL"),
		})
	}
	return cols, nil
}

// buildTable merges `__hi`/`__lo` physical column pairs into logical GUID
// columns and builds the physical-to-logical ordinal map.
func buildTable(name string, rootPage uint32, raw []rawColumn) (*Table, error) {
	physicalToLogical := make([]int, len(raw))
	var logical []Column
	byLower := make(map[string]int)
	rowidAlias := -1

	consumed := make([]bool, len(raw))
	for i, rc := range raw {
		if consumed[i] {
			continue
		}
		if strings.HasSuffix(rc.name, "__hi") {
			base := strings.TrimSuffix(rc.name, "__hi")
			loIdx := -1
			for j, other := range raw {
				if j != i && !consumed[j] && other.name == base+"__lo" {
					loIdx = j
					break
				}
			}
			if loIdx >= 0 {
				logIdx := len(logical)
				logical = append(logical, Column{
					Name:             base,
					DeclaredType:     "GUID",
					Ordinal:          logIdx,
					IsGUID:           true,
					IsNotNull:        rc.notNull && raw[loIdx].notNull,
					PhysicalOrdinals: []int{i, loIdx},
				})
				physicalToLogical[i] = logIdx
				physicalToLogical[loIdx] = logIdx
				byLower[strings.ToLower(base)] = logIdx
				consumed[i] = true
				consumed[loIdx] = true
				continue
			}
		}

		logIdx := len(logical)
		declaredUpper := strings.ToUpper(rc.declaredType)
		isIntPK := rc.primaryKey && strings.HasPrefix(declaredUpper, "INTEGER")
		if isIntPK {
			rowidAlias = i
		}
		logical = append(logical, Column{
			Name:             rc.name,
			DeclaredType:     rc.declaredType,
			Ordinal:          logIdx,
			IsPrimaryKey:     rc.primaryKey,
			IsNotNull:        rc.notNull,
			PhysicalOrdinals: []int{i},
		})
		physicalToLogical[i] = logIdx
		byLower[strings.ToLower(rc.name)] = logIdx
		consumed[i] = true
	}

	return &Table{
		Name:              name,
		RootPage:          rootPage,
		Columns:           logical,
		RowidAliasOrdinal: rowidAlias,
		physicalToLogical: physicalToLogical,
		columnByLowerName: byLower,
	}, nil
}

// ParseCreateIndex recognizes a single, minimal `CREATE [UNIQUE] INDEX
// name ON table (col [DESC], ...)` statement.
func ParseCreateIndex(sql string, rootPage uint32) (*Index, error) {
	m := createIndexRe.FindStringSubmatch(sql)
	if m == nil {
		return nil, sharcerr.UnsupportedFeature("CREATE INDEX statement not recognized")
	}
	unique := strings.TrimSpace(m[1]) != ""
	name := m[2]
	table := m[3]
	var cols []IndexColumn
	for _, part := range splitTopLevel(m[4]) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		col := IndexColumn{Name: fields[0]}
		if len(fields) > 1 && strings.EqualFold(fields[1], "DESC") {
			col.Descending = true
		}
		cols = append(cols, col)
	}
	if len(cols) == 0 {
		return nil, sharcerr.InvalidArgument("CREATE INDEX has no key columns")
	}
	return &Index{
		Name:      name,
		TableName: table,
		RootPage:  rootPage,
		Unique:    unique,
		Columns:   cols,
	}, nil
}

// DecodeGUIDBlob interprets a 16-byte serial-type-44 column body as a
// canonical big-endian RFC 4122 GUID.
func DecodeGUIDBlob(b []byte) (uuid.UUID, error) {
	if len(b) != 16 {
		return uuid.UUID{}, sharcerr.InvalidArgument("GUID blob must be 16 bytes")
	}
	var u uuid.UUID
	copy(u[:], b)
	return u, nil
}

// DecodeMergedGUID reassembles a `__hi`/`__lo` logical GUID column from
// its two physical 64-bit integer values: hi occupies the first 8 bytes,
// lo the last 8, both big-endian, matching DecodeGUIDBlob's byte order.
func DecodeMergedGUID(hi, lo int64) uuid.UUID {
	var u uuid.UUID
	putInt64BE(u[0:8], hi)
	putInt64BE(u[8:16], lo)
	return u
}

func putInt64BE(dst []byte, v int64) {
	uv := uint64(v)
	for i := 7; i >= 0; i-- {
		dst[i] = byte(uv)
		uv >>= 8
	}
}
