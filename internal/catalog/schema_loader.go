package catalog

import (
	"strings"

	"github.com/revred/sharc/internal/btreecursor"
	"github.com/revred/sharc/internal/pagesource"
	"github.com/revred/sharc/internal/record"
	"github.com/revred/sharc/internal/serialtype"
	"github.com/revred/sharc/internal/sharcerr"
)

// schemaRootPage is the fixed root page of every SQLite database's schema
// table (spec.md §6): page 1 holds the database header plus this B-tree.
const schemaRootPage = 1

// schema table column ordinals, per SQLite's fixed sqlite_master layout:
// (type, name, tbl_name, rootpage, sql).
const (
	schemaColType     = 0
	schemaColName     = 1
	schemaColTblName  = 2
	schemaColRootPage = 3
	schemaColSQL      = 4
)

// Load walks the schema B-tree rooted at page 1 and builds a Catalog by
// feeding each row's `sql` column through ParseCreateTable/ParseCreateIndex.
// Rows whose type is neither "table" nor "index", or whose sql column is
// NULL (e.g. the implicit index backing an INTEGER PRIMARY KEY, or a
// `sqlite_sequence` autoindex), are skipped rather than rejected: the
// schema table legitimately carries entries this catalog has no use for.
func Load(src pagesource.PageSource, usableSize int) (*Catalog, error) {
	cur := btreecursor.NewTableCursor(src, schemaRootPage, usableSize)

	cat := New()
	// Index CREATE statements can reference a table the schema cursor
	// hasn't visited yet (order is rowid order, not dependency order), so
	// collect raw rows first and resolve tables before indexes.
	type schemaRow struct {
		kind     string
		rootPage uint32
		sql      string
	}
	var rows []schemaRow

	for {
		ok, err := cur.MoveNext()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		payload, err := cur.Payload()
		if err != nil {
			return nil, err
		}
		vals, err := record.DecodeAll(payload, cur.RowID(), -1)
		if err != nil {
			return nil, err
		}
		if len(vals) <= schemaColSQL {
			continue
		}
		kind := vals[schemaColType]
		sqlVal := vals[schemaColSQL]
		rootVal := vals[schemaColRootPage]
		if kind.Class == serialtype.ClassNull || sqlVal.Class == serialtype.ClassNull || rootVal.Class == serialtype.ClassNull {
			continue
		}
		rows = append(rows, schemaRow{
			kind:     strings.ToLower(kind.Text),
			rootPage: uint32(rootVal.Int),
			sql:      sqlVal.Text,
		})
	}

	for _, r := range rows {
		if r.kind != "table" {
			continue
		}
		t, err := ParseCreateTable(r.sql, r.rootPage)
		if err != nil {
			if sharcerr.IsUnsupported(err) {
				continue // e.g. virtual tables, WITHOUT ROWID — not a corrupt schema
			}
			return nil, err
		}
		cat.AddTable(t)
	}
	for _, r := range rows {
		if r.kind != "index" {
			continue
		}
		idx, err := ParseCreateIndex(r.sql, r.rootPage)
		if err != nil {
			if sharcerr.IsUnsupported(err) {
				continue
			}
			return nil, err
		}
		cat.AddIndex(idx)
	}
	return cat, nil
}
