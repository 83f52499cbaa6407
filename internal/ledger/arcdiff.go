package ledger

import (
	"strings"

	"github.com/revred/sharc/internal/btreecursor"
	"github.com/revred/sharc/internal/catalog"
	"github.com/revred/sharc/internal/format"
	"github.com/revred/sharc/internal/pagesource"
	"github.com/revred/sharc/internal/record"
	"github.com/revred/sharc/internal/sharcerr"
)

const (
	ledgerTableName      = "_sharc_ledger"
	ledgerColSequence    = 0
	ledgerColPayloadHash = 4
)

// ScopeFlags selects which sections Diff computes (spec.md §6).
type ScopeFlags struct {
	Schema bool
	Ledger bool
	Data   bool
}

// Options configures Diff.
type Options struct {
	Scope ScopeFlags
	// Tables restricts Data-scope diffing to these table names
	// (case-insensitive); nil/empty means every common user table.
	Tables []string
	// MaxRowDiffsPerTable is passed through to DiffTable for each table;
	// negative means unlimited (spec.md §6).
	MaxRowDiffsPerTable int
}

// Result is Diff's structured, per-section output; a nil section field
// means that scope flag wasn't requested.
type Result struct {
	Schema *SchemaDiffResult
	Ledger *LedgerDiffResult
	Tables map[string]TableDiffResult
}

// Arc is an opened arc file (spec.md §4.10: "a SQLite database with
// reserved tables `_sharc_ledger`, `_sharc_agents`, `_sharc_scores`,
// `_sharc_audit`"): its page source, parsed header, and loaded schema
// catalog, ready for Diff to read the ledger table and any user table.
type Arc struct {
	Source  pagesource.PageSource
	Header  *format.DBHeader
	Catalog *catalog.Catalog
}

// OpenArc loads src's schema catalog under hdr's page geometry and
// returns the Arc ready for Diff.
func OpenArc(src pagesource.PageSource, hdr *format.DBHeader) (*Arc, error) {
	cat, err := catalog.Load(src, hdr.UsablePageSize())
	if err != nil {
		return nil, err
	}
	return &Arc{Source: src, Header: hdr, Catalog: cat}, nil
}

// Diff implements spec.md §6's top-level diff(left_arc, right_arc,
// options) entry point: it assembles DiffSchema, DiffLedger, and
// per-table DiffTable under one options-driven call, running only the
// sections opts.Scope requests.
func Diff(left, right *Arc, opts Options) (Result, error) {
	var result Result

	if opts.Scope.Schema {
		d := DiffSchema(left.Catalog, right.Catalog)
		result.Schema = &d
	}

	if opts.Scope.Ledger {
		leftEntries, err := readLedgerEntries(left)
		if err != nil {
			return result, err
		}
		rightEntries, err := readLedgerEntries(right)
		if err != nil {
			return result, err
		}
		d := DiffLedger(leftEntries, rightEntries)
		result.Ledger = &d
	}

	if opts.Scope.Data {
		tables, err := diffTables(left, right, opts)
		if err != nil {
			return result, err
		}
		result.Tables = tables
	}

	return result, nil
}

// readLedgerEntries decodes every row of arc's `_sharc_ledger` table into
// a LedgerEntry (sequence at ordinal 0, payload hash at ordinal 4, per
// spec.md §4.10). An arc with no ledger table yields an empty entry set
// rather than an error — a freshly-created arc legitimately has none yet.
func readLedgerEntries(arc *Arc) ([]LedgerEntry, error) {
	tbl, ok := arc.Catalog.Table(ledgerTableName)
	if !ok {
		return nil, nil
	}
	cur := btreecursor.NewTableCursor(arc.Source, tbl.RootPage, arc.Header.UsablePageSize())
	var out []LedgerEntry
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
		vals, err := record.DecodeAll(payload, cur.RowID(), tbl.RowidAliasOrdinal)
		if err != nil {
			return nil, err
		}
		if len(vals) <= ledgerColPayloadHash {
			return nil, sharcerr.CorruptPage(0, "ledger row missing payload_hash column")
		}
		var entry LedgerEntry
		entry.Sequence = vals[ledgerColSequence].Int
		hashBlob := vals[ledgerColPayloadHash].Blob
		if len(hashBlob) != len(entry.PayloadHash) {
			return nil, sharcerr.CorruptPage(0, "ledger payload_hash is not 32 bytes")
		}
		copy(entry.PayloadHash[:], hashBlob)
		out = append(out, entry)
	}
	return out, nil
}

// diffTables runs DiffTable over every user table common to both arcs
// (restricted to opts.Tables when non-empty), keyed by lowercased name.
func diffTables(left, right *Arc, opts Options) (map[string]TableDiffResult, error) {
	wanted := make(map[string]bool, len(opts.Tables))
	for _, name := range opts.Tables {
		wanted[strings.ToLower(name)] = true
	}

	rightByName := make(map[string]*catalog.Table)
	for _, t := range right.Catalog.UserTables() {
		rightByName[strings.ToLower(t.Name)] = t
	}

	out := make(map[string]TableDiffResult)
	for _, lt := range left.Catalog.UserTables() {
		key := strings.ToLower(lt.Name)
		if len(wanted) > 0 && !wanted[key] {
			continue
		}
		rt, ok := rightByName[key]
		if !ok {
			continue // table-set asymmetry is reported by DiffSchema, not here
		}

		leftCur := btreecursor.NewTableCursor(left.Source, lt.RootPage, left.Header.UsablePageSize())
		rightCur := btreecursor.NewTableCursor(right.Source, rt.RootPage, right.Header.UsablePageSize())
		d, err := DiffTable(NewCursorRowStream(leftCur), NewCursorRowStream(rightCur), opts.MaxRowDiffsPerTable)
		if err != nil {
			return nil, err
		}
		out[lt.Name] = d
	}
	return out, nil
}
