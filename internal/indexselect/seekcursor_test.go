package indexselect

import (
	"encoding/binary"
	"testing"

	"github.com/revred/sharc/internal/btreecursor"
	"github.com/revred/sharc/internal/catalog"
	"github.com/revred/sharc/internal/format"
	"github.com/revred/sharc/internal/pagesource"
	"github.com/revred/sharc/internal/predicate"
	"github.com/revred/sharc/internal/varint"
)

const seekTestPageSize = 512

func buildLeafPage(pageType format.PageType, entries [][]byte) []byte {
	page := make([]byte, seekTestPageSize)
	h := &format.PageHeader{Type: pageType, CellCount: uint16(len(entries)), CellContentStart: 65536}
	hdrBuf := format.MarshalPageHeader(h)
	copy(page, hdrBuf)
	ptrArrayOff := len(hdrBuf)
	cellAreaOff := ptrArrayOff + len(entries)*2
	offsets := make([]uint16, len(entries))
	cursor := cellAreaOff
	for i, payload := range entries {
		offsets[i] = uint16(cursor)
		var cellBuf []byte
		cellBuf = append(cellBuf, varint.Write(uint64(len(payload)))...)
		cellBuf = append(cellBuf, payload...)
		copy(page[cursor:], cellBuf)
		cursor += len(cellBuf)
	}
	for i, off := range offsets {
		binary.BigEndian.PutUint16(page[ptrArrayOff+i*2:ptrArrayOff+i*2+2], off)
	}
	return page
}

func buildTableLeaf(rows []struct {
	rowID   int64
	payload []byte
}) []byte {
	page := make([]byte, seekTestPageSize)
	h := &format.PageHeader{Type: format.PageTypeLeafTable, CellCount: uint16(len(rows)), CellContentStart: 65536}
	hdrBuf := format.MarshalPageHeader(h)
	copy(page, hdrBuf)
	ptrArrayOff := len(hdrBuf)
	cellAreaOff := ptrArrayOff + len(rows)*2
	offsets := make([]uint16, len(rows))
	cursor := cellAreaOff
	for i, r := range rows {
		offsets[i] = uint16(cursor)
		var cellBuf []byte
		cellBuf = append(cellBuf, varint.Write(uint64(len(r.payload)))...)
		cellBuf = append(cellBuf, varint.Write(uint64(r.rowID))...)
		cellBuf = append(cellBuf, r.payload...)
		copy(page[cursor:], cellBuf)
		cursor += len(cellBuf)
	}
	for i, off := range offsets {
		binary.BigEndian.PutUint16(page[ptrArrayOff+i*2:ptrArrayOff+i*2+2], off)
	}
	return page
}

// indexRecord builds a 1-byte-int key column, an optional 1-byte-int
// residual column, followed by the trailing rowid column every index
// record carries, stored as a 2-byte int.
func indexRecord(key int64, residual *int64, rowID int64) []byte {
	var serials []int64
	var body []byte
	serials = append(serials, 1)
	body = append(body, byte(key))
	if residual != nil {
		serials = append(serials, 1)
		body = append(body, byte(*residual))
	}
	serials = append(serials, 2)
	body = append(body, byte(rowID>>8), byte(rowID))

	var header []byte
	for _, s := range serials {
		header = append(header, varint.Write(uint64(s))...)
	}
	headerLen := len(header) + 1
	full := append(varint.Write(uint64(headerLen)), header...)
	full = append(full, body...)
	return full
}

func tablePayloadOneCol(v int64) []byte {
	header := append(varint.Write(2), varint.Write(1)...)
	return append(header, byte(v))
}

func TestIndexSeekCursorEqTermination(t *testing.T) {
	tbl, err := catalog.ParseCreateTable(`CREATE TABLE T (id INTEGER PRIMARY KEY, a INTEGER, v INTEGER)`, 1)
	if err != nil {
		t.Fatal(err)
	}
	idx, err := catalog.ParseCreateIndex(`CREATE INDEX idx_a ON T (a)`, 2)
	if err != nil {
		t.Fatal(err)
	}

	entries := [][]byte{
		indexRecord(5, nil, 100),
		indexRecord(7, nil, 200),
		indexRecord(7, nil, 300),
		indexRecord(9, nil, 400),
	}
	idxPage := buildLeafPage(format.PageTypeLeafIndex, entries)
	tblPage := buildTableLeaf([]struct {
		rowID   int64
		payload []byte
	}{
		{100, tablePayloadOneCol(1)},
		{200, tablePayloadOneCol(2)},
		{300, tablePayloadOneCol(3)},
		{400, tablePayloadOneCol(4)},
	})
	src := pagesource.NewMemSource(seekTestPageSize, map[uint32][]byte{2: idxPage, 3: tblPage}, nil)

	ic := btreecursor.NewIndexCursor(src, 2, seekTestPageSize)
	tc := btreecursor.NewTableCursor(src, 3, seekTestPageSize)

	seek := &IndexSeek{Index: idx, Op: predicate.OpEq, Value: predicate.IntValue(7)}
	c := NewIndexSeekCursor(ic, tc, seek)

	var rowIDs []int64
	for {
		ok, err := c.MoveNext()
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			break
		}
		rowIDs = append(rowIDs, tc.RowID())
	}
	if len(rowIDs) != 2 || rowIDs[0] != 200 || rowIDs[1] != 300 {
		t.Fatalf("expected rowids [200 300], got %v", rowIDs)
	}
	if c.Hits() != 2 {
		t.Errorf("Hits() = %d, want 2", c.Hits())
	}
	if c.EntriesScanned() < 2 {
		t.Errorf("EntriesScanned() = %d, want >= 2", c.EntriesScanned())
	}
}

func TestIndexSeekCursorEqNoMatchReturnsFalseImmediately(t *testing.T) {
	tbl, err := catalog.ParseCreateTable(`CREATE TABLE T (id INTEGER PRIMARY KEY, a INTEGER)`, 1)
	if err != nil {
		t.Fatal(err)
	}
	idx, err := catalog.ParseCreateIndex(`CREATE INDEX idx_a ON T (a)`, 2)
	if err != nil {
		t.Fatal(err)
	}
	_ = tbl

	entries := [][]byte{
		indexRecord(5, nil, 100),
		indexRecord(9, nil, 400),
	}
	idxPage := buildLeafPage(format.PageTypeLeafIndex, entries)
	tblPage := buildTableLeaf(nil)
	src := pagesource.NewMemSource(seekTestPageSize, map[uint32][]byte{2: idxPage, 3: tblPage}, nil)

	ic := btreecursor.NewIndexCursor(src, 2, seekTestPageSize)
	tc := btreecursor.NewTableCursor(src, 3, seekTestPageSize)
	seek := &IndexSeek{Index: idx, Op: predicate.OpEq, Value: predicate.IntValue(7)}
	c := NewIndexSeekCursor(ic, tc, seek)

	ok, err := c.MoveNext()
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected no match for key 7")
	}
	if c.Hits() != 0 {
		t.Errorf("Hits() = %d, want 0", c.Hits())
	}
}

func TestIndexSeekCursorLtTerminatesAtUpperBound(t *testing.T) {
	tbl, err := catalog.ParseCreateTable(`CREATE TABLE T (id INTEGER PRIMARY KEY, a INTEGER)`, 1)
	if err != nil {
		t.Fatal(err)
	}
	idx, err := catalog.ParseCreateIndex(`CREATE INDEX idx_a ON T (a)`, 2)
	if err != nil {
		t.Fatal(err)
	}
	_ = tbl

	entries := [][]byte{
		indexRecord(1, nil, 100),
		indexRecord(2, nil, 200),
		indexRecord(3, nil, 300),
		indexRecord(4, nil, 400),
	}
	idxPage := buildLeafPage(format.PageTypeLeafIndex, entries)
	tblPage := buildTableLeaf([]struct {
		rowID   int64
		payload []byte
	}{
		{100, tablePayloadOneCol(1)},
		{200, tablePayloadOneCol(2)},
		{300, tablePayloadOneCol(3)},
		{400, tablePayloadOneCol(4)},
	})
	src := pagesource.NewMemSource(seekTestPageSize, map[uint32][]byte{2: idxPage, 3: tblPage}, nil)

	ic := btreecursor.NewIndexCursor(src, 2, seekTestPageSize)
	tc := btreecursor.NewTableCursor(src, 3, seekTestPageSize)
	seek := &IndexSeek{Index: idx, Op: predicate.OpLt, Value: predicate.IntValue(3)}
	c := NewIndexSeekCursor(ic, tc, seek)

	var rowIDs []int64
	for {
		ok, err := c.MoveNext()
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			break
		}
		rowIDs = append(rowIDs, tc.RowID())
	}
	if len(rowIDs) != 2 || rowIDs[0] != 100 || rowIDs[1] != 200 {
		t.Fatalf("expected rowids [100 200] for a<3, got %v", rowIDs)
	}
}

func TestIndexSeekCursorResidualSkipsNonMatching(t *testing.T) {
	tbl, err := catalog.ParseCreateTable(`CREATE TABLE T (id INTEGER PRIMARY KEY, a INTEGER, b INTEGER)`, 1)
	if err != nil {
		t.Fatal(err)
	}
	idx, err := catalog.ParseCreateIndex(`CREATE INDEX idx_ab ON T (a, b)`, 2)
	if err != nil {
		t.Fatal(err)
	}
	bOrd := func() int {
		col, _ := tbl.ColumnByName("b")
		return col.PhysicalOrdinals[0]
	}()

	r1 := int64(1)
	r2 := int64(20)
	entries := [][]byte{
		indexRecord(5, &r1, 100),
		indexRecord(5, &r2, 200),
	}
	idxPage := buildLeafPage(format.PageTypeLeafIndex, entries)
	tblPage := buildTableLeaf([]struct {
		rowID   int64
		payload []byte
	}{
		{100, tablePayloadOneCol(1)},
		{200, tablePayloadOneCol(2)},
	})
	src := pagesource.NewMemSource(seekTestPageSize, map[uint32][]byte{2: idxPage, 3: tblPage}, nil)

	ic := btreecursor.NewIndexCursor(src, 2, seekTestPageSize)
	tc := btreecursor.NewTableCursor(src, 3, seekTestPageSize)
	seek := &IndexSeek{
		Index: idx, Op: predicate.OpEq, Value: predicate.IntValue(5),
		Residual: []SargableCondition{{PhysicalOrdinal: bOrd, Op: predicate.OpGt, Value: predicate.IntValue(10)}},
	}
	c := NewIndexSeekCursor(ic, tc, seek)

	var rowIDs []int64
	for {
		ok, err := c.MoveNext()
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			break
		}
		rowIDs = append(rowIDs, tc.RowID())
	}
	if len(rowIDs) != 1 || rowIDs[0] != 200 {
		t.Fatalf("expected only rowid 200 (b=20>10), got %v", rowIDs)
	}
	if c.EntriesScanned() != 2 {
		t.Errorf("EntriesScanned() = %d, want 2 (both entries visited, one rejected)", c.EntriesScanned())
	}
	if c.Hits() != 1 {
		t.Errorf("Hits() = %d, want 1", c.Hits())
	}
}

func TestIndexSeekCursorIsStale(t *testing.T) {
	idx, err := catalog.ParseCreateIndex(`CREATE INDEX idx_a ON T (a)`, 2)
	if err != nil {
		t.Fatal(err)
	}
	idxPage := buildLeafPage(format.PageTypeLeafIndex, [][]byte{indexRecord(1, nil, 100)})
	tblPage := buildTableLeaf([]struct {
		rowID   int64
		payload []byte
	}{{100, tablePayloadOneCol(1)}})
	src := pagesource.NewMemSource(seekTestPageSize, map[uint32][]byte{2: idxPage, 3: tblPage}, nil)

	ic := btreecursor.NewIndexCursor(src, 2, seekTestPageSize)
	tc := btreecursor.NewTableCursor(src, 3, seekTestPageSize)
	seek := &IndexSeek{Index: idx, Op: predicate.OpEq, Value: predicate.IntValue(1)}
	c := NewIndexSeekCursor(ic, tc, seek)
	if c.IsStale() {
		t.Fatal("fresh cursor should not report stale")
	}
	if _, err := c.MoveNext(); err != nil {
		t.Fatal(err)
	}
	if err := src.WritePage(2, idxPage); err != nil {
		t.Fatal(err)
	}
	if !c.IsStale() {
		t.Error("expected staleness after a version bump")
	}
}
