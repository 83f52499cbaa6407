// Package btreecursor implements forward-only and seekable cursors over
// table and index b-trees, per spec.md §4.4.
//
// What: TableCursor (rowid order), IndexCursor (index-key order), and a
// ScanCursor variant that pre-collects leaf pages for a faster full scan.
// How: page descent walks the cell-pointer array the teacher's pager page
// layout exposes (_examples/SimonWaldherr-tinySQL/internal/storage/pager/
// btree_page.go), but the header/cell byte layout itself is SQLite's
// (internal/format, internal/btreecell). Why: every query-path operation —
// full scan, point lookup, index seek — is expressed as one of these three
// cursor kinds; keeping mutation-version staleness detection here means
// callers never need to reason about it themselves.
package btreecursor

import (
	"encoding/binary"
	"fmt"

	"github.com/revred/sharc/internal/btreecell"
	"github.com/revred/sharc/internal/format"
	"github.com/revred/sharc/internal/pagesource"
	"github.com/revred/sharc/internal/serialtype"
	"github.com/revred/sharc/internal/sharcerr"
	"github.com/revred/sharc/internal/varint"
)

// cellPointers returns the cell-pointer array for a page, each entry being
// the byte offset (from the start of the page) where that cell begins.
func cellPointers(page []byte, h *format.PageHeader, pageOneOffset int) ([]uint16, error) {
	start := pageOneOffset + h.Size()
	need := start + int(h.CellCount)*2
	if need > len(page) {
		return nil, sharcerr.CorruptPage(0, "cell pointer array runs past page end")
	}
	out := make([]uint16, h.CellCount)
	for i := range out {
		out[i] = binary.BigEndian.Uint16(page[start+i*2 : start+i*2+2])
	}
	return out, nil
}

// readPage fetches page pageNo and parses its header, accounting for the
// 100-byte database header offset present only on page 1.
func readPage(src pagesource.PageSource, pageNo uint32) ([]byte, *format.PageHeader, int, error) {
	page, err := src.GetPage(pageNo)
	if err != nil {
		return nil, nil, 0, err
	}
	offset := 0
	if pageNo == 1 {
		offset = format.DBHeaderSize
	}
	if offset >= len(page) {
		return nil, nil, 0, sharcerr.CorruptPage(pageNo, "page shorter than database header")
	}
	h, err := format.ParsePageHeader(page[offset:])
	if err != nil {
		return nil, nil, 0, fmt.Errorf("page %d: %w", pageNo, err)
	}
	return page, h, offset, nil
}

type frame struct {
	pageNo    uint32
	page      []byte
	header    *format.PageHeader
	pageOff   int
	pointers  []uint16
	nextIndex int // next cell-pointer index to visit on this interior page
}

// TableCursor walks a table b-tree in ascending rowid order, supporting
// binary-descent seeks by rowid.
type TableCursor struct {
	src        pagesource.PageSource
	root       uint32
	usableSize int

	stack   []frame
	leaf    *frame
	leafIdx int

	curRowID  int64
	curCell   *btreecell.Cell
	payload   []byte
	payloadOK bool

	versionAtPos uint64
	beforeFirst  bool
}

// NewTableCursor creates a cursor positioned before the first row of the
// table b-tree rooted at root.
func NewTableCursor(src pagesource.PageSource, root uint32, usableSize int) *TableCursor {
	c := &TableCursor{src: src, root: root, usableSize: usableSize}
	c.Reset()
	return c
}

// Reset rewinds the cursor to before-first and clears staleness.
func (c *TableCursor) Reset() {
	c.stack = nil
	c.leaf = nil
	c.leafIdx = 0
	c.curCell = nil
	c.payload = nil
	c.payloadOK = false
	c.beforeFirst = true
	c.versionAtPos = c.src.DataVersion()
}

// IsStale reports whether the page source has mutated since this cursor
// was created, reset, or last repositioned by Seek.
func (c *TableCursor) IsStale() bool { return c.src.DataVersion() != c.versionAtPos }

func (c *TableCursor) descendLeftmost(pageNo uint32) error {
	for {
		page, h, off, err := readPage(c.src, pageNo)
		if err != nil {
			return err
		}
		ptrs, err := cellPointers(page, h, off)
		if err != nil {
			return err
		}
		if h.Type.IsLeaf() {
			c.leaf = &frame{pageNo: pageNo, page: page, header: h, pageOff: off, pointers: ptrs}
			c.leafIdx = 0
			return nil
		}
		f := frame{pageNo: pageNo, page: page, header: h, pageOff: off, pointers: ptrs, nextIndex: 0}
		c.stack = append(c.stack, f)
		if len(ptrs) == 0 {
			c.stack[len(c.stack)-1].nextIndex = 1
			pageNo = h.RightChild
			continue
		}
		cell, _, err := btreecell.ParseTableInterior(page, off+int(ptrs[0]))
		if err != nil {
			return err
		}
		c.stack[len(c.stack)-1].nextIndex = 1
		pageNo = cell.LeftChild
	}
}

// advanceToNextLeaf pops exhausted interior frames and descends into the
// next leaf to the right, returning false once the tree is exhausted.
func (c *TableCursor) advanceToNextLeaf() (bool, error) {
	for len(c.stack) > 0 {
		top := &c.stack[len(c.stack)-1]
		if top.nextIndex > len(top.pointers) {
			c.stack = c.stack[:len(c.stack)-1]
			continue
		}
		var childPage uint32
		if top.nextIndex == len(top.pointers) {
			childPage = top.header.RightChild
			top.nextIndex++
		} else {
			cell, _, err := btreecell.ParseTableInterior(top.page, top.pageOff+int(top.pointers[top.nextIndex]))
			if err != nil {
				return false, err
			}
			childPage = cell.LeftChild
			top.nextIndex++
		}
		if err := c.descendLeftmost(childPage); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// MoveNext advances to the next cell in ascending rowid order, returning
// false when there are no more rows.
func (c *TableCursor) MoveNext() (bool, error) {
	if c.IsStale() {
		return false, sharcerr.ErrStaleCursor
	}
	if c.beforeFirst {
		c.beforeFirst = false
		if err := c.descendLeftmost(c.root); err != nil {
			return false, err
		}
	} else if c.leaf != nil {
		c.leafIdx++
	}
	for {
		if c.leaf == nil {
			return false, nil
		}
		if c.leafIdx < len(c.leaf.pointers) {
			cell, _, err := btreecell.ParseTableLeaf(c.leaf.page, c.leaf.pageOff+int(c.leaf.pointers[c.leafIdx]), c.usableSize)
			if err != nil {
				return false, err
			}
			c.curRowID = cell.RowID
			c.curCell = cell
			c.payloadOK = false
			return true, nil
		}
		ok, err := c.advanceToNextLeaf()
		if err != nil {
			return false, err
		}
		if !ok {
			c.leaf = nil
			return false, nil
		}
		c.leafIdx = 0
	}
}

// Seek binary-descends the tree for the first cell with rowid >= target,
// returning true on an exact match. It re-stamps the staleness version.
func (c *TableCursor) Seek(target int64) (bool, error) {
	c.versionAtPos = c.src.DataVersion()
	c.stack = nil
	c.leaf = nil
	c.beforeFirst = false

	pageNo := c.root
	for {
		page, h, off, err := readPage(c.src, pageNo)
		if err != nil {
			return false, err
		}
		ptrs, err := cellPointers(page, h, off)
		if err != nil {
			return false, err
		}
		if h.Type.IsLeaf() {
			c.leaf = &frame{pageNo: pageNo, page: page, header: h, pageOff: off, pointers: ptrs}
			lo, hi := 0, len(ptrs)
			for lo < hi {
				mid := (lo + hi) / 2
				cell, _, err := btreecell.ParseTableLeaf(page, off+int(ptrs[mid]), c.usableSize)
				if err != nil {
					return false, err
				}
				if cell.RowID < target {
					lo = mid + 1
				} else {
					hi = mid
				}
			}
			c.leafIdx = lo
			if lo < len(ptrs) {
				cell, _, err := btreecell.ParseTableLeaf(page, off+int(ptrs[lo]), c.usableSize)
				if err != nil {
					return false, err
				}
				c.curRowID = cell.RowID
				c.curCell = cell
				c.payloadOK = false
				return cell.RowID == target, nil
			}
			return false, nil
		}

		f := frame{pageNo: pageNo, page: page, header: h, pageOff: off, pointers: ptrs}
		lo, hi := 0, len(ptrs)
		for lo < hi {
			mid := (lo + hi) / 2
			cell, _, err := btreecell.ParseTableInterior(page, off+int(ptrs[mid]))
			if err != nil {
				return false, err
			}
			if cell.RowID < target {
				lo = mid + 1
			} else {
				hi = mid
			}
		}
		f.nextIndex = lo + 1
		c.stack = append(c.stack, f)
		if lo == len(ptrs) {
			pageNo = h.RightChild
		} else {
			cell, _, err := btreecell.ParseTableInterior(page, off+int(ptrs[lo]))
			if err != nil {
				return false, err
			}
			pageNo = cell.LeftChild
		}
	}
}

// MoveLast positions the cursor at the last row (highest rowid).
func (c *TableCursor) MoveLast() (bool, error) {
	c.versionAtPos = c.src.DataVersion()
	c.stack = nil
	pageNo := c.root
	for {
		page, h, off, err := readPage(c.src, pageNo)
		if err != nil {
			return false, err
		}
		ptrs, err := cellPointers(page, h, off)
		if err != nil {
			return false, err
		}
		if h.Type.IsLeaf() {
			c.leaf = &frame{pageNo: pageNo, page: page, header: h, pageOff: off, pointers: ptrs}
			if len(ptrs) == 0 {
				c.leafIdx = 0
				return false, nil
			}
			c.leafIdx = len(ptrs) - 1
			cell, _, err := btreecell.ParseTableLeaf(page, off+int(ptrs[c.leafIdx]), c.usableSize)
			if err != nil {
				return false, err
			}
			c.curRowID = cell.RowID
			c.curCell = cell
			c.payloadOK = false
			return true, nil
		}
		pageNo = h.RightChild
	}
}

// RowID returns the current row's rowid. Valid only after a successful
// MoveNext/Seek/MoveLast.
func (c *TableCursor) RowID() int64 { return c.curRowID }

// PayloadSize returns the logical payload byte length of the current row.
func (c *TableCursor) PayloadSize() uint64 {
	if c.curCell == nil {
		return 0
	}
	return c.curCell.PayloadSize
}

// Payload materializes (and caches until the next move) the current row's
// full payload, following overflow chains if needed.
func (c *TableCursor) Payload() ([]byte, error) {
	if c.curCell == nil {
		return nil, sharcerr.OutOfRange("cursor is not positioned on a row")
	}
	if c.payloadOK {
		return c.payload, nil
	}
	full, err := btreecell.AssemblePayload(c.src, c.curCell, c.usableSize)
	if err != nil {
		return nil, err
	}
	c.payload = full
	c.payloadOK = true
	return full, nil
}

// ScanCursor pre-collects every leaf page number of a table b-tree in a
// single descent pass, then iterates leaf-by-leaf without re-navigating
// the interior stack. It supports only forward iteration: spec.md §4.4
// notes this trades seek/move_last support for 1.3-2x scan throughput.
type ScanCursor struct {
	src        pagesource.PageSource
	usableSize int
	leaves     []uint32
	leafPos    int

	curPage  []byte
	curOff   int
	curPtrs  []uint16
	cellIdx  int
	curCell  *btreecell.Cell
	payload  []byte
	payloadOK bool
}

// NewScanCursor descends root once to collect all leaf page numbers in
// left-to-right order, then returns a cursor ready for MoveNext.
func NewScanCursor(src pagesource.PageSource, root uint32, usableSize int) (*ScanCursor, error) {
	sc := &ScanCursor{src: src, usableSize: usableSize}
	if err := sc.collectLeaves(root); err != nil {
		return nil, err
	}
	sc.cellIdx = -1
	return sc, nil
}

func (sc *ScanCursor) collectLeaves(pageNo uint32) error {
	page, h, off, err := readPage(sc.src, pageNo)
	if err != nil {
		return err
	}
	if h.Type.IsLeaf() {
		sc.leaves = append(sc.leaves, pageNo)
		return nil
	}
	ptrs, err := cellPointers(page, h, off)
	if err != nil {
		return err
	}
	for _, ptr := range ptrs {
		cell, _, err := btreecell.ParseTableInterior(page, off+int(ptr))
		if err != nil {
			return err
		}
		if err := sc.collectLeaves(cell.LeftChild); err != nil {
			return err
		}
	}
	return sc.collectLeaves(h.RightChild)
}

func (sc *ScanCursor) loadLeaf(pos int) error {
	page, h, off, err := readPage(sc.src, sc.leaves[pos])
	if err != nil {
		return err
	}
	ptrs, err := cellPointers(page, h, off)
	if err != nil {
		return err
	}
	sc.curPage, sc.curOff, sc.curPtrs = page, off, ptrs
	return nil
}

// MoveNext advances to the next cell across the pre-collected leaf pages.
func (sc *ScanCursor) MoveNext() (bool, error) {
	for {
		if sc.curPage == nil {
			if sc.leafPos >= len(sc.leaves) {
				return false, nil
			}
			if err := sc.loadLeaf(sc.leafPos); err != nil {
				return false, err
			}
			sc.cellIdx = -1
		}
		sc.cellIdx++
		if sc.cellIdx < len(sc.curPtrs) {
			cell, _, err := btreecell.ParseTableLeaf(sc.curPage, sc.curOff+int(sc.curPtrs[sc.cellIdx]), sc.usableSize)
			if err != nil {
				return false, err
			}
			sc.curCell = cell
			sc.payloadOK = false
			return true, nil
		}
		sc.leafPos++
		sc.curPage = nil
	}
}

// RowID returns the current row's rowid.
func (sc *ScanCursor) RowID() int64 {
	if sc.curCell == nil {
		return 0
	}
	return sc.curCell.RowID
}

// Payload materializes the current row's full payload.
func (sc *ScanCursor) Payload() ([]byte, error) {
	if sc.curCell == nil {
		return nil, sharcerr.OutOfRange("cursor is not positioned on a row")
	}
	if sc.payloadOK {
		return sc.payload, nil
	}
	full, err := btreecell.AssemblePayload(sc.src, sc.curCell, sc.usableSize)
	if err != nil {
		return nil, err
	}
	sc.payload = full
	sc.payloadOK = true
	return full, nil
}

// firstColumnRaw extracts the serial type and body bytes of the first
// column of an index record's raw bytes (decodeInt then reads an integer
// key from them) for key comparison during IndexCursor descent,
// without pulling in the full record decoder (internal/record composes
// with catalog for multi-column decode; index seeks only ever compare the
// leading key column, per spec.md §4.4).
func firstColumnRaw(payload []byte) (serial int64, body []byte, err error) {
	headerLen, n1, err := varint.Read(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("index record header length: %w", err)
	}
	if int(headerLen) > len(payload) {
		return 0, nil, sharcerr.CorruptPage(0, "index record header length exceeds payload")
	}
	st, _, err := varint.Read(payload[n1:])
	if err != nil {
		return 0, nil, fmt.Errorf("index record first serial type: %w", err)
	}
	serial = int64(st)
	size, err := serialtype.ContentSize(serial)
	if err != nil {
		return 0, nil, err
	}
	bodyStart := int(headerLen)
	if bodyStart+size > len(payload) {
		return 0, nil, sharcerr.CorruptPage(0, "index record first column runs past payload")
	}
	return serial, payload[bodyStart : bodyStart+size], nil
}

func decodeInt(serial int64, body []byte) int64 {
	switch len(body) {
	case 0:
		if serial == 9 {
			return 1
		}
		return 0
	case 1:
		return int64(int8(body[0]))
	case 2:
		return int64(int16(binary.BigEndian.Uint16(body)))
	case 3:
		v := int32(body[0])<<16 | int32(body[1])<<8 | int32(body[2])
		if v&(1<<23) != 0 {
			v |= ^((1 << 24) - 1)
		}
		return int64(v)
	case 4:
		return int64(int32(binary.BigEndian.Uint32(body)))
	case 6:
		var v int64
		for _, b := range body {
			v = v<<8 | int64(b)
		}
		if v&(1<<47) != 0 {
			v |= ^((1 << 48) - 1)
		}
		return v
	case 8:
		return int64(binary.BigEndian.Uint64(body))
	default:
		return 0
	}
}

// IndexCursor walks an index b-tree in ascending key order (first column),
// analogous to TableCursor but keyed by record comparison rather than
// rowid.
type IndexCursor struct {
	src        pagesource.PageSource
	root       uint32
	usableSize int

	stack   []frame
	leaf    *frame
	leafIdx int

	curCell   *btreecell.Cell
	payload   []byte
	payloadOK bool

	versionAtPos uint64
}

// NewIndexCursor creates a cursor over the index b-tree rooted at root.
func NewIndexCursor(src pagesource.PageSource, root uint32, usableSize int) *IndexCursor {
	ic := &IndexCursor{src: src, root: root, usableSize: usableSize}
	ic.versionAtPos = src.DataVersion()
	return ic
}

// IsStale reports whether the page source has mutated since creation or
// the last Seek.
func (ic *IndexCursor) IsStale() bool { return ic.src.DataVersion() != ic.versionAtPos }

// SeekFirstInt binary-descends the index b-tree for the first entry whose
// leading integer column is >= target.
func (ic *IndexCursor) SeekFirstInt(target int64) (bool, error) {
	return ic.seekFirst(func(serial int64, body []byte) int {
		v := decodeInt(serial, body)
		switch {
		case v < target:
			return -1
		case v > target:
			return 1
		default:
			return 0
		}
	})
}

// SeekFirstText binary-descends the index b-tree for the first entry whose
// leading text column is >= target, compared byte-wise (UTF-8 byte order).
func (ic *IndexCursor) SeekFirstText(target string) (bool, error) {
	targetBytes := []byte(target)
	return ic.seekFirst(func(_ int64, body []byte) int {
		n := len(body)
		if len(targetBytes) < n {
			n = len(targetBytes)
		}
		for i := 0; i < n; i++ {
			if body[i] != targetBytes[i] {
				if body[i] < targetBytes[i] {
					return -1
				}
				return 1
			}
		}
		switch {
		case len(body) < len(targetBytes):
			return -1
		case len(body) > len(targetBytes):
			return 1
		default:
			return 0
		}
	})
}

// cmp(serial, body) must return <0, 0, >0 comparing this cell's leading
// column against the seek target.
func (ic *IndexCursor) seekFirst(cmp func(serial int64, body []byte) int) (bool, error) {
	ic.versionAtPos = ic.src.DataVersion()
	ic.stack = nil
	pageNo := ic.root
	for {
		page, h, off, err := readPage(ic.src, pageNo)
		if err != nil {
			return false, err
		}
		ptrs, err := cellPointers(page, h, off)
		if err != nil {
			return false, err
		}
		cellCmp := func(i int) (int, *btreecell.Cell, error) {
			var cell *btreecell.Cell
			var perr error
			if h.Type.IsLeaf() {
				cell, _, perr = btreecell.ParseIndexLeaf(page, off+int(ptrs[i]), ic.usableSize)
			} else {
				cell, _, perr = btreecell.ParseIndexInterior(page, off+int(ptrs[i]), ic.usableSize)
			}
			if perr != nil {
				return 0, nil, perr
			}
			full, perr := btreecell.AssemblePayload(ic.src, cell, ic.usableSize)
			if perr != nil {
				return 0, nil, perr
			}
			serial, body, perr := firstColumnRaw(full)
			if perr != nil {
				return 0, nil, perr
			}
			return cmp(serial, body), cell, nil
		}

		if h.Type.IsLeaf() {
			ic.leaf = &frame{pageNo: pageNo, page: page, header: h, pageOff: off, pointers: ptrs}
			lo, hi := 0, len(ptrs)
			for lo < hi {
				mid := (lo + hi) / 2
				c, _, err := cellCmp(mid)
				if err != nil {
					return false, err
				}
				if c < 0 {
					lo = mid + 1
				} else {
					hi = mid
				}
			}
			ic.leafIdx = lo
			if lo < len(ptrs) {
				c, cell, err := cellCmp(lo)
				if err != nil {
					return false, err
				}
				ic.curCell = cell
				ic.payloadOK = false
				return c == 0, nil
			}
			return false, nil
		}

		lo, hi := 0, len(ptrs)
		for lo < hi {
			mid := (lo + hi) / 2
			c, _, err := cellCmp(mid)
			if err != nil {
				return false, err
			}
			if c < 0 {
				lo = mid + 1
			} else {
				hi = mid
			}
		}
		f := frame{pageNo: pageNo, page: page, header: h, pageOff: off, pointers: ptrs, nextIndex: lo + 1}
		ic.stack = append(ic.stack, f)
		if lo == len(ptrs) {
			pageNo = h.RightChild
		} else {
			_, cell, err := cellCmp(lo)
			if err != nil {
				return false, err
			}
			pageNo = cell.LeftChild
		}
	}
}

// descendLeftmostIndex descends from pageNo to the leftmost leaf, pushing
// every interior frame visited along the way (mirroring TableCursor's
// descendLeftmost) so a later MoveNext can resume the in-order walk from
// any point in the subtree.
func (ic *IndexCursor) descendLeftmostIndex(pageNo uint32) error {
	for {
		page, h, off, err := readPage(ic.src, pageNo)
		if err != nil {
			return err
		}
		ptrs, err := cellPointers(page, h, off)
		if err != nil {
			return err
		}
		if h.Type.IsLeaf() {
			ic.leaf = &frame{pageNo: pageNo, page: page, header: h, pageOff: off, pointers: ptrs}
			ic.leafIdx = 0
			return nil
		}
		f := frame{pageNo: pageNo, page: page, header: h, pageOff: off, pointers: ptrs, nextIndex: 0}
		ic.stack = append(ic.stack, f)
		if len(ptrs) == 0 {
			ic.stack[len(ic.stack)-1].nextIndex = 1
			pageNo = h.RightChild
			continue
		}
		cell, _, err := btreecell.ParseIndexInterior(page, off+int(ptrs[0]), ic.usableSize)
		if err != nil {
			return err
		}
		ic.stack[len(ic.stack)-1].nextIndex = 1
		pageNo = cell.LeftChild
	}
}

// advanceToNextLeaf pops exhausted interior frames off the stack and
// descends into the next leaf to the right, returning false once the
// index b-tree is exhausted. Mirrors TableCursor.advanceToNextLeaf.
func (ic *IndexCursor) advanceToNextLeaf() (bool, error) {
	for len(ic.stack) > 0 {
		top := &ic.stack[len(ic.stack)-1]
		if top.nextIndex > len(top.pointers) {
			ic.stack = ic.stack[:len(ic.stack)-1]
			continue
		}
		var childPage uint32
		if top.nextIndex == len(top.pointers) {
			childPage = top.header.RightChild
			top.nextIndex++
		} else {
			cell, _, err := btreecell.ParseIndexInterior(top.page, top.pageOff+int(top.pointers[top.nextIndex]), ic.usableSize)
			if err != nil {
				return false, err
			}
			childPage = cell.LeftChild
			top.nextIndex++
		}
		if err := ic.descendLeftmostIndex(childPage); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// MoveNext advances to the next entry in ascending index-key order,
// re-descending into sibling leaf pages via the interior stack built up
// during SeekFirst/descent — the same leaf-chaining TableCursor uses —
// so a full scan or range walk is never silently truncated at the end of
// a single leaf page.
func (ic *IndexCursor) MoveNext() (bool, error) {
	if ic.leaf != nil {
		ic.leafIdx++
	}
	for {
		if ic.leaf == nil {
			return false, nil
		}
		if ic.leafIdx < len(ic.leaf.pointers) {
			cell, _, err := btreecell.ParseIndexLeaf(ic.leaf.page, ic.leaf.pageOff+int(ic.leaf.pointers[ic.leafIdx]), ic.usableSize)
			if err != nil {
				return false, err
			}
			ic.curCell = cell
			ic.payloadOK = false
			return true, nil
		}
		ok, err := ic.advanceToNextLeaf()
		if err != nil {
			return false, err
		}
		if !ok {
			ic.leaf = nil
			return false, nil
		}
		ic.leafIdx = 0
	}
}

// Payload materializes the current index record's full payload, whose
// last column is the rowid of the referenced table row (spec.md §4.4).
func (ic *IndexCursor) Payload() ([]byte, error) {
	if ic.curCell == nil {
		return nil, sharcerr.OutOfRange("cursor is not positioned on a row")
	}
	if ic.payloadOK {
		return ic.payload, nil
	}
	full, err := btreecell.AssemblePayload(ic.src, ic.curCell, ic.usableSize)
	if err != nil {
		return nil, err
	}
	ic.payload = full
	ic.payloadOK = true
	return full, nil
}
