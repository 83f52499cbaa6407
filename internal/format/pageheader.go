package format

import (
	"encoding/binary"
	"fmt"

	"github.com/revred/sharc/internal/sharcerr"
)

// PageType identifies one of the four B-tree page kinds SQLite defines.
type PageType uint8

const (
	PageTypeInteriorIndex PageType = 0x02
	PageTypeInteriorTable PageType = 0x05
	PageTypeLeafIndex     PageType = 0x0A
	PageTypeLeafTable     PageType = 0x0D
)

func (t PageType) String() string {
	switch t {
	case PageTypeInteriorIndex:
		return "interior-index"
	case PageTypeInteriorTable:
		return "interior-table"
	case PageTypeLeafIndex:
		return "leaf-index"
	case PageTypeLeafTable:
		return "leaf-table"
	default:
		return fmt.Sprintf("unknown(%#x)", uint8(t))
	}
}

// IsLeaf reports whether pages of this type are leaves (no right-child
// pointers, cells hold final data rather than downward links).
func (t PageType) IsLeaf() bool {
	return t == PageTypeLeafIndex || t == PageTypeLeafTable
}

// IsTable reports whether pages of this type belong to a table b-tree
// (rowid-keyed) rather than an index b-tree (payload-keyed).
func (t PageType) IsTable() bool {
	return t == PageTypeInteriorTable || t == PageTypeLeafTable
}

// LeafHeaderSize and InteriorHeaderSize are the on-page header sizes for
// leaf and interior b-tree pages; interior pages carry an extra 4-byte
// right-child pointer leaf pages don't need.
const (
	LeafHeaderSize     = 8
	InteriorHeaderSize = 12
)

// PageHeader is the parsed b-tree page header found at the start of every
// table/index page (offset 0, or 100 on page 1 where it follows the
// database header).
type PageHeader struct {
	Type               PageType
	FirstFreeblock     uint16
	CellCount          uint16
	CellContentStart   uint32 // decoded: on-disk 0 means 65536
	FragmentedFreeBytes uint8
	RightChild         uint32 // interior pages only
}

// Size returns the on-page byte size of this header (8 or 12).
func (h *PageHeader) Size() int {
	if h.Type.IsLeaf() {
		return LeafHeaderSize
	}
	return InteriorHeaderSize
}

// ParsePageHeader parses a b-tree page header from the start of buf.
func ParsePageHeader(buf []byte) (*PageHeader, error) {
	if len(buf) < LeafHeaderSize {
		return nil, sharcerr.CorruptPage(0, fmt.Sprintf("page header too short: %d bytes", len(buf)))
	}
	t := PageType(buf[0])
	switch t {
	case PageTypeInteriorIndex, PageTypeInteriorTable, PageTypeLeafIndex, PageTypeLeafTable:
	default:
		return nil, sharcerr.CorruptPage(0, fmt.Sprintf("unknown page type %#x", buf[0]))
	}

	h := &PageHeader{
		Type:                t,
		FirstFreeblock:      binary.BigEndian.Uint16(buf[1:3]),
		CellCount:           binary.BigEndian.Uint16(buf[3:5]),
		FragmentedFreeBytes: buf[7],
	}
	rawContentStart := binary.BigEndian.Uint16(buf[5:7])
	if rawContentStart == 0 {
		h.CellContentStart = 65536
	} else {
		h.CellContentStart = uint32(rawContentStart)
	}

	if !t.IsLeaf() {
		if len(buf) < InteriorHeaderSize {
			return nil, sharcerr.CorruptPage(0, fmt.Sprintf("interior page header too short: %d bytes", len(buf)))
		}
		h.RightChild = binary.BigEndian.Uint32(buf[8:12])
	}
	return h, nil
}

// MarshalPageHeader serializes h into a fresh buffer sized per h.Size().
func MarshalPageHeader(h *PageHeader) []byte {
	buf := make([]byte, h.Size())
	buf[0] = byte(h.Type)
	binary.BigEndian.PutUint16(buf[1:3], h.FirstFreeblock)
	binary.BigEndian.PutUint16(buf[3:5], h.CellCount)
	rawContentStart := uint16(h.CellContentStart)
	if h.CellContentStart == 65536 {
		rawContentStart = 0
	}
	binary.BigEndian.PutUint16(buf[5:7], rawContentStart)
	buf[7] = h.FragmentedFreeBytes
	if !h.Type.IsLeaf() {
		binary.BigEndian.PutUint32(buf[8:12], h.RightChild)
	}
	return buf
}
