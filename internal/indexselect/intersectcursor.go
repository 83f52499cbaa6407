package indexselect

import (
	"github.com/revred/sharc/internal/btreecursor"
	"github.com/revred/sharc/internal/record"
)

// IntersectionCursor executes a PlanIntersection (spec.md §4.7): the
// HashSide index is scanned up front into a set of matching rowids (each
// entry still checked against its own residual constraints, so a
// rejected hash-side row never enters the set and never costs table
// I/O), then the StreamSide index is walked via an ordinary
// IndexSeekCursor, which seeks the shared table cursor for every
// stream-side match, and only rows whose rowid also landed in the hash
// set are yielded.
type IntersectionCursor struct {
	stream  *IndexSeekCursor
	hashSet map[int64]struct{}

	hashEntriesScanned int
	hits               int
}

// NewIntersectionCursor builds the hash set by fully draining hashIdx
// against plan.HashSide, then wraps streamIdx/table/plan.StreamSide in
// an IndexSeekCursor to drive the streaming side. The caller owns all
// three cursors' lifetimes exactly as for IndexSeekCursor; hashIdx is
// fully consumed by this call and must not be reused afterward.
func NewIntersectionCursor(hashIdx *btreecursor.IndexCursor, streamIdx *btreecursor.IndexCursor, table *btreecursor.TableCursor, plan *Plan) (*IntersectionCursor, error) {
	set, scanned, err := buildHashSet(hashIdx, plan.HashSide)
	if err != nil {
		return nil, err
	}
	return &IntersectionCursor{
		stream:             NewIndexSeekCursor(streamIdx, table, plan.StreamSide),
		hashSet:            set,
		hashEntriesScanned: scanned,
	}, nil
}

// IsStale reports staleness on the streaming side's child cursors; the
// hash side was already fully consumed when the cursor was built.
func (c *IntersectionCursor) IsStale() bool { return c.stream.IsStale() }

// EntriesScanned sums both sides' scanned-entry counts (spec.md §4.8).
func (c *IntersectionCursor) EntriesScanned() int {
	return c.hashEntriesScanned + c.stream.EntriesScanned()
}

// Hits is the number of rows yielded so far.
func (c *IntersectionCursor) Hits() int { return c.hits }

// MoveNext advances the streaming side until it finds a row whose rowid
// also passed the hash side, seeking the shared table cursor onto it and
// returning true, or false once the stream side is exhausted.
func (c *IntersectionCursor) MoveNext() (bool, error) {
	for {
		ok, err := c.stream.MoveNext()
		if err != nil || !ok {
			return false, err
		}
		if _, inSet := c.hashSet[c.stream.table.RowID()]; inSet {
			c.hits++
			return true, nil
		}
	}
}

// buildHashSet walks every entry in seek's key range on idx, admitting a
// rowid to the set only once seek's own residual constraints pass
// against the index record — no table I/O is spent on the hash side.
func buildHashSet(idx *btreecursor.IndexCursor, seek *IndexSeek) (map[int64]struct{}, int, error) {
	set := make(map[int64]struct{})
	scanned := 0

	ok, err := startIndexSeek(idx, seek)
	if err != nil || !ok {
		return set, scanned, err
	}

	for {
		scanned++

		payload, err := idx.Payload()
		if err != nil {
			return nil, scanned, err
		}
		serialTypes, bodyOffset, err := record.ReadSerialTypes(payload, nil)
		if err != nil {
			return nil, scanned, err
		}
		offsets := make([]int, len(serialTypes))
		if err := record.ComputeColumnOffsets(serialTypes, bodyOffset, offsets); err != nil {
			return nil, scanned, err
		}

		cmp, err := compareFirstColumn(payload, serialTypes, offsets, seek.Value)
		if err != nil {
			return nil, scanned, err
		}
		if pastRangeFor(seek.Op, cmp, seek.Upper, func() (int, error) {
			return compareFirstColumn(payload, serialTypes, offsets, seek.Upper)
		}) {
			return set, scanned, nil
		}

		residualOK, err := evalResidual(seek.Residual, payload, serialTypes, offsets)
		if err != nil {
			return nil, scanned, err
		}
		if residualOK {
			rowID, err := lastColumnRowID(payload, serialTypes, offsets)
			if err != nil {
				return nil, scanned, err
			}
			set[rowID] = struct{}{}
		}

		ok, err := idx.MoveNext()
		if err != nil {
			return nil, scanned, err
		}
		if !ok {
			return set, scanned, nil
		}
	}
}
