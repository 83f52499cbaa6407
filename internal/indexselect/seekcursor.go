package indexselect

import (
	"math"

	"github.com/revred/sharc/internal/btreecursor"
	"github.com/revred/sharc/internal/predicate"
	"github.com/revred/sharc/internal/record"
	"github.com/revred/sharc/internal/serialtype"
	"github.com/revred/sharc/internal/sharcerr"
)

// IndexSeekCursor drives an index cursor and a table cursor together
// (spec.md §4.8): it walks index entries in key order, evaluates residual
// constraints against the index record itself, and seeks the table
// cursor to the matching row only once an entry clears every check —
// rejected rows never cost table I/O.
type IndexSeekCursor struct {
	idx   *btreecursor.IndexCursor
	table *btreecursor.TableCursor
	seek  *IndexSeek

	started   bool
	pastRange bool

	entriesScanned int
	hits           int
}

// NewIndexSeekCursor wraps idx and table under the plan in seek. Both
// cursors must already be positioned over the same data version; the
// caller owns their lifetime (spec.md §9: "index-seek cursors own two
// child cursors by value; dropping the parent drops both" — sharc's
// version holds them by pointer since Go has no by-value cursor type
// here, but the ownership discipline is the same: neither cursor is
// shared outside this wrapper).
func NewIndexSeekCursor(idx *btreecursor.IndexCursor, table *btreecursor.TableCursor, seek *IndexSeek) *IndexSeekCursor {
	return &IndexSeekCursor{idx: idx, table: table, seek: seek}
}

// IsStale reports staleness on either child cursor.
func (c *IndexSeekCursor) IsStale() bool { return c.table.IsStale() || c.idx.IsStale() }

// EntriesScanned and Hits are the diagnostics counters spec.md §4.8 names.
func (c *IndexSeekCursor) EntriesScanned() int { return c.entriesScanned }
func (c *IndexSeekCursor) Hits() int            { return c.hits }

// MoveNext advances to the next matching table row, seeking c.table onto
// it and returning true, or false once the key range is exhausted.
func (c *IndexSeekCursor) MoveNext() (bool, error) {
	if !c.started {
		c.started = true
		ok, err := c.start()
		if err != nil || !ok {
			return false, err
		}
	} else {
		ok, err := c.idx.MoveNext()
		if err != nil || !ok {
			return false, err
		}
	}

	for {
		if c.pastRange {
			return false, nil
		}
		c.entriesScanned++

		payload, err := c.idx.Payload()
		if err != nil {
			return false, err
		}
		serialTypes, bodyOffset, err := record.ReadSerialTypes(payload, nil)
		if err != nil {
			return false, err
		}
		offsets := make([]int, len(serialTypes))
		if err := record.ComputeColumnOffsets(serialTypes, bodyOffset, offsets); err != nil {
			return false, err
		}

		cmp, err := compareFirstColumn(payload, serialTypes, offsets, c.seek.Value)
		if err != nil {
			return false, err
		}
		if pastRangeFor(c.seek.Op, cmp, c.seek.Upper, func() (int, error) {
			return compareFirstColumn(payload, serialTypes, offsets, c.seek.Upper)
		}) {
			c.pastRange = true
			return false, nil
		}

		residualOK, err := evalResidual(c.seek.Residual, payload, serialTypes, offsets)
		if err != nil {
			return false, err
		}
		if !residualOK {
			ok, err := c.idx.MoveNext()
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
			continue
		}

		c.hits++
		rowID, err := lastColumnRowID(payload, serialTypes, offsets)
		if err != nil {
			return false, err
		}
		if _, err := c.table.Seek(rowID); err != nil {
			return false, err
		}
		return true, nil
	}
}

// start positions the index cursor for the plan's leading operator.
func (c *IndexSeekCursor) start() (bool, error) {
	return startIndexSeek(c.idx, c.seek)
}

// startIndexSeek positions idx for seek's leading operator: Lt/Lte start
// from the lowest key in range, everything else seeks directly to the
// value (failing immediately on a missed Eq). Shared by IndexSeekCursor
// and IntersectionCursor's hash-side prepass (spec.md §4.7).
func startIndexSeek(idx *btreecursor.IndexCursor, seek *IndexSeek) (bool, error) {
	switch seek.Op {
	case predicate.OpLt, predicate.OpLte:
		if seek.Value.Class == serialtype.ClassText {
			_, err := idx.SeekFirstText("")
			return true, err
		}
		_, err := idx.SeekFirstInt(math.MinInt64)
		return true, err
	default:
		var exact bool
		var err error
		if seek.Value.Class == serialtype.ClassText {
			exact, err = idx.SeekFirstText(seek.Value.Text)
		} else {
			exact, err = idx.SeekFirstInt(seek.Value.Int)
		}
		if err != nil {
			return false, err
		}
		if seek.Op == predicate.OpEq && !exact {
			return false, nil
		}
		return true, nil
	}
}

// pastRangeFor reports whether the current entry's first column has
// moved past the range the plan's operator allows, terminating the scan.
func pastRangeFor(op predicate.Op, cmpToValue int, upper predicate.Value, cmpToUpper func() (int, error)) bool {
	switch op {
	case predicate.OpLt:
		return cmpToValue >= 0
	case predicate.OpLte:
		return cmpToValue > 0
	case predicate.OpEq:
		return cmpToValue != 0
	case predicate.OpBetween:
		u, err := cmpToUpper()
		if err != nil {
			return true
		}
		return u > 0
	default: // Gt, Gte: no upper bound
		return false
	}
}

func compareFirstColumn(payload []byte, serialTypes []int64, offsets []int, value predicate.Value) (int, error) {
	if value.Class == serialtype.ClassText {
		s, err := record.DecodeStringDirect(payload, serialTypes, offsets, 0)
		if err != nil {
			return 0, err
		}
		return record.UTF8Compare(s, value.Text), nil
	}
	class := serialtype.StorageClass(serialTypes[0])
	if class == serialtype.ClassReal || value.Class == serialtype.ClassReal {
		v, err := record.DecodeDoubleDirect(payload, serialTypes, offsets, 0)
		if err != nil {
			return 0, err
		}
		bound := value.Float
		if value.Class != serialtype.ClassReal {
			bound = float64(value.Int)
		}
		return record.CompareDouble(v, bound), nil
	}
	v, err := record.DecodeInt64Direct(payload, serialTypes, offsets, 0, 0, -1)
	if err != nil {
		return 0, err
	}
	return record.CompareInt64(v, value.Int), nil
}

// evalResidual checks every residual condition against the decoded index
// record, returning false on the first failing constraint. Residual
// conditions are recorded by scoreIndex in the order it scanned the
// index's trailing columns, and residual[i] is read from record column
// len(serialTypes)-1-len(residual)+i (the rowid is the last column);
// when every index column after the covered prefix carries a condition,
// that is column coveredPrefix+i.
func evalResidual(residual []SargableCondition, payload []byte, serialTypes []int64, offsets []int) (bool, error) {
	for i, cond := range residual {
		ord := len(serialTypes) - 1 - len(residual) + i
		ok, err := evalResidualAt(cond, payload, serialTypes, offsets, ord)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func evalResidualAt(cond SargableCondition, payload []byte, serialTypes []int64, offsets []int, ord int) (bool, error) {
	if ord >= len(serialTypes) {
		return false, sharcerr.OutOfRange("residual column ordinal past index record")
	}
	if record.IsNull(serialTypes, ord) {
		return false, nil
	}
	class := serialtype.StorageClass(serialTypes[ord])
	switch cond.Op {
	case predicate.OpEq, predicate.OpNeq, predicate.OpLt, predicate.OpLte, predicate.OpGt, predicate.OpGte, predicate.OpBetween:
		if class == serialtype.ClassReal || cond.Value.Class == serialtype.ClassReal {
			v, err := record.DecodeDoubleDirect(payload, serialTypes, offsets, ord)
			if err != nil {
				return false, err
			}
			return applyNumericOp(cond.Op, record.CompareDouble(v, asFloatValue(cond.Value)), func() int {
				return record.CompareDouble(v, asFloatValue(cond.Upper))
			}), nil
		}
		v, err := record.DecodeInt64Direct(payload, serialTypes, offsets, ord, 0, -1)
		if err != nil {
			return false, err
		}
		return applyNumericOp(cond.Op, record.CompareInt64(v, cond.Value.Int), func() int {
			return record.CompareInt64(v, cond.Upper.Int)
		}), nil
	default:
		return false, nil
	}
}

func asFloatValue(v predicate.Value) float64 {
	if v.Class == serialtype.ClassReal {
		return v.Float
	}
	return float64(v.Int)
}

func applyNumericOp(op predicate.Op, cmp int, cmpUpper func() int) bool {
	switch op {
	case predicate.OpEq:
		return cmp == 0
	case predicate.OpNeq:
		return cmp != 0
	case predicate.OpLt:
		return cmp < 0
	case predicate.OpLte:
		return cmp <= 0
	case predicate.OpGt:
		return cmp > 0
	case predicate.OpGte:
		return cmp >= 0
	case predicate.OpBetween:
		return cmp >= 0 && cmpUpper() <= 0
	default:
		return false
	}
}

func lastColumnRowID(payload []byte, serialTypes []int64, offsets []int) (int64, error) {
	last := len(serialTypes) - 1
	return record.DecodeInt64Direct(payload, serialTypes, offsets, last, 0, -1)
}
