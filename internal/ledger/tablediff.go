package ledger

import (
	"crypto/sha256"

	"github.com/revred/sharc/internal/btreecursor"
)

// RowFingerprint is a 128-bit digest of one row's payload, cheap enough
// to compare without re-decoding the full record.
type RowFingerprint [16]byte

// FingerprintPayload derives a row's fingerprint from its raw record
// payload: the leading 16 bytes of sha256(payload).
func FingerprintPayload(payload []byte) RowFingerprint {
	sum := sha256.Sum256(payload)
	var fp RowFingerprint
	copy(fp[:], sum[:16])
	return fp
}

// RowStream yields (rowid, fingerprint) pairs in strictly ascending rowid
// order, matching the ordering guarantee every table cursor provides.
type RowStream interface {
	Next() (rowID int64, fp RowFingerprint, ok bool, err error)
}

// CursorRowStream adapts a btreecursor.TableCursor into a RowStream by
// fingerprinting each row's raw payload.
type CursorRowStream struct {
	cursor *btreecursor.TableCursor
}

// NewCursorRowStream wraps cursor. The cursor must be freshly reset (not
// yet advanced) since the first Next call performs the initial descent.
func NewCursorRowStream(cursor *btreecursor.TableCursor) *CursorRowStream {
	return &CursorRowStream{cursor: cursor}
}

func (s *CursorRowStream) Next() (int64, RowFingerprint, bool, error) {
	ok, err := s.cursor.MoveNext()
	if err != nil || !ok {
		return 0, RowFingerprint{}, false, err
	}
	payload, err := s.cursor.Payload()
	if err != nil {
		return 0, RowFingerprint{}, false, err
	}
	return s.cursor.RowID(), FingerprintPayload(payload), true, nil
}

// TableDiffResult is the structured output of DiffTable.
type TableDiffResult struct {
	Matching  int64
	Modified  int64
	LeftOnly  int64
	RightOnly int64
	Truncated bool
}

// DiffTable performs a streaming merge-join on rowid over left and right
// (spec.md §4.10): equal rowids compare fingerprints (Matching or
// Modified), a lower rowid on one side consumes that row as left-only or
// right-only. Once the number of differences (Modified + LeftOnly +
// RightOnly) reaches maxDiffs (when maxDiffs >= 0), detailed counting
// stops and the remaining rows are drained for counts only, with
// Truncated set to true. Runs in O(N+M) time and O(1) memory beyond the
// page cache; never returns an error for a mismatch — only for a failure
// reading either stream.
func DiffTable(left, right RowStream, maxDiffs int) (TableDiffResult, error) {
	var result TableDiffResult

	lID, lFP, lOK, err := left.Next()
	if err != nil {
		return result, err
	}
	rID, rFP, rOK, err := right.Next()
	if err != nil {
		return result, err
	}

	diffCount := func() int64 { return result.Modified + result.LeftOnly + result.RightOnly }

	for lOK && rOK {
		truncatedMode := maxDiffs >= 0 && diffCount() >= int64(maxDiffs)
		if truncatedMode {
			result.Truncated = true
		}
		switch {
		case lID == rID:
			if truncatedMode || lFP == rFP {
				result.Matching++
			} else {
				result.Modified++
			}
			lID, lFP, lOK, err = left.Next()
			if err != nil {
				return result, err
			}
			rID, rFP, rOK, err = right.Next()
			if err != nil {
				return result, err
			}
		case lID < rID:
			result.LeftOnly++
			lID, lFP, lOK, err = left.Next()
			if err != nil {
				return result, err
			}
		default:
			result.RightOnly++
			rID, rFP, rOK, err = right.Next()
			if err != nil {
				return result, err
			}
		}
	}
	for lOK {
		result.LeftOnly++
		lID, lFP, lOK, err = left.Next()
		_ = lID
		_ = lFP
		if err != nil {
			return result, err
		}
	}
	for rOK {
		result.RightOnly++
		rID, rFP, rOK, err = right.Next()
		_ = rID
		_ = rFP
		if err != nil {
			return result, err
		}
	}
	return result, nil
}
