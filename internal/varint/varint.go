// Package varint implements SQLite's variable-length big-endian integer
// encoding (spec.md §4.1).
//
// What: a 1..9 byte encoding where bytes 1..8 carry 7 data bits plus a
// high continuation bit and byte 9 carries a full 8 data bits. How: Read
// walks bytes until a byte with the continuation bit clear (or the 9th
// byte, which has none); Write is the exact inverse. Why: this is the
// integer encoding SQLite uses for payload sizes, rowids, and record
// serial-type headers — bit-exact compatibility requires reproducing it
// precisely, including the 9-byte special case.
package varint

import (
	"fmt"

	"github.com/revred/sharc/internal/sharcerr"
)

// MaxLen is the maximum number of bytes a varint can occupy.
const MaxLen = 9

// Read decodes a varint from the front of buf, returning the value and
// the number of bytes consumed. It fails on empty input or a buffer that
// ends before a terminating byte is found.
func Read(buf []byte) (value uint64, n int, err error) {
	if len(buf) == 0 {
		return 0, 0, fmt.Errorf("read varint from empty buffer: %w", sharcerr.ErrCorruptPage)
	}
	var v uint64
	limit := len(buf)
	if limit > MaxLen {
		limit = MaxLen
	}
	for i := 0; i < limit; i++ {
		b := buf[i]
		if i == 8 {
			// 9th byte: all 8 bits are data, no continuation bit.
			v = (v << 8) | uint64(b)
			return v, 9, nil
		}
		v = (v << 7) | uint64(b&0x7f)
		if b&0x80 == 0 {
			return v, i + 1, nil
		}
	}
	return 0, 0, fmt.Errorf("truncated varint: %w", sharcerr.ErrCorruptPage)
}

// EncodedLength returns the number of bytes Write(v) would produce.
func EncodedLength(v uint64) int {
	switch {
	case v <= 0x7f:
		return 1
	case v <= 0x3fff:
		return 2
	case v <= 0x1fffff:
		return 3
	case v <= 0xfffffff:
		return 4
	case v <= 0x7ffffffff:
		return 5
	case v <= 0x3ffffffffff:
		return 6
	case v <= 0x1ffffffffffff:
		return 7
	case v <= 0xffffffffffffff:
		return 8
	default:
		return 9
	}
}

// Write encodes v as a varint, returning the encoded bytes. The result is
// between 1 and 9 bytes, matching EncodedLength(v).
func Write(v uint64) []byte {
	n := EncodedLength(v)
	buf := make([]byte, n)
	if n == 9 {
		// The 9-byte form is special: byte 8 (the last byte) holds the
		// low 8 bits of v raw (no continuation bit — there is nothing
		// left to continue to). Bytes 0..7 then carry the remaining 56
		// bits, 7 at a time, most-significant chunk first.
		buf[8] = byte(v)
		v >>= 8
		for i := 7; i >= 0; i-- {
			buf[i] = byte(v&0x7f) | 0x80
			v >>= 7
		}
		return buf
	}
	for i := n - 1; i >= 0; i-- {
		b := byte(v & 0x7f)
		if i != n-1 {
			b |= 0x80
		}
		buf[i] = b
		v >>= 7
	}
	return buf
}
