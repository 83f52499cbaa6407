// Package serialtype implements SQLite's per-column serial-type codec
// (spec.md §3, §4.2): the type+length tag that precedes every column's
// body bytes in a record.
//
// What: pure functions mapping a serial type to a storage class and a
// content byte length, plus the Infer* functions (InferInt, InferReal,
// InferText, InferBlob, InferGUID) which pick the minimal encoding for a
// value the way SQLite's own record writer does. How:
// table lookups and arithmetic identical to SQLite's vdbeaux.c
// serialTypeLen/serialTypeClass. Why: the record decoder (internal/record)
// needs these before it can compute column offsets; keeping them in a
// leaf package with no dependencies keeps that codec trivially testable.
package serialtype

import (
	"math"

	"github.com/revred/sharc/internal/sharcerr"
)

// Class identifies the storage class a serial type decodes to.
type Class uint8

const (
	ClassNull Class = iota
	ClassIntegral
	ClassReal
	ClassText
	ClassBlob
)

func (c Class) String() string {
	switch c {
	case ClassNull:
		return "NULL"
	case ClassIntegral:
		return "INTEGER"
	case ClassReal:
		return "REAL"
	case ClassText:
		return "TEXT"
	case ClassBlob:
		return "BLOB"
	default:
		return "UNKNOWN"
	}
}

// GUIDSerialType is the canonical serial type for a 16-byte RFC 4122 GUID
// blob (spec.md §3): a blob serial type, t=44, whose fixed length (16)
// lets readers recognize it without any out-of-band schema hint.
const GUIDSerialType = 44

// integralLen holds the fixed byte lengths for serial types 1..6, the
// integral non-constant encodings (1,2,3,4,6,8 bytes).
var integralLen = [7]int{0, 1, 2, 3, 4, 6, 8}

// ContentSize returns the number of body bytes a column with this serial
// type occupies. Reserved types (10, 11) and an integer overflow on blob
// /text length both fail.
func ContentSize(t int64) (int, error) {
	switch {
	case t == 0, t == 8, t == 9:
		return 0, nil
	case t >= 1 && t <= 6:
		return integralLen[t], nil
	case t == 7:
		return 8, nil
	case t == 10 || t == 11:
		return 0, sharcerr.UnsupportedFeature("reserved serial type")
	case t >= 12 && t%2 == 0:
		n := (t - 12) / 2
		if n > math.MaxInt32 {
			return 0, sharcerr.OutOfRange("blob length overflow")
		}
		return int(n), nil
	case t >= 13 && t%2 == 1:
		n := (t - 13) / 2
		if n > math.MaxInt32 {
			return 0, sharcerr.OutOfRange("text length overflow")
		}
		return int(n), nil
	default:
		return 0, sharcerr.UnsupportedFeature("negative serial type")
	}
}

// StorageClass returns the storage class of a serial type. Callers must
// validate the type with ContentSize first if they need to reject
// reserved/negative types; StorageClass itself does not error.
func StorageClass(t int64) Class {
	switch {
	case t == 0:
		return ClassNull
	case t >= 1 && t <= 6, t == 8, t == 9:
		return ClassIntegral
	case t == 7:
		return ClassReal
	case t >= 12 && t%2 == 0:
		return ClassBlob
	default:
		return ClassText
	}
}

// IsGUID reports whether t is the canonical 16-byte GUID blob encoding.
func IsGUID(t int64) bool { return t == GUIDSerialType }

// InferInt returns the minimal integral serial type for v: constants 0
// and 1 collapse to 8/9, otherwise the smallest signed width (1,2,3,4,6,8
// bytes) that can represent v.
func InferInt(v int64) int64 {
	switch v {
	case 0:
		return 8
	case 1:
		return 9
	}
	switch {
	case v >= -128 && v <= 127:
		return 1
	case v >= -32768 && v <= 32767:
		return 2
	case v >= -8388608 && v <= 8388607:
		return 3
	case v >= -2147483648 && v <= 2147483647:
		return 4
	case v >= -140737488355328 && v <= 140737488355327:
		return 5
	default:
		return 6
	}
}

// InferReal always returns 7 (8-byte IEEE-754 double); SQLite does not
// collapse real constants the way it does integers.
func InferReal(float64) int64 { return 7 }

// InferText returns the serial type for a UTF-8 text value of byteLen
// bytes: 2*byteLen+13.
func InferText(byteLen int) int64 { return int64(byteLen)*2 + 13 }

// InferBlob returns the serial type for an opaque blob of byteLen bytes:
// 2*byteLen+12.
func InferBlob(byteLen int) int64 { return int64(byteLen)*2 + 12 }

// InferGUID returns the canonical GUID serial type (44), valid only for a
// 16-byte big-endian RFC 4122 value.
func InferGUID() int64 { return GUIDSerialType }
