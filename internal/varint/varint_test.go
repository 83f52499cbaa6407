package varint

import (
	"bytes"
	"math"
	"testing"
)

func TestWriteEdgeCases(t *testing.T) {
	cases := []struct {
		v    uint64
		want []byte
	}{
		{0, []byte{0x00}},
		{127, []byte{0x7F}},
		{128, []byte{0x81, 0x00}},
		{math.MaxUint64, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}},
		{math.MaxInt64, []byte{0xBF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}},
	}
	for _, c := range cases {
		got := Write(c.v)
		if !bytes.Equal(got, c.want) {
			t.Errorf("Write(%d) = % x, want % x", c.v, got, c.want)
		}
		if len(got) != EncodedLength(c.v) {
			t.Errorf("Write(%d) len = %d, EncodedLength = %d", c.v, len(got), EncodedLength(c.v))
		}
	}
}

func TestRoundTrip(t *testing.T) {
	values := []uint64{
		0, 1, 2, 63, 64, 127, 128, 129, 255, 256,
		1 << 13, 1<<13 - 1, 1<<13 + 1,
		1 << 20, 1 << 27, 1 << 34, 1 << 41, 1 << 48, 1 << 55,
		1<<56 - 1, 1 << 56, 1<<56 + 1,
		math.MaxInt64, math.MaxUint64,
	}
	for _, v := range values {
		buf := Write(v)
		got, n, err := Read(buf)
		if err != nil {
			t.Fatalf("Read(Write(%d)): %v", v, err)
		}
		if got != v {
			t.Errorf("Read(Write(%d)) = %d", v, got)
		}
		if n != len(buf) {
			t.Errorf("Read(Write(%d)) consumed %d bytes, want %d", v, n, len(buf))
		}
	}
}

func TestReadTrailingBytesIgnored(t *testing.T) {
	buf := append(Write(42), 0xAA, 0xBB)
	v, n, err := Read(buf)
	if err != nil {
		t.Fatal(err)
	}
	if v != 42 || n != 1 {
		t.Errorf("Read = (%d, %d), want (42, 1)", v, n)
	}
}

func TestReadEmpty(t *testing.T) {
	if _, _, err := Read(nil); err == nil {
		t.Fatal("expected error reading empty buffer")
	}
}

func TestReadTruncated(t *testing.T) {
	full := Write(math.MaxUint64)
	if _, _, err := Read(full[:8]); err == nil {
		t.Fatal("expected error reading truncated 9-byte varint")
	}
}
