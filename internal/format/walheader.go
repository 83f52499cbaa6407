package format

import (
	"encoding/binary"
	"fmt"

	"github.com/revred/sharc/internal/sharcerr"
)

// WALHeaderSize is the fixed size of a WAL file header.
const WALHeaderSize = 32

// WALFrameHeaderSize is the fixed size of a WAL frame header, immediately
// preceding each frame's page-size worth of data.
const WALFrameHeaderSize = 24

// WALMagicBigEndian and WALMagicLittleEndian distinguish the checksum byte
// order used for frames in this WAL file; SQLite picks one at file-creation
// time and keeps it for the file's lifetime.
const (
	WALMagicBigEndian    uint32 = 0x377f0683
	WALMagicLittleEndian uint32 = 0x377f0682
)

// WALHeader is the parsed 32-byte WAL file header.
type WALHeader struct {
	Magic          uint32
	FormatVersion  uint32
	PageSize       uint32
	CheckpointSeq  uint32
	Salt1          uint32
	Salt2          uint32
	Checksum1      uint32
	Checksum2      uint32
}

// BigEndianChecksums reports whether frame checksums in this WAL are
// big-endian, per the magic number.
func (h *WALHeader) BigEndianChecksums() bool { return h.Magic == WALMagicBigEndian }

// ParseWALHeader parses and validates the 32-byte WAL header.
func ParseWALHeader(buf []byte) (*WALHeader, error) {
	if len(buf) < WALHeaderSize {
		return nil, sharcerr.InvalidDatabase(fmt.Sprintf("WAL header too short: %d bytes", len(buf)))
	}
	magic := binary.BigEndian.Uint32(buf[0:4])
	if magic != WALMagicBigEndian && magic != WALMagicLittleEndian {
		return nil, sharcerr.InvalidDatabase(fmt.Sprintf("bad WAL magic %#x", magic))
	}
	h := &WALHeader{
		Magic:         magic,
		FormatVersion: binary.BigEndian.Uint32(buf[4:8]),
		PageSize:      binary.BigEndian.Uint32(buf[8:12]),
		CheckpointSeq: binary.BigEndian.Uint32(buf[12:16]),
		Salt1:         binary.BigEndian.Uint32(buf[16:20]),
		Salt2:         binary.BigEndian.Uint32(buf[20:24]),
		Checksum1:     binary.BigEndian.Uint32(buf[24:28]),
		Checksum2:     binary.BigEndian.Uint32(buf[28:32]),
	}
	if h.PageSize == 0 || h.PageSize&(h.PageSize-1) != 0 {
		return nil, sharcerr.InvalidDatabase(fmt.Sprintf("WAL page size %d is not a power of two", h.PageSize))
	}
	return h, nil
}

// MarshalWALHeader serializes h into a fresh 32-byte buffer.
func MarshalWALHeader(h *WALHeader) []byte {
	buf := make([]byte, WALHeaderSize)
	binary.BigEndian.PutUint32(buf[0:4], h.Magic)
	binary.BigEndian.PutUint32(buf[4:8], h.FormatVersion)
	binary.BigEndian.PutUint32(buf[8:12], h.PageSize)
	binary.BigEndian.PutUint32(buf[12:16], h.CheckpointSeq)
	binary.BigEndian.PutUint32(buf[16:20], h.Salt1)
	binary.BigEndian.PutUint32(buf[20:24], h.Salt2)
	binary.BigEndian.PutUint32(buf[24:28], h.Checksum1)
	binary.BigEndian.PutUint32(buf[28:32], h.Checksum2)
	return buf
}

// WALFrameHeader precedes each page image stored in a WAL file.
type WALFrameHeader struct {
	PageNumber   uint32
	DBSizeAfter  uint32 // non-zero only for a frame that commits a transaction
	Salt1        uint32
	Salt2        uint32
	Checksum1    uint32
	Checksum2    uint32
}

// IsCommit reports whether this frame ends a transaction (the database
// page count after the frame is recorded, non-zero).
func (h *WALFrameHeader) IsCommit() bool { return h.DBSizeAfter != 0 }

// ParseWALFrameHeader parses a 24-byte WAL frame header.
func ParseWALFrameHeader(buf []byte) (*WALFrameHeader, error) {
	if len(buf) < WALFrameHeaderSize {
		return nil, sharcerr.InvalidDatabase(fmt.Sprintf("WAL frame header too short: %d bytes", len(buf)))
	}
	return &WALFrameHeader{
		PageNumber:  binary.BigEndian.Uint32(buf[0:4]),
		DBSizeAfter: binary.BigEndian.Uint32(buf[4:8]),
		Salt1:       binary.BigEndian.Uint32(buf[8:12]),
		Salt2:       binary.BigEndian.Uint32(buf[12:16]),
		Checksum1:   binary.BigEndian.Uint32(buf[16:20]),
		Checksum2:   binary.BigEndian.Uint32(buf[20:24]),
	}, nil
}

// MarshalWALFrameHeader serializes h into a fresh 24-byte buffer.
func MarshalWALFrameHeader(h *WALFrameHeader) []byte {
	buf := make([]byte, WALFrameHeaderSize)
	binary.BigEndian.PutUint32(buf[0:4], h.PageNumber)
	binary.BigEndian.PutUint32(buf[4:8], h.DBSizeAfter)
	binary.BigEndian.PutUint32(buf[8:12], h.Salt1)
	binary.BigEndian.PutUint32(buf[12:16], h.Salt2)
	binary.BigEndian.PutUint32(buf[16:20], h.Checksum1)
	binary.BigEndian.PutUint32(buf[20:24], h.Checksum2)
	return buf
}

// WALChecksum computes SQLite's running WAL checksum over buf (which must
// have a length that is a multiple of 8), folding it onto the running
// (s1, s2) accumulator. bigEndian selects the byte order words are read in,
// per the WAL header's magic number.
func WALChecksum(bigEndian bool, s1, s2 uint32, buf []byte) (uint32, uint32) {
	get := binary.LittleEndian.Uint32
	if bigEndian {
		get = binary.BigEndian.Uint32
	}
	for i := 0; i+8 <= len(buf); i += 8 {
		s1 += get(buf[i:i+4]) + s2
		s2 += get(buf[i+4:i+8]) + s1
	}
	return s1, s2
}
