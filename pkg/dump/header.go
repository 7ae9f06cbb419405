package dump

import (
	"encoding/binary"
	"fmt"
	"math"
)

const (
	Magic      = 0x31444352 // "RCD1"
	Version    = 1
	HeaderSize = 24

	// FlagZstd marks a zstd-compressed body.
	FlagZstd = 0x0001
)

// Header precedes the record body of a dump file. All fields are
// little-endian.
type Header struct {
	Magic      uint32 // 4B
	Version    uint16 // 2B
	Flags      uint16 // 2B
	RecordSize uint32 // 4B
	Count      uint64 // 8B
	BodyLen    uint32 // stored body length, after compression 4B
}

// EncodeHeader appends h to buf.
func EncodeHeader(buf []byte, h Header) []byte {
	off := len(buf)
	buf = append(buf, make([]byte, HeaderSize)...)
	b := buf[off:]
	binary.LittleEndian.PutUint32(b[0:], h.Magic)
	binary.LittleEndian.PutUint16(b[4:], h.Version)
	binary.LittleEndian.PutUint16(b[6:], h.Flags)
	binary.LittleEndian.PutUint32(b[8:], h.RecordSize)
	binary.LittleEndian.PutUint64(b[12:], h.Count)
	binary.LittleEndian.PutUint32(b[20:], h.BodyLen)
	return buf
}

// ParseHeader decodes and checks the header at the start of buf.
func ParseHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, fmt.Errorf("%w: header needs %d bytes, have %d", ErrTruncated, HeaderSize, len(buf))
	}
	h := Header{
		Magic:      binary.LittleEndian.Uint32(buf[0:]),
		Version:    binary.LittleEndian.Uint16(buf[4:]),
		Flags:      binary.LittleEndian.Uint16(buf[6:]),
		RecordSize: binary.LittleEndian.Uint32(buf[8:]),
		Count:      binary.LittleEndian.Uint64(buf[12:]),
		BodyLen:    binary.LittleEndian.Uint32(buf[20:]),
	}
	if h.Magic != Magic {
		return h, fmt.Errorf("%w: 0x%08x", ErrBadMagic, h.Magic)
	}
	if h.Version != Version {
		return h, fmt.Errorf("%w: %d", ErrVersion, h.Version)
	}
	if h.RecordSize == 0 {
		return h, fmt.Errorf("%w: zero", ErrRecordSize)
	}
	if h.Count > math.MaxUint64/uint64(h.RecordSize) {
		return h, fmt.Errorf("%w: %d records of %d bytes overflow", ErrCorrupt, h.Count, h.RecordSize)
	}
	return h, nil
}

// RawLen is the uncompressed body length. It only holds for a header that
// passed ParseHeader.
func (h Header) RawLen() uint64 { return h.Count * uint64(h.RecordSize) }

func (h Header) Compressed() bool { return h.Flags&FlagZstd != 0 }
