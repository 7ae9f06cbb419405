package common

import (
	"encoding/binary"
	"reflect"
)

// IsFixedKind reports whether k is a fixed-size primitive kind.
func IsFixedKind(k reflect.Kind) bool {
	switch k {
	case reflect.Bool,
		reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128:
		return true
	default:
		return false
	}
}

// ValidWidth reports whether w is a width ReadUint understands.
func ValidWidth(w int) bool {
	switch w {
	case 1, 2, 4, 8:
		return true
	}
	return false
}

// ReadUint decodes an unsigned integer of width bytes from the start of b.
// b must hold at least width bytes and width must satisfy ValidWidth.
// The concrete byte orders are used directly so b does not escape.
func ReadUint(b []byte, width int, little bool) uint64 {
	switch {
	case width == 1:
		return uint64(b[0])
	case width == 2 && little:
		return uint64(binary.LittleEndian.Uint16(b))
	case width == 2:
		return uint64(binary.BigEndian.Uint16(b))
	case width == 4 && little:
		return uint64(binary.LittleEndian.Uint32(b))
	case width == 4:
		return uint64(binary.BigEndian.Uint32(b))
	case little:
		return binary.LittleEndian.Uint64(b)
	default:
		return binary.BigEndian.Uint64(b)
	}
}

// PutUint encodes v into the first width bytes of b.
func PutUint(b []byte, width int, little bool, v uint64) {
	switch {
	case width == 1:
		b[0] = byte(v)
	case width == 2 && little:
		binary.LittleEndian.PutUint16(b, uint16(v))
	case width == 2:
		binary.BigEndian.PutUint16(b, uint16(v))
	case width == 4 && little:
		binary.LittleEndian.PutUint32(b, uint32(v))
	case width == 4:
		binary.BigEndian.PutUint32(b, uint32(v))
	case little:
		binary.LittleEndian.PutUint64(b, v)
	default:
		binary.BigEndian.PutUint64(b, v)
	}
}

// NativeLittle reports whether the host byte order is little-endian.
var NativeLittle = binary.NativeEndian.Uint16([]byte{1, 0}) == 1

// FitsWidth reports whether v is representable in width bytes.
func FitsWidth(v uint64, width int) bool {
	if width >= 8 {
		return true
	}
	return v>>(uint(width)*8) == 0
}
