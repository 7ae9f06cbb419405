package recast

import (
	"fmt"
	"unsafe"
)

// RawBytes returns the storage of *b as a byte slice. The slice aliases *b.
func RawBytes[B any](b *B) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(b)), unsafe.Sizeof(*b))
}

// FromBytes views buf as a slice of records without copying. buf must hold a
// whole number of records and start at an address suitably aligned for B.
// The result aliases buf.
func FromBytes[B any](buf []byte) ([]B, error) {
	s, err := shapeFor[B]()
	if err != nil {
		return nil, err
	}
	if s.size == 0 || uintptr(len(buf))%s.size != 0 {
		return nil, fmt.Errorf("%w: %d bytes for %d-byte %s", ErrShortBuffer, len(buf), s.size, s.name)
	}
	if len(buf) == 0 {
		return []B{}, nil
	}
	if uintptr(unsafe.Pointer(unsafe.SliceData(buf)))%s.align != 0 {
		return nil, fmt.Errorf("%w: buffer not %d-byte aligned for %s", ErrAlignment, s.align, s.name)
	}
	return unsafe.Slice((*B)(unsafe.Pointer(unsafe.SliceData(buf))), uintptr(len(buf))/s.size), nil
}

// AsBytes views records as raw bytes without copying.
func AsBytes[B any](records []B) []byte {
	if len(records) == 0 {
		return []byte{}
	}
	var b B
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(records))), uintptr(len(records))*unsafe.Sizeof(b))
}
