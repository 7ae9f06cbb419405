package recast

import (
	"encoding/binary"
	"fmt"
	"reflect"
	"sync"
	"unsafe"

	"github.com/rawbytedev/recast/internal/common"
)

// Layout locates the discriminant inside a base record. It is fixed per base
// shape: every variant of a family reads its tag from the same place.
type Layout struct {
	Offset int
	Width  int // 1, 2, 4 or 8 bytes
	// Order decodes multi-byte discriminants. Nil means big-endian. The
	// record bytes themselves are never reordered.
	Order binary.ByteOrder
}

// little resolves Order. Only the big, little and native byte orders are
// understood.
func (l Layout) little() (bool, error) {
	switch l.Order {
	case nil, binary.BigEndian:
		return false, nil
	case binary.LittleEndian:
		return true, nil
	case binary.NativeEndian:
		return common.NativeLittle, nil
	}
	return false, fmt.Errorf("%w: unsupported byte order %s", ErrInvalidLayout, l.Order)
}

func (l Layout) validate(size uintptr) error {
	if l.Offset < 0 || !common.ValidWidth(l.Width) {
		return fmt.Errorf("%w: offset %d width %d", ErrInvalidLayout, l.Offset, l.Width)
	}
	if uintptr(l.Offset+l.Width) > size {
		return fmt.Errorf("%w: discriminant [%d,%d) exceeds %d-byte record",
			ErrInvalidLayout, l.Offset, l.Offset+l.Width, size)
	}
	_, err := l.little()
	return err
}

// field validates l against a record of size bytes and resolves it.
func (l Layout) field(size uintptr) (tagField, error) {
	if err := l.validate(size); err != nil {
		return tagField{}, err
	}
	little, _ := l.little()
	return tagField{offset: l.Offset, width: l.Width, little: little}, nil
}

// Discriminant reads the tag out of raw record bytes. Nothing past the
// discriminant subfield is looked at. It fails with ErrInvalidLayout if l
// is malformed or raw is too short to hold the discriminant.
func (l Layout) Discriminant(raw []byte) (uint64, error) {
	t, err := l.field(uintptr(len(raw)))
	if err != nil {
		return 0, err
	}
	return t.read(raw), nil
}

// PutDiscriminant writes tag into raw record bytes.
func (l Layout) PutDiscriminant(raw []byte, tag uint64) error {
	t, err := l.field(uintptr(len(raw)))
	if err != nil {
		return err
	}
	if !common.FitsWidth(tag, t.width) {
		return fmt.Errorf("%w: 0x%x in %d bytes", ErrTagRange, tag, t.width)
	}
	common.PutUint(raw[t.offset:t.offset+t.width], t.width, t.little, tag)
	return nil
}

// tagField is a validated Layout with its byte order resolved, so reading
// a tag never goes through an interface call.
type tagField struct {
	offset int
	width  int
	little bool
}

func (t tagField) read(raw []byte) uint64 {
	return common.ReadUint(raw[t.offset:t.offset+t.width], t.width, t.little)
}

// SizesMatch reports whether B and V occupy the same number of bytes.
// Callers that want a compile-time guarantee can pin the sizes with an
// array-length constant, e.g.
//
//	var _ [unsafe.Sizeof(Packet{}) - unsafe.Sizeof(Status{})]struct{}
//	var _ [unsafe.Sizeof(Status{}) - unsafe.Sizeof(Packet{})]struct{}
//
// which fails to build unless the difference is zero in both directions.
func SizesMatch[B, V any]() bool {
	var b B
	var v V
	return unsafe.Sizeof(b) == unsafe.Sizeof(v)
}

// shape caches what a reinterpretation needs to know about a type.
type shape struct {
	name  string
	size  uintptr
	align uintptr
}

var shapes = struct {
	mu sync.RWMutex
	m  map[reflect.Type]*shape
}{m: make(map[reflect.Type]*shape)}

// shapeOf inspects t once and caches the result. Types that carry
// pointers cannot be reinterpreted: the garbage collector would lose track
// of them.
func shapeOf(t reflect.Type) (*shape, error) {
	shapes.mu.RLock()
	if s, ok := shapes.m[t]; ok {
		shapes.mu.RUnlock()
		return s, nil
	}
	shapes.mu.RUnlock()

	if !pointerFree(t) {
		return nil, fmt.Errorf("%w: %s", ErrNotFixed, t)
	}

	shapes.mu.Lock()
	defer shapes.mu.Unlock()
	// Double-check
	if s, ok := shapes.m[t]; ok {
		return s, nil
	}
	s := &shape{name: t.String(), size: t.Size(), align: uintptr(t.Align())}
	shapes.m[t] = s
	return s, nil
}

func pointerFree(t reflect.Type) bool {
	switch k := t.Kind(); {
	case common.IsFixedKind(k):
		return true
	case k == reflect.Int, k == reflect.Uint, k == reflect.Uintptr:
		return true
	case k == reflect.Array:
		return pointerFree(t.Elem())
	case k == reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if !pointerFree(t.Field(i).Type) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func shapeFor[T any]() (*shape, error) {
	return shapeOf(reflect.TypeFor[T]())
}
