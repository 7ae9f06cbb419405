package recast

import (
	"fmt"
	"iter"
	"reflect"
	"slices"
	"unsafe"

	"github.com/rawbytedev/recast/internal/common"
	"github.com/sirupsen/logrus"
)

// Declaration describes one variant of a family.
type Declaration[V any] struct {
	// Name identifies the variant in errors and in Family.Classify. It
	// defaults to V's type name, or its literal for unnamed types.
	Name string
	// Tags is the set of discriminant values that select this variant.
	Tags []uint64
	// Check, when set, runs after the discriminant matched and may reject
	// the record on structural grounds (a reserved byte that must be zero,
	// say). It sees a copy, so it cannot modify the record.
	Check func(V) error
}

// Subtype is a declared (B, V) pairing. It is immutable once Declare
// returns and safe for concurrent use.
type Subtype[B, V any] struct {
	family *Family[B]
	name   string
	tag    tagField
	tags   []uint64
	check  func(V) error
}

// Declare registers V as a variant of f. The pairing is refused unless V is
// pointer-free, exactly as large as B, no more strictly aligned than B, and
// claims at least one tag no sibling already claims.
func Declare[B, V any](f *Family[B], d Declaration[V]) (*Subtype[B, V], error) {
	vt := reflect.TypeFor[V]()
	name := d.Name
	if name == "" {
		name = vt.Name()
	}
	if name == "" {
		// Unnamed types such as [8]byte.
		name = vt.String()
	}
	vs, err := shapeOf(vt)
	if err != nil {
		return nil, fmt.Errorf("variant %s: %w", name, err)
	}
	if vs.size != f.shape.size {
		return nil, &SizeMismatchError{
			Base:        f.shape.name,
			Variant:     vs.name,
			BaseSize:    f.shape.size,
			VariantSize: vs.size,
		}
	}
	if vs.align > f.shape.align {
		return nil, fmt.Errorf("%w: variant %s needs %d-byte alignment, base %s guarantees %d",
			ErrAlignment, name, vs.align, f.shape.name, f.shape.align)
	}
	if len(d.Tags) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoTags, name)
	}
	tags := slices.Clone(d.Tags)
	slices.Sort(tags)
	tags = slices.Compact(tags)
	for _, t := range tags {
		if !common.FitsWidth(t, f.layout.Width) {
			return nil, fmt.Errorf("%w: 0x%x in %d bytes for %s", ErrTagRange, t, f.layout.Width, name)
		}
	}
	if err := f.claim(name, tags); err != nil {
		return nil, err
	}
	f.log.WithFields(logrus.Fields{
		"variant": name,
		"tags":    hexSet(tags),
	}).Debug("variant declared")
	return &Subtype[B, V]{
		family: f,
		name:   name,
		tag:    f.tag,
		tags:   tags,
		check:  d.Check,
	}, nil
}

// MustDeclare is like Declare but panics on error.
func MustDeclare[B, V any](f *Family[B], d Declaration[V]) *Subtype[B, V] {
	s, err := Declare[B, V](f, d)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Subtype[B, V]) Name() string { return s.name }

func (s *Subtype[B, V]) Family() *Family[B] { return s.family }

// Tags returns the sorted discriminant values accepted by the variant.
func (s *Subtype[B, V]) Tags() []uint64 { return slices.Clone(s.tags) }

func (s *Subtype[B, V]) matches(tag uint64) bool {
	for _, t := range s.tags {
		if t == tag {
			return true
		}
	}
	return false
}

// admit reports whether b qualifies without building an error.
func (s *Subtype[B, V]) admit(b *B) (tag uint64, matched bool, checkErr error) {
	tag = s.tag.read(RawBytes(b))
	if !s.matches(tag) {
		return tag, false, nil
	}
	if s.check != nil {
		checkErr = s.check(*reinterpret[B, V](b))
	}
	return tag, true, checkErr
}

// Validate is the discriminant validator for the pairing. It reads b and
// never writes it.
func (s *Subtype[B, V]) Validate(b *B) error {
	tag, matched, checkErr := s.admit(b)
	if !matched {
		return &DiscriminantMismatchError{Variant: s.name, Found: tag, Expected: slices.Clone(s.tags)}
	}
	if checkErr != nil {
		return &CheckError{Variant: s.name, Err: checkErr}
	}
	return nil
}

// Into consumes b and returns it reinterpreted as V. On failure the error
// is a *RejectedError[B] holding b unchanged; see Recover.
func (s *Subtype[B, V]) Into(b B) (V, error) {
	if err := s.Validate(&b); err != nil {
		var zero V
		return zero, &RejectedError[B]{Record: b, Err: err}
	}
	return *reinterpret[B, V](&b), nil
}

// Ref returns a read-only variant handle over the record b points to. The
// handle aliases *b and must not outlive it. It works the same for a
// standalone record and for &records[i] of a []B.
func (s *Subtype[B, V]) Ref(b *B) (Ref[V], error) {
	if err := s.Validate(b); err != nil {
		return Ref[V]{}, err
	}
	return Ref[V]{p: reinterpret[B, V](b)}, nil
}

// Refs iterates over the elements of records that qualify as V, yielding
// each index with a read-only handle into the slice's own storage.
func (s *Subtype[B, V]) Refs(records []B) iter.Seq2[int, Ref[V]] {
	return func(yield func(int, Ref[V]) bool) {
		for i := range records {
			if _, matched, checkErr := s.admit(&records[i]); !matched || checkErr != nil {
				continue
			}
			if !yield(i, Ref[V]{p: reinterpret[B, V](&records[i])}) {
				return
			}
		}
	}
}

// Upcast returns v as its base shape. Every variant is a valid base, so
// this cannot fail. There is no pointer form: a mutable base view of a
// variant could rewrite its discriminant.
func (s *Subtype[B, V]) Upcast(v V) B {
	// V may be less aligned than B, so copy rather than alias.
	var b B
	copy(RawBytes(&b), RawBytes(&v))
	return b
}

func reinterpret[From, To any](p *From) *To {
	return (*To)(unsafe.Pointer(p))
}
