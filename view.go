package recast

import "slices"

// Ref is a read-only variant handle over storage owned elsewhere. It is
// only produced by a successful cast and must not outlive the record it
// aliases. The zero Ref is invalid.
type Ref[V any] struct {
	p *V
}

// Valid reports whether r came from a successful cast.
func (r Ref[V]) Valid() bool { return r.p != nil }

// Load reads the aliased record as V. The value is a snapshot; field
// accessors on V should be value methods.
func (r Ref[V]) Load() V { return *r.p }

// Bytes returns a copy of the aliased record bytes.
func (r Ref[V]) Bytes() []byte { return slices.Clone(RawBytes(r.p)) }

// View owns a record that has been validated as V.
type View[B, V any] struct {
	rec B
}

// NewView validates b and takes it over. On failure the error carries b; see
// Recover.
func NewView[B, V any](s *Subtype[B, V], b B) (View[B, V], error) {
	if err := s.Validate(&b); err != nil {
		return View[B, V]{}, &RejectedError[B]{Record: b, Err: err}
	}
	return View[B, V]{rec: b}, nil
}

// Variant returns the record as V.
func (v View[B, V]) Variant() V { return *reinterpret[B, V](&v.rec) }

// Base returns the record in its base shape.
func (v View[B, V]) Base() B { return v.rec }

// RefView is a validated, borrowed view giving both variant and base shaped
// read access to a record owned elsewhere.
type RefView[B, V any] struct {
	base *B
}

// NewRefView validates *b and borrows it. b is left untouched on failure.
func NewRefView[B, V any](s *Subtype[B, V], b *B) (RefView[B, V], error) {
	if err := s.Validate(b); err != nil {
		return RefView[B, V]{}, err
	}
	return RefView[B, V]{base: b}, nil
}

// Variant reads the record as V.
func (r RefView[B, V]) Variant() V { return *reinterpret[B, V](r.base) }

// Base reads the record in its base shape.
func (r RefView[B, V]) Base() B { return *r.base }

// Ref narrows the view to a variant-only handle.
func (r RefView[B, V]) Ref() Ref[V] { return Ref[V]{p: reinterpret[B, V](r.base)} }

// NewMutRefView is s.Exclusive(c).
func NewMutRefView[B, V any](s *Subtype[B, V], c *Cell[B]) (*MutRefView[B, V], error) {
	return s.Exclusive(c)
}
