package recast

import "sync/atomic"

const exclusiveBorrow = -1

// Cell holds a base record and tracks who may access it. Any number of
// shared borrows may be live at once; an exclusive borrow, of either shape,
// excludes every other access. Conflicting borrows fail with ErrBorrowed
// instead of blocking.
//
// A Cell must not be copied after first use.
type Cell[B any] struct {
	rec B
	// 0 free, n > 0 shared borrows, -1 exclusive.
	state atomic.Int32
}

// NewCell wraps b.
func NewCell[B any](b B) *Cell[B] {
	return &Cell[B]{rec: b}
}

func (c *Cell[B]) acquireShared() bool {
	for {
		n := c.state.Load()
		if n < 0 {
			return false
		}
		if c.state.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

func (c *Cell[B]) releaseShared() { c.state.Add(-1) }

func (c *Cell[B]) acquireExclusive() bool {
	return c.state.CompareAndSwap(0, exclusiveBorrow)
}

func (c *Cell[B]) releaseExclusive() { c.state.Store(0) }

// Borrows reports the live shared borrow count, or -1 while an exclusive
// borrow is held.
func (c *Cell[B]) Borrows() int { return int(c.state.Load()) }

// Load copies the record out.
func (c *Cell[B]) Load() (B, error) {
	if !c.acquireShared() {
		var zero B
		return zero, ErrBorrowed
	}
	defer c.releaseShared()
	return c.rec, nil
}

// Borrow takes a shared base-shaped borrow.
func (c *Cell[B]) Borrow() (*SharedBorrow[B], error) {
	if !c.acquireShared() {
		return nil, ErrBorrowed
	}
	return &SharedBorrow[B]{c: c}, nil
}

// BorrowMut takes an exclusive base-shaped borrow.
func (c *Cell[B]) BorrowMut() (*MutBorrow[B], error) {
	if !c.acquireExclusive() {
		return nil, ErrBorrowed
	}
	return &MutBorrow[B]{c: c}, nil
}

// SharedBorrow is a live shared borrow of a Cell.
type SharedBorrow[B any] struct {
	c        *Cell[B]
	released atomic.Bool
}

// Load reads the record. It panics after Release.
func (s *SharedBorrow[B]) Load() B {
	if s.released.Load() {
		panic("recast: use of released borrow")
	}
	return s.c.rec
}

func (s *SharedBorrow[B]) ptr() *B {
	if s.released.Load() {
		panic("recast: use of released borrow")
	}
	return &s.c.rec
}

// Release ends the borrow. Calling it more than once is harmless.
func (s *SharedBorrow[B]) Release() {
	if s.released.CompareAndSwap(false, true) {
		s.c.releaseShared()
	}
}

// MutBorrow is a live exclusive base-shaped borrow of a Cell.
type MutBorrow[B any] struct {
	c        *Cell[B]
	released atomic.Bool
}

// Ptr returns the record for reading and writing, or nil after Release.
func (m *MutBorrow[B]) Ptr() *B {
	if m.released.Load() {
		return nil
	}
	return &m.c.rec
}

// Release ends the borrow. Calling it more than once is harmless.
func (m *MutBorrow[B]) Release() {
	if m.released.CompareAndSwap(false, true) {
		m.c.releaseExclusive()
	}
}

// CellView is a validated variant view holding a shared borrow of a Cell.
type CellView[B, V any] struct {
	b *SharedBorrow[B]
}

// Variant reads the record as V. It panics after Release.
func (v *CellView[B, V]) Variant() V { return *reinterpret[B, V](v.b.ptr()) }

// Base reads the record in its base shape. It panics after Release.
func (v *CellView[B, V]) Base() B { return v.b.Load() }

// Release ends the underlying shared borrow.
func (v *CellView[B, V]) Release() { v.b.Release() }

// MutRefView is an exclusive, mutable variant view of a Cell. While it is
// live the record cannot be reached in its base shape at all, not even for
// reading.
type MutRefView[B, V any] struct {
	c        *Cell[B]
	released atomic.Bool
}

// Ptr returns the record as a mutable V, or nil after Release. The pointer
// must not be retained past Release.
func (m *MutRefView[B, V]) Ptr() *V {
	if m.released.Load() {
		return nil
	}
	return reinterpret[B, V](&m.c.rec)
}

// Variant reads the record as V. It panics after Release.
func (m *MutRefView[B, V]) Variant() V {
	p := m.Ptr()
	if p == nil {
		panic("recast: use of released borrow")
	}
	return *p
}

// Release ends the exclusive borrow, making the record reachable in its
// base shape again. Calling it more than once is harmless.
func (m *MutRefView[B, V]) Release() {
	if m.released.CompareAndSwap(false, true) {
		m.c.releaseExclusive()
	}
}

// Borrow validates the record in c and returns a shared variant view. The
// cell's borrow is released again if validation fails.
func (s *Subtype[B, V]) Borrow(c *Cell[B]) (*CellView[B, V], error) {
	sb, err := c.Borrow()
	if err != nil {
		return nil, err
	}
	if err := s.Validate(&c.rec); err != nil {
		sb.Release()
		return nil, err
	}
	return &CellView[B, V]{b: sb}, nil
}

// Exclusive validates the record in c and returns a mutable variant view
// that locks out every other borrow until released. A record behind a plain
// *B only ever gets read-only variant access, through Ref.
func (s *Subtype[B, V]) Exclusive(c *Cell[B]) (*MutRefView[B, V], error) {
	if !c.acquireExclusive() {
		return nil, ErrBorrowed
	}
	if err := s.Validate(&c.rec); err != nil {
		c.releaseExclusive()
		return nil, err
	}
	return &MutRefView[B, V]{c: c}, nil
}
