// Package recast reinterprets fixed-size binary records as more specific
// variant records without copying, and only after a discriminant check has
// proven the variant applies.
//
// A Family ties a base record type to the location of its discriminant.
// Each variant is declared against the family with the tag values that
// select it; declarations with a different size, a stricter alignment, a
// pointer-carrying layout, or a tag already claimed by a sibling are
// refused outright.
//
//	var Packets = recast.MustFamily[Packet]("packet", recast.Layout{Offset: 0, Width: 1})
//	var StatusType = recast.MustDeclare[Packet, Status](Packets, recast.Declaration[Status]{
//		Tags: []uint64{0x02},
//	})
//
// A declared Subtype then offers four ways in:
//
//   - Into consumes an owned record and returns the variant, or hands the
//     record back inside a *RejectedError on mismatch.
//   - Ref produces a read-only variant handle aliasing a *B, including an
//     element of a []B; Refs walks a whole slice.
//   - Exclusive produces a mutable variant view of a Cell and blocks every
//     base-shaped access to it until released.
//   - NewView, NewRefView and NewMutRefView wrap the same casts in named view
//     types validated at construction.
//
// Go has no borrow checker, so exclusivity over shared storage is tracked at
// run time by Cell. Casts never lock and never allocate on success.
package recast
