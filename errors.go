package recast

import (
	"errors"
	"fmt"
)

// Declaration-time errors. A declaration that fails with one of these is
// never registered.
var (
	ErrSizeMismatch     = errors.New("recast: base and variant sizes differ")
	ErrAlignment        = errors.New("recast: alignment incompatible")
	ErrNotFixed         = errors.New("recast: type is not a fixed-size pointer-free layout")
	ErrInvalidLayout    = errors.New("recast: invalid discriminant layout")
	ErrOverlappingClaim = errors.New("recast: discriminant already claimed by another variant")
	ErrDuplicateVariant = errors.New("recast: variant already declared")
	ErrNoTags           = errors.New("recast: variant declares no discriminant values")
	ErrTagRange         = errors.New("recast: discriminant value does not fit layout width")
)

// Runtime errors. All of them are recoverable and leave the record untouched.
var (
	ErrDiscriminantMismatch = errors.New("recast: discriminant mismatch")
	ErrCheckFailed          = errors.New("recast: structural check failed")
	ErrUnknownDiscriminant  = errors.New("recast: no variant claims discriminant")
	ErrBorrowed             = errors.New("recast: record is borrowed")
	ErrShortBuffer          = errors.New("recast: buffer length is not a multiple of the record size")
)

// SizeMismatchError is returned by Declare when a variant does not occupy
// exactly as many bytes as its base.
type SizeMismatchError struct {
	Base        string
	Variant     string
	BaseSize    uintptr
	VariantSize uintptr
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("recast: variant %s is %d bytes, base %s is %d bytes",
		e.Variant, e.VariantSize, e.Base, e.BaseSize)
}

func (e *SizeMismatchError) Is(target error) bool { return target == ErrSizeMismatch }

// OverlapError is returned by Declare when a sibling variant already claims
// one of the requested discriminant values.
type OverlapError struct {
	Tag      uint64
	Existing string
	Variant  string
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("recast: discriminant 0x%02x claimed by both %s and %s", e.Tag, e.Existing, e.Variant)
}

func (e *OverlapError) Is(target error) bool { return target == ErrOverlappingClaim }

// DiscriminantMismatchError reports the observed tag and the set the variant
// accepts.
type DiscriminantMismatchError struct {
	Variant  string
	Found    uint64
	Expected []uint64
}

func (e *DiscriminantMismatchError) Error() string {
	if len(e.Expected) == 1 {
		return fmt.Sprintf("recast: %s: discriminant 0x%02x does not match expected 0x%02x",
			e.Variant, e.Found, e.Expected[0])
	}
	return fmt.Sprintf("recast: %s: discriminant 0x%02x does not match expected set %s",
		e.Variant, e.Found, hexSet(e.Expected))
}

func (e *DiscriminantMismatchError) Is(target error) bool { return target == ErrDiscriminantMismatch }

// CheckError wraps the error returned by a declaration's structural hook.
type CheckError struct {
	Variant string
	Err     error
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("recast: %s: structural check failed: %v", e.Variant, e.Err)
}

func (e *CheckError) Is(target error) bool { return target == ErrCheckFailed }

func (e *CheckError) Unwrap() error { return e.Err }

// RejectedError hands an owned record back to the caller when a cast that
// consumed it fails. Use errors.As to recover Record.
type RejectedError[B any] struct {
	Record B
	Err    error
}

func (e *RejectedError[B]) Error() string { return e.Err.Error() }

func (e *RejectedError[B]) Unwrap() error { return e.Err }

// Recover extracts the record carried by a RejectedError[B] in err's chain.
func Recover[B any](err error) (B, bool) {
	var rej *RejectedError[B]
	if errors.As(err, &rej) {
		return rej.Record, true
	}
	var zero B
	return zero, false
}

func hexSet(tags []uint64) string {
	b := make([]byte, 0, 2+len(tags)*6)
	b = append(b, '{')
	for i, t := range tags {
		if i > 0 {
			b = append(b, ',')
		}
		b = fmt.Appendf(b, "0x%02x", t)
	}
	return string(append(b, '}'))
}
