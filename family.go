package recast

import (
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/sirupsen/logrus"
)

// Family is the set of variants declared over one base shape B. It owns the
// discriminant layout and the table of claimed tags, so two siblings can
// never both claim the same value.
type Family[B any] struct {
	name   string
	layout Layout
	tag    tagField
	shape  *shape
	log    logrus.FieldLogger

	mu       sync.RWMutex
	claims   map[uint64]string
	variants []string
}

// Option configures a Family.
type Option func(*options)

type options struct {
	log logrus.FieldLogger
}

// WithLogger routes declaration logs to l.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) { o.log = l }
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// NewFamily registers base shape B with its discriminant layout.
func NewFamily[B any](name string, layout Layout, opts ...Option) (*Family[B], error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = discardLogger()
	}
	s, err := shapeFor[B]()
	if err != nil {
		return nil, fmt.Errorf("family %s: %w", name, err)
	}
	tag, err := layout.field(s.size)
	if err != nil {
		return nil, fmt.Errorf("family %s: %w", name, err)
	}
	f := &Family[B]{
		name:   name,
		layout: layout,
		tag:    tag,
		shape:  s,
		log:    o.log.WithField("family", name),
		claims: make(map[uint64]string),
	}
	f.log.WithFields(logrus.Fields{
		"base":   s.name,
		"size":   s.size,
		"offset": layout.Offset,
		"width":  layout.Width,
	}).Debug("family registered")
	return f, nil
}

// MustFamily is like NewFamily but panics on error. It is meant for
// package-level declarations.
func MustFamily[B any](name string, layout Layout, opts ...Option) *Family[B] {
	f, err := NewFamily[B](name, layout, opts...)
	if err != nil {
		panic(err)
	}
	return f
}

func (f *Family[B]) Name() string { return f.name }

func (f *Family[B]) Layout() Layout { return f.layout }

// Size is the byte size of every record in the family.
func (f *Family[B]) Size() int { return int(f.shape.size) }

// Discriminant reads b's tag.
func (f *Family[B]) Discriminant(b *B) uint64 {
	return f.tag.read(RawBytes(b))
}

// Classify names the declared variant whose tag set contains b's
// discriminant.
func (f *Family[B]) Classify(b *B) (string, error) {
	tag := f.Discriminant(b)
	f.mu.RLock()
	name, ok := f.claims[tag]
	f.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: 0x%02x in family %s", ErrUnknownDiscriminant, tag, f.name)
	}
	return name, nil
}

// Variants lists declared variant names in declaration order.
func (f *Family[B]) Variants() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Clone(f.variants)
}

// claim reserves tags for variant. Either every tag is claimed or none is.
func (f *Family[B]) claim(variant string, tags []uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if slices.Contains(f.variants, variant) {
		return fmt.Errorf("%w: %s in family %s", ErrDuplicateVariant, variant, f.name)
	}
	for _, t := range tags {
		if owner, ok := f.claims[t]; ok {
			f.log.WithFields(logrus.Fields{
				"variant":  variant,
				"existing": owner,
				"tag":      t,
			}).Warn("overlapping discriminant claim rejected")
			return &OverlapError{Tag: t, Existing: owner, Variant: variant}
		}
	}
	for _, t := range tags {
		f.claims[t] = variant
	}
	f.variants = append(f.variants, variant)
	return nil
}
