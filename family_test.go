package recast

import (
	"encoding/binary"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wide struct {
	Kind uint8
	Data [8]byte
}

type word struct {
	V uint64
}

type carriesSlice struct {
	Kind uint8
	Body []byte
}

// frame has a two byte discriminant after a one byte version.
type frame struct {
	Version uint8
	Type    [2]byte
	Body    [5]byte
}

type frameHello struct {
	Version uint8
	Type    [2]byte
	Peer    [5]byte
}

func TestDeclareRejectsSizeMismatch(t *testing.T) {
	f := newPacketFamily(t)
	_, err := Declare[packet, wide](f, Declaration[wide]{Tags: []uint64{0x05}})
	require.ErrorIs(t, err, ErrSizeMismatch)
	var sm *SizeMismatchError
	require.ErrorAs(t, err, &sm)
	assert.Equal(t, uintptr(8), sm.BaseSize)
	assert.Equal(t, uintptr(9), sm.VariantSize)

	// Nothing was registered, so the tag is still free.
	_, err = Declare[packet, ping](f, Declaration[ping]{Tags: []uint64{0x05}})
	require.NoError(t, err)
	assert.Equal(t, []string{"ping"}, f.Variants())
}

func TestDeclareRejectsStricterAlignment(t *testing.T) {
	f := newPacketFamily(t)
	require.True(t, SizesMatch[packet, word]())
	_, err := Declare[packet, word](f, Declaration[word]{Tags: []uint64{0x01}})
	require.ErrorIs(t, err, ErrAlignment)
}

func TestDeclareRejectsPointers(t *testing.T) {
	_, err := NewFamily[carriesSlice]("bad", Layout{Width: 1})
	require.ErrorIs(t, err, ErrNotFixed)

	f := newPacketFamily(t)
	_, err = Declare[packet, carriesSlice](f, Declaration[carriesSlice]{Tags: []uint64{0x01}})
	require.ErrorIs(t, err, ErrNotFixed)
}

func TestDeclareRejectsOverlap(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	f, err := NewFamily[packet]("packet", Layout{Width: 1}, WithLogger(logger))
	require.NoError(t, err)

	_, err = Declare[packet, status](f, Declaration[status]{Tags: []uint64{0x02}})
	require.NoError(t, err)

	_, err = Declare[packet, ping](f, Declaration[ping]{Tags: []uint64{0x00, 0x02}})
	require.ErrorIs(t, err, ErrOverlappingClaim)
	var oe *OverlapError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, uint64(0x02), oe.Tag)
	assert.Equal(t, "status", oe.Existing)
	assert.Equal(t, "ping", oe.Variant)

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, "status", hook.LastEntry().Data["existing"])

	// The rejected declaration claimed nothing, not even its free tag.
	_, err = f.Classify(&packet{Kind: 0x00})
	require.ErrorIs(t, err, ErrUnknownDiscriminant)
	assert.Equal(t, []string{"status"}, f.Variants())
}

func TestDeclareRejectsBadTags(t *testing.T) {
	f := newPacketFamily(t)
	_, err := Declare[packet, ping](f, Declaration[ping]{})
	require.ErrorIs(t, err, ErrNoTags)

	_, err = Declare[packet, ping](f, Declaration[ping]{Tags: []uint64{0x100}})
	require.ErrorIs(t, err, ErrTagRange)

	_, err = Declare[packet, ping](f, Declaration[ping]{Tags: []uint64{0x00}})
	require.NoError(t, err)
	_, err = Declare[packet, ping](f, Declaration[ping]{Tags: []uint64{0x09}})
	require.ErrorIs(t, err, ErrDuplicateVariant)
}

func TestMustDeclarePanics(t *testing.T) {
	f := newPacketFamily(t)
	require.Panics(t, func() {
		MustDeclare[packet, wide](f, Declaration[wide]{Tags: []uint64{0x01}})
	})
	require.NotPanics(t, func() {
		MustDeclare[packet, status](f, Declaration[status]{Tags: []uint64{0x02}})
	})
	require.Panics(t, func() {
		MustFamily[packet]("bad", Layout{Offset: 8, Width: 1})
	})
}

func TestInvalidLayouts(t *testing.T) {
	for name, l := range map[string]Layout{
		"negative offset": {Offset: -1, Width: 1},
		"odd width":       {Offset: 0, Width: 3},
		"zero width":      {Offset: 0, Width: 0},
		"past the end":    {Offset: 7, Width: 2},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NewFamily[packet]("packet", l)
			require.ErrorIs(t, err, ErrInvalidLayout)
		})
	}
}

func TestClassify(t *testing.T) {
	f := newPacketFamily(t)
	declareStatus(t, f)
	declarePong(t, f)
	_, err := Declare[packet, ping](f, Declaration[ping]{Tags: []uint64{0x00}})
	require.NoError(t, err)

	assert.Equal(t, []string{"status", "pong", "ping"}, f.Variants())
	assert.Equal(t, "packet", f.Name())
	assert.Equal(t, 8, f.Size())

	for kind, want := range map[uint8]string{0x00: "ping", 0x01: "pong", 0x02: "status"} {
		got, err := f.Classify(&packet{Kind: kind})
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err = f.Classify(&packet{Kind: 0x7F})
	require.ErrorIs(t, err, ErrUnknownDiscriminant)
}

func TestMultiByteDiscriminant(t *testing.T) {
	for _, tc := range []struct {
		name  string
		order binary.ByteOrder
		raw   [2]byte
	}{
		{"big endian", nil, [2]byte{0x12, 0x34}},
		{"little endian", binary.LittleEndian, [2]byte{0x34, 0x12}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			layout := Layout{Offset: 1, Width: 2, Order: tc.order}
			f, err := NewFamily[frame]("frame", layout)
			require.NoError(t, err)
			hello, err := Declare[frame, frameHello](f, Declaration[frameHello]{Tags: []uint64{0x1234}})
			require.NoError(t, err)

			fr := frame{Version: 1, Type: tc.raw, Body: [5]byte{'a', 'b', 'c', 'd', 'e'}}
			require.Equal(t, uint64(0x1234), f.Discriminant(&fr))
			v, err := hello.Into(fr)
			require.NoError(t, err)
			assert.Equal(t, [5]byte{'a', 'b', 'c', 'd', 'e'}, v.Peer)

			var raw [8]byte
			require.NoError(t, layout.PutDiscriminant(raw[:], 0x1234))
			assert.Equal(t, tc.raw[:], raw[1:3])
			tag, err := layout.Discriminant(raw[:])
			require.NoError(t, err)
			assert.Equal(t, uint64(0x1234), tag)
		})
	}
}

func TestLayoutRejectsUnvalidatedUse(t *testing.T) {
	raw := make([]byte, 8)
	for name, l := range map[string]Layout{
		"odd width":   {Offset: 0, Width: 3},
		"bad order":   {Offset: 0, Width: 2, Order: foreignOrder{}},
		"short input": {Offset: 7, Width: 2},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := l.Discriminant(raw)
			require.ErrorIs(t, err, ErrInvalidLayout)
			require.ErrorIs(t, l.PutDiscriminant(raw, 1), ErrInvalidLayout)
		})
	}
	assert.Equal(t, make([]byte, 8), raw)

	err := Layout{Width: 1}.PutDiscriminant(raw, 0x100)
	require.ErrorIs(t, err, ErrTagRange)
	assert.Zero(t, raw[0])
}

// foreignOrder is a byte order the layout does not understand.
type foreignOrder struct{ binary.ByteOrder }

func (foreignOrder) String() string { return "foreign" }

func TestDeclareUnnamedVariants(t *testing.T) {
	f, err := NewFamily[[8]byte]("raw", Layout{Width: 1})
	require.NoError(t, err)

	bytesV, err := Declare[[8]byte, [8]uint8](f, Declaration[[8]uint8]{Tags: []uint64{0x01}})
	require.NoError(t, err)
	assert.Equal(t, "[8]uint8", bytesV.Name())

	halves, err := Declare[[8]byte, [2][4]byte](f, Declaration[[2][4]byte]{Tags: []uint64{0x02}})
	require.NoError(t, err)
	assert.Equal(t, "[2][4]uint8", halves.Name())
	assert.Equal(t, []string{"[8]uint8", "[2][4]uint8"}, f.Variants())

	_, err = bytesV.Into([8]byte{0x03})
	require.ErrorIs(t, err, ErrDiscriminantMismatch)
	assert.Contains(t, err.Error(), "recast: [8]uint8: discriminant 0x03")

	name, err := f.Classify(&[8]byte{0x02})
	require.NoError(t, err)
	assert.Equal(t, "[2][4]uint8", name)
}

func TestSizesMatch(t *testing.T) {
	assert.True(t, SizesMatch[packet, status]())
	assert.False(t, SizesMatch[packet, wide]())
}

func TestShapeCache(t *testing.T) {
	a, err := shapeFor[status]()
	require.NoError(t, err)
	b, err := shapeFor[status]()
	require.NoError(t, err)
	require.Same(t, a, b)
	assert.Equal(t, uintptr(8), a.size)
	assert.Equal(t, uintptr(1), a.align)
}
