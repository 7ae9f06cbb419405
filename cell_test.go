package recast

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExclusiveBlocksBaseAccess(t *testing.T) {
	st := declareStatus(t, newPacketFamily(t))
	c := NewCell(packet{Kind: 0x02, Data: [7]byte{0, 0, 0, 7, 1, 2, 3}})

	mv, err := st.Exclusive(c)
	require.NoError(t, err)
	assert.Equal(t, -1, c.Borrows())

	_, err = c.Load()
	assert.ErrorIs(t, err, ErrBorrowed)
	_, err = c.Borrow()
	assert.ErrorIs(t, err, ErrBorrowed)
	_, err = c.BorrowMut()
	assert.ErrorIs(t, err, ErrBorrowed)
	_, err = st.Exclusive(c)
	assert.ErrorIs(t, err, ErrBorrowed)
	_, err = st.Borrow(c)
	assert.ErrorIs(t, err, ErrBorrowed)

	mv.Ptr().SetFlag(2, 0x12)
	assert.Equal(t, uint8(0x12), mv.Variant().Flags[2])

	mv.Release()
	mv.Release()
	assert.Equal(t, 0, c.Borrows())
	assert.Nil(t, mv.Ptr())
	assert.Panics(t, func() { mv.Variant() })

	p, err := c.Load()
	require.NoError(t, err)
	assert.Equal(t, packet{Kind: 0x02, Data: [7]byte{0, 0, 0, 7, 1, 2, 0x12}}, p)
}

func TestExclusiveFailsWhileShared(t *testing.T) {
	st := declareStatus(t, newPacketFamily(t))
	c := NewCell(packet{Kind: 0x02})

	sb, err := c.Borrow()
	require.NoError(t, err)
	cv, err := st.Borrow(c)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Borrows())

	_, err = st.Exclusive(c)
	require.ErrorIs(t, err, ErrBorrowed)
	_, err = c.BorrowMut()
	require.ErrorIs(t, err, ErrBorrowed)

	assert.Equal(t, packet{Kind: 0x02}, sb.Load())
	assert.Equal(t, status{Kind: 0x02}, cv.Variant())
	assert.Equal(t, packet{Kind: 0x02}, cv.Base())

	sb.Release()
	cv.Release()
	cv.Release()
	assert.Equal(t, 0, c.Borrows())
	assert.Panics(t, func() { sb.Load() })
	assert.Panics(t, func() { cv.Variant() })

	mv, err := st.Exclusive(c)
	require.NoError(t, err)
	mv.Release()
}

func TestFailedCellCastReleasesBorrow(t *testing.T) {
	st := declareStatus(t, newPacketFamily(t))
	c := NewCell(packet{Kind: 0x03})

	_, err := st.Exclusive(c)
	require.ErrorIs(t, err, ErrDiscriminantMismatch)
	assert.Equal(t, 0, c.Borrows())

	_, err = st.Borrow(c)
	require.ErrorIs(t, err, ErrDiscriminantMismatch)
	assert.Equal(t, 0, c.Borrows())

	p, err := c.Load()
	require.NoError(t, err)
	assert.Equal(t, packet{Kind: 0x03}, p)
}

func TestBaseMutBorrow(t *testing.T) {
	st := declareStatus(t, newPacketFamily(t))
	c := NewCell(packet{Kind: 0x03})

	mb, err := c.BorrowMut()
	require.NoError(t, err)
	_, err = st.Borrow(c)
	require.ErrorIs(t, err, ErrBorrowed)

	// Fix the record up through the base shape, then cast again.
	mb.Ptr().Kind = 0x02
	mb.Release()
	assert.Nil(t, mb.Ptr())

	cv, err := st.Borrow(c)
	require.NoError(t, err)
	defer cv.Release()
	assert.Equal(t, uint8(0x02), cv.Variant().Kind)
}

func TestConcurrentSharedBorrows(t *testing.T) {
	st := declareStatus(t, newPacketFamily(t))
	c := NewCell(packet{Kind: 0x02, Data: [7]byte{0, 0, 0, 42}})

	const readers = 16
	var (
		wg    sync.WaitGroup
		start sync.WaitGroup
		views = make(chan *CellView[packet, status], readers)
	)
	start.Add(1)
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start.Wait()
			cv, err := st.Borrow(c)
			if err != nil {
				t.Error(err)
				return
			}
			if got := cv.Variant().NodeID(); got != 42 {
				t.Errorf("node id %d", got)
			}
			views <- cv
		}()
	}
	start.Done()
	wg.Wait()
	close(views)

	assert.Equal(t, readers, c.Borrows())
	_, err := st.Exclusive(c)
	require.ErrorIs(t, err, ErrBorrowed)

	for cv := range views {
		cv.Release()
	}
	assert.Equal(t, 0, c.Borrows())
}
