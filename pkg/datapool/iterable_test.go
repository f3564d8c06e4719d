package datapool

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect[T any](seq func(func(T) bool)) []T {
	var out []T
	seq(func(v T) bool {
		out = append(out, v)
		return true
	})
	return out
}

func TestIterable_Len(t *testing.T) {
	d := NewIterable([]string{"a", "b", "c"})
	n, err := d.Len()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestIterable_Checkout_Basic(t *testing.T) {
	d := NewIterable([]int{0, 1, 2, 3, 4})
	stop := 3
	seq, err := d.Checkout(1, &stop)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, collect(seq))
}

func TestIterable_Checkout_NilStopReadsToEnd(t *testing.T) {
	d := NewIterable([]int{0, 1, 2})
	seq, err := d.Checkout(1, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, collect(seq))
}

func TestIterable_Checkout_NonRecyclable_StopBeforeStartIsError(t *testing.T) {
	d := NewIterable([]int{0, 1, 2})
	stop := 1
	_, err := d.Checkout(2, &stop)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDatapoolExhausted))
}

func TestIterable_Checkout_NegativeStartIsError(t *testing.T) {
	d := NewIterable([]int{0, 1, 2})
	_, err := d.Checkout(-1, nil)
	require.Error(t, err)
}

func TestIterable_Checkout_StartBeyondLengthIsError(t *testing.T) {
	d := NewIterable([]int{0, 1, 2})
	_, err := d.Checkout(10, nil)
	require.Error(t, err)
}

func TestRecyclableIterable_WrapsAround(t *testing.T) {
	d := NewRecyclableIterable([]int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9})
	stop := 2
	seq, err := d.Checkout(8, &stop)
	require.NoError(t, err)
	assert.Equal(t, []int{8, 9, 0, 1}, collect(seq))
}

func TestRecyclableIterable_NonWrappingRangeUnaffected(t *testing.T) {
	d := NewRecyclableIterable([]int{0, 1, 2, 3, 4})
	stop := 3
	seq, err := d.Checkout(1, &stop)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, collect(seq))
}

func TestIterable_IndexCursor(t *testing.T) {
	d := NewIterable([]string{"a"})
	assert.Equal(t, 0, d.Index())
	d.SetIndex(5)
	assert.Equal(t, 5, d.Index())
}

func TestIterable_DefensiveCopyOfInput(t *testing.T) {
	items := []int{1, 2, 3}
	d := NewIterable(items)
	items[0] = 999

	seq, err := d.Checkout(0, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, collect(seq))
}
