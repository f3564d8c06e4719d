package datapool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsDatapool_ErasesElementType(t *testing.T) {
	d := NewIterable([]int{1, 2, 3})
	erased := AsDatapool[int](d)

	n, err := erased.Len()
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	seq, err := erased.Checkout(0, nil)
	require.NoError(t, err)
	var out []any
	seq(func(v any) bool { out = append(out, v); return true })
	assert.Equal(t, []any{1, 2, 3}, out)
}
