package attribution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_KeySet_Nil(t *testing.T) {
	var s *KeySet[string]
	assert.Equal(t, 0, s.Len())
	assert.False(t, s.Has("a"))
	assert.Nil(t, s.Keys())
	s.Each(func(string) { t.Fatal("unexpected key") })
	assert.True(t, s.Equal(nil))
	assert.False(t, s.Equal(newKeySet("a")))
}

func Test_KeySet_With(t *testing.T) {
	a := newKeySet(1)
	b := a.with(2)
	require.NotSame(t, a, b)
	assert.Equal(t, []int{1}, a.Keys())
	assert.Equal(t, []int{1, 2}, b.Keys())
	assert.True(t, b.Has(1))
	assert.True(t, b.Has(2))
	assert.False(t, a.Has(2))
}

func Test_KeySet_LargeSetIsIndexed(t *testing.T) {
	s := newKeySet(0)
	for i := 1; i < 3*smallSetSize; i++ {
		s = s.with(i)
		require.Equal(t, i+1, s.Len())
		require.Equal(t, s.Len() > smallSetSize, s.index != nil)
	}
	for i := 0; i < 3*smallSetSize; i++ {
		assert.True(t, s.Has(i))
	}
	assert.False(t, s.Has(-1))
}

func Test_KeySet_Equal(t *testing.T) {
	a := newKeySet(1).with(2).with(3)
	b := newKeySet(3).with(1).with(2)
	c := newKeySet(1).with(2)
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, c.Equal(a))

	var keys []int
	b.Each(func(k int) { keys = append(keys, k) })
	assert.Equal(t, []int{3, 1, 2}, keys)
}

func Test_KeySet_KeysIsACopy(t *testing.T) {
	s := newKeySet(1).with(2)
	keys := s.Keys()
	keys[0] = 42
	assert.False(t, s.Has(42))
	assert.True(t, s.Has(1))
}
