package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory(t *testing.T) {
	s := NewMemory()

	_, found, err := s.Read("angle")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Write("angle", []byte{120}))
	value, found, err := s.Read("angle")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte{120}, value)
}

func TestMemoryFailWrites(t *testing.T) {
	s := NewMemory()
	s.FailWrites = true

	assert.Error(t, s.Write("angle", []byte{120}))
	_, found, err := s.Read("angle")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryFailAfter(t *testing.T) {
	s := NewMemory()
	require.NoError(t, s.Write("a", []byte{1}))

	s.FailAfter = s.Writes()
	require.NoError(t, s.Write("b", []byte{2})) // dropped, as if power was cut

	_, found, err := s.Read("b")
	require.NoError(t, err)
	assert.False(t, found)

	value, found, err := s.Read("a")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte{1}, value)
}
