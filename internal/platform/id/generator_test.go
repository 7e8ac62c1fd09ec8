package id

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestUUIDGenerator_NewID(t *testing.T) {
	t.Parallel()

	gen := NewUUIDGenerator()
	first, err := gen.NewID()
	require.NoError(t, err)
	second, err := gen.NewID()
	require.NoError(t, err)

	require.NotEqual(t, first, second)
	_, err = uuid.Parse(first)
	require.NoError(t, err)
}

func TestSequence_Exhausts(t *testing.T) {
	t.Parallel()

	seq := NewSequence("a", "b")
	v, err := seq.NewID()
	require.NoError(t, err)
	require.Equal(t, "a", v)
	v, err = seq.NewID()
	require.NoError(t, err)
	require.Equal(t, "b", v)
	_, err = seq.NewID()
	require.Error(t, err)
}
