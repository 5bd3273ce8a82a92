package cache

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tupledb/querycore/core/keyenc"
)

func TestGetOrCreateReusesEntryAndRefcounts(t *testing.T) {
	c := New(nil)
	var built int32

	newVal := func() (interface{}, error) {
		atomic.AddInt32(&built, 1)
		return "artifact", nil
	}

	h1, err := c.GetOrCreate(keyenc.Key("k"), newVal)
	require.NoError(t, err)
	h2, err := c.GetOrCreate(keyenc.Key("k"), newVal)
	require.NoError(t, err)

	require.Equal(t, int32(1), atomic.LoadInt32(&built))
	require.Equal(t, "artifact", h1.Value())
	require.Equal(t, h1.Value(), h2.Value())
	require.Equal(t, 1, c.Len())

	h1.Release()
	require.Equal(t, 1, c.Len(), "entry survives while h2 still holds it")
	h2.Release()
	require.Equal(t, 0, c.Len(), "entry evicted once every handle is released")
}

func TestGetOrCreateDistinctKeys(t *testing.T) {
	c := New(nil)
	h1, err := c.GetOrCreate(keyenc.Key("a"), func() (interface{}, error) { return 1, nil })
	require.NoError(t, err)
	h2, err := c.GetOrCreate(keyenc.Key("b"), func() (interface{}, error) { return 2, nil })
	require.NoError(t, err)

	require.Equal(t, 1, h1.Value())
	require.Equal(t, 2, h2.Value())
	require.Equal(t, 2, c.Len())
}
