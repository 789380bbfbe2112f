package openelevation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingLookup struct {
	calls int
	value float64
	err   error
}

func (m *countingLookup) Elevation(_ context.Context, _, _ float64) (float64, error) {
	m.calls++
	return m.value, m.err
}

func TestCachedLookup_Hit(t *testing.T) {
	inner := &countingLookup{value: 74}
	cached := NewCachedLookup(inner, 10)

	v1, err := cached.Elevation(context.Background(), -8.83833, 13.23444)
	require.NoError(t, err)
	v2, err := cached.Elevation(context.Background(), -8.838331, 13.234441)
	require.NoError(t, err)

	assert.InDelta(t, 74.0, v1, 1e-9)
	assert.InDelta(t, 74.0, v2, 1e-9)
	assert.Equal(t, 1, inner.calls, "points equal at 5 decimals share an entry")
}

func TestCachedLookup_ErrorsAreNotCached(t *testing.T) {
	inner := &countingLookup{err: errors.New("503")}
	cached := NewCachedLookup(inner, 10)

	_, err := cached.Elevation(context.Background(), -8.8, 13.2)
	require.Error(t, err)

	inner.err = nil
	inner.value = 12
	v, err := cached.Elevation(context.Background(), -8.8, 13.2)
	require.NoError(t, err)
	assert.InDelta(t, 12.0, v, 1e-9)
	assert.Equal(t, 2, inner.calls)
}

func TestPointCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := newPointCache(2)
	c.put("a", 1)
	c.put("b", 2)
	_, _ = c.get("a") // b is now least recently used
	c.put("c", 3)

	_, ok := c.get("b")
	assert.False(t, ok)
	v, ok := c.get("a")
	assert.True(t, ok)
	assert.InDelta(t, 1.0, v, 1e-9)
	assert.Equal(t, 2, c.len())
}

func TestPointCache_UpdateExisting(t *testing.T) {
	c := newPointCache(2)
	c.put("a", 1)
	c.put("a", 5)

	v, ok := c.get("a")
	assert.True(t, ok)
	assert.InDelta(t, 5.0, v, 1e-9)
	assert.Equal(t, 1, c.len())
}
