package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCacheGauges_ReadAtScrapeTime(t *testing.T) {
	levels, entries := 0, 0
	gauges := NewCacheGauges(func() int { return levels }, func() int { return entries })
	require.Len(t, gauges, 2)

	assert.InDelta(t, 0.0, testutil.ToFloat64(gauges[0]), 1e-9)

	levels, entries = 2, 37
	assert.InDelta(t, 2.0, testutil.ToFloat64(gauges[0]), 1e-9)
	assert.InDelta(t, 37.0, testutil.ToFloat64(gauges[1]), 1e-9)
}
