package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorRegistersAndCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector("lexrag", reg)

	c.ObserveQuery("accepted")
	c.ObserveQuery("accepted")
	c.ObserveQuery("suppressed")
	c.ObserveStage("retrieve", 25*time.Millisecond)
	c.ObserveDraft()
	c.ObserveRegeneration()
	c.ObserveSuppression()
	c.ObserveDegraded("rerank")
	c.SetIndexedChunks(42)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.queriesTotal.WithLabelValues("accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.queriesTotal.WithLabelValues("suppressed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.drafts))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.degradedStages.WithLabelValues("rerank")))
	assert.Equal(t, 42.0, testutil.ToFloat64(c.indexedChunks))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 7)
}

func TestCollectorSeparateRegistries(t *testing.T) {
	// Two collectors must not collide when given distinct registries.
	a := NewCollector("lexrag", prometheus.NewRegistry())
	b := NewCollector("lexrag", prometheus.NewRegistry())
	a.ObserveDraft()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.drafts))
}
