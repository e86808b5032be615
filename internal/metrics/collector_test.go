package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollector_Counters(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.ObserveClassification("db_contact", false, true)
	c.ObserveClassification("db_contact", false, true)
	c.ObserveClassification("ai_fallback", true, false)
	c.ObserveSemantic("timeout")
	c.ObserveHandler("rag", "miss")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.classifications.WithLabelValues("db_contact", "false", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.classifications.WithLabelValues("ai_fallback", "true", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.semanticCalls.WithLabelValues("timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.handlerOutcomes.WithLabelValues("rag", "miss")))
}

func TestCollector_InFlight(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	release := c.TrackInFlight()
	assert.Equal(t, 1.0, testutil.ToFloat64(c.inFlight))
	release()
	assert.Equal(t, 0.0, testutil.ToFloat64(c.inFlight))
}

func TestCollector_NilSafe(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.ObserveClassification("rag", false, false)
		c.ObserveSemantic("ok")
		c.ObserveRetrieval(time.Millisecond, 0, errors.New("boom"))
		c.ObserveHandler("rag", "hit")
		c.TrackInFlight()()
	})
}
