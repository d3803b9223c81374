package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterIsIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	require.NoError(t, Register(reg))
}

func TestObserveBatchNormalisesOutcome(t *testing.T) {
	before := testutil.ToFloat64(batchesTotal.WithLabelValues(OutcomeSuccess))
	ObserveBatch(-time.Second, "weird")
	assert.Equal(t, before+1, testutil.ToFloat64(batchesTotal.WithLabelValues(OutcomeSuccess)))

	before = testutil.ToFloat64(batchesTotal.WithLabelValues(OutcomeError))
	ObserveBatch(time.Second, OutcomeError)
	assert.Equal(t, before+1, testutil.ToFloat64(batchesTotal.WithLabelValues(OutcomeError)))
}

func TestObserveCounters(t *testing.T) {
	before := testutil.ToFloat64(candidatesTotal.WithLabelValues("memory_leak"))
	ObserveCandidate("memory_leak")
	assert.Equal(t, before+1, testutil.ToFloat64(candidatesTotal.WithLabelValues("memory_leak")))

	before = testutil.ToFloat64(classificationsTotal.WithLabelValues("P0"))
	ObserveClassification("P0")
	assert.Equal(t, before+1, testutil.ToFloat64(classificationsTotal.WithLabelValues("P0")))
}
