package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCollector_IsolatedRegistries(t *testing.T) {
	// Two collectors with the same namespace must not collide on separate registries.
	first := NewCollector("weather_test", prometheus.NewRegistry())
	second := NewCollector("weather_test", prometheus.NewRegistry())

	first.RecordAPIRequest("/api/weather", "GET", "200")
	first.RecordAPIRequest("/api/weather", "GET", "200")
	second.RecordAPIRequest("/api/weather", "GET", "200")

	assert.Equal(t, 2.0, testutil.ToFloat64(first.APIRequestsTotal.WithLabelValues("/api/weather", "GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(second.APIRequestsTotal.WithLabelValues("/api/weather", "GET", "200")))
}

func TestCollector_Recorders(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector("weather_test", reg)

	c.RecordIngestionError("parse_error")
	c.RecordDBError("exec_error")
	c.RecordAPIError("validation_error", "/api/weather")
	c.UpdateDBConnectionPool(1, 2, 3)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.IngestionErrorsTotal.WithLabelValues("parse_error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.DBErrorsTotal.WithLabelValues("exec_error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.APIErrorsTotal.WithLabelValues("validation_error", "/api/weather")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.DBConnectionPool.WithLabelValues("total")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestTimer_ObserveDuration(t *testing.T) {
	c := NewCollector("weather_test", prometheus.NewRegistry())
	timer := c.NewTimer(c.IngestionDuration)
	assert.GreaterOrEqual(t, timer.ObserveDuration().Nanoseconds(), int64(0))
	assert.Equal(t, 1, testutil.CollectAndCount(c.IngestionDuration))
}
