package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaybus/mongostore/internal/metrics"
)

func TestMetrics(t *testing.T) {
	h := promhttp.Handler()

	metrics.ConflictCounter.WithLabelValues("OrderSaga").Inc()
	metrics.IndexCreatedCounter.WithLabelValues("OrderSaga", "CustomerID").Inc()
	metrics.IndexCheckHistogram.WithLabelValues("OrderSaga").Observe(0.02)
	metrics.TimeoutLeasedCounter.Add(3)
	metrics.TimeoutProcessedCounter.Inc()
	metrics.SubscriptionWriteCounter.WithLabelValues("OrderPlaced", "store").Inc()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "mongostore_saga_conflict_count_total")
	assert.Contains(t, body, "mongostore_saga_index_created_count_total")
	assert.Contains(t, body, "mongostore_saga_index_check_duration_seconds")
	assert.Contains(t, body, "mongostore_timeout_leased_count_total 3")
	assert.Contains(t, body, "mongostore_timeout_processed_count_total 1")
	assert.Contains(t, body, "mongostore_subscription_write_count_total")
	assert.True(t, strings.Contains(body, `saga_type="OrderSaga"`))
}
