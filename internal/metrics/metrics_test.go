package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.HTTPRequests.WithLabelValues("GET", "/v1/users", "200").Inc()
	m.HTTPDuration.WithLabelValues("GET", "/v1/users").Observe(0.01)
	m.Operations.WithLabelValues("create", "ok").Add(2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/v1/users", "200")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Operations.WithLabelValues("create", "ok")))

	count, err := testutil.GatherAndCount(reg,
		"user_service_http_requests_total",
		"user_service_http_request_duration_seconds",
		"user_service_operations_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestNew_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}

func TestHandler(t *testing.T) {
	m := New(nil)
	m.Operations.WithLabelValues("delete", "not_found").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `user_service_operations_total{operation="delete",result="not_found"} 1`)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
