package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorsExported(t *testing.T) {
	CounterOps.WithLabelValues(ResultDegraded).Inc()
	CounterAttempts.Observe(2)

	Repairs.WithLabelValues("users.totalLikes", "sweep").Inc()
	ObserveSweep(time.Now().Add(-time.Second))

	rec := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `foodtok_counter_ops_total{result="degraded"} 1`))
	assert.True(t, strings.Contains(body, "foodtok_counter_attempts_count 1"))
	assert.True(t, strings.Contains(body, `foodtok_repairs_total{kind="users.totalLikes",source="sweep"}`))
	assert.True(t, strings.Contains(body, "foodtok_sweep_duration_seconds_count"))
}
