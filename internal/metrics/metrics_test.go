package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveOp(t *testing.T) {
	m := New()
	m.ObserveOp("upsert", ResultOK)
	m.ObserveOp("upsert", ResultOK)
	m.ObserveOp("upsert", ResultInvalid)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.LedgerOps.WithLabelValues("upsert", ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LedgerOps.WithLabelValues("upsert", ResultInvalid)))
}

func TestSetCounts(t *testing.T) {
	m := New()
	m.SetCounts(4, 2)
	assert.Equal(t, 4.0, testutil.ToFloat64(m.Orders))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Members))
}

func TestObserveNotify(t *testing.T) {
	m := New()
	m.ObserveNotify("amqp", nil)
	m.ObserveNotify("amqp", errors.New("down"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsPublish.WithLabelValues("amqp", ResultError)))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveOp("delete", ResultOK)
		m.SetCounts(1, 1)
		m.ObserveHTTP("/api/orders", http.MethodGet, 200, time.Millisecond)
		m.ObserveNotify("ws", nil)
	})
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.ObserveHTTP("/api/orders", http.MethodGet, 200, 20*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "tiffin_http_request_duration_seconds_count")
	assert.Contains(t, body, `route="/api/orders"`)
	assert.Contains(t, body, "go_goroutines")
}
