package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncInFlight()
		m.DecInFlight()
		m.RecordHTTPRequest(http.MethodGet, "/", 200, time.Millisecond)
		m.OrderCreated()
		m.OrderTransition("pending", "paid")
		m.ReservationConflict()
		m.Login("success")
	})
	assert.Nil(t, m.Registry())
}

func TestDomainCounters(t *testing.T) {
	m := New()
	m.OrderCreated()
	m.OrderCreated()
	m.OrderTransition("pending", "delivered")
	m.Login("bad_password")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ordersCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.orderTransitions.WithLabelValues("pending", "delivered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.logins.WithLabelValues("bad_password")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "genshinshop_orders_created_total 2")
}
