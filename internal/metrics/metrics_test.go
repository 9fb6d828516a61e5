package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Login("success")
		m.Lockout()
		m.TimerEvent("start")
		m.DayEvent("end")
		m.Purged(3)
		m.Export("ok")
		m.ObserveRequest("GET", "/api/healthz", "200", time.Millisecond)
	})
}

func TestCountersAndHandler(t *testing.T) {
	m := New()
	m.Login("success")
	m.Login("success")
	m.Login("invalid")
	m.Lockout()
	m.Purged(4)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.LoginsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LockoutsTotal))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.SessionsPurged))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "timetrack_logins_total")
}
