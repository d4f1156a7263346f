package stats

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewStatsUpdater(t *testing.T) {
	su := NewStatsUpdater()
	assert.NotNil(t, su, "expected StatsUpdater to be non-nil")
	assert.NotNil(t, su.updateChan, "expected updateChan to be initialized")
}

func TestStatsUpdaterGauges(t *testing.T) {
	su := NewStatsUpdater()
	su.RegisterMetric(ActiveConnections)
	su.RegisterMetric(ActiveConnections)
	su.Run()
	defer su.Stop()

	su.Incr(ActiveConnections)
	su.Incr(ActiveConnections)
	su.Decr(ActiveConnections)
	su.Incr("unregistered")

	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(su.gauges[ActiveConnections]) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestStatsUpdaterHandler(t *testing.T) {
	su := NewStatsUpdater()
	su.ObserveEvent("chat-message")
	su.ObserveEvent("chat-message")

	rr := httptest.NewRecorder()
	su.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.True(t, strings.Contains(body, `blend_realtime_events_total{event="chat-message"} 2`))
	assert.True(t, strings.Contains(body, "blend_uptime_seconds"))
}
