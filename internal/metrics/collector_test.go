package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, c *Collector) string {
	t.Helper()
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestCollector_RecordsCounters(t *testing.T) {
	c := NewCollector("relay")

	c.RecordHTTPRequest(http.MethodGet, "/agent-cards", http.StatusOK, 5*time.Millisecond)
	c.RecordRegistration()
	c.RecordHeartbeat(true)
	c.RecordHeartbeat(false)
	c.RecordRouteDecision(OutcomeRouted)
	c.RecordRouteDecision(OutcomeDangling)
	c.RecordTask("completed")

	body := scrape(t, c)
	assert.Contains(t, body, `relay_http_requests_total{method="GET",path="/agent-cards",status="200"} 1`)
	assert.Contains(t, body, `relay_agent_registrations_total 1`)
	assert.Contains(t, body, `relay_agent_heartbeats_total{status="ok"} 1`)
	assert.Contains(t, body, `relay_agent_heartbeats_total{status="error"} 1`)
	assert.Contains(t, body, `relay_route_decisions_total{outcome="routed"} 1`)
	assert.Contains(t, body, `relay_route_decisions_total{outcome="dangling"} 1`)
	assert.Contains(t, body, `relay_tasks_total{state="completed"} 1`)
}

func TestCollector_InstancesAreIsolated(t *testing.T) {
	a := NewCollector("relay")
	b := NewCollector("relay")
	a.RecordRegistration()

	assert.Contains(t, scrape(t, a), "relay_agent_registrations_total 1")
	assert.False(t, strings.Contains(scrape(t, b), "relay_agent_registrations_total 1"))
}
