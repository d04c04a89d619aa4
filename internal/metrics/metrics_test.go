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

func TestObserveHTTP(t *testing.T) {
	m := New()
	m.ObserveHTTP("get", "/charms/:id", 200, 10*time.Millisecond)
	m.ObserveHTTP("GET", "/charms/:id", 200, 10*time.Millisecond)
	m.ObserveHTTP("GET", "", 404, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/charms/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "unmatched", "404")))
}

func TestCharmTransition(t *testing.T) {
	m := New()
	m.CharmTransition(TransitionPublished)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.charmTransitions.WithLabelValues(TransitionPublished)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.charmTransitions.WithLabelValues(TransitionCreated)))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveHTTP("GET", "/", 200, time.Millisecond)
		m.CharmTransition(TransitionCreated)
	})
}

func TestHandler(t *testing.T) {
	m := New()
	m.CharmTransition(TransitionCreated)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `omamori_charm_transitions_total{transition="created"} 1`)
}
