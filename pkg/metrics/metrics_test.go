package metrics_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storefront/pkg/metrics"
)

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	c.RecordCartMutation("add", metrics.OutcomeOK)
	c.RecordCartMutation("add", metrics.OutcomeOK)
	c.RecordCartMutation("remove", metrics.OutcomeError)
	c.RecordRemoteLoad("basket", metrics.OutcomeOK, 20*time.Millisecond)
	c.RecordGuestProvision(metrics.OutcomeCache)
	c.RecordAuth("login", metrics.OutcomeError)

	n, err := testutil.GatherAndCount(reg, "storefront_cart_mutations_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n, "one series per label pair")

	n, err = testutil.GatherAndCount(reg,
		"storefront_remote_loads_total",
		"storefront_remote_load_seconds",
		"storefront_guest_provision_total",
		"storefront_auth_operations_total")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.NewCollector(reg).RecordGuestProvision(metrics.OutcomeOK)

	rec := httptest.NewRecorder()
	metrics.Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `storefront_guest_provision_total{outcome="ok"} 1`)
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, metrics.OutcomeOK, metrics.Outcome(nil))
	assert.Equal(t, metrics.OutcomeError, metrics.Outcome(errors.New("x")))
}

func TestNop(t *testing.T) {
	var r metrics.Recorder = metrics.Nop{}
	assert.NotPanics(t, func() {
		r.RecordCartMutation("add", metrics.OutcomeOK)
		r.RecordRemoteLoad("basket", metrics.OutcomeError, time.Second)
		r.RecordGuestProvision(metrics.OutcomeOK)
		r.RecordAuth("logout", metrics.OutcomeOK)
	})
}
