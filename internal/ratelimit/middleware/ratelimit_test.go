package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimdesk/internal/ratelimit/metrics"
	"claimdesk/internal/ratelimit/models"
	"claimdesk/internal/ratelimit/store/bucket"
	"claimdesk/pkg/platform/circuit"
	"claimdesk/pkg/requestcontext"
)

type failingStore struct {
	calls int
}

func (f *failingStore) Allow(context.Context, string, int, time.Duration) (*models.RateLimitResult, error) {
	f.calls++
	return nil, errors.New("connection refused")
}

var testLimits = map[models.EndpointClass]models.Limit{
	models.ClassClaims: {RequestsPerWindow: 2, Window: time.Minute},
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func serve(t *testing.T, h http.Handler, ip string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/claims", nil)
	req = req.WithContext(requestcontext.WithClientMetadata(req.Context(), ip, "test-agent"))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
})

func TestRateLimitPerIP(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	mw := New(bucket.NewInMemory(), testLimits, newTestLogger(), WithMetrics(m))
	h := mw.RateLimit(models.ClassClaims)(okHandler)

	for i := 0; i < 2; i++ {
		rr := serve(t, h, "198.51.100.1")
		require.Equal(t, http.StatusNoContent, rr.Code)
		assert.Equal(t, "2", rr.Header().Get("X-RateLimit-Limit"))
	}

	rr := serve(t, h, "198.51.100.1")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
	assert.Contains(t, rr.Body.String(), "rate_limit_exceeded")

	rr = serve(t, h, "198.51.100.2")
	assert.Equal(t, http.StatusNoContent, rr.Code, "other clients keep their own window")

	assert.Equal(t, 3.0, testutil.ToFloat64(m.Decisions.WithLabelValues("claims", "allowed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Decisions.WithLabelValues("claims", "denied")))
}

func TestUnconfiguredClassAndDisabledPassThrough(t *testing.T) {
	store := &failingStore{}

	h := New(store, testLimits, newTestLogger()).RateLimit(models.ClassIdentity)(okHandler)
	assert.Equal(t, http.StatusNoContent, serve(t, h, "198.51.100.1").Code)

	h = New(store, testLimits, newTestLogger(), WithDisabled(true)).RateLimit(models.ClassClaims)(okHandler)
	assert.Equal(t, http.StatusNoContent, serve(t, h, "198.51.100.1").Code)
	assert.Zero(t, store.calls)
}

func TestStoreFailureFailsOpenWithoutFallback(t *testing.T) {
	mw := New(&failingStore{}, testLimits, newTestLogger())
	h := mw.RateLimit(models.ClassClaims)(okHandler)

	for i := 0; i < 10; i++ {
		rr := serve(t, h, "198.51.100.1")
		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Empty(t, rr.Header().Get("X-RateLimit-Status"))
	}
}

func TestOpenCircuitUsesFallback(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	breaker := circuit.New("test", circuit.WithFailureThreshold(2))
	mw := New(&failingStore{}, testLimits, newTestLogger(),
		WithFallback(bucket.NewInMemory()),
		WithBreaker(breaker),
		WithMetrics(m),
	)
	h := mw.RateLimit(models.ClassClaims)(okHandler)

	rr := serve(t, h, "198.51.100.1")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, rr.Header().Get("X-RateLimit-Status"))

	// second failure opens the circuit; fallback starts counting here
	rr = serve(t, h, "198.51.100.1")
	assert.True(t, breaker.IsOpen())
	assert.Equal(t, "degraded", rr.Header().Get("X-RateLimit-Status"))
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = serve(t, h, "198.51.100.1")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = serve(t, h, "198.51.100.1")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CircuitOpen))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.DegradedChecks))
}
