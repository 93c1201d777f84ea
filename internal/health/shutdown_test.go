package health_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/leafline/backend-leafline/internal/health"
)

type noopChecker struct{}

func (noopChecker) PingRedis(context.Context, time.Duration) error   { return nil }
func (noopChecker) PingBackend(context.Context, time.Duration) error { return nil }

func readyStatus(handler health.Handler) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rr := httptest.NewRecorder()
	handler.Ready(rr, req)
	return rr
}

// During graceful shutdown the readiness gate flips before the server drains,
// so load balancers stop routing new requests while in-flight ones finish.
func TestReadinessAfterShutdown(t *testing.T) {
	t.Cleanup(func() { health.SetReady(true) })
	handler := health.Handler{Checker: noopChecker{}}

	health.SetReady(true)
	require.Equal(t, http.StatusOK, readyStatus(handler).Code)

	health.SetReady(false)
	drained := readyStatus(handler)
	require.Equal(t, http.StatusServiceUnavailable, drained.Code)
	require.Contains(t, drained.Body.String(), "shutting down")

	// flipping the gate back restores readiness without a restart
	health.SetReady(true)
	require.Equal(t, http.StatusOK, readyStatus(handler).Code)
}
