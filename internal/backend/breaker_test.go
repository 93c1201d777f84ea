package backend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestBreakerOpensAfterFailures(t *testing.T) {
	b := NewBreaker(3, 0.5, time.Hour, zerolog.Nop())

	for i := 0; i < 3; i++ {
		require.True(t, b.allow())
		b.report(false)
	}
	require.False(t, b.allow(), "breaker must open once the failure ratio is exceeded")
}

func TestBreakerHalfOpenRecovery(t *testing.T) {
	b := NewBreaker(2, 0.5, 10*time.Millisecond, zerolog.Nop())
	b.report(false)
	b.report(false)
	require.False(t, b.allow())

	time.Sleep(15 * time.Millisecond)
	// First call after cool-off is the probe.
	require.True(t, b.allow())
	b.report(true)
	require.True(t, b.allow(), "successful probe closes the breaker")
}

func TestBreakerHalfOpenReopens(t *testing.T) {
	b := NewBreaker(2, 0.5, 10*time.Millisecond, zerolog.Nop())
	b.report(false)
	b.report(false)

	time.Sleep(15 * time.Millisecond)
	require.True(t, b.allow())
	b.report(false)
	require.False(t, b.allow(), "failed probe reopens the breaker")
}

func TestClientBreakerShortCircuits(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "", time.Second)
	client.Breaker = NewBreaker(2, 0.5, time.Hour, zerolog.Nop())

	ctx := context.Background()
	_, err := client.ListProducts(ctx)
	require.Error(t, err)
	_, err = client.ListProducts(ctx)
	require.Error(t, err)

	before := hits.Load()
	_, err = client.ListProducts(ctx)
	require.ErrorIs(t, err, ErrCircuitOpen)
	require.Equal(t, before, hits.Load(), "open breaker must not reach the server")
}

func TestClientBreakerIgnoresNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "", time.Second)
	client.Breaker = NewBreaker(2, 0.5, time.Hour, zerolog.Nop())

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := client.GetProduct(ctx, "nope")
		require.ErrorIs(t, err, ErrNotFound)
	}
	_, err := client.GetProduct(ctx, "still-nope")
	require.ErrorIs(t, err, ErrNotFound, "404s are API answers, not dependency failures")
}
