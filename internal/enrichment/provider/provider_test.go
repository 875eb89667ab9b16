package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadflow/internal/config"
	"leadflow/internal/logger"
)

func TestAPIProvider_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		switch r.URL.Query().Get("domain") {
		case "acme.com":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"name":"Acme","metrics":{"employees":1200}}`))
		case "broken.io":
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	p := NewAPIProvider(srv.URL+"/v2/companies/find", "secret", time.Second)

	data, err := p.Fetch(context.Background(), "acme.com")
	require.NoError(t, err)
	assert.Equal(t, "Acme", data["name"])

	_, err = p.Fetch(context.Background(), "unknown.org")
	assert.ErrorIs(t, err, ErrNoMatch)

	_, err = p.Fetch(context.Background(), "broken.io")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoMatch)
}

type scriptedProvider struct {
	calls  int32
	errs   []error
	result map[string]interface{}
}

func (p *scriptedProvider) Fetch(context.Context, string) (map[string]interface{}, error) {
	n := int(atomic.AddInt32(&p.calls, 1)) - 1
	if n < len(p.errs) && p.errs[n] != nil {
		return nil, p.errs[n]
	}
	return p.result, nil
}

func TestRetryProvider(t *testing.T) {
	boom := errors.New("timeout")

	t.Run("recovers within budget", func(t *testing.T) {
		inner := &scriptedProvider{errs: []error{boom, boom}, result: map[string]interface{}{"name": "Acme"}}
		p := NewRetryProvider(inner, 2, 0, logger.NopLogger())

		data, err := p.Fetch(context.Background(), "acme.com")
		require.NoError(t, err)
		assert.Equal(t, "Acme", data["name"])
		assert.EqualValues(t, 3, inner.calls)
	})

	t.Run("surfaces last error when exhausted", func(t *testing.T) {
		inner := &scriptedProvider{errs: []error{boom, boom, boom}}
		p := NewRetryProvider(inner, 1, 0, logger.NopLogger())

		_, err := p.Fetch(context.Background(), "acme.com")
		assert.ErrorIs(t, err, boom)
		assert.EqualValues(t, 2, inner.calls)
	})

	t.Run("no match is not retried", func(t *testing.T) {
		inner := &scriptedProvider{errs: []error{ErrNoMatch}}
		p := NewRetryProvider(inner, 3, 0, logger.NopLogger())

		_, err := p.Fetch(context.Background(), "acme.com")
		assert.ErrorIs(t, err, ErrNoMatch)
		assert.EqualValues(t, 1, inner.calls)
	})
}

func TestCacheProvider(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	inner := &scriptedProvider{result: map[string]interface{}{"name": "Acme"}}
	p := NewCacheProvider(inner, client, time.Hour, logger.NopLogger())

	for i := 0; i < 3; i++ {
		data, err := p.Fetch(context.Background(), "acme.com")
		require.NoError(t, err)
		assert.Equal(t, "Acme", data["name"])
	}
	assert.EqualValues(t, 1, inner.calls)
	assert.Equal(t, time.Hour, mr.TTL("enrich:acme.com"))

	mr.FastForward(2 * time.Hour)
	_, err := p.Fetch(context.Background(), "acme.com")
	require.NoError(t, err)
	assert.EqualValues(t, 2, inner.calls)
}

func TestCacheProvider_NoMatchNotCached(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	inner := &scriptedProvider{errs: []error{ErrNoMatch}}
	p := NewCacheProvider(inner, client, time.Hour, logger.NopLogger())

	_, err := p.Fetch(context.Background(), "nobody.org")
	assert.ErrorIs(t, err, ErrNoMatch)
	assert.False(t, mr.Exists("enrich:nobody.org"))
}

func TestCircuitBreakerProvider_NoMatchDoesNotTrip(t *testing.T) {
	inner := &scriptedProvider{errs: []error{ErrNoMatch, ErrNoMatch, ErrNoMatch, ErrNoMatch}}
	p := WrapWithCircuitBreaker(inner, "test-enrichment", config.CircuitBreakerConfig{
		Enabled: true, MinRequests: 2, FailureRatio: 0.5, Timeout: time.Minute,
	})

	for i := 0; i < 4; i++ {
		_, err := p.Fetch(context.Background(), "nobody.org")
		assert.ErrorIs(t, err, ErrNoMatch)
	}
	assert.False(t, p.(*CircuitBreakerProvider).IsOpen())
}

func TestCircuitBreakerProvider_OpensOnFailures(t *testing.T) {
	boom := errors.New("502")
	inner := &scriptedProvider{errs: []error{boom, boom, boom, boom}}
	p := WrapWithCircuitBreaker(inner, "test-enrichment-fail", config.CircuitBreakerConfig{
		Enabled: true, MinRequests: 2, FailureRatio: 0.5, Timeout: time.Minute,
	})

	for i := 0; i < 3; i++ {
		_, _ = p.Fetch(context.Background(), "acme.com")
	}
	assert.True(t, p.(*CircuitBreakerProvider).IsOpen())
	assert.EqualValues(t, 2, inner.calls)
}
