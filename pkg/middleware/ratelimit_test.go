package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/pkg/logger"
)

func rateLimitRequest(remoteAddr string, claims *Claims) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	req.RemoteAddr = remoteAddr
	if claims != nil {
		req = req.WithContext(WithClaims(req.Context(), claims))
	}
	return req
}

func TestRateLimit_BurstThenRejects(t *testing.T) {
	h := RateLimit(RateLimitConfig{RPS: 0.5, Burst: 3}, logger.Discard())(okHandler())

	for i := range 3 {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, rateLimitRequest("10.0.0.1:1234", nil))
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, rateLimitRequest("10.0.0.1:5678", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
	assert.Equal(t, "RATE_LIMITED", decodeError(t, rec).Code)
}

func TestRateLimit_ClientsAreIndependent(t *testing.T) {
	h := RateLimit(RateLimitConfig{RPS: 1, Burst: 1}, logger.Discard())(okHandler())

	for _, req := range []*http.Request{
		rateLimitRequest("10.0.0.1:1", nil),
		rateLimitRequest("10.0.0.2:1", nil),
		rateLimitRequest("10.0.0.1:1", &Claims{UserID: "c-1"}),
		rateLimitRequest("10.0.0.1:1", &Claims{UserID: "c-2"}),
	} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, rateLimitRequest("10.0.0.9:1", &Claims{UserID: "c-1"}))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code, "a user is limited across addresses")
}

func TestRateLimit_IgnoresForwardedFor(t *testing.T) {
	h := RateLimit(RateLimitConfig{RPS: 1, Burst: 1}, logger.Discard())(okHandler())

	first := rateLimitRequest("10.0.0.1:1", nil)
	first.Header.Set("X-Forwarded-For", "1.1.1.1")
	second := rateLimitRequest("10.0.0.1:1", nil)
	second.Header.Set("X-Forwarded-For", "2.2.2.2")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, first)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, second)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRateLimit_DisabledPassesThrough(t *testing.T) {
	h := RateLimit(RateLimitConfig{}, logger.Discard())(okHandler())

	for range 20 {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, rateLimitRequest("10.0.0.1:1", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestLimiterStore_SweepsIdleClients(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := newLimiterStore(RateLimitConfig{RPS: 1, Burst: 1, IdleTTL: time.Minute})
	s.nowFunc = func() time.Time { return now }

	s.get("ip:a")
	s.get("ip:b")
	assert.Equal(t, 2, s.len())

	now = now.Add(2 * time.Minute)
	s.get("ip:c")
	assert.Equal(t, 1, s.len())
}
