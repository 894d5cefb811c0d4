package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gonogo/internal/ratelimit/models"
	"gonogo/internal/ratelimit/service/requestlimit"
	"gonogo/internal/ratelimit/store/bucket"
	"gonogo/pkg/requestcontext"
)

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (*models.Result, error) {
	return nil, errors.New("store down")
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func requestAs(caller string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/v1/eligibility/check", nil)
	return r.WithContext(requestcontext.WithCaller(r.Context(), caller))
}

func TestRateLimit(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := bucket.New(bucket.WithClock(func() time.Time { return now }))
	svc, err := requestlimit.New(store, requestlimit.WithLimit(models.Limit{Requests: 2, Window: time.Minute}))
	require.NoError(t, err)
	h := New(svc, nil).RateLimit(okHandler())

	for i := range 2 {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, requestAs("key:abc"))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, strconv.Itoa(1-i), w.Header().Get("X-RateLimit-Remaining"))
		assert.Equal(t, strconv.FormatInt(now.Add(time.Minute).Unix(), 10), w.Header().Get("X-RateLimit-Reset"))
		assert.Empty(t, w.Header().Get("Retry-After"))
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, requestAs("key:abc"))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.Contains(t, w.Body.String(), "rate_limited")

	w = httptest.NewRecorder()
	h.ServeHTTP(w, requestAs("ip:10.0.0.9"))
	assert.Equal(t, http.StatusOK, w.Code, "budgets are per caller")
}

func TestRateLimitFailsOpen(t *testing.T) {
	w := httptest.NewRecorder()
	New(failingLimiter{}, nil).RateLimit(okHandler()).ServeHTTP(w, requestAs("key:abc"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
}

func TestRateLimitDisabled(t *testing.T) {
	w := httptest.NewRecorder()
	New(failingLimiter{}, nil, WithDisabled(true)).RateLimit(okHandler()).ServeHTTP(w, requestAs("key:abc"))
	assert.Equal(t, http.StatusOK, w.Code)
}
