package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func hit(limiter *ipLimiter, ip string) int {
	handler := limiter.middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("POST", "/currency/tip", nil)
	req.Header.Set("X-Forwarded-For", ip)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec.Code
}

func TestIPLimiterExhaustsBurst(t *testing.T) {
	limiter := newIPLimiter(1, 3)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, hit(limiter, "203.0.113.7"))
	}
	assert.Equal(t, http.StatusTooManyRequests, hit(limiter, "203.0.113.7"))
}

func TestIPLimiterIsolatesClients(t *testing.T) {
	limiter := newIPLimiter(1, 1)

	assert.Equal(t, http.StatusOK, hit(limiter, "203.0.113.7"))
	assert.Equal(t, http.StatusTooManyRequests, hit(limiter, "203.0.113.7"))

	// a second client gets its own bucket
	assert.Equal(t, http.StatusOK, hit(limiter, "198.51.100.9"))
}
