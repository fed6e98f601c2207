package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiter hands each client IP its own token bucket.
type ipLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rps      rate.Limit
	burst    int
}

func newIPLimiter(rps rate.Limit, burst int) *ipLimiter {
	return &ipLimiter{
		visitors: make(map[string]*visitor),
		rps:      rps,
		burst:    burst,
	}
}

var (
	// apiLimiter is sized for an app cold start fetching streak, balance,
	// challenge and notifications back to back.
	apiLimiter = newIPLimiter(5, 30)

	// economyLimiter guards the mutation endpoints. Check-ins, tips and
	// restores lock user rows, so a runaway client must not hold the pool
	// hostage, and no legitimate client checks in more than once per day.
	economyLimiter = newIPLimiter(1, 5)
)

func RateLimitMiddleware(next http.Handler) http.Handler {
	return apiLimiter.middleware(next)
}

// EconomyRateLimitMiddleware wraps the row-locking mutation endpoints with
// the tighter bucket. It stacks on top of the global limiter.
func EconomyRateLimitMiddleware(next http.Handler) http.Handler {
	return economyLimiter.middleware(next)
}

func (l *ipLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.Header.Get("X-Forwarded-For")
		if ip == "" {
			ip, _, _ = net.SplitHostPort(r.RemoteAddr)
		}

		if !l.getLimiter(ip).Allow() {
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (l *ipLimiter) getLimiter(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, exists := l.visitors[ip]
	if !exists {
		limiter := rate.NewLimiter(l.rps, l.burst)
		l.visitors[ip] = &visitor{limiter, time.Now()}
		return limiter
	}

	v.lastSeen = time.Now()
	return v.limiter
}

func (l *ipLimiter) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, v := range l.visitors {
		if time.Since(v.lastSeen) > 3*time.Minute {
			delete(l.visitors, ip)
		}
	}
}

func CleanupVisitors() {
	for {
		time.Sleep(time.Minute)
		apiLimiter.cleanup()
		economyLimiter.cleanup()
	}
}
