package server

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	logging "github.com/Station-Manager/weblog"
	"golang.org/x/time/rate"
)

// rateLimiter allows limit requests per window for each client address,
// refilling continuously.
type rateLimiter struct {
	limit  int
	window time.Duration
	log    *logging.Logger
	now    func() time.Time

	mu        sync.Mutex
	clients   map[string]*client
	lastSweep time.Time
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newRateLimiter(limit int, window time.Duration, log *logging.Logger) *rateLimiter {
	return &rateLimiter{
		limit:   limit,
		window:  window,
		log:     log,
		now:     time.Now,
		clients: make(map[string]*client),
	}
}

func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) >= rl.window {
		for k, c := range rl.clients {
			if now.Sub(c.lastSeen) >= rl.window {
				delete(rl.clients, k)
			}
		}
		rl.lastSweep = now
	}

	c, ok := rl.clients[ip]
	if !ok {
		every := rl.window / time.Duration(rl.limit)
		c = &client{limiter: rate.NewLimiter(rate.Every(every), rl.limit)}
		rl.clients[ip] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := remoteIP(r)
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.limit))
		if !rl.allow(ip) {
			rl.log.Warn("Rate limit exceeded for IP: " + ip)
			w.Header().Set("Retry-After", strconv.Itoa(int(rl.window/time.Duration(rl.limit)/time.Second)+1))
			writeError(w, http.StatusTooManyRequests, "Too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
