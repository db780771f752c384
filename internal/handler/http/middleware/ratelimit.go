package middleware

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/cmlabs-hris/attendance-engine-go/internal/handler/http/response"
)

// limiterIdleTTL is how long an unused per-principal bucket survives
// before a sweep reclaims it.
const limiterIdleTTL = 10 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterPool hands out one token bucket per key and evicts buckets that
// have sat idle past the TTL, so the map stays bounded by the set of
// recently active principals.
type limiterPool struct {
	mu        sync.Mutex
	entries   map[string]*limiterEntry
	rps       rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func newLimiterPool(rps float64, burst int) *limiterPool {
	return &limiterPool{
		entries: make(map[string]*limiterEntry),
		rps:     rate.Limit(rps),
		burst:   burst,
		idleTTL: limiterIdleTTL,
		now:     time.Now,
	}
}

func (p *limiterPool) get(key string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if now.Sub(p.lastSweep) >= p.idleTTL {
		for k, e := range p.entries {
			if now.Sub(e.lastSeen) >= p.idleTTL {
				delete(p.entries, k)
			}
		}
		p.lastSweep = now
	}

	e, ok := p.entries[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(p.rps, p.burst)}
		p.entries[key] = e
	}
	e.lastSeen = now
	return e.limiter
}

func (p *limiterPool) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// RateLimit applies a per-principal token bucket. Check-in bursts from a
// single account (a looping QR scanner, a retrying client) are absorbed
// up to burst and then rejected with 429.
func RateLimit(rps float64, burst int) func(http.Handler) http.Handler {
	pool := newLimiterPool(rps, burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.RemoteAddr
			if p, ok := PrincipalFromContext(r.Context()); ok {
				key = p.UserID
			}

			if !pool.get(key).Allow() {
				response.TooManyRequests(w, "Too many requests, slow down")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
