package proxy

import (
	"context"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// RequestIDHeader carries the request ID back to the client.
const RequestIDHeader = "X-Request-ID"

type ctxKey int

const requestIDKey ctxKey = iota

// RequestID returns the request ID stored in ctx, or "" if none.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// requestID tags every request with an ID, reusing a client-supplied one.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// accessLog logs one line per request and records request metrics.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := routePattern(r)
		elapsed := time.Since(start)

		s.metrics.Requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
		s.metrics.Latency.WithLabelValues(route).Observe(elapsed.Seconds())

		s.logger.InfoContext(r.Context(), "request",
			"request_id", RequestID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"query", r.URL.RawQuery,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", elapsed,
		)
	})
}

// routePattern returns the matched chi pattern so metrics stay low-cardinality.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// limiterIdleTTL is how long a client's bucket survives without requests.
const limiterIdleTTL = 10 * time.Minute

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiter keeps one token bucket per client address. Buckets idle for
// longer than limiterIdleTTL are dropped on the next sweep.
type clientLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	clients   map[string]*clientBucket
	lastSweep time.Time
	now       func() time.Time
}

func newClientLimiter(limit rate.Limit, burst int) *clientLimiter {
	return &clientLimiter{
		limit:     limit,
		burst:     burst,
		clients:   make(map[string]*clientBucket),
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (c *clientLimiter) allow(client string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if now.Sub(c.lastSweep) >= limiterIdleTTL {
		for addr, b := range c.clients {
			if now.Sub(b.lastSeen) >= limiterIdleTTL {
				delete(c.clients, addr)
			}
		}
		c.lastSweep = now
	}

	b, ok := c.clients[client]
	if !ok {
		b = &clientBucket{limiter: rate.NewLimiter(c.limit, c.burst)}
		c.clients[client] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

func (c *clientLimiter) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.clients)
}

func (c *clientLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !c.allow(clientAddr(r)) {
			w.Header().Set("Retry-After", "1")
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// realIP applies chi's RealIP only to requests arriving from a trusted
// proxy. Other requests keep the peer address.
func (s *Server) realIP(next http.Handler) http.Handler {
	forwarded := middleware.RealIP(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.trustedPeer(r) {
			forwarded.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) trustedPeer(r *http.Request) bool {
	if len(s.trustedProxies) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(clientAddr(r))
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range s.trustedProxies {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// clientAddr strips the port from RemoteAddr.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
