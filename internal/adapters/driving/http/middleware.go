package httptransport

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/lexgraph/internal/logger"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// RequestID returns the id assigned to the request, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// requestID accepts a caller supplied id or assigns a new one.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// observe logs and measures each request by its route pattern.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		elapsed := time.Since(start)

		if s.ports.Metrics != nil {
			s.ports.Metrics.ObserveHTTP(route, r.Method, status, elapsed)
		}
		logger.Debug("%s %s %d %s request_id=%s", r.Method, route, status, elapsed.Round(time.Millisecond), RequestID(r.Context()))
	})
}

// idleLimiterTTL is how long an unused client limiter is kept.
const idleLimiterTTL = 10 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiter applies a token bucket per client address.
type clientLimiter struct {
	mu      sync.Mutex
	perMin  int
	clients map[string]*limiterEntry
	now     func() time.Time
}

func newClientLimiter(perMinute int) *clientLimiter {
	return &clientLimiter{
		perMin:  perMinute,
		clients: make(map[string]*limiterEntry),
		now:     time.Now,
	}
}

func (l *clientLimiter) allow(client string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	entry, ok := l.clients[client]
	if !ok {
		l.prune(now)
		entry = &limiterEntry{
			limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMin)), l.perMin),
		}
		l.clients[client] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

// prune drops idle clients (caller must hold mu).
func (l *clientLimiter) prune(now time.Time) {
	for client, entry := range l.clients {
		if now.Sub(entry.lastSeen) > idleLimiterTTL {
			delete(l.clients, client)
		}
	}
}

func (l *clientLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.allow(clientAddress(r)) {
			writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate_limited"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientAddress(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
