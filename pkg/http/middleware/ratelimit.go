package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	applogger "TFoldSV/pkg/logger"
)

const minIdleTTL = 10 * time.Minute

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter keeps one token bucket per key. Keys idle longer than the time their bucket
// needs to refill are dropped, so the map only holds recently active clients.
type Limiter struct {
	mu        sync.Mutex
	clients   map[string]*client
	limit     rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func NewLimiter(burst int, perSec float64) *Limiter {
	idle := minIdleTTL
	if perSec > 0 {
		if refill := time.Duration(float64(burst) / perSec * float64(time.Second)); refill > idle {
			idle = refill
		}
	}
	return &Limiter{
		clients: make(map[string]*client),
		limit:   rate.Limit(perSec),
		burst:   burst,
		idleTTL: idle,
		now:     time.Now,
	}
}

// Allow reports whether one token can be consumed for key.
func (l *Limiter) Allow(key string) bool {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweep(now)
	c, ok := l.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

func (l *Limiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.idleTTL {
		return
	}
	l.lastSweep = now
	for key, c := range l.clients {
		if now.Sub(c.lastSeen) >= l.idleTTL {
			delete(l.clients, key)
		}
	}
}

// RateLimit rejects requests under prefix with 429 once the client IP runs out of tokens.
func RateLimit(l *Limiter, prefix string, log *applogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !strings.HasPrefix(c.Request().URL.Path, prefix) {
				return next(c)
			}
			ip := c.RealIP()
			if !l.Allow(ip) {
				log.Warn("rate limited",
					applogger.String("ip", ip),
					applogger.String("path", c.Request().URL.Path),
					applogger.String("request_id", RequestID(c)))
				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"status":  http.StatusTooManyRequests,
					"message": "rate limit exceeded",
				})
			}
			return next(c)
		}
	}
}
