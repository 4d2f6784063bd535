package interest

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/seekkrr/landingpage/internal/config"
	"github.com/seekkrr/landingpage/pkg/apperror"
)

// maxTrackedClients bounds the limiter table; the least recently seen
// client is forgotten first.
const maxTrackedClients = 10000

// RateLimiter is a token bucket per client IP.
type RateLimiter struct {
	enabled bool
	limit   rate.Limit
	burst   int
	buckets *lru.Cache[string, *rate.Limiter]
}

func NewRateLimiter(cfg *config.Config) (*RateLimiter, error) {
	buckets, err := lru.New[string, *rate.Limiter](maxTrackedClients)
	if err != nil {
		return nil, err
	}
	burst := cfg.RateLimit.Burst
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		enabled: cfg.RateLimit.Enabled,
		limit:   rate.Limit(cfg.RateLimit.RPS),
		burst:   burst,
		buckets: buckets,
	}, nil
}

// Allow takes a token from key's bucket.
func (l *RateLimiter) Allow(key string) bool {
	if !l.enabled {
		return true
	}
	lim, ok := l.buckets.Get(key)
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		// Another request may have raced us here; keep whichever won.
		if prev, found, _ := l.buckets.PeekOrAdd(key, lim); found {
			lim = prev
		}
	}
	return lim.Allow()
}

// Middleware rejects requests over the limit with 429.
func (l *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !l.Allow(c.RealIP()) {
				c.Response().Header().Set("Retry-After", "60")
				return apperror.ErrRateLimited
			}
			return next(c)
		}
	}
}
