package web

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/deemkeen/kinship/domain"
	"github.com/deemkeen/kinship/metrics"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	ctxNpid = "npid"

	limiterIdle = 10 * time.Minute
)

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter holds rate limiters for different IP addresses
type RateLimiter struct {
	limiters map[string]*ipLimiter
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
}

// NewRateLimiter creates a new rate limiter
// r is requests per second, b is burst size
func NewRateLimiter(r rate.Limit, b int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*ipLimiter),
		rate:     r,
		burst:    b,
	}
}

// getLimiter returns the rate limiter for a given IP address
func (rl *RateLimiter) getLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	l, exists := rl.limiters[ip]
	if !exists {
		l = &ipLimiter{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[ip] = l
	}
	l.lastSeen = time.Now()

	return l.limiter
}

// cleanup drops limiters idle for longer than maxIdle
func (rl *RateLimiter) cleanup(now time.Time, maxIdle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	for ip, l := range rl.limiters {
		if now.Sub(l.lastSeen) > maxIdle {
			delete(rl.limiters, ip)
			removed++
		}
	}
	return removed
}

// RunCleanup periodically forgets idle IPs until ctx is done
func (rl *RateLimiter) RunCleanup(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			rl.cleanup(now, limiterIdle)
		}
	}
}

// RateLimitMiddleware creates a Gin middleware for rate limiting
func RateLimitMiddleware(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.getLimiter(c.ClientIP()).Allow() {
			c.String(http.StatusTooManyRequests, "ERR:RateLimited")
			c.Abort()
			return
		}

		c.Next()
	}
}

// MaxBytesMiddleware limits the size of request bodies
func MaxBytesMiddleware(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.String(http.StatusRequestEntityTooLarge, "ERR:RequestTooLarge")
			c.Abort()
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// TokenStore resolves bearer tokens to npids.
type TokenStore interface {
	ReadNpidByToken(ctx context.Context, token string) (string, error)
}

// TokenCache keeps resolved tokens in memory for a while.
type TokenCache struct {
	store TokenStore
	cache *cache.Cache
}

func NewTokenCache(store TokenStore, ttl time.Duration) *TokenCache {
	return &TokenCache{
		store: store,
		cache: cache.New(ttl, 2*ttl),
	}
}

func (tc *TokenCache) Resolve(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", domain.ErrMissingToken
	}
	if npid, ok := tc.cache.Get(token); ok {
		return npid.(string), nil
	}

	npid, err := tc.store.ReadNpidByToken(ctx, token)
	if err != nil {
		return "", err
	}
	tc.cache.SetDefault(token, npid)
	return npid, nil
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

// AuthMiddleware rejects requests without a valid bearer token and stores
// the caller's npid in the context.
func AuthMiddleware(tokens *TokenCache, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		npid, err := tokens.Resolve(c.Request.Context(), bearerToken(c))
		if err != nil {
			logger.Debug("Rejected request", zap.String("path", c.Request.URL.Path), zap.Error(err))
			replyErr(c, logger, err)
			c.Abort()
			return
		}
		c.Set(ctxNpid, npid)
		c.Next()
	}
}

// RequestLogger logs one line per request unless the user agent matches quietAgent.
func RequestLogger(logger *zap.Logger, quietAgent string, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		if m != nil {
			m.Requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
		}

		if quietAgent != "" && strings.Contains(c.Request.UserAgent(), quietAgent) {
			return
		}

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		}
		if country := c.GetHeader("CF-IPCountry"); country != "" {
			fields = append(fields, zap.String("country", country))
		}
		if npid := c.GetString(ctxNpid); npid != "" {
			fields = append(fields, zap.String("npid", npid))
		}
		logger.Info("HTTP request", fields...)
	}
}
