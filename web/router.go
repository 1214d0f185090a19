package web

import (
	"net/http"
	"time"

	"github.com/deemkeen/kinship/friends"
	"github.com/deemkeen/kinship/metrics"
	"github.com/deemkeen/kinship/util"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	maxBodySize = 64 * 1024
	tokenTTL    = 5 * time.Minute
)

// Deps is what the HTTP layer talks to.
type Deps struct {
	Engine  *friends.Engine
	Service *friends.Service
	Tokens  TokenStore
	Metrics *metrics.Metrics
	Limiter *RateLimiter
	Logger  *zap.Logger
}

// NewLimiter builds the per-IP limiter from the config.
func NewLimiter(conf *util.AppConfig) *RateLimiter {
	return NewRateLimiter(rate.Limit(conf.Conf.RateLimit), conf.Conf.RateBurst)
}

// Router builds the gin engine serving the friends API.
func Router(conf *util.AppConfig, deps Deps) *gin.Engine {
	g := gin.New()
	g.Use(gin.Recovery())
	g.Use(RequestLogger(deps.Logger, conf.Conf.QuietUserAgent, deps.Metrics))
	g.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	g.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	if deps.Metrics != nil {
		g.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	limiter := deps.Limiter
	if limiter == nil {
		limiter = NewLimiter(conf)
	}

	h := &handlers{engine: deps.Engine, service: deps.Service, logger: deps.Logger}
	tokens := NewTokenCache(deps.Tokens, tokenTTL)

	api := g.Group("/api/friends",
		RateLimitMiddleware(limiter),
		MaxBytesMiddleware(maxBodySize),
		AuthMiddleware(tokens, deps.Logger))

	api.POST("/presence", h.presence)
	api.GET("/poll", h.poll)
	api.GET("/status", h.status)
	api.GET("/list", h.list)
	api.GET("/profile", h.profile)
	api.GET("/search", h.search)

	api.POST("/add", h.mutate(deps.Service.Add))
	api.POST("/accept", h.mutate(deps.Service.Accept))
	api.POST("/reject", h.mutate(deps.Service.Reject))
	api.POST("/remove", h.mutate(deps.Service.Remove))
	api.POST("/cancel", h.mutate(deps.Service.Cancel))
	api.POST("/block", h.mutate(deps.Service.Block))
	api.POST("/unblock", h.mutate(deps.Service.Unblock))

	return g
}
