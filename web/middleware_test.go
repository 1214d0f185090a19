package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/deemkeen/kinship/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/time/rate"
)

func TestNewRateLimiter(t *testing.T) {
	rl := NewRateLimiter(rate.Limit(10), 20)

	if rl == nil {
		t.Fatal("NewRateLimiter returned nil")
	}

	if rl.rate != rate.Limit(10) {
		t.Errorf("Expected rate 10, got %v", rl.rate)
	}

	if rl.burst != 20 {
		t.Errorf("Expected burst 20, got %d", rl.burst)
	}

	if rl.limiters == nil {
		t.Error("Limiters map should be initialized")
	}
}

func TestGetLimiter(t *testing.T) {
	rl := NewRateLimiter(rate.Limit(10), 20)

	limiter1 := rl.getLimiter("192.168.1.1")
	if limiter1 == nil {
		t.Fatal("getLimiter returned nil")
	}

	limiter2 := rl.getLimiter("192.168.1.1")
	if limiter1 != limiter2 {
		t.Error("getLimiter should return the same limiter for the same IP")
	}

	limiter3 := rl.getLimiter("192.168.1.2")
	if limiter1 == limiter3 {
		t.Error("getLimiter should return different limiters for different IPs")
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter(rate.Limit(10), 20)
	rl.getLimiter("192.168.1.1")
	rl.getLimiter("192.168.1.2")
	rl.limiters["192.168.1.1"].lastSeen = time.Now().Add(-time.Hour)

	if removed := rl.cleanup(time.Now(), limiterIdle); removed != 1 {
		t.Errorf("Expected 1 limiter removed, got %d", removed)
	}
	if _, ok := rl.limiters["192.168.1.2"]; !ok {
		t.Error("Recently used limiter should be kept")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		requestCount   int
		rateLimit      rate.Limit
		burst          int
		expectedStatus int
	}{
		{
			name:           "under limit",
			requestCount:   5,
			rateLimit:      rate.Limit(10),
			burst:          10,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "at burst limit",
			requestCount:   10,
			rateLimit:      rate.Limit(1),
			burst:          10,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "over limit",
			requestCount:   15,
			rateLimit:      rate.Limit(1),
			burst:          10,
			expectedStatus: http.StatusTooManyRequests,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := NewRateLimiter(tt.rateLimit, tt.burst)
			router := gin.New()
			router.Use(RateLimitMiddleware(rl))
			router.GET("/test", func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			var lastStatus int
			for i := 0; i < tt.requestCount; i++ {
				w := httptest.NewRecorder()
				req, _ := http.NewRequest("GET", "/test", nil)
				req.RemoteAddr = "192.168.1.100:12345"
				router.ServeHTTP(w, req)
				lastStatus = w.Code
			}

			if lastStatus != tt.expectedStatus {
				t.Errorf("Expected final status %d, got %d", tt.expectedStatus, lastStatus)
			}
		})
	}
}

func TestRateLimitMiddlewareErrorResponse(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rl := NewRateLimiter(rate.Limit(1), 1)
	router := gin.New()
	router.Use(RateLimitMiddleware(rl))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/test", nil)
		req.RemoteAddr = "192.168.1.100:12345"
		router.ServeHTTP(w, req)

		if w.Code != want {
			t.Errorf("Request %d: expected status %d, got %d", i, want, w.Code)
		}
		if want == http.StatusTooManyRequests && w.Body.String() != "ERR:RateLimited" {
			t.Errorf("Expected rate limit reply, got: %s", w.Body.String())
		}
	}
}

func TestMaxBytesMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		maxBytes       int64
		bodySize       int
		expectedStatus int
	}{
		{"under limit", 1024, 512, http.StatusOK},
		{"at limit", 1024, 1024, http.StatusOK},
		{"over limit by content-length", 1024, 2048, http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(MaxBytesMiddleware(tt.maxBytes))
			router.POST("/test", func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			req, _ := http.NewRequest("POST", "/test", strings.NewReader(strings.Repeat("x", tt.bodySize)))
			router.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}
}

type mapTokens struct {
	tokens map[string]string
	calls  int
}

func (m *mapTokens) ReadNpidByToken(_ context.Context, token string) (string, error) {
	m.calls++
	npid, ok := m.tokens[token]
	if !ok {
		return "", domain.ErrInvalidToken
	}
	return npid, nil
}

func TestTokenCache(t *testing.T) {
	store := &mapTokens{tokens: map[string]string{"good": "alice"}}
	tc := NewTokenCache(store, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		npid, err := tc.Resolve(ctx, "good")
		if err != nil || npid != "alice" {
			t.Fatalf("Expected alice, got %q (%v)", npid, err)
		}
	}
	if store.calls != 1 {
		t.Errorf("Expected a single store lookup, got %d", store.calls)
	}

	if _, err := tc.Resolve(ctx, "bad"); err != domain.ErrInvalidToken {
		t.Errorf("Expected InvalidToken, got %v", err)
	}
	if _, err := tc.Resolve(ctx, ""); err != domain.ErrMissingToken {
		t.Errorf("Expected MissingToken, got %v", err)
	}
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tc := NewTokenCache(&mapTokens{tokens: map[string]string{"good": "alice"}}, time.Minute)
	router := gin.New()
	router.Use(AuthMiddleware(tc, zap.NewNop()))
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, caller(c))
	})

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"valid", "Bearer good", http.StatusOK, "alice"},
		{"lowercase scheme", "bearer good", http.StatusOK, "alice"},
		{"missing", "", http.StatusUnauthorized, "ERR:MissingToken"},
		{"wrong scheme", "Basic good", http.StatusUnauthorized, "ERR:MissingToken"},
		{"unknown", "Bearer nope", http.StatusUnauthorized, "ERR:InvalidToken"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest("GET", "/test", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			router.ServeHTTP(w, req)

			if w.Code != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, w.Code)
			}
			if w.Body.String() != tt.body {
				t.Errorf("Expected body %q, got %q", tt.body, w.Body.String())
			}
		})
	}
}

func TestRequestLoggerQuietAgent(t *testing.T) {
	gin.SetMode(gin.TestMode)

	core, logs := observer.New(zap.InfoLevel)
	router := gin.New()
	router.Use(RequestLogger(zap.New(core), "Vita3K", nil))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req, _ := http.NewRequest("GET", "/test", nil)
	req.Header.Set("User-Agent", "Vita3K/0.2")
	router.ServeHTTP(httptest.NewRecorder(), req)
	if logs.Len() != 0 {
		t.Errorf("Expected quiet user agent to be skipped, got %d log lines", logs.Len())
	}

	req, _ = http.NewRequest("GET", "/test", nil)
	req.Header.Set("User-Agent", "curl/8.0")
	req.Header.Set("CF-IPCountry", "DE")
	router.ServeHTTP(httptest.NewRecorder(), req)
	if logs.Len() != 1 {
		t.Fatalf("Expected one log line, got %d", logs.Len())
	}
	fields := logs.All()[0].ContextMap()
	if fields["country"] != "DE" {
		t.Errorf("Expected country field, got %v", fields["country"])
	}
	if fields["status"] != int64(http.StatusOK) {
		t.Errorf("Expected status field 200, got %v", fields["status"])
	}
}
