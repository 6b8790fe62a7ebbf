package http

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/exoplanet-classifier/internal/infra/config"
)

// errorHandlingMiddleware renders the last handler error as
// {"error":{"code","message"[,"details"]}}.
func errorHandlingMiddleware(logger *slog.Logger) gin.HandlerFunc {
	logger = logger.With("component", "http.errors")
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		httpErr := asHTTPError(c.Errors.Last().Err)
		level := slog.LevelWarn
		if httpErr.Status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "request failed",
			"code", httpErr.Code, "status", httpErr.Status, "route", routeOf(c), "error", httpErr.Err)

		body := gin.H{"code": httpErr.Code, "message": httpErr.Message}
		if httpErr.Message == "" {
			body["message"] = httpErr.Error()
		}
		if httpErr.Details != nil {
			body["details"] = httpErr.Details
		}
		c.Header(errorCodeHeader, httpErr.Code)
		c.JSON(httpErr.Status, gin.H{"error": body})
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	logger = logger.With("component", "http.access")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request",
			"method", c.Request.Method,
			"route", routeOf(c),
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
		)
	}
}

func routeOf(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return c.Request.URL.Path
}

// batchRequestCost is charged for uploads because every CSV row becomes a
// backend prediction.
const batchRequestCost = 5

func requestCost(r *http.Request) float64 {
	if r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/api/v1/batches") {
		return batchRequestCost
	}
	return 1
}

func rateLimitMiddleware(cfg config.RateLimitConfig, logger *slog.Logger) gin.HandlerFunc {
	if !cfg.Enabled || cfg.RequestsPerMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	limiter := newClientLimiter(cfg)
	return func(c *gin.Context) {
		ip := c.ClientIP()
		wait, ok := limiter.take(ip, requestCost(c.Request), time.Now())
		if ok {
			c.Next()
			return
		}
		logger.Warn("rate limit exceeded", "ip", ip, "route", routeOf(c))
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		abortWithError(c, NewHTTPError(http.StatusTooManyRequests, codeRateLimited, "too many requests", nil))
	}
}

// clientLimiter is a token bucket per client IP. Idle buckets are swept once
// per idleTTL.
type clientLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	perSecond float64
	capacity  float64
	idleTTL   time.Duration
	lastSweep time.Time
}

type bucket struct {
	tokens float64
	seen   time.Time
}

func newClientLimiter(cfg config.RateLimitConfig) *clientLimiter {
	capacity := float64(cfg.Burst)
	if capacity < batchRequestCost {
		capacity = batchRequestCost
	}
	return &clientLimiter{
		buckets:   make(map[string]*bucket),
		perSecond: float64(cfg.RequestsPerMinute) / 60,
		capacity:  capacity,
		idleTTL:   5 * time.Minute,
	}
}

// take spends cost tokens for ip. When the bucket is short it reports how long
// until enough tokens accumulate.
func (l *clientLimiter) take(ip string, cost float64, now time.Time) (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > l.idleTTL {
		for key, b := range l.buckets {
			if now.Sub(b.seen) > l.idleTTL {
				delete(l.buckets, key)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.buckets[ip]
	if !ok {
		b = &bucket{tokens: l.capacity, seen: now}
		l.buckets[ip] = b
	}
	if elapsed := now.Sub(b.seen).Seconds(); elapsed > 0 {
		b.tokens = math.Min(l.capacity, b.tokens+elapsed*l.perSecond)
	}
	b.seen = now

	if b.tokens < cost {
		missing := cost - b.tokens
		return time.Duration(missing / l.perSecond * float64(time.Second)), false
	}
	b.tokens -= cost
	return 0, true
}
