package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/school-portal/portal-backend/internal/ratelimit"
	"github.com/school-portal/portal-backend/internal/settings"
	log "github.com/sirupsen/logrus"
)

// RateLimitKeyFunc derives the limiter key for a request. An empty key skips limiting.
type RateLimitKeyFunc func(c *gin.Context) string

// ExchangeRateLimitMiddleware caps exchange attempts per key per minute.
// The limit is read from the EXCHANGE_RATE_LIMIT_PER_MINUTE setting on every request;
// 0 disables it. Limiter failures let the request through.
func ExchangeRateLimitMiddleware(limiter ratelimit.Limiter, keyFn RateLimitKeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || keyFn == nil {
			c.Next()
			return
		}
		limit := settings.Int64(settings.ExchangeRateLimitPerMinuteKey, settings.DefaultExchangeRateLimitPerMinute)
		if limit <= 0 {
			c.Next()
			return
		}
		key := keyFn(c)
		if key == "" {
			c.Next()
			return
		}

		decision, errAllow := limiter.Allow(c.Request.Context(), "exchange:"+key, limit, time.Minute)
		if errAllow != nil {
			log.WithError(errAllow).Warn("exchange rate limiter unavailable")
			c.Next()
			return
		}
		c.Header("X-RateLimit-Limit", strconv.FormatInt(limit, 10))
		if !decision.Allowed {
			retryAfter := int64(decision.ResetIn.Round(time.Second) / time.Second)
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many exchange attempts"})
			return
		}
		c.Next()
	}
}
