// internal/interfaces/http/middleware/rate_limit.go
package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/infrastructure/database/redis"
)

// RateLimit applies a fixed one-minute window per client IP. When Redis is
// unavailable requests are allowed.
func RateLimit(limit int, client *redis.Client, logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit <= 0 || client == nil {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		window := time.Now().UTC().Truncate(time.Minute)
		key := client.Key("rate_limit", c.ClientIP(), strconv.FormatInt(window.Unix(), 10))

		count, err := client.IncrWithTTL(ctx, key, time.Minute)
		if err != nil {
			logger.WithError(err).Warn("Rate limiter unavailable, allowing request")
			c.Next()
			return
		}

		remaining := limit - int(count)
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(window.Add(time.Minute).Unix(), 10))

		if int(count) > limit {
			c.Header("Retry-After", strconv.Itoa(int(time.Until(window.Add(time.Minute)).Seconds())+1))
			abortWithError(c, http.StatusTooManyRequests, "RATE_LIMITED", "Rate limit exceeded")
			return
		}

		c.Next()
	}
}
