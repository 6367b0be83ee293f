package middlewares

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"bitbucket.org/mmdatafocus/tradebooks/action"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type RateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
	logger *logrus.Logger
}

func NewRateLimiter(client *redis.Client, limit int64, window time.Duration, logger *logrus.Logger) *RateLimiter {
	return &RateLimiter{client: client, limit: limit, window: window, logger: logger}
}

func rateLimitKey(ip string) string { return "ratelimit:" + ip }

// Middleware counts requests per client IP in a fixed window. Redis errors let the request through;
// a client over the limit gets 429, which devices treat as a transient failure.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		key := rateLimitKey(c.ClientIP())

		// The window starts with the key; SET NX EX and INCR run in one transaction so the
		// counter can never exist without its expiry.
		var incr *redis.IntCmd
		_, err := rl.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SetArgs(ctx, key, 0, redis.SetArgs{Mode: "NX", TTL: rl.window})
			incr = pipe.Incr(ctx, key)
			return nil
		})
		if err != nil && !errors.Is(err, redis.Nil) {
			rl.logger.WithFields(logrus.Fields{"field": "RateLimiter"}).Warn("rate limit check skipped: " + err.Error())
			c.Next()
			return
		}
		count, err := incr.Result()
		if err != nil {
			rl.logger.WithFields(logrus.Fields{"field": "RateLimiter"}).Warn("rate limit check skipped: " + err.Error())
			c.Next()
			return
		}

		if count > rl.limit {
			c.Header("Retry-After", fmt.Sprint(int(rl.window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, action.ErrorResponse{
				Code:    "rate_limited",
				Message: fmt.Sprintf("rate limit exceeded, try again in %d seconds", int(rl.window.Seconds())),
			})
			return
		}
		c.Next()
	}
}

// ErrorLogger logs only requests that recorded gin errors.
func ErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) > 0 {
			logger.WithFields(logrus.Fields{"field": "http", "path": c.FullPath()}).Error(c.Errors.String())
		}
	}
}
