package ratelimit

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// Key layout: ratelimit:{client_ip}:{window_start_unix}
const keyFormat = "ratelimit:%s:%d"

func NewClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr})
}

// Middleware is a fixed-window counter: INCR on a per-IP per-window key,
// EXPIRE on first hit, reject once the count passes the limit. When rdb is
// nil the limiter is disabled.
func Middleware(rdb *redis.Client, limit int, window time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if rdb == nil || limit <= 0 {
				return next(c)
			}

			ctx := c.Request().Context()
			windowStart := time.Now().Unix() / int64(window.Seconds()) * int64(window.Seconds())
			key := fmt.Sprintf(keyFormat, c.RealIP(), windowStart)

			count, err := rdb.Incr(ctx, key).Result()
			if err != nil {
				// Redis being down must not take the API with it.
				c.Logger().Errorf("rate limiter error: %v", err)
				return next(c)
			}
			if count == 1 {
				rdb.Expire(ctx, key, window)
			}
			if count > int64(limit) {
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
