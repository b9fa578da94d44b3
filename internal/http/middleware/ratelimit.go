package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	echo "github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// WindowCounter increments a fixed-window counter and returns the new value.
type WindowCounter interface {
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

type redisCounter struct{ rds *redis.Client }

// NewRedisCounter returns a WindowCounter backed by INCR+EXPIRE, or nil when rds is nil.
func NewRedisCounter(rds *redis.Client) WindowCounter {
	if rds == nil {
		return nil
	}
	return redisCounter{rds: rds}
}

func (r redisCounter) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	pipe := r.rds.Pipeline()
	cnt := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return cnt.Val(), nil
}

// RateLimitConfig config for the per-client RPS limiter.
type RateLimitConfig struct {
	Counter        WindowCounter
	RPS            int           // <= 0 disables the limiter
	KeyPrefix      string        // e.g. "rl:ip:"
	Window         time.Duration // usually 1s
	RetryAfterHint bool          // set Retry-After header when limited
	Now            func() time.Time
}

// RateLimitMiddleware applies a simple fixed-window per-IP request limit.
// Counter errors let the request through.
func RateLimitMiddleware(cfg RateLimitConfig) echo.MiddlewareFunc {
	if cfg.Window <= 0 {
		cfg.Window = time.Second
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "rl:ip:"
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.RPS <= 0 || cfg.Counter == nil {
				// no limit configured or redis missing (dev): allow
				return next(c)
			}

			// fixed-window key: rl:ip:{ip}:{window index}
			now := cfg.Now()
			slot := now.UnixNano() / int64(cfg.Window)
			key := cfg.KeyPrefix + c.RealIP() + ":" + strconv.FormatInt(slot, 10)

			cnt, err := cfg.Counter.Incr(c.Request().Context(), key, cfg.Window*2)
			if err != nil {
				return next(c)
			}

			if cnt > int64(cfg.RPS) {
				if cfg.RetryAfterHint {
					remain := cfg.Window - time.Duration(now.UnixNano()%int64(cfg.Window))
					secs := int((remain + time.Second - 1) / time.Second)
					if secs < 1 {
						secs = 1
					}
					c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
				}
				return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "rate limited"})
			}
			return next(c)
		}
	}
}
