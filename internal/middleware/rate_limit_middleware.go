package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/farellandr/blocktix/internal/helpers"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimiter counts requests per caller in fixed windows stored in redis.
type RateLimiter struct {
	redis  redis.Cmdable
	log    *zap.Logger
	prefix string
	limit  int64
	window time.Duration
	now    func() time.Time
}

func NewRateLimiter(rdb redis.Cmdable, log *zap.Logger, prefix string, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		redis:  rdb,
		log:    log,
		prefix: prefix,
		limit:  int64(limit),
		window: window,
		now:    time.Now,
	}
}

func (r *RateLimiter) key(identity string) string {
	bucket := r.now().Unix() / int64(r.window.Seconds())
	return fmt.Sprintf("ratelimit:%s:%s:%d", r.prefix, identity, bucket)
}

// Middleware limits authenticated callers by user id and anonymous ones by
// IP. When redis is unreachable requests are let through.
func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if r.limit <= 0 {
			c.Next()
			return
		}

		identity := "ip:" + c.ClientIP()
		if userID, ok := GetUserID(c); ok {
			identity = "user:" + userID.String()
		}
		key := r.key(identity)

		ctx := c.Request.Context()
		count, err := r.redis.Incr(ctx, key).Result()
		if err != nil {
			r.log.Warn("rate limiter unavailable", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}
		if count == 1 {
			if err := r.redis.Expire(ctx, key, r.window).Err(); err != nil {
				r.log.Warn("rate limiter expire failed", zap.String("key", key), zap.Error(err))
			}
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(r.limit, 10))
		if count > r.limit {
			c.Header("Retry-After", strconv.Itoa(int(r.window.Seconds())))
			helpers.AbortWithError(c, http.StatusTooManyRequests, "Too many purchase attempts. Please try again later.")
			return
		}
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(r.limit-count, 10))
		c.Next()
	}
}
