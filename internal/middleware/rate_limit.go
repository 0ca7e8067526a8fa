// internal/middleware/rate_limit.go
package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/javajoker/trackstore-backend/internal/utils"
)

// Limiter decides whether one more request for key is allowed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryLimiter is a per-key token bucket held in process memory.
type MemoryLimiter struct {
	visitors map[string]*visitor
	mtx      sync.Mutex
	rate     rate.Limit
	burst    int
	done     chan struct{}
}

func NewMemoryLimiter(r rate.Limit, b int) *MemoryLimiter {
	rl := &MemoryLimiter{
		visitors: make(map[string]*visitor),
		rate:     r,
		burst:    b,
		done:     make(chan struct{}),
	}

	// Clean up old visitors every minute
	go rl.cleanupVisitors()

	return rl
}

func (rl *MemoryLimiter) cleanupVisitors() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.mtx.Lock()
			for key, v := range rl.visitors {
				if time.Since(v.lastSeen) > 3*time.Minute {
					delete(rl.visitors, key)
				}
			}
			rl.mtx.Unlock()
		}
	}
}

func (rl *MemoryLimiter) getVisitor(key string) *rate.Limiter {
	rl.mtx.Lock()
	defer rl.mtx.Unlock()

	v, exists := rl.visitors[key]
	if !exists {
		limiter := rate.NewLimiter(rl.rate, rl.burst)
		rl.visitors[key] = &visitor{limiter, time.Now()}
		return limiter
	}

	v.lastSeen = time.Now()
	return v.limiter
}

func (rl *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	return rl.getVisitor(key).Allow(), nil
}

// Close stops the cleanup goroutine.
func (rl *MemoryLimiter) Close() {
	close(rl.done)
}

// RedisLimiter is a fixed-window counter shared by every instance.
type RedisLimiter struct {
	client *redis.Client
	name   string
	limit  int64
	window time.Duration
	now    func() time.Time
}

func NewRedisLimiter(client *redis.Client, name string, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		name:   name,
		limit:  int64(limit),
		window: window,
		now:    time.Now,
	}
}

func (rl *RedisLimiter) windowKey(key string) string {
	bucket := rl.now().UnixNano() / int64(rl.window)
	return fmt.Sprintf("ratelimit:%s:%s:%d", rl.name, key, bucket)
}

func (rl *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := rl.windowKey(key)

	var incr *redis.IntCmd
	_, err := rl.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, redisKey)
		p.Expire(ctx, redisKey, rl.window)
		return nil
	})
	if err != nil {
		return false, err
	}

	return incr.Val() <= rl.limit, nil
}

// KeyFunc extracts the rate-limit key of a request.
type KeyFunc func(c *gin.Context) string

func KeyByIP(c *gin.Context) string {
	return "ip:" + c.ClientIP()
}

// KeyByUser falls back to the client IP for anonymous requests.
func KeyByUser(c *gin.Context) string {
	if userID, ok := utils.GetUserIDFromContext(c); ok {
		return "user:" + userID.String()
	}
	return KeyByIP(c)
}

// RateLimit rejects requests over the limit with 429. Limiter errors let
// the request through.
func RateLimit(limiter Limiter, keyFunc KeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFunc(c)

		allowed, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			logrus.WithError(err).WithField("key", key).Warn("Rate limiter unavailable")
			c.Next()
			return
		}

		if !allowed {
			utils.TooManyRequestsResponse(c)
			c.Abort()
			return
		}

		c.Next()
	}
}
