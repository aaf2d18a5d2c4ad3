package middlewares

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/yeremiapane/restaurant-pos/utils"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	rps       rate.Limit
	burst     int
	idle      time.Duration
	visitors  map[string]*visitor
	// lastSweep is when idle visitors were last evicted; sweeps run at most
	// once per idle period.
	lastSweep time.Time
	mu        sync.Mutex
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		rps:       rate.Limit(rps),
		burst:     burst,
		idle:      3 * time.Minute,
		visitors:  make(map[string]*visitor),
		lastSweep: time.Now(),
	}
}

func (rl *RateLimiter) limiterFor(ip string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.lastSweep) > rl.idle {
		for k, v := range rl.visitors {
			if now.Sub(v.lastSeen) > rl.idle {
				delete(rl.visitors, k)
			}
		}
		rl.lastSweep = now
	}
	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.limiterFor(c.ClientIP(), time.Now()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, utils.JSONResponse{
				Status:  false,
				Message: "too many requests, slow down",
				Code:    "RATE_LIMITED",
			})
			return
		}
		c.Next()
	}
}

// NewStrictRateLimiter throttles login/register to 5 attempts a minute per IP.
func NewStrictRateLimiter() gin.HandlerFunc {
	return NewRateLimiter(float64(rate.Every(time.Minute/5)), 5).RateLimit()
}
