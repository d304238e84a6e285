package middleware

import (
	"net/http"
	"time"

	"agritrace/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// LoginRateLimiter allows perMinute attempts per client IP. Idle limiters
// expire from the cache. A non-positive rate disables limiting.
func LoginRateLimiter(perMinute int) gin.HandlerFunc {
	if perMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	limiters := cache.New(10*time.Minute, 20*time.Minute)
	every := rate.Every(time.Minute / time.Duration(perMinute))

	return func(c *gin.Context) {
		ip := c.ClientIP()
		var lim *rate.Limiter
		if v, ok := limiters.Get(ip); ok {
			lim = v.(*rate.Limiter)
		} else {
			lim = rate.NewLimiter(every, perMinute)
			if err := limiters.Add(ip, lim, cache.DefaultExpiration); err != nil {
				// another request created it first
				if v, ok := limiters.Get(ip); ok {
					lim = v.(*rate.Limiter)
				}
			}
		}
		if !lim.Allow() {
			util.Error(c, http.StatusTooManyRequests, "too many login attempts, slow down")
			c.Abort()
			return
		}
		c.Next()
	}
}
