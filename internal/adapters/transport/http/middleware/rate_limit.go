package middleware

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter *rate.Limiter
	last    time.Time
}

// NewHTTPRateLimitPerIP limits requests per client IP with a token bucket,
// keeping at most cacheSize IPs in an LRU. An IP idle for longer than ttl
// starts over with a full bucket. When routes are given, only those route
// patterns are limited. cacheSize must be positive.
func NewHTTPRateLimitPerIP(
	limit, burst, cacheSize int,
	ttl time.Duration,
	routes ...string,
) gin.HandlerFunc {

	visitors, err := lru.New[string, *visitor](cacheSize)
	if err != nil {
		panic(fmt.Sprintf("rate limit: visitor cache of size %d: %v", cacheSize, err))
	}
	var (
		mu        sync.Mutex
		lastSweep = time.Now()
	)

	only := make(map[string]struct{}, len(routes))
	for _, r := range routes {
		only[r] = struct{}{}
	}

	// sweep drops idle IPs; it runs on the request path at most once per
	// ttl so no background goroutine outlives the handler. Caller holds mu.
	sweep := func(now time.Time) {
		if now.Sub(lastSweep) < ttl {
			return
		}
		lastSweep = now
		for _, key := range visitors.Keys() {
			if v, ok := visitors.Peek(key); ok && now.Sub(v.last) > ttl {
				visitors.Remove(key)
			}
		}
	}

	return func(c *gin.Context) {
		if len(only) > 0 {
			if _, ok := only[c.FullPath()]; !ok {
				c.Next()
				return
			}
		}

		host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
		if err != nil {
			host = c.Request.RemoteAddr
		}

		now := time.Now()
		mu.Lock()
		sweep(now)
		v, ok := visitors.Get(host)
		if !ok || now.Sub(v.last) > ttl {
			v = &visitor{
				limiter: rate.NewLimiter(rate.Limit(limit), burst),
			}
			visitors.Add(host, v)
		}
		v.last = now
		mu.Unlock()

		if !v.limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"message": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
