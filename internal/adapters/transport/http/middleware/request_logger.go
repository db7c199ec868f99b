package middleware

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/Miraines/MoonyAndStarry/todo-api/internal/infra/metrics"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var sensitiveHeaders = []string{"authorization", "cookie", "x-auth-token"}

// scrub hides credentials before headers reach the logs.
func scrub(h http.Header) http.Header {
	clone := h.Clone()
	for k := range clone {
		lk := strings.ToLower(k)
		for _, s := range sensitiveHeaders {
			if strings.Contains(lk, s) {
				clone[k] = []string{"[redacted]"}
				break
			}
		}
	}
	return clone
}

func RequestLogger(log *zap.Logger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqHeaders, _ := json.Marshal(scrub(c.Request.Header))
		log.Debug("incoming request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.ByteString("hdr", reqHeaders),
		)

		ts := time.Now()
		c.Next()

		latency := time.Since(ts)
		respStatus := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveHTTP(route, c.Request.Method, respStatus, latency)

		for _, e := range c.Errors {
			log.Error("handler error",
				zap.Int("status", respStatus),
				zap.Error(e),
				zap.String("path", c.Request.URL.Path),
			)
		}

		fields := []zap.Field{
			zap.Int("status", respStatus),
			zap.Duration("latency", latency),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
		}
		if c.IsAborted() {
			log.Info("aborted", fields...)
			return
		}
		log.Info("completed", fields...)
	}
}
