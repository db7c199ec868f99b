package router

import (
	"net/http"
	"strings"
	"time"

	"github.com/Miraines/MoonyAndStarry/todo-api/internal/adapters/transport/http/guard"
	"github.com/Miraines/MoonyAndStarry/todo-api/internal/adapters/transport/http/handler"
	httpmw "github.com/Miraines/MoonyAndStarry/todo-api/internal/adapters/transport/http/middleware"
	"github.com/Miraines/MoonyAndStarry/todo-api/internal/infra/metrics"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const apiPrefix = "/api"

type Deps struct {
	LoginGuard *guard.LoginGuard
	TokenGuard *guard.TokenGuard
	Handler    *handler.Handler
	Metrics    *metrics.Metrics
	Log        *zap.Logger

	// LoginPath must live under /api.
	LoginPath string

	AllowedOrigins   []string
	AllowCredentials bool

	LoginRateLimit int
	LoginRateBurst int
}

func New(d Deps) *gin.Engine {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"message": "Method Not Allowed"})
	})
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Not Found"})
	})

	r.Use(gin.Recovery())
	r.Use(httpmw.RequestLogger(d.Log, d.Metrics))
	if d.LoginRateLimit > 0 {
		r.Use(httpmw.NewHTTPRateLimitPerIP(d.LoginRateLimit, d.LoginRateBurst, 10_000, time.Hour, d.LoginPath))
	}
	if len(d.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: d.AllowedOrigins,
			AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders: []string{
				"Origin", "Content-Type", "Accept",
				"X-AUTH-TOKEN",
				"X-Requested-With",
			},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: d.AllowCredentials,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.GET("/health", d.Handler.Health)
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	api := r.Group(apiPrefix)
	api.Use(guard.Firewall(d.Metrics, d.LoginGuard, d.TokenGuard))

	// Reached only when the login guard did not answer.
	api.POST(strings.TrimPrefix(d.LoginPath, apiPrefix), d.LoginGuard.Start)

	protected := api.Group("", guard.RequirePrincipal(d.TokenGuard.Start))
	protected.GET("/todos", d.Handler.GetAll)
	protected.POST("/todos", d.Handler.Create)
	protected.GET("/todos/:id", d.Handler.GetOne)
	protected.PUT("/todos/:id", d.Handler.Update)
	protected.DELETE("/todos/:id", d.Handler.Delete)
	protected.POST("/logout", d.Handler.Logout)

	return r
}
