// Package guard runs the per-request authentication pipeline:
// classify the route, extract credentials, validate them, respond.
// There is one Guard per authentication mode; Firewall picks the first one
// whose Supports predicate matches the request.
package guard

import (
	"context"
	"net/http"

	customErrors "github.com/Miraines/MoonyAndStarry/todo-api/internal/domain/auth/errors"
	"github.com/Miraines/MoonyAndStarry/todo-api/internal/domain/auth/model"
	"github.com/Miraines/MoonyAndStarry/todo-api/internal/infra/metrics"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Guard interface {
	Name() string
	Supports(c *gin.Context) bool
	Authenticate(c *gin.Context) (model.User, error)
	// OnSuccess may write the response and abort, or let the request
	// continue to its handler.
	OnSuccess(c *gin.Context, u *model.User)
	OnFailure(c *gin.Context, err error)
	// Start answers a request that reached a protected handler without
	// going through this guard.
	Start(c *gin.Context)
}

func Firewall(m *metrics.Metrics, guards ...Guard) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, g := range guards {
			if !g.Supports(c) {
				continue
			}

			u, err := g.Authenticate(c)
			if err != nil {
				m.AuthAttempt(g.Name(), false)
				g.OnFailure(c, err)
				c.Abort()
				return
			}
			m.AuthAttempt(g.Name(), true)

			g.OnSuccess(c, &u)
			if c.IsAborted() {
				return
			}
			setPrincipal(c, u)
			c.Next()
			return
		}
		c.Next()
	}
}

// RequirePrincipal stops requests that carry no authenticated user.
func RequirePrincipal(entry gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := PrincipalFrom(c.Request.Context()); !ok {
			entry(c)
			c.Abort()
			return
		}
		c.Next()
	}
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, u model.User) context.Context {
	return context.WithValue(ctx, principalKey{}, u)
}

// PrincipalFrom returns the user authenticated for this request.
func PrincipalFrom(ctx context.Context) (model.User, bool) {
	u, ok := ctx.Value(principalKey{}).(model.User)
	return u, ok
}

func setPrincipal(c *gin.Context, u model.User) {
	c.Request = c.Request.WithContext(WithPrincipal(c.Request.Context(), u))
}

// fail answers 401 with the client-safe message and logs the cause.
func fail(c *gin.Context, log *zap.Logger, err error) {
	msg := customErrors.ClientMessage(err)
	log.Warn(msg,
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": msg})
}
