package guard

import (
	"net/http"

	"github.com/Miraines/MoonyAndStarry/todo-api/internal/app/auth/security"
	customErrors "github.com/Miraines/MoonyAndStarry/todo-api/internal/domain/auth/errors"
	"github.com/Miraines/MoonyAndStarry/todo-api/internal/domain/auth/model"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type TokenGuard struct {
	auth      *security.TokenAuthenticator
	loginPath string
	log       *zap.Logger
}

func NewTokenGuard(auth *security.TokenAuthenticator, loginPath string, log *zap.Logger) *TokenGuard {
	if log == nil {
		log = zap.NewNop()
	}
	return &TokenGuard{auth: auth, loginPath: loginPath, log: log}
}

func (g *TokenGuard) Name() string { return "token" }

func (g *TokenGuard) Supports(c *gin.Context) bool {
	return c.FullPath() != g.loginPath
}

// Authenticate also slides the token's expiry window.
func (g *TokenGuard) Authenticate(c *gin.Context) (model.User, error) {
	return g.auth.Authenticate(c.Request.Context(), c.GetHeader(security.TokenHeader))
}

func (g *TokenGuard) OnSuccess(c *gin.Context, u *model.User) {
	g.log.Info("Success request by token",
		zap.String("user", u.Email),
		zap.String("uri", c.Request.RequestURI),
	)
}

func (g *TokenGuard) OnFailure(c *gin.Context, err error) {
	fail(c, g.log, err)
}

func (g *TokenGuard) Start(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": customErrors.MsgTokenRequired})
}
