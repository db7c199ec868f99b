package guard

import (
	"net/http"
	"strings"

	"github.com/Miraines/MoonyAndStarry/todo-api/internal/app/auth/security"
	customErrors "github.com/Miraines/MoonyAndStarry/todo-api/internal/domain/auth/errors"
	"github.com/Miraines/MoonyAndStarry/todo-api/internal/domain/auth/model"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type LoginGuard struct {
	auth      *security.LoginAuthenticator
	loginPath string
	log       *zap.Logger
}

func NewLoginGuard(auth *security.LoginAuthenticator, loginPath string, log *zap.Logger) *LoginGuard {
	if log == nil {
		log = zap.NewNop()
	}
	return &LoginGuard{auth: auth, loginPath: loginPath, log: log}
}

func (g *LoginGuard) Name() string { return "login" }

func (g *LoginGuard) Supports(c *gin.Context) bool {
	return c.FullPath() == g.loginPath
}

func (g *LoginGuard) Authenticate(c *gin.Context) (model.User, error) {
	return g.auth.Authenticate(c.Request.Context(), Credentials(c))
}

func (g *LoginGuard) OnSuccess(c *gin.Context, u *model.User) {
	g.log.Info("Success Authentication", zap.String("user", u.Email))
	c.AbortWithStatusJSON(http.StatusOK, gin.H{"token": u.TokenValue()})
}

func (g *LoginGuard) OnFailure(c *gin.Context, err error) {
	fail(c, g.log, err)
}

func (g *LoginGuard) Start(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": customErrors.MsgWrongCredentials})
}

// Credentials reads email and password from a form or JSON body. Missing
// fields come back empty.
func Credentials(c *gin.Context) model.Credentials {
	if strings.HasPrefix(c.ContentType(), gin.MIMEJSON) {
		var creds model.Credentials
		if err := c.ShouldBindJSON(&creds); err != nil {
			return model.Credentials{}
		}
		return creds
	}
	return model.Credentials{
		Email:    c.PostForm("email"),
		Password: c.PostForm("password"),
	}
}
