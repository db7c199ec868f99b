package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Miraines/MoonyAndStarry/todo-api/internal/adapters/transport/http/guard"
	customErrors "github.com/Miraines/MoonyAndStarry/todo-api/internal/domain/auth/errors"
	"github.com/Miraines/MoonyAndStarry/todo-api/internal/domain/auth/model"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type TokenResetter interface {
	Reset(ctx context.Context, u *model.User) error
}

type Handler struct {
	tokens TokenResetter
	log    *zap.Logger
}

func New(tokens TokenResetter, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{tokens: tokens, log: log}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().Unix()})
}

func (h *Handler) Logout(c *gin.Context) {
	user, ok := principal(c)
	if !ok {
		return
	}
	if err := h.tokens.Reset(c.Request.Context(), &user); err != nil {
		h.handleError(c, err)
		return
	}
	h.log.Info("logout", zap.String("user", user.Email))
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// The to-do endpoints only echo the call and its principal for now; the
// resource itself has no storage yet.

func (h *Handler) GetAll(c *gin.Context) {
	user, ok := principal(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"method": "getAll",
		"userId": user.ID.String(),
	})
}

func (h *Handler) GetOne(c *gin.Context) {
	h.withID(c, "getOne", nil)
}

func (h *Handler) Update(c *gin.Context) {
	h.withID(c, "update", requestData(c))
}

func (h *Handler) Delete(c *gin.Context) {
	h.withID(c, "delete", nil)
}

func (h *Handler) Create(c *gin.Context) {
	user, ok := principal(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"method": "create",
		"userId": user.ID.String(),
	})
}

func (h *Handler) withID(c *gin.Context, method string, data map[string]any) {
	user, ok := principal(c)
	if !ok {
		return
	}
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 0 {
		h.handleError(c, customErrors.ErrNotFound)
		return
	}

	body := gin.H{
		"method": method,
		"id":     id,
		"userId": user.ID.String(),
	}
	if data != nil {
		body["data"] = data
	}
	c.JSON(http.StatusOK, body)
}

// principal fetches the authenticated user; the guard chain guarantees one,
// so a miss is a wiring bug and answers 500.
func principal(c *gin.Context) (model.User, bool) {
	u, ok := guard.PrincipalFrom(c.Request.Context())
	if !ok {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": customErrors.MsgTryLater})
	}
	return u, ok
}

// requestData returns the submitted fields of a form or JSON body.
func requestData(c *gin.Context) map[string]any {
	data := map[string]any{}
	if strings.HasPrefix(c.ContentType(), gin.MIMEJSON) {
		_ = c.ShouldBindJSON(&data)
		return data
	}
	if err := c.Request.ParseForm(); err != nil {
		return data
	}
	for k, v := range c.Request.PostForm {
		if len(v) == 1 {
			data[k] = v[0]
		} else {
			data[k] = v
		}
	}
	return data
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case customErrors.IsAuthenticationFailed(err):
		c.JSON(http.StatusUnauthorized, gin.H{"message": customErrors.ClientMessage(err)})
	case customErrors.IsInvalidArgument(err):
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
	case customErrors.IsPersistence(err):
		h.log.Warn("persistence failure", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": customErrors.MsgTryLater})
	case customErrors.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"message": "Not Found"})
	case customErrors.IsAlreadyExists(err):
		c.JSON(http.StatusConflict, gin.H{"message": err.Error()})
	default:
		h.log.Error("unexpected error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": customErrors.MsgTryLater})
	}
}
