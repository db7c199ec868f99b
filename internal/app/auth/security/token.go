package security

import (
	"context"
	"errors"
	"strings"
	"time"

	customErrors "github.com/Miraines/MoonyAndStarry/todo-api/internal/domain/auth/errors"
	"github.com/Miraines/MoonyAndStarry/todo-api/internal/domain/auth/model"
	"github.com/Miraines/MoonyAndStarry/todo-api/internal/domain/auth/repo"
	"go.uber.org/zap"
)

const TokenHeader = "X-AUTH-TOKEN"

type TokenAuthenticator struct {
	users          repo.UserRepo
	clock          Clock
	issuer         TokenIssuer
	window         time.Duration
	log            *zap.Logger
	onProlongError func()
}

func NewTokenAuthenticator(users repo.UserRepo, clock Clock, issuer TokenIssuer, window time.Duration, log *zap.Logger) *TokenAuthenticator {
	if log == nil {
		log = zap.NewNop()
	}
	return &TokenAuthenticator{users: users, clock: clock, issuer: issuer, window: window, log: log}
}

// OnProlongFailure registers fn to run whenever sliding the expiry fails
// for a reason other than the token being gone.
func (a *TokenAuthenticator) OnProlongFailure(fn func()) *TokenAuthenticator {
	a.onProlongError = fn
	return a
}

// Authenticate resolves a bearer token to its user, rejects expired tokens
// and slides the expiry window. The store has the final word: when it
// refuses to prolong because the token expired or was replaced there, the
// request is rejected even if the lookup looked valid.
func (a *TokenAuthenticator) Authenticate(ctx context.Context, token string) (model.User, error) {
	if strings.TrimSpace(token) == "" {
		return model.User{}, customErrors.NewAuthenticationFailed(customErrors.MsgWrongToken)
	}

	user, err := a.users.FindByToken(ctx, token)
	switch {
	case errors.Is(err, customErrors.ErrNotFound):
		return model.User{}, customErrors.NewAuthenticationFailed(customErrors.MsgWrongToken)
	case err != nil:
		return model.User{}, customErrors.WrapAuthenticationFailed(err, customErrors.MsgTryLater)
	}

	if user.TokenValidUntil == nil || a.clock.IsPast(*user.TokenValidUntil) {
		return model.User{}, customErrors.NewAuthenticationFailed(customErrors.MsgTokenExpired)
	}

	if err := a.prolong(ctx, &user); err != nil {
		return model.User{}, err
	}
	return user, nil
}

// prolong fails only when the token is no longer valid in the store. Any
// other error is logged and swallowed.
func (a *TokenAuthenticator) prolong(ctx context.Context, u *model.User) error {
	err := a.issuer.Prolong(ctx, u, a.window)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, customErrors.ErrNotFound):
		return customErrors.WrapAuthenticationFailed(err, customErrors.MsgTokenExpired)
	}

	a.log.Warn("token prolongation failed",
		zap.String("user", u.Email),
		zap.Error(err),
	)
	if a.onProlongError != nil {
		a.onProlongError()
	}
	return nil
}
