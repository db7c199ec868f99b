package security

import (
	"context"
	"errors"
	"time"

	customErrors "github.com/Miraines/MoonyAndStarry/todo-api/internal/domain/auth/errors"
	"github.com/Miraines/MoonyAndStarry/todo-api/internal/domain/auth/model"
	"github.com/Miraines/MoonyAndStarry/todo-api/internal/domain/auth/repo"
)

type LoginAuthenticator struct {
	users     repo.UserRepo
	passwords PasswordVerifier
	issuer    TokenIssuer
	ttl       time.Duration
}

func NewLoginAuthenticator(users repo.UserRepo, passwords PasswordVerifier, issuer TokenIssuer, ttl time.Duration) *LoginAuthenticator {
	return &LoginAuthenticator{users: users, passwords: passwords, issuer: issuer, ttl: ttl}
}

// Authenticate checks the credentials and, on a match, issues a fresh token.
// The returned user carries the new token.
func (a *LoginAuthenticator) Authenticate(ctx context.Context, creds model.Credentials) (model.User, error) {
	user, err := a.users.FindByEmail(ctx, creds.Email)
	switch {
	case errors.Is(err, customErrors.ErrNotFound):
		a.passwords.VerifyUnknown(creds.Password)
		return model.User{}, customErrors.NewAuthenticationFailed(customErrors.MsgWrongCredentials)
	case err != nil:
		return model.User{}, customErrors.WrapAuthenticationFailed(err, customErrors.MsgTryLater)
	}

	ok, err := a.passwords.Verify(creds.Password, user.PasswordHash)
	if err != nil {
		return model.User{}, customErrors.WrapAuthenticationFailed(err, customErrors.MsgWrongCredentials)
	}
	if !ok {
		return model.User{}, customErrors.NewAuthenticationFailed(customErrors.MsgWrongCredentials)
	}

	if err := a.issuer.Issue(ctx, &user, a.ttl); err != nil {
		return model.User{}, customErrors.WrapAuthenticationFailed(err, customErrors.MsgTryLater)
	}

	return user, nil
}
