// Package security holds the two authentication modes of the API: password
// login and bearer-token access. Each one validates a request's credentials
// and returns either the authenticated user or an *AuthenticationFailed.
package security

import (
	"context"
	"time"

	"github.com/Miraines/MoonyAndStarry/todo-api/internal/domain/auth/model"
)

type PasswordVerifier interface {
	Verify(plain, hash string) (bool, error)
	VerifyUnknown(plain string)
}

type TokenIssuer interface {
	Issue(ctx context.Context, u *model.User, ttl time.Duration) error
	Prolong(ctx context.Context, u *model.User, ttl time.Duration) error
}

type Clock interface {
	IsPast(t time.Time) bool
}

// SupportsRememberMe is false for every mode: sessions live only as long as
// their token.
const SupportsRememberMe = false
