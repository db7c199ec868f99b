package repo

import (
	"context"
	"time"

	"github.com/Miraines/MoonyAndStarry/todo-api/internal/domain/auth/model"
)

// UserRepo is the only I/O boundary of the authentication core. Every call
// either fully applies or fully fails. Mutating calls update the passed user
// in place on success.
type UserRepo interface {
	FindByEmail(ctx context.Context, email string) (model.User, error)

	FindByToken(ctx context.Context, token string) (model.User, error)

	Persist(ctx context.Context, u *model.User) error

	SetToken(ctx context.Context, u *model.User, token string, validUntil time.Time) error

	// UpdateTokenValidTill moves the expiry of the token u holds. It only
	// applies while the stored token still equals u's and has not expired at
	// now; otherwise it fails with ErrNotFound and changes nothing.
	UpdateTokenValidTill(ctx context.Context, u *model.User, validUntil, now time.Time) error

	ResetToken(ctx context.Context, u *model.User) error
}
