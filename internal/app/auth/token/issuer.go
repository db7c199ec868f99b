package token

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	customErrors "github.com/Miraines/MoonyAndStarry/todo-api/internal/domain/auth/errors"
	"github.com/Miraines/MoonyAndStarry/todo-api/internal/domain/auth/model"
	"github.com/Miraines/MoonyAndStarry/todo-api/internal/domain/auth/repo"
)

const (
	DefaultTTL = time.Hour
	tokenBytes = 32
)

type Clock interface {
	Now() int64
	IsPast(t time.Time) bool
}

// Generator returns a fresh opaque token.
type Generator func() (string, error)

// Issuer owns the token fields of a user: it issues, prolongs and resets
// them through the user store.
type Issuer struct {
	users      repo.UserRepo
	clock      Clock
	defaultTTL time.Duration
	generate   Generator
}

func NewIssuer(users repo.UserRepo, clock Clock, defaultTTL time.Duration) *Issuer {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return &Issuer{
		users:      users,
		clock:      clock,
		defaultTTL: defaultTTL,
		generate:   RandomToken,
	}
}

// WithGenerator replaces the token source. Used by tests.
func (i *Issuer) WithGenerator(g Generator) *Issuer {
	i.generate = g
	return i
}

func (i *Issuer) DefaultTTL() time.Duration {
	return i.defaultTTL
}

// Issue gives the user a new token valid for ttl (the default when ttl <= 0).
func (i *Issuer) Issue(ctx context.Context, u *model.User, ttl time.Duration) error {
	tok, err := i.generate()
	if err != nil {
		return customErrors.WrapInternal(err, "GenerateToken")
	}
	if err := i.users.SetToken(ctx, u, tok, i.expiry(ttl)); err != nil {
		return customErrors.WrapPersistence(err, "Issue")
	}
	return nil
}

// Prolong moves the expiry to now+ttl and keeps the token value. It fails
// with ErrNotFound when the store no longer holds u's token or the token has
// already expired there.
func (i *Issuer) Prolong(ctx context.Context, u *model.User, ttl time.Duration) error {
	now := i.clock.Now()
	if err := i.users.UpdateTokenValidTill(ctx, u, i.expiryFrom(now, ttl), time.Unix(now, 0)); err != nil {
		return customErrors.WrapPersistence(err, "Prolong")
	}
	return nil
}

// Reset logs the user out.
func (i *Issuer) Reset(ctx context.Context, u *model.User) error {
	if err := i.users.ResetToken(ctx, u); err != nil {
		return customErrors.WrapPersistence(err, "Reset")
	}
	return nil
}

func (i *Issuer) expiry(ttl time.Duration) time.Time {
	return i.expiryFrom(i.clock.Now(), ttl)
}

// expiryFrom works in whole seconds; a partial second counts as a full one.
func (i *Issuer) expiryFrom(now int64, ttl time.Duration) time.Time {
	if ttl <= 0 {
		ttl = i.defaultTTL
	}
	secs := int64((ttl + time.Second - 1) / time.Second)
	return time.Unix(now+secs, 0)
}

// RandomToken draws 256 bits from the OS CSPRNG and hex-encodes them.
func RandomToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
