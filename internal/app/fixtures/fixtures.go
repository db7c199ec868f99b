// Package fixtures seeds the user store with accounts used in manual and
// end-to-end testing.
package fixtures

import (
	"context"
	"errors"
	"fmt"
	"time"

	customErrors "github.com/Miraines/MoonyAndStarry/todo-api/internal/domain/auth/errors"
	"github.com/Miraines/MoonyAndStarry/todo-api/internal/domain/auth/model"
	"github.com/Miraines/MoonyAndStarry/todo-api/internal/domain/auth/repo"
)

const (
	ValidToken   = "VALID_TOKEN"
	ExpiredToken = "EXPIRED_TOKEN"

	ValidEmail   = "valid@example.com"
	ExpiredEmail = "expired@example.com"
)

type Hasher interface {
	Hash(plain string) (string, error)
}

type seed struct {
	email string
	token string
	shift time.Duration
}

// Load creates one user with a token valid for the next hour and one whose
// token expired an hour ago. Both share the given password. Existing users
// keep their password and only get their token reset to the fixture value.
func Load(ctx context.Context, users repo.UserRepo, hasher Hasher, plainPassword string, now time.Time) error {
	seeds := []seed{
		{email: ValidEmail, token: ValidToken, shift: time.Hour},
		{email: ExpiredEmail, token: ExpiredToken, shift: -time.Hour},
	}

	for _, s := range seeds {
		u, err := upsert(ctx, users, hasher, s.email, plainPassword)
		if err != nil {
			return err
		}
		if err := users.SetToken(ctx, &u, s.token, now.Add(s.shift)); err != nil {
			return fmt.Errorf("set token for %s: %w", s.email, err)
		}
	}
	return nil
}

func upsert(ctx context.Context, users repo.UserRepo, hasher Hasher, email, plain string) (model.User, error) {
	u, err := users.FindByEmail(ctx, email)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, customErrors.ErrNotFound) {
		return model.User{}, fmt.Errorf("find %s: %w", email, err)
	}

	hash, err := hasher.Hash(plain)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}
	u = model.User{Email: email, PasswordHash: hash}
	if err := users.Persist(ctx, &u); err != nil {
		return model.User{}, fmt.Errorf("persist %s: %w", email, err)
	}
	return u, nil
}
