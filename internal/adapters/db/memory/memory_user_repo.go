// Package memory keeps users in process memory. It backs local runs with
// STORAGE=memory and the tests of the packages above the store.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	customErrors "github.com/Miraines/MoonyAndStarry/todo-api/internal/domain/auth/errors"
	"github.com/Miraines/MoonyAndStarry/todo-api/internal/domain/auth/model"
	"github.com/google/uuid"
)

type UserRepo struct {
	mu    sync.RWMutex
	users map[uuid.UUID]model.User
}

func NewUserRepo() *UserRepo {
	return &UserRepo{users: make(map[uuid.UUID]model.User)}
}

func (r *UserRepo) FindByEmail(_ context.Context, email string) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Email == email {
			return clone(u), nil
		}
	}
	return model.User{}, customErrors.ErrNotFound
}

func (r *UserRepo) FindByToken(_ context.Context, token string) (model.User, error) {
	if strings.TrimSpace(token) == "" {
		return model.User{}, customErrors.ErrNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Token != nil && *u.Token == token {
			return clone(u), nil
		}
	}
	return model.User{}, customErrors.ErrNotFound
}

func (r *UserRepo) Persist(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, other := range r.users {
		if other.Email == u.Email && id != u.ID {
			return customErrors.ErrAlreadyExists
		}
	}
	now := time.Now()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	r.users[u.ID] = clone(*u)

	return nil
}

func (r *UserRepo) SetToken(_ context.Context, u *model.User, token string, validUntil time.Time) error {
	return r.mutate(u.ID, "SetToken", func(stored *model.User) {
		stored.Token, stored.TokenValidUntil = &token, &validUntil
		u.Token, u.TokenValidUntil = &token, &validUntil
	})
}

func (r *UserRepo) UpdateTokenValidTill(_ context.Context, u *model.User, validUntil, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.users[u.ID]
	if !ok || !stored.HasToken() || stored.TokenValue() != u.TokenValue() ||
		stored.TokenValidUntil.Unix() < now.Unix() {
		return customErrors.WrapPersistence(customErrors.ErrNotFound, "UpdateTokenValidTill")
	}
	stored.TokenValidUntil = &validUntil
	stored.UpdatedAt = time.Now()
	r.users[u.ID] = clone(stored)
	u.TokenValidUntil = &validUntil

	return nil
}

func (r *UserRepo) ResetToken(_ context.Context, u *model.User) error {
	return r.mutate(u.ID, "ResetToken", func(stored *model.User) {
		stored.Token, stored.TokenValidUntil = nil, nil
		u.Token, u.TokenValidUntil = nil, nil
	})
}

func (r *UserRepo) mutate(id uuid.UUID, op string, fn func(stored *model.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.users[id]
	if !ok {
		return customErrors.WrapPersistence(customErrors.ErrNotFound, op)
	}
	fn(&stored)
	stored.UpdatedAt = time.Now()
	r.users[id] = clone(stored)

	return nil
}

// clone detaches the nullable fields so callers never alias stored state.
func clone(u model.User) model.User {
	if u.Token != nil {
		t := *u.Token
		u.Token = &t
	}
	if u.TokenValidUntil != nil {
		v := *u.TokenValidUntil
		u.TokenValidUntil = &v
	}
	return u
}
