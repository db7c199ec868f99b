package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	customErrors "github.com/Miraines/MoonyAndStarry/todo-api/internal/domain/auth/errors"
	"github.com/Miraines/MoonyAndStarry/todo-api/internal/domain/auth/model"
	"github.com/Miraines/MoonyAndStarry/todo-api/internal/domain/auth/repo"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const tokenKeyPrefix = "t:"

// entry is what a cached token resolves to. Password hashes stay out of
// Redis; token lookups never need them.
type entry struct {
	ID              uuid.UUID `json:"id"`
	Email           string    `json:"email"`
	Token           string    `json:"token"`
	TokenValidUntil time.Time `json:"valid_until"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func newEntry(u model.User) entry {
	return entry{
		ID:              u.ID,
		Email:           u.Email,
		Token:           *u.Token,
		TokenValidUntil: *u.TokenValidUntil,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

func (e entry) user() model.User {
	tok, validUntil := e.Token, e.TokenValidUntil
	return model.User{
		ID:              e.ID,
		Email:           e.Email,
		Token:           &tok,
		TokenValidUntil: &validUntil,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
}

// CachedUserRepo caches token lookups in Redis in front of another UserRepo.
// Writes go to the wrapped repo first and then refresh or drop the cached
// entry. Cache failures never fail a call; the wrapped repo stays the source
// of truth.
type CachedUserRepo struct {
	next   repo.UserRepo
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

func NewCachedUserRepo(next repo.UserRepo, client *redis.Client, ttl time.Duration, log *zap.Logger) *CachedUserRepo {
	if log == nil {
		log = zap.NewNop()
	}
	return &CachedUserRepo{
		next:   next,
		client: client,
		ttl:    ttl,
		log:    log,
	}
}

func (r *CachedUserRepo) FindByEmail(ctx context.Context, email string) (model.User, error) {
	return r.next.FindByEmail(ctx, email)
}

func (r *CachedUserRepo) FindByToken(ctx context.Context, token string) (model.User, error) {
	if token == "" {
		return r.next.FindByToken(ctx, token)
	}

	raw, err := r.client.Get(ctx, tokenKeyPrefix+token).Bytes()
	switch {
	case err == nil:
		var e entry
		if jsonErr := json.Unmarshal(raw, &e); jsonErr == nil {
			return e.user(), nil
		}
		r.drop(ctx, token)
	case !errors.Is(err, redis.Nil):
		r.log.Warn("token cache read failed", zap.Error(err))
	}

	u, err := r.next.FindByToken(ctx, token)
	if err != nil {
		return model.User{}, err
	}
	r.store(ctx, u)

	return u, nil
}

func (r *CachedUserRepo) Persist(ctx context.Context, u *model.User) error {
	old := u.TokenValue()
	if err := r.next.Persist(ctx, u); err != nil {
		return err
	}
	r.drop(ctx, old)
	r.store(ctx, *u)

	return nil
}

func (r *CachedUserRepo) SetToken(ctx context.Context, u *model.User, token string, validUntil time.Time) error {
	old := u.TokenValue()
	if err := r.next.SetToken(ctx, u, token, validUntil); err != nil {
		return err
	}
	if old != token {
		r.drop(ctx, old)
	}
	r.store(ctx, *u)

	return nil
}

// UpdateTokenValidTill drops the cached entry when the store refuses the
// update, so a copy that went stale in the cache cannot be served again.
func (r *CachedUserRepo) UpdateTokenValidTill(ctx context.Context, u *model.User, validUntil, now time.Time) error {
	if err := r.next.UpdateTokenValidTill(ctx, u, validUntil, now); err != nil {
		if errors.Is(err, customErrors.ErrNotFound) {
			r.drop(ctx, u.TokenValue())
		}
		return err
	}
	r.store(ctx, *u)

	return nil
}

func (r *CachedUserRepo) ResetToken(ctx context.Context, u *model.User) error {
	old := u.TokenValue()
	if err := r.next.ResetToken(ctx, u); err != nil {
		return err
	}
	r.drop(ctx, old)

	return nil
}

func (r *CachedUserRepo) store(ctx context.Context, u model.User) {
	if !u.HasToken() {
		return
	}
	ttl := safeTTL(*u.TokenValidUntil, r.ttl)
	if ttl <= 0 {
		r.drop(ctx, *u.Token)
		return
	}
	raw, err := json.Marshal(newEntry(u))
	if err != nil {
		r.log.Warn("token cache encode failed", zap.Error(err))
		return
	}
	if err := r.client.Set(ctx, tokenKeyPrefix+*u.Token, raw, ttl).Err(); err != nil {
		r.log.Warn("token cache write failed", zap.Error(err))
	}
}

func (r *CachedUserRepo) drop(ctx context.Context, token string) {
	if token == "" {
		return
	}
	if err := r.client.Del(ctx, tokenKeyPrefix+token).Err(); err != nil {
		r.log.Warn("token cache delete failed", zap.Error(err))
	}
}

// safeTTL caps the cache lifetime so an entry never outlives the token.
func safeTTL(validUntil time.Time, max time.Duration) time.Duration {
	ttl := time.Until(validUntil)
	if ttl > max {
		return max
	}
	return ttl
}
