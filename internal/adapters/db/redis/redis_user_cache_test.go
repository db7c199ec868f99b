package redis

import (
	"context"
	"testing"
	"time"

	"github.com/Miraines/MoonyAndStarry/todo-api/internal/adapters/db/memory"
	"github.com/Miraines/MoonyAndStarry/todo-api/internal/app/auth/security"
	"github.com/Miraines/MoonyAndStarry/todo-api/internal/app/auth/token"
	customErrors "github.com/Miraines/MoonyAndStarry/todo-api/internal/domain/auth/errors"
	"github.com/Miraines/MoonyAndStarry/todo-api/internal/domain/auth/model"
	"github.com/Miraines/MoonyAndStarry/todo-api/internal/infra/clock"
	"github.com/alicebob/miniredis/v2"
	redisv9 "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T) (*CachedUserRepo, *memory.UserRepo, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	t.Cleanup(mr.Close)

	client := redisv9.NewClient(&redisv9.Options{
		Addr: mr.Addr(),
	})
	inner := memory.NewUserRepo()
	return NewCachedUserRepo(inner, client, time.Minute, nil), inner, mr
}

func seedUser(t *testing.T, r *CachedUserRepo) model.User {
	t.Helper()
	u := model.User{Email: "a@x.com", PasswordHash: "h"}
	require.NoError(t, r.Persist(context.Background(), &u))
	return u
}

func TestCachedUserRepo_SetTokenPopulatesCache(t *testing.T) {
	repo, _, mr := newRepo(t)
	ctx := context.Background()
	u := seedUser(t, repo)

	require.NoError(t, repo.SetToken(ctx, &u, "T1", time.Now().Add(time.Hour)))
	if !mr.Exists(tokenKeyPrefix + "T1") {
		t.Fatal("token should be cached after SetToken")
	}

	ttl := mr.TTL(tokenKeyPrefix + "T1")
	require.LessOrEqual(t, ttl, time.Minute)

	got, err := repo.FindByToken(ctx, "T1")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
	require.Equal(t, "T1", got.TokenValue())
}

func TestCachedUserRepo_ReadThrough(t *testing.T) {
	repo, inner, mr := newRepo(t)
	ctx := context.Background()
	u := seedUser(t, repo)

	// written behind the cache's back
	require.NoError(t, inner.SetToken(ctx, &u, "T2", time.Now().Add(time.Hour)))
	if mr.Exists(tokenKeyPrefix + "T2") {
		t.Fatal("cache must be cold")
	}

	got, err := repo.FindByToken(ctx, "T2")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
	if !mr.Exists(tokenKeyPrefix + "T2") {
		t.Fatal("lookup should populate the cache")
	}
}

func TestCachedUserRepo_ResetDropsEntry(t *testing.T) {
	repo, _, mr := newRepo(t)
	ctx := context.Background()
	u := seedUser(t, repo)

	require.NoError(t, repo.SetToken(ctx, &u, "T3", time.Now().Add(time.Hour)))
	require.NoError(t, repo.ResetToken(ctx, &u))

	if mr.Exists(tokenKeyPrefix + "T3") {
		t.Fatal("reset must evict the cached token")
	}
	_, err := repo.FindByToken(ctx, "T3")
	require.True(t, customErrors.IsNotFound(err))
}

func TestCachedUserRepo_ReissueDropsOldToken(t *testing.T) {
	repo, _, mr := newRepo(t)
	ctx := context.Background()
	u := seedUser(t, repo)

	require.NoError(t, repo.SetToken(ctx, &u, "old", time.Now().Add(time.Hour)))
	require.NoError(t, repo.SetToken(ctx, &u, "new", time.Now().Add(time.Hour)))

	if mr.Exists(tokenKeyPrefix + "old") {
		t.Fatal("old token must be evicted")
	}
	_, err := repo.FindByToken(ctx, "old")
	require.True(t, customErrors.IsNotFound(err))
}

func TestCachedUserRepo_ProlongRefreshesEntry(t *testing.T) {
	repo, _, _ := newRepo(t)
	ctx := context.Background()
	u := seedUser(t, repo)

	require.NoError(t, repo.SetToken(ctx, &u, "T4", time.Now().Add(time.Minute)))
	later := time.Unix(time.Now().Add(5*time.Hour).Unix(), 0)
	require.NoError(t, repo.UpdateTokenValidTill(ctx, &u, later, time.Now()))

	got, err := repo.FindByToken(ctx, "T4")
	require.NoError(t, err)
	require.Equal(t, later.Unix(), got.TokenValidUntil.Unix())
}

func TestCachedUserRepo_ExpiredTokenNotCached(t *testing.T) {
	repo, _, mr := newRepo(t)
	ctx := context.Background()
	u := seedUser(t, repo)

	require.NoError(t, repo.SetToken(ctx, &u, "EXPIRED", time.Now().Add(-time.Hour)))
	if mr.Exists(tokenKeyPrefix + "EXPIRED") {
		t.Fatal("expired token must not be cached")
	}

	got, err := repo.FindByToken(ctx, "EXPIRED")
	require.NoError(t, err)
	require.True(t, got.TokenValidUntil.Before(time.Now()))
}

func TestCachedUserRepo_RedisDownFallsBack(t *testing.T) {
	repo, inner, mr := newRepo(t)
	ctx := context.Background()
	u := seedUser(t, repo)
	require.NoError(t, inner.SetToken(ctx, &u, "T5", time.Now().Add(time.Hour)))

	mr.Close()

	got, err := repo.FindByToken(ctx, "T5")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
}

func TestCachedUserRepo_ExpiryForcedInStoreIsNotRenewed(t *testing.T) {
	repo, inner, mr := newRepo(t)
	ctx := context.Background()
	u := seedUser(t, repo)
	require.NoError(t, repo.SetToken(ctx, &u, "T6", time.Now().Add(time.Hour)))

	// expired behind the cache's back
	behind := u
	require.NoError(t, inner.UpdateTokenValidTill(ctx, &behind, time.Now().Add(-time.Hour), time.Now()))

	clk := clock.New(nil)
	auth := security.NewTokenAuthenticator(repo, clk, token.NewIssuer(repo, clk, time.Hour), time.Hour, nil)
	_, err := auth.Authenticate(ctx, "T6")
	require.True(t, customErrors.IsAuthenticationFailed(err))
	require.Equal(t, customErrors.MsgTokenExpired, customErrors.ClientMessage(err))

	if mr.Exists(tokenKeyPrefix + "T6") {
		t.Fatal("stale entry must be dropped")
	}
	stored, err := inner.FindByToken(ctx, "T6")
	require.NoError(t, err)
	require.True(t, stored.TokenValidUntil.Before(time.Now()))

	_, err = auth.Authenticate(ctx, "T6")
	require.Equal(t, customErrors.MsgTokenExpired, customErrors.ClientMessage(err))
}

func TestCachedUserRepo_PasswordHashNotCached(t *testing.T) {
	repo, _, mr := newRepo(t)
	ctx := context.Background()
	u := model.User{Email: "a@x.com", PasswordHash: "$argon2id$secret-hash"}
	require.NoError(t, repo.Persist(ctx, &u))
	require.NoError(t, repo.SetToken(ctx, &u, "T7", time.Now().Add(time.Hour)))

	raw, err := mr.Get(tokenKeyPrefix + "T7")
	require.NoError(t, err)
	require.NotContains(t, raw, "secret-hash")

	got, err := repo.FindByToken(ctx, "T7")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
	require.Equal(t, "a@x.com", got.Email)
	require.Empty(t, got.PasswordHash)
}
