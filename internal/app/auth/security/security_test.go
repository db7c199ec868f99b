package security_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Miraines/MoonyAndStarry/todo-api/internal/adapters/db/memory"
	"github.com/Miraines/MoonyAndStarry/todo-api/internal/app/auth/security"
	"github.com/Miraines/MoonyAndStarry/todo-api/internal/app/auth/token"
	authErrors "github.com/Miraines/MoonyAndStarry/todo-api/internal/domain/auth/errors"
	"github.com/Miraines/MoonyAndStarry/todo-api/internal/domain/auth/model"
	"github.com/Miraines/MoonyAndStarry/todo-api/internal/infra/clock"
	"github.com/Miraines/MoonyAndStarry/todo-api/internal/infra/password"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

/* ──────────────────────────────── stubs ──────────────────────────────── */

type issuerStub struct {
	issueErr   error
	prolongErr error
	prolonged  int
}

func (s *issuerStub) Issue(_ context.Context, u *model.User, _ time.Duration) error {
	if s.issueErr != nil {
		return s.issueErr
	}
	tok, exp := "issued", time.Now().Add(time.Hour)
	u.Token, u.TokenValidUntil = &tok, &exp
	return nil
}

func (s *issuerStub) Prolong(_ context.Context, _ *model.User, _ time.Duration) error {
	s.prolonged++
	return s.prolongErr
}

type brokenStore struct{ *memory.UserRepo }

func (brokenStore) FindByEmail(context.Context, string) (model.User, error) {
	return model.User{}, authErrors.WrapPersistence(errors.New("db down"), "FindByEmail")
}
func (brokenStore) FindByToken(context.Context, string) (model.User, error) {
	return model.User{}, authErrors.WrapPersistence(errors.New("db down"), "FindByToken")
}

/* ───────────────────────────── helpers ───────────────────────────── */

type fixture struct {
	users  *memory.UserRepo
	hasher *password.Hasher
	clock  *clock.Clock
	issuer *token.Issuer
	user   model.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	users := memory.NewUserRepo()
	hasher, err := password.NewHasher("pepper", password.TestParams)
	require.NoError(t, err)

	hash, err := hasher.Hash("pw123")
	require.NoError(t, err)
	u := model.User{Email: "a@x.com", PasswordHash: hash}
	require.NoError(t, users.Persist(context.Background(), &u))

	c := clock.New(nil)
	return &fixture{
		users:  users,
		hasher: hasher,
		clock:  c,
		issuer: token.NewIssuer(users, c, time.Hour),
		user:   u,
	}
}

func requireFailure(t *testing.T, err error, msg string) {
	t.Helper()
	require.Error(t, err)
	require.True(t, authErrors.IsAuthenticationFailed(err), "got %v", err)
	require.Equal(t, msg, authErrors.ClientMessage(err))
}

/* ───────────────────────────── login ───────────────────────────── */

func TestLogin_Success(t *testing.T) {
	f := newFixture(t)
	login := security.NewLoginAuthenticator(f.users, f.hasher, f.issuer, 0)
	ctx := context.Background()

	u, err := login.Authenticate(ctx, model.Credentials{Email: "a@x.com", Password: "pw123"})
	require.NoError(t, err)
	require.True(t, u.HasToken())
	require.False(t, f.clock.IsPast(*u.TokenValidUntil))

	stored, err := f.users.FindByToken(ctx, u.TokenValue())
	require.NoError(t, err)
	require.Equal(t, f.user.ID, stored.ID)
}

func TestLogin_WrongPasswordIssuesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.issuer.Issue(ctx, &f.user, 0))
	before := f.user.TokenValue()

	login := security.NewLoginAuthenticator(f.users, f.hasher, f.issuer, 0)
	_, err := login.Authenticate(ctx, model.Credentials{Email: "a@x.com", Password: "pw1234"})
	requireFailure(t, err, authErrors.MsgWrongCredentials)

	stored, err := f.users.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.Equal(t, before, stored.TokenValue())
}

func TestLogin_UnknownEmail(t *testing.T) {
	f := newFixture(t)
	login := security.NewLoginAuthenticator(f.users, f.hasher, f.issuer, 0)

	_, err := login.Authenticate(context.Background(), model.Credentials{Email: "nobody@x.com", Password: "pw123"})
	requireFailure(t, err, authErrors.MsgWrongCredentials)
}

func TestLogin_EmptyCredentials(t *testing.T) {
	f := newFixture(t)
	login := security.NewLoginAuthenticator(f.users, f.hasher, f.issuer, 0)

	_, err := login.Authenticate(context.Background(), model.Credentials{})
	requireFailure(t, err, authErrors.MsgWrongCredentials)
}

func TestLogin_IssueFailureIsNotLeaked(t *testing.T) {
	f := newFixture(t)
	stub := &issuerStub{issueErr: authErrors.WrapPersistence(errors.New("deadlock detected"), "Issue")}
	login := security.NewLoginAuthenticator(f.users, f.hasher, stub, 0)

	_, err := login.Authenticate(context.Background(), model.Credentials{Email: "a@x.com", Password: "pw123"})
	requireFailure(t, err, authErrors.MsgTryLater)
	require.True(t, authErrors.IsPersistence(err))
}

func TestLogin_StoreFailure(t *testing.T) {
	f := newFixture(t)
	login := security.NewLoginAuthenticator(brokenStore{f.users}, f.hasher, f.issuer, 0)

	_, err := login.Authenticate(context.Background(), model.Credentials{Email: "a@x.com", Password: "pw123"})
	requireFailure(t, err, authErrors.MsgTryLater)
}

/* ───────────────────────────── token ───────────────────────────── */

func TestToken_AcceptsAndProlongs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.issuer.Issue(ctx, &f.user, time.Minute))
	tok := f.user.TokenValue()

	auth := security.NewTokenAuthenticator(f.users, f.clock, f.issuer, time.Hour, nil)
	u, err := auth.Authenticate(ctx, tok)
	require.NoError(t, err)
	require.Equal(t, f.user.ID, u.ID)
	require.Equal(t, tok, u.TokenValue())
	require.GreaterOrEqual(t, u.TokenValidUntil.Unix(), time.Now().Add(time.Hour).Unix()-1)

	stored, err := f.users.FindByToken(ctx, tok)
	require.NoError(t, err)
	require.Equal(t, u.TokenValidUntil.Unix(), stored.TokenValidUntil.Unix())
}

func TestToken_Blank(t *testing.T) {
	f := newFixture(t)
	auth := security.NewTokenAuthenticator(f.users, f.clock, f.issuer, time.Hour, nil)

	for _, tok := range []string{"", "   ", "\t"} {
		_, err := auth.Authenticate(context.Background(), tok)
		requireFailure(t, err, authErrors.MsgWrongToken)
	}
}

func TestToken_Unknown(t *testing.T) {
	f := newFixture(t)
	auth := security.NewTokenAuthenticator(f.users, f.clock, f.issuer, time.Hour, nil)

	_, err := auth.Authenticate(context.Background(), "nope")
	requireFailure(t, err, authErrors.MsgWrongToken)
}

func TestToken_Expired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.users.SetToken(ctx, &f.user, "EXPIRED_TOKEN", time.Now().Add(-time.Hour)))

	auth := security.NewTokenAuthenticator(f.users, f.clock, f.issuer, time.Hour, nil)
	_, err := auth.Authenticate(ctx, "EXPIRED_TOKEN")
	requireFailure(t, err, authErrors.MsgTokenExpired)
}

func TestToken_ZeroExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.users.SetToken(ctx, &f.user, "HALF", time.Now().Add(time.Hour)))
	require.NoError(t, f.users.UpdateTokenValidTill(ctx, &f.user, time.Time{}, time.Now()))

	auth := security.NewTokenAuthenticator(f.users, f.clock, f.issuer, time.Hour, nil)
	_, err := auth.Authenticate(ctx, "HALF")
	requireFailure(t, err, authErrors.MsgTokenExpired)
}

func TestToken_StoreFailure(t *testing.T) {
	f := newFixture(t)
	auth := security.NewTokenAuthenticator(brokenStore{f.users}, f.clock, f.issuer, time.Hour, nil)

	_, err := auth.Authenticate(context.Background(), "whatever")
	requireFailure(t, err, authErrors.MsgTryLater)
}

func TestToken_ProlongFailureIsLogged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.issuer.Issue(ctx, &f.user, 0))

	core, logs := observer.New(zap.WarnLevel)
	stub := &issuerStub{prolongErr: authErrors.WrapPersistence(errors.New("db down"), "Prolong")}
	failures := 0

	auth := security.NewTokenAuthenticator(f.users, f.clock, stub, time.Hour, zap.New(core)).
		OnProlongFailure(func() { failures++ })
	u, err := auth.Authenticate(ctx, f.user.TokenValue())
	require.NoError(t, err)
	require.Equal(t, f.user.ID, u.ID)

	require.Equal(t, 1, stub.prolonged)
	require.Equal(t, 1, failures)
	require.Equal(t, 1, logs.FilterMessage("token prolongation failed").Len())
}

func TestToken_RejectedWhenStoreRefusesProlong(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.issuer.Issue(ctx, &f.user, 0))

	stub := &issuerStub{prolongErr: authErrors.WrapPersistence(authErrors.ErrNotFound, "Prolong")}
	failures := 0
	auth := security.NewTokenAuthenticator(f.users, f.clock, stub, time.Hour, nil).
		OnProlongFailure(func() { failures++ })

	_, err := auth.Authenticate(ctx, f.user.TokenValue())
	requireFailure(t, err, authErrors.MsgTokenExpired)
	require.Zero(t, failures)
}

func TestRememberMeUnsupported(t *testing.T) {
	require.False(t, security.SupportsRememberMe)
}
