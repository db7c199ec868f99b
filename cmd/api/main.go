package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	myPostgresRepo "github.com/Miraines/MoonyAndStarry/todo-api/internal/adapters/db/postgres"
	"github.com/Miraines/MoonyAndStarry/todo-api/internal/adapters/db/memory"
	myRedisRepo "github.com/Miraines/MoonyAndStarry/todo-api/internal/adapters/db/redis"
	"github.com/Miraines/MoonyAndStarry/todo-api/internal/adapters/transport/http/guard"
	"github.com/Miraines/MoonyAndStarry/todo-api/internal/adapters/transport/http/handler"
	"github.com/Miraines/MoonyAndStarry/todo-api/internal/adapters/transport/http/router"
	"github.com/Miraines/MoonyAndStarry/todo-api/internal/app/auth/security"
	"github.com/Miraines/MoonyAndStarry/todo-api/internal/app/auth/token"
	"github.com/Miraines/MoonyAndStarry/todo-api/internal/domain/auth/repo"
	"github.com/Miraines/MoonyAndStarry/todo-api/internal/infra/clock"
	"github.com/Miraines/MoonyAndStarry/todo-api/internal/infra/config"
	lg "github.com/Miraines/MoonyAndStarry/todo-api/internal/infra/log"
	"github.com/Miraines/MoonyAndStarry/todo-api/internal/infra/metrics"
	"github.com/Miraines/MoonyAndStarry/todo-api/internal/infra/migrate"
	"github.com/Miraines/MoonyAndStarry/todo-api/internal/infra/password"
	"github.com/Miraines/MoonyAndStarry/todo-api/internal/infra/server"
	"golang.org/x/sync/errgroup"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		lg.Must("").Fatal("failed to load config", zap.Error(err))
	}

	zapLog := lg.Must(cfg.LogLevel)
	defer zapLog.Sync()

	var users repo.UserRepo
	switch cfg.Storage {
	case config.StorageMemory:
		zapLog.Warn("using in-memory user store, data is lost on restart")
		users = memory.NewUserRepo()
	default:
		db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
		if err != nil {
			zapLog.Fatal("failed to connect to database", zap.Error(err))
		}
		sqlDB, err := db.DB()
		if err != nil {
			zapLog.Fatal("db handle", zap.Error(err))
		}
		defer sqlDB.Close()
		if err := migrate.Up(sqlDB); err != nil {
			zapLog.Fatal("run migrations", zap.Error(err))
		}
		users = myPostgresRepo.NewPostgresUserRepo(db)
	}

	if cfg.CacheEnabled() {
		redisCli := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisCli.Close()
		if err := redisCli.Ping(context.Background()).Err(); err != nil {
			zapLog.Warn("redis unreachable, token lookups go to the store", zap.Error(err))
		}
		users = myRedisRepo.NewCachedUserRepo(users, redisCli, cfg.TokenCacheTTL, zapLog)
	}

	hasher, err := password.NewHasher(cfg.PasswordPepper, password.DefaultParams)
	if err != nil {
		zapLog.Fatal("failed to init password hasher", zap.Error(err))
	}

	clk := clock.New(zapLog)
	issuer := token.NewIssuer(users, clk, cfg.TokenTTL)
	m := metrics.New()

	loginAuth := security.NewLoginAuthenticator(users, hasher, issuer, cfg.TokenTTL)
	tokenAuth := security.NewTokenAuthenticator(users, clk, issuer, cfg.TokenTTL, zapLog).
		OnProlongFailure(m.ProlongFailed)

	gin.SetMode(gin.ReleaseMode)
	engine := router.New(router.Deps{
		LoginGuard:       guard.NewLoginGuard(loginAuth, cfg.LoginPath, zapLog),
		TokenGuard:       guard.NewTokenGuard(tokenAuth, cfg.LoginPath, zapLog),
		Handler:          handler.New(issuer, zapLog),
		Metrics:          m,
		Log:              zapLog,
		LoginPath:        cfg.LoginPath,
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowCredentials: cfg.AllowCredentials,
		LoginRateLimit:   cfg.LoginRateLimit,
		LoginRateBurst:   cfg.LoginRateBurst,
	})

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(rootCtx)

	g.Go(func() error {
		return server.RunHTTP(ctx, cfg.HTTPAddress, engine, zapLog)
	})

	<-ctx.Done()
	zapLog.Info("shutdown signal received")
	if err := g.Wait(); err != nil {
		zapLog.Error("server terminated", zap.Error(err))
	}
}
