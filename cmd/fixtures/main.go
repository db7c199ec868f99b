package main

import (
	"context"
	"flag"
	"time"

	myPostgresRepo "github.com/Miraines/MoonyAndStarry/todo-api/internal/adapters/db/postgres"
	"github.com/Miraines/MoonyAndStarry/todo-api/internal/app/fixtures"
	"github.com/Miraines/MoonyAndStarry/todo-api/internal/infra/config"
	lg "github.com/Miraines/MoonyAndStarry/todo-api/internal/infra/log"
	"github.com/Miraines/MoonyAndStarry/todo-api/internal/infra/migrate"
	"github.com/Miraines/MoonyAndStarry/todo-api/internal/infra/password"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	plain := flag.String("password", "123456", "password for the seeded users")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		lg.Must("").Fatal("failed to load config", zap.Error(err))
	}
	zapLog := lg.Must(cfg.LogLevel)
	defer zapLog.Sync()

	if cfg.Storage != config.StoragePostgres {
		zapLog.Fatal("fixtures need STORAGE=postgres", zap.String("storage", cfg.Storage))
	}

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

	hasher, err := password.NewHasher(cfg.PasswordPepper, password.DefaultParams)
	if err != nil {
		zapLog.Fatal("failed to init password hasher", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	users := myPostgresRepo.NewPostgresUserRepo(db)
	if err := fixtures.Load(ctx, users, hasher, *plain, time.Now()); err != nil {
		zapLog.Fatal("load fixtures", zap.Error(err))
	}
	zapLog.Info("fixtures loaded",
		zap.String("valid", fixtures.ValidEmail),
		zap.String("expired", fixtures.ExpiredEmail),
	)
}
