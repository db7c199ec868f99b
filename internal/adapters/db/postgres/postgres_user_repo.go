package postgres

import (
	"context"
	"errors"
	"time"

	customErrors "github.com/Miraines/MoonyAndStarry/todo-api/internal/domain/auth/errors"
	"github.com/Miraines/MoonyAndStarry/todo-api/internal/domain/auth/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const uniqueViolation = "23505"

type PostgresUserRepo struct {
	db *gorm.DB
}

func NewPostgresUserRepo(db *gorm.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

func (p *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (model.User, error) {
	return p.findOne(ctx, "email = ?", email, "FindByEmail")
}

func (p *PostgresUserRepo) FindByToken(ctx context.Context, token string) (model.User, error) {
	if token == "" {
		return model.User{}, customErrors.ErrNotFound
	}
	return p.findOne(ctx, "token = ?", token, "FindByToken")
}

func (p *PostgresUserRepo) findOne(ctx context.Context, query string, arg any, op string) (model.User, error) {
	var u model.User
	res := p.db.WithContext(ctx).Where(query, arg).First(&u)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return model.User{}, customErrors.ErrNotFound
	}
	if err := res.Error; err != nil {
		return model.User{}, customErrors.WrapPersistence(err, op)
	}

	return u, nil
}

func (p *PostgresUserRepo) Persist(ctx context.Context, u *model.User) error {
	var res *gorm.DB
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
		res = p.db.WithContext(ctx).Create(u)
	} else {
		res = p.db.WithContext(ctx).Save(u)
	}
	if err := res.Error; err != nil {
		if isUniqueViolation(err) {
			return customErrors.ErrAlreadyExists
		}
		return customErrors.WrapPersistence(err, "Persist")
	}

	return nil
}

func (p *PostgresUserRepo) SetToken(ctx context.Context, u *model.User, token string, validUntil time.Time) error {
	err := p.update(ctx, "SetToken", map[string]any{
		"token":             token,
		"token_valid_until": validUntil,
	}, "id = ?", u.ID)
	if err != nil {
		return err
	}
	u.Token, u.TokenValidUntil = &token, &validUntil

	return nil
}

func (p *PostgresUserRepo) UpdateTokenValidTill(ctx context.Context, u *model.User, validUntil, now time.Time) error {
	const op = "UpdateTokenValidTill"
	if !u.HasToken() {
		return customErrors.WrapPersistence(customErrors.ErrNotFound, op)
	}
	err := p.update(ctx, op, map[string]any{"token_valid_until": validUntil},
		"id = ? AND token = ? AND token_valid_until >= ?",
		u.ID, *u.Token, time.Unix(now.Unix(), 0),
	)
	if err != nil {
		return err
	}
	u.TokenValidUntil = &validUntil

	return nil
}

func (p *PostgresUserRepo) ResetToken(ctx context.Context, u *model.User) error {
	err := p.update(ctx, "ResetToken", map[string]any{
		"token":             nil,
		"token_valid_until": nil,
	}, "id = ?", u.ID)
	if err != nil {
		return err
	}
	u.Token, u.TokenValidUntil = nil, nil

	return nil
}

// update applies fields to the rows matching query; no match is reported as
// ErrNotFound.
func (p *PostgresUserRepo) update(ctx context.Context, op string, fields map[string]any, query string, args ...any) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.User{}).Where(query, args...).Updates(fields)
		if err := res.Error; err != nil {
			if isUniqueViolation(err) {
				return customErrors.WrapPersistence(customErrors.ErrAlreadyExists, op)
			}
			return customErrors.WrapPersistence(err, op)
		}
		if res.RowsAffected == 0 {
			return customErrors.WrapPersistence(customErrors.ErrNotFound, op)
		}
		return nil
	})
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
