package repository

import (
	"context"
	"errors"
	"time"

	"erp-conference-api/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrTokenNotConfigured means no token row exists for the account. This
// is a deployment problem, not a runtime one: callers must surface it
// and never retry.
var ErrTokenNotConfigured = errors.New("no token configured for account")

type TokenRepository interface {
	Get(ctx context.Context, account string) (*model.AccountToken, error)
	Save(ctx context.Context, token *model.AccountToken) error
}

type tokenRepoImpl struct {
	db *gorm.DB
}

func NewTokenRepository(db *gorm.DB) TokenRepository {
	return &tokenRepoImpl{
		db: db,
	}
}

func (r *tokenRepoImpl) Get(ctx context.Context, account string) (*model.AccountToken, error) {
	var token model.AccountToken
	err := r.db.WithContext(ctx).
		Where("account = ?", account).
		First(&token).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotConfigured
		}
		return nil, err
	}

	return &token, nil
}

func (r *tokenRepoImpl) Save(ctx context.Context, token *model.AccountToken) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "account"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"access_token":  token.AccessToken,
			"refresh_token": token.RefreshToken,
			"updated_at":    time.Now(),
		}),
	}).Create(token).Error
}
