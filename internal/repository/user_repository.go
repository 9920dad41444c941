package repository

import (
	"context"
	"errors"

	"app/internal/domain/model"
)

var ErrUserNotFound = errors.New("user not found")

type UserListFilter struct {
	Page  int
	Limit int
	Q     string
}

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, userID int64) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error

	//管理者用の一覧
	List(ctx context.Context, f UserListFilter) ([]model.User, int64, error)

	//token_versionを+1して既発行JWTを無効化
	IncrementTokenVersion(ctx context.Context, userID int64) error
}
