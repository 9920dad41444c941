package repository

import (
	"context"

	"app/internal/domain/model"
)

type WishlistRepository interface {
	// 既に入っていればfalse（unique制約）
	Add(ctx context.Context, userID int64, productID int64) (bool, error)
	ListByUserID(ctx context.Context, userID int64) ([]model.WishlistItem, error)
	Remove(ctx context.Context, userID int64, productID int64) error
}
