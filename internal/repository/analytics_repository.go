package repository

import (
	"context"
	"time"

	"app/internal/domain/model"
)

type TopProduct struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int64  `json:"quantity"`
	Revenue   int64  `json:"revenue"`
}

// 管理者向けの集計クエリ
type AnalyticsRepository interface {
	// PAID/FULFILLED注文の売上合計
	RevenueBetween(ctx context.Context, from, to time.Time) (int64, error)

	// ステータスごとの注文数
	CountOrdersByStatus(ctx context.Context, from, to time.Time) (map[model.OrderStatus]int64, error)

	// 売上数量の多い商品
	TopProducts(ctx context.Context, from, to time.Time, limit int) ([]TopProduct, error)
}
