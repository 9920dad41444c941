package repository

import (
	"context"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"gorm.io/gorm"
)

type AnalyticsGormRepository struct {
	db *gorm.DB
}

func NewAnalyticsGormRepository(db *gorm.DB) *AnalyticsGormRepository {
	return &AnalyticsGormRepository{db: db}
}

// 売上＝支払い済み（PAID/FULFILLED）の合計
func (r *AnalyticsGormRepository) RevenueBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var total *int64
	err := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Select("SUM(total_price)").
		Where("status IN ?", []model.OrderStatus{model.OrderStatusPaid, model.OrderStatusFulfilled}).
		Where("created_at >= ? AND created_at <= ?", from, to).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}

func (r *AnalyticsGormRepository) CountOrdersByStatus(ctx context.Context, from, to time.Time) (map[model.OrderStatus]int64, error) {
	type row struct {
		Status model.OrderStatus
		Count  int64
	}

	var rows []row
	err := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Select("status, COUNT(*) as count").
		Where("created_at >= ? AND created_at <= ?", from, to).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[model.OrderStatus]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.Count
	}
	return out, nil
}

// 支払い済み注文の明細から数量上位を取る
func (r *AnalyticsGormRepository) TopProducts(ctx context.Context, from, to time.Time, limit int) ([]repo.TopProduct, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	var rows []repo.TopProduct
	err := r.db.WithContext(ctx).
		Table("order_items").
		Select("order_items.product_id, order_items.product_name_snapshot as name, SUM(order_items.quantity) as quantity, SUM(order_items.quantity * order_items.unit_price_snapshot) as revenue").
		Joins("join orders on orders.id = order_items.order_id").
		Where("orders.status IN ?", []model.OrderStatus{model.OrderStatusPaid, model.OrderStatusFulfilled}).
		Where("orders.created_at >= ? AND orders.created_at <= ?", from, to).
		Group("order_items.product_id, order_items.product_name_snapshot").
		Order("quantity DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
