package usecase

import (
	"context"
	"net/http"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

type AnalyticsUsecase struct {
	analyticsRepo repo.AnalyticsRepository
}

func NewAnalyticsUsecase(analyticsRepo repo.AnalyticsRepository) *AnalyticsUsecase {
	return &AnalyticsUsecase{analyticsRepo: analyticsRepo}
}

type SalesSummaryOutput struct {
	From           time.Time                   `json:"from"`
	To             time.Time                   `json:"to"`
	Revenue        int64                       `json:"revenue"`
	OrdersByStatus map[model.OrderStatus]int64 `json:"orders_by_status"`
	TopProducts    []repo.TopProduct           `json:"top_products"`
}

// 管理者向けの売上サマリ。売上はPAID/FULFILLEDのみ集計。
func (u *AnalyticsUsecase) SalesSummary(ctx context.Context, from, to time.Time, topLimit int) (SalesSummaryOutput, error) {
	if to.IsZero() {
		to = time.Now()
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -30)
	}
	if from.After(to) {
		return SalesSummaryOutput{}, NewHTTPError(http.StatusBadRequest, "from must be <= to")
	}

	revenue, err := u.analyticsRepo.RevenueBetween(ctx, from, to)
	if err != nil {
		return SalesSummaryOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	byStatus, err := u.analyticsRepo.CountOrdersByStatus(ctx, from, to)
	if err != nil {
		return SalesSummaryOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	top, err := u.analyticsRepo.TopProducts(ctx, from, to, topLimit)
	if err != nil {
		return SalesSummaryOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return SalesSummaryOutput{
		From:           from,
		To:             to,
		Revenue:        revenue,
		OrdersByStatus: byStatus,
		TopProducts:    top,
	}, nil
}
