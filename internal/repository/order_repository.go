package repository

import (
	"context"
	"time"

	"app/internal/domain/model"
)

type AdminOrderListFilter struct {
	Page   int
	Limit  int
	Status string
	UserID *int64
	From   *time.Time
	To     *time.Time
}

type OrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.Order, error)

	// 行ロック付き取得。1注文の遷移を直列化するためTx内でのみ使う。
	FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error)
	FindByPaymentRefForUpdate(ctx context.Context, paymentRef string) (model.Order, error)

	ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error)
	Create(ctx context.Context, order model.Order) (int64, error)
	UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error
	UpdatePaymentRef(ctx context.Context, orderID int64, paymentRef string) error

	// 同じキーなら同じ結果を返すための検索
	FindByIdempotencyKey(ctx context.Context, userID int64, key string) (model.Order, bool, error)

	// 期限切れ掃除の対象（PENDINGかつcreated_at < before）
	ListExpiredPending(ctx context.Context, before time.Time, limit int) ([]model.Order, error)

	// payment_ref未設定のPENDING（intent作成リトライ対象）
	ListPendingWithoutPaymentRef(ctx context.Context, limit int) ([]model.Order, error)

	// 管理者用の注文一覧
	ListAdmin(ctx context.Context, f AdminOrderListFilter) ([]model.Order, int64, error)
}
