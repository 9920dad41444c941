package repository

import (
	"context"

	"app/internal/domain/model"
)

// 在庫台帳。予約＝注文作成トランザクション内の条件付き減算で、
// read-then-writeはしない（同時購入でも売り越さない）。
type InventoryRepository interface {
	// 在庫が足りるときだけ1文のUPDATEで減算する。falseなら在庫不足。
	DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error)

	// 在庫戻し（キャンセル・決済失敗・期限切れ）
	IncreaseStock(ctx context.Context, productID int64, qty int64) error

	// 在庫の現在値を設定（管理者）
	SetStock(ctx context.Context, productID int64, newStock int64) error

	// 調整履歴
	CreateAdjustment(ctx context.Context, adj model.InventoryAdjustment) error
}
