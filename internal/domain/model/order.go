package model

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusPaid      OrderStatus = "PAID"
	OrderStatusFailed    OrderStatus = "FAILED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
	OrderStatusFulfilled OrderStatus = "FULFILLED"
)

// 許可される遷移。終端ステータスは粘着（どのイベント順でも戻らない）。
var validNext = map[OrderStatus]map[OrderStatus]bool{
	OrderStatusPending:   {OrderStatusPaid: true, OrderStatusFailed: true, OrderStatusCancelled: true},
	OrderStatusPaid:      {OrderStatusFulfilled: true},
	OrderStatusFailed:    {},
	OrderStatusCancelled: {},
	OrderStatusFulfilled: {},
}

func CanTransition(from, to OrderStatus) bool {
	return validNext[from][to]
}

// FAILED/CANCELLEDに入る時だけ予約在庫を戻す。
func ReleasesStock(from, to OrderStatus) bool {
	if from != OrderStatusPending {
		return false
	}
	return to == OrderStatusFailed || to == OrderStatusCancelled
}

func (s OrderStatus) IsTerminal() bool {
	return len(validNext[s]) == 0
}

type Order struct {
	ID        int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64       `gorm:"not null;index" json:"user_id"`
	AddressID int64       `gorm:"not null" json:"address_id"`
	Status    OrderStatus `gorm:"type:varchar(20);not null;index" json:"status"`

	//作成時点の明細合計。以後、現在価格からは再計算しない。
	TotalPrice int64 `gorm:"not null" json:"total_price"`

	//決済プロバイダのintent ID。intent作成までは空。
	PaymentRef string `gorm:"type:varchar(255);index" json:"payment_ref,omitempty"`

	IdempotencyKey string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"-"`
	CreatedAt      time.Time `gorm:"not null;autoCreateTime;index" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
