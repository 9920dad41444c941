package model

import "time"

type PaymentOutcome string

const (
	PaymentOutcomeSucceeded PaymentOutcome = "succeeded"
	PaymentOutcomeFailed    PaymentOutcome = "failed"
)

// Webhookで受けたプロバイダイベント。
// event_idのuniqueIndexが「処理済みイベント集合」そのもの（冪等取り込み）。
type PaymentEvent struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`

	//プロバイダ採番のイベントID
	EventID string `gorm:"type:varchar(255);not null;uniqueIndex" json:"event_id"`

	PaymentRef string         `gorm:"type:varchar(255);not null;index" json:"payment_ref"`
	OrderID    int64          `gorm:"index" json:"order_id"`
	Outcome    PaymentOutcome `gorm:"type:varchar(20);not null" json:"outcome"`

	//生のpayload（調査用）
	Payload string `gorm:"type:text" json:"-"`

	Processed   bool       `gorm:"not null;default:false;index" json:"processed"`
	ProcessedAt *time.Time `json:"processed_at"`
	CreatedAt   time.Time  `gorm:"not null;autoCreateTime" json:"created_at"`
}
