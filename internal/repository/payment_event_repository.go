package repository

import (
	"context"
	"time"

	"app/internal/domain/model"
)

// 処理済みイベント集合の永続化。冪等取り込みの根拠はDB側のunique制約。
type PaymentEventRepository interface {
	// event_idが未知なら保存してtrue。既知（重複配送）ならfalseで何もしない。
	InsertIfNew(ctx context.Context, ev model.PaymentEvent) (bool, error)

	FindByEventID(ctx context.Context, eventID string) (model.PaymentEvent, error)

	// 未処理イベント（webhook受領済みだが遷移未適用）を古い順に返す
	ListUnprocessed(ctx context.Context, limit int) ([]model.PaymentEvent, error)

	MarkProcessed(ctx context.Context, eventID string, at time.Time) error
}
