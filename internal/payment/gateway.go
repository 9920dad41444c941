package payment

import (
	"context"
	"errors"
)

type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
)

var (
	// 署名不一致。本文は信用しない。
	ErrInvalidSignature = errors.New("payment: invalid webhook signature")
	// ゲートウェイ側の一時障害。リトライ対象。
	ErrGatewayUnavailable = errors.New("payment: gateway unavailable")
	// 関知しないイベント種別
	ErrUnhandledEvent = errors.New("payment: unhandled event type")
)

// 署名検証済みのwebhookイベント
type VerifiedEvent struct {
	EventID    string
	PaymentRef string
	OrderID    int64
	Outcome    Outcome
	Raw        []byte
}

type Gateway interface {
	// 決済インテントを作成してpayment_refを返す
	CreateIntent(ctx context.Context, orderID int64, amount int64, currency string) (string, error)
	// webhook本文の署名を検証してイベントに変換する
	VerifyWebhook(payload []byte, signature string) (VerifiedEvent, error)
}
