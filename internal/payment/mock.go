package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// 開発・テスト用のゲートウェイ。
// 署名はHMAC-SHA256(hex)。支払い完了を勝手に作ったりはしない。
type MockGateway struct {
	secret []byte
}

func NewMockGateway(secret string) *MockGateway {
	return &MockGateway{secret: []byte(secret)}
}

func (g *MockGateway) CreateIntent(ctx context.Context, orderID int64, amount int64, currency string) (string, error) {
	return "mock_pi_" + uuid.NewString(), nil
}

type mockWebhookBody struct {
	EventID    string  `json:"event_id"`
	PaymentRef string  `json:"payment_ref"`
	OrderID    int64   `json:"order_id"`
	Outcome    Outcome `json:"outcome"`
}

func (g *MockGateway) VerifyWebhook(payload []byte, signature string) (VerifiedEvent, error) {
	mac := hmac.New(sha256.New, g.secret)
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return VerifiedEvent{}, ErrInvalidSignature
	}

	var body mockWebhookBody
	if err := json.Unmarshal(payload, &body); err != nil {
		return VerifiedEvent{}, fmt.Errorf("parse webhook body: %w", err)
	}
	if body.Outcome != OutcomeSucceeded && body.Outcome != OutcomeFailed {
		return VerifiedEvent{}, fmt.Errorf("%w: %s", ErrUnhandledEvent, body.Outcome)
	}

	return VerifiedEvent{
		EventID:    body.EventID,
		PaymentRef: body.PaymentRef,
		OrderID:    body.OrderID,
		Outcome:    body.Outcome,
		Raw:        payload,
	}, nil
}

// テストやローカル検証で使う署名生成
func SignMockPayload(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
