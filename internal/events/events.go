package events

import (
	"encoding/json"
	"time"
)

const (
	OrderCreated   = "order.created"
	OrderPaid      = "order.paid"
	OrderFailed    = "order.failed"
	OrderCancelled = "order.cancelled"
	OrderFulfilled = "order.fulfilled"
)

type Envelope struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Producer   string          `json:"producer"`
	Payload    json.RawMessage `json:"payload"`
}

type OrderEventPayload struct {
	OrderID    int64  `json:"order_id"`
	UserID     int64  `json:"user_id"`
	Status     string `json:"status"`
	TotalPrice int64  `json:"total_price"`
}
