package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		name string
		from OrderStatus
		to   OrderStatus
		want bool
	}{
		{"pending to paid", OrderStatusPending, OrderStatusPaid, true},
		{"pending to failed", OrderStatusPending, OrderStatusFailed, true},
		{"pending to cancelled", OrderStatusPending, OrderStatusCancelled, true},
		{"paid to fulfilled", OrderStatusPaid, OrderStatusFulfilled, true},
		{"paid to failed", OrderStatusPaid, OrderStatusFailed, false},
		{"paid to cancelled", OrderStatusPaid, OrderStatusCancelled, false},
		{"paid to pending", OrderStatusPaid, OrderStatusPending, false},
		{"cancelled to paid", OrderStatusCancelled, OrderStatusPaid, false},
		{"failed to paid", OrderStatusFailed, OrderStatusPaid, false},
		{"fulfilled to cancelled", OrderStatusFulfilled, OrderStatusCancelled, false},
		{"pending to fulfilled", OrderStatusPending, OrderStatusFulfilled, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CanTransition(tc.from, tc.to))
		})
	}
}

func TestReleasesStock(t *testing.T) {
	//PENDINGからの失敗系だけが在庫を戻す
	assert.True(t, ReleasesStock(OrderStatusPending, OrderStatusFailed))
	assert.True(t, ReleasesStock(OrderStatusPending, OrderStatusCancelled))
	assert.False(t, ReleasesStock(OrderStatusPending, OrderStatusPaid))
	assert.False(t, ReleasesStock(OrderStatusPaid, OrderStatusCancelled))
	assert.False(t, ReleasesStock(OrderStatusPaid, OrderStatusFulfilled))
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, OrderStatusPending.IsTerminal())
	assert.False(t, OrderStatusPaid.IsTerminal())
	assert.True(t, OrderStatusFailed.IsTerminal())
	assert.True(t, OrderStatusCancelled.IsTerminal())
	assert.True(t, OrderStatusFulfilled.IsTerminal())
}
