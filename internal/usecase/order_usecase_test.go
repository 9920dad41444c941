package usecase

import (
	"context"
	"net/http"
	"testing"

	"app/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOrderTestUC(s *memStore, gw *fakeGateway) *OrderUsecase {
	return NewOrderUsecase(&memTxManager{s: s}, &memAddressRepo{s: s}, gw, nil, "jpy")
}

func TestPlaceOrder_Success(t *testing.T) {
	s := newMemStore()
	gw := &fakeGateway{}
	uc := newOrderTestUC(s, gw)

	p := s.addProduct("コーヒー豆", 1000, 5)
	addr := s.addAddress(1)
	cart := s.addActiveCart(1, model.CartItem{ProductID: p.ID, Quantity: 2, UnitPriceSnapshot: 1000})

	//カート投入後の値上げ。課金は確定時点の価格。
	repriced := s.products[p.ID]
	repriced.Price = 1200
	s.products[p.ID] = repriced

	out, err := uc.PlaceOrder(context.Background(), 1, PlaceOrderInput{
		AddressID:      addr.ID,
		IdempotencyKey: "key-1",
	})
	require.NoError(t, err)

	assert.Equal(t, string(model.OrderStatusPending), out.Status)
	assert.Equal(t, int64(2400), out.TotalPrice)
	require.Len(t, out.Items, 1)
	assert.Equal(t, int64(1200), out.Items[0].Price)

	//在庫は確保済み
	assert.Equal(t, int64(3), s.products[p.ID].Stock)

	//カートはCHECKED_OUTで空
	assert.Equal(t, model.CartStatusCheckedOut, s.carts[cart.ID].Status)
	assert.Empty(t, s.cartItems[cart.ID])

	//commit後にintentが作られている
	assert.Equal(t, []int64{out.ID}, gw.created)
	assert.NotEmpty(t, out.PaymentRef)
	assert.Equal(t, out.PaymentRef, s.orders[out.ID].PaymentRef)
}

func TestPlaceOrder_AllOrNothing(t *testing.T) {
	s := newMemStore()
	gw := &fakeGateway{}
	uc := newOrderTestUC(s, gw)

	inStock := s.addProduct("在庫あり", 500, 10)
	outOfStock := s.addProduct("在庫切れ寸前", 800, 1)
	addr := s.addAddress(1)
	s.addActiveCart(1,
		model.CartItem{ProductID: inStock.ID, Quantity: 3, UnitPriceSnapshot: 500},
		model.CartItem{ProductID: outOfStock.ID, Quantity: 2, UnitPriceSnapshot: 800},
	)

	_, err := uc.PlaceOrder(context.Background(), 1, PlaceOrderInput{
		AddressID:      addr.ID,
		IdempotencyKey: "key-1",
	})
	require.Error(t, err)

	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, he.Status)
	assert.Equal(t, "out of stock", he.Message)

	//1件目の減算もロールバックされている
	assert.Equal(t, int64(10), s.products[inStock.ID].Stock)
	assert.Equal(t, int64(1), s.products[outOfStock.ID].Stock)

	//注文は作られていない
	assert.Empty(t, s.orders)
	assert.Empty(t, gw.created)
}

func TestPlaceOrder_IdempotentReplay(t *testing.T) {
	s := newMemStore()
	gw := &fakeGateway{}
	uc := newOrderTestUC(s, gw)

	p := s.addProduct("紅茶", 900, 5)
	addr := s.addAddress(1)
	s.addActiveCart(1, model.CartItem{ProductID: p.ID, Quantity: 1, UnitPriceSnapshot: 900})

	first, err := uc.PlaceOrder(context.Background(), 1, PlaceOrderInput{
		AddressID:      addr.ID,
		IdempotencyKey: "same-key",
	})
	require.NoError(t, err)

	//同じキーで再送。新しい注文も在庫減算も起きない。
	second, err := uc.PlaceOrder(context.Background(), 1, PlaceOrderInput{
		AddressID:      addr.ID,
		IdempotencyKey: "same-key",
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, s.orders, 1)
	assert.Equal(t, int64(4), s.products[p.ID].Stock)
	assert.Equal(t, []int64{first.ID}, gw.created)
}

func TestPlaceOrder_LastUnitGoesToExactlyOneBuyer(t *testing.T) {
	s := newMemStore()
	uc := newOrderTestUC(s, &fakeGateway{})

	//在庫1を2人が取り合う。成功は片方だけ。
	p := s.addProduct("限定品", 5000, 1)
	addr1 := s.addAddress(1)
	addr2 := s.addAddress(2)
	s.addActiveCart(1, model.CartItem{ProductID: p.ID, Quantity: 1, UnitPriceSnapshot: 5000})
	s.addActiveCart(2, model.CartItem{ProductID: p.ID, Quantity: 1, UnitPriceSnapshot: 5000})

	_, err1 := uc.PlaceOrder(context.Background(), 1, PlaceOrderInput{
		AddressID:      addr1.ID,
		IdempotencyKey: "buyer1-key",
	})
	_, err2 := uc.PlaceOrder(context.Background(), 2, PlaceOrderInput{
		AddressID:      addr2.ID,
		IdempotencyKey: "buyer2-key",
	})

	errs := []error{err1, err2}
	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		he, ok := AsHTTPError(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusConflict, he.Status)
		assert.Equal(t, "out of stock", he.Message)
	}
	assert.Equal(t, 1, succeeded)

	assert.Equal(t, int64(0), s.products[p.ID].Stock)
	require.Len(t, s.orders, 1)
	for _, o := range s.orders {
		assert.Equal(t, model.OrderStatusPending, o.Status)
	}
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	s := newMemStore()
	uc := newOrderTestUC(s, &fakeGateway{})
	addr := s.addAddress(1)

	_, err := uc.PlaceOrder(context.Background(), 1, PlaceOrderInput{
		AddressID:      addr.ID,
		IdempotencyKey: "key-1",
	})
	require.Error(t, err)

	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Status)
	assert.Equal(t, "cart empty", he.Message)
}

func TestPlaceOrder_MissingIdempotencyKey(t *testing.T) {
	s := newMemStore()
	uc := newOrderTestUC(s, &fakeGateway{})
	addr := s.addAddress(1)

	_, err := uc.PlaceOrder(context.Background(), 1, PlaceOrderInput{AddressID: addr.ID})
	require.Error(t, err)

	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Status)
}

func TestPlaceOrder_OtherUsersAddress(t *testing.T) {
	s := newMemStore()
	uc := newOrderTestUC(s, &fakeGateway{})

	p := s.addProduct("雑貨", 300, 5)
	other := s.addAddress(99)
	s.addActiveCart(1, model.CartItem{ProductID: p.ID, Quantity: 1, UnitPriceSnapshot: 300})

	_, err := uc.PlaceOrder(context.Background(), 1, PlaceOrderInput{
		AddressID:      other.ID,
		IdempotencyKey: "key-1",
	})
	require.Error(t, err)

	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, he.Status)
}

func TestPlaceOrder_GatewayDownLeavesPending(t *testing.T) {
	s := newMemStore()
	gw := &fakeGateway{unavailable: true}
	uc := newOrderTestUC(s, gw)

	p := s.addProduct("チョコ", 400, 5)
	addr := s.addAddress(1)
	s.addActiveCart(1, model.CartItem{ProductID: p.ID, Quantity: 1, UnitPriceSnapshot: 400})

	out, err := uc.PlaceOrder(context.Background(), 1, PlaceOrderInput{
		AddressID:      addr.ID,
		IdempotencyKey: "key-1",
	})
	require.NoError(t, err)

	//intent作成失敗でも注文は成立。payment_refは空のままworkerがリトライする。
	assert.Equal(t, string(model.OrderStatusPending), out.Status)
	assert.Empty(t, s.orders[out.ID].PaymentRef)
	assert.Equal(t, int64(4), s.products[p.ID].Stock)
}

func TestCancelMyOrder_PendingReleasesStock(t *testing.T) {
	s := newMemStore()
	uc := newOrderTestUC(s, &fakeGateway{})

	p := s.addProduct("本", 1500, 3)
	o := s.addPendingOrder(1, 1500, "pi_1",
		model.OrderItem{ProductID: p.ID, Quantity: 2, UnitPriceSnapshot: 1500})

	out, err := uc.CancelMyOrder(context.Background(), 1, o.ID)
	require.NoError(t, err)

	assert.Equal(t, string(model.OrderStatusCancelled), out.Status)
	assert.Equal(t, int64(5), s.products[p.ID].Stock)
}

func TestCancelMyOrder_PaidIsRejected(t *testing.T) {
	s := newMemStore()
	uc := newOrderTestUC(s, &fakeGateway{})

	p := s.addProduct("本", 1500, 3)
	o := s.addPendingOrder(1, 1500, "pi_1",
		model.OrderItem{ProductID: p.ID, Quantity: 1, UnitPriceSnapshot: 1500})
	paid := s.orders[o.ID]
	paid.Status = model.OrderStatusPaid
	s.orders[o.ID] = paid

	_, err := uc.CancelMyOrder(context.Background(), 1, o.ID)
	require.Error(t, err)

	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, he.Status)

	//支払い済みのまま。在庫も動かない。
	assert.Equal(t, model.OrderStatusPaid, s.orders[o.ID].Status)
	assert.Equal(t, int64(3), s.products[p.ID].Stock)
}

func TestGetMyOrderDetail_OtherUsersOrderIsHidden(t *testing.T) {
	s := newMemStore()
	uc := newOrderTestUC(s, &fakeGateway{})

	o := s.addPendingOrder(99, 1000, "")

	_, err := uc.GetMyOrderDetail(context.Background(), 1, o.ID)
	require.Error(t, err)

	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, he.Status)
}
