package usecase

import (
	"context"
	"net/http"
	"testing"

	"app/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCartTestUC(s *memStore) *CartUsecase {
	return NewCartUsecase(&memCartRepo{s: s}, &memCartItemRepo{s: s}, &memProductRepo{s: s})
}

func TestGetMyCart_CreatesEmptyCart(t *testing.T) {
	s := newMemStore()
	uc := newCartTestUC(s)

	out, err := uc.GetMyCart(context.Background(), 1)
	require.NoError(t, err)

	assert.NotZero(t, out.CartID)
	assert.Empty(t, out.Items)
	assert.Zero(t, out.Total)
}

func TestAddItem_SnapshotsPriceAndSumsQuantity(t *testing.T) {
	s := newMemStore()
	uc := newCartTestUC(s)

	p := s.addProduct("コーヒー豆", 1200, 10)

	out, err := uc.AddItem(context.Background(), 1, AddCartItemInput{ProductID: p.ID, Quantity: 2})
	require.NoError(t, err)
	require.Len(t, out.Items, 1)
	assert.Equal(t, int64(2400), out.Total)

	//値上げしてもカート内はスナップショット価格のまま
	changed := s.products[p.ID]
	changed.Price = 9999
	s.products[p.ID] = changed

	//同一商品の追加は数量加算で1明細のまま
	out, err = uc.AddItem(context.Background(), 1, AddCartItemInput{ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)
	require.Len(t, out.Items, 1)
	assert.Equal(t, int64(3), out.Items[0].Quantity)
	assert.Equal(t, int64(1200), out.Items[0].UnitPriceSnapshot)
	assert.Equal(t, int64(3600), out.Total)
}

func TestAddItem_RejectsInvalidInput(t *testing.T) {
	s := newMemStore()
	uc := newCartTestUC(s)
	p := s.addProduct("雑貨", 300, 10)

	for _, qty := range []int64{0, -1, 101} {
		_, err := uc.AddItem(context.Background(), 1, AddCartItemInput{ProductID: p.ID, Quantity: qty})
		require.Error(t, err)
		he, ok := AsHTTPError(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusBadRequest, he.Status)
	}
}

func TestAddItem_UnknownOrInactiveProduct(t *testing.T) {
	s := newMemStore()
	uc := newCartTestUC(s)

	_, err := uc.AddItem(context.Background(), 1, AddCartItemInput{ProductID: 999, Quantity: 1})
	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, he.Status)

	p := s.addProduct("非公開", 300, 10)
	inactive := s.products[p.ID]
	inactive.IsActive = false
	s.products[p.ID] = inactive

	_, err = uc.AddItem(context.Background(), 1, AddCartItemInput{ProductID: p.ID, Quantity: 1})
	he, ok = AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, he.Status)
}

func TestAddItem_OverStockIsConflict(t *testing.T) {
	s := newMemStore()
	uc := newCartTestUC(s)
	p := s.addProduct("限定品", 5000, 2)

	_, err := uc.AddItem(context.Background(), 1, AddCartItemInput{ProductID: p.ID, Quantity: 3})
	require.Error(t, err)

	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, he.Status)
	assert.Equal(t, "out of stock", he.Message)
}

func TestUpdateItemQuantity_OtherUsersItemIsHidden(t *testing.T) {
	s := newMemStore()
	uc := newCartTestUC(s)

	p := s.addProduct("本", 1500, 10)
	cart := s.addActiveCart(99, model.CartItem{ProductID: p.ID, Quantity: 1, UnitPriceSnapshot: 1500})
	itemID := s.cartItems[cart.ID][0].ID

	_, err := uc.UpdateItemQuantity(context.Background(), 1, itemID, 5)
	require.Error(t, err)

	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, he.Status)
}

func TestRemoveItem(t *testing.T) {
	s := newMemStore()
	uc := newCartTestUC(s)

	p := s.addProduct("本", 1500, 10)
	cart := s.addActiveCart(1, model.CartItem{ProductID: p.ID, Quantity: 1, UnitPriceSnapshot: 1500})
	itemID := s.cartItems[cart.ID][0].ID

	out, err := uc.RemoveItem(context.Background(), 1, itemID)
	require.NoError(t, err)
	assert.Empty(t, out.Items)
	assert.Zero(t, out.Total)
}
