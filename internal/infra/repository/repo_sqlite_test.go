package repository

import (
	"context"
	"testing"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// テストはインメモリのsqliteで回す。
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&model.Product{},
		&model.Order{},
		&model.OrderItem{},
		&model.PaymentEvent{},
		&model.Cart{},
		&model.CartItem{},
	))
	return db
}

func createProduct(t *testing.T, db *gorm.DB, stock int64) model.Product {
	t.Helper()
	p := model.Product{Name: "テスト商品", Price: 1000, Stock: stock, IsActive: true}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func TestInventoryDecreaseStockIfEnough(t *testing.T) {
	db := newTestDB(t)
	repo := NewInventoryGormRepository(db)
	ctx := context.Background()

	p := createProduct(t, db, 5)

	ok, err := repo.DecreaseStockIfEnough(ctx, p.ID, 3)
	require.NoError(t, err)
	assert.True(t, ok)

	var got model.Product
	require.NoError(t, db.First(&got, p.ID).Error)
	assert.Equal(t, int64(2), got.Stock)

	//残り2に対して3は引けない。在庫は変わらない。
	ok, err = repo.DecreaseStockIfEnough(ctx, p.ID, 3)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, db.First(&got, p.ID).Error)
	assert.Equal(t, int64(2), got.Stock)
}

func TestInventoryDecreaseStock_NeverOversells(t *testing.T) {
	db := newTestDB(t)
	repo := NewInventoryGormRepository(db)
	ctx := context.Background()

	//在庫1に対して5回引く。成功は1回だけ。
	p := createProduct(t, db, 1)

	succeeded := 0
	for i := 0; i < 5; i++ {
		ok, err := repo.DecreaseStockIfEnough(ctx, p.ID, 1)
		require.NoError(t, err)
		if ok {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded)

	var got model.Product
	require.NoError(t, db.First(&got, p.ID).Error)
	assert.Equal(t, int64(0), got.Stock)
}

func TestInventoryIncreaseStock(t *testing.T) {
	db := newTestDB(t)
	repo := NewInventoryGormRepository(db)
	ctx := context.Background()

	p := createProduct(t, db, 2)

	require.NoError(t, repo.IncreaseStock(ctx, p.ID, 3))

	var got model.Product
	require.NoError(t, db.First(&got, p.ID).Error)
	assert.Equal(t, int64(5), got.Stock)
}

func TestPaymentEventInsertIfNew(t *testing.T) {
	db := newTestDB(t)
	repo := NewPaymentEventGormRepository(db)
	ctx := context.Background()

	ev := model.PaymentEvent{
		EventID:    "evt_1",
		PaymentRef: "pi_1",
		Outcome:    model.PaymentOutcomeSucceeded,
		Payload:    `{}`,
	}

	inserted, err := repo.InsertIfNew(ctx, ev)
	require.NoError(t, err)
	assert.True(t, inserted)

	//同じevent_idはunique制約で弾かれ、エラーにはならない
	inserted, err = repo.InsertIfNew(ctx, ev)
	require.NoError(t, err)
	assert.False(t, inserted)

	var count int64
	require.NoError(t, db.Model(&model.PaymentEvent{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestPaymentEventUnprocessedLifecycle(t *testing.T) {
	db := newTestDB(t)
	repo := NewPaymentEventGormRepository(db)
	ctx := context.Background()

	for _, id := range []string{"evt_a", "evt_b"} {
		_, err := repo.InsertIfNew(ctx, model.PaymentEvent{
			EventID: id, PaymentRef: "pi", Outcome: model.PaymentOutcomeSucceeded,
		})
		require.NoError(t, err)
	}

	evs, err := repo.ListUnprocessed(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, evs, 2)

	require.NoError(t, repo.MarkProcessed(ctx, "evt_a", time.Now()))

	evs, err = repo.ListUnprocessed(ctx, 10)
	require.NoError(t, err)
	require.Len(t, evs, 1)
	assert.Equal(t, "evt_b", evs[0].EventID)

	got, err := repo.FindByEventID(ctx, "evt_a")
	require.NoError(t, err)
	assert.True(t, got.Processed)
	assert.NotNil(t, got.ProcessedAt)
}

func TestOrderIdempotencyKeyLookup(t *testing.T) {
	db := newTestDB(t)
	repo := NewOrderGormRepository(db)
	ctx := context.Background()

	id, err := repo.Create(ctx, model.Order{
		UserID:         1,
		AddressID:      1,
		Status:         model.OrderStatusPending,
		TotalPrice:     1000,
		IdempotencyKey: "key-1",
	})
	require.NoError(t, err)

	got, found, err := repo.FindByIdempotencyKey(ctx, 1, "key-1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, id, got.ID)

	_, found, err = repo.FindByIdempotencyKey(ctx, 1, "other-key")
	require.NoError(t, err)
	assert.False(t, found)

	//同じキーの二重作成はunique制約で失敗する
	_, err = repo.Create(ctx, model.Order{
		UserID:         1,
		AddressID:      1,
		Status:         model.OrderStatusPending,
		TotalPrice:     1000,
		IdempotencyKey: "key-1",
	})
	assert.Error(t, err)
}

func TestOrderListExpiredPending(t *testing.T) {
	db := newTestDB(t)
	repo := NewOrderGormRepository(db)
	ctx := context.Background()

	old := model.Order{UserID: 1, AddressID: 1, Status: model.OrderStatusPending, IdempotencyKey: "k1"}
	require.NoError(t, db.Create(&old).Error)
	require.NoError(t, db.Model(&model.Order{}).Where("id = ?", old.ID).
		Update("created_at", time.Now().Add(-2*time.Hour)).Error)

	fresh := model.Order{UserID: 1, AddressID: 1, Status: model.OrderStatusPending, IdempotencyKey: "k2"}
	require.NoError(t, db.Create(&fresh).Error)

	paid := model.Order{UserID: 1, AddressID: 1, Status: model.OrderStatusPaid, IdempotencyKey: "k3"}
	require.NoError(t, db.Create(&paid).Error)
	require.NoError(t, db.Model(&model.Order{}).Where("id = ?", paid.ID).
		Update("created_at", time.Now().Add(-2*time.Hour)).Error)

	got, err := repo.ListExpiredPending(ctx, time.Now().Add(-30*time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, old.ID, got[0].ID)
}

func TestOrderListPendingWithoutPaymentRef(t *testing.T) {
	db := newTestDB(t)
	repo := NewOrderGormRepository(db)
	ctx := context.Background()

	noRef := model.Order{UserID: 1, AddressID: 1, Status: model.OrderStatusPending, IdempotencyKey: "k1"}
	require.NoError(t, db.Create(&noRef).Error)

	withRef := model.Order{UserID: 1, AddressID: 1, Status: model.OrderStatusPending, PaymentRef: "pi_1", IdempotencyKey: "k2"}
	require.NoError(t, db.Create(&withRef).Error)

	got, err := repo.ListPendingWithoutPaymentRef(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, noRef.ID, got[0].ID)
}

func TestTxManagerRollsBackOnError(t *testing.T) {
	db := newTestDB(t)
	tm := NewTxManagerGorm(db)
	ctx := context.Background()

	p := createProduct(t, db, 5)

	wantErr := assert.AnError
	err := tm.WithinTx(ctx, func(r repo.TxRepos) error {
		ok, err := r.Inventory().DecreaseStockIfEnough(ctx, p.ID, 3)
		require.NoError(t, err)
		require.True(t, ok)
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)

	//ロールバックで在庫は元通り
	var got model.Product
	require.NoError(t, db.First(&got, p.ID).Error)
	assert.Equal(t, int64(5), got.Stock)
}
