package worker

import (
	"context"
	"log"
	"time"

	"app/internal/usecase"
)

// 突き合わせワーカー。
// - 未処理の決済イベントの拾い直し
// - payment_ref未設定注文へのintent再作成
// - 期限切れPENDINGの失効（在庫返却）
type Reconciler struct {
	payments *usecase.PaymentUsecase

	interval    time.Duration
	orderExpiry time.Duration
	batchSize   int
}

func NewReconciler(payments *usecase.PaymentUsecase, interval, orderExpiry time.Duration) *Reconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Reconciler{
		payments:    payments,
		interval:    interval,
		orderExpiry: orderExpiry,
		batchSize:   100,
	}
}

// ctxがキャンセルされるまで回り続ける。main側でgoroutine起動する。
func (w *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	log.Printf("reconciler started (interval=%s, order_expiry=%s)", w.interval, w.orderExpiry)

	for {
		select {
		case <-ctx.Done():
			log.Printf("reconciler stopped")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *Reconciler) runOnce(ctx context.Context) {
	if err := w.payments.ProcessPending(ctx, w.batchSize); err != nil {
		log.Printf("reconciler: process pending events: %v", err)
	}
	if err := w.payments.EnsurePaymentRefs(ctx, w.batchSize); err != nil {
		log.Printf("reconciler: ensure payment refs: %v", err)
	}
	if err := w.payments.ExpireStaleOrders(ctx, w.orderExpiry, w.batchSize); err != nil {
		log.Printf("reconciler: expire stale orders: %v", err)
	}
}
