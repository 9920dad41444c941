package usecase

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"app/internal/domain/model"
	"app/internal/events"
	"app/internal/infra/cache"
	"app/internal/payment"
	repo "app/internal/repository"
)

// Webhook受信〜注文ステータス突き合わせ。
// 冪等性の本体はpayment_events.event_idのunique制約。Redisはその前段の近道。
type PaymentUsecase struct {
	tx        repo.TransactionManager
	eventRepo repo.PaymentEventRepository
	orderRepo repo.OrderRepository
	gateway   payment.Gateway
	producer  *events.Producer
	cache     *cache.Client
	currency  string
}

func NewPaymentUsecase(
	tx repo.TransactionManager,
	eventRepo repo.PaymentEventRepository,
	orderRepo repo.OrderRepository,
	gateway payment.Gateway,
	producer *events.Producer,
	cacheClient *cache.Client,
	currency string,
) *PaymentUsecase {
	return &PaymentUsecase{
		tx:        tx,
		eventRepo: eventRepo,
		orderRepo: orderRepo,
		gateway:   gateway,
		producer:  producer,
		cache:     cacheClient,
		currency:  currency,
	}
}

// Webhook入口。
// 1. 署名検証（NGは400で落とす。本文は信用しない）
// 2. イベントを永続化（event_id重複はno-opで200）
// 3. 突き合わせ処理。失敗してもイベントは残っているのでワーカーが拾い直す。
func (u *PaymentUsecase) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	ev, err := u.gateway.VerifyWebhook(payload, signature)
	if err != nil {
		if errors.Is(err, payment.ErrUnhandledEvent) {
			//関知しないイベント種別は受領だけして捨てる
			return nil
		}
		return NewHTTPError(http.StatusBadRequest, "invalid signature")
	}

	//Redisにあれば処理済み確定。DBに行かずに返す。
	if u.cache.Exists(ctx, cache.PaymentDedupKey(ev.EventID)) {
		return nil
	}

	inserted, err := u.eventRepo.InsertIfNew(ctx, model.PaymentEvent{
		EventID:    ev.EventID,
		PaymentRef: ev.PaymentRef,
		OrderID:    ev.OrderID,
		Outcome:    model.PaymentOutcome(ev.Outcome),
		Payload:    string(ev.Raw),
	})
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !inserted {
		//再送。最初の処理結果がそのまま有効（no-opで200）。
		u.cache.Set(ctx, cache.PaymentDedupKey(ev.EventID), "1", cache.TTLDedup)
		return nil
	}

	stored, err := u.eventRepo.FindByEventID(ctx, ev.EventID)
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if err := u.ProcessEvent(ctx, stored); err != nil {
		//イベントは保存済み。ワーカーのリトライに任せて200を返す。
		log.Printf("process payment event failed (event=%s): %v", ev.EventID, err)
	}
	return nil
}

// 保存済みイベント1件を注文に突き合わせる。
// 行ロックで1注文の遷移を直列化。許可されない遷移はログだけ残すno-op。
func (u *PaymentUsecase) ProcessEvent(ctx context.Context, ev model.PaymentEvent) error {
	target := model.OrderStatusFailed
	eventType := events.OrderFailed
	if ev.Outcome == model.PaymentOutcomeSucceeded {
		target = model.OrderStatusPaid
		eventType = events.OrderPaid
	}

	var published *events.OrderEventPayload

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := u.findOrderForEvent(ctx, r, ev)
		if err == repo.ErrNotFound {
			//注文が見つからないイベントは調査用に未処理のまま残す
			return repo.ErrNotFound
		}
		if err != nil {
			return err
		}

		now := time.Now()

		if !model.CanTransition(o.Status, target) {
			//遅延Webhook vs 失効スイープ：先に入った遷移が勝つ。負けた側はno-op。
			log.Printf("stale transition ignored (order=%d %s -> %s, event=%s)", o.ID, o.Status, target, ev.EventID)
			return r.PaymentEvents().MarkProcessed(ctx, ev.EventID, now)
		}

		if model.ReleasesStock(o.Status, target) {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return err
			}
			for _, it := range items {
				if err := r.Inventory().IncreaseStock(ctx, it.ProductID, it.Quantity); err != nil {
					return err
				}
			}
		}

		if err := r.Orders().UpdateStatus(ctx, o.ID, target); err != nil {
			return err
		}
		if err := r.PaymentEvents().MarkProcessed(ctx, ev.EventID, now); err != nil {
			return err
		}

		published = &events.OrderEventPayload{
			OrderID:    o.ID,
			UserID:     o.UserID,
			Status:     string(target),
			TotalPrice: o.TotalPrice,
		}
		return nil
	})
	if err != nil {
		return err
	}

	u.cache.Set(ctx, cache.PaymentDedupKey(ev.EventID), "1", cache.TTLDedup)
	if published != nil {
		u.producer.PublishOrderEvent(ctx, eventType, *published)
	}
	return nil
}

func (u *PaymentUsecase) findOrderForEvent(ctx context.Context, r repo.TxRepos, ev model.PaymentEvent) (model.Order, error) {
	if ev.PaymentRef != "" {
		o, err := r.Orders().FindByPaymentRefForUpdate(ctx, ev.PaymentRef)
		if err == nil {
			return o, nil
		}
		if err != repo.ErrNotFound {
			return model.Order{}, err
		}
	}
	//payment_ref保存前にWebhookが来た場合はmetadataのorder_idで引く
	if ev.OrderID > 0 {
		return r.Orders().FindByIDForUpdate(ctx, ev.OrderID)
	}
	return model.Order{}, repo.ErrNotFound
}

// 未処理イベントの拾い直し（Webhook処理中のクラッシュ対策）
func (u *PaymentUsecase) ProcessPending(ctx context.Context, limit int) error {
	evs, err := u.eventRepo.ListUnprocessed(ctx, limit)
	if err != nil {
		return err
	}
	for _, ev := range evs {
		if err := u.ProcessEvent(ctx, ev); err != nil {
			log.Printf("reprocess payment event failed (event=%s): %v", ev.EventID, err)
		}
	}
	return nil
}

// 期限切れPENDINGをCANCELLEDに落として在庫を戻す。
// 注文ごとに行ロックを取るので、同時に届いた成功Webhookとは先勝ち。
func (u *PaymentUsecase) ExpireStaleOrders(ctx context.Context, olderThan time.Duration, limit int) error {
	before := time.Now().Add(-olderThan)
	stale, err := u.orderRepo.ListExpiredPending(ctx, before, limit)
	if err != nil {
		return err
	}

	for _, cand := range stale {
		var published *events.OrderEventPayload

		err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
			o, err := r.Orders().FindByIDForUpdate(ctx, cand.ID)
			if err != nil {
				return err
			}
			if !model.CanTransition(o.Status, model.OrderStatusCancelled) {
				//ロック待ちの間に支払われた。触らない。
				return nil
			}

			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return err
			}
			for _, it := range items {
				if err := r.Inventory().IncreaseStock(ctx, it.ProductID, it.Quantity); err != nil {
					return err
				}
			}
			if err := r.Orders().UpdateStatus(ctx, o.ID, model.OrderStatusCancelled); err != nil {
				return err
			}

			published = &events.OrderEventPayload{
				OrderID:    o.ID,
				UserID:     o.UserID,
				Status:     string(model.OrderStatusCancelled),
				TotalPrice: o.TotalPrice,
			}
			return nil
		})
		if err != nil {
			log.Printf("expire order failed (order=%d): %v", cand.ID, err)
			continue
		}
		if published != nil {
			u.producer.PublishOrderEvent(ctx, events.OrderCancelled, *published)
		}
	}
	return nil
}

// intent作成に失敗したままのPENDINGにpayment_refを付け直す
func (u *PaymentUsecase) EnsurePaymentRefs(ctx context.Context, limit int) error {
	orders, err := u.orderRepo.ListPendingWithoutPaymentRef(ctx, limit)
	if err != nil {
		return err
	}
	for _, o := range orders {
		ref, err := u.gateway.CreateIntent(ctx, o.ID, o.TotalPrice, u.currency)
		if err != nil {
			log.Printf("retry create intent failed (order=%d): %v", o.ID, err)
			continue
		}
		if err := u.orderRepo.UpdatePaymentRef(ctx, o.ID, ref); err != nil {
			log.Printf("save payment_ref failed (order=%d): %v", o.ID, err)
		}
	}
	return nil
}
