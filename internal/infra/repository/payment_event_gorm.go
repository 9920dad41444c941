package repository

import (
	"context"
	"errors"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PaymentEventGormRepository struct {
	db *gorm.DB
}

func NewPaymentEventGormRepository(db *gorm.DB) *PaymentEventGormRepository {
	return &PaymentEventGormRepository{db: db}
}

// event_idのunique制約でON CONFLICT DO NOTHING。
// RowsAffected==0なら重複配送（DuplicateEvent）。
func (r *PaymentEventGormRepository) InsertIfNew(ctx context.Context, ev model.PaymentEvent) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}},
			DoNothing: true,
		}).
		Create(&ev)

	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *PaymentEventGormRepository) FindByEventID(ctx context.Context, eventID string) (model.PaymentEvent, error) {
	var ev model.PaymentEvent
	err := r.db.WithContext(ctx).Where("event_id = ?", eventID).First(&ev).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.PaymentEvent{}, repo.ErrNotFound
	}
	if err != nil {
		return model.PaymentEvent{}, err
	}
	return ev, nil
}

// 古い順。webhook受領直後に処理するのが普通だが、
// プロセス落ち等で残った分をworkerが拾う（at-least-once）。
func (r *PaymentEventGormRepository) ListUnprocessed(ctx context.Context, limit int) ([]model.PaymentEvent, error) {
	var evs []model.PaymentEvent
	err := r.db.WithContext(ctx).
		Where("processed = ?", false).
		Order("id asc").
		Limit(limit).
		Find(&evs).Error
	if err != nil {
		return nil, err
	}
	return evs, nil
}

func (r *PaymentEventGormRepository) MarkProcessed(ctx context.Context, eventID string, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&model.PaymentEvent{}).
		Where("event_id = ?", eventID).
		Updates(map[string]interface{}{
			"processed":    true,
			"processed_at": at,
		})

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
