package repository

import (
	"context"
	"payment-reconciliation/internal/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WebhookEventRepository interface {
	Exists(ctx context.Context, eventID string) (bool, error)
	FindByEventID(ctx context.Context, eventID string) (*model.WebhookEvent, error)
	// Record keeps the first outcome seen for an event id.
	Record(ctx context.Context, tx *gorm.DB, evt *model.WebhookEvent) error
}

type webhookEventRepositoryImpl struct {
	db *gorm.DB
}

func NewWebhookEventRepository(db *gorm.DB) WebhookEventRepository {
	return &webhookEventRepositoryImpl{db: db}
}

func (r *webhookEventRepositoryImpl) Exists(ctx context.Context, eventID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.WebhookEvent{}).
		Where("event_id = ?", eventID).
		Count(&count).Error

	return count > 0, err
}

func (r *webhookEventRepositoryImpl) FindByEventID(ctx context.Context, eventID string) (*model.WebhookEvent, error) {
	var evt model.WebhookEvent
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		First(&evt).Error
	if err != nil {
		return nil, err
	}
	return &evt, nil
}

func (r *webhookEventRepositoryImpl) Record(ctx context.Context, tx *gorm.DB, evt *model.WebhookEvent) error {
	if evt.ProcessedAt.IsZero() {
		evt.ProcessedAt = time.Now()
	}
	return tx.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(evt).Error
}
