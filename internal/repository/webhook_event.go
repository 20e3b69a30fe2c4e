package repository

import (
	"context"
	"time"

	"erp-conference-api/internal/model"

	"gorm.io/gorm"
)

// WebhookEventRepository is an audit log of processed deliveries. The
// reconciler is idempotent by construction, so this is bookkeeping for
// operators, not a dedupe gate.
type WebhookEventRepository interface {
	Record(ctx context.Context, event *model.WebhookEvent) error
	CountByReference(ctx context.Context, reference string) (int64, error)
}

type webhookEventRepoImpl struct {
	db *gorm.DB
}

func NewWebhookEventRepository(db *gorm.DB) WebhookEventRepository {
	return &webhookEventRepoImpl{db: db}
}

func (r *webhookEventRepoImpl) Record(ctx context.Context, event *model.WebhookEvent) error {
	event.ProcessedAt = time.Now()
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *webhookEventRepoImpl) CountByReference(ctx context.Context, reference string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.WebhookEvent{}).
		Where("reference = ?", reference).
		Count(&count).Error
	return count, err
}
