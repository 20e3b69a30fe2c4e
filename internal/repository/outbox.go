package repository

import (
	"context"
	"time"

	"erp-conference-api/internal/model"

	"gorm.io/gorm"
)

type OutboxRepository interface {
	// Enqueue inserts the entry inside the caller's transaction so the
	// intent commits or rolls back with the state change it mirrors.
	// Pending entries of the same kind for the same order are marked
	// superseded in that transaction: only the newest intent may ever
	// reach the ERP, a retried older push must not overwrite it.
	Enqueue(ctx context.Context, tx *gorm.DB, entry *model.OutboxEntry) error
	ListPending(ctx context.Context, limit int) ([]model.OutboxEntry, error)
	MarkSent(ctx context.Context, id string) error
	MarkAttempt(ctx context.Context, id string, attempts int, lastError string, terminal bool) error
}

type outboxRepoImpl struct {
	db *gorm.DB
}

func NewOutboxRepository(db *gorm.DB) OutboxRepository {
	return &outboxRepoImpl{
		db: db,
	}
}

func (r *outboxRepoImpl) Enqueue(ctx context.Context, tx *gorm.DB, entry *model.OutboxEntry) error {
	err := tx.WithContext(ctx).Model(&model.OutboxEntry{}).
		Where("order_id = ? AND kind = ? AND status = ?",
			entry.OrderID, entry.Kind, model.OutboxStatusPending).
		Updates(map[string]interface{}{
			"status":     model.OutboxStatusSuperseded,
			"updated_at": time.Now(),
		}).Error
	if err != nil {
		return err
	}

	entry.Status = model.OutboxStatusPending
	return tx.WithContext(ctx).Create(entry).Error
}

func (r *outboxRepoImpl) ListPending(ctx context.Context, limit int) ([]model.OutboxEntry, error) {
	var entries []model.OutboxEntry
	err := r.db.WithContext(ctx).
		Where("status = ?", model.OutboxStatusPending).
		Order("created_at asc").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *outboxRepoImpl) MarkSent(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&model.OutboxEntry{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     model.OutboxStatusSent,
			"updated_at": time.Now(),
		}).Error
}

// MarkAttempt records a failed push. Only pending rows are touched: an
// entry superseded between the dispatcher's read and its push must not
// come back to life as pending.
func (r *outboxRepoImpl) MarkAttempt(ctx context.Context, id string, attempts int, lastError string, terminal bool) error {
	status := model.OutboxStatusPending
	if terminal {
		status = model.OutboxStatusFailed
	}
	return r.db.WithContext(ctx).Model(&model.OutboxEntry{}).
		Where("id = ? AND status = ?", id, model.OutboxStatusPending).
		Updates(map[string]interface{}{
			"status":     status,
			"attempts":   attempts,
			"last_error": lastError,
			"updated_at": time.Now(),
		}).Error
}
