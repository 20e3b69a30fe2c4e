package repository

import (
	"context"
	"time"

	"erp-conference-api/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ItemStatus derives the conference status of one line item. The ledger
// never clamps quantities, so checked may exceed ordered and still
// reads as "ok".
func ItemStatus(ordered, checked int32) string {
	if checked >= ordered {
		return "ok"
	}
	return "pending"
}

type ConferenceRepository interface {
	// Set stores the absolute checked quantity: positive upserts the
	// row, zero removes it.
	Set(ctx context.Context, tx *gorm.DB, orderID int64, sku string, quantity int32) error
	ListByOrder(ctx context.Context, orderID int64) ([]model.ConferenceRecord, error)
	DeleteByOrder(ctx context.Context, tx *gorm.DB, orderID int64) error
	DeleteSKU(ctx context.Context, tx *gorm.DB, orderID int64, sku string) error
	// DeleteNotIn purges ledger rows whose sku is no longer part of the
	// order's item set.
	DeleteNotIn(ctx context.Context, tx *gorm.DB, orderID int64, skus []string) error
}

type conferenceRepoImpl struct {
	db *gorm.DB
}

func NewConferenceRepository(db *gorm.DB) ConferenceRepository {
	return &conferenceRepoImpl{
		db: db,
	}
}

func (r *conferenceRepoImpl) Set(ctx context.Context, tx *gorm.DB, orderID int64, sku string, quantity int32) error {
	if quantity <= 0 {
		return r.DeleteSKU(ctx, tx, orderID, sku)
	}
	return tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "order_id"}, {Name: "sku"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"checked_quantity": quantity,
			"updated_at":       time.Now(),
		}),
	}).Create(&model.ConferenceRecord{
		OrderID:         orderID,
		SKU:             sku,
		CheckedQuantity: quantity,
	}).Error
}

func (r *conferenceRepoImpl) ListByOrder(ctx context.Context, orderID int64) ([]model.ConferenceRecord, error) {
	var records []model.ConferenceRecord
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *conferenceRepoImpl) DeleteByOrder(ctx context.Context, tx *gorm.DB, orderID int64) error {
	return tx.WithContext(ctx).
		Where("order_id = ?", orderID).
		Delete(&model.ConferenceRecord{}).Error
}

func (r *conferenceRepoImpl) DeleteSKU(ctx context.Context, tx *gorm.DB, orderID int64, sku string) error {
	return tx.WithContext(ctx).
		Where("order_id = ? AND sku = ?", orderID, sku).
		Delete(&model.ConferenceRecord{}).Error
}

func (r *conferenceRepoImpl) DeleteNotIn(ctx context.Context, tx *gorm.DB, orderID int64, skus []string) error {
	q := tx.WithContext(ctx).Where("order_id = ?", orderID)
	if len(skus) > 0 {
		q = q.Where("sku NOT IN ?", skus)
	}
	return q.Delete(&model.ConferenceRecord{}).Error
}
