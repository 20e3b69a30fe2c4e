package repository

import (
	"context"
	"time"

	"erp-conference-api/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderRepository interface {
	Upsert(ctx context.Context, tx *gorm.DB, order *model.CachedOrder) error
	FindByRemoteID(ctx context.Context, remoteID int64) (*model.CachedOrder, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, remoteID int64, statusID int32, statusName string) error
	Delete(ctx context.Context, tx *gorm.DB, remoteID int64) error
}

type orderRepoImpl struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepoImpl{
		db: db,
	}
}

// Upsert overwrites the order row and replaces its item rows wholesale.
// Items carry no local state, the conference ledger lives in its own
// table, so replace-all is safe here.
func (r *orderRepoImpl) Upsert(ctx context.Context, tx *gorm.DB, order *model.CachedOrder) error {
	// local copies keep the caller's struct intact
	row := *order
	row.Items = nil
	items := make([]model.OrderItem, len(order.Items))
	copy(items, order.Items)

	err := tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "remote_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"number", "customer_id", "customer_name",
			"status_id", "status_name",
			"total_amount", "total_products_amount",
			"seller_id", "raw_snapshot", "updated_at",
		}),
	}).Create(&row).Error
	if err != nil {
		return err
	}

	err = tx.WithContext(ctx).
		Where("order_id = ?", order.RemoteID).
		Delete(&model.OrderItem{}).Error
	if err != nil {
		return err
	}

	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].OrderID = order.RemoteID
	}
	return tx.WithContext(ctx).Create(&items).Error
}

func (r *orderRepoImpl) FindByRemoteID(ctx context.Context, remoteID int64) (*model.CachedOrder, error) {
	var order model.CachedOrder
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("remote_id = ?", remoteID).
		First(&order).Error

	if err != nil {
		return nil, err
	}

	return &order, nil
}

func (r *orderRepoImpl) UpdateStatus(ctx context.Context, tx *gorm.DB, remoteID int64, statusID int32, statusName string) error {
	result := tx.WithContext(ctx).Model(&model.CachedOrder{}).
		Where("remote_id = ?", remoteID).
		Updates(map[string]interface{}{
			"status_id":   statusID,
			"status_name": statusName,
			"updated_at":  time.Now(),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *orderRepoImpl) Delete(ctx context.Context, tx *gorm.DB, remoteID int64) error {
	err := tx.WithContext(ctx).
		Where("order_id = ?", remoteID).
		Delete(&model.OrderItem{}).Error
	if err != nil {
		return err
	}
	return tx.WithContext(ctx).
		Where("remote_id = ?", remoteID).
		Delete(&model.CachedOrder{}).Error
}
