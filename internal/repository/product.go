package repository

import (
	"context"
	"time"

	"erp-conference-api/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProductRepository interface {
	Upsert(ctx context.Context, tx *gorm.DB, product *model.CachedProduct) error
	FindByCode(ctx context.Context, code string) (*model.CachedProduct, error)
	UpdateStock(ctx context.Context, remoteID int64, stock int32) error
}

type productRepoImpl struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepoImpl{
		db: db,
	}
}

func (r *productRepoImpl) Upsert(ctx context.Context, tx *gorm.DB, product *model.CachedProduct) error {
	return tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "remote_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"sku":        product.SKU,
			"name":       product.Name,
			"gtin":       product.GTIN,
			"price":      product.Price,
			"stock":      product.Stock,
			"updated_at": time.Now(),
		}),
	}).Create(product).Error
}

// FindByCode matches either the sku or the GTIN barcode, whichever the
// scanner produced.
func (r *productRepoImpl) FindByCode(ctx context.Context, code string) (*model.CachedProduct, error) {
	var product model.CachedProduct
	err := r.db.WithContext(ctx).
		Where("sku = ? OR gtin = ?", code, code).
		First(&product).Error

	if err != nil {
		return nil, err
	}

	return &product, nil
}

func (r *productRepoImpl) UpdateStock(ctx context.Context, remoteID int64, stock int32) error {
	return r.db.WithContext(ctx).Model(&model.CachedProduct{}).
		Where("remote_id = ?", remoteID).
		Updates(map[string]interface{}{
			"stock":      stock,
			"updated_at": time.Now(),
		}).Error
}
