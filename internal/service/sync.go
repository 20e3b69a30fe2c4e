package service

import (
	"context"
	"encoding/json"
	"fmt"

	"erp-conference-api/internal/client"
	"erp-conference-api/internal/model"
	"erp-conference-api/internal/repository"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// SyncService bulk-imports remote resources through the paginated
// collector. A failed collection writes nothing: the cache either gets
// the whole listing or stays as it was.
type SyncService interface {
	SyncOrders(ctx context.Context) (int, error)
	SyncProducts(ctx context.Context) (int, error)
}

type syncServiceImpl struct {
	db          *gorm.DB
	erp         client.ErpGateway
	account     string
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	limiter     *rate.Limiter
	logger      zerolog.Logger
}

func NewSyncService(
	db *gorm.DB,
	erp client.ErpGateway,
	account string,
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	limiter *rate.Limiter,
	logger zerolog.Logger,
) SyncService {
	return &syncServiceImpl{
		db:          db,
		erp:         erp,
		account:     account,
		orderRepo:   orderRepo,
		productRepo: productRepo,
		limiter:     limiter,
		logger:      logger,
	}
}

func (s *syncServiceImpl) SyncOrders(ctx context.Context) (int, error) {
	orders, err := client.CollectPages(ctx, s.limiter, func(ctx context.Context, page, limit int) ([]client.RemoteOrder, error) {
		return s.erp.ListOrdersPage(ctx, s.account, page, limit)
	})
	if err != nil {
		return 0, fmt.Errorf("collect orders: %w", err)
	}

	for i := range orders {
		remote := &orders[i]
		raw, err := json.Marshal(remote)
		if err != nil {
			return 0, fmt.Errorf("marshal order %d: %w", remote.ID, err)
		}
		cached, err := cachedOrderFromRemote(remote, raw)
		if err != nil {
			return 0, err
		}
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return s.orderRepo.Upsert(ctx, tx, cached)
		})
		if err != nil {
			return 0, fmt.Errorf("cache order %d: %w", remote.ID, err)
		}
	}

	s.logger.Info().Int("count", len(orders)).Msg("order sync finished")
	return len(orders), nil
}

func (s *syncServiceImpl) SyncProducts(ctx context.Context) (int, error) {
	products, err := client.CollectPages(ctx, s.limiter, func(ctx context.Context, page, limit int) ([]client.RemoteProduct, error) {
		return s.erp.ListProductsPage(ctx, s.account, page, limit)
	})
	if err != nil {
		return 0, fmt.Errorf("collect products: %w", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range products {
			p := &products[i]
			err := s.productRepo.Upsert(ctx, tx, &model.CachedProduct{
				RemoteID: p.ID,
				SKU:      p.Codigo,
				Name:     p.Nome,
				GTIN:     p.GTIN,
				Price:    p.Preco,
				Stock:    p.Estoque.SaldoVirtualTotal,
			})
			if err != nil {
				return fmt.Errorf("cache product %d: %w", p.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info().Int("count", len(products)).Msg("product sync finished")
	return len(products), nil
}
