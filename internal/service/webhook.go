package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"erp-conference-api/internal/client"
	"erp-conference-api/internal/model"
	"erp-conference-api/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// WebhookService is the compensating resync path: order events trigger
// a full refetch-and-upsert (or a purge on remote deletion), stock
// events a single-field update. Both are idempotent.
type WebhookService interface {
	OnOrderEvent(ctx context.Context, remoteID int64) error
	OnStockEvent(ctx context.Context, productID int64, stock int32) error
}

type webhookServiceImpl struct {
	db             *gorm.DB
	erp            client.ErpGateway
	account        string
	orderRepo      repository.OrderRepository
	conferenceRepo repository.ConferenceRepository
	productRepo    repository.ProductRepository
	eventRepo      repository.WebhookEventRepository
	logger         zerolog.Logger
}

func NewWebhookService(
	db *gorm.DB,
	erp client.ErpGateway,
	account string,
	orderRepo repository.OrderRepository,
	conferenceRepo repository.ConferenceRepository,
	productRepo repository.ProductRepository,
	eventRepo repository.WebhookEventRepository,
	logger zerolog.Logger,
) WebhookService {
	return &webhookServiceImpl{
		db:             db,
		erp:            erp,
		account:        account,
		orderRepo:      orderRepo,
		conferenceRepo: conferenceRepo,
		productRepo:    productRepo,
		eventRepo:      eventRepo,
		logger:         logger,
	}
}

func (s *webhookServiceImpl) OnOrderEvent(ctx context.Context, remoteID int64) error {
	defer s.audit(ctx, "order", strconv.FormatInt(remoteID, 10))

	remote, raw, err := s.erp.GetOrder(ctx, s.account, remoteID)
	if err != nil {
		if errors.Is(err, client.ErrNotFound) {
			return s.purgeOrder(ctx, remoteID)
		}
		return fmt.Errorf("fetch order %d: %w", remoteID, err)
	}

	cached, err := cachedOrderFromRemote(remote, raw)
	if err != nil {
		return err
	}
	skus := make([]string, len(cached.Items))
	for i, it := range cached.Items {
		skus[i] = it.SKU
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.orderRepo.Upsert(ctx, tx, cached); err != nil {
			return fmt.Errorf("upsert order %d: %w", remoteID, err)
		}
		// Ledger rows for skus dropped from the snapshot are stale.
		return s.conferenceRepo.DeleteNotIn(ctx, tx, remoteID, skus)
	})
}

func (s *webhookServiceImpl) purgeOrder(ctx context.Context, remoteID int64) error {
	s.logger.Info().Int64("order_id", remoteID).Msg("webhook: order deleted remotely, purging local rows")
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.orderRepo.Delete(ctx, tx, remoteID); err != nil {
			return err
		}
		return s.conferenceRepo.DeleteByOrder(ctx, tx, remoteID)
	})
}

func (s *webhookServiceImpl) OnStockEvent(ctx context.Context, productID int64, stock int32) error {
	defer s.audit(ctx, "stock", strconv.FormatInt(productID, 10))
	return s.productRepo.UpdateStock(ctx, productID, stock)
}

func (s *webhookServiceImpl) audit(ctx context.Context, eventType, reference string) {
	err := s.eventRepo.Record(ctx, &model.WebhookEvent{
		EventID:   uuid.NewString(),
		EventType: eventType,
		Reference: reference,
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("type", eventType).Str("ref", reference).Msg("webhook: audit record failed")
	}
}
