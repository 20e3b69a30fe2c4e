package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"erp-conference-api/internal/client"
	"erp-conference-api/internal/dto"
	"erp-conference-api/internal/locks"
	"erp-conference-api/internal/model"
	"erp-conference-api/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// CheckoutService drives the conference lifecycle of an order:
// open → partial → complete, with item replacement as a side path.
// Local state is authoritative for save-partial/finalize; the remote
// status transition rides the outbox and catches up asynchronously.
type CheckoutService interface {
	CheckItem(ctx context.Context, orderID int64, code string, quantity int32) (*dto.CheckItemResponse, error)
	SavePartial(ctx context.Context, orderID int64, items []*dto.ConferenceItem) error
	Finalize(ctx context.Context, orderID int64) error
	ReplaceItem(ctx context.Context, orderID int64, oldSku, newSku string) (*dto.ReplaceItemResponse, error)
}

type checkoutServiceImpl struct {
	db             *gorm.DB
	erp            client.ErpGateway
	account        string
	orderRepo      repository.OrderRepository
	conferenceRepo repository.ConferenceRepository
	productRepo    repository.ProductRepository
	outboxRepo     repository.OutboxRepository
	locks          *locks.OrderLocks

	statusPartialID  int32
	statusCompleteID int32

	logger zerolog.Logger
}

func NewCheckoutService(
	db *gorm.DB,
	erp client.ErpGateway,
	account string,
	orderRepo repository.OrderRepository,
	conferenceRepo repository.ConferenceRepository,
	productRepo repository.ProductRepository,
	outboxRepo repository.OutboxRepository,
	orderLocks *locks.OrderLocks,
	statusPartialID, statusCompleteID int32,
	logger zerolog.Logger,
) CheckoutService {
	return &checkoutServiceImpl{
		db:               db,
		erp:              erp,
		account:          account,
		orderRepo:        orderRepo,
		conferenceRepo:   conferenceRepo,
		productRepo:      productRepo,
		outboxRepo:       outboxRepo,
		locks:            orderLocks,
		statusPartialID:  statusPartialID,
		statusCompleteID: statusCompleteID,
		logger:           logger,
	}
}

func (s *checkoutServiceImpl) CheckItem(ctx context.Context, orderID int64, code string, quantity int32) (*dto.CheckItemResponse, error) {
	unlock := s.locks.Lock(orderID)
	defer unlock()

	order, err := s.orderRepo.FindByRemoteID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order %d: %w", orderID, err)
	}

	item, err := s.resolveItem(ctx, order, code)
	if err != nil {
		return nil, err
	}

	var warning string
	records, err := s.conferenceRepo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("load conference records: %w", err)
	}
	for _, rec := range records {
		if rec.SKU == item.SKU && rec.CheckedQuantity >= item.OrderedQuantity {
			warning = "item was already fully checked"
		}
	}
	if quantity > item.OrderedQuantity {
		warning = "checked quantity exceeds ordered quantity"
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.conferenceRepo.Set(ctx, tx, orderID, item.SKU, quantity)
	})
	if err != nil {
		return nil, fmt.Errorf("store checked quantity: %w", err)
	}

	return &dto.CheckItemResponse{
		Success: true,
		Item: &dto.CheckedItem{
			SKU:         item.SKU,
			Description: item.Description,
			Ordered:     item.OrderedQuantity,
			Checked:     quantity,
			Status:      repository.ItemStatus(item.OrderedQuantity, quantity),
		},
		Warning: warning,
	}, nil
}

// resolveItem matches the scanned code against the order: direct sku
// first, then the product catalog (sku or GTIN), then a remote product
// lookup matched by remote product id.
func (s *checkoutServiceImpl) resolveItem(ctx context.Context, order *model.CachedOrder, code string) (*model.OrderItem, error) {
	for i := range order.Items {
		if order.Items[i].SKU == code {
			return &order.Items[i], nil
		}
	}

	if cached, err := s.productRepo.FindByCode(ctx, code); err == nil {
		for i := range order.Items {
			if order.Items[i].RemoteProductID == cached.RemoteID {
				return &order.Items[i], nil
			}
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("product lookup: %w", err)
	}

	remote, err := s.erp.FindProductByCode(ctx, s.account, code)
	if err != nil {
		if errors.Is(err, client.ErrNotFound) {
			return nil, ErrItemNotInOrder
		}
		return nil, err
	}
	for i := range order.Items {
		if order.Items[i].RemoteProductID == remote.ID || order.Items[i].SKU == remote.Codigo {
			return &order.Items[i], nil
		}
	}

	return nil, ErrItemNotInOrder
}

// SavePartial commits the partial state in one local transaction. The
// remote status push is enqueued in that same transaction and delivered
// by the outbox dispatcher; its failure never reaches the caller.
func (s *checkoutServiceImpl) SavePartial(ctx context.Context, orderID int64, items []*dto.ConferenceItem) error {
	unlock := s.locks.Lock(orderID)
	defer unlock()

	order, err := s.orderRepo.FindByRemoteID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("load order %d: %w", orderID, err)
	}
	if order.StatusName == model.StatusNameComplete {
		return ErrOrderCompleted
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.orderRepo.UpdateStatus(ctx, tx, orderID, s.statusPartialID, model.StatusNamePartial); err != nil {
			return fmt.Errorf("set partial status: %w", err)
		}
		for _, item := range items {
			if err := s.conferenceRepo.Set(ctx, tx, orderID, item.SKU, item.Quantity); err != nil {
				return fmt.Errorf("store conference record %s: %w", item.SKU, err)
			}
		}
		return s.enqueueStatusPush(ctx, tx, orderID, s.statusPartialID, model.StatusNamePartial)
	})
}

// Finalize moves the order to its terminal state and clears the ledger.
// Same write ordering as SavePartial.
func (s *checkoutServiceImpl) Finalize(ctx context.Context, orderID int64) error {
	unlock := s.locks.Lock(orderID)
	defer unlock()

	order, err := s.orderRepo.FindByRemoteID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("load order %d: %w", orderID, err)
	}
	if order.StatusName == model.StatusNameComplete {
		return ErrOrderCompleted
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.orderRepo.UpdateStatus(ctx, tx, orderID, s.statusCompleteID, model.StatusNameComplete); err != nil {
			return fmt.Errorf("set complete status: %w", err)
		}
		if err := s.conferenceRepo.DeleteByOrder(ctx, tx, orderID); err != nil {
			return fmt.Errorf("clear conference records: %w", err)
		}
		return s.enqueueStatusPush(ctx, tx, orderID, s.statusCompleteID, model.StatusNameComplete)
	})
}

func (s *checkoutServiceImpl) enqueueStatusPush(ctx context.Context, tx *gorm.DB, orderID int64, statusID int32, statusName string) error {
	payload, err := json.Marshal(&model.StatusPushPayload{
		StatusID:   statusID,
		StatusName: statusName,
	})
	if err != nil {
		return err
	}
	return s.outboxRepo.Enqueue(ctx, tx, &model.OutboxEntry{
		ID:      uuid.NewString(),
		OrderID: orderID,
		Kind:    model.OutboxKindStatusPush,
		Payload: payload,
	})
}

// ReplaceItem is remote-first: the ERP must accept the edit and hand
// back the canonical order before anything local changes. Item identity
// (remote id, price) originates from the ERP, never locally.
func (s *checkoutServiceImpl) ReplaceItem(ctx context.Context, orderID int64, oldSku, newSku string) (*dto.ReplaceItemResponse, error) {
	unlock := s.locks.Lock(orderID)
	defer unlock()

	order, err := s.orderRepo.FindByRemoteID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order %d: %w", orderID, err)
	}

	var oldItem *model.OrderItem
	for i := range order.Items {
		if order.Items[i].SKU == oldSku {
			oldItem = &order.Items[i]
			break
		}
	}
	if oldItem == nil {
		return nil, ErrItemNotInOrder
	}

	newProduct, err := s.erp.FindProductByCode(ctx, s.account, newSku)
	if err != nil {
		return nil, fmt.Errorf("resolve replacement product %s: %w", newSku, err)
	}

	remote, err := snapshotOrder(order)
	if err != nil {
		return nil, err
	}

	upsert := &client.OrderUpsert{
		Contato:     remote.Contato,
		Parcelas:    remote.Parcelas,
		Observacoes: remote.Observacoes,
		Itens:       make([]client.RemoteOrderItem, len(remote.Itens)),
	}
	if remote.Vendedor.ID != 0 {
		upsert.Vendedor = &remote.Vendedor
	}
	for i, it := range remote.Itens {
		if it.Codigo == oldSku {
			it = client.RemoteOrderItem{
				Codigo:     newProduct.Codigo,
				Descricao:  newProduct.Nome,
				Quantidade: it.Quantidade,
				Valor:      newProduct.Preco,
				Produto:    client.RemoteProductRef{ID: newProduct.ID},
			}
		}
		upsert.Itens[i] = it
	}

	if err := s.erp.UpdateOrder(ctx, s.account, orderID, upsert); err != nil {
		return nil, fmt.Errorf("remote item replacement: %w", err)
	}

	canonical, raw, err := s.erp.GetOrder(ctx, s.account, orderID)
	if err != nil {
		// The remote edit went through, so oldSku is gone from the
		// authoritative order. The snapshot overwrite is abandoned, but
		// a ledger row pointing at the removed item must not survive.
		purgeErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return s.conferenceRepo.DeleteSKU(ctx, tx, orderID, oldSku)
		})
		if purgeErr != nil {
			s.logger.Error().Err(purgeErr).Int64("order_id", orderID).Str("sku", oldSku).
				Msg("replace item: stale conference record purge failed")
		}
		s.logger.Error().Err(err).Int64("order_id", orderID).
			Msg("replace item: remote updated but canonical re-fetch failed, snapshot stale")
		return nil, fmt.Errorf("fetch canonical order after replacement: %w", err)
	}

	cached, err := cachedOrderFromRemote(canonical, raw)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.orderRepo.Upsert(ctx, tx, cached); err != nil {
			return fmt.Errorf("overwrite order snapshot: %w", err)
		}
		return s.conferenceRepo.DeleteSKU(ctx, tx, orderID, oldSku)
	})
	if err != nil {
		return nil, err
	}

	return &dto.ReplaceItemResponse{
		Success: true,
		OldProduct: &dto.ProductInfo{
			RemoteID: oldItem.RemoteProductID,
			SKU:      oldItem.SKU,
			Name:     oldItem.Description,
			Price:    oldItem.UnitPrice,
		},
		NewProduct: &dto.ProductInfo{
			RemoteID: newProduct.ID,
			SKU:      newProduct.Codigo,
			Name:     newProduct.Nome,
			Price:    newProduct.Preco,
		},
	}, nil
}
