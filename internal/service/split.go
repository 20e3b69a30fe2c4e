package service

import (
	"context"
	"fmt"
	"time"

	"erp-conference-api/internal/client"
	"erp-conference-api/internal/dto"
	"erp-conference-api/internal/locks"
	"erp-conference-api/internal/repository"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PendingBalanceService splits an order: checked quantity stays on the
// original, the unfulfilled remainder moves to a newly created remote
// order. The remote steps run strictly in sequence with a fixed pause
// between calls.
type PendingBalanceService interface {
	CreatePendingBalance(ctx context.Context, orderID int64) (*dto.PendingBalanceResponse, error)
}

type pendingBalanceServiceImpl struct {
	db             *gorm.DB
	erp            client.ErpGateway
	account        string
	orderRepo      repository.OrderRepository
	conferenceRepo repository.ConferenceRepository
	locks          *locks.OrderLocks
	stepPause      time.Duration
	logger         zerolog.Logger
}

func NewPendingBalanceService(
	db *gorm.DB,
	erp client.ErpGateway,
	account string,
	orderRepo repository.OrderRepository,
	conferenceRepo repository.ConferenceRepository,
	orderLocks *locks.OrderLocks,
	stepPause time.Duration,
	logger zerolog.Logger,
) PendingBalanceService {
	return &pendingBalanceServiceImpl{
		db:             db,
		erp:            erp,
		account:        account,
		orderRepo:      orderRepo,
		conferenceRepo: conferenceRepo,
		locks:          orderLocks,
		stepPause:      stepPause,
		logger:         logger,
	}
}

func (s *pendingBalanceServiceImpl) CreatePendingBalance(ctx context.Context, orderID int64) (*dto.PendingBalanceResponse, error) {
	unlock := s.locks.Lock(orderID)
	defer unlock()

	order, err := s.orderRepo.FindByRemoteID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order %d: %w", orderID, err)
	}
	remote, err := snapshotOrder(order)
	if err != nil {
		return nil, err
	}

	records, err := s.conferenceRepo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("load conference records: %w", err)
	}
	checkedBySKU := make(map[string]int32, len(records))
	for _, rec := range records {
		checkedBySKU[rec.SKU] = rec.CheckedQuantity
	}

	kept, moved := partitionItems(remote.Itens, checkedBySKU)
	if len(moved) == 0 {
		return nil, ErrNoPendingItems
	}

	newOrder := &client.OrderUpsert{
		Contato:     remote.Contato,
		Itens:       moved,
		Parcelas:    prorateInstallments(remote.Parcelas, movedTotal(moved)),
		Observacoes: "Saldo pendente do pedido " + remote.Numero,
	}
	if remote.Vendedor.ID != 0 {
		newOrder.Vendedor = &remote.Vendedor
	}

	created, err := s.erp.CreateOrder(ctx, s.account, newOrder)
	if err != nil {
		return nil, fmt.Errorf("create pending balance order: %w", err)
	}

	s.pause(ctx)
	canonicalNew, rawNew, err := s.erp.GetOrder(ctx, s.account, created.ID)
	if err != nil {
		s.compensateCreate(ctx, orderID, created.ID, false)
		return nil, fmt.Errorf("fetch created order %d: %w", created.ID, err)
	}

	cachedNew, err := cachedOrderFromRemote(canonicalNew, rawNew)
	if err != nil {
		s.compensateCreate(ctx, orderID, created.ID, false)
		return nil, err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.orderRepo.Upsert(ctx, tx, cachedNew)
	})
	if err != nil {
		s.compensateCreate(ctx, orderID, created.ID, false)
		return nil, fmt.Errorf("cache created order: %w", err)
	}

	s.pause(ctx)
	reduced := &client.OrderUpsert{
		Contato:     remote.Contato,
		Itens:       kept,
		Parcelas:    remote.Parcelas,
		Observacoes: remote.Observacoes,
	}
	if remote.Vendedor.ID != 0 {
		reduced.Vendedor = &remote.Vendedor
	}
	if err := s.erp.UpdateOrder(ctx, s.account, orderID, reduced); err != nil {
		s.compensateCreate(ctx, orderID, created.ID, true)
		return nil, fmt.Errorf("reduce original order: %w", err)
	}

	s.pause(ctx)
	canonicalOrig, rawOrig, err := s.erp.GetOrder(ctx, s.account, orderID)
	if err != nil {
		// Both remote orders are in their final shape but the local
		// copy of the original is stale. Webhooks repair this.
		s.logger.Error().
			Int64("order_id", orderID).
			Int64("new_order_id", created.ID).
			Err(err).
			Msg("pending balance: canonical re-fetch failed, local cache stale")
		return nil, fmt.Errorf("fetch reduced original order: %w", err)
	}

	cachedOrig, err := cachedOrderFromRemote(canonicalOrig, rawOrig)
	if err != nil {
		return nil, err
	}
	keptSKUs := make([]string, len(kept))
	for i, it := range kept {
		keptSKUs[i] = it.Codigo
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.orderRepo.Upsert(ctx, tx, cachedOrig); err != nil {
			return fmt.Errorf("overwrite original order: %w", err)
		}
		return s.conferenceRepo.DeleteNotIn(ctx, tx, orderID, keptSKUs)
	})
	if err != nil {
		return nil, err
	}

	resp := &dto.PendingBalanceResponse{
		Success:    true,
		NovoPedido: dto.OrderRef{ID: created.ID, Numero: canonicalNew.Numero},
	}
	for _, it := range moved {
		resp.ItensMovidos = append(resp.ItensMovidos, dto.MovedItem{SKU: it.Codigo, Quantity: it.Quantidade})
	}
	for _, it := range kept {
		resp.ItensRestantes = append(resp.ItensRestantes, dto.MovedItem{SKU: it.Codigo, Quantity: it.Quantidade})
	}
	return resp, nil
}

// partitionItems splits the order's items by checked quantity: fully
// checked items stay whole, partially checked ones keep the checked
// portion and move the remainder, unchecked ones move whole. Kept plus
// moved always reconstructs the original quantity per sku.
func partitionItems(items []client.RemoteOrderItem, checkedBySKU map[string]int32) (kept, moved []client.RemoteOrderItem) {
	for _, it := range items {
		checked := checkedBySKU[it.Codigo]
		switch {
		case checked >= it.Quantidade:
			kept = append(kept, it)
		case checked > 0:
			keptItem := it
			keptItem.Quantidade = checked
			kept = append(kept, keptItem)

			movedItem := it
			movedItem.Quantidade = it.Quantidade - checked
			moved = append(moved, movedItem)
		default:
			moved = append(moved, it)
		}
	}
	return kept, moved
}

func movedTotal(items []client.RemoteOrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Valor.Mul(decimal.NewFromInt32(it.Quantidade)))
	}
	return total
}

// prorateInstallments spreads the new order's total evenly across the
// original installment count, keeping payment-method references and due
// dates. Rounding cents land on the last installment.
func prorateInstallments(original []client.RemoteInstallment, total decimal.Decimal) []client.RemoteInstallment {
	n := len(original)
	if n == 0 {
		return nil
	}

	share := total.Div(decimal.NewFromInt(int64(n))).Round(2)
	out := make([]client.RemoteInstallment, n)
	accumulated := decimal.Zero
	for i, inst := range original {
		value := share
		if i == n-1 {
			value = total.Sub(accumulated)
		}
		out[i] = client.RemoteInstallment{
			Valor:          value,
			DataVencimento: inst.DataVencimento,
			FormaPagamento: inst.FormaPagamento,
		}
		accumulated = accumulated.Add(value)
	}
	return out
}

// compensateCreate cancels the remote pending-balance order after a
// later step failed, and drops its cached row when it was already
// stored. Best-effort: a failed cancel leaves two overlapping remote
// orders, so both ids are logged for manual repair.
func (s *pendingBalanceServiceImpl) compensateCreate(ctx context.Context, originalID, createdID int64, cached bool) {
	if err := s.erp.DeleteOrder(ctx, s.account, createdID); err != nil {
		s.logger.Error().
			Int64("order_id", originalID).
			Int64("new_order_id", createdID).
			Err(err).
			Msg("pending balance: compensation failed, overlapping remote orders")
		return
	}
	if cached {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return s.orderRepo.Delete(ctx, tx, createdID)
		})
		if err != nil {
			s.logger.Error().
				Int64("new_order_id", createdID).
				Err(err).
				Msg("pending balance: cancelled order still cached locally")
		}
	}
	s.logger.Warn().
		Int64("order_id", originalID).
		Int64("new_order_id", createdID).
		Msg("pending balance: split aborted, created order cancelled")
}

func (s *pendingBalanceServiceImpl) pause(ctx context.Context) {
	if s.stepPause <= 0 {
		return
	}
	select {
	case <-time.After(s.stepPause):
	case <-ctx.Done():
	}
}
