package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"erp-conference-api/internal/client"
	"erp-conference-api/internal/locks"
	"erp-conference-api/internal/model"
	"erp-conference-api/internal/repository"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	testAccount          = "acme"
	testStatusPartialID  = 15
	testStatusCompleteID = 9
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(model.AllModels()...))
	return db
}

var errUnexpectedCall = errors.New("unexpected gateway call")

// stubGateway implements client.ErpGateway with per-method hooks. Any
// method without a hook fails the flow loudly.
type stubGateway struct {
	getOrder     func(orderID int64) (*client.RemoteOrder, json.RawMessage, error)
	createOrder  func(order *client.OrderUpsert) (*client.CreatedOrder, error)
	updateOrder  func(orderID int64, order *client.OrderUpsert) error
	deleteOrder  func(orderID int64) error
	updateStatus func(orderID int64, statusID int32) error
	listOrders   func(page, limit int) ([]client.RemoteOrder, error)
	listProducts func(page, limit int) ([]client.RemoteProduct, error)
	findProduct  func(code string) (*client.RemoteProduct, error)
}

func (s *stubGateway) GetOrder(ctx context.Context, account string, orderID int64) (*client.RemoteOrder, json.RawMessage, error) {
	if s.getOrder == nil {
		return nil, nil, errUnexpectedCall
	}
	return s.getOrder(orderID)
}

func (s *stubGateway) CreateOrder(ctx context.Context, account string, order *client.OrderUpsert) (*client.CreatedOrder, error) {
	if s.createOrder == nil {
		return nil, errUnexpectedCall
	}
	return s.createOrder(order)
}

func (s *stubGateway) UpdateOrder(ctx context.Context, account string, orderID int64, order *client.OrderUpsert) error {
	if s.updateOrder == nil {
		return errUnexpectedCall
	}
	return s.updateOrder(orderID, order)
}

func (s *stubGateway) DeleteOrder(ctx context.Context, account string, orderID int64) error {
	if s.deleteOrder == nil {
		return errUnexpectedCall
	}
	return s.deleteOrder(orderID)
}

func (s *stubGateway) UpdateOrderStatus(ctx context.Context, account string, orderID int64, statusID int32) error {
	if s.updateStatus == nil {
		return errUnexpectedCall
	}
	return s.updateStatus(orderID, statusID)
}

func (s *stubGateway) ListOrdersPage(ctx context.Context, account string, page, limit int) ([]client.RemoteOrder, error) {
	if s.listOrders == nil {
		return nil, errUnexpectedCall
	}
	return s.listOrders(page, limit)
}

func (s *stubGateway) ListProductsPage(ctx context.Context, account string, page, limit int) ([]client.RemoteProduct, error) {
	if s.listProducts == nil {
		return nil, errUnexpectedCall
	}
	return s.listProducts(page, limit)
}

func (s *stubGateway) FindProductByCode(ctx context.Context, account string, code string) (*client.RemoteProduct, error) {
	if s.findProduct == nil {
		return nil, errUnexpectedCall
	}
	return s.findProduct(code)
}

// remoteOrderFixture is the canonical two-item order used across the
// scenario tests: SKU-A ordered 10, SKU-B ordered 5.
func remoteOrderFixture() *client.RemoteOrder {
	return &client.RemoteOrder{
		ID:            1,
		Numero:        "PV-100",
		Total:         decimal.NewFromInt(90),
		TotalProdutos: decimal.NewFromInt(90),
		Contato:       client.RemoteContact{ID: 7, Nome: "Mercearia Central"},
		Situacao:      client.RemoteStatus{ID: 6, Nome: model.StatusNameOpen},
		Vendedor:      client.RemoteSeller{ID: 3},
		Itens: []client.RemoteOrderItem{
			{
				Codigo:     "SKU-A",
				Descricao:  "Arroz 5kg",
				Quantidade: 10,
				Valor:      decimal.NewFromInt(5),
				Produto:    client.RemoteProductRef{ID: 101},
			},
			{
				Codigo:     "SKU-B",
				Descricao:  "Feijao 1kg",
				Quantidade: 5,
				Valor:      decimal.NewFromInt(8),
				Produto:    client.RemoteProductRef{ID: 102},
			},
		},
		Parcelas: []client.RemoteInstallment{
			{ID: 1, Valor: decimal.NewFromInt(45), DataVencimento: "2025-07-01", FormaPagamento: client.RemotePaymentMethodRef{ID: 55}},
			{ID: 2, Valor: decimal.NewFromInt(45), DataVencimento: "2025-08-01", FormaPagamento: client.RemotePaymentMethodRef{ID: 55}},
		},
	}
}

func seedOrder(t *testing.T, db *gorm.DB, remote *client.RemoteOrder) {
	t.Helper()
	raw, err := json.Marshal(remote)
	require.NoError(t, err)
	cached, err := cachedOrderFromRemote(remote, raw)
	require.NoError(t, err)
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return repository.NewOrderRepository(db).Upsert(context.Background(), tx, cached)
	}))
}

type testEnv struct {
	db             *gorm.DB
	orderRepo      repository.OrderRepository
	conferenceRepo repository.ConferenceRepository
	productRepo    repository.ProductRepository
	outboxRepo     repository.OutboxRepository
	eventRepo      repository.WebhookEventRepository
	locks          *locks.OrderLocks
}

func newTestEnv(t *testing.T) *testEnv {
	db := newTestDB(t)
	return &testEnv{
		db:             db,
		orderRepo:      repository.NewOrderRepository(db),
		conferenceRepo: repository.NewConferenceRepository(db),
		productRepo:    repository.NewProductRepository(db),
		outboxRepo:     repository.NewOutboxRepository(db),
		eventRepo:      repository.NewWebhookEventRepository(db),
		locks:          locks.NewOrderLocks(),
	}
}

func (e *testEnv) checkout(gw client.ErpGateway) CheckoutService {
	return NewCheckoutService(
		e.db, gw, testAccount,
		e.orderRepo, e.conferenceRepo, e.productRepo, e.outboxRepo,
		e.locks,
		testStatusPartialID, testStatusCompleteID,
		zerolog.Nop(),
	)
}

func (e *testEnv) pending(gw client.ErpGateway) PendingBalanceService {
	return NewPendingBalanceService(
		e.db, gw, testAccount,
		e.orderRepo, e.conferenceRepo,
		e.locks,
		0, // no pacing in tests
		zerolog.Nop(),
	)
}

func (e *testEnv) webhook(gw client.ErpGateway) WebhookService {
	return NewWebhookService(
		e.db, gw, testAccount,
		e.orderRepo, e.conferenceRepo, e.productRepo, e.eventRepo,
		zerolog.Nop(),
	)
}

func (e *testEnv) checkedQuantities(t *testing.T, orderID int64) map[string]int32 {
	t.Helper()
	records, err := e.conferenceRepo.ListByOrder(context.Background(), orderID)
	require.NoError(t, err)
	out := make(map[string]int32, len(records))
	for _, rec := range records {
		out[rec.SKU] = rec.CheckedQuantity
	}
	return out
}
