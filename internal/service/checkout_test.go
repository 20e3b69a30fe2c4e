package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"erp-conference-api/internal/client"
	"erp-conference-api/internal/dto"
	"erp-conference-api/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestCheckItemFullAndPartial(t *testing.T) {
	env := newTestEnv(t)
	seedOrder(t, env.db, remoteOrderFixture())
	svc := env.checkout(&stubGateway{})
	ctx := context.Background()

	resp, err := svc.CheckItem(ctx, 1, "SKU-A", 10)
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "ok", resp.Item.Status)
	assert.Empty(t, resp.Warning)

	resp, err = svc.CheckItem(ctx, 1, "SKU-B", 3)
	require.NoError(t, err)
	assert.Equal(t, "pending", resp.Item.Status)
	assert.Equal(t, int32(5), resp.Item.Ordered)
	assert.Equal(t, int32(3), resp.Item.Checked)

	checked := env.checkedQuantities(t, 1)
	assert.Equal(t, int32(10), checked["SKU-A"])
	assert.Equal(t, int32(3), checked["SKU-B"])
}

func TestCheckItemIsAbsoluteNotCumulative(t *testing.T) {
	env := newTestEnv(t)
	seedOrder(t, env.db, remoteOrderFixture())
	svc := env.checkout(&stubGateway{})
	ctx := context.Background()

	_, err := svc.CheckItem(ctx, 1, "SKU-A", 4)
	require.NoError(t, err)
	_, err = svc.CheckItem(ctx, 1, "SKU-A", 7)
	require.NoError(t, err)

	assert.Equal(t, int32(7), env.checkedQuantities(t, 1)["SKU-A"])
}

func TestCheckItemWarnings(t *testing.T) {
	env := newTestEnv(t)
	seedOrder(t, env.db, remoteOrderFixture())
	svc := env.checkout(&stubGateway{})
	ctx := context.Background()

	resp, err := svc.CheckItem(ctx, 1, "SKU-A", 12)
	require.NoError(t, err)
	assert.Equal(t, "checked quantity exceeds ordered quantity", resp.Warning)

	resp, err = svc.CheckItem(ctx, 1, "SKU-A", 10)
	require.NoError(t, err)
	assert.Equal(t, "item was already fully checked", resp.Warning)
}

func TestCheckItemResolvesViaLocalCatalog(t *testing.T) {
	env := newTestEnv(t)
	seedOrder(t, env.db, remoteOrderFixture())
	require.NoError(t, env.productRepo.Upsert(context.Background(), env.db, &model.CachedProduct{
		RemoteID: 102,
		SKU:      "SKU-B",
		GTIN:     "7891234567890",
		Name:     "Feijao 1kg",
		Price:    decimal.NewFromInt(8),
	}))
	svc := env.checkout(&stubGateway{})

	resp, err := svc.CheckItem(context.Background(), 1, "7891234567890", 5)
	require.NoError(t, err)
	assert.Equal(t, "SKU-B", resp.Item.SKU)
	assert.Equal(t, "ok", resp.Item.Status)
}

func TestCheckItemResolvesViaRemoteLookup(t *testing.T) {
	env := newTestEnv(t)
	seedOrder(t, env.db, remoteOrderFixture())
	gw := &stubGateway{
		findProduct: func(code string) (*client.RemoteProduct, error) {
			assert.Equal(t, "7891234567890", code)
			return &client.RemoteProduct{ID: 102, Codigo: "SKU-B"}, nil
		},
	}
	svc := env.checkout(gw)

	resp, err := svc.CheckItem(context.Background(), 1, "7891234567890", 2)
	require.NoError(t, err)
	assert.Equal(t, "SKU-B", resp.Item.SKU)
}

func TestCheckItemUnknownCode(t *testing.T) {
	env := newTestEnv(t)
	seedOrder(t, env.db, remoteOrderFixture())
	gw := &stubGateway{
		findProduct: func(code string) (*client.RemoteProduct, error) {
			return nil, client.ErrNotFound
		},
	}
	svc := env.checkout(gw)

	_, err := svc.CheckItem(context.Background(), 1, "NOPE", 1)
	assert.ErrorIs(t, err, ErrItemNotInOrder)

	assert.Empty(t, env.checkedQuantities(t, 1))
}

func TestCheckItemUnknownOrder(t *testing.T) {
	env := newTestEnv(t)
	svc := env.checkout(&stubGateway{})

	_, err := svc.CheckItem(context.Background(), 999, "SKU-A", 1)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSavePartial(t *testing.T) {
	env := newTestEnv(t)
	seedOrder(t, env.db, remoteOrderFixture())
	// no gateway hooks: save-partial must not talk to the ERP inline
	svc := env.checkout(&stubGateway{})
	ctx := context.Background()

	err := svc.SavePartial(ctx, 1, []*dto.ConferenceItem{
		{SKU: "SKU-A", Quantity: 10},
		{SKU: "SKU-B", Quantity: 3},
	})
	require.NoError(t, err)

	order, err := env.orderRepo.FindByRemoteID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, model.StatusNamePartial, order.StatusName)
	assert.Equal(t, int32(testStatusPartialID), order.StatusID)

	checked := env.checkedQuantities(t, 1)
	assert.Equal(t, int32(10), checked["SKU-A"])
	assert.Equal(t, int32(3), checked["SKU-B"])

	pending, err := env.outboxRepo.ListPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, model.OutboxKindStatusPush, pending[0].Kind)
	assert.Equal(t, int64(1), pending[0].OrderID)
}

func TestFinalizeClearsLedger(t *testing.T) {
	env := newTestEnv(t)
	seedOrder(t, env.db, remoteOrderFixture())
	svc := env.checkout(&stubGateway{})
	ctx := context.Background()

	_, err := svc.CheckItem(ctx, 1, "SKU-A", 10)
	require.NoError(t, err)
	_, err = svc.CheckItem(ctx, 1, "SKU-B", 5)
	require.NoError(t, err)

	require.NoError(t, svc.Finalize(ctx, 1))

	order, err := env.orderRepo.FindByRemoteID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, model.StatusNameComplete, order.StatusName)
	assert.Empty(t, env.checkedQuantities(t, 1))

	pending, err := env.outboxRepo.ListPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
}

func TestFinalizeTwice(t *testing.T) {
	env := newTestEnv(t)
	seedOrder(t, env.db, remoteOrderFixture())
	svc := env.checkout(&stubGateway{})
	ctx := context.Background()

	require.NoError(t, svc.Finalize(ctx, 1))
	assert.ErrorIs(t, svc.Finalize(ctx, 1), ErrOrderCompleted)
}

func TestSavePartialOnCompletedOrder(t *testing.T) {
	env := newTestEnv(t)
	seedOrder(t, env.db, remoteOrderFixture())
	svc := env.checkout(&stubGateway{})
	ctx := context.Background()

	require.NoError(t, svc.Finalize(ctx, 1))
	err := svc.SavePartial(ctx, 1, []*dto.ConferenceItem{{SKU: "SKU-A", Quantity: 1}})
	assert.ErrorIs(t, err, ErrOrderCompleted)
}

func TestReplaceItem(t *testing.T) {
	env := newTestEnv(t)
	seedOrder(t, env.db, remoteOrderFixture())
	ctx := context.Background()

	replacement := &client.RemoteProduct{
		ID:     201,
		Codigo: "SKU-C",
		Nome:   "Arroz integral 5kg",
		Preco:  decimal.NewFromInt(6),
	}
	canonical := remoteOrderFixture()
	canonical.Itens[0] = client.RemoteOrderItem{
		Codigo:     "SKU-C",
		Descricao:  "Arroz integral 5kg",
		Quantidade: 10,
		Valor:      decimal.NewFromInt(6),
		Produto:    client.RemoteProductRef{ID: 201},
	}
	rawCanonical, err := json.Marshal(canonical)
	require.NoError(t, err)

	var sentUpsert *client.OrderUpsert
	gw := &stubGateway{
		findProduct: func(code string) (*client.RemoteProduct, error) {
			assert.Equal(t, "SKU-C", code)
			return replacement, nil
		},
		updateOrder: func(orderID int64, order *client.OrderUpsert) error {
			assert.Equal(t, int64(1), orderID)
			sentUpsert = order
			return nil
		},
		getOrder: func(orderID int64) (*client.RemoteOrder, json.RawMessage, error) {
			return canonical, rawCanonical, nil
		},
	}
	svc := env.checkout(gw)

	_, err = svc.CheckItem(ctx, 1, "SKU-A", 4)
	require.NoError(t, err)

	resp, err := svc.ReplaceItem(ctx, 1, "SKU-A", "SKU-C")
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "SKU-A", resp.OldProduct.SKU)
	assert.Equal(t, "SKU-C", resp.NewProduct.SKU)
	assert.Equal(t, int64(201), resp.NewProduct.RemoteID)

	// the rewrite keeps the old quantity but takes identity from the catalog
	require.NotNil(t, sentUpsert)
	require.Len(t, sentUpsert.Itens, 2)
	assert.Equal(t, "SKU-C", sentUpsert.Itens[0].Codigo)
	assert.Equal(t, int32(10), sentUpsert.Itens[0].Quantidade)
	assert.True(t, sentUpsert.Itens[0].Valor.Equal(decimal.NewFromInt(6)))
	assert.Equal(t, "SKU-B", sentUpsert.Itens[1].Codigo)

	order, err := env.orderRepo.FindByRemoteID(ctx, 1)
	require.NoError(t, err)
	skus := []string{order.Items[0].SKU, order.Items[1].SKU}
	assert.Contains(t, skus, "SKU-C")
	assert.NotContains(t, skus, "SKU-A")

	// the replaced item's ledger row is gone
	assert.Empty(t, env.checkedQuantities(t, 1))
}

func TestReplaceItemRemoteRejection(t *testing.T) {
	env := newTestEnv(t)
	seedOrder(t, env.db, remoteOrderFixture())
	ctx := context.Background()

	gw := &stubGateway{
		findProduct: func(code string) (*client.RemoteProduct, error) {
			return &client.RemoteProduct{ID: 201, Codigo: "SKU-C"}, nil
		},
		updateOrder: func(orderID int64, order *client.OrderUpsert) error {
			return &client.RemoteValidationError{StatusCode: 422, Message: "produto inativo"}
		},
	}
	svc := env.checkout(gw)

	_, err := svc.CheckItem(ctx, 1, "SKU-A", 4)
	require.NoError(t, err)

	_, err = svc.ReplaceItem(ctx, 1, "SKU-A", "SKU-C")
	var validationErr *client.RemoteValidationError
	require.ErrorAs(t, err, &validationErr)

	// nothing local changed
	order, err := env.orderRepo.FindByRemoteID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "SKU-A", order.Items[0].SKU)
	assert.Equal(t, int32(4), env.checkedQuantities(t, 1)["SKU-A"])
}

func TestReplaceItemRefetchFailurePurgesOldLedgerRow(t *testing.T) {
	env := newTestEnv(t)
	seedOrder(t, env.db, remoteOrderFixture())
	ctx := context.Background()

	gw := &stubGateway{
		findProduct: func(code string) (*client.RemoteProduct, error) {
			return &client.RemoteProduct{ID: 201, Codigo: "SKU-C"}, nil
		},
		updateOrder: func(orderID int64, order *client.OrderUpsert) error {
			return nil
		},
		getOrder: func(orderID int64) (*client.RemoteOrder, json.RawMessage, error) {
			return nil, nil, errors.New("timeout")
		},
	}
	svc := env.checkout(gw)

	_, err := svc.CheckItem(ctx, 1, "SKU-A", 4)
	require.NoError(t, err)
	_, err = svc.CheckItem(ctx, 1, "SKU-B", 2)
	require.NoError(t, err)

	_, err = svc.ReplaceItem(ctx, 1, "SKU-A", "SKU-C")
	require.Error(t, err)

	// snapshot untouched, but the row for the removed sku is purged
	order, err := env.orderRepo.FindByRemoteID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "SKU-A", order.Items[0].SKU)

	checked := env.checkedQuantities(t, 1)
	assert.NotContains(t, checked, "SKU-A")
	assert.Equal(t, int32(2), checked["SKU-B"])
}

func TestReplaceItemUnknownOldSku(t *testing.T) {
	env := newTestEnv(t)
	seedOrder(t, env.db, remoteOrderFixture())
	svc := env.checkout(&stubGateway{})

	_, err := svc.ReplaceItem(context.Background(), 1, "SKU-X", "SKU-C")
	assert.ErrorIs(t, err, ErrItemNotInOrder)
}

func TestFinalizeSupersedesPartialStatusPush(t *testing.T) {
	env := newTestEnv(t)
	seedOrder(t, env.db, remoteOrderFixture())
	svc := env.checkout(&stubGateway{})
	ctx := context.Background()

	err := svc.SavePartial(ctx, 1, []*dto.ConferenceItem{{SKU: "SKU-A", Quantity: 10}})
	require.NoError(t, err)
	require.NoError(t, svc.Finalize(ctx, 1))

	// only the finalize push may reach the ERP
	pending, err := env.outboxRepo.ListPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	var payload model.StatusPushPayload
	require.NoError(t, json.Unmarshal(pending[0].Payload, &payload))
	assert.Equal(t, int32(testStatusCompleteID), payload.StatusID)
	assert.Equal(t, model.StatusNameComplete, payload.StatusName)
}
