package service

import (
	"encoding/json"
	"fmt"
	"time"

	"erp-conference-api/internal/client"
	"erp-conference-api/internal/model"
)

// cachedOrderFromRemote maps the canonical remote order into the local
// cache row, wrapping the raw payload in a versioned snapshot envelope.
func cachedOrderFromRemote(remote *client.RemoteOrder, raw json.RawMessage) (*model.CachedOrder, error) {
	snapshot, err := model.EncodeSnapshot(raw, time.Now())
	if err != nil {
		return nil, fmt.Errorf("encode snapshot for order %d: %w", remote.ID, err)
	}

	items := make([]model.OrderItem, len(remote.Itens))
	for i, it := range remote.Itens {
		items[i] = model.OrderItem{
			OrderID:         remote.ID,
			SKU:             it.Codigo,
			Description:     it.Descricao,
			OrderedQuantity: it.Quantidade,
			UnitPrice:       it.Valor,
			RemoteProductID: it.Produto.ID,
		}
	}

	return &model.CachedOrder{
		RemoteID:            remote.ID,
		Number:              remote.Numero,
		CustomerID:          remote.Contato.ID,
		CustomerName:        remote.Contato.Nome,
		StatusID:            remote.Situacao.ID,
		StatusName:          remote.Situacao.Nome,
		TotalAmount:         remote.Total,
		TotalProductsAmount: remote.TotalProdutos,
		SellerID:            remote.Vendedor.ID,
		RawSnapshot:         snapshot,
		Items:               items,
	}, nil
}

// snapshotOrder decodes the cached order's snapshot envelope back into
// the remote representation. Item identity for remote edits always
// comes from here, never from the structured columns.
func snapshotOrder(cached *model.CachedOrder) (*client.RemoteOrder, error) {
	env, err := model.DecodeSnapshot(cached.RawSnapshot)
	if err != nil {
		return nil, fmt.Errorf("order %d: %w", cached.RemoteID, err)
	}
	var remote client.RemoteOrder
	if err := json.Unmarshal(env.Order, &remote); err != nil {
		return nil, fmt.Errorf("decode snapshot order %d: %w", cached.RemoteID, err)
	}
	return &remote, nil
}
