package dto

import "github.com/shopspring/decimal"

type ConferenceItem struct {
	SKU      string `json:"sku"`
	Quantity int32  `json:"quantity"`
}

type CheckItemRequest struct {
	Code     string `json:"code"`
	Quantity int32  `json:"quantity"`
}

type CheckedItem struct {
	SKU         string `json:"sku"`
	Description string `json:"description"`
	Ordered     int32  `json:"ordered"`
	Checked     int32  `json:"checked"`
	Status      string `json:"status"` // ok | pending
}

type CheckItemResponse struct {
	Success bool         `json:"success"`
	Item    *CheckedItem `json:"item,omitempty"`
	Warning string       `json:"warning,omitempty"`
}

type SaveItemsRequest struct {
	Items []*ConferenceItem `json:"items"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

type ReplaceItemRequest struct {
	OldSku        string `json:"oldSku"`
	NewProductSku string `json:"newProductSku"`
}

type ProductInfo struct {
	RemoteID int64           `json:"id"`
	SKU      string          `json:"sku"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
}

type ReplaceItemResponse struct {
	Success    bool         `json:"success"`
	OldProduct *ProductInfo `json:"oldProduct"`
	NewProduct *ProductInfo `json:"newProduct"`
}

type OrderRef struct {
	ID     int64  `json:"id"`
	Numero string `json:"numero"`
}

type MovedItem struct {
	SKU      string `json:"sku"`
	Quantity int32  `json:"quantity"`
}

type PendingBalanceResponse struct {
	Success        bool        `json:"success"`
	NovoPedido     OrderRef    `json:"novoPedido"`
	ItensMovidos   []MovedItem `json:"itensMovidos"`
	ItensRestantes []MovedItem `json:"itensRestantes"`
}

type ErrorResponse struct {
	Message     string            `json:"message"`
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`
}

type WebhookOrderPayload struct {
	Data struct {
		ID int64 `json:"id"`
	} `json:"data"`
}

type WebhookStockPayload struct {
	Data struct {
		Produto struct {
			ID int64 `json:"id"`
		} `json:"produto"`
		SaldoVirtualTotal int32 `json:"saldoVirtualTotal"`
	} `json:"data"`
}
