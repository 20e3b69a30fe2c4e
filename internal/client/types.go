package client

import "github.com/shopspring/decimal"

// Wire types for the ERP sales-order API. Field names follow the remote
// contract, which is Portuguese.

type RemoteOrder struct {
	ID            int64               `json:"id"`
	Numero        string              `json:"numero"`
	Total         decimal.Decimal     `json:"total"`
	TotalProdutos decimal.Decimal     `json:"totalProdutos"`
	Contato       RemoteContact       `json:"contato"`
	Situacao      RemoteStatus        `json:"situacao"`
	Vendedor      RemoteSeller        `json:"vendedor"`
	Itens         []RemoteOrderItem   `json:"itens"`
	Parcelas      []RemoteInstallment `json:"parcelas"`
	Observacoes   string              `json:"observacoes,omitempty"`
}

type RemoteContact struct {
	ID   int64  `json:"id"`
	Nome string `json:"nome"`
}

type RemoteStatus struct {
	ID   int32  `json:"id"`
	Nome string `json:"nome"`
}

type RemoteSeller struct {
	ID int64 `json:"id"`
}

type RemoteOrderItem struct {
	Codigo     string           `json:"codigo"`
	Descricao  string           `json:"descricao"`
	Quantidade int32            `json:"quantidade"`
	Valor      decimal.Decimal  `json:"valor"`
	Produto    RemoteProductRef `json:"produto"`
}

type RemoteProductRef struct {
	ID int64 `json:"id"`
}

type RemoteInstallment struct {
	ID             int64                  `json:"id,omitempty"`
	Valor          decimal.Decimal        `json:"valor"`
	DataVencimento string                 `json:"dataVencimento"`
	FormaPagamento RemotePaymentMethodRef `json:"formaPagamento"`
}

type RemotePaymentMethodRef struct {
	ID int64 `json:"id"`
}

type RemoteProduct struct {
	ID      int64           `json:"id"`
	Codigo  string          `json:"codigo"`
	Nome    string          `json:"nome"`
	Preco   decimal.Decimal `json:"preco"`
	GTIN    string          `json:"gtin"`
	Estoque RemoteStock     `json:"estoque"`
}

type RemoteStock struct {
	SaldoVirtualTotal int32 `json:"saldoVirtualTotal"`
}

// OrderUpsert is the write shape for creating or rewriting an order.
type OrderUpsert struct {
	Contato     RemoteContact       `json:"contato"`
	Itens       []RemoteOrderItem   `json:"itens"`
	Parcelas    []RemoteInstallment `json:"parcelas,omitempty"`
	Vendedor    *RemoteSeller       `json:"vendedor,omitempty"`
	Observacoes string              `json:"observacoes,omitempty"`
}

type CreatedOrder struct {
	ID     int64  `json:"id"`
	Numero string `json:"numero"`
}

// The ERP wraps every response body in a data envelope.
type dataEnvelope[T any] struct {
	Data T `json:"data"`
}

type remoteErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Fields  []struct {
			Element string `json:"element"`
			Msg     string `json:"msg"`
		} `json:"fields"`
	} `json:"error"`
}
