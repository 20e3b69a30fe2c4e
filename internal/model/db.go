package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Local checkout states mirrored into the cached order alongside the
// remote status id. The remote id for partial/complete is configured
// per tenant, the name column carries these values.
const (
	StatusNameOpen     = "open"
	StatusNamePartial  = "partial"
	StatusNameComplete = "complete"
)

// CachedOrder is the local snapshot of a remote sales order. The ERP is
// the system of record; structured columns exist for querying, the raw
// snapshot envelope is the authoritative copy for item identity.
type CachedOrder struct {
	RemoteID            int64  `gorm:"primaryKey;not null"` // erp order id
	Number              string `gorm:"size:32;index"`
	CustomerID          int64  `gorm:"index"`
	CustomerName        string `gorm:"size:128"`
	StatusID            int32  `gorm:"index"`
	StatusName          string `gorm:"size:32"`
	TotalAmount         decimal.Decimal `gorm:"type:decimal(12,2)"`
	TotalProductsAmount decimal.Decimal `gorm:"type:decimal(12,2)"`
	SellerID            int64
	RawSnapshot         []byte `gorm:"type:json"` // versioned envelope, see snapshot.go

	Items []OrderItem `gorm:"foreignKey:OrderID;references:RemoteID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

type OrderItem struct {
	ID uint `gorm:"primaryKey"`
	// FK → cached_orders.remote_id
	OrderID         int64  `gorm:"index;not null"`
	SKU             string `gorm:"size:64;index;not null"`
	Description     string `gorm:"size:255"`
	OrderedQuantity int32  `gorm:"not null"`
	UnitPrice       decimal.Decimal `gorm:"type:decimal(12,2)"`
	RemoteProductID int64  `gorm:"index"`

	CreatedAt time.Time
}

// ConferenceRecord holds the absolute checked quantity for one order
// item. Rows exist only while the quantity is positive; finalizing an
// order removes them all.
type ConferenceRecord struct {
	OrderID         int64  `gorm:"primaryKey;not null"`
	SKU             string `gorm:"primaryKey;size:64;not null"`
	CheckedQuantity int32  `gorm:"not null"`
	UpdatedAt       time.Time
}

// CachedProduct mirrors the remote product catalog fields the conference
// flow needs (code lookup, stock display).
type CachedProduct struct {
	RemoteID int64  `gorm:"primaryKey;not null"` // erp product id
	SKU      string `gorm:"size:64;uniqueIndex;not null"`
	Name     string `gorm:"size:255"`
	GTIN     string `gorm:"size:32;index"`
	Price    decimal.Decimal `gorm:"type:decimal(12,2)"`
	Stock    int32

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AccountToken is the single token row per ERP account. Mutated only
// after a successful refresh.
type AccountToken struct {
	Account      string `gorm:"primaryKey;size:64;not null"`
	AccessToken  string `gorm:"size:512;not null"`
	RefreshToken string `gorm:"size:512;not null"`
	UpdatedAt    time.Time
}

const (
	OutboxStatusPending    = "PENDING"
	OutboxStatusSent       = "SENT"
	OutboxStatusFailed     = "FAILED"
	OutboxStatusSuperseded = "SUPERSEDED"
)

const OutboxKindStatusPush = "order_status_push"

// OutboxEntry records an intended remote write. It is inserted in the
// same transaction as the local state change it mirrors and pushed by
// the background dispatcher.
type OutboxEntry struct {
	ID        string `gorm:"primaryKey;size:36;not null"` // uuid
	OrderID   int64  `gorm:"index;not null"`
	Kind      string `gorm:"size:32;index;not null"`
	Payload   []byte `gorm:"type:json;not null"`
	Status    string `gorm:"size:16;index;not null"`
	Attempts  int    `gorm:"not null"`
	LastError string `gorm:"size:512"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// StatusPushPayload is the OutboxEntry payload for kind
// order_status_push.
type StatusPushPayload struct {
	StatusID   int32  `json:"statusId"`
	StatusName string `json:"statusName"`
}

type WebhookEvent struct {
	EventID     string `gorm:"primaryKey;size:128;not null"`
	EventType   string `gorm:"size:64;index"`
	Reference   string `gorm:"size:64;index"` // remote order/product id
	ProcessedAt time.Time
	CreatedAt   time.Time
}

// AllModels is the AutoMigrate set.
func AllModels() []interface{} {
	return []interface{}{
		&CachedOrder{},
		&OrderItem{},
		&ConferenceRecord{},
		&CachedProduct{},
		&AccountToken{},
		&OutboxEntry{},
		&WebhookEvent{},
	}
}
