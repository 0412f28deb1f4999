package models

import (
	"time"

	"github.com/google/uuid"
)

// TradeRecord is the historical settlement record consulted by quality
// audits. Rows are populated by the hosting environment, never by ledger
// operations; the core treats them as read-only input.
type TradeRecord struct {
	PurchaserID uuid.UUID `gorm:"column:purchaser_id;type:uuid;primaryKey"`
	VendorID    uuid.UUID `gorm:"column:vendor_id;type:uuid;primaryKey"`
	Quantity    uint64    `gorm:"column:quantity;not null"`
	AgreedPrice uint64    `gorm:"column:agreed_price;not null"`
	TradedAt    int64     `gorm:"column:traded_at;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}
