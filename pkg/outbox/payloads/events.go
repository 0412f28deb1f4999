package payloads

import (
	"time"

	"github.com/google/uuid"
)

// UnitListedEvent signals new quantity placed on the order book.
type UnitListedEvent struct {
	SellerID       uuid.UUID `json:"seller_id"`
	Quantity       uint64    `json:"quantity"`
	UnitPrice      uint64    `json:"unit_price"`
	ListedQuantity uint64    `json:"listed_quantity"`
}

// ListingWithdrawnEvent is emitted when a seller pulls quantity off the book.
type ListingWithdrawnEvent struct {
	SellerID          uuid.UUID `json:"seller_id"`
	Quantity          uint64    `json:"quantity"`
	RemainingQuantity uint64    `json:"remaining_quantity"`
}

// TradeSettledEvent carries the full economics of a settled purchase.
type TradeSettledEvent struct {
	BuyerID   uuid.UUID `json:"buyer_id"`
	VendorID  uuid.UUID `json:"vendor_id"`
	Quantity  uint64    `json:"quantity"`
	Cost      uint64    `json:"cost"`
	Fee       uint64    `json:"fee"`
	SettledAt time.Time `json:"settled_at"`
}

// UnitsIngestedEvent reports newly sourced units entering the system.
type UnitsIngestedEvent struct {
	OwnerID  uuid.UUID `json:"owner_id"`
	Quantity uint64    `json:"quantity"`
}

// UnitsRefundedEvent reports units returned against a payout from reserve.
type UnitsRefundedEvent struct {
	OwnerID     uuid.UUID `json:"owner_id"`
	Quantity    uint64    `json:"quantity"`
	RefundValue uint64    `json:"refund_value"`
}

// UnitsTransferredEvent reports a peer-to-peer unit movement.
type UnitsTransferredEvent struct {
	SenderID   uuid.UUID `json:"sender_id"`
	ReceiverID uuid.UUID `json:"receiver_id"`
	Quantity   uint64    `json:"quantity"`
}

// PlanEstablishedEvent is emitted when a provider publishes a recurring plan.
type PlanEstablishedEvent struct {
	ProviderID       uuid.UUID `json:"provider_id"`
	PeriodicCost     uint64    `json:"periodic_cost"`
	PeriodicQuantity uint64    `json:"periodic_quantity"`
	MaxCycles        uint64    `json:"max_cycles"`
}

// SubscriptionStartedEvent carries the upfront cycle purchase.
type SubscriptionStartedEvent struct {
	SubscriberID uuid.UUID `json:"subscriber_id"`
	ProviderID   uuid.UUID `json:"provider_id"`
	Cycles       uint64    `json:"cycles"`
	Units        uint64    `json:"units"`
	Payment      uint64    `json:"payment"`
	Fee          uint64    `json:"fee"`
}

// QualityFlaggedEvent reports an audit penalty applied to a vendor.
type QualityFlaggedEvent struct {
	VendorID     uuid.UUID `json:"vendor_id"`
	PurchaserID  uuid.UUID `json:"purchaser_id"`
	RefundAmount uint64    `json:"refund_amount"`
}

// MetricsRecordedEvent mirrors one analytics increment.
type MetricsRecordedEvent struct {
	VendorID    uuid.UUID `json:"vendor_id"`
	PurchaserID uuid.UUID `json:"purchaser_id"`
	Volume      uint64    `json:"volume"`
	Value       uint64    `json:"value"`
	DayBucket   int64     `json:"day_bucket"`
}
