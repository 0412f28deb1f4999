package ledger

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	pkgerrors "github.com/biovault-exchange/biovault-backend/pkg/errors"
)

const secondsPerDay = 86400

// Config fixes the economic parameters of the ledger at construction.
// Rates and the base unit price stay mutable through admin-gated setters;
// the administrator identity, ceiling and capacity never change.
type Config struct {
	Admin              uuid.UUID
	CommissionRate     uint64
	RefundRate         uint64
	UnitPrice          uint64
	GlobalCeiling      uint64
	IndividualCapacity uint64
}

// Account is a participant's unit inventory and currency balance.
type Account struct {
	Units    uint64
	Currency uint64
}

// Listing is a standing sell offer, one per participant.
type Listing struct {
	Quantity  uint64
	UnitPrice uint64
}

// Plan is a recurring-access offer posted by a provider.
type Plan struct {
	PeriodicCost     uint64
	PeriodicQuantity uint64
	MaxCycles        uint64
	Active           bool
}

// Subscription tracks a subscriber's relationship with a provider. Created
// once at acquisition and never updated by any operation here.
type Subscription struct {
	PurchasedCycles uint64
	RemainingCycles uint64
	CycleAllocation uint64
}

// TradeRecord is a historical settlement consulted by quality audits. The
// hosting environment populates these; no ledger operation writes them.
type TradeRecord struct {
	Quantity    uint64
	AgreedPrice uint64
	TradedAt    int64
}

// SharingGrant is a time-bounded capability over a volume of units.
type SharingGrant struct {
	Volume    uint64
	ExpiresAt int64
	Revoked   bool
}

// Standing accumulates a vendor's reputation and quality-incident counters.
type Standing struct {
	ReputationPoints uint64
	IncidentCount    uint64
	IncidentUnits    uint64
}

// DayMetrics aggregates transactions for one day bucket (unix/86400).
type DayMetrics struct {
	TransactionCount uint64
	UnitVolume       uint64
}

type pairKey struct {
	first  uuid.UUID
	second uuid.UUID
}

// Core is the transactional ledger state machine. A single mutex serializes
// every operation; each operation validates all preconditions before the
// first write, so a failure never leaves partial state behind.
type Core struct {
	mu sync.Mutex

	admin              uuid.UUID
	commissionRate     uint64
	refundRate         uint64
	unitPrice          uint64
	globalCeiling      uint64
	individualCapacity uint64

	accounts      map[uuid.UUID]Account
	listings      map[uuid.UUID]Listing
	plans         map[uuid.UUID]Plan
	subscriptions map[pairKey]Subscription
	trades        map[pairKey]TradeRecord
	grants        map[pairKey]SharingGrant
	standings     map[uuid.UUID]Standing
	daily         map[int64]DayMetrics
	activity      map[uuid.UUID]uint64
	operators     map[uuid.UUID]struct{}

	inventory        uint64
	globalTxCount    uint64
	globalUnitVolume uint64
}

// New builds a ledger core, rejecting out-of-range configuration.
func New(cfg Config) (*Core, error) {
	if cfg.Admin == uuid.Nil {
		return nil, fmt.Errorf("administrator identity required")
	}
	if cfg.CommissionRate > maxCommissionRate {
		return nil, pkgerrors.New(pkgerrors.CodeBoundaryViolation, "commission rate above 30")
	}
	if cfg.RefundRate > maxRefundRate {
		return nil, pkgerrors.New(pkgerrors.CodeBoundaryViolation, "refund rate above 100")
	}
	if cfg.UnitPrice == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeBoundaryViolation, "unit price must be positive")
	}
	if cfg.GlobalCeiling == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeBoundaryViolation, "global ceiling must be positive")
	}
	if cfg.IndividualCapacity == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeBoundaryViolation, "individual capacity must be positive")
	}
	return &Core{
		admin:              cfg.Admin,
		commissionRate:     cfg.CommissionRate,
		refundRate:         cfg.RefundRate,
		unitPrice:          cfg.UnitPrice,
		globalCeiling:      cfg.GlobalCeiling,
		individualCapacity: cfg.IndividualCapacity,
		accounts:           make(map[uuid.UUID]Account),
		listings:           make(map[uuid.UUID]Listing),
		plans:              make(map[uuid.UUID]Plan),
		subscriptions:      make(map[pairKey]Subscription),
		trades:             make(map[pairKey]TradeRecord),
		grants:             make(map[pairKey]SharingGrant),
		standings:          make(map[uuid.UUID]Standing),
		daily:              make(map[int64]DayMetrics),
		activity:           make(map[uuid.UUID]uint64),
		operators:          make(map[uuid.UUID]struct{}),
	}, nil
}

// Admin returns the fixed administrator identity.
func (c *Core) Admin() uuid.UUID {
	return c.admin
}
