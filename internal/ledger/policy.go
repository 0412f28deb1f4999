package ledger

import (
	"math"

	"github.com/google/uuid"

	pkgerrors "github.com/biovault-exchange/biovault-backend/pkg/errors"
)

const (
	maxCommissionRate = 30
	maxRefundRate     = 100
)

// FeeOn applies a percentage rate to an amount with truncating integer
// arithmetic; nothing rounds up. The amount splits into hundreds and
// remainder before multiplying, so amount*rate stays inside uint64 for
// amounts near the ceiling.
func FeeOn(amount, rate uint64) uint64 {
	return amount/100*rate + amount%100*rate/100
}

// commission derives the administrator fee from a priced amount.
func (c *Core) commission(amount uint64) uint64 {
	return FeeOn(amount, c.commissionRate)
}

// refundValue prices a returned quantity at the current base unit price,
// not the price the units were acquired at. The bool is false when the
// gross value does not fit in uint64.
func (c *Core) refundValue(qty uint64) (uint64, bool) {
	if qty > math.MaxUint64/c.unitPrice {
		return 0, false
	}
	return FeeOn(qty*c.unitPrice, c.refundRate), true
}

// SetCommissionRate updates the commission percentage. Administrator only;
// the rate is capped at 30.
func (c *Core) SetCommissionRate(caller uuid.UUID, rate uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if caller != c.admin {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "only the administrator sets rates")
	}
	if rate > maxCommissionRate {
		return pkgerrors.New(pkgerrors.CodeInvalidFeeStructure, "commission rate above 30")
	}
	c.commissionRate = rate
	return nil
}

// SetRefundRate updates the refund percentage. Administrator only; the rate
// is capped at 100.
func (c *Core) SetRefundRate(caller uuid.UUID, rate uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if caller != c.admin {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "only the administrator sets rates")
	}
	if rate > maxRefundRate {
		return pkgerrors.New(pkgerrors.CodeInvalidFeeStructure, "refund rate above 100")
	}
	c.refundRate = rate
	return nil
}

// SetUnitPrice updates the base unit price used by refund valuation.
func (c *Core) SetUnitPrice(caller uuid.UUID, price uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if caller != c.admin {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "only the administrator sets rates")
	}
	if price == 0 {
		return pkgerrors.New(pkgerrors.CodeInvalidValuation, "unit price must be positive")
	}
	c.unitPrice = price
	return nil
}

// CommissionRate returns the configured commission percentage.
func (c *Core) CommissionRate() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.commissionRate
}

// RefundRate returns the configured refund percentage.
func (c *Core) RefundRate() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refundRate
}

// UnitPrice returns the current base unit price.
func (c *Core) UnitPrice() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unitPrice
}
