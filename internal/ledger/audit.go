package ledger

import (
	"github.com/google/uuid"

	pkgerrors "github.com/biovault-exchange/biovault-backend/pkg/errors"
)

// QualityAudit penalizes a vendor for a historical trade. The refundable
// amount is bounded by the quantity the trade record shows; the debit is
// one-sided, no credit is issued to the purchaser here. The vendor's
// incident counters accumulate alongside.
func (c *Core) QualityAudit(supervisor, vendor, purchaser uuid.UUID, refundAmount uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if supervisor != c.admin {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "only the administrator audits")
	}
	record, ok := c.trades[pairKey{first: purchaser, second: vendor}]
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "no trade record for pair")
	}
	if refundAmount == 0 {
		return pkgerrors.New(pkgerrors.CodeInvalidQuantity, "refund amount must be positive")
	}
	if refundAmount > record.Quantity {
		return pkgerrors.New(pkgerrors.CodeBoundaryViolation, "refund amount above traded quantity")
	}
	if !c.hasCurrency(vendor, refundAmount) {
		return pkgerrors.New(pkgerrors.CodeInsufficientResources, "vendor currency below refund amount")
	}

	if err := c.debitCurrency(vendor, refundAmount); err != nil {
		return err
	}
	standing := c.standings[vendor]
	standing.IncidentCount++
	standing.IncidentUnits += refundAmount
	c.standings[vendor] = standing
	return nil
}

// AddReputation awards reputation points to a vendor. Points only ever
// accumulate; there is no decay or revocation.
func (c *Core) AddReputation(caller, vendor uuid.UUID, points uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if caller != c.admin {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "only the administrator awards reputation")
	}
	if points == 0 {
		return pkgerrors.New(pkgerrors.CodeInvalidQuantity, "points must be positive")
	}

	standing := c.standings[vendor]
	standing.ReputationPoints += points
	c.standings[vendor] = standing
	return nil
}

// CertifyOperator marks an identity as allowed to record metrics.
func (c *Core) CertifyOperator(caller, operator uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if caller != c.admin {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "only the administrator certifies operators")
	}
	c.operators[operator] = struct{}{}
	return nil
}

// RevokeOperator withdraws an operator certification. Revoking an identity
// that was never certified is a no-op.
func (c *Core) RevokeOperator(caller, operator uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if caller != c.admin {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "only the administrator revokes operators")
	}
	delete(c.operators, operator)
	return nil
}

// IsCertifiedOperator reports whether an identity may record metrics.
func (c *Core) IsCertifiedOperator(id uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.operators[id]
	return ok
}

// VendorStanding reports a vendor's accumulated reputation and incident
// counters.
func (c *Core) VendorStanding(vendor uuid.UUID) Standing {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.standings[vendor]
}

// TradeFor reports the settlement record for a purchaser/vendor pair.
func (c *Core) TradeFor(purchaser, vendor uuid.UUID) (TradeRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	record, ok := c.trades[pairKey{first: purchaser, second: vendor}]
	return record, ok
}

// SeedTradeRecord installs a settlement record supplied by the hosting
// environment. Quality audits read these; no ledger operation writes them.
func (c *Core) SeedTradeRecord(purchaser, vendor uuid.UUID, record TradeRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trades[pairKey{first: purchaser, second: vendor}] = record
}

// SeedVendorStanding installs a vendor standing supplied by the hosting
// environment, used when rehydrating state from durable storage.
func (c *Core) SeedVendorStanding(vendor uuid.UUID, standing Standing) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.standings[vendor] = standing
}
