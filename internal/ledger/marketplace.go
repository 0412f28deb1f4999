package ledger

import (
	"math"

	"github.com/google/uuid"

	pkgerrors "github.com/biovault-exchange/biovault-backend/pkg/errors"
)

// PostListing places or extends a standing sell offer. Quantities merge
// additively into an existing listing; the price always takes the new value.
// The seller's balance must cover the combined listed quantity at post time;
// nothing is debited here, settlement debits at purchase.
func (c *Core) PostListing(seller uuid.UUID, qty, price uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if qty == 0 {
		return pkgerrors.New(pkgerrors.CodeInvalidQuantity, "listing quantity must be positive")
	}
	if price == 0 {
		return pkgerrors.New(pkgerrors.CodeInvalidValuation, "listing price must be positive")
	}
	existing := c.listings[seller]
	combined := existing.Quantity + qty
	if combined < qty {
		return pkgerrors.New(pkgerrors.CodeInvalidQuantity, "combined listed quantity out of range")
	}
	if !c.hasUnits(seller, combined) {
		return pkgerrors.New(pkgerrors.CodeInsufficientResources, "unit balance below combined listed quantity")
	}

	if err := c.growInventory(qty); err != nil {
		return err
	}
	c.listings[seller] = Listing{Quantity: combined, UnitPrice: price}
	return nil
}

// WithdrawListing takes units off the order book. The listed quantity is a
// reservation tracked apart from the balance, so nothing is credited back;
// the per-participant cap is still checked as a guard on the combined
// holding the withdrawal implies.
func (c *Core) WithdrawListing(seller uuid.UUID, qty uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if qty == 0 {
		return pkgerrors.New(pkgerrors.CodeInvalidQuantity, "withdrawal quantity must be positive")
	}
	listing, ok := c.listings[seller]
	if !ok || listing.Quantity < qty {
		return pkgerrors.New(pkgerrors.CodeInsufficientResources, "listed quantity below withdrawal")
	}
	if !c.fitsIndividualCapacity(seller, qty) {
		return pkgerrors.New(pkgerrors.CodeCapacityExceeded, "individual capacity reached")
	}

	c.shrinkInventory(qty)
	listing.Quantity -= qty
	c.listings[seller] = listing
	return nil
}

// Purchase settles a buy against a vendor's listing. The buyer pays
// cost plus commission; the vendor receives the cost; the administrator
// receives the fee. Units move between accounts, so the global inventory
// counter is untouched.
func (c *Core) Purchase(buyer, vendor uuid.UUID, qty uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if buyer == vendor {
		return pkgerrors.New(pkgerrors.CodeIdentityConflict, "buyer and vendor must differ")
	}
	if qty == 0 {
		return pkgerrors.New(pkgerrors.CodeInvalidQuantity, "purchase quantity must be positive")
	}
	listing, ok := c.listings[vendor]
	if !ok || listing.Quantity < qty {
		return pkgerrors.New(pkgerrors.CodeInsufficientResources, "listed quantity below purchase")
	}
	if qty > math.MaxUint64/listing.UnitPrice {
		return pkgerrors.New(pkgerrors.CodeInvalidValuation, "purchase value out of range")
	}
	cost := qty * listing.UnitPrice
	fee := c.commission(cost)
	total := cost + fee
	if total < cost {
		return pkgerrors.New(pkgerrors.CodeInvalidValuation, "purchase value out of range")
	}
	if !c.hasUnits(vendor, qty) {
		return pkgerrors.New(pkgerrors.CodeInsufficientResources, "vendor unit balance below purchase")
	}
	if !c.hasCurrency(buyer, total) {
		return pkgerrors.New(pkgerrors.CodeInsufficientResources, "buyer currency below cost plus fee")
	}

	if err := c.debitUnits(vendor, qty); err != nil {
		return err
	}
	if err := c.debitCurrency(buyer, total); err != nil {
		return err
	}
	c.creditUnits(buyer, qty)
	c.creditCurrency(vendor, cost)
	c.creditCurrency(c.admin, fee)
	listing.Quantity -= qty
	c.listings[vendor] = listing
	return nil
}

// Ingest brings newly sourced units into a participant's holding, growing
// the system-wide float.
func (c *Core) Ingest(owner uuid.UUID, qty uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if qty == 0 {
		return pkgerrors.New(pkgerrors.CodeInvalidQuantity, "ingestion quantity must be positive")
	}
	if !c.fitsIndividualCapacity(owner, qty) {
		return pkgerrors.New(pkgerrors.CodeCapacityExceeded, "individual capacity reached")
	}
	if err := c.growInventory(qty); err != nil {
		return err
	}
	c.creditUnits(owner, qty)
	return nil
}

// Refund returns units to the system against a payout priced at the current
// base unit price. The payout comes out of the administrator reserve; a
// reserve shortfall fails the whole operation.
func (c *Core) Refund(owner uuid.UUID, qty uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if qty == 0 {
		return pkgerrors.New(pkgerrors.CodeInvalidQuantity, "refund quantity must be positive")
	}
	if !c.hasUnits(owner, qty) {
		return pkgerrors.New(pkgerrors.CodeInsufficientResources, "unit balance below refund")
	}
	value, ok := c.refundValue(qty)
	if !ok {
		return pkgerrors.New(pkgerrors.CodeInvalidValuation, "refund value out of range")
	}
	if !c.hasCurrency(c.admin, value) {
		return pkgerrors.New(pkgerrors.CodeTransferFailure, "administrator reserve below refund value")
	}

	if err := c.debitUnits(owner, qty); err != nil {
		return err
	}
	if err := c.debitCurrency(c.admin, value); err != nil {
		return err
	}
	c.creditCurrency(owner, value)
	c.shrinkInventory(qty)
	return nil
}

// DirectTransfer moves units between two participants without touching the
// order book or the global float.
func (c *Core) DirectTransfer(sender, receiver uuid.UUID, qty uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if sender == receiver {
		return pkgerrors.New(pkgerrors.CodeIdentityConflict, "sender and receiver must differ")
	}
	if qty == 0 {
		return pkgerrors.New(pkgerrors.CodeInvalidQuantity, "transfer quantity must be positive")
	}
	if !c.hasUnits(sender, qty) {
		return pkgerrors.New(pkgerrors.CodeInsufficientResources, "unit balance below transfer")
	}
	if !c.fitsIndividualCapacity(receiver, qty) {
		return pkgerrors.New(pkgerrors.CodeCapacityExceeded, "individual capacity reached")
	}

	if err := c.debitUnits(sender, qty); err != nil {
		return err
	}
	c.creditUnits(receiver, qty)
	return nil
}

// ListingFor reports the current listing for a seller. A zero-quantity
// listing reads the same as no listing ever posted.
func (c *Core) ListingFor(seller uuid.UUID) Listing {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listings[seller]
}
