package ledger

import (
	"math"

	"github.com/google/uuid"

	pkgerrors "github.com/biovault-exchange/biovault-backend/pkg/errors"
)

// EstablishPlan publishes a provider's recurring-access plan, replacing any
// prior plan for the same provider. Exactly one cycle's quantity is reserved
// against the global float at publication; later cycles draw on the
// provider's balance at subscription time.
func (c *Core) EstablishPlan(provider uuid.UUID, cost, qtyPerCycle, maxCycles uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cost == 0 {
		return pkgerrors.New(pkgerrors.CodeInvalidValuation, "plan cost must be positive")
	}
	if qtyPerCycle == 0 {
		return pkgerrors.New(pkgerrors.CodeInvalidQuantity, "plan quantity must be positive")
	}
	if maxCycles == 0 {
		return pkgerrors.New(pkgerrors.CodeInvalidQuantity, "plan cycle count must be positive")
	}
	if !c.hasUnits(provider, qtyPerCycle) {
		return pkgerrors.New(pkgerrors.CodeInsufficientResources, "unit balance below one cycle quantity")
	}
	if err := c.growInventory(qtyPerCycle); err != nil {
		return err
	}
	c.plans[provider] = Plan{
		PeriodicCost:     cost,
		PeriodicQuantity: qtyPerCycle,
		MaxCycles:        maxCycles,
		Active:           true,
	}
	return nil
}

// DeactivatePlan closes a provider's plan to new subscribers and releases
// its single-cycle reservation.
func (c *Core) DeactivatePlan(provider uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	plan, ok := c.plans[provider]
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "no plan for provider")
	}
	if !plan.Active {
		return pkgerrors.New(pkgerrors.CodeTransferFailure, "plan already inactive")
	}

	c.shrinkInventory(plan.PeriodicQuantity)
	plan.Active = false
	c.plans[provider] = plan
	return nil
}

// Subscribe buys a block of cycles up front. Units for every purchased cycle
// move from provider to subscriber immediately; the cycle payment splits
// into the provider's share and the administrator commission. A pair may
// subscribe at most once.
func (c *Core) Subscribe(subscriber, provider uuid.UUID, cycles uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if subscriber == provider {
		return pkgerrors.New(pkgerrors.CodeIdentityConflict, "subscriber and provider must differ")
	}
	plan, ok := c.plans[provider]
	if !ok || !plan.Active {
		return pkgerrors.New(pkgerrors.CodeTransferFailure, "no active plan for provider")
	}
	if cycles == 0 {
		return pkgerrors.New(pkgerrors.CodeInvalidQuantity, "cycle count must be positive")
	}
	if cycles > plan.MaxCycles {
		return pkgerrors.New(pkgerrors.CodeBoundaryViolation, "cycle count above plan maximum")
	}
	key := pairKey{first: subscriber, second: provider}
	if _, exists := c.subscriptions[key]; exists {
		return pkgerrors.New(pkgerrors.CodeDuplicateSubscription, "pair already subscribed")
	}
	if cycles > math.MaxUint64/plan.PeriodicQuantity {
		return pkgerrors.New(pkgerrors.CodeInvalidQuantity, "purchased cycle volume out of range")
	}
	units := cycles * plan.PeriodicQuantity
	if cycles > math.MaxUint64/plan.PeriodicCost {
		return pkgerrors.New(pkgerrors.CodeInvalidValuation, "cycle payment out of range")
	}
	payment := cycles * plan.PeriodicCost
	fee := c.commission(payment)
	if !c.hasCurrency(subscriber, payment) {
		return pkgerrors.New(pkgerrors.CodeInsufficientResources, "currency below cycle payment")
	}
	if !c.hasUnits(provider, units) {
		return pkgerrors.New(pkgerrors.CodeInsufficientResources, "provider unit balance below purchased cycles")
	}

	if err := c.debitCurrency(subscriber, payment); err != nil {
		return err
	}
	if err := c.debitUnits(provider, units); err != nil {
		return err
	}
	c.creditUnits(subscriber, units)
	c.creditCurrency(provider, payment-fee)
	c.creditCurrency(c.admin, fee)
	c.subscriptions[key] = Subscription{
		PurchasedCycles: cycles,
		RemainingCycles: cycles,
		CycleAllocation: plan.PeriodicQuantity,
	}
	return nil
}

// PlanFor reports the plan published by a provider.
func (c *Core) PlanFor(provider uuid.UUID) (Plan, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	plan, ok := c.plans[provider]
	return plan, ok
}

// SubscriptionFor reports the relationship between a subscriber and a
// provider, if one was ever created.
func (c *Core) SubscriptionFor(subscriber, provider uuid.UUID) (Subscription, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sub, ok := c.subscriptions[pairKey{first: subscriber, second: provider}]
	return sub, ok
}
