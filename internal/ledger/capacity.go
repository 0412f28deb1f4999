package ledger

import (
	"github.com/google/uuid"

	pkgerrors "github.com/biovault-exchange/biovault-backend/pkg/errors"
)

// canGrowInventory reports whether the global inventory can absorb qty more
// units without crossing the ceiling. The comparison runs against the
// remaining headroom, never against the wrapped sum, so quantities near the
// uint64 limit are rejected instead of passing via overflow.
func (c *Core) canGrowInventory(qty uint64) bool {
	return qty <= c.globalCeiling && c.inventory <= c.globalCeiling-qty
}

// growInventory adds qty units to the global tracked inventory. Growth past
// the ceiling is a hard failure; nothing is written on rejection.
func (c *Core) growInventory(qty uint64) error {
	if !c.canGrowInventory(qty) {
		return pkgerrors.New(pkgerrors.CodeCapacityExceeded, "global inventory ceiling reached")
	}
	c.inventory += qty
	return nil
}

// shrinkInventory removes qty units from the global tracked inventory.
// Shrinkage below zero clamps silently to zero, so removal-side operations
// never fail on governor state that drifted (e.g. refunds of units minted
// before the governor was introduced).
func (c *Core) shrinkInventory(qty uint64) {
	if qty > c.inventory {
		c.inventory = 0
		return
	}
	c.inventory -= qty
}

// GlobalInventory returns the governor's current tracked unit count.
func (c *Core) GlobalInventory() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inventory
}

// fitsIndividualCapacity reports whether an account can receive qty more
// units without exceeding the per-participant holding cap. Headroom
// comparison, same overflow discipline as canGrowInventory.
func (c *Core) fitsIndividualCapacity(id uuid.UUID, qty uint64) bool {
	return qty <= c.individualCapacity && c.accounts[id].Units <= c.individualCapacity-qty
}
