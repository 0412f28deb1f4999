package ledger

import (
	"github.com/google/uuid"

	pkgerrors "github.com/biovault-exchange/biovault-backend/pkg/errors"
)

// Balance returns the unit and currency balances for a participant. Absent
// accounts read as zero; they materialize lazily on first credit.
func (c *Core) Balance(id uuid.UUID) (units, currency uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	acct := c.accounts[id]
	return acct.Units, acct.Currency
}

// SeedAccount installs an account state supplied by the hosting
// environment. Currency enters the system this way; no ledger operation
// mints it.
func (c *Core) SeedAccount(id uuid.UUID, acct Account) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accounts[id] = acct
}

// The four primitives below are the only code that writes account fields.
// Every public operation composes them under the core mutex so multi-account
// movements stay balanced.

func (c *Core) creditUnits(id uuid.UUID, qty uint64) {
	acct := c.accounts[id]
	acct.Units += qty
	c.accounts[id] = acct
}

func (c *Core) debitUnits(id uuid.UUID, qty uint64) error {
	acct := c.accounts[id]
	if acct.Units < qty {
		return pkgerrors.New(pkgerrors.CodeInsufficientResources, "unit balance too low")
	}
	acct.Units -= qty
	c.accounts[id] = acct
	return nil
}

func (c *Core) creditCurrency(id uuid.UUID, amount uint64) {
	acct := c.accounts[id]
	acct.Currency += amount
	c.accounts[id] = acct
}

func (c *Core) debitCurrency(id uuid.UUID, amount uint64) error {
	acct := c.accounts[id]
	if acct.Currency < amount {
		return pkgerrors.New(pkgerrors.CodeInsufficientResources, "currency balance too low")
	}
	acct.Currency -= amount
	c.accounts[id] = acct
	return nil
}

// hasUnits and hasCurrency are the read-only precondition forms of the debit
// primitives, used to validate before the first write of an operation.

func (c *Core) hasUnits(id uuid.UUID, qty uint64) bool {
	return c.accounts[id].Units >= qty
}

func (c *Core) hasCurrency(id uuid.UUID, amount uint64) bool {
	return c.accounts[id].Currency >= amount
}
