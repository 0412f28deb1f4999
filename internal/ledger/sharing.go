package ledger

import (
	"math"

	"github.com/google/uuid"

	pkgerrors "github.com/biovault-exchange/biovault-backend/pkg/errors"
)

// GrantAccess validates a time-bounded sharing grant of a unit volume to a
// service provider and returns what the grant would be. The owner's balance
// is checked at grant time only; no reservation or record is written on
// this surface, persistence is the hosting environment's concern.
func (c *Core) GrantAccess(owner, provider uuid.UUID, volume uint64, durationDays uint64, at int64) (SharingGrant, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if volume == 0 {
		return SharingGrant{}, pkgerrors.New(pkgerrors.CodeInvalidQuantity, "grant volume must be positive")
	}
	if durationDays == 0 || durationDays > math.MaxInt64/secondsPerDay {
		return SharingGrant{}, pkgerrors.New(pkgerrors.CodeInvalidQuantity, "grant duration out of range")
	}
	if !c.hasUnits(owner, volume) {
		return SharingGrant{}, pkgerrors.New(pkgerrors.CodeInsufficientResources, "unit balance below grant volume")
	}
	if existing, ok := c.grants[pairKey{first: owner, second: provider}]; ok && existing.Revoked {
		return SharingGrant{}, pkgerrors.New(pkgerrors.CodeTransferFailure, "prior grant for pair was revoked")
	}

	return SharingGrant{
		Volume:    volume,
		ExpiresAt: at + int64(durationDays)*secondsPerDay,
		Revoked:   false,
	}, nil
}

// GrantFor reports any seeded grant for an owner/provider pair.
func (c *Core) GrantFor(owner, provider uuid.UUID) (SharingGrant, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	grant, ok := c.grants[pairKey{first: owner, second: provider}]
	return grant, ok
}

// SeedSharingGrant installs a grant record supplied by the hosting
// environment, typically to mark a pair as revoked.
func (c *Core) SeedSharingGrant(owner, provider uuid.UUID, grant SharingGrant) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.grants[pairKey{first: owner, second: provider}] = grant
}
