package ledger

import (
	"github.com/google/uuid"

	pkgerrors "github.com/biovault-exchange/biovault-backend/pkg/errors"
)

// RecordMetrics folds one settled transaction into the day-bucketed and
// global aggregates. The per-participant activity counters exist but are
// read-only on this surface; nothing here increments them.
func (c *Core) RecordMetrics(caller, vendor, purchaser uuid.UUID, volume, value uint64, at int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if caller != c.admin {
		if _, ok := c.operators[caller]; !ok {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "caller is neither administrator nor certified operator")
		}
	}
	if volume == 0 {
		return pkgerrors.New(pkgerrors.CodeInvalidQuantity, "volume must be positive")
	}
	if value == 0 {
		return pkgerrors.New(pkgerrors.CodeInvalidValuation, "value must be positive")
	}

	day := at / secondsPerDay
	bucket := c.daily[day]
	bucket.TransactionCount++
	bucket.UnitVolume += volume
	c.daily[day] = bucket

	c.globalTxCount++
	c.globalUnitVolume += volume
	return nil
}

// DailyMetrics reports the aggregates for one day bucket.
func (c *Core) DailyMetrics(day int64) DayMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.daily[day]
}

// GlobalAnalytics reports the cumulative transaction count and unit volume.
func (c *Core) GlobalAnalytics() (txCount, unitVolume uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.globalTxCount, c.globalUnitVolume
}

// ParticipantActivity reports a participant's transaction counter.
func (c *Core) ParticipantActivity(id uuid.UUID) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activity[id]
}
