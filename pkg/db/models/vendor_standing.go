package models

import (
	"time"

	"github.com/google/uuid"
)

// VendorStanding accumulates per-vendor reputation and quality-incident
// counters. Counters only ever grow.
type VendorStanding struct {
	VendorID         uuid.UUID `gorm:"column:vendor_id;type:uuid;primaryKey"`
	ReputationPoints uint64    `gorm:"column:reputation_points;not null;default:0"`
	IncidentCount    uint64    `gorm:"column:incident_count;not null;default:0"`
	IncidentUnits    uint64    `gorm:"column:incident_units;not null;default:0"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
