package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/biovault-exchange/biovault-backend/pkg/enums"
)

// LedgerEntry records an immutable journal row for a committed ledger
// operation. The in-memory core remains authoritative; this table is the
// audit trail.
type LedgerEntry struct {
	ID             uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Operation      enums.LedgerOperation `gorm:"column:operation;type:ledger_operation_enum;not null"`
	CallerID       uuid.UUID             `gorm:"column:caller_id;type:uuid;not null"`
	CounterpartyID *uuid.UUID            `gorm:"column:counterparty_id;type:uuid"`
	Units          uint64                `gorm:"column:units;not null;default:0"`
	Currency       uint64                `gorm:"column:currency;not null;default:0"`
	Fee            uint64                `gorm:"column:fee;not null;default:0"`
	Metadata       json.RawMessage       `gorm:"column:metadata;type:jsonb"`
	CreatedAt      time.Time             `gorm:"column:created_at;autoCreateTime"`
}
