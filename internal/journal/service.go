package journal

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/biovault-exchange/biovault-backend/pkg/db/models"
	"github.com/biovault-exchange/biovault-backend/pkg/enums"
)

// Service defines operations that record journal entries for committed
// ledger operations.
type Service interface {
	RecordEntry(ctx context.Context, tx *gorm.DB, input RecordEntryInput) (*models.LedgerEntry, error)
	EntriesForCaller(ctx context.Context, callerID uuid.UUID, limit int) ([]models.LedgerEntry, error)
	EntriesForOperation(ctx context.Context, operation enums.LedgerOperation, limit int) ([]models.LedgerEntry, error)
}

type service struct {
	repo Repository
}

// RecordEntryInput captures the immutable data a journal entry requires.
type RecordEntryInput struct {
	Operation      enums.LedgerOperation `json:"operation"`
	CallerID       uuid.UUID             `json:"caller_id"`
	CounterpartyID *uuid.UUID            `json:"counterparty_id,omitempty"`
	Units          uint64                `json:"units"`
	Currency       uint64                `json:"currency"`
	Fee            uint64                `json:"fee"`
	Metadata       json.RawMessage       `json:"metadata"`
}

// NewService wires a journal service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("journal repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) RecordEntry(ctx context.Context, tx *gorm.DB, input RecordEntryInput) (*models.LedgerEntry, error) {
	if input.CallerID == uuid.Nil {
		return nil, fmt.Errorf("caller id is required")
	}
	if !input.Operation.IsValid() {
		return nil, fmt.Errorf("invalid ledger operation %q", input.Operation)
	}
	if input.CounterpartyID != nil && *input.CounterpartyID == uuid.Nil {
		return nil, fmt.Errorf("counterparty id must be set or omitted")
	}

	entry := &models.LedgerEntry{
		Operation:      input.Operation,
		CallerID:       input.CallerID,
		CounterpartyID: input.CounterpartyID,
		Units:          input.Units,
		Currency:       input.Currency,
		Fee:            input.Fee,
		Metadata:       input.Metadata,
	}

	repo := s.repo
	if tx != nil {
		repo = s.repo.WithTx(tx)
	}
	if err := repo.Create(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) EntriesForCaller(ctx context.Context, callerID uuid.UUID, limit int) ([]models.LedgerEntry, error) {
	if callerID == uuid.Nil {
		return nil, fmt.Errorf("caller id is required")
	}
	return s.repo.ListByCaller(ctx, callerID, limit)
}

func (s *service) EntriesForOperation(ctx context.Context, operation enums.LedgerOperation, limit int) ([]models.LedgerEntry, error) {
	if !operation.IsValid() {
		return nil, fmt.Errorf("invalid ledger operation %q", operation)
	}
	return s.repo.ListByOperation(ctx, operation, limit)
}
