package journal

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/biovault-exchange/biovault-backend/pkg/db/models"
	"github.com/biovault-exchange/biovault-backend/pkg/enums"
)

func setupJournalTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS ledger_entries (
  id TEXT PRIMARY KEY,
  operation TEXT NOT NULL,
  caller_id TEXT NOT NULL,
  counterparty_id TEXT,
  units INTEGER NOT NULL DEFAULT 0,
  currency INTEGER NOT NULL DEFAULT 0,
  fee INTEGER NOT NULL DEFAULT 0,
  metadata TEXT,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)

	return db
}

func testEntry(op enums.LedgerOperation, callerID uuid.UUID, createdAt time.Time) *models.LedgerEntry {
	return &models.LedgerEntry{
		ID:        uuid.New(),
		Operation: op,
		CallerID:  callerID,
		CreatedAt: createdAt,
	}
}

func TestJournalRepositoryCreateAndList(t *testing.T) {
	db := setupJournalTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	caller := uuid.New()
	other := uuid.New()
	base := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)

	first := testEntry(enums.LedgerOperationIngest, caller, base)
	first.Units = 500
	require.NoError(t, repo.Create(ctx, first))

	second := testEntry(enums.LedgerOperationPurchase, caller, base.Add(time.Minute))
	second.Units = 100
	second.Currency = 20000
	second.Fee = 1000
	counterparty := uuid.New()
	second.CounterpartyID = &counterparty
	require.NoError(t, repo.Create(ctx, second))

	noise := testEntry(enums.LedgerOperationIngest, other, base.Add(2*time.Minute))
	require.NoError(t, repo.Create(ctx, noise))

	entries, err := repo.ListByCaller(ctx, caller, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, first.ID, entries[0].ID)
	assert.Equal(t, second.ID, entries[1].ID)
	assert.Equal(t, uint64(20000), entries[1].Currency)
	assert.Equal(t, uint64(1000), entries[1].Fee)
	require.NotNil(t, entries[1].CounterpartyID)
	assert.Equal(t, counterparty, *entries[1].CounterpartyID)
}

func TestJournalRepositoryListByOperation(t *testing.T) {
	db := setupJournalTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	base := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		entry := testEntry(enums.LedgerOperationRefund, uuid.New(), base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, repo.Create(ctx, entry))
	}
	require.NoError(t, repo.Create(ctx, testEntry(enums.LedgerOperationIngest, uuid.New(), base)))

	refunds, err := repo.ListByOperation(ctx, enums.LedgerOperationRefund, 2)
	require.NoError(t, err)
	assert.Len(t, refunds, 2)
	for _, entry := range refunds {
		assert.Equal(t, enums.LedgerOperationRefund, entry.Operation)
	}
}

func TestJournalRepositoryWithTxRollback(t *testing.T) {
	db := setupJournalTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	caller := uuid.New()
	err := db.Transaction(func(tx *gorm.DB) error {
		txRepo := repo.WithTx(tx)
		if err := txRepo.Create(ctx, testEntry(enums.LedgerOperationIngest, caller, time.Now().UTC())); err != nil {
			return err
		}
		return gorm.ErrInvalidTransaction
	})
	require.Error(t, err)

	entries, err := repo.ListByCaller(ctx, caller, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
