package marketplace

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/biovault-exchange/biovault-backend/internal/journal"
	"github.com/biovault-exchange/biovault-backend/internal/ledger"
	"github.com/biovault-exchange/biovault-backend/pkg/db/models"
	"github.com/biovault-exchange/biovault-backend/pkg/enums"
	pkgerrors "github.com/biovault-exchange/biovault-backend/pkg/errors"
	"github.com/biovault-exchange/biovault-backend/pkg/outbox"
	"github.com/biovault-exchange/biovault-backend/pkg/outbox/payloads"
)

type fakeTxRunner struct {
	calls int
	err   error
}

func (f *fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	return fn(nil)
}

type fakeJournal struct {
	entries []journal.RecordEntryInput
	err     error
}

func (f *fakeJournal) RecordEntry(ctx context.Context, tx *gorm.DB, input journal.RecordEntryInput) (*models.LedgerEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.entries = append(f.entries, input)
	return &models.LedgerEntry{}, nil
}

func (f *fakeJournal) EntriesForCaller(ctx context.Context, callerID uuid.UUID, limit int) ([]models.LedgerEntry, error) {
	return nil, nil
}

func (f *fakeJournal) EntriesForOperation(ctx context.Context, operation enums.LedgerOperation, limit int) ([]models.LedgerEntry, error) {
	return nil, nil
}

type fakeEmitter struct {
	events []outbox.DomainEvent
	err    error
}

func (f *fakeEmitter) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

type fakeHistory struct {
	saved []ledger.TradeRecord
	err   error
}

func (f *fakeHistory) Hydrate(ctx context.Context, core *ledger.Core) error { return nil }

func (f *fakeHistory) SaveTradeRecord(ctx context.Context, tx *gorm.DB, purchaserID, vendorID uuid.UUID, record ledger.TradeRecord) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, record)
	return nil
}

func (f *fakeHistory) SaveVendorStanding(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID, standing ledger.Standing) error {
	return nil
}

func (f *fakeHistory) SaveDailyMetric(ctx context.Context, tx *gorm.DB, dayBucket int64, metrics ledger.DayMetrics) error {
	return nil
}

type harness struct {
	svc     Service
	core    *ledger.Core
	tx      *fakeTxRunner
	journal *fakeJournal
	emitter *fakeEmitter
	history *fakeHistory
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	core, err := ledger.New(ledger.Config{
		Admin:              uuid.New(),
		CommissionRate:     5,
		RefundRate:         50,
		UnitPrice:          100,
		GlobalCeiling:      1_000_000,
		IndividualCapacity: 5000,
	})
	if err != nil {
		t.Fatalf("ledger.New: %v", err)
	}

	tx := &fakeTxRunner{}
	jrnl := &fakeJournal{}
	emitter := &fakeEmitter{}
	hist := &fakeHistory{}

	svc, err := NewService(Deps{
		Core:    core,
		Tx:      tx,
		Journal: jrnl,
		Events:  emitter,
		Trades:  hist,
		Clock:   func() time.Time { return time.Unix(1700000000, 0) },
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &harness{svc: svc, core: core, tx: tx, journal: jrnl, emitter: emitter, history: hist}
}

func TestNewServiceRequiresDeps(t *testing.T) {
	if _, err := NewService(Deps{}); err == nil {
		t.Fatal("expected error for missing deps")
	}
}

func TestPurchaseRecordsJournalTradeAndEvent(t *testing.T) {
	h := newHarness(t)
	seller := uuid.New()
	buyer := uuid.New()
	h.core.SeedAccount(seller, ledger.Account{Units: 100})
	h.core.SeedAccount(buyer, ledger.Account{Currency: 21000})
	if err := h.svc.PostListing(context.Background(), seller, 100, 200); err != nil {
		t.Fatalf("post listing: %v", err)
	}

	if err := h.svc.Purchase(context.Background(), buyer, seller, 100); err != nil {
		t.Fatalf("purchase: %v", err)
	}

	if len(h.journal.entries) != 2 {
		t.Fatalf("expected 2 journal entries, got %d", len(h.journal.entries))
	}
	entry := h.journal.entries[1]
	if entry.Operation != enums.LedgerOperationPurchase || entry.Units != 100 || entry.Currency != 20000 || entry.Fee != 1000 {
		t.Fatalf("unexpected journal entry: %+v", entry)
	}

	if len(h.history.saved) != 1 || h.history.saved[0].Quantity != 100 || h.history.saved[0].AgreedPrice != 200 {
		t.Fatalf("trade record not saved: %+v", h.history.saved)
	}
	if _, ok := h.core.TradeFor(buyer, seller); !ok {
		t.Fatal("trade record not seeded into core")
	}

	last := h.emitter.events[len(h.emitter.events)-1]
	if last.EventType != enums.EventTradeSettled {
		t.Fatalf("unexpected event type %s", last.EventType)
	}
	payload, ok := last.Data.(payloads.TradeSettledEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", last.Data)
	}
	if payload.Cost != 20000 || payload.Fee != 1000 {
		t.Fatalf("unexpected payload economics: %+v", payload)
	}
}

func TestPurchaseRejectionSkipsPersistence(t *testing.T) {
	h := newHarness(t)
	seller := uuid.New()
	buyer := uuid.New()
	h.core.SeedAccount(seller, ledger.Account{Units: 100})
	if err := h.svc.PostListing(context.Background(), seller, 100, 200); err != nil {
		t.Fatalf("post listing: %v", err)
	}
	txCallsAfterListing := h.tx.calls

	err := h.svc.Purchase(context.Background(), buyer, seller, 100)
	if !pkgerrors.HasCode(err, pkgerrors.CodeInsufficientResources) {
		t.Fatalf("expected insufficient resources, got %v", err)
	}
	if h.tx.calls != txCallsAfterListing {
		t.Fatal("rejected operation must not open a transaction")
	}
	if len(h.history.saved) != 0 {
		t.Fatal("rejected operation must not save a trade record")
	}
}

func TestPersistenceFailureSurfacesDependencyError(t *testing.T) {
	h := newHarness(t)
	owner := uuid.New()
	h.journal.err = errors.New("db down")

	err := h.svc.Ingest(context.Background(), owner, 40)
	if !pkgerrors.HasCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	// The core keeps its committed state; durable recording is retried by
	// the operator, not rolled back.
	if units, _ := h.core.Balance(owner); units != 40 {
		t.Fatalf("core state lost: %d units", units)
	}
}

func TestIngestEmitsEvent(t *testing.T) {
	h := newHarness(t)
	owner := uuid.New()

	if err := h.svc.Ingest(context.Background(), owner, 40); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(h.emitter.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(h.emitter.events))
	}
	if h.emitter.events[0].EventType != enums.EventUnitsIngested {
		t.Fatalf("unexpected event type %s", h.emitter.events[0].EventType)
	}
}

func TestRefundJournalsCurrentPriceValue(t *testing.T) {
	h := newHarness(t)
	owner := uuid.New()
	h.core.SeedAccount(h.core.Admin(), ledger.Account{Currency: 100000})
	if err := h.svc.Ingest(context.Background(), owner, 40); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	if err := h.svc.Refund(context.Background(), owner, 10); err != nil {
		t.Fatalf("refund: %v", err)
	}
	entry := h.journal.entries[len(h.journal.entries)-1]
	if entry.Operation != enums.LedgerOperationRefund || entry.Currency != 500 {
		t.Fatalf("unexpected refund entry: %+v", entry)
	}
}

func TestDirectTransferJournalsCounterparty(t *testing.T) {
	h := newHarness(t)
	sender := uuid.New()
	receiver := uuid.New()
	h.core.SeedAccount(sender, ledger.Account{Units: 80})

	if err := h.svc.DirectTransfer(context.Background(), sender, receiver, 30); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	entry := h.journal.entries[len(h.journal.entries)-1]
	if entry.CounterpartyID == nil || *entry.CounterpartyID != receiver {
		t.Fatalf("counterparty missing: %+v", entry)
	}
}
