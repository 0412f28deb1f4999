package history

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/biovault-exchange/biovault-backend/internal/ledger"
	"github.com/biovault-exchange/biovault-backend/pkg/db/models"
)

type fakeRepository struct {
	trades    []models.TradeRecord
	standings []models.VendorStanding
	metrics   []models.DailyMetric

	upsertTradeFn    func(ctx context.Context, record *models.TradeRecord) error
	upsertStandingFn func(ctx context.Context, standing *models.VendorStanding) error
	upsertMetricFn   func(ctx context.Context, metric *models.DailyMetric) error
	listErr          error
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) ListTradeRecords(ctx context.Context) ([]models.TradeRecord, error) {
	return f.trades, f.listErr
}

func (f *fakeRepository) UpsertTradeRecord(ctx context.Context, record *models.TradeRecord) error {
	if f.upsertTradeFn != nil {
		return f.upsertTradeFn(ctx, record)
	}
	return nil
}

func (f *fakeRepository) ListVendorStandings(ctx context.Context) ([]models.VendorStanding, error) {
	return f.standings, nil
}

func (f *fakeRepository) UpsertVendorStanding(ctx context.Context, standing *models.VendorStanding) error {
	if f.upsertStandingFn != nil {
		return f.upsertStandingFn(ctx, standing)
	}
	return nil
}

func (f *fakeRepository) ListDailyMetrics(ctx context.Context) ([]models.DailyMetric, error) {
	return f.metrics, nil
}

func (f *fakeRepository) UpsertDailyMetric(ctx context.Context, metric *models.DailyMetric) error {
	if f.upsertMetricFn != nil {
		return f.upsertMetricFn(ctx, metric)
	}
	return nil
}

func (f *fakeRepository) FindTradeRecord(ctx context.Context, purchaserID, vendorID uuid.UUID) (*models.TradeRecord, error) {
	return nil, gorm.ErrRecordNotFound
}

func newTestCore(t *testing.T) *ledger.Core {
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
	return core
}

func TestService_HydrateSeedsCore(t *testing.T) {
	purchaser := uuid.New()
	vendor := uuid.New()
	repo := &fakeRepository{
		trades: []models.TradeRecord{
			{PurchaserID: purchaser, VendorID: vendor, Quantity: 80, AgreedPrice: 10, TradedAt: 1700000000},
		},
		standings: []models.VendorStanding{
			{VendorID: vendor, ReputationPoints: 12, IncidentCount: 2, IncidentUnits: 30},
		},
	}
	svc, err := NewService(repo, nil)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	core := newTestCore(t)

	if err := svc.Hydrate(context.Background(), core); err != nil {
		t.Fatalf("Hydrate error: %v", err)
	}

	record, ok := core.TradeFor(purchaser, vendor)
	if !ok || record.Quantity != 80 || record.AgreedPrice != 10 {
		t.Fatalf("trade not hydrated: %+v ok=%v", record, ok)
	}
	standing := core.VendorStanding(vendor)
	if standing.ReputationPoints != 12 || standing.IncidentCount != 2 || standing.IncidentUnits != 30 {
		t.Fatalf("standing not hydrated: %+v", standing)
	}
}

func TestService_HydrateListError(t *testing.T) {
	repo := &fakeRepository{listErr: errors.New("db down")}
	svc, err := NewService(repo, nil)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	if err := svc.Hydrate(context.Background(), newTestCore(t)); err == nil {
		t.Fatal("expected hydrate error")
	}
}

func TestService_SaveTradeRecordValidation(t *testing.T) {
	svc, err := NewService(&fakeRepository{}, nil)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	err = svc.SaveTradeRecord(context.Background(), nil, uuid.Nil, uuid.New(), ledger.TradeRecord{Quantity: 1})
	if err == nil {
		t.Fatal("expected error for nil purchaser")
	}
}

func TestService_SaveVendorStandingPassesFields(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo, nil)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	vendor := uuid.New()
	var saved *models.VendorStanding
	repo.upsertStandingFn = func(ctx context.Context, standing *models.VendorStanding) error {
		saved = standing
		return nil
	}

	err = svc.SaveVendorStanding(context.Background(), nil, vendor, ledger.Standing{
		ReputationPoints: 3,
		IncidentCount:    1,
		IncidentUnits:    60,
	})
	if err != nil {
		t.Fatalf("SaveVendorStanding error: %v", err)
	}
	if saved == nil || saved.VendorID != vendor || saved.IncidentUnits != 60 {
		t.Fatalf("unexpected standing row: %+v", saved)
	}
}
