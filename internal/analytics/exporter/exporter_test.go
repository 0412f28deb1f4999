package exporter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/biovault-exchange/biovault-backend/internal/analytics/types"
	"github.com/biovault-exchange/biovault-backend/internal/history"
	"github.com/biovault-exchange/biovault-backend/pkg/db/models"
)

type fakeRepository struct {
	daily   []models.DailyMetric
	listErr error
}

func (f *fakeRepository) WithTx(tx *gorm.DB) history.Repository { return f }

func (f *fakeRepository) ListTradeRecords(ctx context.Context) ([]models.TradeRecord, error) {
	return nil, nil
}

func (f *fakeRepository) UpsertTradeRecord(ctx context.Context, record *models.TradeRecord) error {
	return nil
}

func (f *fakeRepository) ListVendorStandings(ctx context.Context) ([]models.VendorStanding, error) {
	return nil, nil
}

func (f *fakeRepository) UpsertVendorStanding(ctx context.Context, standing *models.VendorStanding) error {
	return nil
}

func (f *fakeRepository) ListDailyMetrics(ctx context.Context) ([]models.DailyMetric, error) {
	return f.daily, f.listErr
}

func (f *fakeRepository) UpsertDailyMetric(ctx context.Context, metric *models.DailyMetric) error {
	return nil
}

func (f *fakeRepository) FindTradeRecord(ctx context.Context, purchaserID, vendorID uuid.UUID) (*models.TradeRecord, error) {
	return nil, nil
}

type fakeWriter struct {
	rows      []types.DailyMetricRow
	insertErr error
	flushed   int
}

func (f *fakeWriter) InsertDailySnapshot(ctx context.Context, row types.DailyMetricRow) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.rows = append(f.rows, row)
	return nil
}

func (f *fakeWriter) Flush(ctx context.Context) error {
	f.flushed++
	return nil
}

func TestNewValidation(t *testing.T) {
	if _, err := New(nil, &fakeWriter{}, nil, Config{}); err == nil {
		t.Fatal("expected error when repository missing")
	}
	if _, err := New(&fakeRepository{}, nil, nil, Config{}); err == nil {
		t.Fatal("expected error when writer missing")
	}
}

func TestExportOnceSnapshots(t *testing.T) {
	repo := &fakeRepository{daily: []models.DailyMetric{
		{DayBucket: 19676, TransactionCount: 4, UnitVolume: 90},
		{DayBucket: 19677, TransactionCount: 0, UnitVolume: 0},
	}}
	writer := &fakeWriter{}
	now := time.Unix(1700000000, 0)
	exp, err := New(repo, writer, nil, Config{Clock: func() time.Time { return now }})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := exp.ExportOnce(context.Background()); err != nil {
		t.Fatalf("ExportOnce: %v", err)
	}

	if len(writer.rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(writer.rows))
	}
	first := writer.rows[0]
	if first.DayBucket != 19676 || first.UnitVolume != 90 {
		t.Fatalf("unexpected row: %+v", first)
	}
	if first.AvgUnitsPerTransaction != "22.5" {
		t.Fatalf("unexpected average %q", first.AvgUnitsPerTransaction)
	}
	if !first.SnapshotAt.Equal(now.UTC()) {
		t.Fatalf("unexpected snapshot time %v", first.SnapshotAt)
	}
	if writer.rows[1].AvgUnitsPerTransaction != "0" {
		t.Fatalf("empty bucket must average to 0, got %q", writer.rows[1].AvgUnitsPerTransaction)
	}
	if writer.flushed != 1 {
		t.Fatalf("expected one flush, got %d", writer.flushed)
	}
}

func TestExportOnceCollectsRowErrors(t *testing.T) {
	repo := &fakeRepository{daily: []models.DailyMetric{{DayBucket: 1, TransactionCount: 1, UnitVolume: 5}}}
	writer := &fakeWriter{insertErr: errors.New("stream closed")}
	exp, err := New(repo, writer, nil, Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := exp.ExportOnce(context.Background()); err == nil {
		t.Fatal("expected insert error to surface")
	}
	if writer.flushed != 1 {
		t.Fatal("flush must still run after row errors")
	}
}

func TestExportOnceListFailure(t *testing.T) {
	repo := &fakeRepository{listErr: errors.New("db down")}
	exp, err := New(repo, &fakeWriter{}, nil, Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := exp.ExportOnce(context.Background()); err == nil {
		t.Fatal("expected list error to surface")
	}
}
