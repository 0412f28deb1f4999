package history

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/biovault-exchange/biovault-backend/internal/ledger"
	"github.com/biovault-exchange/biovault-backend/pkg/db/models"
	"github.com/biovault-exchange/biovault-backend/pkg/logger"
)

// Service loads durable records into the in-memory ledger at boot and
// writes them back as operations commit.
type Service interface {
	Hydrate(ctx context.Context, core *ledger.Core) error
	SaveTradeRecord(ctx context.Context, tx *gorm.DB, purchaserID, vendorID uuid.UUID, record ledger.TradeRecord) error
	SaveVendorStanding(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID, standing ledger.Standing) error
	SaveDailyMetric(ctx context.Context, tx *gorm.DB, dayBucket int64, metrics ledger.DayMetrics) error
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService wires a history service with the provided repository.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("history repository required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) Hydrate(ctx context.Context, core *ledger.Core) error {
	if core == nil {
		return fmt.Errorf("ledger core required")
	}

	trades, err := s.repo.ListTradeRecords(ctx)
	if err != nil {
		return fmt.Errorf("loading trade records: %w", err)
	}
	for _, row := range trades {
		core.SeedTradeRecord(row.PurchaserID, row.VendorID, ledger.TradeRecord{
			Quantity:    row.Quantity,
			AgreedPrice: row.AgreedPrice,
			TradedAt:    row.TradedAt,
		})
	}

	standings, err := s.repo.ListVendorStandings(ctx)
	if err != nil {
		return fmt.Errorf("loading vendor standings: %w", err)
	}
	for _, row := range standings {
		core.SeedVendorStanding(row.VendorID, ledger.Standing{
			ReputationPoints: row.ReputationPoints,
			IncidentCount:    row.IncidentCount,
			IncidentUnits:    row.IncidentUnits,
		})
	}

	if s.logg != nil {
		ctx = s.logg.WithFields(ctx, map[string]any{
			"trade_records":    len(trades),
			"vendor_standings": len(standings),
		})
		s.logg.Info(ctx, "ledger history hydrated")
	}
	return nil
}

func (s *service) SaveTradeRecord(ctx context.Context, tx *gorm.DB, purchaserID, vendorID uuid.UUID, record ledger.TradeRecord) error {
	if purchaserID == uuid.Nil || vendorID == uuid.Nil {
		return fmt.Errorf("purchaser and vendor ids are required")
	}
	repo := s.repo
	if tx != nil {
		repo = s.repo.WithTx(tx)
	}
	return repo.UpsertTradeRecord(ctx, &models.TradeRecord{
		PurchaserID: purchaserID,
		VendorID:    vendorID,
		Quantity:    record.Quantity,
		AgreedPrice: record.AgreedPrice,
		TradedAt:    record.TradedAt,
	})
}

func (s *service) SaveVendorStanding(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID, standing ledger.Standing) error {
	if vendorID == uuid.Nil {
		return fmt.Errorf("vendor id is required")
	}
	repo := s.repo
	if tx != nil {
		repo = s.repo.WithTx(tx)
	}
	return repo.UpsertVendorStanding(ctx, &models.VendorStanding{
		VendorID:         vendorID,
		ReputationPoints: standing.ReputationPoints,
		IncidentCount:    standing.IncidentCount,
		IncidentUnits:    standing.IncidentUnits,
	})
}

func (s *service) SaveDailyMetric(ctx context.Context, tx *gorm.DB, dayBucket int64, metrics ledger.DayMetrics) error {
	repo := s.repo
	if tx != nil {
		repo = s.repo.WithTx(tx)
	}
	return repo.UpsertDailyMetric(ctx, &models.DailyMetric{
		DayBucket:        dayBucket,
		TransactionCount: metrics.TransactionCount,
		UnitVolume:       metrics.UnitVolume,
	})
}
