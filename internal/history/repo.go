package history

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/biovault-exchange/biovault-backend/pkg/db/models"
)

// Repository manages the durable trade, standing and metrics records that
// survive restarts of the in-memory ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListTradeRecords(ctx context.Context) ([]models.TradeRecord, error)
	UpsertTradeRecord(ctx context.Context, record *models.TradeRecord) error
	ListVendorStandings(ctx context.Context) ([]models.VendorStanding, error)
	UpsertVendorStanding(ctx context.Context, standing *models.VendorStanding) error
	ListDailyMetrics(ctx context.Context) ([]models.DailyMetric, error)
	UpsertDailyMetric(ctx context.Context, metric *models.DailyMetric) error
	FindTradeRecord(ctx context.Context, purchaserID, vendorID uuid.UUID) (*models.TradeRecord, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a history repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) ListTradeRecords(ctx context.Context) ([]models.TradeRecord, error) {
	var rows []models.TradeRecord
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) UpsertTradeRecord(ctx context.Context, record *models.TradeRecord) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "purchaser_id"}, {Name: "vendor_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"quantity", "agreed_price", "traded_at"}),
		}).
		Create(record).Error
}

func (r *repository) ListVendorStandings(ctx context.Context) ([]models.VendorStanding, error) {
	var rows []models.VendorStanding
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) UpsertVendorStanding(ctx context.Context, standing *models.VendorStanding) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "vendor_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"reputation_points", "incident_count", "incident_units"}),
		}).
		Create(standing).Error
}

func (r *repository) ListDailyMetrics(ctx context.Context) ([]models.DailyMetric, error) {
	var rows []models.DailyMetric
	if err := r.db.WithContext(ctx).Order("day_bucket ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) UpsertDailyMetric(ctx context.Context, metric *models.DailyMetric) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "day_bucket"}},
			DoUpdates: clause.AssignmentColumns([]string{"transaction_count", "unit_volume"}),
		}).
		Create(metric).Error
}

func (r *repository) FindTradeRecord(ctx context.Context, purchaserID, vendorID uuid.UUID) (*models.TradeRecord, error) {
	var row models.TradeRecord
	err := r.db.WithContext(ctx).
		Where("purchaser_id = ? AND vendor_id = ?", purchaserID, vendorID).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}
