package exporter

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/biovault-exchange/biovault-backend/internal/analytics/types"
	"github.com/biovault-exchange/biovault-backend/internal/history"
	"github.com/biovault-exchange/biovault-backend/pkg/logger"
)

const defaultInterval = 15 * time.Minute

// SnapshotWriter receives day-bucket snapshot rows.
type SnapshotWriter interface {
	InsertDailySnapshot(ctx context.Context, row types.DailyMetricRow) error
	Flush(ctx context.Context) error
}

// Exporter periodically snapshots the Postgres daily aggregates into
// BigQuery. The streaming worker covers the live path; the exporter is the
// reconciliation path, so duplicate day buckets are expected and the latest
// snapshot_at wins downstream.
type Exporter struct {
	repo     history.Repository
	writer   SnapshotWriter
	logg     *logger.Logger
	interval time.Duration
	clock    func() time.Time
}

// Config controls the exporter cadence.
type Config struct {
	Interval time.Duration
	Clock    func() time.Time
}

// New builds an exporter.
func New(repo history.Repository, writer SnapshotWriter, logg *logger.Logger, cfg Config) (*Exporter, error) {
	if repo == nil {
		return nil, errors.New("history repository required")
	}
	if writer == nil {
		return nil, errors.New("snapshot writer required")
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Exporter{
		repo:     repo,
		writer:   writer,
		logg:     logg,
		interval: interval,
		clock:    clock,
	}, nil
}

// Run exports on a fixed interval until the context is canceled.
func (e *Exporter) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := e.ExportOnce(ctx); err != nil {
				if e.logg != nil {
					e.logg.Error(ctx, "exporting daily metrics", err)
				}
			}
		}
	}
}

// ExportOnce snapshots every day bucket currently in Postgres. Row-level
// failures are collected so one bad bucket does not abort the rest.
func (e *Exporter) ExportOnce(ctx context.Context) error {
	metrics, err := e.repo.ListDailyMetrics(ctx)
	if err != nil {
		return err
	}

	snapshotAt := e.clock().UTC()
	var errs error
	exported := 0
	for _, metric := range metrics {
		row := types.DailyMetricRow{
			DayBucket:              metric.DayBucket,
			TransactionCount:       int64(metric.TransactionCount),
			UnitVolume:             int64(metric.UnitVolume),
			AvgUnitsPerTransaction: avgUnitsPerTransaction(metric.UnitVolume, metric.TransactionCount),
			SnapshotAt:             snapshotAt,
		}
		if err := e.writer.InsertDailySnapshot(ctx, row); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		exported++
	}
	if err := e.writer.Flush(ctx); err != nil {
		errs = multierr.Append(errs, err)
	}

	if e.logg != nil && errs == nil {
		e.logg.Info(e.logg.WithField(ctx, "exported", exported), "daily metrics exported")
	}
	return errs
}

func avgUnitsPerTransaction(volume, count uint64) string {
	if count == 0 {
		return "0"
	}
	return decimal.NewFromUint64(volume).
		Div(decimal.NewFromUint64(count)).
		Round(4).
		String()
}
