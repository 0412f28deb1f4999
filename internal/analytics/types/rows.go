package types

import (
	"time"
)

// DailyMetricRow mirrors the daily_metrics BigQuery schema. Snapshots are
// append-only; the latest snapshot_at per day_bucket wins downstream.
type DailyMetricRow struct {
	DayBucket              int64     `bigquery:"day_bucket"`
	TransactionCount       int64     `bigquery:"transaction_count"`
	UnitVolume             int64     `bigquery:"unit_volume"`
	AvgUnitsPerTransaction string    `bigquery:"avg_units_per_transaction"`
	SnapshotAt             time.Time `bigquery:"snapshot_at"`
}

// MetricsEventRow mirrors the metrics_events BigQuery schema, one row per
// recorded transaction.
type MetricsEventRow struct {
	EventID     string    `bigquery:"event_id"`
	OccurredAt  time.Time `bigquery:"occurred_at"`
	VendorID    string    `bigquery:"vendor_id"`
	PurchaserID string    `bigquery:"purchaser_id"`
	Volume      int64     `bigquery:"volume"`
	Value       int64     `bigquery:"value"`
	DayBucket   int64     `bigquery:"day_bucket"`
}
