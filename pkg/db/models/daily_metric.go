package models

import "time"

// DailyMetric is the day-bucketed transaction aggregate. The bucket key is
// unix seconds divided by 86400.
type DailyMetric struct {
	DayBucket        int64     `gorm:"column:day_bucket;primaryKey;autoIncrement:false"`
	TransactionCount uint64    `gorm:"column:transaction_count;not null;default:0"`
	UnitVolume       uint64    `gorm:"column:unit_volume;not null;default:0"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
