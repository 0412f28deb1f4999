package writer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/biovault-exchange/biovault-backend/internal/analytics/types"
	pkgbigquery "github.com/biovault-exchange/biovault-backend/pkg/bigquery"
)

const (
	defaultBatchSize      = 1
	defaultMaxAttempts    = 3
	defaultInitialBackoff = 250 * time.Millisecond
	defaultMaximumBackoff = 2 * time.Second
)

// Config controls the analytics writer behavior.
type Config struct {
	DailyMetricsTable  string
	MetricsEventsTable string
	BatchSize          int
	RetryPolicy        RetryPolicy
}

// RetryPolicy controls how many times BigQuery inserts are retried.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaximumBackoff time.Duration
}

type tableInserter interface {
	InsertRows(ctx context.Context, table string, rows []any) error
}

// BigQueryWriter inserts analytics rows into BigQuery with retries and optional batching.
type BigQueryWriter struct {
	client             tableInserter
	dailyMetricsTable  string
	metricsEventsTable string
	batchSize          int
	retry              RetryPolicy

	dailyBuffer []types.DailyMetricRow
	eventBuffer []types.MetricsEventRow
}

// New creates a new BigQueryWriter backed by a shared client.
func New(client *pkgbigquery.Client, cfg Config) (*BigQueryWriter, error) {
	if client == nil {
		return nil, errors.New("bigquery client required")
	}
	daily := strings.TrimSpace(cfg.DailyMetricsTable)
	if daily == "" {
		return nil, errors.New("daily metrics table is required")
	}
	events := strings.TrimSpace(cfg.MetricsEventsTable)
	if events == "" {
		return nil, errors.New("metrics events table is required")
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	retry := cfg.RetryPolicy
	if retry.MaxAttempts <= 0 {
		retry.MaxAttempts = defaultMaxAttempts
	}
	if retry.InitialBackoff <= 0 {
		retry.InitialBackoff = defaultInitialBackoff
	}
	if retry.MaximumBackoff <= 0 {
		retry.MaximumBackoff = defaultMaximumBackoff
	}
	if retry.MaximumBackoff < retry.InitialBackoff {
		retry.MaximumBackoff = retry.InitialBackoff
	}

	return &BigQueryWriter{
		client:             client,
		dailyMetricsTable:  daily,
		metricsEventsTable: events,
		batchSize:          batchSize,
		retry:              retry,
	}, nil
}

// InsertDailySnapshot writes a single day-bucket snapshot row (flushes when batch size reached).
func (w *BigQueryWriter) InsertDailySnapshot(ctx context.Context, row types.DailyMetricRow) error {
	w.dailyBuffer = append(w.dailyBuffer, row)
	if len(w.dailyBuffer) >= w.batchSize {
		return w.flushDaily(ctx)
	}
	return nil
}

// InsertMetricsEvent writes a single recorded-transaction row (flushes when batch size reached).
func (w *BigQueryWriter) InsertMetricsEvent(ctx context.Context, row types.MetricsEventRow) error {
	w.eventBuffer = append(w.eventBuffer, row)
	if len(w.eventBuffer) >= w.batchSize {
		return w.flushEvents(ctx)
	}
	return nil
}

// Flush writes any buffered rows immediately.
func (w *BigQueryWriter) Flush(ctx context.Context) error {
	if err := w.flushDaily(ctx); err != nil {
		return err
	}
	return w.flushEvents(ctx)
}

func (w *BigQueryWriter) flushDaily(ctx context.Context) error {
	if len(w.dailyBuffer) == 0 {
		return nil
	}
	rows := make([]any, len(w.dailyBuffer))
	for i := range w.dailyBuffer {
		rows[i] = &w.dailyBuffer[i]
	}

	if err := w.insertWithRetry(ctx, w.dailyMetricsTable, rows); err != nil {
		return err
	}
	w.dailyBuffer = w.dailyBuffer[:0]
	return nil
}

func (w *BigQueryWriter) flushEvents(ctx context.Context) error {
	if len(w.eventBuffer) == 0 {
		return nil
	}
	rows := make([]any, len(w.eventBuffer))
	for i := range w.eventBuffer {
		rows[i] = &w.eventBuffer[i]
	}

	if err := w.insertWithRetry(ctx, w.metricsEventsTable, rows); err != nil {
		return err
	}
	w.eventBuffer = w.eventBuffer[:0]
	return nil
}

func (w *BigQueryWriter) insertWithRetry(ctx context.Context, table string, rows []any) error {
	if len(rows) == 0 {
		return nil
	}

	attempts := 0
	backoff := w.retry.InitialBackoff

	for {
		if ctx != nil {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		err := w.client.InsertRows(ctx, table, rows)
		if err == nil {
			return nil
		}

		attempts++
		if attempts >= w.retry.MaxAttempts || !isRetryableBigQueryError(err) {
			return fmt.Errorf("insert %s rows: %w", table, err)
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		timer.Stop()

		backoff = minDuration(backoff*2, w.retry.MaximumBackoff)
	}
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

func isRetryableBigQueryError(err error) bool {
	if err == nil {
		return false
	}

	var multi *cbigquery.MultiError
	if errors.As(err, &multi) {
		if multi == nil || len(*multi) == 0 {
			return false
		}
		for _, inner := range *multi {
			if !isRetryableBigQueryError(inner) {
				return false
			}
		}
		return true
	}

	var pme *cbigquery.PutMultiError
	if errors.As(err, &pme) {
		if pme == nil || len(*pme) == 0 {
			return false
		}
		for _, rowErr := range *pme {
			if !isRetryableBigQueryError(rowErr.Errors) {
				return false
			}
		}
		return true
	}

	var rowErr *cbigquery.RowInsertionError
	if errors.As(err, &rowErr) {
		if rowErr == nil || len(rowErr.Errors) == 0 {
			return false
		}
		for _, inner := range rowErr.Errors {
			if !isRetryableBigQueryError(inner) {
				return false
			}
		}
		return true
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return isRetryableHTTPCode(apiErr.Code)
	}

	var statusErr interface{ GRPCStatus() *status.Status }
	if errors.As(err, &statusErr) {
		if st := statusErr.GRPCStatus(); st != nil {
			return isRetryableGRPCCode(st.Code())
		}
	}

	return false
}

func isRetryableHTTPCode(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusRequestTimeout,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func isRetryableGRPCCode(code codes.Code) bool {
	switch code {
	case codes.Aborted,
		codes.DeadlineExceeded,
		codes.Internal,
		codes.ResourceExhausted,
		codes.Unavailable:
		return true
	default:
		return false
	}
}
