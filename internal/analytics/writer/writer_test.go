package writer

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"google.golang.org/api/googleapi"

	"github.com/biovault-exchange/biovault-backend/internal/analytics/types"
	pkgbigquery "github.com/biovault-exchange/biovault-backend/pkg/bigquery"
)

type insertCall struct {
	table string
	rows  []any
}

type fakeInserter struct {
	calls     []insertCall
	responses []error
}

func (f *fakeInserter) InsertRows(ctx context.Context, table string, rows []any) error {
	f.calls = append(f.calls, insertCall{table: table, rows: rows})
	if len(f.responses) == 0 {
		return nil
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp
}

func newWriterWithFakeInserter(t *testing.T) (*BigQueryWriter, *fakeInserter) {
	t.Helper()
	fake := &fakeInserter{}
	return &BigQueryWriter{
		client:             fake,
		dailyMetricsTable:  "daily_metrics",
		metricsEventsTable: "metrics_events",
		batchSize:          1,
		retry: RetryPolicy{
			MaxAttempts:    3,
			InitialBackoff: time.Millisecond,
			MaximumBackoff: 2 * time.Millisecond,
		},
	}, fake
}

func TestNewWriterValidation(t *testing.T) {
	if _, err := New(nil, Config{}); err == nil {
		t.Fatal("expected error when client missing")
	}
	if _, err := New(&pkgbigquery.Client{}, Config{DailyMetricsTable: " ", MetricsEventsTable: "metrics_events"}); err == nil {
		t.Fatal("expected error when daily metrics table missing")
	}
	if _, err := New(&pkgbigquery.Client{}, Config{DailyMetricsTable: "daily_metrics", MetricsEventsTable: " "}); err == nil {
		t.Fatal("expected error when metrics events table missing")
	}
}

func TestWriterRetriesOnTransientError(t *testing.T) {
	writer, fake := newWriterWithFakeInserter(t)
	fake.responses = []error{
		&googleapi.Error{Code: http.StatusServiceUnavailable},
		nil,
	}

	if err := writer.InsertMetricsEvent(context.Background(), types.MetricsEventRow{EventID: "1"}); err != nil {
		t.Fatalf("unexpected error writing row: %v", err)
	}
	if len(fake.calls) != 2 {
		t.Fatalf("expected two insert attempts, got %d", len(fake.calls))
	}
	if fake.calls[1].table != writer.metricsEventsTable {
		t.Fatalf("expected metrics events table on retry, got %s", fake.calls[1].table)
	}
	if len(writer.eventBuffer) != 0 {
		t.Fatal("expected buffer to be empty after success")
	}
}

func TestWriterStopsOnPermanentError(t *testing.T) {
	writer, fake := newWriterWithFakeInserter(t)
	fake.responses = []error{
		&googleapi.Error{Code: http.StatusBadRequest},
	}

	err := writer.InsertDailySnapshot(context.Background(), types.DailyMetricRow{DayBucket: 1})
	if err == nil {
		t.Fatal("expected permanent error to surface")
	}
	if len(fake.calls) != 1 {
		t.Fatalf("expected a single attempt, got %d", len(fake.calls))
	}
}

func TestWriterBatching(t *testing.T) {
	writer, fake := newWriterWithFakeInserter(t)
	writer.batchSize = 2

	if err := writer.InsertDailySnapshot(context.Background(), types.DailyMetricRow{DayBucket: 1}); err != nil {
		t.Fatalf("unexpected error on first insert: %v", err)
	}
	if len(fake.calls) != 0 {
		t.Fatal("expected first row to stay buffered")
	}

	if err := writer.InsertDailySnapshot(context.Background(), types.DailyMetricRow{DayBucket: 2}); err != nil {
		t.Fatalf("unexpected error on second insert: %v", err)
	}
	if len(fake.calls) != 1 {
		t.Fatalf("expected a flush after batch filled, got %d calls", len(fake.calls))
	}
	if len(fake.calls[0].rows) != 2 {
		t.Fatalf("expected 2 rows in flush, got %d", len(fake.calls[0].rows))
	}
}

func TestFlushWritesBothBuffers(t *testing.T) {
	writer, fake := newWriterWithFakeInserter(t)
	writer.batchSize = 10

	if err := writer.InsertDailySnapshot(context.Background(), types.DailyMetricRow{DayBucket: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := writer.InsertMetricsEvent(context.Background(), types.MetricsEventRow{EventID: "1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := writer.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if len(fake.calls) != 2 {
		t.Fatalf("expected 2 table writes, got %d", len(fake.calls))
	}
	if fake.calls[0].table != "daily_metrics" || fake.calls[1].table != "metrics_events" {
		t.Fatalf("unexpected tables: %+v", fake.calls)
	}
}

func TestRetryableErrorClassification(t *testing.T) {
	if isRetryableBigQueryError(nil) {
		t.Fatal("nil error must not be retryable")
	}
	if isRetryableBigQueryError(errors.New("boom")) {
		t.Fatal("plain error must not be retryable")
	}
	if !isRetryableBigQueryError(&googleapi.Error{Code: http.StatusTooManyRequests}) {
		t.Fatal("429 must be retryable")
	}
	if isRetryableBigQueryError(&googleapi.Error{Code: http.StatusForbidden}) {
		t.Fatal("403 must not be retryable")
	}
}
