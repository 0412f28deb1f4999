package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/biovault-exchange/biovault-backend/internal/analytics/types"
	"github.com/biovault-exchange/biovault-backend/pkg/enums"
	"github.com/biovault-exchange/biovault-backend/pkg/outbox/payloads"
)

// MetricsEventWriter receives recorded-transaction rows.
type MetricsEventWriter interface {
	InsertMetricsEvent(ctx context.Context, row types.MetricsEventRow) error
	Flush(ctx context.Context) error
}

// NewMetricsHandler routes analytics envelopes into the BigQuery writer.
// Event types without a sink are acknowledged and dropped.
func NewMetricsHandler(writer MetricsEventWriter) (Handler, error) {
	if writer == nil {
		return nil, errors.New("metrics event writer required")
	}
	return HandlerFunc(func(ctx context.Context, envelope types.Envelope) error {
		switch envelope.EventType {
		case enums.EventMetricsRecorded:
			return handleMetricsRecorded(ctx, writer, envelope)
		default:
			return nil
		}
	}), nil
}

func handleMetricsRecorded(ctx context.Context, writer MetricsEventWriter, envelope types.Envelope) error {
	var payload payloads.MetricsRecordedEvent
	if err := json.Unmarshal(envelope.Payload, &payload); err != nil {
		return fmt.Errorf("decode metrics payload: %w", err)
	}

	row := types.MetricsEventRow{
		EventID:     envelope.EventID,
		OccurredAt:  envelope.OccurredAt,
		VendorID:    payload.VendorID.String(),
		PurchaserID: payload.PurchaserID.String(),
		Volume:      int64(payload.Volume),
		Value:       int64(payload.Value),
		DayBucket:   payload.DayBucket,
	}
	if err := writer.InsertMetricsEvent(ctx, row); err != nil {
		return err
	}
	return writer.Flush(ctx)
}
