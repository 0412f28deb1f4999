package enums

import "fmt"

// OutboxEventType enumerates domain events emitted through the outbox.
type OutboxEventType string

const (
	EventUnitListed          OutboxEventType = "unit_listed"
	EventListingWithdrawn    OutboxEventType = "listing_withdrawn"
	EventTradeSettled        OutboxEventType = "trade_settled"
	EventUnitsIngested       OutboxEventType = "units_ingested"
	EventUnitsRefunded       OutboxEventType = "units_refunded"
	EventUnitsTransferred    OutboxEventType = "units_transferred"
	EventPlanEstablished     OutboxEventType = "plan_established"
	EventSubscriptionStarted OutboxEventType = "subscription_started"
	EventQualityFlagged      OutboxEventType = "quality_flagged"
	EventMetricsRecorded     OutboxEventType = "metrics_recorded"
)

// OutboxAggregateType enumerates the aggregates events attach to.
type OutboxAggregateType string

const (
	AggregateParticipant  OutboxAggregateType = "participant"
	AggregateListing      OutboxAggregateType = "listing"
	AggregatePlan         OutboxAggregateType = "plan"
	AggregateSubscription OutboxAggregateType = "subscription"
	AggregateTrade        OutboxAggregateType = "trade"
)

var outboxEventTypes = map[OutboxEventType]struct{}{
	EventUnitListed:          {},
	EventListingWithdrawn:    {},
	EventTradeSettled:        {},
	EventUnitsIngested:       {},
	EventUnitsRefunded:       {},
	EventUnitsTransferred:    {},
	EventPlanEstablished:     {},
	EventSubscriptionStarted: {},
	EventQualityFlagged:      {},
	EventMetricsRecorded:     {},
}

// ParseOutboxEventType validates a wire value against the known event types.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	candidate := OutboxEventType(value)
	if _, ok := outboxEventTypes[candidate]; !ok {
		return "", fmt.Errorf("unknown outbox event type %q", value)
	}
	return candidate, nil
}

var outboxAggregateTypes = map[OutboxAggregateType]struct{}{
	AggregateParticipant:  {},
	AggregateListing:      {},
	AggregatePlan:         {},
	AggregateSubscription: {},
	AggregateTrade:        {},
}

// ParseOutboxAggregateType validates a wire value against the known aggregates.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	candidate := OutboxAggregateType(value)
	if _, ok := outboxAggregateTypes[candidate]; !ok {
		return "", fmt.Errorf("unknown outbox aggregate type %q", value)
	}
	return candidate, nil
}

// OutboxDLQErrorReason classifies why an outbox row was parked.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
)
