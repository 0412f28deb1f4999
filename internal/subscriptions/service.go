package subscriptions

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/biovault-exchange/biovault-backend/internal/journal"
	"github.com/biovault-exchange/biovault-backend/internal/ledger"
	"github.com/biovault-exchange/biovault-backend/pkg/enums"
	pkgerrors "github.com/biovault-exchange/biovault-backend/pkg/errors"
	"github.com/biovault-exchange/biovault-backend/pkg/logger"
	"github.com/biovault-exchange/biovault-backend/pkg/metrics"
	"github.com/biovault-exchange/biovault-backend/pkg/outbox"
	"github.com/biovault-exchange/biovault-backend/pkg/outbox/payloads"
)

// Service exposes recurring-delivery operations: publishing a plan,
// retiring it, and buying cycles up front.
type Service interface {
	EstablishPlan(ctx context.Context, providerID uuid.UUID, cost, qtyPerCycle, maxCycles uint64) error
	DeactivatePlan(ctx context.Context, providerID uuid.UUID) error
	Subscribe(ctx context.Context, subscriberID, providerID uuid.UUID, cycles uint64) error
}

// TxRunner runs a function inside one database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// OutboxEmitter queues a domain event inside the caller's transaction.
type OutboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	core    *ledger.Core
	tx      TxRunner
	journal journal.Service
	events  OutboxEmitter
	metrics *metrics.LedgerMetrics
	logg    *logger.Logger
	clock   func() time.Time
}

// Deps carries the collaborators a subscriptions service needs.
type Deps struct {
	Core    *ledger.Core
	Tx      TxRunner
	Journal journal.Service
	Events  OutboxEmitter
	Metrics *metrics.LedgerMetrics
	Logger  *logger.Logger
	Clock   func() time.Time
}

// NewService wires a subscriptions service.
func NewService(deps Deps) (Service, error) {
	if deps.Core == nil {
		return nil, fmt.Errorf("ledger core required")
	}
	if deps.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if deps.Journal == nil {
		return nil, fmt.Errorf("journal service required")
	}
	if deps.Events == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		core:    deps.Core,
		tx:      deps.Tx,
		journal: deps.Journal,
		events:  deps.Events,
		metrics: deps.Metrics,
		logg:    deps.Logger,
		clock:   clock,
	}, nil
}

func (s *service) EstablishPlan(ctx context.Context, providerID uuid.UUID, cost, qtyPerCycle, maxCycles uint64) error {
	op := enums.LedgerOperationEstablishPlan
	start := s.clock()

	if err := s.core.EstablishPlan(providerID, cost, qtyPerCycle, maxCycles); err != nil {
		return s.fail(ctx, op, err)
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.journal.RecordEntry(ctx, tx, journal.RecordEntryInput{
			Operation: op,
			CallerID:  providerID,
			Units:     qtyPerCycle,
			Currency:  cost,
			Metadata:  mustMetadata(map[string]any{"max_cycles": maxCycles}),
		}); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPlanEstablished,
			AggregateType: enums.AggregatePlan,
			AggregateID:   providerID,
			Actor:         &outbox.ActorRef{ParticipantID: providerID},
			Version:       1,
			OccurredAt:    start,
			Data: payloads.PlanEstablishedEvent{
				ProviderID:       providerID,
				PeriodicCost:     cost,
				PeriodicQuantity: qtyPerCycle,
				MaxCycles:        maxCycles,
			},
		})
	})
	if err != nil {
		return s.failDependency(ctx, op, err)
	}

	s.settle(ctx, op, providerID, qtyPerCycle, start)
	return nil
}

func (s *service) DeactivatePlan(ctx context.Context, providerID uuid.UUID) error {
	op := enums.LedgerOperationDeactivatePlan
	start := s.clock()

	if err := s.core.DeactivatePlan(providerID); err != nil {
		return s.fail(ctx, op, err)
	}

	// Retirement has no event consumers; the journal row is the record.
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := s.journal.RecordEntry(ctx, tx, journal.RecordEntryInput{
			Operation: op,
			CallerID:  providerID,
		})
		return err
	})
	if err != nil {
		return s.failDependency(ctx, op, err)
	}

	s.settle(ctx, op, providerID, 0, start)
	return nil
}

func (s *service) Subscribe(ctx context.Context, subscriberID, providerID uuid.UUID, cycles uint64) error {
	op := enums.LedgerOperationSubscribe
	start := s.clock()

	// The plan prices the purchase; read it before the core mutates state.
	// A missing plan leaves the zero value and the core rejects below.
	plan, _ := s.core.PlanFor(providerID)
	units := cycles * plan.PeriodicQuantity
	payment := cycles * plan.PeriodicCost
	fee := ledger.FeeOn(payment, s.core.CommissionRate())

	if err := s.core.Subscribe(subscriberID, providerID, cycles); err != nil {
		return s.fail(ctx, op, err)
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.journal.RecordEntry(ctx, tx, journal.RecordEntryInput{
			Operation:      op,
			CallerID:       subscriberID,
			CounterpartyID: &providerID,
			Units:          units,
			Currency:       payment,
			Fee:            fee,
		}); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSubscriptionStarted,
			AggregateType: enums.AggregateSubscription,
			AggregateID:   providerID,
			Actor:         &outbox.ActorRef{ParticipantID: subscriberID},
			Version:       1,
			OccurredAt:    start,
			Data: payloads.SubscriptionStartedEvent{
				SubscriberID: subscriberID,
				ProviderID:   providerID,
				Cycles:       cycles,
				Units:        units,
				Payment:      payment,
				Fee:          fee,
			},
		})
	})
	if err != nil {
		return s.failDependency(ctx, op, err)
	}

	s.settle(ctx, op, subscriberID, units, start)
	return nil
}

func (s *service) fail(ctx context.Context, op enums.LedgerOperation, err error) error {
	code := pkgerrors.CodeInternal
	if typed := pkgerrors.As(err); typed != nil {
		code = typed.Code()
	}
	s.metrics.IncFailure(string(op), string(code))
	if s.logg != nil {
		logCtx := s.logg.WithOperation(ctx, string(op))
		s.logg.Warn(logCtx, "ledger operation rejected")
	}
	return err
}

func (s *service) failDependency(ctx context.Context, op enums.LedgerOperation, err error) error {
	s.metrics.IncFailure(string(op), string(pkgerrors.CodeDependency))
	if s.logg != nil {
		logCtx := s.logg.WithOperation(ctx, string(op))
		s.logg.Error(logCtx, "recording ledger operation", err)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recording ledger operation")
}

func (s *service) settle(ctx context.Context, op enums.LedgerOperation, callerID uuid.UUID, qty uint64, start time.Time) {
	s.metrics.IncSuccess(string(op))
	if qty > 0 {
		s.metrics.AddUnits(string(op), qty)
	}
	s.metrics.ObserveDuration(string(op), s.clock().Sub(start))
	if s.logg != nil {
		logCtx := s.logg.WithOperation(ctx, string(op))
		logCtx = s.logg.WithCallerID(logCtx, callerID.String())
		s.logg.Info(logCtx, "ledger operation committed")
	}
}

func mustMetadata(fields map[string]any) json.RawMessage {
	data, err := json.Marshal(fields)
	if err != nil {
		return nil
	}
	return data
}
