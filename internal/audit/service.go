package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/biovault-exchange/biovault-backend/internal/history"
	"github.com/biovault-exchange/biovault-backend/internal/journal"
	"github.com/biovault-exchange/biovault-backend/internal/ledger"
	"github.com/biovault-exchange/biovault-backend/pkg/enums"
	pkgerrors "github.com/biovault-exchange/biovault-backend/pkg/errors"
	"github.com/biovault-exchange/biovault-backend/pkg/logger"
	"github.com/biovault-exchange/biovault-backend/pkg/metrics"
	"github.com/biovault-exchange/biovault-backend/pkg/outbox"
	"github.com/biovault-exchange/biovault-backend/pkg/outbox/payloads"
)

// Service exposes the supervisory operations: quality audits, reputation
// adjustments, operator certification, analytics recording and sharing
// grants.
type Service interface {
	QualityAudit(ctx context.Context, supervisorID, vendorID, purchaserID uuid.UUID, refundAmount uint64) error
	AddReputation(ctx context.Context, callerID, vendorID uuid.UUID, points uint64) error
	CertifyOperator(ctx context.Context, callerID, operatorID uuid.UUID) error
	RevokeOperator(ctx context.Context, callerID, operatorID uuid.UUID) error
	RecordMetrics(ctx context.Context, callerID, vendorID, purchaserID uuid.UUID, volume, value uint64) error
	GrantAccess(ctx context.Context, ownerID, providerID uuid.UUID, volume, durationDays uint64) (ledger.SharingGrant, error)
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
	history history.Service
	metrics *metrics.LedgerMetrics
	logg    *logger.Logger
	clock   func() time.Time
}

// Deps carries the collaborators an audit service needs.
type Deps struct {
	Core    *ledger.Core
	Tx      TxRunner
	Journal journal.Service
	Events  OutboxEmitter
	History history.Service
	Metrics *metrics.LedgerMetrics
	Logger  *logger.Logger
	Clock   func() time.Time
}

// NewService wires an audit service.
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
	if deps.History == nil {
		return nil, fmt.Errorf("history service required")
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
		history: deps.History,
		metrics: deps.Metrics,
		logg:    deps.Logger,
		clock:   clock,
	}, nil
}

func (s *service) QualityAudit(ctx context.Context, supervisorID, vendorID, purchaserID uuid.UUID, refundAmount uint64) error {
	op := enums.LedgerOperationQualityAudit
	start := s.clock()

	if err := s.core.QualityAudit(supervisorID, vendorID, purchaserID, refundAmount); err != nil {
		return s.fail(ctx, op, err)
	}
	standing := s.core.VendorStanding(vendorID)

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.journal.RecordEntry(ctx, tx, journal.RecordEntryInput{
			Operation:      op,
			CallerID:       supervisorID,
			CounterpartyID: &vendorID,
			Currency:       refundAmount,
		}); err != nil {
			return err
		}
		if err := s.history.SaveVendorStanding(ctx, tx, vendorID, standing); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventQualityFlagged,
			AggregateType: enums.AggregateParticipant,
			AggregateID:   vendorID,
			Actor:         &outbox.ActorRef{ParticipantID: supervisorID, Role: "supervisor"},
			Version:       1,
			OccurredAt:    start,
			Data: payloads.QualityFlaggedEvent{
				VendorID:     vendorID,
				PurchaserID:  purchaserID,
				RefundAmount: refundAmount,
			},
		})
	})
	if err != nil {
		return s.failDependency(ctx, op, err)
	}

	s.settle(ctx, op, supervisorID, start)
	return nil
}

func (s *service) AddReputation(ctx context.Context, callerID, vendorID uuid.UUID, points uint64) error {
	op := enums.LedgerOperationAddReputation
	start := s.clock()

	if err := s.core.AddReputation(callerID, vendorID, points); err != nil {
		return s.fail(ctx, op, err)
	}
	standing := s.core.VendorStanding(vendorID)

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.journal.RecordEntry(ctx, tx, journal.RecordEntryInput{
			Operation:      op,
			CallerID:       callerID,
			CounterpartyID: &vendorID,
			Metadata:       mustMetadata(map[string]any{"points": points}),
		}); err != nil {
			return err
		}
		return s.history.SaveVendorStanding(ctx, tx, vendorID, standing)
	})
	if err != nil {
		return s.failDependency(ctx, op, err)
	}

	s.settle(ctx, op, callerID, start)
	return nil
}

func (s *service) CertifyOperator(ctx context.Context, callerID, operatorID uuid.UUID) error {
	return s.operatorChange(ctx, enums.LedgerOperationCertifyOperator, callerID, operatorID, s.core.CertifyOperator)
}

func (s *service) RevokeOperator(ctx context.Context, callerID, operatorID uuid.UUID) error {
	return s.operatorChange(ctx, enums.LedgerOperationRevokeOperator, callerID, operatorID, s.core.RevokeOperator)
}

func (s *service) operatorChange(ctx context.Context, op enums.LedgerOperation, callerID, operatorID uuid.UUID, apply func(uuid.UUID, uuid.UUID) error) error {
	start := s.clock()

	if err := apply(callerID, operatorID); err != nil {
		return s.fail(ctx, op, err)
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := s.journal.RecordEntry(ctx, tx, journal.RecordEntryInput{
			Operation:      op,
			CallerID:       callerID,
			CounterpartyID: &operatorID,
		})
		return err
	})
	if err != nil {
		return s.failDependency(ctx, op, err)
	}

	s.settle(ctx, op, callerID, start)
	return nil
}

func (s *service) RecordMetrics(ctx context.Context, callerID, vendorID, purchaserID uuid.UUID, volume, value uint64) error {
	op := enums.LedgerOperationRecordMetrics
	start := s.clock()
	at := start.Unix()
	day := at / 86400

	if err := s.core.RecordMetrics(callerID, vendorID, purchaserID, volume, value, at); err != nil {
		return s.fail(ctx, op, err)
	}
	bucket := s.core.DailyMetrics(day)

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.journal.RecordEntry(ctx, tx, journal.RecordEntryInput{
			Operation:      op,
			CallerID:       callerID,
			CounterpartyID: &vendorID,
			Units:          volume,
			Currency:       value,
		}); err != nil {
			return err
		}
		if err := s.history.SaveDailyMetric(ctx, tx, day, bucket); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventMetricsRecorded,
			AggregateType: enums.AggregateParticipant,
			AggregateID:   vendorID,
			Actor:         &outbox.ActorRef{ParticipantID: callerID, Role: "operator"},
			Version:       1,
			OccurredAt:    start,
			Data: payloads.MetricsRecordedEvent{
				VendorID:    vendorID,
				PurchaserID: purchaserID,
				Volume:      volume,
				Value:       value,
				DayBucket:   day,
			},
		})
	})
	if err != nil {
		return s.failDependency(ctx, op, err)
	}

	s.settle(ctx, op, callerID, start)
	return nil
}

func (s *service) GrantAccess(ctx context.Context, ownerID, providerID uuid.UUID, volume, durationDays uint64) (ledger.SharingGrant, error) {
	op := enums.LedgerOperationGrantAccess
	start := s.clock()

	grant, err := s.core.GrantAccess(ownerID, providerID, volume, durationDays, start.Unix())
	if err != nil {
		return ledger.SharingGrant{}, s.fail(ctx, op, err)
	}

	// Grants are acknowledged, not stored: only the journal row survives.
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := s.journal.RecordEntry(ctx, tx, journal.RecordEntryInput{
			Operation:      op,
			CallerID:       ownerID,
			CounterpartyID: &providerID,
			Units:          volume,
			Metadata:       mustMetadata(map[string]any{"expires_at": grant.ExpiresAt}),
		})
		return err
	})
	if err != nil {
		return ledger.SharingGrant{}, s.failDependency(ctx, op, err)
	}

	s.settle(ctx, op, ownerID, start)
	return grant, nil
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

func (s *service) settle(ctx context.Context, op enums.LedgerOperation, callerID uuid.UUID, start time.Time) {
	s.metrics.IncSuccess(string(op))
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
