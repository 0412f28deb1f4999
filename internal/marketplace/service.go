package marketplace

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

// Service exposes the marketplace operations: listings, settlement,
// ingestion, refund and peer transfer. Each operation runs against the
// in-memory core first; once the core commits, the journal entry and the
// outbox event are written in a single database transaction.
type Service interface {
	PostListing(ctx context.Context, sellerID uuid.UUID, qty, price uint64) error
	WithdrawListing(ctx context.Context, sellerID uuid.UUID, qty uint64) error
	Purchase(ctx context.Context, buyerID, vendorID uuid.UUID, qty uint64) error
	Ingest(ctx context.Context, ownerID uuid.UUID, qty uint64) error
	Refund(ctx context.Context, ownerID uuid.UUID, qty uint64) error
	DirectTransfer(ctx context.Context, senderID, receiverID uuid.UUID, qty uint64) error
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
	trades  history.Service
	metrics *metrics.LedgerMetrics
	logg    *logger.Logger
	clock   func() time.Time
}

// Deps carries the collaborators a marketplace service needs.
type Deps struct {
	Core    *ledger.Core
	Tx      TxRunner
	Journal journal.Service
	Events  OutboxEmitter
	Trades  history.Service
	Metrics *metrics.LedgerMetrics
	Logger  *logger.Logger
	Clock   func() time.Time
}

// NewService wires a marketplace service.
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
	if deps.Trades == nil {
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
		trades:  deps.Trades,
		metrics: deps.Metrics,
		logg:    deps.Logger,
		clock:   clock,
	}, nil
}

func (s *service) PostListing(ctx context.Context, sellerID uuid.UUID, qty, price uint64) error {
	op := enums.LedgerOperationPostListing
	start := s.clock()

	if err := s.core.PostListing(sellerID, qty, price); err != nil {
		return s.fail(ctx, op, err)
	}
	listing := s.core.ListingFor(sellerID)

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.journal.RecordEntry(ctx, tx, journal.RecordEntryInput{
			Operation: op,
			CallerID:  sellerID,
			Units:     qty,
			Metadata:  mustMetadata(map[string]any{"unit_price": price}),
		}); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventUnitListed,
			AggregateType: enums.AggregateListing,
			AggregateID:   sellerID,
			Actor:         &outbox.ActorRef{ParticipantID: sellerID},
			Version:       1,
			OccurredAt:    start,
			Data: payloads.UnitListedEvent{
				SellerID:       sellerID,
				Quantity:       qty,
				UnitPrice:      price,
				ListedQuantity: listing.Quantity,
			},
		})
	})
	if err != nil {
		return s.failDependency(ctx, op, err)
	}

	s.settle(ctx, op, sellerID, qty, start)
	return nil
}

func (s *service) WithdrawListing(ctx context.Context, sellerID uuid.UUID, qty uint64) error {
	op := enums.LedgerOperationWithdrawListing
	start := s.clock()

	if err := s.core.WithdrawListing(sellerID, qty); err != nil {
		return s.fail(ctx, op, err)
	}
	listing := s.core.ListingFor(sellerID)

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.journal.RecordEntry(ctx, tx, journal.RecordEntryInput{
			Operation: op,
			CallerID:  sellerID,
			Units:     qty,
		}); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventListingWithdrawn,
			AggregateType: enums.AggregateListing,
			AggregateID:   sellerID,
			Actor:         &outbox.ActorRef{ParticipantID: sellerID},
			Version:       1,
			OccurredAt:    start,
			Data: payloads.ListingWithdrawnEvent{
				SellerID:          sellerID,
				Quantity:          qty,
				RemainingQuantity: listing.Quantity,
			},
		})
	})
	if err != nil {
		return s.failDependency(ctx, op, err)
	}

	s.settle(ctx, op, sellerID, qty, start)
	return nil
}

func (s *service) Purchase(ctx context.Context, buyerID, vendorID uuid.UUID, qty uint64) error {
	op := enums.LedgerOperationPurchase
	start := s.clock()

	// The listing price at settlement prices the trade; read it before the
	// core consumes the quantity.
	listing := s.core.ListingFor(vendorID)
	cost := qty * listing.UnitPrice
	fee := ledger.FeeOn(cost, s.core.CommissionRate())

	if err := s.core.Purchase(buyerID, vendorID, qty); err != nil {
		return s.fail(ctx, op, err)
	}

	record := ledger.TradeRecord{
		Quantity:    qty,
		AgreedPrice: listing.UnitPrice,
		TradedAt:    start.Unix(),
	}
	s.core.SeedTradeRecord(buyerID, vendorID, record)

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.journal.RecordEntry(ctx, tx, journal.RecordEntryInput{
			Operation:      op,
			CallerID:       buyerID,
			CounterpartyID: &vendorID,
			Units:          qty,
			Currency:       cost,
			Fee:            fee,
		}); err != nil {
			return err
		}
		if err := s.trades.SaveTradeRecord(ctx, tx, buyerID, vendorID, record); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTradeSettled,
			AggregateType: enums.AggregateTrade,
			AggregateID:   vendorID,
			Actor:         &outbox.ActorRef{ParticipantID: buyerID},
			Version:       1,
			OccurredAt:    start,
			Data: payloads.TradeSettledEvent{
				BuyerID:   buyerID,
				VendorID:  vendorID,
				Quantity:  qty,
				Cost:      cost,
				Fee:       fee,
				SettledAt: start,
			},
		})
	})
	if err != nil {
		return s.failDependency(ctx, op, err)
	}

	s.settle(ctx, op, buyerID, qty, start)
	return nil
}

func (s *service) Ingest(ctx context.Context, ownerID uuid.UUID, qty uint64) error {
	op := enums.LedgerOperationIngest
	start := s.clock()

	if err := s.core.Ingest(ownerID, qty); err != nil {
		return s.fail(ctx, op, err)
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.journal.RecordEntry(ctx, tx, journal.RecordEntryInput{
			Operation: op,
			CallerID:  ownerID,
			Units:     qty,
		}); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventUnitsIngested,
			AggregateType: enums.AggregateParticipant,
			AggregateID:   ownerID,
			Actor:         &outbox.ActorRef{ParticipantID: ownerID},
			Version:       1,
			OccurredAt:    start,
			Data:          payloads.UnitsIngestedEvent{OwnerID: ownerID, Quantity: qty},
		})
	})
	if err != nil {
		return s.failDependency(ctx, op, err)
	}

	s.settle(ctx, op, ownerID, qty, start)
	return nil
}

func (s *service) Refund(ctx context.Context, ownerID uuid.UUID, qty uint64) error {
	op := enums.LedgerOperationRefund
	start := s.clock()

	value := ledger.FeeOn(qty*s.core.UnitPrice(), s.core.RefundRate())

	if err := s.core.Refund(ownerID, qty); err != nil {
		return s.fail(ctx, op, err)
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.journal.RecordEntry(ctx, tx, journal.RecordEntryInput{
			Operation: op,
			CallerID:  ownerID,
			Units:     qty,
			Currency:  value,
		}); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventUnitsRefunded,
			AggregateType: enums.AggregateParticipant,
			AggregateID:   ownerID,
			Actor:         &outbox.ActorRef{ParticipantID: ownerID},
			Version:       1,
			OccurredAt:    start,
			Data:          payloads.UnitsRefundedEvent{OwnerID: ownerID, Quantity: qty, RefundValue: value},
		})
	})
	if err != nil {
		return s.failDependency(ctx, op, err)
	}

	s.settle(ctx, op, ownerID, qty, start)
	return nil
}

func (s *service) DirectTransfer(ctx context.Context, senderID, receiverID uuid.UUID, qty uint64) error {
	op := enums.LedgerOperationDirectTransfer
	start := s.clock()

	if err := s.core.DirectTransfer(senderID, receiverID, qty); err != nil {
		return s.fail(ctx, op, err)
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.journal.RecordEntry(ctx, tx, journal.RecordEntryInput{
			Operation:      op,
			CallerID:       senderID,
			CounterpartyID: &receiverID,
			Units:          qty,
		}); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventUnitsTransferred,
			AggregateType: enums.AggregateParticipant,
			AggregateID:   senderID,
			Actor:         &outbox.ActorRef{ParticipantID: senderID},
			Version:       1,
			OccurredAt:    start,
			Data: payloads.UnitsTransferredEvent{
				SenderID:   senderID,
				ReceiverID: receiverID,
				Quantity:   qty,
			},
		})
	})
	if err != nil {
		return s.failDependency(ctx, op, err)
	}

	s.settle(ctx, op, senderID, qty, start)
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
	s.metrics.AddUnits(string(op), qty)
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
