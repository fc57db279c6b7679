package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/ports"
)

// TransactionService orchestrates transaction operations across the store and
// the optional change-event publisher.
type TransactionService struct {
	store  ports.TransactionStore
	events ports.EventPublisher
	now    func() time.Time
}

// NewTransactionService wires the service. events may be nil, in which case
// no change events are published.
func NewTransactionService(store ports.TransactionStore, events ports.EventPublisher) *TransactionService {
	return &TransactionService{
		store:  store,
		events: events,
		now:    time.Now,
	}
}

// Create validates in, saves the transaction and publishes a created event.
func (s *TransactionService) Create(ctx context.Context, in core.TransactionInput) (core.Transaction, error) {
	draft, err := core.ValidateTransaction(in, s.now())
	if err != nil {
		return core.Transaction{}, err
	}

	t, err := s.store.Create(ctx, draft)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	s.publish(ctx, amqp.EventTransactionCreated, t)
	return t, nil
}

func (s *TransactionService) Get(ctx context.Context, id string) (core.Transaction, error) {
	t, err := s.store.FindByID(ctx, id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

func (s *TransactionService) List(ctx context.Context, f core.TransactionFilter, limit, offset int) ([]core.Transaction, int64, error) {
	items, total, err := s.store.List(ctx, f, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	return items, total, nil
}

// Update replaces every mutable field of the transaction with id. A malformed
// id is reported before the payload is validated.
func (s *TransactionService) Update(ctx context.Context, id string, in core.TransactionInput) (core.Transaction, error) {
	if _, err := core.ParseID(id); err != nil {
		return core.Transaction{}, err
	}

	draft, err := core.ValidateTransaction(in, s.now())
	if err != nil {
		return core.Transaction{}, err
	}

	t, err := s.store.Update(ctx, id, draft)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}

	s.publish(ctx, amqp.EventTransactionUpdated, t)
	return t, nil
}

// Delete removes the transaction with id and publishes a deleted event. The
// record is read first only when events are enabled, so the event can carry
// its type and amount.
func (s *TransactionService) Delete(ctx context.Context, id string) error {
	var existing core.Transaction
	if s.events != nil {
		t, err := s.store.FindByID(ctx, id)
		if err != nil {
			return fmt.Errorf("delete transaction: %w", err)
		}
		existing = t
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	if s.events != nil {
		s.publish(ctx, amqp.EventTransactionDeleted, existing)
	}
	return nil
}

// Ping reports whether the store is reachable.
func (s *TransactionService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// publish never fails the caller: the change is already committed.
func (s *TransactionService) publish(ctx context.Context, event string, t core.Transaction) {
	if s.events == nil {
		slog.DebugContext(ctx, "Event publisher not configured, skipping event", "event", event, "id", t.ID)
		return
	}

	if err := s.events.PublishTransactionEvent(ctx, event, t); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"event", event,
			"id", t.ID,
			"error", err)
	}
}

// Close closes both storage and AMQP connections
func (s *TransactionService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.events != nil {
		if err := s.events.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close transaction service: %v", errs)
	}

	return nil
}
