package worker

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/ports"
)

// EventWorker consumes transaction change events and reconciles each one
// against the store, keeping a per-event tally.
type EventWorker struct {
	store  ports.TransactionReader
	logger *log.Logger

	mu     sync.Mutex
	counts map[string]int64
}

// Outcomes recorded by HandleEvent.
const (
	OutcomeVerified = "verified"
	OutcomeStale    = "stale"
	OutcomeGone     = "gone"
	OutcomeIgnored  = "ignored"
)

func NewEventWorker(store ports.TransactionReader, logger *log.Logger) *EventWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &EventWorker{
		store:  store,
		logger: logger.WithComponent(log.ComponentWorker),
		counts: make(map[string]int64),
	}
}

// HandleEvent processes one message. Only store failures are returned, so
// the message is requeued; every other outcome acknowledges it.
func (w *EventWorker) HandleEvent(ctx context.Context, ev *amqp.TransactionEvent) error {
	outcome, err := w.reconcile(ctx, ev)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to reconcile transaction event",
			log.FieldEvent, ev.Event,
			log.FieldTransactionID, ev.ID,
			log.FieldError, err,
			log.FieldErrorType, log.ErrorTypeDatabase)
		return err
	}

	w.mu.Lock()
	w.counts[ev.Event+"."+outcome]++
	w.mu.Unlock()
	return nil
}

func (w *EventWorker) reconcile(ctx context.Context, ev *amqp.TransactionEvent) (string, error) {
	fields := []any{
		log.FieldOperation, log.OpConsume,
		log.FieldEvent, ev.Event,
		log.FieldTransactionID, ev.ID,
		log.FieldType, ev.Type,
		log.FieldAmountCents, ev.AmountCents,
	}

	switch ev.Event {
	case amqp.EventTransactionCreated, amqp.EventTransactionUpdated, amqp.EventTransactionDeleted:
	default:
		w.logger.WarnContext(ctx, "Unknown transaction event", fields...)
		return OutcomeIgnored, nil
	}

	t, err := w.store.FindByID(ctx, ev.ID)
	switch {
	case errors.Is(err, core.ErrInvalidID):
		w.logger.WarnContext(ctx, "Transaction event with malformed id",
			append(fields, log.FieldErrorType, log.ErrorTypeValidation)...)
		return OutcomeIgnored, nil
	case errors.Is(err, core.ErrNotFound):
		if ev.Event == amqp.EventTransactionDeleted {
			w.logger.InfoContext(ctx, "Transaction deletion confirmed", fields...)
			return OutcomeVerified, nil
		}
		w.logger.InfoContext(ctx, "Transaction no longer exists",
			append(fields, log.FieldErrorType, log.ErrorTypeNotFound)...)
		return OutcomeGone, nil
	case err != nil:
		return "", fmt.Errorf("find transaction %s: %w", ev.ID, err)
	}

	if ev.Event == amqp.EventTransactionDeleted {
		w.logger.WarnContext(ctx, "Deleted transaction is still stored", fields...)
		return OutcomeStale, nil
	}
	if t.Type != ev.Type || t.Amount.Cents != ev.AmountCents {
		w.logger.InfoContext(ctx, "Transaction changed after event",
			append(fields, "stored_type", t.Type, "stored_amount_cents", t.Amount.Cents)...)
		return OutcomeStale, nil
	}

	w.logger.DebugContext(ctx, "Transaction event verified", fields...)
	return OutcomeVerified, nil
}

// Stats returns a copy of the tally, keyed "<event>.<outcome>".
func (w *EventWorker) Stats() map[string]int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return maps.Clone(w.counts)
}
