package ports

import (
	"context"
	"time"

	"ledger/internal/core"
)

// Ports between the HTTP layer, the service and the outbound adapters.
type (
	TransactionWriter interface {
		Create(ctx context.Context, d core.Draft) (core.Transaction, error)
		Update(ctx context.Context, id string, d core.Draft) (core.Transaction, error)
		Delete(ctx context.Context, id string) error
	}

	TransactionReader interface {
		FindByID(ctx context.Context, id string) (core.Transaction, error)
		// List returns one page of matches and the total match count.
		List(ctx context.Context, f core.TransactionFilter, limit, offset int) ([]core.Transaction, int64, error)
	}

	TransactionStore interface {
		TransactionWriter
		TransactionReader
		Ping(ctx context.Context) error
		Close() error
	}

	// AnalyticsReader provides aggregated views computed by the store.
	AnalyticsReader interface {
		Summary(ctx context.Context) (core.Summary, error)
		// CategoryBreakdown totals per category; an empty typ means all types.
		CategoryBreakdown(ctx context.Context, typ core.TransactionType) ([]core.CategoryTotal, error)
		MonthlyTrends(ctx context.Context, since time.Time) (core.MonthlyTrends, error)
		Recent(ctx context.Context, n int) ([]core.Transaction, error)
		Categories(ctx context.Context, typ core.TransactionType) ([]string, error)
	}

	// EventPublisher announces committed transaction changes.
	EventPublisher interface {
		PublishTransactionEvent(ctx context.Context, event string, t core.Transaction) error
		Close() error
	}
)
