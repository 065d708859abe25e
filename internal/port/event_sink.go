package port

import (
	"context"

	"github.com/vhoang/agritrace/internal/core/domain"
)

type EventJournal interface {
	// AppendEvent persists a ledger notification append-only
	AppendEvent(ctx context.Context, ev domain.Event) error

	// AppendSale persists a sale record append-only
	AppendSale(ctx context.Context, sale domain.SaleRecord) error

	// RecentEvents returns the newest events up to limit
	RecentEvents(ctx context.Context, limit int) ([]domain.Event, error)
}

type EventPublisher interface {
	// Publish fans a ledger notification out to external observers
	Publish(ctx context.Context, ev domain.Event) error
}
