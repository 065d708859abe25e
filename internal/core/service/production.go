package service

import (
	"context"

	"github.com/vhoang/agritrace/internal/core/domain"
)

// ProductionInput carries the fields of a new origin batch.
type ProductionInput struct {
	Name         string
	Period       string
	MaturityDays int64
	Quantity     int64
	UnitPrice    int64
	Location     string
	Visibility   domain.Visibility
	ContentRef   string
}

// ProductionUpdate carries optional field updates; zero values leave the
// field unchanged. SetActive is always applied.
type ProductionUpdate struct {
	Quantity   int64
	UnitPrice  int64
	Visibility domain.Visibility
	ContentRef string
	SetActive  bool
}

// CreateProduction allocates a new origin batch owned by the caller.
// Producer only.
func (l *Ledger) CreateProduction(ctx context.Context, caller string, in ProductionInput) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.touch(caller)
	if l.roleOf(caller) != domain.RoleProducer {
		return 0, ErrWrongRole
	}
	if in.Quantity <= 0 || in.UnitPrice <= 0 {
		return 0, ErrInvalidQuantity
	}

	l.lastProductionID++
	rec := &domain.ProductionRecord{
		ID:                l.lastProductionID,
		Owner:             caller,
		Name:              in.Name,
		Period:            in.Period,
		MaturityDays:      in.MaturityDays,
		OriginalQuantity:  in.Quantity,
		RemainingQuantity: in.Quantity,
		UnitPrice:         in.UnitPrice,
		Location:          in.Location,
		Visibility:        in.Visibility,
		ContentRef:        in.ContentRef,
		CreatedAt:         l.now(),
		Active:            true,
	}
	l.productions[rec.ID] = rec

	l.emit(domain.EventProductionCreated, caller, 0, rec.ID)
	return rec.ID, nil
}

// UpdateProduction applies field updates to a batch the caller owns.
func (l *Ledger) UpdateProduction(ctx context.Context, caller string, id uint64, up ProductionUpdate) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.productions[id]
	if !ok {
		return notFound("production record", id)
	}
	if rec.Owner != caller {
		return ErrNotOwner
	}

	if up.Quantity > 0 {
		// Restocking adjusts the original quantity by the same delta so the
		// conservation accounting over derived distributions stays exact.
		rec.OriginalQuantity += up.Quantity - rec.RemainingQuantity
		rec.RemainingQuantity = up.Quantity
	}
	if up.UnitPrice > 0 {
		rec.UnitPrice = up.UnitPrice
	}
	if up.Visibility != "" {
		rec.Visibility = up.Visibility
	}
	if up.ContentRef != "" {
		rec.ContentRef = up.ContentRef
	}
	rec.Active = up.SetActive && rec.RemainingQuantity > 0

	l.emit(domain.EventProductionUpdated, caller, 0, rec.ID)
	return nil
}

// OwnProductions returns every batch owned by the caller, oldest first.
func (l *Ledger) OwnProductions(caller string) []domain.ProductionRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []domain.ProductionRecord
	for id := uint64(1); id <= l.lastProductionID; id++ {
		if rec := l.productions[id]; rec.Owner == caller {
			out = append(out, *rec)
		}
	}
	return out
}

// PublicProductions returns every active, publicly visible batch, oldest
// first. This is the discovery query distributors browse.
func (l *Ledger) PublicProductions() []domain.ProductionRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []domain.ProductionRecord
	for id := uint64(1); id <= l.lastProductionID; id++ {
		if rec := l.productions[id]; rec.Active && rec.Visibility == domain.VisibilityPublic {
			out = append(out, *rec)
		}
	}
	return out
}

// Production returns a batch by id.
func (l *Ledger) Production(id uint64) (domain.ProductionRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rec, ok := l.productions[id]
	if !ok {
		return domain.ProductionRecord{}, notFound("production record", id)
	}
	return *rec, nil
}
