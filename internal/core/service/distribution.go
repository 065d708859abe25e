package service

import (
	"context"

	"github.com/vhoang/agritrace/internal/core/domain"
)

// Acquire moves quantity from a production batch into a new distribution
// record owned by the caller. Distributor only; payment must equal
// quantity x the batch's unit price exactly and is routed to the producer.
func (l *Ledger) Acquire(ctx context.Context, caller string, productionID uint64, quantity, payment int64) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.touch(caller)
	if l.roleOf(caller) != domain.RoleDistributor {
		return 0, ErrWrongRole
	}
	rec, ok := l.productions[productionID]
	if !ok {
		return 0, notFound("production record", productionID)
	}
	if !rec.Active {
		return 0, ErrInactive
	}
	if rec.Visibility == domain.VisibilityPrivate && rec.Owner != caller {
		return 0, ErrNotVisible
	}
	if quantity <= 0 {
		return 0, ErrInvalidQuantity
	}
	if quantity > rec.RemainingQuantity {
		return 0, ErrInsufficientQuantity
	}
	if payment != quantity*rec.UnitPrice {
		return 0, ErrBadPayment
	}

	rec.RemainingQuantity -= quantity
	if rec.RemainingQuantity == 0 {
		rec.Active = false
	}

	l.lastDistributionID++
	dist := &domain.DistributionRecord{
		ID:                l.lastDistributionID,
		OriginID:          productionID,
		Owner:             caller,
		RemainingQuantity: quantity,
		AcquiredUnitPrice: rec.UnitPrice,
		ListedUnitPrice:   rec.UnitPrice,
		Visibility:        domain.VisibilityPrivate,
		CreatedAt:         l.now(),
		Active:            true,
	}
	l.distributions[dist.ID] = dist

	l.settle(ctx, rec.Owner, payment)

	l.emit(domain.EventDistributionMade, caller, payment, dist.ID, productionID)
	return dist.ID, nil
}

// SplitDistribution carves packs out of a distribution record the caller
// owns. All packs are created or none; the parent is debited by the sum.
func (l *Ledger) SplitDistribution(ctx context.Context, caller string, distributionID uint64, quantities, prices []int64, contentRefs []string) ([]uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	dist, ok := l.distributions[distributionID]
	if !ok {
		return nil, notFound("distribution record", distributionID)
	}
	if dist.Owner != caller {
		return nil, ErrNotOwner
	}
	total, err := splitTotal(quantities, prices, contentRefs)
	if err != nil {
		return nil, err
	}
	if total > dist.RemainingQuantity {
		return nil, ErrQuantityExceeded
	}

	dist.RemainingQuantity -= total
	if dist.RemainingQuantity == 0 {
		dist.Active = false
	}

	ids := make([]uint64, 0, len(quantities))
	for i := range quantities {
		l.lastPackID++
		pack := &domain.PackRecord{
			ID:                l.lastPackID,
			ParentID:          distributionID,
			Owner:             caller,
			RemainingQuantity: quantities[i],
			UnitPrice:         prices[i],
			Visibility:        domain.VisibilityPrivate,
			Available:         true,
			ContentRef:        contentRefs[i],
			CreatedAt:         l.now(),
		}
		l.packs[pack.ID] = pack
		ids = append(ids, pack.ID)
	}

	l.emit(domain.EventPacksSplit, caller, 0, append([]uint64{distributionID}, ids...)...)
	return ids, nil
}

// ListPack sets a pack's visibility for handoff. Public listing clears any
// restricted buyer; private listing requires one.
func (l *Ledger) ListPack(ctx context.Context, caller string, packID uint64, visibility domain.Visibility, restrictedBuyer string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	pack, ok := l.packs[packID]
	if !ok {
		return notFound("pack record", packID)
	}
	if pack.Owner != caller {
		return ErrNotOwner
	}

	switch visibility {
	case domain.VisibilityPublic:
		pack.Visibility = domain.VisibilityPublic
		pack.RestrictedBuyer = ""
	case domain.VisibilityPrivate:
		if restrictedBuyer == "" {
			return ErrRestrictedBuyerRequired
		}
		pack.Visibility = domain.VisibilityPrivate
		pack.RestrictedBuyer = restrictedBuyer
	default:
		return ErrInvalidVisibility
	}
	pack.Available = true

	l.emit(domain.EventPackListed, caller, 0, packID)
	return nil
}

// OwnDistributions returns every distribution record owned by the caller.
func (l *Ledger) OwnDistributions(caller string) []domain.DistributionRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []domain.DistributionRecord
	for id := uint64(1); id <= l.lastDistributionID; id++ {
		if rec := l.distributions[id]; rec.Owner == caller {
			out = append(out, *rec)
		}
	}
	return out
}

// PacksVisibleTo returns every available pack the caller may open a transfer
// against: packs the caller owns, public packs, and private packs naming the
// caller as restricted buyer.
func (l *Ledger) PacksVisibleTo(caller string) []domain.PackRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []domain.PackRecord
	for id := uint64(1); id <= l.lastPackID; id++ {
		pack := l.packs[id]
		if !pack.Available {
			continue
		}
		if pack.Owner == caller || pack.Visibility == domain.VisibilityPublic || pack.RestrictedBuyer == caller {
			out = append(out, *pack)
		}
	}
	return out
}

// Pack returns a pack record by id.
func (l *Ledger) Pack(id uint64) (domain.PackRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	pack, ok := l.packs[id]
	if !ok {
		return domain.PackRecord{}, notFound("pack record", id)
	}
	return *pack, nil
}

// splitTotal validates parallel split arguments and returns the summed
// quantity.
func splitTotal(quantities, prices []int64, contentRefs []string) (int64, error) {
	if len(quantities) != len(prices) || len(quantities) != len(contentRefs) {
		return 0, ErrLengthMismatch
	}
	if len(quantities) == 0 {
		return 0, ErrInvalidQuantity
	}
	var total int64
	for i := range quantities {
		if quantities[i] <= 0 || prices[i] <= 0 {
			return 0, ErrInvalidQuantity
		}
		total += quantities[i]
	}
	return total, nil
}
