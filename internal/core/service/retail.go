package service

import (
	"context"

	"github.com/vhoang/agritrace/internal/core/domain"
)

// SplitUnit carves smaller unit records out of one the caller owns. The
// children stay parented to the same pack so provenance walks are unchanged.
func (l *Ledger) SplitUnit(ctx context.Context, caller string, unitID uint64, quantities, prices []int64, contentRefs []string) ([]uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	unit, ok := l.units[unitID]
	if !ok {
		return nil, notFound("unit record", unitID)
	}
	if unit.Owner != caller {
		return nil, ErrNotOwner
	}
	total, err := splitTotal(quantities, prices, contentRefs)
	if err != nil {
		return nil, err
	}
	if total > unit.RemainingQuantity {
		return nil, ErrQuantityExceeded
	}

	unit.RemainingQuantity -= total
	if unit.RemainingQuantity == 0 {
		unit.Available = false
	}

	ids := make([]uint64, 0, len(quantities))
	for i := range quantities {
		l.lastUnitID++
		child := &domain.UnitRecord{
			ID:                l.lastUnitID,
			ParentID:          unit.ParentID,
			Owner:             caller,
			RemainingQuantity: quantities[i],
			UnitPrice:         prices[i],
			Available:         true,
			ContentRef:        contentRefs[i],
			CreatedAt:         l.now(),
		}
		l.units[child.ID] = child
		ids = append(ids, child.ID)
	}

	l.emit(domain.EventUnitsSplit, caller, 0, append([]uint64{unitID}, ids...)...)
	return ids, nil
}

// ListUnitForBuyers opens a unit the caller owns to end-buyer sales.
func (l *Ledger) ListUnitForBuyers(ctx context.Context, caller string, unitID uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	unit, ok := l.units[unitID]
	if !ok {
		return notFound("unit record", unitID)
	}
	if unit.Owner != caller {
		return ErrNotOwner
	}

	unit.ListedForBuyers = true
	unit.Available = true

	l.emit(domain.EventUnitListed, caller, 0, unitID)
	return nil
}

// Sell transfers quantity from a listed unit to the caller against exact
// payment, appends an immutable sale record snapshotting both parties'
// roles, and routes the payment to the unit owner. A first-time caller is
// recorded as a buyer.
func (l *Ledger) Sell(ctx context.Context, caller string, unitID uint64, quantity, payment int64) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	buyer := l.touch(caller)
	unit, ok := l.units[unitID]
	if !ok {
		return 0, notFound("unit record", unitID)
	}
	if !unit.Available || !unit.ListedForBuyers {
		return 0, ErrNotAvailable
	}
	if quantity <= 0 {
		return 0, ErrInvalidQuantity
	}
	if quantity > unit.RemainingQuantity {
		return 0, ErrInsufficientQuantity
	}
	if payment != quantity*unit.UnitPrice {
		return 0, ErrBadPayment
	}

	if buyer.Role == domain.RoleNone {
		buyer.Role = domain.RoleBuyer
	}

	unit.RemainingQuantity -= quantity
	if unit.RemainingQuantity == 0 {
		unit.Available = false
	}

	l.lastSaleID++
	sale := domain.SaleRecord{
		ID:         l.lastSaleID,
		UnitID:     unitID,
		Quantity:   quantity,
		UnitPrice:  unit.UnitPrice,
		Seller:     unit.Owner,
		Buyer:      caller,
		SellerRole: l.roleOf(unit.Owner),
		BuyerRole:  buyer.Role,
		Timestamp:  l.now(),
	}
	l.sales = append(l.sales, sale)

	l.settle(ctx, unit.Owner, payment)

	l.emit(domain.EventUnitSold, caller, payment, sale.ID, unitID)
	return sale.ID, nil
}

// OwnUnits returns every unit record owned by the given address.
func (l *Ledger) OwnUnits(owner string) []domain.UnitRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []domain.UnitRecord
	for id := uint64(1); id <= l.lastUnitID; id++ {
		if unit := l.units[id]; unit.Owner == owner {
			out = append(out, *unit)
		}
	}
	return out
}

// UnitsListedForBuyers returns every unit currently open to end buyers.
func (l *Ledger) UnitsListedForBuyers() []domain.UnitRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []domain.UnitRecord
	for id := uint64(1); id <= l.lastUnitID; id++ {
		if unit := l.units[id]; unit.Available && unit.ListedForBuyers {
			out = append(out, *unit)
		}
	}
	return out
}

// Unit returns a unit record by id.
func (l *Ledger) Unit(id uint64) (domain.UnitRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	unit, ok := l.units[id]
	if !ok {
		return domain.UnitRecord{}, notFound("unit record", id)
	}
	return *unit, nil
}

// Sale returns a sale record by id.
func (l *Ledger) Sale(id uint64) (domain.SaleRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if id == 0 || id > uint64(len(l.sales)) {
		return domain.SaleRecord{}, notFound("sale record", id)
	}
	return l.sales[id-1], nil
}

// PurchaseHistory returns every sale the address took part in, as buyer or
// seller, oldest first.
func (l *Ledger) PurchaseHistory(address string) []domain.SaleRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []domain.SaleRecord
	for _, sale := range l.sales {
		if sale.Buyer == address || sale.Seller == address {
			out = append(out, sale)
		}
	}
	return out
}
