package service

import (
	"context"

	"github.com/vhoang/agritrace/internal/core/domain"
)

// OpenTransfer starts a two-phase custody handoff for part of a pack. The
// payment is escrowed inside the request until the pack owner resolves it.
// Quantity is validated against the pack's state now only; concurrent open
// requests may together exceed the pack, and the first accepted wins.
func (l *Ledger) OpenTransfer(ctx context.Context, caller string, packID uint64, quantity int64, wantsRoleUpgrade bool, payment int64) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.touch(caller)
	pack, ok := l.packs[packID]
	if !ok {
		return 0, notFound("pack record", packID)
	}
	if !pack.Available {
		return 0, ErrNotAvailable
	}
	if pack.Visibility == domain.VisibilityPrivate && pack.RestrictedBuyer != "" &&
		caller != pack.RestrictedBuyer && caller != pack.Owner {
		return 0, ErrNotVisible
	}
	if quantity <= 0 {
		return 0, ErrInvalidQuantity
	}
	if quantity > pack.RemainingQuantity {
		return 0, ErrInsufficientQuantity
	}
	if payment != quantity*pack.UnitPrice {
		return 0, ErrBadPayment
	}

	l.lastTransferID++
	req := &domain.TransferRequest{
		ID:               l.lastTransferID,
		PackID:           packID,
		Requester:        caller,
		Quantity:         quantity,
		WantsRoleUpgrade: wantsRoleUpgrade,
		EscrowedAmount:   payment,
		CreatedAt:        l.now(),
	}
	l.transfers[req.ID] = req

	l.emit(domain.EventTransferOpened, caller, payment, req.ID, packID)
	return req.ID, nil
}

// ResolveTransfer settles an open request exactly once. Rejecting refunds
// the escrow and changes nothing else. Accepting re-validates the quantity
// against the pack's current state, debits the pack, hands a new unit record
// to the requester, releases the escrow to the pack owner, and promotes the
// requester to retailer if asked.
func (l *Ledger) ResolveTransfer(ctx context.Context, caller string, requestID uint64, accept bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	req, ok := l.transfers[requestID]
	if !ok {
		return notFound("transfer request", requestID)
	}
	if req.Resolved {
		return ErrAlreadyResolved
	}
	pack := l.packs[req.PackID]
	if pack.Owner != caller {
		return ErrNotPackOwner
	}

	if !accept {
		req.Resolved = true
		l.settle(ctx, req.Requester, req.EscrowedAmount)
		l.emit(domain.EventTransferResolved, caller, req.EscrowedAmount, req.ID, req.PackID)
		return nil
	}

	// Time may have passed since open; the pack may no longer cover the
	// request. Failing here leaves the request open and moves no funds.
	if req.Quantity > pack.RemainingQuantity {
		return ErrQuantityExceeded
	}

	pack.RemainingQuantity -= req.Quantity
	if pack.RemainingQuantity == 0 {
		pack.Available = false
	}

	l.lastUnitID++
	unit := &domain.UnitRecord{
		ID:                l.lastUnitID,
		ParentID:          req.PackID,
		Owner:             req.Requester,
		RemainingQuantity: req.Quantity,
		UnitPrice:         pack.UnitPrice,
		Available:         true,
		ContentRef:        pack.ContentRef,
		CreatedAt:         l.now(),
	}
	l.units[unit.ID] = unit

	req.Resolved = true
	req.Accepted = true

	l.settle(ctx, pack.Owner, req.EscrowedAmount)

	if req.WantsRoleUpgrade {
		l.promoteToRetailer(req.Requester)
	}

	l.emit(domain.EventTransferResolved, caller, req.EscrowedAmount, req.ID, req.PackID, unit.ID)
	return nil
}

// Transfer returns a transfer request by id.
func (l *Ledger) Transfer(id uint64) (domain.TransferRequest, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	req, ok := l.transfers[id]
	if !ok {
		return domain.TransferRequest{}, notFound("transfer request", id)
	}
	return *req, nil
}

// TransfersForPack returns every request ever opened against a pack.
func (l *Ledger) TransfersForPack(packID uint64) []domain.TransferRequest {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []domain.TransferRequest
	for id := uint64(1); id <= l.lastTransferID; id++ {
		if req := l.transfers[id]; req.PackID == packID {
			out = append(out, *req)
		}
	}
	return out
}
