package service

import (
	"context"

	"github.com/vhoang/agritrace/internal/core/domain"
)

// RequestAdmission records the caller's wish to be admitted as a producer or
// distributor. The address joins the roster on first sight.
func (l *Ledger) RequestAdmission(ctx context.Context, caller string, role domain.Role, metadata []byte) error {
	if role != domain.RoleProducer && role != domain.RoleDistributor {
		return ErrInvalidRole
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	ident := l.touch(caller)
	if ident.Role != domain.RoleNone {
		return ErrAlreadyHasRole
	}
	if ident.PendingRequest {
		return ErrAlreadyPending
	}

	ident.PendingRequest = true
	ident.RequestRole = role
	ident.RequestMetadata = metadata
	ident.RequestedAt = l.now()

	l.emit(domain.EventAdmissionRequested, caller, 0)
	return nil
}

// ApproveAdmission grants a role to a previously seen address. Approving the
// same role again is idempotent and re-stamps the timestamp.
func (l *Ledger) ApproveAdmission(ctx context.Context, caller, address string, role domain.Role) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.admin {
		return ErrNotAdmin
	}
	ident, ok := l.identities[address]
	if !ok {
		return ErrUnknownAddress
	}
	switch role {
	case domain.RoleProducer, domain.RoleDistributor, domain.RoleRetailer:
	default:
		return ErrInvalidRole
	}

	ident.Role = role
	ident.PendingRequest = false
	ident.RequestRole = domain.RoleNone
	ident.RequestMetadata = nil
	ident.RequestedAt = l.now()

	l.emit(domain.EventAdmissionApproved, caller, 0)
	return nil
}

// RevokeAdmission resets an address's role to none. Inventory the address
// already owns is untouched.
func (l *Ledger) RevokeAdmission(ctx context.Context, caller, address string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.admin {
		return ErrNotAdmin
	}
	ident, ok := l.identities[address]
	if !ok {
		return ErrUnknownAddress
	}

	ident.Role = domain.RoleNone

	l.emit(domain.EventAdmissionRevoked, caller, 0)
	return nil
}

// promoteToRetailer upgrades an address to retailer unless it already holds
// a role of at least equal privilege. Caller must hold the write lock.
func (l *Ledger) promoteToRetailer(address string) {
	ident := l.touch(address)
	switch ident.Role {
	case domain.RoleNone, domain.RoleBuyer:
		ident.Role = domain.RoleRetailer
		l.emit(domain.EventRetailerPromoted, address, 0)
	}
}

// RoleOf returns the current role of an address, RoleNone if never seen.
func (l *Ledger) RoleOf(address string) domain.Role {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.roleOf(address)
}

// PendingRequests returns every identity with an outstanding admission
// request, in roster order.
func (l *Ledger) PendingRequests() []domain.Identity {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []domain.Identity
	for _, addr := range l.roster {
		if ident := l.identities[addr]; ident.PendingRequest {
			out = append(out, *ident)
		}
	}
	return out
}

// AddressesWithRole returns every address currently holding the given role,
// in roster order.
func (l *Ledger) AddressesWithRole(role domain.Role) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []string
	for _, addr := range l.roster {
		if l.identities[addr].Role == role {
			out = append(out, addr)
		}
	}
	return out
}

// RosterSize returns the number of distinct addresses ever seen.
func (l *Ledger) RosterSize() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.roster)
}
