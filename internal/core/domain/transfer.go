package domain

import "time"

// TransferRequest is a two-phase custody handoff: opened by a requester with
// payment escrowed, resolved exactly once by the pack owner.
type TransferRequest struct {
	ID               uint64
	PackID           uint64
	Requester        string
	Quantity         int64
	WantsRoleUpgrade bool
	EscrowedAmount   int64
	Resolved         bool
	Accepted         bool
	CreatedAt        time.Time
}
