package service

import (
	"errors"
	"fmt"
)

// Error categories. Every operation failure wraps exactly one of these, so
// callers can match either the category or the specific error with errors.Is.
var (
	ErrAuthorization = errors.New("agritrace: authorization")
	ErrNotFound      = errors.New("agritrace: not found")
	ErrState         = errors.New("agritrace: invalid state")
	ErrConservation  = errors.New("agritrace: conservation")
	ErrPayment       = errors.New("agritrace: payment")
)

var (
	// Authorization
	ErrNotAdmin     = fmt.Errorf("%w: caller is not the admin", ErrAuthorization)
	ErrNotOwner     = fmt.Errorf("%w: caller does not own the record", ErrAuthorization)
	ErrNotPackOwner = fmt.Errorf("%w: caller does not own the pack", ErrAuthorization)
	ErrWrongRole    = fmt.Errorf("%w: caller role not permitted", ErrAuthorization)
	ErrNotVisible   = fmt.Errorf("%w: record is private", ErrAuthorization)

	// Admission
	ErrAlreadyHasRole = fmt.Errorf("%w: address already holds a role", ErrState)
	ErrAlreadyPending = fmt.Errorf("%w: admission request already pending", ErrState)
	ErrUnknownAddress = fmt.Errorf("%w: address never seen", ErrNotFound)
	ErrInvalidRole    = fmt.Errorf("%w: role not admissible", ErrState)

	// Inventory
	ErrInactive             = fmt.Errorf("%w: record is inactive", ErrState)
	ErrNotAvailable         = fmt.Errorf("%w: record is not available", ErrState)
	ErrInsufficientQuantity = fmt.Errorf("%w: quantity exceeds remaining", ErrConservation)
	ErrQuantityExceeded     = fmt.Errorf("%w: split quantities exceed remaining", ErrConservation)
	ErrLengthMismatch       = fmt.Errorf("%w: parallel argument lengths differ", ErrConservation)
	ErrInvalidQuantity      = fmt.Errorf("%w: quantity must be positive", ErrConservation)

	// Listing
	ErrRestrictedBuyerRequired = fmt.Errorf("%w: private listing requires a restricted buyer", ErrState)
	ErrInvalidVisibility       = fmt.Errorf("%w: unknown visibility", ErrState)

	// Transfer workflow
	ErrAlreadyResolved = fmt.Errorf("%w: transfer request already resolved", ErrState)

	// Settlement
	ErrBadPayment        = fmt.Errorf("%w: attached value does not match total", ErrPayment)
	ErrNothingToWithdraw = fmt.Errorf("%w: no pending credit", ErrPayment)
	ErrWithdrawFailed    = fmt.Errorf("%w: withdrawal transfer failed", ErrPayment)
)

// notFound wraps ErrNotFound with the record kind and id.
func notFound(kind string, id uint64) error {
	return fmt.Errorf("%w: %s %d", ErrNotFound, kind, id)
}
