package port

import "context"

type PaymentGateway interface {
	// Transfer pushes amount to recipient. A returned error means the push
	// did not happen; the caller decides how to compensate.
	Transfer(ctx context.Context, recipient string, amount int64) error
}
