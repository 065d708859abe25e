package service

import (
	"context"

	"github.com/vhoang/agritrace/internal/core/domain"
)

// settle pushes amount to recipient through the payment gateway. A failed
// push never fails the operation that triggered it: the amount is credited
// to the recipient's pending balance instead, redeemable via Withdraw. The
// settling flag keeps a gateway call from being re-entered while another
// push by the same operation is outstanding; a re-entrant push is converted
// to a pending credit. Caller must hold the write lock.
func (l *Ledger) settle(ctx context.Context, recipient string, amount int64) {
	if amount <= 0 {
		return
	}
	if l.settling {
		l.credit(recipient, amount)
		return
	}

	l.settling = true
	err := l.gateway.Transfer(ctx, recipient, amount)
	l.settling = false

	if err != nil {
		l.logger.Warn("push transfer failed, crediting pending balance",
			"recipient", recipient, "amount", amount, "err", err)
		l.credit(recipient, amount)
	}
}

// credit accrues a pending balance for recipient. Caller must hold the
// write lock.
func (l *Ledger) credit(recipient string, amount int64) {
	l.pendingCredits[recipient] += amount
	l.emit(domain.EventCreditAccrued, recipient, amount)
}

// Withdraw drains the caller's pending credit. The credit is zeroed before
// the transfer; if the transfer fails the credit is reinstated and the
// caller must retry.
func (l *Ledger) Withdraw(ctx context.Context, caller string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	amount := l.pendingCredits[caller]
	if amount == 0 {
		return 0, ErrNothingToWithdraw
	}
	delete(l.pendingCredits, caller)

	l.settling = true
	err := l.gateway.Transfer(ctx, caller, amount)
	l.settling = false

	if err != nil {
		l.pendingCredits[caller] = amount
		return 0, ErrWithdrawFailed
	}

	l.emit(domain.EventCreditWithdrawn, caller, amount)
	return amount, nil
}

// PendingCredit returns the amount owed to an address but not yet pushed.
func (l *Ledger) PendingCredit(address string) int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.pendingCredits[address]
}
