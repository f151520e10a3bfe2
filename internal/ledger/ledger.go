// Package ledger applies and reverses the balance effects of transactions.
// It is the only code path that mutates wallet balances.
package ledger

import (
	"context"

	"hogar/internal/core"
)

// Ledger posts transaction effects to wallets through a WalletRepo. When
// used inside a storage unit of work, construct it over the transactional
// repo so its writes join the unit.
type Ledger struct {
	wallets core.WalletRepo
	clock   core.Clock
}

func New(wallets core.WalletRepo, clock core.Clock) *Ledger {
	return &Ledger{wallets: wallets, clock: clock}
}

// Apply posts the transaction's effect: income credits the source wallet,
// expense debits it, transfer debits the source and credits the target,
// converting through the exchange rate when currencies differ. Missing
// wallets surface as ReferentialError before anything is written.
func (l *Ledger) Apply(ctx context.Context, tx *core.Transaction) error {
	return l.post(ctx, tx, +1)
}

// Reverse applies the exact inverse of Apply. Used before editing or
// deleting a posted transaction.
func (l *Ledger) Reverse(ctx context.Context, tx *core.Transaction) error {
	return l.post(ctx, tx, -1)
}

func (l *Ledger) post(ctx context.Context, tx *core.Transaction, sign int64) error {
	if err := tx.Validate(); err != nil {
		return err
	}

	source, err := l.wallets.Get(ctx, tx.WalletID)
	if err != nil {
		return err
	}

	now := l.clock.Now()

	switch tx.Kind {
	case core.TxIncome:
		source.BalanceCents += sign * tx.AmountCents
	case core.TxExpense:
		source.BalanceCents -= sign * tx.AmountCents
	case core.TxTransfer:
		// Resolve the target before mutating anything so a dangling
		// reference cannot leave a half-applied transfer.
		target, err := l.wallets.Get(ctx, tx.TargetWalletID)
		if err != nil {
			return err
		}
		source.BalanceCents -= sign * tx.AmountCents
		target.BalanceCents += sign * tx.TargetAmountCents()
		target.UpdatedAt = now
		if err := l.wallets.Put(ctx, target); err != nil {
			return err
		}
	}

	source.UpdatedAt = now
	return l.wallets.Put(ctx, source)
}
