// Package reconcile recomputes wallet balances from transaction history
// to detect drift and, on explicit request, repair it.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"hogar/internal/core"
)

// Service replays transaction history against stored balances.
type Service struct {
	store core.Store
	clock core.Clock
}

func NewService(store core.Store, clock core.Clock) *Service {
	return &Service{store: store, clock: clock}
}

// RecalculateBalance replays every completed transaction touching the
// wallet, as source or as transfer target, and returns the balance the
// history implies. The stored balance is not modified.
func (s *Service) RecalculateBalance(ctx context.Context, walletID string) (int64, error) {
	if _, err := s.store.Wallets().Get(ctx, walletID); err != nil {
		return 0, err
	}
	txs, err := s.store.Transactions().ListByWallet(ctx, walletID)
	if err != nil {
		return 0, fmt.Errorf("list wallet transactions: %w", err)
	}

	var balance int64
	for _, tx := range txs {
		if tx.Status != core.TxCompleted {
			continue
		}
		switch tx.Kind {
		case core.TxIncome:
			balance += tx.AmountCents
		case core.TxExpense:
			balance -= tx.AmountCents
		case core.TxTransfer:
			if tx.WalletID == walletID {
				balance -= tx.AmountCents
			}
			if tx.TargetWalletID == walletID {
				balance += tx.TargetAmountCents()
			}
		}
	}
	return balance, nil
}

// Repair reports one balance fix.
type Repair struct {
	WalletID      string
	StoredCents   int64
	ComputedCents int64
	DeltaCents    int64
	FixedAt       time.Time
}

// FixBalance overwrites the stored balance with the recalculated one and
// reports the delta. It is an explicit, audited repair; nothing in the
// engine calls it implicitly.
func (s *Service) FixBalance(ctx context.Context, walletID string) (*Repair, error) {
	var rep *Repair
	err := s.store.RunInTx(ctx, func(st core.Store) error {
		w, err := st.Wallets().Get(ctx, walletID)
		if err != nil {
			return err
		}
		computed, err := NewService(st, s.clock).RecalculateBalance(ctx, walletID)
		if err != nil {
			return err
		}

		rep = &Repair{
			WalletID:      walletID,
			StoredCents:   w.BalanceCents,
			ComputedCents: computed,
			DeltaCents:    computed - w.BalanceCents,
			FixedAt:       s.clock.Now(),
		}
		if rep.DeltaCents == 0 {
			return nil
		}

		w.BalanceCents = computed
		w.UpdatedAt = rep.FixedAt
		if err := st.Wallets().Put(ctx, w); err != nil {
			return fmt.Errorf("store repaired wallet: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Wallet balance reconciled",
		"wallet_id", walletID,
		"stored_cents", rep.StoredCents,
		"computed_cents", rep.ComputedCents,
		"delta_cents", rep.DeltaCents)
	return rep, nil
}
