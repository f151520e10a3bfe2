package statements

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"hogar/internal/core"
)

// Minimum payment is 5% of the statement balance with a fixed floor.
const (
	minimumPaymentRate  = 0.05
	minimumPaymentFloor = 2000 // cents
)

// Manager owns the statement lifecycle for credit-card wallets: it finds
// or opens the current statement, links in-period transactions, keeps the
// totals identity (currentBalance = charges - payments) and closes cycles.
type Manager struct {
	store core.Store
	clock core.Clock
	ids   core.IDGenerator
}

func NewManager(store core.Store, clock core.Clock, ids core.IDGenerator) *Manager {
	return &Manager{store: store, clock: clock, ids: ids}
}

// GetCurrentStatement returns the open statement for a credit-card
// wallet, creating one for the current billing period if absent.
func (m *Manager) GetCurrentStatement(ctx context.Context, walletID string) (*core.CreditCardStatement, error) {
	w, err := m.store.Wallets().Get(ctx, walletID)
	if err != nil {
		return nil, err
	}
	if w.Kind != core.WalletCreditCard {
		return nil, &core.ValidationError{Field: "walletId", Reason: "wallet is not a credit card"}
	}

	open, err := m.store.Statements().OpenByWallet(ctx, walletID)
	if err != nil {
		return nil, err
	}
	if open != nil {
		return open, nil
	}
	return m.openStatement(ctx, w, m.clock.Now())
}

// openStatement creates the open statement covering ref for the wallet.
func (m *Manager) openStatement(ctx context.Context, w *core.Wallet, ref time.Time) (*core.CreditCardStatement, error) {
	p, err := CalculatePeriod(w.ClosingDay, w.DueDay, ref)
	if err != nil {
		return nil, fmt.Errorf("calculate period for wallet %s: %w", w.ID, err)
	}

	now := m.clock.Now()
	st := &core.CreditCardStatement{
		ID:          m.ids.NewID(),
		WalletID:    w.ID,
		Owner:       w.Owner,
		PeriodStart: p.Start,
		PeriodEnd:   p.End,
		DueDate:     p.Due,
		Status:      core.StatementOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := m.store.Statements().Put(ctx, st); err != nil {
		return nil, fmt.Errorf("store statement: %w", err)
	}
	slog.InfoContext(ctx, "Opened credit card statement",
		"statement_id", st.ID,
		"wallet_id", w.ID,
		"period_start", p.Start.Format("2006-01-02"),
		"period_end", p.End.Format("2006-01-02"))
	return st, nil
}

// AddTransactionToStatement links a credit-card-sourced transaction to the
// wallet's current open statement when its date falls inside the period
// window. Out-of-window transactions are left unlinked; they belong to a
// cycle that is not the open one.
func (m *Manager) AddTransactionToStatement(ctx context.Context, tx *core.Transaction) error {
	w, err := m.store.Wallets().Get(ctx, tx.WalletID)
	if err != nil {
		return err
	}
	if w.Kind != core.WalletCreditCard {
		return &core.ValidationError{Field: "walletId", Reason: "transaction is not credit-card sourced"}
	}

	st, err := m.GetCurrentStatement(ctx, tx.WalletID)
	if err != nil {
		return err
	}

	window := Period{Start: st.PeriodStart, End: st.PeriodEnd}
	if !window.InWindow(tx.Date) {
		slog.DebugContext(ctx, "Transaction outside open statement window, not linked",
			"transaction_id", tx.ID,
			"statement_id", st.ID,
			"date", tx.Date.Format("2006-01-02"))
		return nil
	}

	tx.StatementID = st.ID
	if err := m.store.Transactions().Put(ctx, tx); err != nil {
		return fmt.Errorf("link transaction %s: %w", tx.ID, err)
	}
	_, err = m.UpdateStatementTotals(ctx, st.ID)
	return err
}

// UpdateStatementTotals recomputes charges, in-period payments, the
// current balance and the minimum payment from the linked transactions.
func (m *Manager) UpdateStatementTotals(ctx context.Context, statementID string) (*core.CreditCardStatement, error) {
	return RecomputeTotals(ctx, m.store, m.clock, statementID)
}

// RecomputeTotals is the totals recomputation shared with the payment
// processor, which needs to run it inside its own unit of work.
func RecomputeTotals(ctx context.Context, store core.Store, clock core.Clock, statementID string) (*core.CreditCardStatement, error) {
	st, err := store.Statements().Get(ctx, statementID)
	if err != nil {
		return nil, err
	}

	txs, err := store.Transactions().ListByStatement(ctx, statementID)
	if err != nil {
		return nil, fmt.Errorf("list statement transactions: %w", err)
	}

	var charges, payments int64
	for _, tx := range txs {
		if tx.Status != core.TxCompleted {
			continue
		}
		switch tx.Kind {
		case core.TxExpense:
			charges += tx.AmountCents
		case core.TxIncome:
			payments += tx.AmountCents
		}
	}

	st.TotalChargesCents = charges
	st.TotalPaymentsCents = payments
	st.CurrentBalanceCents = charges - payments
	st.MinimumPaymentCents = minimumPayment(st.CurrentBalanceCents)
	// A refund or void can drop the balance below what was already paid;
	// the statement is settled the moment that happens.
	if st.Status != core.StatementPaid && st.CurrentBalanceCents > 0 && st.PaidAmountCents >= st.CurrentBalanceCents {
		st.Status = core.StatementPaid
	}
	st.UpdatedAt = clock.Now()

	if err := store.Statements().Put(ctx, st); err != nil {
		return nil, fmt.Errorf("store statement totals: %w", err)
	}
	return st, nil
}

func minimumPayment(balanceCents int64) int64 {
	if balanceCents <= 0 {
		return 0
	}
	min := int64(float64(balanceCents)*minimumPaymentRate + 0.5)
	if min < minimumPaymentFloor {
		min = minimumPaymentFloor
	}
	if min > balanceCents {
		min = balanceCents
	}
	return min
}

// CloseStatement closes a statement and immediately opens the next
// period's statement for the same wallet, as one unit. Totals are
// recomputed once more before the status flips so a payment that raced
// the closing is still reflected.
func (m *Manager) CloseStatement(ctx context.Context, statementID string) (*core.CreditCardStatement, error) {
	var closed *core.CreditCardStatement
	err := m.store.RunInTx(ctx, func(s core.Store) error {
		before, err := s.Statements().Get(ctx, statementID)
		if err != nil {
			return err
		}
		if before.Status != core.StatementOpen {
			return &core.ValidationError{Field: "statementId", Reason: "statement is not open"}
		}

		st, err := RecomputeTotals(ctx, s, m.clock, statementID)
		if err != nil {
			return err
		}
		// The recompute settles fully covered statements itself; anything
		// still open closes here.
		if st.Status == core.StatementOpen {
			st.Status = core.StatementClosed
			st.UpdatedAt = m.clock.Now()
			if err := s.Statements().Put(ctx, st); err != nil {
				return fmt.Errorf("store closed statement: %w", err)
			}
		}

		w, err := s.Wallets().Get(ctx, st.WalletID)
		if err != nil {
			return err
		}
		next := NewManager(s, m.clock, m.ids)
		if _, err := next.openStatement(ctx, w, st.PeriodEnd.AddDate(0, 0, 1)); err != nil {
			return fmt.Errorf("open next statement: %w", err)
		}

		closed = st
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Closed credit card statement",
		"statement_id", closed.ID,
		"wallet_id", closed.WalletID,
		"status", string(closed.Status),
		"balance_cents", closed.CurrentBalanceCents)
	return closed, nil
}

// SweepResult reports one automatic closing pass.
type SweepResult struct {
	Closed int
	Errors []error
}

// ProcessAutomaticClosings closes every open statement whose period has
// ended. Failures are collected per statement so one corrupt record
// cannot block the rest of the batch.
func (m *Manager) ProcessAutomaticClosings(ctx context.Context) (SweepResult, error) {
	today := m.clock.Now()
	cutoff := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)

	due, err := m.store.Statements().ListOpenEndedBefore(ctx, cutoff)
	if err != nil {
		return SweepResult{}, fmt.Errorf("list statements to close: %w", err)
	}

	var res SweepResult
	for _, st := range due {
		if _, err := m.CloseStatement(ctx, st.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to close statement",
				"statement_id", st.ID,
				"wallet_id", st.WalletID,
				"error", err)
			res.Errors = append(res.Errors, fmt.Errorf("statement %s: %w", st.ID, err))
			continue
		}
		res.Closed++
	}

	slog.InfoContext(ctx, "Automatic statement closing complete",
		"closed", res.Closed,
		"failed", len(res.Errors),
		"candidates", len(due))
	return res, nil
}
