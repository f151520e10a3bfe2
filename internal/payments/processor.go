// Package payments validates and executes payments from a funding wallet
// against a credit-card statement. All effects of one payment commit as a
// single storage unit: the payment record, the paired debit/credit
// transactions, both balance updates and the statement advance either all
// land or none do.
package payments

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"hogar/internal/core"
	"hogar/internal/ledger"
	"hogar/internal/statements"
)

// Result is what a successful payment returns: the payment record, the
// debit transaction on the funding wallet and the refreshed statement.
// Warnings carry non-fatal advisories (e.g. amount below the minimum).
type Result struct {
	Payment          *core.CreditCardPayment
	DebitTransaction *core.Transaction
	Statement        *core.CreditCardStatement
	Warnings         []core.PolicyWarning
}

// Processor executes credit-card payments.
type Processor struct {
	store      core.Store
	clock      core.Clock
	ids        core.IDGenerator
	categories *categoryResolver
}

func NewProcessor(store core.Store, clock core.Clock, ids core.IDGenerator) *Processor {
	return &Processor{
		store:      store,
		clock:      clock,
		ids:        ids,
		categories: newCategoryResolver(ids, clock),
	}
}

// ProcessPayment validates and executes a payment of amountCents from
// fromWalletID against the statement. Validation runs before any mutation;
// the mutations then commit atomically. The amount must not exceed what is
// still owed (currentBalance - paidAmount): larger amounts are rejected,
// never clamped.
func (p *Processor) ProcessPayment(ctx context.Context, statementID, fromWalletID string, amountCents int64, paymentDate time.Time) (*Result, error) {
	// Category resolution happens outside the payment unit: find-or-create
	// is idempotent under the uniqueness constraint, and a category that
	// outlives a failed payment is harmless.
	st, err := p.store.Statements().Get(ctx, statementID)
	if err != nil {
		return nil, err
	}
	card, err := p.store.Wallets().Get(ctx, st.WalletID)
	if err != nil {
		return nil, err
	}
	funder, err := p.store.Wallets().Get(ctx, fromWalletID)
	if err != nil {
		return nil, err
	}

	debitCategory, err := p.categories.resolve(ctx, p.store, funder.Owner, CategoryCreditCardPayment, core.CategoryExpense)
	if err != nil {
		return nil, err
	}
	creditCategory, err := p.categories.resolve(ctx, p.store, card.Owner, CategoryPaymentReceived, core.CategoryIncome)
	if err != nil {
		return nil, err
	}

	var res *Result
	err = p.store.RunInTx(ctx, func(s core.Store) error {
		// Re-read inside the unit so a racing sweep or payment is seen.
		st, err := s.Statements().Get(ctx, statementID)
		if err != nil {
			return err
		}
		funder, err := s.Wallets().Get(ctx, fromWalletID)
		if err != nil {
			return err
		}

		if err := validate(st, funder, amountCents); err != nil {
			return err
		}

		now := p.clock.Now()
		payment := &core.CreditCardPayment{
			ID:           p.ids.NewID(),
			StatementID:  st.ID,
			FromWalletID: funder.ID,
			AmountCents:  amountCents,
			Currency:     funder.Currency,
			PaymentDate:  paymentDate,
			CreatedAt:    now,
		}
		if err := s.Payments().Put(ctx, payment); err != nil {
			return fmt.Errorf("store payment: %w", err)
		}

		debit := &core.Transaction{
			ID:          p.ids.NewID(),
			Owner:       funder.Owner,
			Kind:        core.TxExpense,
			AmountCents: amountCents,
			Currency:    funder.Currency,
			WalletID:    funder.ID,
			CategoryID:  debitCategory,
			Date:        paymentDate,
			Status:      core.TxCompleted,
			Notes:       "Credit card payment " + payment.ID,
			CreatedAt:   now,
		}
		// The credit restores the card's balance. It intentionally carries
		// no statement link: what is owed against the statement is tracked
		// by paidAmount, while statement totals only reflect in-period
		// activity.
		credit := &core.Transaction{
			ID:          p.ids.NewID(),
			Owner:       card.Owner,
			Kind:        core.TxIncome,
			AmountCents: amountCents,
			Currency:    card.Currency,
			WalletID:    card.ID,
			CategoryID:  creditCategory,
			Date:        paymentDate,
			Status:      core.TxCompleted,
			Notes:       "Payment received " + payment.ID,
			CreatedAt:   now,
		}
		if err := s.Transactions().Put(ctx, debit); err != nil {
			return fmt.Errorf("store debit transaction: %w", err)
		}
		if err := s.Transactions().Put(ctx, credit); err != nil {
			return fmt.Errorf("store credit transaction: %w", err)
		}

		lgr := ledger.New(s.Wallets(), p.clock)
		if err := lgr.Apply(ctx, debit); err != nil {
			return fmt.Errorf("apply debit: %w", err)
		}
		if err := lgr.Apply(ctx, credit); err != nil {
			return fmt.Errorf("apply credit: %w", err)
		}

		st.PaidAmountCents += amountCents
		if st.PaidAmountCents >= st.CurrentBalanceCents {
			st.Status = core.StatementPaid
		}
		st.UpdatedAt = now
		if err := s.Statements().Put(ctx, st); err != nil {
			return fmt.Errorf("store statement: %w", err)
		}

		refreshed, err := statements.RecomputeTotals(ctx, s, p.clock, st.ID)
		if err != nil {
			return err
		}

		res = &Result{Payment: payment, DebitTransaction: debit, Statement: refreshed}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Warnings are judged against the statement as it stood before the
	// payment; the refreshed statement already includes its effect.
	res.Warnings = advisories(st, amountCents)

	slog.InfoContext(ctx, "Processed credit card payment",
		"payment_id", res.Payment.ID,
		"statement_id", statementID,
		"from_wallet", fromWalletID,
		"amount_cents", amountCents,
		"statement_status", string(res.Statement.Status))
	return res, nil
}

// validate applies every business check before the first mutation.
func validate(st *core.CreditCardStatement, funder *core.Wallet, amountCents int64) error {
	if st.Status == core.StatementPaid {
		return &core.ValidationError{Field: "statementId", Reason: "statement is already paid"}
	}
	if !funder.IsActive {
		return &core.ValidationError{Field: "fromWalletId", Reason: "funding wallet is inactive"}
	}
	if funder.ID == st.WalletID {
		return &core.ValidationError{Field: "fromWalletId", Reason: "cannot pay a card from itself"}
	}
	if amountCents <= 0 {
		return &core.ValidationError{Field: "amount", Reason: "amount must be positive"}
	}

	remaining := st.RemainingCents()
	if amountCents > remaining {
		return &core.ValidationError{
			Field: "amount",
			Reason: fmt.Sprintf("amount %s exceeds remaining statement balance %s",
				core.FormatCents(amountCents), core.FormatCents(remaining)),
		}
	}

	if funder.Kind == core.WalletCreditCard {
		if available := funder.AvailableCreditCents(); available < amountCents {
			return &core.InsufficientCreditError{
				WalletID:       funder.ID,
				AvailableCents: available,
				RequestedCents: amountCents,
			}
		}
		return nil
	}
	if funder.BalanceCents < amountCents {
		return &core.InsufficientFundsError{
			WalletID:       funder.ID,
			AvailableCents: funder.BalanceCents,
			RequestedCents: amountCents,
		}
	}
	return nil
}

// MakeMinimumPayment pays exactly the statement's minimum payment.
func (p *Processor) MakeMinimumPayment(ctx context.Context, statementID, fromWalletID string, paymentDate time.Time) (*Result, error) {
	st, err := p.store.Statements().Get(ctx, statementID)
	if err != nil {
		return nil, err
	}
	return p.ProcessPayment(ctx, statementID, fromWalletID, st.MinimumPaymentCents, paymentDate)
}

// PayFullBalance pays off everything still owed on the statement.
func (p *Processor) PayFullBalance(ctx context.Context, statementID, fromWalletID string, paymentDate time.Time) (*Result, error) {
	st, err := p.store.Statements().Get(ctx, statementID)
	if err != nil {
		return nil, err
	}
	return p.ProcessPayment(ctx, statementID, fromWalletID, st.RemainingCents(), paymentDate)
}
