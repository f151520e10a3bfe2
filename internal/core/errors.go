package core

import "fmt"

// Error taxonomy. Callers discriminate with errors.As:
//
//   - ValidationError: bad input, caller-correctable, nothing was mutated.
//   - ReferentialError: a referenced record is missing; fatal, propagate.
//   - InsufficientFundsError / InsufficientCreditError: expected
//     business-rule rejections, recoverable.
//   - PolicyWarning: advisory attached to a successful result, never an error.

// ValidationError reports input that fails a business rule before any
// mutation happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// ReferentialError reports a missing wallet, statement, transaction or
// category. These are never silently ignored.
type ReferentialError struct {
	Entity string
	ID     string
}

func (e *ReferentialError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

// InsufficientFundsError rejects a debit that a non-credit wallet cannot
// cover.
type InsufficientFundsError struct {
	WalletID       string
	AvailableCents int64
	RequestedCents int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("wallet %s has insufficient funds: available %s, requested %s",
		e.WalletID, FormatCents(e.AvailableCents), FormatCents(e.RequestedCents))
}

// InsufficientCreditError rejects a debit exceeding a credit-card wallet's
// available credit (limit plus current balance).
type InsufficientCreditError struct {
	WalletID       string
	AvailableCents int64
	RequestedCents int64
}

func (e *InsufficientCreditError) Error() string {
	return fmt.Sprintf("wallet %s has insufficient credit: available %s, requested %s",
		e.WalletID, FormatCents(e.AvailableCents), FormatCents(e.RequestedCents))
}

// PolicyWarning is a non-fatal advisory accompanying a successful result,
// e.g. a payment below the minimum. It is not an error and never blocks
// the operation it annotates.
type PolicyWarning struct {
	Code    string
	Message string
}
