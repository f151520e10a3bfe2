package payments

import (
	"context"
	"fmt"

	"hogar/internal/core"
)

// suggestedBump is added on top of the minimum when proposing a midway
// payment, so the suggestion is never a token amount above the minimum.
const suggestedBump = 5000 // cents

// Suggestions offers three payment options for a statement.
type Suggestions struct {
	StatementID    string
	MinimumCents   int64
	FullCents      int64
	SuggestedCents int64
}

// GetSuggestedPayments proposes minimum, full and a suggested amount:
// half of the remaining balance (at least minimum + 50.00), clamped into
// [minimum, remaining].
func (p *Processor) GetSuggestedPayments(ctx context.Context, statementID string) (*Suggestions, error) {
	st, err := p.store.Statements().Get(ctx, statementID)
	if err != nil {
		return nil, err
	}

	remaining := st.RemainingCents()
	if remaining < 0 {
		remaining = 0
	}
	minimum := st.MinimumPaymentCents
	if minimum > remaining {
		minimum = remaining
	}

	suggested := remaining / 2
	if floor := minimum + suggestedBump; suggested < floor {
		suggested = floor
	}
	if suggested < minimum {
		suggested = minimum
	}
	if suggested > remaining {
		suggested = remaining
	}

	return &Suggestions{
		StatementID:    st.ID,
		MinimumCents:   minimum,
		FullCents:      remaining,
		SuggestedCents: suggested,
	}, nil
}

// ValidatePaymentAmount applies the same hard ceiling as ProcessPayment
// without executing anything, and returns advisory warnings for amounts
// that are legal but inadvisable.
func (p *Processor) ValidatePaymentAmount(ctx context.Context, statementID string, amountCents int64) ([]core.PolicyWarning, error) {
	st, err := p.store.Statements().Get(ctx, statementID)
	if err != nil {
		return nil, err
	}
	if amountCents <= 0 {
		return nil, &core.ValidationError{Field: "amount", Reason: "amount must be positive"}
	}
	if remaining := st.RemainingCents(); amountCents > remaining {
		return nil, &core.ValidationError{
			Field: "amount",
			Reason: fmt.Sprintf("amount %s exceeds remaining statement balance %s",
				core.FormatCents(amountCents), core.FormatCents(remaining)),
		}
	}
	return advisories(st, amountCents), nil
}

// advisories computes the non-fatal warnings attached to a valid amount.
func advisories(st *core.CreditCardStatement, amountCents int64) []core.PolicyWarning {
	var warnings []core.PolicyWarning
	if st.MinimumPaymentCents > 0 && amountCents < st.MinimumPaymentCents {
		warnings = append(warnings, core.PolicyWarning{
			Code: "below_minimum",
			Message: fmt.Sprintf("payment %s is below the minimum payment %s",
				core.FormatCents(amountCents), core.FormatCents(st.MinimumPaymentCents)),
		})
	}
	if base := st.RemainingCents(); base > 0 && amountCents*10 < base {
		warnings = append(warnings, core.PolicyWarning{
			Code: "low_coverage",
			Message: fmt.Sprintf("payment %s covers less than 10%% of the statement balance %s",
				core.FormatCents(amountCents), core.FormatCents(base)),
		})
	}
	return warnings
}
