package core

import "time"

// Currency codes supported by the engine.
type Currency string

const (
	ARS Currency = "ARS"
	USD Currency = "USD"
)

// WalletKind distinguishes how balances behave. Credit-card wallets carry
// negative balances representing debt and may have a credit limit and a
// billing cycle (closing day / due day).
type WalletKind string

const (
	WalletPhysical   WalletKind = "physical"
	WalletBank       WalletKind = "bank"
	WalletCreditCard WalletKind = "credit_card"
)

// Wallet is an account holding a balance in a single currency. The balance
// is mutated only through the ledger; everything else treats it as read-only.
type Wallet struct {
	ID               string
	Owner            string
	Name             string
	Kind             WalletKind
	Currency         Currency
	BalanceCents     int64 // signed; negative means debt on credit cards
	CreditLimitCents int64 // zero when not a credit card
	ClosingDay       int   // 1..31, credit cards only
	DueDay           int   // 1..31, days after closing, credit cards only
	IsActive         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// AvailableCreditCents is how much more a credit-card wallet can spend.
// Balance is negative while in debt, so this is limit minus current debt.
func (w *Wallet) AvailableCreditCents() int64 {
	return w.CreditLimitCents + w.BalanceCents
}

// TransactionKind is the direction of a transaction's balance effect.
type TransactionKind string

const (
	TxIncome   TransactionKind = "income"
	TxExpense  TransactionKind = "expense"
	TxTransfer TransactionKind = "transfer"
)

// TransactionStatus tracks a transaction's lifecycle. Only completed
// transactions count toward balances and statement totals.
type TransactionStatus string

const (
	TxPending   TransactionStatus = "pending"
	TxCompleted TransactionStatus = "completed"
	TxVoid      TransactionStatus = "void"
)

// Transaction is an immutable money movement. Edits go through
// reverse-then-reapply, never in-place mutation of a posted transaction.
type Transaction struct {
	ID             string
	Owner          string
	Kind           TransactionKind
	AmountCents    int64 // always positive; Kind gives the sign
	Currency       Currency
	WalletID       string
	TargetWalletID string  // transfers only
	ExchangeRate   float64 // transfers across currencies; 0 = same currency
	CategoryID     string
	Date           time.Time
	StatementID    string // set when linked to a credit-card statement
	Status         TransactionStatus
	Notes          string
	CreatedAt      time.Time
}

// TargetAmountCents is the amount credited to the target wallet of a
// transfer after currency conversion.
func (t *Transaction) TargetAmountCents() int64 {
	return ConvertCents(t.AmountCents, t.ExchangeRate)
}

// Validate checks structural correctness before a transaction is posted.
func (t *Transaction) Validate() error {
	if t.AmountCents <= 0 {
		return &ValidationError{Field: "amount", Reason: "amount must be positive"}
	}
	switch t.Kind {
	case TxIncome, TxExpense:
		if t.TargetWalletID != "" {
			return &ValidationError{Field: "targetWalletId", Reason: "only transfers have a target wallet"}
		}
	case TxTransfer:
		if t.TargetWalletID == "" {
			return &ValidationError{Field: "targetWalletId", Reason: "transfer requires a target wallet"}
		}
		if t.TargetWalletID == t.WalletID {
			return &ValidationError{Field: "targetWalletId", Reason: "transfer target must differ from source"}
		}
	default:
		return &ValidationError{Field: "kind", Reason: "unknown transaction kind: " + string(t.Kind)}
	}
	if t.WalletID == "" {
		return &ValidationError{Field: "walletId", Reason: "wallet is required"}
	}
	return nil
}

// StatementStatus is the lifecycle of a credit-card statement:
// open -> closed -> paid, or open -> paid directly.
type StatementStatus string

const (
	StatementOpen   StatementStatus = "open"
	StatementClosed StatementStatus = "closed"
	StatementPaid   StatementStatus = "paid"
)

// CreditCardStatement is a billing-cycle snapshot of a credit card.
// Invariant: CurrentBalanceCents == TotalChargesCents - TotalPaymentsCents,
// and at most one open statement exists per credit-card wallet.
type CreditCardStatement struct {
	ID                  string
	WalletID            string
	Owner               string
	PeriodStart         time.Time
	PeriodEnd           time.Time
	DueDate             time.Time
	TotalChargesCents   int64
	TotalPaymentsCents  int64 // in-period credits (refunds, adjustments)
	CurrentBalanceCents int64
	MinimumPaymentCents int64
	PaidAmountCents     int64 // accumulated credit-card payments
	Status              StatementStatus
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// RemainingCents is what is still owed against this statement.
func (s *CreditCardStatement) RemainingCents() int64 {
	return s.CurrentBalanceCents - s.PaidAmountCents
}

// CreditCardPayment records a payment made from a funding wallet against a
// statement. Multiple payments accumulate into the statement's paid amount.
type CreditCardPayment struct {
	ID           string
	StatementID  string
	FromWalletID string
	AmountCents  int64
	Currency     Currency
	PaymentDate  time.Time
	Notes        string
	CreatedAt    time.Time
}

// CategoryKind mirrors the transaction kinds a category can label.
type CategoryKind string

const (
	CategoryIncome  CategoryKind = "income"
	CategoryExpense CategoryKind = "expense"
)

// Category labels transactions. (Owner, Name, Kind) is unique so that
// find-or-create is idempotent.
type Category struct {
	ID        string
	Owner     string
	Name      string
	Kind      CategoryKind
	CreatedAt time.Time
}

// NotificationType classifies derived credit-card alerts.
type NotificationType string

const (
	NotifyDueSoon         NotificationType = "due_soon"
	NotifyOverdue         NotificationType = "overdue"
	NotifyClosingSoon     NotificationType = "closing_soon"
	NotifyMinimumPayment  NotificationType = "minimum_payment_alert"
	NotifyHighCreditUsage NotificationType = "high_usage"
)

// Priority orders notifications for presentation.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// PriorityRank maps priorities to a sortable weight, highest first.
func PriorityRank(p Priority) int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	default:
		return 3
	}
}

// Notification is a derived alert. It is never persisted; generators
// rebuild the full set on every scan.
type Notification struct {
	ID           string // deterministic per subject, used for de-duplication
	Type         NotificationType
	Priority     Priority
	Owner        string
	WalletID     string
	StatementID  string
	AmountCents  int64
	DaysUntilDue int
	DueDate      time.Time
	Message      string
}
