package core

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Clock abstracts time for testability. Services never call time.Now
// directly.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock is the production clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// IDGenerator produces record identifiers.
type IDGenerator interface {
	NewID() string
}

// IDFunc adapts a function to the IDGenerator interface.
type IDFunc func() string

func (f IDFunc) NewID() string { return f() }

// UUIDGenerator is the production id generator.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string { return uuid.NewString() }

// WalletRepo is keyed-record access to wallets.
type WalletRepo interface {
	// Get returns the wallet or a *ReferentialError.
	Get(ctx context.Context, id string) (*Wallet, error)
	// Put inserts or replaces a wallet.
	Put(ctx context.Context, w *Wallet) error
	ListByOwner(ctx context.Context, owner string) ([]*Wallet, error)
	// ListCreditCards returns credit-card wallets, all owners when owner
	// is empty.
	ListCreditCards(ctx context.Context, owner string) ([]*Wallet, error)
}

// TransactionRepo is keyed-record access to transactions.
type TransactionRepo interface {
	Get(ctx context.Context, id string) (*Transaction, error)
	Put(ctx context.Context, t *Transaction) error
	Delete(ctx context.Context, id string) error
	// ListByWallet returns transactions where the wallet is the source or
	// the transfer target, ordered by date.
	ListByWallet(ctx context.Context, walletID string) ([]*Transaction, error)
	ListByStatement(ctx context.Context, statementID string) ([]*Transaction, error)
}

// StatementRepo is keyed-record access to credit-card statements.
type StatementRepo interface {
	Get(ctx context.Context, id string) (*CreditCardStatement, error)
	Put(ctx context.Context, s *CreditCardStatement) error
	// OpenByWallet returns the single open statement for a wallet, or
	// (nil, nil) when there is none.
	OpenByWallet(ctx context.Context, walletID string) (*CreditCardStatement, error)
	// ListOpenEndedBefore returns open statements whose period end is
	// strictly before the cutoff; feeds the closing sweep.
	ListOpenEndedBefore(ctx context.Context, cutoff time.Time) ([]*CreditCardStatement, error)
	// ListUnpaidByOwner returns statements not yet fully paid, all owners
	// when owner is empty.
	ListUnpaidByOwner(ctx context.Context, owner string) ([]*CreditCardStatement, error)
}

// PaymentRepo is keyed-record access to credit-card payments.
type PaymentRepo interface {
	Get(ctx context.Context, id string) (*CreditCardPayment, error)
	Put(ctx context.Context, p *CreditCardPayment) error
	ListByStatement(ctx context.Context, statementID string) ([]*CreditCardPayment, error)
}

// CategoryRepo is keyed-record access to categories. FindOrCreate is
// idempotent under the (owner, name, kind) uniqueness constraint.
type CategoryRepo interface {
	Get(ctx context.Context, id string) (*Category, error)
	// FindOrCreate returns the existing category matching c's owner, name
	// and kind, inserting c when absent.
	FindOrCreate(ctx context.Context, c *Category) (*Category, error)
}

// Store aggregates the record repositories behind one port. RunInTx runs
// fn against a transactional view of the store: every mutation inside fn
// commits together or not at all. Implementations may execute nested
// RunInTx calls within the outer unit.
type Store interface {
	Wallets() WalletRepo
	Transactions() TransactionRepo
	Statements() StatementRepo
	Payments() PaymentRepo
	Categories() CategoryRepo
	RunInTx(ctx context.Context, fn func(Store) error) error
}
