// Package memory provides an in-memory implementation of core.Store.
// It backs tests and the default data backend when no SQLite path is
// configured. A unit of work holds the store lock for its whole
// duration, so a failing unit restores exactly its own snapshot and
// cannot erase writes committed around it.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"hogar/internal/core"
)

type tables struct {
	wallets      map[string]core.Wallet
	transactions map[string]core.Transaction
	statements   map[string]core.CreditCardStatement
	payments     map[string]core.CreditCardPayment
	categories   map[string]core.Category
}

func newTables() tables {
	return tables{
		wallets:      map[string]core.Wallet{},
		transactions: map[string]core.Transaction{},
		statements:   map[string]core.CreditCardStatement{},
		payments:     map[string]core.CreditCardPayment{},
		categories:   map[string]core.Category{},
	}
}

func (t tables) clone() tables {
	c := newTables()
	for k, v := range t.wallets {
		c.wallets[k] = v
	}
	for k, v := range t.transactions {
		c.transactions[k] = v
	}
	for k, v := range t.statements {
		c.statements[k] = v
	}
	for k, v := range t.payments {
		c.payments[k] = v
	}
	for k, v := range t.categories {
		c.categories[k] = v
	}
	return c
}

// Store is the in-memory core.Store.
type Store struct {
	mu sync.Mutex
	t  tables
}

func NewStore() *Store {
	return &Store{t: newTables()}
}

func (s *Store) Wallets() core.WalletRepo           { return walletRepo{s: s} }
func (s *Store) Transactions() core.TransactionRepo { return transactionRepo{s: s} }
func (s *Store) Statements() core.StatementRepo     { return statementRepo{s: s} }
func (s *Store) Payments() core.PaymentRepo         { return paymentRepo{s: s} }
func (s *Store) Categories() core.CategoryRepo      { return categoryRepo{s: s} }

// RunInTx runs fn as one unit of work. The store lock is held for the
// whole unit, so no other writer can interleave with it, and a failing
// fn restores the snapshot taken at entry. Nested calls on the view
// handed to fn join the enclosing unit.
func (s *Store) RunInTx(_ context.Context, fn func(core.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.t.clone()
	if err := fn(txStore{s}); err != nil {
		s.t = snapshot
		return err
	}
	return nil
}

// acquire locks the store unless the caller is already inside a unit
// of work, which holds the lock for its whole duration.
func (s *Store) acquire(held bool) func() {
	if held {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// txStore is the view handed to a unit of work. Its repositories skip
// locking and its RunInTx runs fn directly inside the enclosing unit.
type txStore struct{ s *Store }

func (t txStore) Wallets() core.WalletRepo           { return walletRepo{s: t.s, held: true} }
func (t txStore) Transactions() core.TransactionRepo { return transactionRepo{s: t.s, held: true} }
func (t txStore) Statements() core.StatementRepo     { return statementRepo{s: t.s, held: true} }
func (t txStore) Payments() core.PaymentRepo         { return paymentRepo{s: t.s, held: true} }
func (t txStore) Categories() core.CategoryRepo      { return categoryRepo{s: t.s, held: true} }

func (t txStore) RunInTx(_ context.Context, fn func(core.Store) error) error {
	return fn(t)
}

type walletRepo struct {
	s    *Store
	held bool
}

func (r walletRepo) Get(_ context.Context, id string) (*core.Wallet, error) {
	defer r.s.acquire(r.held)()
	w, ok := r.s.t.wallets[id]
	if !ok {
		return nil, &core.ReferentialError{Entity: "wallet", ID: id}
	}
	return &w, nil
}

func (r walletRepo) Put(_ context.Context, w *core.Wallet) error {
	defer r.s.acquire(r.held)()
	r.s.t.wallets[w.ID] = *w
	return nil
}

func (r walletRepo) ListByOwner(_ context.Context, owner string) ([]*core.Wallet, error) {
	defer r.s.acquire(r.held)()
	var out []*core.Wallet
	for _, w := range r.s.t.wallets {
		if w.Owner == owner {
			w := w
			out = append(out, &w)
		}
	}
	sortByID(out, func(w *core.Wallet) string { return w.ID })
	return out, nil
}

func (r walletRepo) ListCreditCards(_ context.Context, owner string) ([]*core.Wallet, error) {
	defer r.s.acquire(r.held)()
	var out []*core.Wallet
	for _, w := range r.s.t.wallets {
		if w.Kind != core.WalletCreditCard {
			continue
		}
		if owner != "" && w.Owner != owner {
			continue
		}
		w := w
		out = append(out, &w)
	}
	sortByID(out, func(w *core.Wallet) string { return w.ID })
	return out, nil
}

type transactionRepo struct {
	s    *Store
	held bool
}

func (r transactionRepo) Get(_ context.Context, id string) (*core.Transaction, error) {
	defer r.s.acquire(r.held)()
	t, ok := r.s.t.transactions[id]
	if !ok {
		return nil, &core.ReferentialError{Entity: "transaction", ID: id}
	}
	return &t, nil
}

func (r transactionRepo) Put(_ context.Context, t *core.Transaction) error {
	defer r.s.acquire(r.held)()
	r.s.t.transactions[t.ID] = *t
	return nil
}

func (r transactionRepo) Delete(_ context.Context, id string) error {
	defer r.s.acquire(r.held)()
	if _, ok := r.s.t.transactions[id]; !ok {
		return &core.ReferentialError{Entity: "transaction", ID: id}
	}
	delete(r.s.t.transactions, id)
	return nil
}

func (r transactionRepo) ListByWallet(_ context.Context, walletID string) ([]*core.Transaction, error) {
	defer r.s.acquire(r.held)()
	var out []*core.Transaction
	for _, t := range r.s.t.transactions {
		if t.WalletID == walletID || (t.Kind == core.TxTransfer && t.TargetWalletID == walletID) {
			t := t
			out = append(out, &t)
		}
	}
	sortByDate(out)
	return out, nil
}

func (r transactionRepo) ListByStatement(_ context.Context, statementID string) ([]*core.Transaction, error) {
	defer r.s.acquire(r.held)()
	var out []*core.Transaction
	for _, t := range r.s.t.transactions {
		if t.StatementID == statementID {
			t := t
			out = append(out, &t)
		}
	}
	sortByDate(out)
	return out, nil
}

type statementRepo struct {
	s    *Store
	held bool
}

func (r statementRepo) Get(_ context.Context, id string) (*core.CreditCardStatement, error) {
	defer r.s.acquire(r.held)()
	st, ok := r.s.t.statements[id]
	if !ok {
		return nil, &core.ReferentialError{Entity: "statement", ID: id}
	}
	return &st, nil
}

func (r statementRepo) Put(_ context.Context, st *core.CreditCardStatement) error {
	defer r.s.acquire(r.held)()
	r.s.t.statements[st.ID] = *st
	return nil
}

func (r statementRepo) OpenByWallet(_ context.Context, walletID string) (*core.CreditCardStatement, error) {
	defer r.s.acquire(r.held)()
	for _, st := range r.s.t.statements {
		if st.WalletID == walletID && st.Status == core.StatementOpen {
			st := st
			return &st, nil
		}
	}
	return nil, nil
}

func (r statementRepo) ListOpenEndedBefore(_ context.Context, cutoff time.Time) ([]*core.CreditCardStatement, error) {
	defer r.s.acquire(r.held)()
	var out []*core.CreditCardStatement
	for _, st := range r.s.t.statements {
		if st.Status == core.StatementOpen && st.PeriodEnd.Before(cutoff) {
			st := st
			out = append(out, &st)
		}
	}
	sortByID(out, func(s *core.CreditCardStatement) string { return s.ID })
	return out, nil
}

func (r statementRepo) ListUnpaidByOwner(_ context.Context, owner string) ([]*core.CreditCardStatement, error) {
	defer r.s.acquire(r.held)()
	var out []*core.CreditCardStatement
	for _, st := range r.s.t.statements {
		if st.Status == core.StatementPaid {
			continue
		}
		if owner != "" && st.Owner != owner {
			continue
		}
		st := st
		out = append(out, &st)
	}
	sortByID(out, func(s *core.CreditCardStatement) string { return s.ID })
	return out, nil
}

type paymentRepo struct {
	s    *Store
	held bool
}

func (r paymentRepo) Get(_ context.Context, id string) (*core.CreditCardPayment, error) {
	defer r.s.acquire(r.held)()
	p, ok := r.s.t.payments[id]
	if !ok {
		return nil, &core.ReferentialError{Entity: "payment", ID: id}
	}
	return &p, nil
}

func (r paymentRepo) Put(_ context.Context, p *core.CreditCardPayment) error {
	defer r.s.acquire(r.held)()
	r.s.t.payments[p.ID] = *p
	return nil
}

func (r paymentRepo) ListByStatement(_ context.Context, statementID string) ([]*core.CreditCardPayment, error) {
	defer r.s.acquire(r.held)()
	var out []*core.CreditCardPayment
	for _, p := range r.s.t.payments {
		if p.StatementID == statementID {
			p := p
			out = append(out, &p)
		}
	}
	sortByID(out, func(p *core.CreditCardPayment) string { return p.ID })
	return out, nil
}

type categoryRepo struct {
	s    *Store
	held bool
}

func (r categoryRepo) Get(_ context.Context, id string) (*core.Category, error) {
	defer r.s.acquire(r.held)()
	c, ok := r.s.t.categories[id]
	if !ok {
		return nil, &core.ReferentialError{Entity: "category", ID: id}
	}
	return &c, nil
}

func (r categoryRepo) FindOrCreate(_ context.Context, c *core.Category) (*core.Category, error) {
	defer r.s.acquire(r.held)()
	for _, existing := range r.s.t.categories {
		if existing.Owner == c.Owner && existing.Name == c.Name && existing.Kind == c.Kind {
			existing := existing
			return &existing, nil
		}
	}
	r.s.t.categories[c.ID] = *c
	out := *c
	return &out, nil
}

func sortByID[T any](items []*T, key func(*T) string) {
	sort.Slice(items, func(i, j int) bool { return key(items[i]) < key(items[j]) })
}

func sortByDate(items []*core.Transaction) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Date.Equal(items[j].Date) {
			return items[i].ID < items[j].ID
		}
		return items[i].Date.Before(items[j].Date)
	})
}
