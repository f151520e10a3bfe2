// Package storage implements core.Store on SQLite. Timestamps are stored
// as RFC3339 UTC text, which compares correctly as strings, and the
// schema enforces the one-open-statement and unique-category invariants
// that the services rely on.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"hogar/internal/core"

	_ "modernc.org/sqlite"
)

// Whole seconds only: sub-second digits would break the lexical
// ordering of the stored strings ("...00.5Z" sorts before "...00Z").
const timeLayout = time.RFC3339

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteStore is the production core.Store.
type SQLiteStore struct {
	db *sql.DB
	q  queryer // db outside a unit of work, *sql.Tx inside
}

// Open opens (creating if necessary) the database at dbPath and runs
// migrations.
func Open(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db, q: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) Wallets() core.WalletRepo           { return walletRepo{s.q} }
func (s *SQLiteStore) Transactions() core.TransactionRepo { return transactionRepo{s.q} }
func (s *SQLiteStore) Statements() core.StatementRepo     { return statementRepo{s.q} }
func (s *SQLiteStore) Payments() core.PaymentRepo         { return paymentRepo{s.q} }
func (s *SQLiteStore) Categories() core.CategoryRepo      { return categoryRepo{s.q} }

// RunInTx runs fn against a transactional view of the store. A nested
// call joins the enclosing transaction.
func (s *SQLiteStore) RunInTx(ctx context.Context, fn func(core.Store) error) error {
	if _, nested := s.q.(*sql.Tx); nested {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(&SQLiteStore{db: s.db, q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func fmtTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(timeLayout, s)
}

type walletRepo struct{ q queryer }

const walletColumns = `id, owner, name, kind, currency, balance_cents, credit_limit_cents,
	closing_day, due_day, is_active, created_at, updated_at`

func scanWallet(row interface{ Scan(...any) error }) (*core.Wallet, error) {
	var w core.Wallet
	var created, updated string
	err := row.Scan(&w.ID, &w.Owner, &w.Name, &w.Kind, &w.Currency, &w.BalanceCents,
		&w.CreditLimitCents, &w.ClosingDay, &w.DueDay, &w.IsActive, &created, &updated)
	if err != nil {
		return nil, err
	}
	if w.CreatedAt, err = parseTime(created); err != nil {
		return nil, fmt.Errorf("parse wallet created_at: %w", err)
	}
	if w.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, fmt.Errorf("parse wallet updated_at: %w", err)
	}
	return &w, nil
}

func (r walletRepo) Get(ctx context.Context, id string) (*core.Wallet, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+walletColumns+` FROM wallets WHERE id = ?`, id)
	w, err := scanWallet(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &core.ReferentialError{Entity: "wallet", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get wallet: %w", err)
	}
	return w, nil
}

func (r walletRepo) Put(ctx context.Context, w *core.Wallet) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO wallets (`+walletColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			owner = excluded.owner,
			name = excluded.name,
			kind = excluded.kind,
			currency = excluded.currency,
			balance_cents = excluded.balance_cents,
			credit_limit_cents = excluded.credit_limit_cents,
			closing_day = excluded.closing_day,
			due_day = excluded.due_day,
			is_active = excluded.is_active,
			updated_at = excluded.updated_at`,
		w.ID, w.Owner, w.Name, w.Kind, w.Currency, w.BalanceCents, w.CreditLimitCents,
		w.ClosingDay, w.DueDay, w.IsActive, fmtTime(w.CreatedAt), fmtTime(w.UpdatedAt))
	if err != nil {
		return fmt.Errorf("put wallet %s: %w", w.ID, err)
	}
	return nil
}

func (r walletRepo) list(ctx context.Context, query string, args ...any) ([]*core.Wallet, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	defer rows.Close()

	var out []*core.Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan wallet: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (r walletRepo) ListByOwner(ctx context.Context, owner string) ([]*core.Wallet, error) {
	return r.list(ctx, `SELECT `+walletColumns+` FROM wallets WHERE owner = ? ORDER BY id`, owner)
}

func (r walletRepo) ListCreditCards(ctx context.Context, owner string) ([]*core.Wallet, error) {
	if owner == "" {
		return r.list(ctx, `SELECT `+walletColumns+` FROM wallets WHERE kind = ? ORDER BY id`,
			core.WalletCreditCard)
	}
	return r.list(ctx, `SELECT `+walletColumns+` FROM wallets WHERE kind = ? AND owner = ? ORDER BY id`,
		core.WalletCreditCard, owner)
}

type transactionRepo struct{ q queryer }

const transactionColumns = `id, owner, kind, amount_cents, currency, wallet_id, target_wallet_id,
	exchange_rate, category_id, date, statement_id, status, notes, created_at`

func scanTransaction(row interface{ Scan(...any) error }) (*core.Transaction, error) {
	var t core.Transaction
	var date, created string
	err := row.Scan(&t.ID, &t.Owner, &t.Kind, &t.AmountCents, &t.Currency, &t.WalletID,
		&t.TargetWalletID, &t.ExchangeRate, &t.CategoryID, &date, &t.StatementID,
		&t.Status, &t.Notes, &created)
	if err != nil {
		return nil, err
	}
	if t.Date, err = parseTime(date); err != nil {
		return nil, fmt.Errorf("parse transaction date: %w", err)
	}
	if t.CreatedAt, err = parseTime(created); err != nil {
		return nil, fmt.Errorf("parse transaction created_at: %w", err)
	}
	return &t, nil
}

func (r transactionRepo) Get(ctx context.Context, id string) (*core.Transaction, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &core.ReferentialError{Entity: "transaction", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

func (r transactionRepo) Put(ctx context.Context, t *core.Transaction) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			amount_cents = excluded.amount_cents,
			currency = excluded.currency,
			wallet_id = excluded.wallet_id,
			target_wallet_id = excluded.target_wallet_id,
			exchange_rate = excluded.exchange_rate,
			category_id = excluded.category_id,
			date = excluded.date,
			statement_id = excluded.statement_id,
			status = excluded.status,
			notes = excluded.notes`,
		t.ID, t.Owner, t.Kind, t.AmountCents, t.Currency, t.WalletID, t.TargetWalletID,
		t.ExchangeRate, t.CategoryID, fmtTime(t.Date), t.StatementID, t.Status, t.Notes,
		fmtTime(t.CreatedAt))
	if err != nil {
		return fmt.Errorf("put transaction %s: %w", t.ID, err)
	}
	return nil
}

func (r transactionRepo) Delete(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &core.ReferentialError{Entity: "transaction", ID: id}
	}
	return nil
}

func (r transactionRepo) list(ctx context.Context, query string, args ...any) ([]*core.Transaction, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []*core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r transactionRepo) ListByWallet(ctx context.Context, walletID string) ([]*core.Transaction, error) {
	return r.list(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE wallet_id = ? OR (kind = ? AND target_wallet_id = ?)
		ORDER BY date, id`,
		walletID, core.TxTransfer, walletID)
}

func (r transactionRepo) ListByStatement(ctx context.Context, statementID string) ([]*core.Transaction, error) {
	return r.list(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE statement_id = ? ORDER BY date, id`, statementID)
}

type statementRepo struct{ q queryer }

const statementColumns = `id, wallet_id, owner, period_start, period_end, due_date,
	total_charges_cents, total_payments_cents, current_balance_cents,
	minimum_payment_cents, paid_amount_cents, status, created_at, updated_at`

func scanStatement(row interface{ Scan(...any) error }) (*core.CreditCardStatement, error) {
	var s core.CreditCardStatement
	var start, end, due, created, updated string
	err := row.Scan(&s.ID, &s.WalletID, &s.Owner, &start, &end, &due,
		&s.TotalChargesCents, &s.TotalPaymentsCents, &s.CurrentBalanceCents,
		&s.MinimumPaymentCents, &s.PaidAmountCents, &s.Status, &created, &updated)
	if err != nil {
		return nil, err
	}
	for _, f := range []struct {
		dst *time.Time
		src string
	}{
		{&s.PeriodStart, start}, {&s.PeriodEnd, end}, {&s.DueDate, due},
		{&s.CreatedAt, created}, {&s.UpdatedAt, updated},
	} {
		if *f.dst, err = parseTime(f.src); err != nil {
			return nil, fmt.Errorf("parse statement time: %w", err)
		}
	}
	return &s, nil
}

func (r statementRepo) Get(ctx context.Context, id string) (*core.CreditCardStatement, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+statementColumns+` FROM credit_card_statements WHERE id = ?`, id)
	s, err := scanStatement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &core.ReferentialError{Entity: "statement", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get statement: %w", err)
	}
	return s, nil
}

func (r statementRepo) Put(ctx context.Context, s *core.CreditCardStatement) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO credit_card_statements (`+statementColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			period_start = excluded.period_start,
			period_end = excluded.period_end,
			due_date = excluded.due_date,
			total_charges_cents = excluded.total_charges_cents,
			total_payments_cents = excluded.total_payments_cents,
			current_balance_cents = excluded.current_balance_cents,
			minimum_payment_cents = excluded.minimum_payment_cents,
			paid_amount_cents = excluded.paid_amount_cents,
			status = excluded.status,
			updated_at = excluded.updated_at`,
		s.ID, s.WalletID, s.Owner, fmtTime(s.PeriodStart), fmtTime(s.PeriodEnd),
		fmtTime(s.DueDate), s.TotalChargesCents, s.TotalPaymentsCents,
		s.CurrentBalanceCents, s.MinimumPaymentCents, s.PaidAmountCents, s.Status,
		fmtTime(s.CreatedAt), fmtTime(s.UpdatedAt))
	if err != nil {
		return fmt.Errorf("put statement %s: %w", s.ID, err)
	}
	return nil
}

func (r statementRepo) list(ctx context.Context, query string, args ...any) ([]*core.CreditCardStatement, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list statements: %w", err)
	}
	defer rows.Close()

	var out []*core.CreditCardStatement
	for rows.Next() {
		s, err := scanStatement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan statement: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r statementRepo) OpenByWallet(ctx context.Context, walletID string) (*core.CreditCardStatement, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT `+statementColumns+` FROM credit_card_statements
		WHERE wallet_id = ? AND status = ?`, walletID, core.StatementOpen)
	s, err := scanStatement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get open statement: %w", err)
	}
	return s, nil
}

func (r statementRepo) ListOpenEndedBefore(ctx context.Context, cutoff time.Time) ([]*core.CreditCardStatement, error) {
	return r.list(ctx, `
		SELECT `+statementColumns+` FROM credit_card_statements
		WHERE status = ? AND period_end < ? ORDER BY id`,
		core.StatementOpen, fmtTime(cutoff))
}

func (r statementRepo) ListUnpaidByOwner(ctx context.Context, owner string) ([]*core.CreditCardStatement, error) {
	if owner == "" {
		return r.list(ctx, `
			SELECT `+statementColumns+` FROM credit_card_statements
			WHERE status != ? ORDER BY id`, core.StatementPaid)
	}
	return r.list(ctx, `
		SELECT `+statementColumns+` FROM credit_card_statements
		WHERE status != ? AND owner = ? ORDER BY id`, core.StatementPaid, owner)
}

type paymentRepo struct{ q queryer }

const paymentColumns = `id, statement_id, from_wallet_id, amount_cents, currency,
	payment_date, notes, created_at`

func scanPayment(row interface{ Scan(...any) error }) (*core.CreditCardPayment, error) {
	var p core.CreditCardPayment
	var date, created string
	err := row.Scan(&p.ID, &p.StatementID, &p.FromWalletID, &p.AmountCents, &p.Currency,
		&date, &p.Notes, &created)
	if err != nil {
		return nil, err
	}
	if p.PaymentDate, err = parseTime(date); err != nil {
		return nil, fmt.Errorf("parse payment date: %w", err)
	}
	if p.CreatedAt, err = parseTime(created); err != nil {
		return nil, fmt.Errorf("parse payment created_at: %w", err)
	}
	return &p, nil
}

func (r paymentRepo) Get(ctx context.Context, id string) (*core.CreditCardPayment, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM credit_card_payments WHERE id = ?`, id)
	p, err := scanPayment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &core.ReferentialError{Entity: "payment", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return p, nil
}

func (r paymentRepo) Put(ctx context.Context, p *core.CreditCardPayment) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO credit_card_payments (`+paymentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET notes = excluded.notes`,
		p.ID, p.StatementID, p.FromWalletID, p.AmountCents, p.Currency,
		fmtTime(p.PaymentDate), p.Notes, fmtTime(p.CreatedAt))
	if err != nil {
		return fmt.Errorf("put payment %s: %w", p.ID, err)
	}
	return nil
}

func (r paymentRepo) ListByStatement(ctx context.Context, statementID string) ([]*core.CreditCardPayment, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+paymentColumns+` FROM credit_card_payments
		WHERE statement_id = ? ORDER BY payment_date, id`, statementID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var out []*core.CreditCardPayment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type categoryRepo struct{ q queryer }

func (r categoryRepo) Get(ctx context.Context, id string) (*core.Category, error) {
	var c core.Category
	var created string
	err := r.q.QueryRowContext(ctx, `
		SELECT id, owner, name, kind, created_at FROM categories WHERE id = ?`, id).
		Scan(&c.ID, &c.Owner, &c.Name, &c.Kind, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &core.ReferentialError{Entity: "category", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	if c.CreatedAt, err = parseTime(created); err != nil {
		return nil, fmt.Errorf("parse category created_at: %w", err)
	}
	return &c, nil
}

// FindOrCreate leans on the UNIQUE(owner, name, kind) constraint: the
// insert is a no-op when the category already exists, and the following
// select returns the canonical row either way.
func (r categoryRepo) FindOrCreate(ctx context.Context, c *core.Category) (*core.Category, error) {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO categories (id, owner, name, kind, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(owner, name, kind) DO NOTHING`,
		c.ID, c.Owner, c.Name, c.Kind, fmtTime(c.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("insert category %q: %w", c.Name, err)
	}

	var out core.Category
	var created string
	err = r.q.QueryRowContext(ctx, `
		SELECT id, owner, name, kind, created_at FROM categories
		WHERE owner = ? AND name = ? AND kind = ?`,
		c.Owner, c.Name, c.Kind).
		Scan(&out.ID, &out.Owner, &out.Name, &out.Kind, &created)
	if err != nil {
		return nil, fmt.Errorf("select category %q: %w", c.Name, err)
	}
	if out.CreatedAt, err = parseTime(created); err != nil {
		return nil, fmt.Errorf("parse category created_at: %w", err)
	}
	return &out, nil
}
