package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"hogar/internal/core"
	"hogar/internal/memory"
)

var testNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestLedger(t *testing.T) (*Ledger, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	clock := core.ClockFunc(func() time.Time { return testNow })
	return New(store.Wallets(), clock), store
}

func putWallet(t *testing.T, store *memory.Store, id string, kind core.WalletKind, balance int64) {
	t.Helper()
	err := store.Wallets().Put(context.Background(), &core.Wallet{
		ID:           id,
		Owner:        "ana",
		Name:         id,
		Kind:         kind,
		Currency:     core.ARS,
		BalanceCents: balance,
		IsActive:     true,
	})
	if err != nil {
		t.Fatalf("put wallet: %v", err)
	}
}

func balance(t *testing.T, store *memory.Store, id string) int64 {
	t.Helper()
	w, err := store.Wallets().Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	return w.BalanceCents
}

func TestApplyIncome(t *testing.T) {
	l, store := newTestLedger(t)
	putWallet(t, store, "w1", core.WalletBank, 10000)

	tx := &core.Transaction{ID: "t1", Kind: core.TxIncome, AmountCents: 2500, WalletID: "w1", Status: core.TxCompleted}
	if err := l.Apply(context.Background(), tx); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := balance(t, store, "w1"); got != 12500 {
		t.Fatalf("balance = %d, want 12500", got)
	}
}

func TestApplyExpense(t *testing.T) {
	l, store := newTestLedger(t)
	putWallet(t, store, "w1", core.WalletBank, 10000)

	tx := &core.Transaction{ID: "t1", Kind: core.TxExpense, AmountCents: 2500, WalletID: "w1", Status: core.TxCompleted}
	if err := l.Apply(context.Background(), tx); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := balance(t, store, "w1"); got != 7500 {
		t.Fatalf("balance = %d, want 7500", got)
	}
}

func TestApplyTransferSameCurrency(t *testing.T) {
	l, store := newTestLedger(t)
	putWallet(t, store, "w1", core.WalletBank, 10000)
	putWallet(t, store, "w2", core.WalletPhysical, 500)

	tx := &core.Transaction{ID: "t1", Kind: core.TxTransfer, AmountCents: 3000, WalletID: "w1", TargetWalletID: "w2", Status: core.TxCompleted}
	if err := l.Apply(context.Background(), tx); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := balance(t, store, "w1"); got != 7000 {
		t.Fatalf("source balance = %d, want 7000", got)
	}
	if got := balance(t, store, "w2"); got != 3500 {
		t.Fatalf("target balance = %d, want 3500", got)
	}
}

func TestApplyTransferWithExchangeRate(t *testing.T) {
	l, store := newTestLedger(t)
	putWallet(t, store, "usd", core.WalletBank, 100000) // 1000.00 USD
	putWallet(t, store, "ars", core.WalletBank, 0)

	// 100 USD at 950 ARS/USD
	tx := &core.Transaction{ID: "t1", Kind: core.TxTransfer, AmountCents: 10000, WalletID: "usd", TargetWalletID: "ars", ExchangeRate: 950, Status: core.TxCompleted}
	if err := l.Apply(context.Background(), tx); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := balance(t, store, "usd"); got != 90000 {
		t.Fatalf("source balance = %d, want 90000", got)
	}
	if got := balance(t, store, "ars"); got != 9500000 {
		t.Fatalf("target balance = %d, want 9500000", got)
	}
}

func TestReverseRestoresBalanceExactly(t *testing.T) {
	l, store := newTestLedger(t)
	putWallet(t, store, "w1", core.WalletBank, 10000)
	putWallet(t, store, "w2", core.WalletCreditCard, -5000)

	txs := []*core.Transaction{
		{ID: "t1", Kind: core.TxIncome, AmountCents: 777, WalletID: "w1", Status: core.TxCompleted},
		{ID: "t2", Kind: core.TxExpense, AmountCents: 1250, WalletID: "w2", Status: core.TxCompleted},
		{ID: "t3", Kind: core.TxTransfer, AmountCents: 3333, WalletID: "w1", TargetWalletID: "w2", ExchangeRate: 1.5, Status: core.TxCompleted},
	}
	for _, tx := range txs {
		if err := l.Apply(context.Background(), tx); err != nil {
			t.Fatalf("apply %s: %v", tx.ID, err)
		}
		if err := l.Reverse(context.Background(), tx); err != nil {
			t.Fatalf("reverse %s: %v", tx.ID, err)
		}
	}
	if got := balance(t, store, "w1"); got != 10000 {
		t.Fatalf("w1 balance = %d, want 10000", got)
	}
	if got := balance(t, store, "w2"); got != -5000 {
		t.Fatalf("w2 balance = %d, want -5000", got)
	}
}

func TestApplyMissingWalletFails(t *testing.T) {
	l, _ := newTestLedger(t)

	tx := &core.Transaction{ID: "t1", Kind: core.TxExpense, AmountCents: 100, WalletID: "ghost", Status: core.TxCompleted}
	err := l.Apply(context.Background(), tx)
	var refErr *core.ReferentialError
	if !errors.As(err, &refErr) {
		t.Fatalf("expected ReferentialError, got %v", err)
	}
}

func TestApplyMissingTransferTargetLeavesSourceUntouched(t *testing.T) {
	l, store := newTestLedger(t)
	putWallet(t, store, "w1", core.WalletBank, 10000)

	tx := &core.Transaction{ID: "t1", Kind: core.TxTransfer, AmountCents: 100, WalletID: "w1", TargetWalletID: "ghost", Status: core.TxCompleted}
	if err := l.Apply(context.Background(), tx); err == nil {
		t.Fatal("expected error")
	}
	if got := balance(t, store, "w1"); got != 10000 {
		t.Fatalf("source mutated on failed transfer: balance = %d", got)
	}
}

func TestApplyStampsUpdatedAt(t *testing.T) {
	l, store := newTestLedger(t)
	putWallet(t, store, "w1", core.WalletBank, 0)

	tx := &core.Transaction{ID: "t1", Kind: core.TxIncome, AmountCents: 100, WalletID: "w1", Status: core.TxCompleted}
	if err := l.Apply(context.Background(), tx); err != nil {
		t.Fatalf("apply: %v", err)
	}
	w, _ := store.Wallets().Get(context.Background(), "w1")
	if !w.UpdatedAt.Equal(testNow) {
		t.Fatalf("UpdatedAt = %v, want %v", w.UpdatedAt, testNow)
	}
}
