package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"hogar/internal/core"
)

func TestRunInTxCommitsOnSuccess(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	err := s.RunInTx(ctx, func(st core.Store) error {
		return st.Wallets().Put(ctx, &core.Wallet{ID: "w1", Owner: "ana"})
	})
	if err != nil {
		t.Fatalf("unit of work: %v", err)
	}
	if _, err := s.Wallets().Get(ctx, "w1"); err != nil {
		t.Fatalf("committed write not visible: %v", err)
	}
}

func TestRunInTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	if err := s.Wallets().Put(ctx, &core.Wallet{ID: "kept", Owner: "ana"}); err != nil {
		t.Fatal(err)
	}

	err := s.RunInTx(ctx, func(st core.Store) error {
		if err := st.Wallets().Put(ctx, &core.Wallet{ID: "doomed", Owner: "ana"}); err != nil {
			return err
		}
		return errors.New("unit failed")
	})
	if err == nil {
		t.Fatal("expected the unit to fail")
	}

	if _, err := s.Wallets().Get(ctx, "doomed"); err == nil {
		t.Fatal("write inside the failed unit survived")
	}
	if _, err := s.Wallets().Get(ctx, "kept"); err != nil {
		t.Fatalf("pre-existing record lost: %v", err)
	}
}

func TestRunInTxNestedCallJoinsUnit(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	err := s.RunInTx(ctx, func(st core.Store) error {
		if err := st.Wallets().Put(ctx, &core.Wallet{ID: "outer", Owner: "ana"}); err != nil {
			return err
		}
		return st.RunInTx(ctx, func(inner core.Store) error {
			return inner.Wallets().Put(ctx, &core.Wallet{ID: "inner", Owner: "ana"})
		})
	})
	if err != nil {
		t.Fatalf("unit of work: %v", err)
	}
	for _, id := range []string{"outer", "inner"} {
		if _, err := s.Wallets().Get(ctx, id); err != nil {
			t.Fatalf("wallet %s not committed: %v", id, err)
		}
	}
}

func TestRunInTxOuterFailureDiscardsNestedWrites(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	err := s.RunInTx(ctx, func(st core.Store) error {
		if err := st.RunInTx(ctx, func(inner core.Store) error {
			return inner.Wallets().Put(ctx, &core.Wallet{ID: "nested", Owner: "ana"})
		}); err != nil {
			return err
		}
		return errors.New("outer failed")
	})
	if err == nil {
		t.Fatal("expected the unit to fail")
	}
	if _, err := s.Wallets().Get(ctx, "nested"); err == nil {
		t.Fatal("nested write survived the outer rollback")
	}
}

func TestRunInTxRollbackKeepsConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	entered := make(chan struct{})
	release := make(chan struct{})
	unitErr := make(chan error, 1)
	go func() {
		unitErr <- s.RunInTx(ctx, func(st core.Store) error {
			close(entered)
			if err := st.Wallets().Put(ctx, &core.Wallet{ID: "doomed", Owner: "ana"}); err != nil {
				return err
			}
			<-release
			return errors.New("unit failed")
		})
	}()

	// Start a writer while the unit is in flight. It must block until the
	// unit finishes and land after the rollback, never inside it.
	<-entered
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.Wallets().Put(ctx, &core.Wallet{ID: "bystander", Owner: "ben"}); err != nil {
			t.Errorf("concurrent put: %v", err)
		}
	}()
	time.Sleep(10 * time.Millisecond)
	close(release)

	if err := <-unitErr; err == nil {
		t.Fatal("expected the unit to fail")
	}
	wg.Wait()

	if _, err := s.Wallets().Get(ctx, "doomed"); err == nil {
		t.Fatal("write inside the failed unit survived")
	}
	w, err := s.Wallets().Get(ctx, "bystander")
	if err != nil {
		t.Fatalf("concurrent write was erased by the rollback: %v", err)
	}
	if w.Owner != "ben" {
		t.Fatalf("owner = %q, want ben", w.Owner)
	}
}
