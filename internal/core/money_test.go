package core

import "testing"

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"230.00", 23000, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestFormatCents(t *testing.T) {
	cases := []struct {
		in  int64
		out string
	}{
		{0, "0.00"},
		{5, "0.05"},
		{1234, "12.34"},
		{-5000000, "-50000.00"},
	}
	for _, tc := range cases {
		if got := FormatCents(tc.in); got != tc.out {
			t.Fatalf("FormatCents(%d) = %q, want %q", tc.in, got, tc.out)
		}
	}
}

func TestConvertCents(t *testing.T) {
	cases := []struct {
		cents int64
		rate  float64
		out   int64
	}{
		{10000, 0, 10000},     // no conversion
		{10000, 1000, 10000000}, // USD -> ARS style rate
		{333, 0.5, 167},       // half-up
		{100, 0.333, 33},
	}
	for _, tc := range cases {
		if got := ConvertCents(tc.cents, tc.rate); got != tc.out {
			t.Fatalf("ConvertCents(%d, %v) = %d, want %d", tc.cents, tc.rate, got, tc.out)
		}
	}
}

func TestTransactionValidate(t *testing.T) {
	base := Transaction{
		ID:          "t1",
		Owner:       "ana",
		Kind:        TxExpense,
		AmountCents: 1500,
		Currency:    ARS,
		WalletID:    "w1",
		Status:      TxCompleted,
	}

	t.Run("valid expense", func(t *testing.T) {
		tx := base
		if err := tx.Validate(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("zero amount", func(t *testing.T) {
		tx := base
		tx.AmountCents = 0
		if err := tx.Validate(); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("transfer to itself", func(t *testing.T) {
		tx := base
		tx.Kind = TxTransfer
		tx.TargetWalletID = tx.WalletID
		if err := tx.Validate(); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("transfer without target", func(t *testing.T) {
		tx := base
		tx.Kind = TxTransfer
		if err := tx.Validate(); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("expense with target", func(t *testing.T) {
		tx := base
		tx.TargetWalletID = "w2"
		if err := tx.Validate(); err == nil {
			t.Fatal("expected error")
		}
	})
}
