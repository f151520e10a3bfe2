package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"hogar/internal/log"
	"hogar/internal/memory"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := log.New(log.DefaultConfig())
	srv := NewServer(":0", memory.NewStore(), nil, logger)
	ts := httptest.NewServer(srv.Server.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, ts *httptest.Server, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, ts.URL+path, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func createWallet(t *testing.T, ts *httptest.Server, body map[string]any) string {
	t.Helper()
	resp, decoded := doJSON(t, ts, http.MethodPost, "/wallets", body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create wallet status = %d, body %v", resp.StatusCode, decoded)
	}
	return decoded["id"].(string)
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := ts.Client().Get(ts.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s status = %d, want 200", path, resp.StatusCode)
		}
	}
}

func TestCreateWalletValidation(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{
			name: "valid bank wallet",
			body: map[string]any{"owner": "ana", "name": "Banco", "kind": "bank", "currency": "ARS"},
			want: http.StatusCreated,
		},
		{
			name: "unknown kind",
			body: map[string]any{"owner": "ana", "name": "X", "kind": "crypto", "currency": "ARS"},
			want: http.StatusBadRequest,
		},
		{
			name: "unsupported currency",
			body: map[string]any{"owner": "ana", "name": "X", "kind": "bank", "currency": "EUR"},
			want: http.StatusBadRequest,
		},
		{
			name: "missing owner",
			body: map[string]any{"name": "X", "kind": "bank", "currency": "ARS"},
			want: http.StatusBadRequest,
		},
		{
			name: "credit card without closing day",
			body: map[string]any{"owner": "ana", "name": "Visa", "kind": "credit_card", "currency": "ARS"},
			want: http.StatusBadRequest,
		},
		{
			name: "valid credit card",
			body: map[string]any{
				"owner": "ana", "name": "Visa", "kind": "credit_card", "currency": "ARS",
				"credit_limit_cents": 10000000, "closing_day": 15, "due_day": 10,
			},
			want: http.StatusCreated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, decoded := doJSON(t, ts, http.MethodPost, "/wallets", tt.body)
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d (body %v)", resp.StatusCode, tt.want, decoded)
			}
		})
	}
}

func TestGetMissingWalletReturns404(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := doJSON(t, ts, http.MethodGet, "/wallets/ghost", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestTransactionUpdatesBalanceAndStatement(t *testing.T) {
	ts := newTestServer(t)

	bank := createWallet(t, ts, map[string]any{
		"owner": "ana", "name": "Banco", "kind": "bank", "currency": "ARS",
		"balance_cents": 50000,
	})
	card := createWallet(t, ts, map[string]any{
		"owner": "ana", "name": "Visa", "kind": "credit_card", "currency": "ARS",
		"credit_limit_cents": 10000000, "closing_day": 28, "due_day": 10,
	})

	// Expense on the card links to the open statement and shows as debt.
	resp, decoded := doJSON(t, ts, http.MethodPost, "/transactions", map[string]any{
		"owner": "ana", "kind": "expense", "amount_cents": 23000,
		"currency": "ARS", "wallet_id": card,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create transaction status = %d, body %v", resp.StatusCode, decoded)
	}
	if decoded["statement_id"] == nil || decoded["statement_id"] == "" {
		t.Error("credit-card expense should be linked to a statement")
	}

	resp, decoded = doJSON(t, ts, http.MethodGet, "/wallets/"+card, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get wallet status = %d", resp.StatusCode)
	}
	if got := int64(decoded["balance_cents"].(float64)); got != -23000 {
		t.Errorf("card balance = %d, want -23000", got)
	}

	resp, decoded = doJSON(t, ts, http.MethodGet, "/wallets/"+card+"/statement", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get statement status = %d", resp.StatusCode)
	}
	if got := int64(decoded["current_balance_cents"].(float64)); got != 23000 {
		t.Errorf("statement balance = %d, want 23000", got)
	}

	// Income on the bank wallet.
	resp, _ = doJSON(t, ts, http.MethodPost, "/transactions", map[string]any{
		"owner": "ana", "kind": "income", "amount": "100.00",
		"currency": "ARS", "wallet_id": bank,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create income status = %d", resp.StatusCode)
	}

	resp, decoded = doJSON(t, ts, http.MethodGet, "/wallets/"+bank, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get wallet status = %d", resp.StatusCode)
	}
	if got := int64(decoded["balance_cents"].(float64)); got != 60000 {
		t.Errorf("bank balance = %d, want 60000", got)
	}
}

func TestVoidTransactionRestoresBalance(t *testing.T) {
	ts := newTestServer(t)

	bank := createWallet(t, ts, map[string]any{
		"owner": "ana", "name": "Banco", "kind": "bank", "currency": "ARS",
		"balance_cents": 50000,
	})

	resp, decoded := doJSON(t, ts, http.MethodPost, "/transactions", map[string]any{
		"owner": "ana", "kind": "expense", "amount_cents": 20000,
		"currency": "ARS", "wallet_id": bank,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create transaction status = %d", resp.StatusCode)
	}
	txID := decoded["id"].(string)

	resp, decoded = doJSON(t, ts, http.MethodPost, "/transactions/"+txID+"/void", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("void status = %d, body %v", resp.StatusCode, decoded)
	}
	if decoded["status"] != "void" {
		t.Errorf("status = %v, want void", decoded["status"])
	}

	// Voiding twice is rejected.
	resp, _ = doJSON(t, ts, http.MethodPost, "/transactions/"+txID+"/void", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("second void status = %d, want 400", resp.StatusCode)
	}

	resp, decoded = doJSON(t, ts, http.MethodGet, "/wallets/"+bank, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get wallet status = %d", resp.StatusCode)
	}
	if got := int64(decoded["balance_cents"].(float64)); got != 50000 {
		t.Errorf("balance after void = %d, want 50000", got)
	}
}

func TestPaymentFlow(t *testing.T) {
	ts := newTestServer(t)

	bank := createWallet(t, ts, map[string]any{
		"owner": "ana", "name": "Banco", "kind": "bank", "currency": "ARS",
		"balance_cents": 50000,
	})
	card := createWallet(t, ts, map[string]any{
		"owner": "ana", "name": "Visa", "kind": "credit_card", "currency": "ARS",
		"credit_limit_cents": 10000000, "closing_day": 28, "due_day": 10,
	})

	resp, _ := doJSON(t, ts, http.MethodPost, "/transactions", map[string]any{
		"owner": "ana", "kind": "expense", "amount_cents": 23000,
		"currency": "ARS", "wallet_id": card,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("charge status = %d", resp.StatusCode)
	}

	resp, decoded := doJSON(t, ts, http.MethodGet, "/wallets/"+card+"/statement", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("statement status = %d", resp.StatusCode)
	}
	stID := decoded["id"].(string)

	resp, decoded = doJSON(t, ts, http.MethodGet, "/statements/"+stID+"/suggestions", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("suggestions status = %d", resp.StatusCode)
	}
	if got := int64(decoded["full_cents"].(float64)); got != 23000 {
		t.Errorf("full_cents = %d, want 23000", got)
	}

	// Overpayment is rejected, not clamped.
	resp, _ = doJSON(t, ts, http.MethodPost, fmt.Sprintf("/statements/%s/payments", stID), map[string]any{
		"from_wallet_id": bank, "amount_cents": 30000,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("overpayment status = %d, want 400", resp.StatusCode)
	}

	resp, decoded = doJSON(t, ts, http.MethodPost, fmt.Sprintf("/statements/%s/payments", stID), map[string]any{
		"from_wallet_id": bank, "amount_cents": 23000,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("payment status = %d, body %v", resp.StatusCode, decoded)
	}
	st := decoded["statement"].(map[string]any)
	if st["status"] != "paid" {
		t.Errorf("statement status = %v, want paid", st["status"])
	}

	resp, decoded = doJSON(t, ts, http.MethodGet, "/wallets/"+bank, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get wallet status = %d", resp.StatusCode)
	}
	if got := int64(decoded["balance_cents"].(float64)); got != 27000 {
		t.Errorf("bank balance = %d, want 27000", got)
	}
}

func TestInsufficientFundsReturns422(t *testing.T) {
	ts := newTestServer(t)

	bank := createWallet(t, ts, map[string]any{
		"owner": "ana", "name": "Banco", "kind": "bank", "currency": "ARS",
		"balance_cents": 1000,
	})
	card := createWallet(t, ts, map[string]any{
		"owner": "ana", "name": "Visa", "kind": "credit_card", "currency": "ARS",
		"credit_limit_cents": 10000000, "closing_day": 28, "due_day": 10,
	})

	resp, _ := doJSON(t, ts, http.MethodPost, "/transactions", map[string]any{
		"owner": "ana", "kind": "expense", "amount_cents": 23000,
		"currency": "ARS", "wallet_id": card,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("charge status = %d", resp.StatusCode)
	}

	resp, decoded := doJSON(t, ts, http.MethodGet, "/wallets/"+card+"/statement", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("statement status = %d", resp.StatusCode)
	}
	stID := decoded["id"].(string)

	resp, _ = doJSON(t, ts, http.MethodPost, fmt.Sprintf("/statements/%s/payments", stID), map[string]any{
		"from_wallet_id": bank, "amount_cents": 23000,
	})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("payment status = %d, want 422", resp.StatusCode)
	}
}

func TestNotificationsEndpoints(t *testing.T) {
	ts := newTestServer(t)

	card := createWallet(t, ts, map[string]any{
		"owner": "ana", "name": "Visa", "kind": "credit_card", "currency": "ARS",
		"credit_limit_cents": 100000, "closing_day": 28, "due_day": 10,
	})

	// Push usage above the critical threshold.
	resp, _ := doJSON(t, ts, http.MethodPost, "/transactions", map[string]any{
		"owner": "ana", "kind": "expense", "amount_cents": 95000,
		"currency": "ARS", "wallet_id": card,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("charge status = %d", resp.StatusCode)
	}

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/notifications?owner=ana", nil)
	if err != nil {
		t.Fatal(err)
	}
	httpResp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer httpResp.Body.Close()
	if httpResp.StatusCode != http.StatusOK {
		t.Fatalf("notifications status = %d", httpResp.StatusCode)
	}
	var list []map[string]any
	if err := json.NewDecoder(httpResp.Body).Decode(&list); err != nil {
		t.Fatal(err)
	}
	found := false
	for _, n := range list {
		if n["type"] == "high_usage" && n["priority"] == "critical" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a critical high_usage notification, got %v", list)
	}

	resp, decoded := doJSON(t, ts, http.MethodGet, "/notifications/summary?owner=ana", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("summary status = %d", resp.StatusCode)
	}
	if got := int(decoded["total"].(float64)); got < 1 {
		t.Errorf("summary total = %d, want >= 1", got)
	}
}

func TestReconcileEndpoints(t *testing.T) {
	ts := newTestServer(t)

	bank := createWallet(t, ts, map[string]any{
		"owner": "ana", "name": "Banco", "kind": "bank", "currency": "ARS",
		"balance_cents": 99999, // seeded balance with no transaction history
	})

	resp, decoded := doJSON(t, ts, http.MethodGet, "/wallets/"+bank+"/balance", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("recalculate status = %d", resp.StatusCode)
	}
	if got := int64(decoded["delta_cents"].(float64)); got != -99999 {
		t.Errorf("delta = %d, want -99999", got)
	}

	resp, decoded = doJSON(t, ts, http.MethodPost, "/wallets/"+bank+"/balance/fix", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("fix status = %d", resp.StatusCode)
	}
	if got := int64(decoded["computed_cents"].(float64)); got != 0 {
		t.Errorf("computed = %d, want 0", got)
	}

	resp, decoded = doJSON(t, ts, http.MethodGet, "/wallets/"+bank, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get wallet status = %d", resp.StatusCode)
	}
	if got := int64(decoded["balance_cents"].(float64)); got != 0 {
		t.Errorf("balance after fix = %d, want 0", got)
	}
}
