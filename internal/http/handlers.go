package http

import (
	"context"
	"net/http"
	"time"

	"hogar/internal/core"
	"hogar/internal/events"
	"hogar/internal/ledger"
	"hogar/internal/log"
	"hogar/internal/payments"
	"hogar/internal/statements"
)

type walletRequest struct {
	Owner            string `json:"owner"`
	Name             string `json:"name"`
	Kind             string `json:"kind"`
	Currency         string `json:"currency"`
	BalanceCents     int64  `json:"balance_cents"`
	CreditLimitCents int64  `json:"credit_limit_cents"`
	ClosingDay       int    `json:"closing_day"`
	DueDay           int    `json:"due_day"`
}

type walletResponse struct {
	ID               string `json:"id"`
	Owner            string `json:"owner"`
	Name             string `json:"name"`
	Kind             string `json:"kind"`
	Currency         string `json:"currency"`
	BalanceCents     int64  `json:"balance_cents"`
	CreditLimitCents int64  `json:"credit_limit_cents,omitempty"`
	ClosingDay       int    `json:"closing_day,omitempty"`
	DueDay           int    `json:"due_day,omitempty"`
	IsActive         bool   `json:"is_active"`
}

func toWalletResponse(w *core.Wallet) walletResponse {
	return walletResponse{
		ID:               w.ID,
		Owner:            w.Owner,
		Name:             w.Name,
		Kind:             string(w.Kind),
		Currency:         string(w.Currency),
		BalanceCents:     w.BalanceCents,
		CreditLimitCents: w.CreditLimitCents,
		ClosingDay:       w.ClosingDay,
		DueDay:           w.DueDay,
		IsActive:         w.IsActive,
	}
}

func (s *Server) handleCreateWallet(w http.ResponseWriter, r *http.Request) {
	var req walletRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	kind := core.WalletKind(req.Kind)
	switch kind {
	case core.WalletPhysical, core.WalletBank, core.WalletCreditCard:
	default:
		writeError(r.Context(), w, &core.ValidationError{Field: "kind", Reason: "unknown wallet kind: " + req.Kind})
		return
	}
	currency := core.Currency(req.Currency)
	if currency != core.ARS && currency != core.USD {
		writeError(r.Context(), w, &core.ValidationError{Field: "currency", Reason: "unsupported currency: " + req.Currency})
		return
	}
	if req.Owner == "" {
		writeError(r.Context(), w, &core.ValidationError{Field: "owner", Reason: "owner is required"})
		return
	}
	if kind == core.WalletCreditCard {
		if req.ClosingDay < 1 || req.ClosingDay > 31 {
			writeError(r.Context(), w, &core.ValidationError{Field: "closingDay", Reason: "closing day must be 1..31"})
			return
		}
		if req.DueDay < 1 || req.DueDay > 31 {
			writeError(r.Context(), w, &core.ValidationError{Field: "dueDay", Reason: "due day must be 1..31"})
			return
		}
	}

	now := s.clock.Now()
	wallet := &core.Wallet{
		ID:               s.ids.NewID(),
		Owner:            req.Owner,
		Name:             req.Name,
		Kind:             kind,
		Currency:         currency,
		BalanceCents:     req.BalanceCents,
		CreditLimitCents: req.CreditLimitCents,
		ClosingDay:       req.ClosingDay,
		DueDay:           req.DueDay,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.store.Wallets().Put(r.Context(), wallet); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusCreated, toWalletResponse(wallet))
}

func (s *Server) handleListWallets(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")
	if owner == "" {
		writeError(r.Context(), w, &core.ValidationError{Field: "owner", Reason: "owner query parameter is required"})
		return
	}
	wallets, err := s.store.Wallets().ListByOwner(r.Context(), owner)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	out := make([]walletResponse, 0, len(wallets))
	for _, wallet := range wallets {
		out = append(out, toWalletResponse(wallet))
	}
	writeJSON(r.Context(), w, http.StatusOK, out)
}

func (s *Server) handleGetWallet(w http.ResponseWriter, r *http.Request) {
	wallet, err := s.store.Wallets().Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, toWalletResponse(wallet))
}

type transactionRequest struct {
	Owner          string  `json:"owner"`
	Kind           string  `json:"kind"`
	AmountCents    int64   `json:"amount_cents"`
	Amount         string  `json:"amount,omitempty"` // decimal alternative to amount_cents
	Currency       string  `json:"currency"`
	WalletID       string  `json:"wallet_id"`
	TargetWalletID string  `json:"target_wallet_id,omitempty"`
	ExchangeRate   float64 `json:"exchange_rate,omitempty"`
	CategoryID     string  `json:"category_id,omitempty"`
	Date           string  `json:"date,omitempty"`
	Notes          string  `json:"notes,omitempty"`
}

type transactionResponse struct {
	ID             string  `json:"id"`
	Owner          string  `json:"owner"`
	Kind           string  `json:"kind"`
	AmountCents    int64   `json:"amount_cents"`
	Currency       string  `json:"currency"`
	WalletID       string  `json:"wallet_id"`
	TargetWalletID string  `json:"target_wallet_id,omitempty"`
	ExchangeRate   float64 `json:"exchange_rate,omitempty"`
	CategoryID     string  `json:"category_id,omitempty"`
	Date           string  `json:"date"`
	StatementID    string  `json:"statement_id,omitempty"`
	Status         string  `json:"status"`
	Notes          string  `json:"notes,omitempty"`
}

func toTransactionResponse(t *core.Transaction) transactionResponse {
	return transactionResponse{
		ID:             t.ID,
		Owner:          t.Owner,
		Kind:           string(t.Kind),
		AmountCents:    t.AmountCents,
		Currency:       string(t.Currency),
		WalletID:       t.WalletID,
		TargetWalletID: t.TargetWalletID,
		ExchangeRate:   t.ExchangeRate,
		CategoryID:     t.CategoryID,
		Date:           t.Date.Format(time.RFC3339),
		StatementID:    t.StatementID,
		Status:         string(t.Status),
		Notes:          t.Notes,
	}
}

// handleCreateTransaction posts a completed transaction: the record, the
// balance effect and the statement link (for credit-card expenses) commit
// as one unit.
func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	amount := req.AmountCents
	if req.Amount != "" {
		cents, err := core.ParseDecimalToCents(req.Amount)
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}
		amount = cents
	}
	date, err := parseDate(req.Date, s.clock.Now())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	tx := &core.Transaction{
		ID:             s.ids.NewID(),
		Owner:          req.Owner,
		Kind:           core.TransactionKind(req.Kind),
		AmountCents:    amount,
		Currency:       core.Currency(req.Currency),
		WalletID:       req.WalletID,
		TargetWalletID: req.TargetWalletID,
		ExchangeRate:   req.ExchangeRate,
		CategoryID:     req.CategoryID,
		Date:           date,
		Status:         core.TxCompleted,
		Notes:          req.Notes,
		CreatedAt:      s.clock.Now(),
	}
	if err := tx.Validate(); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	err = s.store.RunInTx(r.Context(), func(st core.Store) error {
		if err := st.Transactions().Put(r.Context(), tx); err != nil {
			return err
		}
		if err := ledger.New(st.Wallets(), s.clock).Apply(r.Context(), tx); err != nil {
			return err
		}

		wallet, err := st.Wallets().Get(r.Context(), tx.WalletID)
		if err != nil {
			return err
		}
		if wallet.Kind == core.WalletCreditCard && tx.Kind != core.TxTransfer {
			mgr := statements.NewManager(st, s.clock, s.ids)
			if err := mgr.AddTransactionToStatement(r.Context(), tx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	s.publish(r, events.EventWalletUpdated, tx.WalletID, tx.Owner, tx.AmountCents)
	writeJSON(r.Context(), w, http.StatusCreated, toTransactionResponse(tx))
}

// handleVoidTransaction reverses a posted transaction's balance effect
// and marks it void. Posted transactions are never edited in place.
func (s *Server) handleVoidTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var voided *core.Transaction
	err := s.store.RunInTx(r.Context(), func(st core.Store) error {
		tx, err := st.Transactions().Get(r.Context(), id)
		if err != nil {
			return err
		}
		if tx.Status != core.TxCompleted {
			return &core.ValidationError{Field: "status", Reason: "only completed transactions can be voided"}
		}

		if err := ledger.New(st.Wallets(), s.clock).Reverse(r.Context(), tx); err != nil {
			return err
		}
		tx.Status = core.TxVoid
		if err := st.Transactions().Put(r.Context(), tx); err != nil {
			return err
		}

		if tx.StatementID != "" {
			if _, err := statements.RecomputeTotals(r.Context(), st, s.clock, tx.StatementID); err != nil {
				return err
			}
		}
		voided = tx
		return nil
	})
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	s.publish(r, events.EventWalletUpdated, voided.WalletID, voided.Owner, voided.AmountCents)
	writeJSON(r.Context(), w, http.StatusOK, toTransactionResponse(voided))
}

type statementResponse struct {
	ID                  string `json:"id"`
	WalletID            string `json:"wallet_id"`
	Owner               string `json:"owner"`
	PeriodStart         string `json:"period_start"`
	PeriodEnd           string `json:"period_end"`
	DueDate             string `json:"due_date"`
	TotalChargesCents   int64  `json:"total_charges_cents"`
	TotalPaymentsCents  int64  `json:"total_payments_cents"`
	CurrentBalanceCents int64  `json:"current_balance_cents"`
	MinimumPaymentCents int64  `json:"minimum_payment_cents"`
	PaidAmountCents     int64  `json:"paid_amount_cents"`
	RemainingCents      int64  `json:"remaining_cents"`
	Status              string `json:"status"`
}

func toStatementResponse(st *core.CreditCardStatement) statementResponse {
	return statementResponse{
		ID:                  st.ID,
		WalletID:            st.WalletID,
		Owner:               st.Owner,
		PeriodStart:         st.PeriodStart.Format("2006-01-02"),
		PeriodEnd:           st.PeriodEnd.Format("2006-01-02"),
		DueDate:             st.DueDate.Format("2006-01-02"),
		TotalChargesCents:   st.TotalChargesCents,
		TotalPaymentsCents:  st.TotalPaymentsCents,
		CurrentBalanceCents: st.CurrentBalanceCents,
		MinimumPaymentCents: st.MinimumPaymentCents,
		PaidAmountCents:     st.PaidAmountCents,
		RemainingCents:      st.RemainingCents(),
		Status:              string(st.Status),
	}
}

func (s *Server) handleCurrentStatement(w http.ResponseWriter, r *http.Request) {
	st, err := s.statements.GetCurrentStatement(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, toStatementResponse(st))
}

func (s *Server) handleGetStatement(w http.ResponseWriter, r *http.Request) {
	st, err := s.store.Statements().Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, toStatementResponse(st))
}

func (s *Server) handleCloseStatement(w http.ResponseWriter, r *http.Request) {
	st, err := s.statements.CloseStatement(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	s.publish(r, events.EventStatementClosed, st.ID, st.Owner, st.CurrentBalanceCents)
	writeJSON(r.Context(), w, http.StatusOK, toStatementResponse(st))
}

type suggestionsResponse struct {
	StatementID    string `json:"statement_id"`
	MinimumCents   int64  `json:"minimum_cents"`
	FullCents      int64  `json:"full_cents"`
	SuggestedCents int64  `json:"suggested_cents"`
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	sug, err := s.payments.GetSuggestedPayments(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, suggestionsResponse{
		StatementID:    sug.StatementID,
		MinimumCents:   sug.MinimumCents,
		FullCents:      sug.FullCents,
		SuggestedCents: sug.SuggestedCents,
	})
}

type paymentRequest struct {
	FromWalletID string `json:"from_wallet_id"`
	AmountCents  int64  `json:"amount_cents"`
	Amount       string `json:"amount,omitempty"`
	Date         string `json:"date,omitempty"`
}

type warningResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type paymentResponse struct {
	PaymentID   string              `json:"payment_id"`
	AmountCents int64               `json:"amount_cents"`
	Statement   statementResponse   `json:"statement"`
	Warnings    []warningResponse   `json:"warnings,omitempty"`
	Transaction transactionResponse `json:"debit_transaction"`
}

func toPaymentResponse(res *payments.Result) paymentResponse {
	out := paymentResponse{
		PaymentID:   res.Payment.ID,
		AmountCents: res.Payment.AmountCents,
		Statement:   toStatementResponse(res.Statement),
		Transaction: toTransactionResponse(res.DebitTransaction),
	}
	for _, warning := range res.Warnings {
		out.Warnings = append(out.Warnings, warningResponse{Code: warning.Code, Message: warning.Message})
	}
	return out
}

func (s *Server) handleProcessPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	amount := req.AmountCents
	if req.Amount != "" {
		cents, err := core.ParseDecimalToCents(req.Amount)
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}
		amount = cents
	}
	date, err := parseDate(req.Date, s.clock.Now())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	res, err := s.payments.ProcessPayment(r.Context(), r.PathValue("id"), req.FromWalletID, amount, date)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	s.publish(r, events.EventPaymentProcessed, res.Payment.ID, res.Statement.Owner, res.Payment.AmountCents)
	writeJSON(r.Context(), w, http.StatusCreated, toPaymentResponse(res))
}

func (s *Server) handleMinimumPayment(w http.ResponseWriter, r *http.Request) {
	s.handleShortcutPayment(w, r, s.payments.MakeMinimumPayment)
}

func (s *Server) handleFullPayment(w http.ResponseWriter, r *http.Request) {
	s.handleShortcutPayment(w, r, s.payments.PayFullBalance)
}

func (s *Server) handleShortcutPayment(w http.ResponseWriter, r *http.Request,
	pay func(ctx context.Context, statementID, fromWalletID string, date time.Time) (*payments.Result, error)) {

	var req paymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	date, err := parseDate(req.Date, s.clock.Now())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	res, err := pay(r.Context(), r.PathValue("id"), req.FromWalletID, date)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	s.publish(r, events.EventPaymentProcessed, res.Payment.ID, res.Statement.Owner, res.Payment.AmountCents)
	writeJSON(r.Context(), w, http.StatusCreated, toPaymentResponse(res))
}

type notificationResponse struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	Priority     string `json:"priority"`
	Owner        string `json:"owner"`
	WalletID     string `json:"wallet_id"`
	StatementID  string `json:"statement_id,omitempty"`
	AmountCents  int64  `json:"amount_cents"`
	DaysUntilDue int    `json:"days_until_due,omitempty"`
	DueDate      string `json:"due_date,omitempty"`
	Message      string `json:"message"`
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")
	all, err := s.notifications.GetAllCreditCardNotifications(r.Context(), owner)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	out := make([]notificationResponse, 0, len(all))
	for _, n := range all {
		resp := notificationResponse{
			ID:           n.ID,
			Type:         string(n.Type),
			Priority:     string(n.Priority),
			Owner:        n.Owner,
			WalletID:     n.WalletID,
			StatementID:  n.StatementID,
			AmountCents:  n.AmountCents,
			DaysUntilDue: n.DaysUntilDue,
			Message:      n.Message,
		}
		if !n.DueDate.IsZero() {
			resp.DueDate = n.DueDate.Format("2006-01-02")
		}
		out = append(out, resp)
	}
	writeJSON(r.Context(), w, http.StatusOK, out)
}

type summaryResponse struct {
	Total      int            `json:"total"`
	ByPriority map[string]int `json:"by_priority"`
	ByType     map[string]int `json:"by_type"`
}

func (s *Server) handleNotificationSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.notifications.GetNotificationSummary(r.Context(), r.URL.Query().Get("owner"))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	resp := summaryResponse{
		Total:      sum.Total,
		ByPriority: make(map[string]int, len(sum.ByPriority)),
		ByType:     make(map[string]int, len(sum.ByType)),
	}
	for p, n := range sum.ByPriority {
		resp.ByPriority[string(p)] = n
	}
	for t, n := range sum.ByType {
		resp.ByType[string(t)] = n
	}
	writeJSON(r.Context(), w, http.StatusOK, resp)
}

type balanceResponse struct {
	WalletID      string `json:"wallet_id"`
	StoredCents   int64  `json:"stored_cents"`
	ComputedCents int64  `json:"computed_cents"`
	DeltaCents    int64  `json:"delta_cents"`
}

func (s *Server) handleRecalculateBalance(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	wallet, err := s.store.Wallets().Get(r.Context(), id)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	computed, err := s.reconcile.RecalculateBalance(r.Context(), id)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, balanceResponse{
		WalletID:      id,
		StoredCents:   wallet.BalanceCents,
		ComputedCents: computed,
		DeltaCents:    computed - wallet.BalanceCents,
	})
}

func (s *Server) handleFixBalance(w http.ResponseWriter, r *http.Request) {
	rep, err := s.reconcile.FixBalance(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	if rep.DeltaCents != 0 {
		s.publish(r, events.EventBalanceRepaired, rep.WalletID, "", rep.DeltaCents)
	}
	writeJSON(r.Context(), w, http.StatusOK, balanceResponse{
		WalletID:      rep.WalletID,
		StoredCents:   rep.StoredCents,
		ComputedCents: rep.ComputedCents,
		DeltaCents:    rep.DeltaCents,
	})
}

// publish emits a best-effort change event; failures are logged by the
// events client and never fail the request.
func (s *Server) publish(r *http.Request, eventType, entityID, owner string, amountCents int64) {
	event := events.NewChangeEvent(eventType, entityID)
	event.Owner = owner
	event.AmountCents = amountCents
	if err := s.events.Publish(r.Context(), event); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Failed to publish change event",
			"type", eventType, "entity_id", entityID, "error", err)
	}
}
