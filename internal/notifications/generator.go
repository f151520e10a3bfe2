// Package notifications derives credit-card alerts from wallets and
// statements. Nothing here is persisted: every scan rebuilds the full set
// and the presentation layer decides what to show.
package notifications

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"hogar/internal/core"
)

// Default thresholds for the combined scan.
const (
	DefaultDaysAhead     = 7
	DefaultClosingWindow = 3
	DefaultWarnUsage     = 0.70
	DefaultCritUsage     = 0.90
)

// Options tunes the thresholds the combined scan passes to the
// individual generators.
type Options struct {
	DaysAhead     int
	ClosingWindow int
	WarnUsage     float64
	CritUsage     float64
}

func DefaultOptions() Options {
	return Options{
		DaysAhead:     DefaultDaysAhead,
		ClosingWindow: DefaultClosingWindow,
		WarnUsage:     DefaultWarnUsage,
		CritUsage:     DefaultCritUsage,
	}
}

// Generator scans the store read-only and produces notifications.
type Generator struct {
	store core.Store
	clock core.Clock
	opts  Options
}

func NewGenerator(store core.Store, clock core.Clock) *Generator {
	return NewGeneratorWithOptions(store, clock, DefaultOptions())
}

// NewGeneratorWithOptions is NewGenerator with caller-chosen thresholds,
// typically from the worker's configuration.
func NewGeneratorWithOptions(store core.Store, clock core.Clock, opts Options) *Generator {
	return &Generator{store: store, clock: clock, opts: opts}
}

func (g *Generator) today() time.Time {
	now := g.clock.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// GenerateDueNotifications raises one notification per unpaid statement
// that is overdue or due within daysAhead days. Priority escalates with
// proximity: overdue is critical, due within a day high, within three
// days medium, otherwise low. Partially paid statements still short of
// the minimum payment additionally raise a minimum-payment alert.
func (g *Generator) GenerateDueNotifications(ctx context.Context, owner string, daysAhead int) ([]core.Notification, error) {
	stmts, err := g.store.Statements().ListUnpaidByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list unpaid statements: %w", err)
	}

	today := g.today()
	var out []core.Notification
	for _, st := range stmts {
		if st.RemainingCents() <= 0 {
			continue
		}
		days := daysBetween(today, st.DueDate)
		if days > daysAhead {
			continue
		}

		n := core.Notification{
			ID:           "due:" + st.ID,
			Owner:        st.Owner,
			WalletID:     st.WalletID,
			StatementID:  st.ID,
			AmountCents:  st.RemainingCents(),
			DaysUntilDue: days,
			DueDate:      st.DueDate,
		}
		switch {
		case days < 0:
			n.Type = core.NotifyOverdue
			n.Priority = core.PriorityCritical
			n.Message = fmt.Sprintf("Statement overdue by %d days, %s still owed", -days, core.FormatCents(n.AmountCents))
		case days <= 1:
			n.Type = core.NotifyDueSoon
			n.Priority = core.PriorityHigh
			n.Message = fmt.Sprintf("Statement due in %d days, %s owed", days, core.FormatCents(n.AmountCents))
		case days <= 3:
			n.Type = core.NotifyDueSoon
			n.Priority = core.PriorityMedium
			n.Message = fmt.Sprintf("Statement due in %d days, %s owed", days, core.FormatCents(n.AmountCents))
		default:
			n.Type = core.NotifyDueSoon
			n.Priority = core.PriorityLow
			n.Message = fmt.Sprintf("Statement due in %d days, %s owed", days, core.FormatCents(n.AmountCents))
		}
		out = append(out, n)

		if st.PaidAmountCents > 0 && st.PaidAmountCents < st.MinimumPaymentCents {
			out = append(out, core.Notification{
				ID:           "minpay:" + st.ID,
				Type:         core.NotifyMinimumPayment,
				Priority:     core.PriorityHigh,
				Owner:        st.Owner,
				WalletID:     st.WalletID,
				StatementID:  st.ID,
				AmountCents:  st.MinimumPaymentCents - st.PaidAmountCents,
				DaysUntilDue: days,
				DueDate:      st.DueDate,
				Message: fmt.Sprintf("Payments so far are %s short of the minimum payment",
					core.FormatCents(st.MinimumPaymentCents-st.PaidAmountCents)),
			})
		}
	}
	return out, nil
}

// GenerateClosingNotifications alerts when an open statement's period end
// is within windowDays.
func (g *Generator) GenerateClosingNotifications(ctx context.Context, owner string, windowDays int) ([]core.Notification, error) {
	stmts, err := g.store.Statements().ListUnpaidByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list statements: %w", err)
	}

	today := g.today()
	var out []core.Notification
	for _, st := range stmts {
		if st.Status != core.StatementOpen {
			continue
		}
		days := daysBetween(today, st.PeriodEnd)
		if days < 0 || days > windowDays {
			continue
		}
		priority := core.PriorityLow
		if days <= 1 {
			priority = core.PriorityMedium
		}
		out = append(out, core.Notification{
			ID:           "closing:" + st.ID,
			Type:         core.NotifyClosingSoon,
			Priority:     priority,
			Owner:        st.Owner,
			WalletID:     st.WalletID,
			StatementID:  st.ID,
			AmountCents:  st.CurrentBalanceCents,
			DaysUntilDue: days,
			DueDate:      st.PeriodEnd,
			Message:      fmt.Sprintf("Statement closes in %d days at %s", days, core.FormatCents(st.CurrentBalanceCents)),
		})
	}
	return out, nil
}

// GenerateCreditUsageNotifications flags credit-card wallets whose debt
// crosses the warning or critical share of their credit limit.
func (g *Generator) GenerateCreditUsageNotifications(ctx context.Context, owner string, warnPct, critPct float64) ([]core.Notification, error) {
	cards, err := g.store.Wallets().ListCreditCards(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list credit cards: %w", err)
	}

	var out []core.Notification
	for _, w := range cards {
		if !w.IsActive || w.CreditLimitCents <= 0 || w.BalanceCents >= 0 {
			continue
		}
		usage := float64(-w.BalanceCents) / float64(w.CreditLimitCents)
		if usage < warnPct {
			continue
		}
		priority := core.PriorityHigh
		if usage >= critPct {
			priority = core.PriorityCritical
		}
		out = append(out, core.Notification{
			ID:          "usage:" + w.ID,
			Type:        core.NotifyHighCreditUsage,
			Priority:    priority,
			Owner:       w.Owner,
			WalletID:    w.ID,
			AmountCents: -w.BalanceCents,
			Message:     fmt.Sprintf("Credit usage at %.0f%% of the %s limit", usage*100, core.FormatCents(w.CreditLimitCents)),
		})
	}
	return out, nil
}

// GetAllCreditCardNotifications runs the three scans concurrently, merges
// their output, drops duplicate ids and sorts by priority then due date.
func (g *Generator) GetAllCreditCardNotifications(ctx context.Context, owner string) ([]core.Notification, error) {
	var due, closing, usage []core.Notification

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		due, err = g.GenerateDueNotifications(ctx, owner, g.opts.DaysAhead)
		return err
	})
	eg.Go(func() error {
		var err error
		closing, err = g.GenerateClosingNotifications(ctx, owner, g.opts.ClosingWindow)
		return err
	})
	eg.Go(func() error {
		var err error
		usage, err = g.GenerateCreditUsageNotifications(ctx, owner, g.opts.WarnUsage, g.opts.CritUsage)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var out []core.Notification
	for _, n := range append(append(due, closing...), usage...) {
		if seen[n.ID] {
			continue
		}
		seen[n.ID] = true
		out = append(out, n)
	}

	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := core.PriorityRank(out[i].Priority), core.PriorityRank(out[j].Priority)
		if ri != rj {
			return ri < rj
		}
		return out[i].DueDate.Before(out[j].DueDate)
	})
	return out, nil
}

// Summary tallies notifications per priority and type.
type Summary struct {
	Total      int
	ByPriority map[core.Priority]int
	ByType     map[core.NotificationType]int
}

// GetNotificationSummary runs the combined scan and tallies the result.
func (g *Generator) GetNotificationSummary(ctx context.Context, owner string) (*Summary, error) {
	all, err := g.GetAllCreditCardNotifications(ctx, owner)
	if err != nil {
		return nil, err
	}
	s := &Summary{
		Total:      len(all),
		ByPriority: map[core.Priority]int{},
		ByType:     map[core.NotificationType]int{},
	}
	for _, n := range all {
		s.ByPriority[n.Priority]++
		s.ByType[n.Type]++
	}
	return s, nil
}

// daysBetween counts whole days from a to b, negative when b is past.
func daysBetween(a, b time.Time) int {
	a = time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	b = time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a) / (24 * time.Hour))
}
