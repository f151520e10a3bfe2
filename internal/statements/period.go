// Package statements manages credit-card billing cycles: the pure period
// calculator, the statement manager that opens, accumulates and rolls
// statements, and the automatic closing sweep.
package statements

import (
	"time"

	"hogar/internal/core"
)

// Period is one billing cycle. Start and End are dates at midnight UTC;
// the window is inclusive on both ends. Due is End plus the wallet's due
// days.
type Period struct {
	Start time.Time
	End   time.Time
	Due   time.Time
}

// CalculatePeriod maps a billing-cycle configuration and a reference date
// to period boundaries. The end is the closing-day occurrence in the
// reference month when the reference date falls on or before it, otherwise
// the next month's occurrence; the boundary is always current-or-next,
// never in the past. The start is the previous occurrence plus one day, so
// consecutive periods are contiguous and non-overlapping. Closing days
// beyond a month's length fall on that month's last day, which keeps
// contiguity intact across short months.
func CalculatePeriod(closingDay, dueDay int, ref time.Time) (Period, error) {
	if closingDay < 1 || closingDay > 31 {
		return Period{}, &core.ValidationError{Field: "closingDay", Reason: "must be between 1 and 31"}
	}
	if dueDay < 1 || dueDay > 31 {
		return Period{}, &core.ValidationError{Field: "dueDay", Reason: "must be between 1 and 31"}
	}

	day := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, time.UTC)

	end := closingInMonth(day.Year(), day.Month(), closingDay)
	if day.After(end) {
		next := day.AddDate(0, 0, 1-day.Day()).AddDate(0, 1, 0) // first of next month
		end = closingInMonth(next.Year(), next.Month(), closingDay)
	}

	prevMonth := end.AddDate(0, 0, 1-end.Day()).AddDate(0, -1, 0) // first of previous month
	prevEnd := closingInMonth(prevMonth.Year(), prevMonth.Month(), closingDay)

	return Period{
		Start: prevEnd.AddDate(0, 0, 1),
		End:   end,
		Due:   end.AddDate(0, 0, dueDay),
	}, nil
}

// closingInMonth returns the closing-day occurrence within a month,
// clamped to the month's last day.
func closingInMonth(year int, month time.Month, closingDay int) time.Time {
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	day := closingDay
	if day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// InWindow reports whether a transaction date falls inside the period,
// inclusive on both boundaries. Only the calendar date matters.
func (p Period) InWindow(date time.Time) bool {
	d := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return !d.Before(p.Start) && !d.After(p.End)
}
