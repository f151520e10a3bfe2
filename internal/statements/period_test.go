package statements

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCalculatePeriod(t *testing.T) {
	cases := []struct {
		name       string
		closingDay int
		dueDay     int
		ref        time.Time
		start      time.Time
		end        time.Time
		due        time.Time
	}{
		{
			name:       "reference before closing day",
			closingDay: 15, dueDay: 20,
			ref:   date(2024, time.January, 10),
			start: date(2023, time.December, 16),
			end:   date(2024, time.January, 15),
			due:   date(2024, time.February, 4),
		},
		{
			name:       "reference on closing day",
			closingDay: 15, dueDay: 20,
			ref:   date(2024, time.January, 15),
			start: date(2023, time.December, 16),
			end:   date(2024, time.January, 15),
			due:   date(2024, time.February, 4),
		},
		{
			name:       "reference after closing day rolls to next month",
			closingDay: 15, dueDay: 10,
			ref:   date(2024, time.January, 16),
			start: date(2024, time.January, 16),
			end:   date(2024, time.February, 15),
			due:   date(2024, time.February, 25),
		},
		{
			name:       "closing day beyond february length clamps",
			closingDay: 31, dueDay: 5,
			ref:   date(2024, time.February, 10),
			start: date(2024, time.February, 1),
			end:   date(2024, time.February, 29),
			due:   date(2024, time.March, 5),
		},
		{
			name:       "year boundary",
			closingDay: 20, dueDay: 15,
			ref:   date(2023, time.December, 25),
			start: date(2023, time.December, 21),
			end:   date(2024, time.January, 20),
			due:   date(2024, time.February, 4),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := CalculatePeriod(tc.closingDay, tc.dueDay, tc.ref)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !p.Start.Equal(tc.start) {
				t.Errorf("start = %v, want %v", p.Start, tc.start)
			}
			if !p.End.Equal(tc.end) {
				t.Errorf("end = %v, want %v", p.End, tc.end)
			}
			if !p.Due.Equal(tc.due) {
				t.Errorf("due = %v, want %v", p.Due, tc.due)
			}
		})
	}
}

func TestCalculatePeriodRejectsBadConfig(t *testing.T) {
	if _, err := CalculatePeriod(0, 10, date(2024, time.January, 1)); err == nil {
		t.Fatal("closingDay 0 should fail")
	}
	if _, err := CalculatePeriod(32, 10, date(2024, time.January, 1)); err == nil {
		t.Fatal("closingDay 32 should fail")
	}
	if _, err := CalculatePeriod(15, 0, date(2024, time.January, 1)); err == nil {
		t.Fatal("dueDay 0 should fail")
	}
}

// Periods must tile the calendar: the period computed from the day after
// one period's end must start exactly one day after that end.
func TestPeriodsAreContiguous(t *testing.T) {
	for _, closingDay := range []int{1, 15, 28, 30, 31} {
		ref := date(2023, time.November, 3)
		for i := 0; i < 14; i++ {
			p, err := CalculatePeriod(closingDay, 10, ref)
			if err != nil {
				t.Fatalf("closing %d ref %v: %v", closingDay, ref, err)
			}
			next, err := CalculatePeriod(closingDay, 10, p.End.AddDate(0, 0, 1))
			if err != nil {
				t.Fatalf("closing %d next ref: %v", closingDay, err)
			}
			if !next.Start.Equal(p.End.AddDate(0, 0, 1)) {
				t.Fatalf("closing %d: period ending %v followed by period starting %v",
					closingDay, p.End, next.Start)
			}
			ref = p.End.AddDate(0, 0, 1)
		}
	}
}

func TestPeriodInWindow(t *testing.T) {
	p := Period{Start: date(2023, time.December, 16), End: date(2024, time.January, 15)}

	if !p.InWindow(date(2023, time.December, 16)) {
		t.Error("start boundary should be in window")
	}
	if !p.InWindow(date(2024, time.January, 15)) {
		t.Error("end boundary should be in window")
	}
	if !p.InWindow(time.Date(2024, time.January, 15, 23, 30, 0, 0, time.UTC)) {
		t.Error("time of day must not matter")
	}
	if p.InWindow(date(2023, time.December, 15)) {
		t.Error("day before start should be out of window")
	}
	if p.InWindow(date(2024, time.January, 16)) {
		t.Error("day after end should be out of window")
	}
}
