package storage

import (
	"testing"
	"time"
)

func TestTimeEncodingOrdersLexically(t *testing.T) {
	// Encoded timestamps back range queries via string comparison, so
	// chronological order and lexical order must agree. Sub-second parts
	// would violate that and get truncated away.
	times := []time.Time{
		time.Date(2023, 12, 31, 23, 59, 59, 0, time.UTC),
		time.Date(2024, 1, 1, 0, 0, 0, 500_000_000, time.UTC),
		time.Date(2024, 1, 1, 0, 0, 1, 0, time.UTC),
		time.Date(2024, 2, 15, 9, 30, 0, 0, time.UTC),
	}
	for i := 1; i < len(times); i++ {
		prev, cur := fmtTime(times[i-1]), fmtTime(times[i])
		if prev >= cur {
			t.Errorf("encoded %q does not sort before %q", prev, cur)
		}
	}
}

func TestTimeEncodingRoundTrip(t *testing.T) {
	orig := time.Date(2024, 3, 1, 12, 34, 56, 789_000_000, time.UTC)
	got, err := parseTime(fmtTime(orig))
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(orig.Truncate(time.Second)) {
		t.Errorf("round trip = %v, want %v", got, orig.Truncate(time.Second))
	}

	// Rows written with sub-second precision must still parse.
	legacy, err := parseTime("2024-03-01T12:34:56.789Z")
	if err != nil {
		t.Fatal(err)
	}
	if !legacy.Equal(orig) {
		t.Errorf("legacy parse = %v, want %v", legacy, orig)
	}

	zero, err := parseTime("")
	if err != nil || !zero.IsZero() {
		t.Errorf("empty column should map to the zero time, got %v, %v", zero, err)
	}
}
