package recurrence

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestExpandSingleDay(t *testing.T) {
	templateID := uuid.New()
	rule := Rule{TimeMinutes: 480, Weekdays: []int{4}} // Wednesday, 08:00

	// 2025-01-15 is a Wednesday.
	day := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

	occ := Expand(templateID, rule, day, day, time.UTC)
	if len(occ) != 1 {
		t.Fatalf("expected 1 occurrence, got %d", len(occ))
	}
	if occ[0].Date != "2025-01-15" {
		t.Fatalf("expected date 2025-01-15, got %s", occ[0].Date)
	}
	if occ[0].At.Hour() != 8 || occ[0].At.Minute() != 0 {
		t.Fatalf("expected 08:00, got %s", occ[0].At)
	}

	// Same single-day range on a non-matching weekday yields nothing.
	thursday := day.AddDate(0, 0, 1)
	if got := Expand(templateID, rule, thursday, thursday, time.UTC); len(got) != 0 {
		t.Fatalf("expected 0 occurrences on Thursday, got %d", len(got))
	}
}

func TestExpandWeekRange(t *testing.T) {
	templateID := uuid.New()
	// Mon..Fri = weekdays 2..6.
	rule := Rule{TimeMinutes: 720, Weekdays: []int{2, 3, 4, 5, 6}}

	// 2025-01-13 (Monday) .. 2025-01-19 (Sunday).
	from := time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 19, 0, 0, 0, 0, time.UTC)

	occ := Expand(templateID, rule, from, to, time.UTC)
	if len(occ) != 5 {
		t.Fatalf("expected 5 occurrences, got %d", len(occ))
	}
	if occ[0].Date != "2025-01-13" || occ[4].Date != "2025-01-17" {
		t.Fatalf("unexpected date range: %s .. %s", occ[0].Date, occ[4].Date)
	}
}

func TestExpandRestartable(t *testing.T) {
	templateID := uuid.New()
	rule := Rule{TimeMinutes: 540, Weekdays: []int{1, 7}}

	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)

	first := Expand(templateID, rule, from, to, time.UTC)
	second := Expand(templateID, rule, from, to, time.UTC)
	if len(first) != len(second) {
		t.Fatalf("expand is not deterministic: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("occurrence %d differs between runs", i)
		}
	}
}

func TestExpandAcrossDSTTransition(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	templateID := uuid.New()
	rule := Rule{TimeMinutes: 480, Weekdays: []int{1, 2, 3, 4, 5, 6, 7}}

	// US DST starts 2025-03-09; clocks jump 02:00 -> 03:00.
	from := time.Date(2025, 3, 8, 0, 0, 0, 0, loc)
	to := time.Date(2025, 3, 10, 0, 0, 0, 0, loc)

	occ := Expand(templateID, rule, from, to, loc)
	if len(occ) != 3 {
		t.Fatalf("expected 3 occurrences across DST shift, got %d", len(occ))
	}
	for _, o := range occ {
		if o.At.Hour() != 8 {
			t.Fatalf("occurrence on %s not at wall-clock 08:00: %s", o.Date, o.At)
		}
	}
}

func TestValidateRule(t *testing.T) {
	cases := []struct {
		name    string
		rule    Rule
		wantErr bool
	}{
		{"valid", Rule{TimeMinutes: 480, Weekdays: []int{1, 4}}, false},
		{"empty weekdays", Rule{TimeMinutes: 480, Weekdays: nil}, true},
		{"weekday zero", Rule{TimeMinutes: 480, Weekdays: []int{0}}, true},
		{"weekday eight", Rule{TimeMinutes: 480, Weekdays: []int{8}}, true},
		{"duplicate weekday", Rule{TimeMinutes: 480, Weekdays: []int{3, 3}}, true},
		{"time too large", Rule{TimeMinutes: 1440, Weekdays: []int{1}}, true},
		{"time negative", Rule{TimeMinutes: -1, Weekdays: []int{1}}, true},
	}

	for _, tc := range cases {
		err := ValidateRule(tc.rule)
		if tc.wantErr && err == nil {
			t.Errorf("%s: expected error, got nil", tc.name)
		}
		if !tc.wantErr && err != nil {
			t.Errorf("%s: unexpected error: %v", tc.name, err)
		}
	}
}

func TestWeekdayNumber(t *testing.T) {
	if WeekdayNumber(time.Sunday) != 1 {
		t.Fatalf("Sunday should map to 1")
	}
	if WeekdayNumber(time.Saturday) != 7 {
		t.Fatalf("Saturday should map to 7")
	}
}
