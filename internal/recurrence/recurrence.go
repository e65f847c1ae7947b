package recurrence

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Weekday numbering: 1=Sunday … 7=Saturday.

const (
	MinTimeMinutes = 0
	MaxTimeMinutes = 1439
)

// Rule describes a weekly recurring meal slot: a wall-clock time of day plus
// the set of weekdays it fires on.
type Rule struct {
	TimeMinutes int
	Weekdays    []int
}

// Occurrence is one concrete date+time instance of a recurring slot. It is
// derived, never persisted; the completion ledger keys against
// (TemplateID, Date).
type Occurrence struct {
	TemplateID uuid.UUID
	Date       string // YYYY-MM-DD
	At         time.Time
}

// WeekdayNumber converts a time.Weekday to the 1=Sunday…7=Saturday numbering.
func WeekdayNumber(wd time.Weekday) int {
	return int(wd) + 1
}

// ValidateRule rejects rules the expander does not handle: an empty weekday
// set, out-of-range weekday numbers, or a time of day outside 0..1439.
func ValidateRule(rule Rule) error {
	if rule.TimeMinutes < MinTimeMinutes || rule.TimeMinutes > MaxTimeMinutes {
		return fmt.Errorf("time_minutes must be in range %d..%d", MinTimeMinutes, MaxTimeMinutes)
	}
	if len(rule.Weekdays) == 0 {
		return fmt.Errorf("weekdays must contain at least one day")
	}
	seen := make(map[int]bool, len(rule.Weekdays))
	for _, d := range rule.Weekdays {
		if d < 1 || d > 7 {
			return fmt.Errorf("weekday %d out of range 1..7", d)
		}
		if seen[d] {
			return fmt.Errorf("weekday %d listed twice", d)
		}
		seen[d] = true
	}
	return nil
}

// Expand produces one occurrence per calendar date in [from, to] whose weekday
// is in the rule's set. Pure function of its inputs.
//
// Dates are walked with AddDate on date components, and each occurrence time
// is rebuilt from the date plus the rule's wall-clock minutes. A DST shift
// therefore never skips or duplicates a day the way adding fixed 24h
// durations would.
func Expand(templateID uuid.UUID, rule Rule, from, to time.Time, loc *time.Location) []Occurrence {
	if loc == nil {
		loc = time.Local
	}

	days := make(map[int]bool, len(rule.Weekdays))
	for _, d := range rule.Weekdays {
		days[d] = true
	}

	fromDay := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, loc)
	toDay := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, loc)

	var result []Occurrence
	for d := fromDay; !d.After(toDay); d = d.AddDate(0, 0, 1) {
		if !days[WeekdayNumber(d.Weekday())] {
			continue
		}
		at := time.Date(d.Year(), d.Month(), d.Day(), rule.TimeMinutes/60, rule.TimeMinutes%60, 0, 0, loc)
		result = append(result, Occurrence{
			TemplateID: templateID,
			Date:       d.Format("2006-01-02"),
			At:         at,
		})
	}
	return result
}
