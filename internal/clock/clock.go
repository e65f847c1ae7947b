package clock

import "time"

// Clock provides the current time and the wall-clock location meal occurrences
// are expanded in. Services take a Clock so tests can pin "now".
type Clock interface {
	Now() time.Time
	Location() *time.Location
}

type realClock struct {
	loc *time.Location
}

func New(loc *time.Location) Clock {
	if loc == nil {
		loc = time.Local
	}
	return &realClock{loc: loc}
}

func (c *realClock) Now() time.Time {
	return time.Now().In(c.loc)
}

func (c *realClock) Location() *time.Location {
	return c.loc
}

// Fixed is a test clock pinned to a settable instant.
type Fixed struct {
	now time.Time
}

func NewFixed(now time.Time) *Fixed {
	return &Fixed{now: now}
}

func (f *Fixed) Now() time.Time {
	return f.now
}

func (f *Fixed) Location() *time.Location {
	return f.now.Location()
}

func (f *Fixed) Set(now time.Time) {
	f.now = now
}

// DateString formats t as the YYYY-MM-DD calendar date used as ledger keys.
func DateString(t time.Time) string {
	return t.Format("2006-01-02")
}

// ParseDate parses a YYYY-MM-DD string into midnight in loc.
func ParseDate(date string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", date, loc)
}
