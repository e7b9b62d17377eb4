package domain

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar-date wire format (ISO 8601, date only).
const DateLayout = "2006-01-02"

// Date is a calendar date in YYYY-MM-DD form. The zero value means "no date".
//
// Normalized dates order correctly under plain string comparison.
type Date string

// ParseDate validates s and returns it in normalized form.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return DateOf(t), nil
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	return Date(t.Format(DateLayout))
}

func (d Date) IsZero() bool { return d == "" }

func (d Date) String() string { return string(d) }

// Time returns midnight UTC of d. It returns the zero time for an invalid date.
func (d Date) Time() time.Time {
	t, err := time.Parse(DateLayout, string(d))
	if err != nil {
		return time.Time{}
	}
	return t
}

func (d Date) Before(o Date) bool { return d < o }

// Within reports whether d falls in [start, end] inclusive.
func (d Date) Within(start, end Date) bool {
	return d >= start && d <= end
}
