package clock

import "time"

// SystemClock returns the current wall-clock time in a fixed location.
// The location decides which calendar day "today" is.
type SystemClock struct {
	loc *time.Location
}

// NewSystemClock returns a clock reporting time in loc (UTC when nil).
func NewSystemClock(loc *time.Location) SystemClock {
	if loc == nil {
		loc = time.UTC
	}
	return SystemClock{loc: loc}
}

func (c SystemClock) Now() time.Time {
	if c.loc == nil {
		return time.Now().UTC()
	}
	return time.Now().In(c.loc)
}
