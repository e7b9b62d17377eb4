package clock

import "time"

// Clock provides the current time. The ledger reads it to default a trip date to today.
type Clock interface {
	Now() time.Time
}
