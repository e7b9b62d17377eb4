package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Miles is a distance held as an integer number of tenths of a mile.
//
// All mileage in the ledger has one decimal place of precision, so sums and
// products of Miles are exact and never need intermediate rounding.
type Miles int64

const (
	// MaxCount is the largest repetition count a trip may carry.
	MaxCount = 1_000_000
	// MaxOneWayMiles is the largest one-way distance a trip may record.
	MaxOneWayMiles = 100_000.0

	// maxAbsMiles bounds decoded values so f*10 always fits in an int64.
	maxAbsMiles = 1e15
)

// MilesFromFloat rounds f to one decimal place, half away from zero.
// f must be finite and within ±1e15; callers validate untrusted input first.
func MilesFromFloat(f float64) Miles {
	return Miles(math.Round(f * 10))
}

// milesInRange reports whether f can be held as Miles.
func milesInRange(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0) && math.Abs(f) <= maxAbsMiles
}

// ParseMiles parses a decimal string such as "20.0" or "7.25".
func ParseMiles(s string) (Miles, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid miles %q: %w", s, err)
	}
	if !milesInRange(f) {
		return 0, fmt.Errorf("miles %q out of range", s)
	}
	return MilesFromFloat(f), nil
}

func (m Miles) Float64() float64 { return float64(m) / 10 }

// String formats m with exactly one decimal place.
func (m Miles) String() string {
	return strconv.FormatFloat(m.Float64(), 'f', 1, 64)
}

// Times multiplies m by a repetition count. Within MaxOneWayMiles and
// MaxCount the product cannot overflow.
func (m Miles) Times(n int) Miles { return m * Miles(n) }

// MarshalJSON writes m as a fixed one-decimal string.
func (m Miles) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts a decimal string or a JSON number.
func (m *Miles) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, err := ParseMiles(s)
		if err != nil {
			return err
		}
		*m = v
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	if !milesInRange(f) {
		return fmt.Errorf("miles %s out of range", b)
	}
	*m = MilesFromFloat(f)
	return nil
}
