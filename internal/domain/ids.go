package domain

import (
	"bytes"
	"encoding/json"
)

// TripID is an internal identifier for a trip record.
type TripID string

// UnmarshalJSON accepts both string ids and the numeric timestamp ids written by
// older exports of the ledger.
func (id *TripID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] != '"' {
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		*id = TripID(n.String())
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*id = TripID(s)
	return nil
}
