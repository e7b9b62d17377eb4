package domain

// Trip is one logged round trip with its computed mileage.
//
// The JSON shape is the persisted shape of a ledger entry.
type Trip struct {
	ID             TripID `json:"id"`
	Date           Date   `json:"date"`
	Destination    string `json:"destination"`
	OneWayMiles    Miles  `json:"oneWayMiles"`
	RoundTripMiles Miles  `json:"roundTripMiles"`
	Count          int    `json:"count"`
	TotalMiles     Miles  `json:"totalMiles"`
	HasTolls       bool   `json:"hasTolls"`
}

// RoundTripFor returns twice the one-way distance.
func RoundTripFor(oneWay Miles) Miles { return oneWay * 2 }

// WithCount returns a copy of t with count replaced and the total recomputed.
func (t Trip) WithCount(count int) Trip {
	t.Count = count
	t.TotalMiles = t.RoundTripMiles.Times(count)
	return t
}
