package domain

// HomeRule picks the trip origin by trip date: trips dated before Cutoff start
// from OldAddress, trips on or after it from NewAddress.
type HomeRule struct {
	OldAddress string
	NewAddress string
	Cutoff     Date
}

// OriginFor returns the origin address for a trip taken on d.
// Without a cutoff every trip starts from NewAddress.
func (h HomeRule) OriginFor(d Date) string {
	if !h.Cutoff.IsZero() && d.Before(h.Cutoff) {
		return h.OldAddress
	}
	return h.NewAddress
}
