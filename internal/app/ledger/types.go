package ledger

import "github.com/Overland-East-Bay/mileage-tracker/internal/domain"

// SubmitTripInput is a new-trip request before route resolution.
type SubmitTripInput struct {
	// Date defaults to today when empty.
	Date        domain.Date
	Destination string
	Count       int
}
