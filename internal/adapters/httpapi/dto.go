package httpapi

import (
	"github.com/oapi-codegen/nullable"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/Overland-East-Bay/mileage-tracker/internal/domain"
)

// CreateTripRequest is the POST /trips body. Date defaults to today.
type CreateTripRequest struct {
	Date        *openapi_types.Date `json:"date,omitempty"`
	Destination string              `json:"destination"`
	Count       *int                `json:"count,omitempty"`
}

// UpdateTripRequest is the PATCH /trips/{tripId} body. An omitted date keeps
// the trip's date; an explicit null is rejected.
type UpdateTripRequest struct {
	Date  nullable.Nullable[openapi_types.Date] `json:"date,omitempty"`
	Count *int                                  `json:"count,omitempty"`
}

type TripResponse struct {
	Trip domain.Trip `json:"trip"`
}

type ListTripsResponse struct {
	Trips      []domain.Trip       `json:"trips"`
	TotalMiles domain.Miles        `json:"totalMiles"`
	Filtered   bool                `json:"filtered"`
	Start      *openapi_types.Date `json:"start,omitempty"`
	End        *openapi_types.Date `json:"end,omitempty"`
}

func apiDate(d domain.Date) *openapi_types.Date {
	if d.IsZero() {
		return nil
	}
	return &openapi_types.Date{Time: d.Time()}
}

func domainDate(d openapi_types.Date) domain.Date {
	return domain.DateOf(d.Time)
}
