package ledger

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Overland-East-Bay/mileage-tracker/internal/domain"
)

const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeTripNotFound      = "TRIP_NOT_FOUND"
	CodeResolutionFailed  = "RESOLUTION_FAILED"
	CodeSubmissionPending = "SUBMISSION_PENDING"
	CodeTripIDConflict    = "TRIP_ID_CONFLICT"
)

// Error is an application-layer error that can be mapped to an HTTP response.
type Error struct {
	Status  int
	Code    string
	Message string
	Details map[string]any

	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// HasCode reports whether err is an *Error carrying code.
func HasCode(err error, code string) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Code == code
}

func validationError(field, msg string) *Error {
	return &Error{
		Status:  http.StatusUnprocessableEntity,
		Code:    CodeValidation,
		Message: "invalid " + field,
		Details: map[string]any{field: msg},
	}
}

func notFoundError(id domain.TripID) *Error {
	return &Error{
		Status:  http.StatusNotFound,
		Code:    CodeTripNotFound,
		Message: "trip not found",
		Details: map[string]any{"tripId": string(id)},
	}
}

func resolutionFailedError(destination string, cause error) *Error {
	return &Error{
		Status:  http.StatusBadGateway,
		Code:    CodeResolutionFailed,
		Message: fmt.Sprintf("could not calculate a route to %q", destination),
		Err:     cause,
	}
}

func submissionPendingError() *Error {
	return &Error{
		Status:  http.StatusConflict,
		Code:    CodeSubmissionPending,
		Message: "another trip is still being calculated; try again when it finishes",
	}
}

func tripIDConflictError(id domain.TripID) *Error {
	return &Error{
		Status:  http.StatusConflict,
		Code:    CodeTripIDConflict,
		Message: "trip id conflict",
		Details: map[string]any{"tripId": string(id)},
	}
}
