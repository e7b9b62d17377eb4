package ledger

import (
	"github.com/Overland-East-Bay/mileage-tracker/internal/domain"
)

// View is a read-only derived sequence of trips, either the full collection or
// a date-filtered subset.
type View struct {
	Trips []domain.Trip

	// Filtered is true when both bounds were given.
	Filtered bool
	Start    domain.Date
	End      domain.Date
}

// View returns the trips in [start, end], or all trips when either bound is empty.
func (s *Service) View(start, end domain.Date) View {
	return NewView(s.Trips(), start, end)
}

// FilterByDateRange returns the trips whose date is in [start, end] inclusive,
// in insertion order. If either bound is empty the full collection is returned.
func (s *Service) FilterByDateRange(start, end domain.Date) []domain.Trip {
	return FilterByDateRange(s.Trips(), start, end)
}

// NewView derives a view over trips.
func NewView(trips []domain.Trip, start, end domain.Date) View {
	if start.IsZero() || end.IsZero() {
		return View{Trips: trips}
	}
	return View{
		Trips:    FilterByDateRange(trips, start, end),
		Filtered: true,
		Start:    start,
		End:      end,
	}
}

// FilterByDateRange is the pure form of Service.FilterByDateRange.
func FilterByDateRange(trips []domain.Trip, start, end domain.Date) []domain.Trip {
	if start.IsZero() || end.IsZero() {
		return trips
	}
	out := make([]domain.Trip, 0, len(trips))
	for _, t := range trips {
		if t.Date.Within(start, end) {
			out = append(out, t)
		}
	}
	return out
}

// TotalMileage sums roundTripMiles x count over trips.
func TotalMileage(trips []domain.Trip) domain.Miles {
	var total domain.Miles
	for _, t := range trips {
		total += t.RoundTripMiles.Times(t.Count)
	}
	return total
}

func (v View) Total() domain.Miles { return TotalMileage(v.Trips) }

// Filename is the suggested CSV download name for the view.
func (v View) Filename() string { return ExportFilename(v, "csv") }

// CSV serializes the view with ExportCSV.
func (v View) CSV() string { return ExportCSV(v.Trips) }
