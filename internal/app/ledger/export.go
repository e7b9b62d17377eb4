package ledger

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Overland-East-Bay/mileage-tracker/internal/domain"
)

// CSVHeader is the first row of every export.
var CSVHeader = []string{"Date", "Destination", "Round Trip Miles", "Count", "Total Miles", "Tolls"}

// ExportCSV serializes trips one row per trip, rows joined by "\n" with no
// trailing newline. Destinations are always quoted; embedded quotes are doubled.
func ExportCSV(trips []domain.Trip) string {
	var b strings.Builder
	b.WriteString(strings.Join(CSVHeader, ","))
	for _, t := range trips {
		b.WriteByte('\n')
		b.WriteString(string(t.Date))
		b.WriteByte(',')
		b.WriteString(quoteCSV(t.Destination))
		b.WriteByte(',')
		b.WriteString(t.RoundTripMiles.String())
		b.WriteByte(',')
		b.WriteString(strconv.Itoa(t.Count))
		b.WriteByte(',')
		b.WriteString(t.TotalMiles.String())
		b.WriteByte(',')
		b.WriteString(YesNo(t.HasTolls))
	}
	return b.String()
}

// ExportFilename names an export of v: mileage_<start>_to_<end>.<ext> for a
// filtered view, mileage_all_trips.<ext> otherwise.
func ExportFilename(v View, ext string) string {
	if v.Filtered {
		return fmt.Sprintf("mileage_%s_to_%s.%s", v.Start, v.End, ext)
	}
	return "mileage_all_trips." + ext
}

func YesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func quoteCSV(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
