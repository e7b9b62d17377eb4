// Package pdfreport renders a mileage view as a printable PDF table.
package pdfreport

import (
	"fmt"
	"io"
	"strconv"

	"github.com/phpdave11/gofpdf"

	"github.com/Overland-East-Bay/mileage-tracker/internal/app/ledger"
)

var colWidths = []float64{24, 86, 26, 14, 24, 16}

// Render writes v as an A4 report: title, period, one row per trip in view
// order, then the total mileage.
func Render(w io.Writer, v ledger.View, title string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(title, true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, tr(title))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 11)
	period := "All trips"
	if v.Filtered {
		period = fmt.Sprintf("%s to %s", v.Start, v.End)
	}
	pdf.Cell(0, 7, "Period: "+period)
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range ledger.CSVHeader {
		pdf.CellFormat(colWidths[i], 7, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, t := range v.Trips {
		dest := fit(pdf, tr(t.Destination), colWidths[1]-2)
		cells := []struct {
			text  string
			align string
		}{
			{string(t.Date), "L"},
			{dest, "L"},
			{t.RoundTripMiles.String(), "R"},
			{strconv.Itoa(t.Count), "R"},
			{t.TotalMiles.String(), "R"},
			{ledger.YesNo(t.HasTolls), "C"},
		}
		for i, c := range cells {
			pdf.CellFormat(colWidths[i], 6, c.text, "1", 0, c.align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Total Mileage: "+v.Total().String()+" miles")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

// fit truncates s with "..." so it is at most width mm wide in the current font.
func fit(pdf *gofpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && pdf.GetStringWidth(string(r)+"...") > width {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}
