// Package export renders staff-facing reports as CSV or PDF downloads.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
)

// Table is a flattened report ready for rendering.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// CSV writes the table as RFC 4180 CSV.
func CSV(writer io.Writer, table Table) error {
	csvWriter := csv.NewWriter(writer)
	if err := csvWriter.Write(table.Headers); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range table.Rows {
		if err := csvWriter.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	csvWriter.Flush()
	return csvWriter.Error()
}

// PDF writes the table as a landscape A4 document with a repeated
// header row.
func PDF(writer io.Writer, table Table) error {
	document := fpdf.New("L", "mm", "A4", "")
	document.SetTitle(table.Title, false)
	document.AddPage()

	document.SetFont("Helvetica", "B", 14)
	document.CellFormat(0, 10, table.Title, "", 1, "L", false, 0, "")
	document.Ln(2)

	pageWidth, _ := document.GetPageSize()
	left, _, right, _ := document.GetMargins()
	usable := pageWidth - left - right
	columnWidth := usable
	if len(table.Headers) > 0 {
		columnWidth = usable / float64(len(table.Headers))
	}

	header := func() {
		document.SetFont("Helvetica", "B", 9)
		document.SetFillColor(230, 230, 230)
		for _, title := range table.Headers {
			document.CellFormat(columnWidth, 7, title, "1", 0, "L", true, 0, "")
		}
		document.Ln(-1)
	}
	header()

	document.SetFont("Helvetica", "", 9)
	for _, row := range table.Rows {
		if document.GetY() > 185 {
			document.AddPage()
			header()
			document.SetFont("Helvetica", "", 9)
		}
		for _, cell := range row {
			document.CellFormat(columnWidth, 6, cell, "1", 0, "L", false, 0, "")
		}
		document.Ln(-1)
	}
	return document.Output(writer)
}
