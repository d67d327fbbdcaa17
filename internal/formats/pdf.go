package formats

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/data-power-io/excavator-pins/internal/pins"
	"github.com/go-pdf/fpdf"
)

const (
	ReportTitle     = "Excavator Pin Dimensions Database"
	DefaultPDFRows  = 100
	pdfCellMaxChars = 15
	pdfRowHeight    = 7.0
)

type pdfColumn struct {
	title string
	width float64
	cell  func(*pins.PinSpec) string
}

var pdfColumns = []pdfColumn{
	{title: "Manufacturer", width: 60, cell: func(p *pins.PinSpec) string { return truncate(p.Manufacturer) }},
	{title: "Model", width: 60, cell: func(p *pins.PinSpec) string { return truncate(p.Model) }},
	{title: "Pin Ø (mm)", width: 40, cell: func(p *pins.PinSpec) string { return pdfNumber(p.StickPinDiameter.MM) }},
	{title: "Pin Ø (in)", width: 40, cell: func(p *pins.PinSpec) string { return pdfNumber(p.StickPinDiameter.Inch) }},
	{title: "Stick W (mm)", width: 38, cell: func(p *pins.PinSpec) string { return pdfNumber(p.StickWidth.MM) }},
	{title: "Link W (mm)", width: 38, cell: func(p *pins.PinSpec) string { return pdfNumber(p.LinkWidth.MM) }},
}

// WritePDF renders a landscape report of the statistics and the first maxRows records.
// A maxRows of zero or less uses DefaultPDFRows.
func WritePDF(w io.Writer, c *pins.Catalog, meta Metadata, maxRows int) error {
	if maxRows <= 0 {
		maxRows = DefaultPDFRows
	}

	pdf := fpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(ReportTitle, true)
	pdf.SetCreationDate(meta.ExportDate)
	pdf.SetAutoPageBreak(false, 15)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 8, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 12, ReportTitle, "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFillColor(220, 220, 220)
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(70, pdfRowHeight, "Metric", "1", 0, "L", true, 0, "")
	pdf.CellFormat(70, pdfRowHeight, "Value", "1", 1, "L", true, 0, "")
	pdf.SetFont("Arial", "", 11)
	for _, kv := range [][2]string{
		{"Total Records", strconv.Itoa(meta.TotalRecords)},
		{"Total Manufacturers", strconv.Itoa(meta.TotalManufacturers)},
		{"Export Date", meta.ExportDate.UTC().Format(time.RFC3339)},
	} {
		pdf.CellFormat(70, pdfRowHeight, kv[0], "1", 0, "L", false, 0, "")
		pdf.CellFormat(70, pdfRowHeight, tr(kv[1]), "1", 1, "L", false, 0, "")
	}
	pdf.Ln(8)

	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()

	header := func() {
		pdf.SetFont("Arial", "B", 10)
		for _, col := range pdfColumns {
			pdf.CellFormat(col.width, pdfRowHeight, tr(col.title), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 9)
	}
	header()

	n := c.Len()
	if n > maxRows {
		n = maxRows
	}
	for i := 0; i < n; i++ {
		if pdf.GetY()+pdfRowHeight > pageHeight-bottom {
			pdf.AddPage()
			header()
		}
		rec := &c.Records[i]
		for _, col := range pdfColumns {
			pdf.CellFormat(col.width, pdfRowHeight, tr(col.cell(rec)), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render PDF: %w", err)
	}
	return nil
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) > pdfCellMaxChars {
		return string(r[:pdfCellMaxChars])
	}
	return s
}

func pdfNumber(m pins.Measure) string {
	if !m.Valid {
		return "-"
	}
	return m.String()
}
