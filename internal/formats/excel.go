package formats

import (
	"fmt"
	"io"
	"time"

	"github.com/data-power-io/excavator-pins/internal/pins"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const (
	SheetData          = "Excavator Database"
	SheetStatistics    = "Statistics"
	SheetManufacturers = "Manufacturers"
)

// WriteExcel writes the data, statistics and manufacturer sheets
func WriteExcel(w io.Writer, c *pins.Catalog, meta Metadata) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetData); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	rows := make([][]interface{}, 0, c.Len())
	for i := range c.Records {
		row := make([]interface{}, len(pins.Columns))
		for j, col := range pins.Columns {
			if v := col.Any(&c.Records[i]); v != nil {
				row[j] = v
			} else {
				row[j] = ""
			}
		}
		rows = append(rows, row)
	}
	if err := writeSheet(f, SheetData, toRow(pins.ColumnNames()), rows, bold); err != nil {
		return err
	}

	stats := c.Statistics(meta.ExportDate)
	summary := [][]interface{}{
		{"Total Records", stats.Overview.TotalRecords},
		{"Total Manufacturers", stats.Overview.TotalManufacturers},
		{"Date Generated", stats.Overview.DateGenerated.Format(time.RFC3339)},
	}
	if meta.Version != "" {
		summary = append(summary, []interface{}{"Version", meta.Version})
	}
	if _, err := f.NewSheet(SheetStatistics); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := writeSheet(f, SheetStatistics, []interface{}{"Metric", "Value"}, summary, bold); err != nil {
		return err
	}

	counts := make([][]interface{}, len(stats.Manufacturers))
	for i, m := range stats.Manufacturers {
		counts[i] = []interface{}{m.Manufacturer, m.Models}
	}
	if _, err := f.NewSheet(SheetManufacturers); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := writeSheet(f, SheetManufacturers, []interface{}{"Manufacturer", "Model Count"}, counts, bold); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, header []interface{}, rows [][]interface{}, headerStyle int) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write %s header: %w", sheet, err)
	}
	if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
		return fmt.Errorf("failed to style %s header: %w", sheet, err)
	}

	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func toRow(values []string) []interface{} {
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}
	return row
}

// ReadExcel reads the data sheet, or the first sheet when it is absent
func ReadExcel(r io.Reader, logger *zap.Logger) (*pins.Catalog, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("failed to read workbook: no sheets")
	}
	sheet := sheets[0]
	for _, name := range sheets {
		if name == SheetData {
			sheet = name
			break
		}
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("failed to read sheet %s: no header row", sheet)
	}

	return table{format: Excel, header: rows[0], rows: rows[1:], ragged: true}.decode(logger)
}
