package formats

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/data-power-io/excavator-pins/internal/pins"
	"go.uber.org/zap"
)

// ReadCSV parses a header row followed by one row per record
func ReadCSV(r io.Reader, logger *zap.Logger) (*pins.Catalog, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("failed to read CSV header: empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}
		rows = append(rows, row)
	}

	return table{format: CSV, header: header, rows: rows}.decode(logger)
}

// WriteCSV writes the canonical header and one row per record
func WriteCSV(w io.Writer, c *pins.Catalog) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(pins.ColumnNames()); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	if err := writer.WriteAll(cellRows(c)); err != nil {
		return fmt.Errorf("failed to write CSV rows: %w", err)
	}
	return nil
}
