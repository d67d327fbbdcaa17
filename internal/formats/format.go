// Package formats reads and writes the distribution files of the pin dataset.
//
// Every codec is driven by the column table in package pins, so the CSV header,
// the XML element names, the JSON keys and the spreadsheet header are the same.
package formats

import (
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/data-power-io/excavator-pins/internal/pins"
	"go.uber.org/zap"
)

// ErrUnsupportedFormat is returned for a file extension no decoder handles
var ErrUnsupportedFormat = errors.New("unsupported format")

type Format string

const (
	CSV   Format = "csv"
	Excel Format = "excel"
	JSON  Format = "json"
	XML   Format = "xml"
	PDF   Format = "pdf"
)

// Extension returns the file extension written for the format, without the dot
func (f Format) Extension() string {
	switch f {
	case Excel:
		return "xlsx"
	default:
		return string(f)
	}
}

// DetectFormat picks a decoder from a file name or object key
func DetectFormat(name string) (Format, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".csv":
		return CSV, nil
	case ".xlsx":
		return Excel, nil
	case ".xml":
		return XML, nil
	case ".json":
		return JSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
}

// Metadata is stamped into the XML and JSON documents and the report headers
type Metadata struct {
	TotalRecords       int
	TotalManufacturers int
	ExportDate         time.Time
	Version            string
	ExportID           string
}

// NewMetadata describes a catalog at export time
func NewMetadata(c *pins.Catalog, version, exportID string, now time.Time) Metadata {
	return Metadata{
		TotalRecords:       c.Len(),
		TotalManufacturers: c.ManufacturerCount(),
		ExportDate:         now.UTC(),
		Version:            version,
		ExportID:           exportID,
	}
}

func (m Metadata) exportDate() string {
	return m.ExportDate.UTC().Format(time.RFC3339)
}

// Decode reads a catalog in the given format
func Decode(f Format, r io.Reader, logger *zap.Logger) (*pins.Catalog, error) {
	switch f {
	case CSV:
		return ReadCSV(r, logger)
	case Excel:
		return ReadExcel(r, logger)
	case XML:
		return ReadXML(r, logger)
	case JSON:
		return ReadJSON(r, logger)
	default:
		return nil, fmt.Errorf("%w: cannot decode %s", ErrUnsupportedFormat, f)
	}
}

// table is a header plus string rows, the common shape of every decoded source
type table struct {
	format Format
	header []string
	rows   [][]string
	// trailing empty cells are dropped by the source, so short rows are not an issue
	ragged bool
}

func (t table) decode(logger *zap.Logger) (*pins.Catalog, error) {
	if len(t.header) == 0 {
		return nil, fmt.Errorf("failed to read %s header: no columns", t.format)
	}

	header := make([]string, len(t.header))
	for i, h := range t.header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	catalog := &pins.Catalog{
		Format: string(t.format),
		Header: header,
	}

	for i, row := range t.rows {
		if blank(row) {
			continue
		}
		rowNum := i + 1

		if len(row) < len(header) && !t.ragged {
			catalog.Issues = append(catalog.Issues, pins.ParseIssue{
				Row:    rowNum,
				Column: header[len(row)],
				Reason: fmt.Sprintf("row has %d cells, header has %d", len(row), len(header)),
			})
		}

		cells := make(map[string]string, len(header))
		for j, name := range header {
			if j < len(row) {
				cells[name] = row[j]
			}
		}

		rec, issues := pins.DecodeRecord(rowNum, cells)
		catalog.Records = append(catalog.Records, rec)
		catalog.Issues = append(catalog.Issues, issues...)
	}

	for _, issue := range catalog.Issues {
		logger.Warn("Failed to parse cell",
			zap.String("format", string(t.format)),
			zap.Int("row", issue.Row),
			zap.String("column", issue.Column),
			zap.String("value", issue.Value),
			zap.String("reason", issue.Reason),
		)
	}

	return catalog, nil
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// cellRows renders the catalog as text rows in canonical column order
func cellRows(c *pins.Catalog) [][]string {
	rows := make([][]string, len(c.Records))
	for i := range c.Records {
		row := make([]string, len(pins.Columns))
		for j, col := range pins.Columns {
			row[j] = col.Text(&c.Records[i])
		}
		rows[i] = row
	}
	return rows
}
