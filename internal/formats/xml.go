package formats

import (
	"encoding/xml"
	"fmt"
	"io"

	"github.com/data-power-io/excavator-pins/internal/pins"
	"go.uber.org/zap"
)

type xmlDocument struct {
	XMLName    xml.Name    `xml:"ExcavatorDatabase"`
	Metadata   xmlMetadata `xml:"Metadata"`
	Excavators []xmlRecord `xml:"Excavators>Excavator"`
}

type xmlMetadata struct {
	TotalRecords       int    `xml:"TotalRecords"`
	TotalManufacturers int    `xml:"TotalManufacturers"`
	ExportDate         string `xml:"ExportDate"`
	Version            string `xml:"Version"`
	ExportID           string `xml:"ExportId,omitempty"`
}

// xmlRecord holds one child element per column, named after the column
type xmlRecord struct {
	Fields []xmlField `xml:",any"`
}

type xmlField struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

// WriteXML writes an indented ExcavatorDatabase document
func WriteXML(w io.Writer, c *pins.Catalog, meta Metadata) error {
	doc := xmlDocument{
		Metadata: xmlMetadata{
			TotalRecords:       meta.TotalRecords,
			TotalManufacturers: meta.TotalManufacturers,
			ExportDate:         meta.exportDate(),
			Version:            meta.Version,
			ExportID:           meta.ExportID,
		},
		Excavators: make([]xmlRecord, 0, c.Len()),
	}

	for _, row := range cellRows(c) {
		rec := xmlRecord{Fields: make([]xmlField, len(row))}
		for i, value := range row {
			rec.Fields[i] = xmlField{XMLName: xml.Name{Local: pins.Columns[i].Name}, Value: value}
		}
		doc.Excavators = append(doc.Excavators, rec)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("failed to write XML header: %w", err)
	}

	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode XML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to encode XML: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// ReadXML parses a document written by WriteXML
func ReadXML(r io.Reader, logger *zap.Logger) (*pins.Catalog, error) {
	var doc xmlDocument
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode XML: %w", err)
	}

	header := headerFromKeys(func(yield func(string)) {
		for _, rec := range doc.Excavators {
			for _, f := range rec.Fields {
				yield(f.XMLName.Local)
			}
		}
	})
	if len(doc.Excavators) == 0 {
		header = pins.ColumnNames()
	}

	rows := make([][]string, len(doc.Excavators))
	for i, rec := range doc.Excavators {
		values := make(map[string]string, len(rec.Fields))
		for _, f := range rec.Fields {
			values[f.XMLName.Local] = f.Value
		}
		rows[i] = project(header, values)
	}

	return table{format: XML, header: header, rows: rows, ragged: true}.decode(logger)
}
