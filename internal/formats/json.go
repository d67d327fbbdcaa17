package formats

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/data-power-io/excavator-pins/internal/pins"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

type jsonDocument struct {
	Metadata   jsonMetadata `json:"metadata"`
	Excavators []jsonRecord `json:"excavators"`
}

type jsonMetadata struct {
	TotalRecords       int    `json:"total_records"`
	TotalManufacturers int    `json:"total_manufacturers"`
	ExportDate         string `json:"export_date"`
	Version            string `json:"version"`
	ExportID           string `json:"export_id,omitempty"`
}

// jsonRecord marshals a record with its keys in column order
type jsonRecord struct {
	rec *pins.PinSpec
}

func (j jsonRecord) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range pins.Columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(col.Name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(col.Any(j.rec))
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", col.Name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalRecord encodes one record as an indented object with keys in column order
func MarshalRecord(p *pins.PinSpec) ([]byte, error) {
	data, err := jsonRecord{rec: p}.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteJSON writes an indented document with metadata and records
func WriteJSON(w io.Writer, c *pins.Catalog, meta Metadata) error {
	doc := jsonDocument{
		Metadata: jsonMetadata{
			TotalRecords:       meta.TotalRecords,
			TotalManufacturers: meta.TotalManufacturers,
			ExportDate:         meta.exportDate(),
			Version:            meta.Version,
			ExportID:           meta.ExportID,
		},
		Excavators: make([]jsonRecord, c.Len()),
	}
	for i := range c.Records {
		doc.Excavators[i] = jsonRecord{rec: &c.Records[i]}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write JSON: %w", err)
	}
	return nil
}

type jsonInput struct {
	Metadata   jsonMetadata             `json:"metadata"`
	Excavators []map[string]interface{} `json:"excavators"`
}

// ReadJSON parses a document written by WriteJSON
func ReadJSON(r io.Reader, logger *zap.Logger) (*pins.Catalog, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var doc jsonInput
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode JSON: %w", err)
	}

	header := headerFromKeys(func(yield func(string)) {
		for _, rec := range doc.Excavators {
			for k := range rec {
				yield(k)
			}
		}
	})
	if len(doc.Excavators) == 0 {
		header = pins.ColumnNames()
	}

	rows := make([][]string, len(doc.Excavators))
	for i, rec := range doc.Excavators {
		values := make(map[string]string, len(rec))
		for k, v := range rec {
			values[k] = jsonCell(v)
		}
		rows[i] = project(header, values)
	}

	return table{format: JSON, header: header, rows: rows, ragged: true}.decode(logger)
}

func jsonCell(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// headerFromKeys collects the element or key names of a document. Known
// columns come first in canonical order, unknown names follow sorted.
func headerFromKeys(each func(yield func(string))) []string {
	seen := make(map[string]bool)
	var names []string
	each(func(name string) {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	})

	position := func(name string) int {
		if col, ok := pins.LookupColumn(name); ok {
			return col.Position
		}
		return len(pins.Columns) + 1
	}
	sort.SliceStable(names, func(i, j int) bool {
		pi, pj := position(names[i]), position(names[j])
		if pi != pj {
			return pi < pj
		}
		return names[i] < names[j]
	})
	return names
}

func project(header []string, values map[string]string) []string {
	row := make([]string, len(header))
	for i, name := range header {
		row[i] = values[name]
	}
	return row
}
