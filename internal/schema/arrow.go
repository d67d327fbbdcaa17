// Package schema derives the Apache Arrow schema of the pin table and writes
// catalogs as Arrow IPC streams.
package schema

import (
	"fmt"
	"strconv"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/data-power-io/excavator-pins/internal/pins"
	"github.com/goccy/go-json"
)

// Field metadata keys
const (
	MetaDescription = "description"
	MetaPosition    = "ordinal_position"
	MetaRequired    = "required"
)

// Manager provides utilities for working with the Arrow schema of the pin table
type Manager struct{}

// NewManager creates a new schema manager
func NewManager() *Manager {
	return &Manager{}
}

// PinSchema builds the Arrow schema from the column table
func (m *Manager) PinSchema() *arrow.Schema {
	fields := make([]arrow.Field, len(pins.Columns))
	for i, col := range pins.Columns {
		fields[i] = arrow.Field{
			Name:     col.Name,
			Type:     m.kindToArrowType(col.Kind),
			Nullable: !(col.Kind == pins.KindText && col.Required),
			Metadata: arrow.NewMetadata(
				[]string{MetaDescription, MetaPosition, MetaRequired},
				[]string{col.Documentation, strconv.Itoa(col.Position), strconv.FormatBool(col.Required)},
			),
		}
	}

	return arrow.NewSchema(fields, nil)
}

func (m *Manager) kindToArrowType(kind pins.Kind) arrow.DataType {
	if kind == pins.KindNumber {
		return arrow.PrimitiveTypes.Float64
	}
	return arrow.BinaryTypes.String
}

type jsonProperty struct {
	Type            string `json:"type"`
	Nullable        bool   `json:"nullable"`
	OrdinalPosition int    `json:"ordinal_position"`
	Description     string `json:"description,omitempty"`
}

type jsonSchema struct {
	Entity     string                  `json:"entity"`
	Type       string                  `json:"type"`
	Properties map[string]jsonProperty `json:"properties"`
	Required   []string                `json:"required"`
}

// SchemaToJSON converts an Arrow schema to a JSON schema document
func (m *Manager) SchemaToJSON(schema *arrow.Schema) (string, error) {
	doc := jsonSchema{
		Entity:     pins.EntityExcavators,
		Type:       "object",
		Properties: make(map[string]jsonProperty, schema.NumFields()),
		Required:   []string{},
	}

	for i := 0; i < schema.NumFields(); i++ {
		field := schema.Field(i)
		prop := jsonProperty{
			Type:            m.arrowTypeToJSONType(field.Type),
			Nullable:        field.Nullable,
			OrdinalPosition: i + 1,
		}
		if idx := field.Metadata.FindKey(MetaDescription); idx >= 0 {
			prop.Description = field.Metadata.Values()[idx]
		}
		if idx := field.Metadata.FindKey(MetaRequired); idx >= 0 && field.Metadata.Values()[idx] == "true" {
			doc.Required = append(doc.Required, field.Name)
		}
		doc.Properties[field.Name] = prop
	}

	jsonBytes, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal schema to JSON: %w", err)
	}

	return string(jsonBytes), nil
}

// arrowTypeToJSONType converts Arrow types to JSON schema types
func (m *Manager) arrowTypeToJSONType(arrowType arrow.DataType) string {
	switch arrowType.ID() {
	case arrow.STRING, arrow.BINARY:
		return "string"
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
		return "integer"
	case arrow.FLOAT32, arrow.FLOAT64:
		return "number"
	case arrow.BOOL:
		return "boolean"
	default:
		return "string"
	}
}

// Matches reports whether a stream schema carries the pin table fields
func (m *Manager) Matches(schema *arrow.Schema) bool {
	return schema != nil && schema.Equal(m.PinSchema())
}
