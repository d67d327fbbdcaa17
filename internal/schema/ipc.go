package schema

import (
	"fmt"
	"io"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/ipc"
	"github.com/apache/arrow/go/v18/arrow/memory"
	"github.com/data-power-io/excavator-pins/internal/pins"
)

// DefaultBatchSize is the number of rows per record batch
const DefaultBatchSize = 1000

// RecordBuilder accumulates rows into Arrow record batches
type RecordBuilder struct {
	schema  *arrow.Schema
	builder *array.RecordBuilder
	rows    int
}

// NewRecordBuilder creates a new record builder
func NewRecordBuilder(schema *arrow.Schema, pool memory.Allocator) *RecordBuilder {
	return &RecordBuilder{
		schema:  schema,
		builder: array.NewRecordBuilder(pool, schema),
	}
}

// AddRow appends one row. Missing or nil values become nulls.
func (rb *RecordBuilder) AddRow(values map[string]interface{}) error {
	for i := 0; i < rb.schema.NumFields(); i++ {
		field := rb.schema.Field(i)
		value, exists := values[field.Name]

		if !exists || value == nil {
			if !field.Nullable {
				return fmt.Errorf("field %s is not nullable", field.Name)
			}
			rb.builder.Field(i).AppendNull()
			continue
		}

		if err := rb.appendValue(rb.builder.Field(i), field.Type, value); err != nil {
			return fmt.Errorf("failed to append value for field %s: %w", field.Name, err)
		}
	}

	rb.rows++
	return nil
}

// AddSpec appends one pin specification
func (rb *RecordBuilder) AddSpec(p *pins.PinSpec) error {
	values := make(map[string]interface{}, len(pins.Columns))
	for _, col := range pins.Columns {
		values[col.Name] = col.Any(p)
	}
	if values[pins.ColManufacturer] == nil {
		values[pins.ColManufacturer] = ""
	}
	if values[pins.ColModel] == nil {
		values[pins.ColModel] = ""
	}
	return rb.AddRow(values)
}

// Len returns the number of rows added since the last Build
func (rb *RecordBuilder) Len() int {
	return rb.rows
}

// Build creates a record from the accumulated rows and resets the builder.
// The caller must release the record.
func (rb *RecordBuilder) Build() arrow.Record {
	rb.rows = 0
	return rb.builder.NewRecord()
}

// Release frees the underlying builders
func (rb *RecordBuilder) Release() {
	rb.builder.Release()
}

func (rb *RecordBuilder) appendValue(builder array.Builder, dataType arrow.DataType, value interface{}) error {
	switch dataType.ID() {
	case arrow.STRING:
		strBuilder, ok := builder.(*array.StringBuilder)
		if !ok {
			return fmt.Errorf("unexpected builder %T", builder)
		}
		if str, ok := value.(string); ok {
			strBuilder.Append(str)
		} else {
			strBuilder.Append(fmt.Sprintf("%v", value))
		}
	case arrow.FLOAT64:
		floatBuilder, ok := builder.(*array.Float64Builder)
		if !ok {
			return fmt.Errorf("unexpected builder %T", builder)
		}
		switch v := value.(type) {
		case float64:
			floatBuilder.Append(v)
		case float32:
			floatBuilder.Append(float64(v))
		case int:
			floatBuilder.Append(float64(v))
		case int64:
			floatBuilder.Append(float64(v))
		case pins.Measure:
			if !v.Valid {
				floatBuilder.AppendNull()
			} else {
				floatBuilder.Append(v.Float)
			}
		default:
			return fmt.Errorf("cannot store %T as float64", value)
		}
	default:
		return fmt.Errorf("unsupported arrow type %s", dataType)
	}

	return nil
}

// WriteIPC writes the catalog as an Arrow IPC stream and returns the number of batches
func WriteIPC(w io.Writer, c *pins.Catalog, batchSize int, pool memory.Allocator) (int, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if pool == nil {
		pool = memory.NewGoAllocator()
	}

	schema := NewManager().PinSchema()
	writer := ipc.NewWriter(w, ipc.WithSchema(schema), ipc.WithAllocator(pool))

	rb := NewRecordBuilder(schema, pool)
	defer rb.Release()

	batches := 0
	flush := func() error {
		record := rb.Build()
		defer record.Release()
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record batch: %w", err)
		}
		batches++
		return nil
	}

	for i := range c.Records {
		if err := rb.AddSpec(&c.Records[i]); err != nil {
			writer.Close()
			return batches, fmt.Errorf("record %d: %w", i+1, err)
		}
		if rb.Len() >= batchSize {
			if err := flush(); err != nil {
				writer.Close()
				return batches, err
			}
		}
	}
	if rb.Len() > 0 {
		if err := flush(); err != nil {
			writer.Close()
			return batches, err
		}
	}

	if err := writer.Close(); err != nil {
		return batches, fmt.Errorf("failed to close Arrow writer: %w", err)
	}
	return batches, nil
}

// StreamSummary describes an Arrow IPC stream
type StreamSummary struct {
	Schema  *arrow.Schema
	Batches int
	Rows    int64
}

// Describe reads an Arrow IPC stream and counts its batches and rows
func Describe(r io.Reader) (StreamSummary, error) {
	reader, err := ipc.NewReader(r)
	if err != nil {
		return StreamSummary{}, fmt.Errorf("failed to create Arrow reader: %w", err)
	}
	defer reader.Release()

	summary := StreamSummary{Schema: reader.Schema()}
	for reader.Next() {
		summary.Batches++
		summary.Rows += reader.Record().NumRows()
	}
	if err := reader.Err(); err != nil && err != io.EOF {
		return summary, fmt.Errorf("failed to read Arrow stream: %w", err)
	}
	return summary, nil
}
