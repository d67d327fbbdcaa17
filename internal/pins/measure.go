package pins

import (
	"database/sql/driver"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MMPerInch is the exact metric length of one inch
const MMPerInch = 25.4

// Measure is a nullable number. The zero value means "not published".
type Measure struct {
	Float float64
	Valid bool
}

// Some returns a valid measure
func Some(v float64) Measure {
	return Measure{Float: v, Valid: true}
}

// ParseMeasure parses a cell value. Empty cells and NaN markers yield an invalid measure.
func ParseMeasure(s string) (Measure, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "nan", "null", "none", "n/a", "-":
		return Measure{}, nil
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Measure{}, fmt.Errorf("not a number: %q", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Measure{}, nil
	}
	return Some(v), nil
}

// String formats the value with the shortest exact representation, or "" when missing
func (m Measure) String() string {
	if !m.Valid {
		return ""
	}
	return strconv.FormatFloat(m.Float, 'f', -1, 64)
}

// Any returns the float64 value or nil when missing
func (m Measure) Any() interface{} {
	if !m.Valid {
		return nil
	}
	return m.Float
}

// Value implements driver.Valuer so measures can be bound as SQL parameters
func (m Measure) Value() (driver.Value, error) {
	return m.Any(), nil
}

func (m Measure) MarshalJSON() ([]byte, error) {
	if !m.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(m.Float, 'f', -1, 64)), nil
}

func (m *Measure) UnmarshalJSON(data []byte) error {
	parsed, err := ParseMeasure(strings.Trim(string(data), `"`))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Dimension is one physical length published in millimetres and inches
type Dimension struct {
	MM   Measure
	Inch Measure
}

// ImperialDelta returns |inch - mm/25.4| when both values are present
func (d Dimension) ImperialDelta() (float64, bool) {
	if !d.MM.Valid || !d.Inch.Valid {
		return 0, false
	}
	return math.Abs(d.Inch.Float - d.MM.Float/MMPerInch), true
}

// deriveInch fills a missing inch value from the metric one
func (d *Dimension) deriveInch(precision int) bool {
	if d.Inch.Valid || !d.MM.Valid {
		return false
	}
	d.Inch = Some(round(d.MM.Float/MMPerInch, precision))
	return true
}

func round(v float64, precision int) float64 {
	p := math.Pow(10, float64(precision))
	return math.Round(v*p) / p
}
