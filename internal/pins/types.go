// Package pins holds the excavator pin specification record, the column table
// that drives every codec, and the catalog operations built on top of it.
package pins

import (
	"errors"
	"strings"
)

// EntityExcavators is the table/entity name used by every export
const EntityExcavators = "excavators"

// ErrNotFound is returned when a lookup matches no record
var ErrNotFound = errors.New("pin specification not found")

// PinSpec represents one row of the pin dimensions table
type PinSpec struct {
	Manufacturer     string
	Model            string
	StickPinDiameter Dimension
	StickWidth       Dimension
	LinkPinDiameter  Dimension
	LinkWidth        Dimension
	PinCenters       Dimension
	TipRadius        Measure
	DataSource       string
	Notes            string
}

// Key identifies a record by manufacturer and model
type Key struct {
	Manufacturer string
	Model        string
}

// NewKey builds a comparable key. Surrounding whitespace and letter case are ignored.
func NewKey(manufacturer, model string) Key {
	return Key{
		Manufacturer: strings.ToLower(strings.TrimSpace(manufacturer)),
		Model:        strings.ToLower(strings.TrimSpace(model)),
	}
}

func (k Key) String() string {
	return k.Manufacturer + " / " + k.Model
}

// Key returns the identity of the record
func (p *PinSpec) Key() Key {
	return NewKey(p.Manufacturer, p.Model)
}

// NamedDimension pairs a dimension with its column prefix
type NamedDimension struct {
	Name      string
	Dimension *Dimension
}

// Dimensions lists the metric/imperial pairs of the record in column order
func (p *PinSpec) Dimensions() []NamedDimension {
	return []NamedDimension{
		{Name: "Stick_Pin_Diameter", Dimension: &p.StickPinDiameter},
		{Name: "Stick_Width", Dimension: &p.StickWidth},
		{Name: "Link_Pin_Diameter", Dimension: &p.LinkPinDiameter},
		{Name: "Link_Width", Dimension: &p.LinkWidth},
		{Name: "Pin_Centers", Dimension: &p.PinCenters},
	}
}

// ParseIssue describes a cell that could not be decoded
type ParseIssue struct {
	Row    int    `json:"row"`
	Column string `json:"column"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}
