package pins

import (
	"sort"
	"strings"
)

// Kind is the value type of a column
type Kind int

const (
	KindText Kind = iota
	KindNumber
)

func (k Kind) String() string {
	if k == KindNumber {
		return "number"
	}
	return "text"
}

// Column names as published in the dataset files
const (
	ColManufacturer         = "Manufacturer"
	ColModel                = "Model"
	ColStickPinDiameterMM   = "Stick_Pin_Diameter_mm"
	ColStickPinDiameterInch = "Stick_Pin_Diameter_inch"
	ColStickWidthMM         = "Stick_Width_mm"
	ColStickWidthInch       = "Stick_Width_inch"
	ColLinkPinDiameterMM    = "Link_Pin_Diameter_mm"
	ColLinkPinDiameterInch  = "Link_Pin_Diameter_inch"
	ColLinkWidthMM          = "Link_Width_mm"
	ColLinkWidthInch        = "Link_Width_inch"
	ColPinCentersMM         = "Pin_Centers_mm"
	ColPinCentersInch       = "Pin_Centers_inch"
	ColTipRadius            = "Tip_Radius"
	ColDataSource           = "Data_Source"
	ColNotes                = "Notes"
)

// Column describes one field of the flat table
type Column struct {
	Name          string
	Kind          Kind
	Required      bool
	Optional      bool // may be absent from a source without being reported
	Position      int
	Documentation string

	text    func(*PinSpec) *string
	measure func(*PinSpec) *Measure
}

// Columns is the canonical column table in file order
var Columns = []Column{
	textColumn(ColManufacturer, true, "Equipment manufacturer", func(p *PinSpec) *string { return &p.Manufacturer }),
	textColumn(ColModel, true, "Excavator model designation", func(p *PinSpec) *string { return &p.Model }),
	numberColumn(ColStickPinDiameterMM, true, "Stick pin diameter in millimetres", func(p *PinSpec) *Measure { return &p.StickPinDiameter.MM }),
	numberColumn(ColStickPinDiameterInch, false, "Stick pin diameter in inches", func(p *PinSpec) *Measure { return &p.StickPinDiameter.Inch }),
	numberColumn(ColStickWidthMM, false, "Stick width in millimetres", func(p *PinSpec) *Measure { return &p.StickWidth.MM }),
	numberColumn(ColStickWidthInch, false, "Stick width in inches", func(p *PinSpec) *Measure { return &p.StickWidth.Inch }),
	numberColumn(ColLinkPinDiameterMM, true, "Link pin diameter in millimetres", func(p *PinSpec) *Measure { return &p.LinkPinDiameter.MM }),
	numberColumn(ColLinkPinDiameterInch, false, "Link pin diameter in inches", func(p *PinSpec) *Measure { return &p.LinkPinDiameter.Inch }),
	numberColumn(ColLinkWidthMM, false, "Link width in millimetres", func(p *PinSpec) *Measure { return &p.LinkWidth.MM }),
	numberColumn(ColLinkWidthInch, false, "Link width in inches", func(p *PinSpec) *Measure { return &p.LinkWidth.Inch }),
	numberColumn(ColPinCentersMM, true, "Distance between pin centers in millimetres", func(p *PinSpec) *Measure { return &p.PinCenters.MM }),
	numberColumn(ColPinCentersInch, false, "Distance between pin centers in inches", func(p *PinSpec) *Measure { return &p.PinCenters.Inch }),
	optionalColumn(numberColumn(ColTipRadius, false, "Bucket tip radius", func(p *PinSpec) *Measure { return &p.TipRadius })),
	textColumn(ColDataSource, false, "Provenance tag (OEM, dealer, field measurement)", func(p *PinSpec) *string { return &p.DataSource }),
	textColumn(ColNotes, false, "Free-text notes", func(p *PinSpec) *string { return &p.Notes }),
}

var columnIndex = func() map[string]int {
	idx := make(map[string]int, len(Columns))
	for i := range Columns {
		Columns[i].Position = i + 1
		idx[strings.ToLower(Columns[i].Name)] = i
	}
	return idx
}()

func textColumn(name string, required bool, doc string, f func(*PinSpec) *string) Column {
	return Column{Name: name, Kind: KindText, Required: required, Documentation: doc, text: f}
}

func numberColumn(name string, required bool, doc string, f func(*PinSpec) *Measure) Column {
	return Column{Name: name, Kind: KindNumber, Required: required, Documentation: doc, measure: f}
}

func optionalColumn(c Column) Column {
	c.Optional = true
	return c
}

// LookupColumn finds a column by header name, ignoring case and spaces around it
func LookupColumn(name string) (Column, bool) {
	name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
	name = strings.ReplaceAll(name, " ", "_")
	i, ok := columnIndex[name]
	if !ok {
		return Column{}, false
	}
	return Columns[i], true
}

// ColumnNames returns the canonical header
func ColumnNames() []string {
	names := make([]string, len(Columns))
	for i, c := range Columns {
		names[i] = c.Name
	}
	return names
}

// Text renders the cell as a string. Missing numbers render as "".
func (c Column) Text(p *PinSpec) string {
	if c.Kind == KindNumber {
		return c.measure(p).String()
	}
	return *c.text(p)
}

// Measure returns the numeric cell. Text columns return an invalid measure.
func (c Column) Measure(p *PinSpec) Measure {
	if c.Kind != KindNumber {
		return Measure{}
	}
	return *c.measure(p)
}

// Any returns a string, a float64, or nil for a missing cell
func (c Column) Any(p *PinSpec) interface{} {
	if c.Kind == KindNumber {
		return c.measure(p).Any()
	}
	if s := *c.text(p); s != "" {
		return s
	}
	return nil
}

// IsMissing reports whether the cell is empty
func (c Column) IsMissing(p *PinSpec) bool {
	if c.Kind == KindNumber {
		return !c.measure(p).Valid
	}
	return strings.TrimSpace(*c.text(p)) == ""
}

// Set assigns a raw cell value
func (c Column) Set(p *PinSpec, raw string) error {
	if c.Kind == KindNumber {
		m, err := ParseMeasure(raw)
		if err != nil {
			return err
		}
		*c.measure(p) = m
		return nil
	}
	*c.text(p) = strings.TrimSpace(raw)
	return nil
}

// DecodeRecord builds a record from header-keyed cells. Unknown keys are ignored.
// Cells that fail to parse are left missing and reported.
func DecodeRecord(row int, cells map[string]string) (PinSpec, []ParseIssue) {
	var rec PinSpec
	var issues []ParseIssue

	for name, raw := range cells {
		col, ok := LookupColumn(name)
		if !ok {
			continue
		}
		if err := col.Set(&rec, raw); err != nil {
			issues = append(issues, ParseIssue{
				Row:    row,
				Column: col.Name,
				Value:  raw,
				Reason: err.Error(),
			})
		}
	}

	sort.Slice(issues, func(i, j int) bool {
		return columnIndex[strings.ToLower(issues[i].Column)] < columnIndex[strings.ToLower(issues[j].Column)]
	})

	return rec, issues
}
