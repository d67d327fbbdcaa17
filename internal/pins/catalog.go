package pins

import (
	"sort"
	"strings"
)

// Catalog is a loaded dataset
type Catalog struct {
	Source  string
	Format  string
	Header  []string
	Records []PinSpec
	Issues  []ParseIssue
}

// NewCatalog wraps records built in code. The header is the canonical one.
func NewCatalog(records []PinSpec) *Catalog {
	return &Catalog{
		Header:  ColumnNames(),
		Records: records,
	}
}

// Len returns the number of records
func (c *Catalog) Len() int {
	return len(c.Records)
}

// PresentColumns returns the known columns found in the source header, in canonical order
func (c *Catalog) PresentColumns() []Column {
	if len(c.Header) == 0 {
		return Columns
	}

	present := make(map[string]bool, len(c.Header))
	for _, h := range c.Header {
		if col, ok := LookupColumn(h); ok {
			present[col.Name] = true
		}
	}

	var cols []Column
	for _, col := range Columns {
		if present[col.Name] {
			cols = append(cols, col)
		}
	}
	return cols
}

// MissingColumns returns expected columns absent from the source header
func (c *Catalog) MissingColumns() []string {
	present := make(map[string]bool)
	for _, col := range c.PresentColumns() {
		present[col.Name] = true
	}

	var missing []string
	for _, col := range Columns {
		if !col.Optional && !present[col.Name] {
			missing = append(missing, col.Name)
		}
	}
	return missing
}

// Lookup returns the record identified by manufacturer and model
func (c *Catalog) Lookup(manufacturer, model string) (*PinSpec, error) {
	key := NewKey(manufacturer, model)
	for i := range c.Records {
		if c.Records[i].Key() == key {
			return &c.Records[i], nil
		}
	}
	return nil, ErrNotFound
}

// Manufacturers returns the sorted distinct manufacturer names
func (c *Catalog) Manufacturers() []string {
	seen := make(map[string]bool)
	var names []string
	for _, rec := range c.Records {
		name := strings.TrimSpace(rec.Manufacturer)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ManufacturerCount returns the number of distinct manufacturers
func (c *Catalog) ManufacturerCount() int {
	return len(c.Manufacturers())
}

// Criteria filters a search. Empty strings and nil bounds do not filter.
type Criteria struct {
	Manufacturer string   `json:"manufacturer,omitempty"`
	Model        string   `json:"model,omitempty"`
	DataSource   string   `json:"data_source,omitempty"`
	MinPinMM     *float64 `json:"pin_diameter_min,omitempty"`
	MaxPinMM     *float64 `json:"pin_diameter_max,omitempty"`
	Limit        int      `json:"limit,omitempty"`
}

// Search returns matching records in source order
func (c *Catalog) Search(criteria Criteria) []PinSpec {
	var results []PinSpec
	for _, rec := range c.Records {
		if !criteria.matches(&rec) {
			continue
		}
		results = append(results, rec)
		if criteria.Limit > 0 && len(results) >= criteria.Limit {
			break
		}
	}
	return results
}

func (cr Criteria) matches(rec *PinSpec) bool {
	if !containsFold(rec.Manufacturer, cr.Manufacturer) ||
		!containsFold(rec.Model, cr.Model) ||
		!containsFold(rec.DataSource, cr.DataSource) {
		return false
	}

	pin := rec.StickPinDiameter.MM
	if cr.MinPinMM != nil && (!pin.Valid || pin.Float < *cr.MinPinMM) {
		return false
	}
	if cr.MaxPinMM != nil && (!pin.Valid || pin.Float > *cr.MaxPinMM) {
		return false
	}
	return true
}

func containsFold(s, substr string) bool {
	if substr == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(strings.TrimSpace(substr)))
}

// DeriveImperial fills missing inch values from millimetres and returns the number of cells filled
func (c *Catalog) DeriveImperial(precision int) int {
	filled := 0
	for i := range c.Records {
		for _, nd := range c.Records[i].Dimensions() {
			if nd.Dimension.deriveInch(precision) {
				filled++
			}
		}
	}
	if filled > 0 {
		c.Header = mergeHeader(c.Header)
	}
	return filled
}

// mergeHeader adds the imperial columns to a partial header
func mergeHeader(header []string) []string {
	if len(header) == 0 {
		return header
	}
	present := make(map[string]bool)
	for _, h := range header {
		if col, ok := LookupColumn(h); ok {
			present[col.Name] = true
		}
	}
	merged := append([]string(nil), header...)
	for _, col := range Columns {
		if strings.HasSuffix(col.Name, "_inch") && !present[col.Name] {
			merged = append(merged, col.Name)
		}
	}
	return merged
}
