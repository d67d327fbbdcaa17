package pins

import (
	"fmt"
	"math"
	"strings"
)

// Release invariants of the current dataset
const (
	ReleaseRecords       = 929
	ReleaseManufacturers = 54
)

// Rules parameterise validation. A zero expected count disables that check.
type Rules struct {
	ExpectedRecords       int
	ExpectedManufacturers int
	UnitTolerance         float64 // inches
	QualityThreshold      float64 // percent
}

// DefaultRules checks the current release
func DefaultRules() Rules {
	return Rules{
		ExpectedRecords:       ReleaseRecords,
		ExpectedManufacturers: ReleaseManufacturers,
		UnitTolerance:         0.01,
		QualityThreshold:      90,
	}
}

// toleranceSlack absorbs float error so a delta sitting on the tolerance passes
const toleranceSlack = 1e-9

// RecordRef points at a record by its 1-based data row
type RecordRef struct {
	Row          int    `json:"row"`
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
}

type MissingField struct {
	RecordRef
	Column string `json:"column"`
}

type UnitMismatch struct {
	RecordRef
	Dimension    string  `json:"dimension"`
	MM           float64 `json:"mm"`
	Inch         float64 `json:"inch"`
	ExpectedInch float64 `json:"expected_inch"`
}

type CountCheck struct {
	Expected int  `json:"expected"`
	Actual   int  `json:"actual"`
	OK       bool `json:"ok"`
}

// Report is the outcome of Validate
type Report struct {
	TotalRecords       int            `json:"total_records"`
	TotalManufacturers int            `json:"total_manufacturers"`
	MissingColumns     []string       `json:"missing_columns"`
	MissingValues      map[string]int `json:"missing_values"`
	DuplicateRecords   int            `json:"duplicate_records"`
	DuplicateKeys      []string       `json:"duplicate_keys,omitempty"`
	MissingRequired    []MissingField `json:"missing_required,omitempty"`
	UnitMismatches     []UnitMismatch `json:"unit_mismatches,omitempty"`
	ParseIssues        []ParseIssue   `json:"parse_issues,omitempty"`
	RecordCount        *CountCheck    `json:"record_count,omitempty"`
	ManufacturerCount  *CountCheck    `json:"manufacturer_count,omitempty"`
	DataQualityScore   float64        `json:"data_quality_score"`
	Issues             []string       `json:"issues"`
}

// OK reports whether validation found no issue
func (r *Report) OK() bool {
	return len(r.Issues) == 0
}

// Validate checks the data quality properties of a catalog
func Validate(c *Catalog, rules Rules) *Report {
	report := &Report{
		TotalRecords:       c.Len(),
		TotalManufacturers: c.ManufacturerCount(),
		MissingColumns:     c.MissingColumns(),
		MissingValues:      make(map[string]int),
		ParseIssues:        c.Issues,
		Issues:             []string{},
	}
	if report.MissingColumns == nil {
		report.MissingColumns = []string{}
	}

	columns := c.PresentColumns()
	missingCells := 0
	seen := make(map[Key]int)
	reported := make(map[Key]bool)

	for i := range c.Records {
		rec := &c.Records[i]
		ref := RecordRef{Row: i + 1, Manufacturer: rec.Manufacturer, Model: rec.Model}

		for _, col := range columns {
			if !col.IsMissing(rec) {
				continue
			}
			report.MissingValues[col.Name]++
			missingCells++
			if col.Required {
				report.MissingRequired = append(report.MissingRequired, MissingField{RecordRef: ref, Column: col.Name})
			}
		}

		key := rec.Key()
		seen[key]++
		if seen[key] > 1 {
			report.DuplicateRecords++
			if !reported[key] {
				reported[key] = true
				report.DuplicateKeys = append(report.DuplicateKeys, fmt.Sprintf("%s %s", rec.Manufacturer, rec.Model))
			}
		}

		for _, nd := range rec.Dimensions() {
			delta, ok := nd.Dimension.ImperialDelta()
			if !ok || delta <= rules.UnitTolerance+toleranceSlack {
				continue
			}
			report.UnitMismatches = append(report.UnitMismatches, UnitMismatch{
				RecordRef:    ref,
				Dimension:    nd.Name,
				MM:           nd.Dimension.MM.Float,
				Inch:         nd.Dimension.Inch.Float,
				ExpectedInch: round(nd.Dimension.MM.Float/MMPerInch, 3),
			})
		}
	}

	totalCells := c.Len() * len(columns)
	if totalCells > 0 {
		report.DataQualityScore = math.Round((1-float64(missingCells)/float64(totalCells))*10000) / 100
	}

	if rules.ExpectedRecords > 0 {
		report.RecordCount = &CountCheck{
			Expected: rules.ExpectedRecords,
			Actual:   report.TotalRecords,
			OK:       rules.ExpectedRecords == report.TotalRecords,
		}
	}
	if rules.ExpectedManufacturers > 0 {
		report.ManufacturerCount = &CountCheck{
			Expected: rules.ExpectedManufacturers,
			Actual:   report.TotalManufacturers,
			OK:       rules.ExpectedManufacturers == report.TotalManufacturers,
		}
	}

	report.Issues = collectIssues(report, rules)
	return report
}

func collectIssues(r *Report, rules Rules) []string {
	issues := []string{}

	if r.TotalRecords == 0 {
		issues = append(issues, "No records loaded")
	}
	if len(r.MissingColumns) > 0 {
		issues = append(issues, fmt.Sprintf("Missing required columns: [%s]", strings.Join(r.MissingColumns, ", ")))
	}
	if r.DuplicateRecords > 0 {
		issues = append(issues, fmt.Sprintf("Found %d duplicate records", r.DuplicateRecords))
	}
	if n := len(r.MissingRequired); n > 0 {
		issues = append(issues, fmt.Sprintf("Found %d missing required values", n))
	}
	if n := len(r.UnitMismatches); n > 0 {
		issues = append(issues, fmt.Sprintf("Found %d metric/imperial mismatches above %g in", n, rules.UnitTolerance))
	}
	if n := len(r.ParseIssues); n > 0 {
		issues = append(issues, fmt.Sprintf("Found %d cells that could not be parsed", n))
	}
	if r.RecordCount != nil && !r.RecordCount.OK {
		issues = append(issues, fmt.Sprintf("Expected %d records, found %d", r.RecordCount.Expected, r.RecordCount.Actual))
	}
	if r.ManufacturerCount != nil && !r.ManufacturerCount.OK {
		issues = append(issues, fmt.Sprintf("Expected %d manufacturers, found %d", r.ManufacturerCount.Expected, r.ManufacturerCount.Actual))
	}
	if r.TotalRecords > 0 && r.DataQualityScore < rules.QualityThreshold {
		issues = append(issues, fmt.Sprintf("Data quality score below %g%%: %g%%", rules.QualityThreshold, r.DataQualityScore))
	}

	return issues
}
