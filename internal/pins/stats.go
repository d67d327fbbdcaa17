package pins

import (
	"math"
	"sort"
	"strings"
	"time"
)

// WeightClass buckets excavators by stick pin diameter
type WeightClass struct {
	Label    string
	MaxPinMM float64 // inclusive upper bound
}

// WeightClasses in ascending order. The last class is unbounded.
var WeightClasses = []WeightClass{
	{Label: "Mini (< 6 tons)", MaxPinMM: 30},
	{Label: "Compact (6-15 tons)", MaxPinMM: 45},
	{Label: "Medium (15-30 tons)", MaxPinMM: 65},
	{Label: "Large (30-50 tons)", MaxPinMM: 90},
	{Label: "Heavy (50-80 tons)", MaxPinMM: 120},
	{Label: "Ultra Heavy (> 80 tons)", MaxPinMM: math.Inf(1)},
}

// ClassifyWeight returns the weight class for a stick pin diameter in mm
func ClassifyWeight(pinMM float64) WeightClass {
	for _, wc := range WeightClasses {
		if pinMM <= wc.MaxPinMM {
			return wc
		}
	}
	return WeightClasses[len(WeightClasses)-1]
}

type Overview struct {
	TotalRecords       int       `json:"total_records"`
	TotalManufacturers int       `json:"total_manufacturers"`
	DateGenerated      time.Time `json:"date_generated"`
}

type ManufacturerCount struct {
	Manufacturer string `json:"manufacturer"`
	Models       int    `json:"models"`
}

type SourceCount struct {
	Source  string `json:"source"`
	Records int    `json:"records"`
}

type WeightClassCount struct {
	Class   string `json:"class"`
	Records int    `json:"records"`
}

// Distribution summarises the published stick pin diameters
type Distribution struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
}

type Statistics struct {
	Overview                Overview            `json:"overview"`
	Manufacturers           []ManufacturerCount `json:"manufacturers"`
	PinDiameterDistribution *Distribution       `json:"pin_diameter_distribution,omitempty"`
	DataSources             []SourceCount       `json:"data_sources"`
	WeightClasses           []WeightClassCount  `json:"weight_classes"`
}

// Statistics computes the dataset summary
func (c *Catalog) Statistics(now time.Time) Statistics {
	stats := Statistics{
		Overview: Overview{
			TotalRecords:       c.Len(),
			TotalManufacturers: c.ManufacturerCount(),
			DateGenerated:      now.UTC(),
		},
	}

	byManufacturer := make(map[string]int)
	bySource := make(map[string]int)

	for _, rec := range c.Records {
		if name := strings.TrimSpace(rec.Manufacturer); name != "" {
			byManufacturer[name]++
		}
		if src := strings.TrimSpace(rec.DataSource); src != "" {
			bySource[src]++
		}
	}

	for name, n := range byManufacturer {
		stats.Manufacturers = append(stats.Manufacturers, ManufacturerCount{Manufacturer: name, Models: n})
	}
	sort.Slice(stats.Manufacturers, func(i, j int) bool {
		a, b := stats.Manufacturers[i], stats.Manufacturers[j]
		if a.Models != b.Models {
			return a.Models > b.Models
		}
		return a.Manufacturer < b.Manufacturer
	})

	for src, n := range bySource {
		stats.DataSources = append(stats.DataSources, SourceCount{Source: src, Records: n})
	}
	sort.Slice(stats.DataSources, func(i, j int) bool {
		a, b := stats.DataSources[i], stats.DataSources[j]
		if a.Records != b.Records {
			return a.Records > b.Records
		}
		return a.Source < b.Source
	})

	diameters := c.StickPinDiameters()
	stats.PinDiameterDistribution = distribution(diameters)
	stats.WeightClasses = classify(diameters)
	return stats
}

// StickPinDiameters returns the published stick pin diameters in mm, in record order
func (c *Catalog) StickPinDiameters() []float64 {
	var diameters []float64
	for _, rec := range c.Records {
		if rec.StickPinDiameter.MM.Valid {
			diameters = append(diameters, rec.StickPinDiameter.MM.Float)
		}
	}
	return diameters
}

func distribution(values []float64) *Distribution {
	if len(values) == 0 {
		return nil
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}

	n := len(sorted)
	median := sorted[n/2]
	if n%2 == 0 {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	}

	return &Distribution{
		Count:  n,
		Min:    sorted[0],
		Max:    sorted[n-1],
		Mean:   sum / float64(n),
		Median: median,
	}
}

func classify(diameters []float64) []WeightClassCount {
	counts := make([]WeightClassCount, len(WeightClasses))
	index := make(map[string]int, len(WeightClasses))
	for i, wc := range WeightClasses {
		counts[i].Class = wc.Label
		index[wc.Label] = i
	}
	for _, d := range diameters {
		counts[index[ClassifyWeight(d).Label]].Records++
	}
	return counts
}
