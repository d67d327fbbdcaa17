package formats

import (
	"fmt"
	"image/color"
	"io"
	"math"

	"github.com/data-power-io/excavator-pins/internal/pins"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

const (
	TopManufacturers = 15
	HistogramBins    = 30
)

// Chart is one PNG rendered from the dataset statistics
type Chart struct {
	FileName string
	Title    string
	Width    vg.Length
	Height   vg.Length
	build    func(title string, stats pins.Statistics, diameters []float64) (*plot.Plot, error)
}

// Charts are written by the charts export, in this order
var Charts = []Chart{
	{
		FileName: "manufacturer_distribution.png",
		Title:    "Top 15 Manufacturers by Model Count",
		Width:    12 * vg.Inch,
		Height:   8 * vg.Inch,
		build:    manufacturerChart,
	},
	{
		FileName: "pin_diameter_distribution.png",
		Title:    "Pin Diameter Distribution",
		Width:    10 * vg.Inch,
		Height:   6 * vg.Inch,
		build:    pinDiameterChart,
	},
	{
		FileName: "weight_class_distribution.png",
		Title:    "Excavator Weight Class Distribution",
		Width:    10 * vg.Inch,
		Height:   8 * vg.Inch,
		build:    weightClassChart,
	},
}

// Write renders the chart as PNG. diameters are the stick pin diameters in mm.
func (ch Chart) Write(w io.Writer, stats pins.Statistics, diameters []float64) error {
	p, err := ch.build(ch.Title, stats, diameters)
	if err != nil {
		return fmt.Errorf("failed to build %s: %w", ch.FileName, err)
	}

	wt, err := p.WriterTo(ch.Width, ch.Height, "png")
	if err != nil {
		return fmt.Errorf("failed to render %s: %w", ch.FileName, err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write %s: %w", ch.FileName, err)
	}
	return nil
}

func manufacturerChart(title string, stats pins.Statistics, _ []float64) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Manufacturer"
	p.Y.Label.Text = "Number of Models"

	top := stats.Manufacturers
	if len(top) > TopManufacturers {
		top = top[:TopManufacturers]
	}
	if len(top) == 0 {
		return p, nil
	}

	values := make(plotter.Values, len(top))
	names := make([]string, len(top))
	for i, m := range top {
		values[i] = float64(m.Models)
		names[i] = m.Manufacturer
	}

	bars, err := plotter.NewBarChart(values, vg.Points(24))
	if err != nil {
		return nil, err
	}
	bars.Color = plotutil.Color(0)
	bars.LineStyle.Width = 0

	p.Add(bars)
	p.NominalX(names...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = text.XRight
	p.X.Tick.Label.YAlign = text.YCenter
	return p, nil
}

func pinDiameterChart(title string, _ pins.Statistics, diameters []float64) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Pin Diameter (mm)"
	p.Y.Label.Text = "Frequency"
	p.Add(plotter.NewGrid())

	if len(diameters) == 0 {
		return p, nil
	}

	hist, err := plotter.NewHist(plotter.Values(diameters), HistogramBins)
	if err != nil {
		return nil, err
	}
	hist.FillColor = plotutil.Color(1)
	p.Add(hist)
	return p, nil
}

func weightClassChart(title string, stats pins.Statistics, _ []float64) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.HideAxes()
	p.Legend.Top = true

	var slices pie
	total := 0
	for _, wc := range stats.WeightClasses {
		total += wc.Records
	}
	for i, wc := range stats.WeightClasses {
		if wc.Records == 0 {
			continue
		}
		clr := plotutil.Color(i)
		slices.values = append(slices.values, float64(wc.Records))
		slices.colors = append(slices.colors, clr)
		p.Legend.Add(fmt.Sprintf("%s %.1f%%", wc.Class, 100*float64(wc.Records)/float64(total)), swatch{clr})
	}

	p.Add(slices)
	return p, nil
}

// pie draws wedges counterclockwise from twelve o'clock
type pie struct {
	values []float64
	colors []color.Color
}

func (pc pie) Plot(c draw.Canvas, _ *plot.Plot) {
	total := 0.0
	for _, v := range pc.values {
		total += v
	}
	if total == 0 {
		return
	}

	center := vg.Point{X: (c.Min.X + c.Max.X) / 2, Y: (c.Min.Y + c.Max.Y) / 2}
	radius := c.Max.X - c.Min.X
	if h := c.Max.Y - c.Min.Y; h < radius {
		radius = h
	}
	radius = radius * 0.45

	start := math.Pi / 2
	for i, v := range pc.values {
		sweep := 2 * math.Pi * v / total

		var wedge vg.Path
		wedge.Move(center)
		wedge.Arc(center, radius, start, sweep)
		wedge.Close()

		c.SetColor(pc.colors[i])
		c.Fill(wedge)
		start += sweep
	}
}

// swatch is a legend thumbnail filled with one color
type swatch struct {
	color color.Color
}

func (s swatch) Thumbnail(c *draw.Canvas) {
	c.FillPolygon(s.color, []vg.Point{
		{X: c.Min.X, Y: c.Min.Y},
		{X: c.Min.X, Y: c.Max.Y},
		{X: c.Max.X, Y: c.Max.Y},
		{X: c.Max.X, Y: c.Min.Y},
	})
}
