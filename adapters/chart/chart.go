// Package chart renders the regional circularity gap as a PNG bar chart
package chart

import (
	"fmt"
	"image/color"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"circularity-gap/core/output"
)

// Default canvas size
const (
	DefaultWidth  = 12 * vg.Inch
	DefaultHeight = 6 * vg.Inch
)

// Formatter renders reports as PNG
type Formatter struct {
	Width  vg.Length
	Height vg.Length

	// PerCapita plots gap per capita instead of absolute tonnes
	PerCapita bool
}

// Format returns FormatPNG
func (Formatter) Format() output.Format { return output.FormatPNG }

// Render draws the chart and writes it to w
func (f Formatter) Render(w io.Writer, report *output.Report) error {
	p, err := f.Plot(report)
	if err != nil {
		return err
	}

	width, height := f.Width, f.Height
	if width == 0 {
		width = DefaultWidth
	}
	if height == 0 {
		height = DefaultHeight
	}
	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return fmt.Errorf("create png canvas: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}

// Plot builds one bar per region
func (f Formatter) Plot(report *output.Report) (*plot.Plot, error) {
	if err := report.Validate(); err != nil {
		return nil, err
	}
	if len(report.Regions.Rows) == 0 {
		return nil, fmt.Errorf("no regions to plot")
	}

	values := make(plotter.Values, len(report.Regions.Rows))
	labels := make([]string, len(report.Regions.Rows))
	for i, row := range report.Regions.Rows {
		labels[i] = row.Region
		if f.PerCapita {
			values[i] = row.GapPerCapita()
		} else {
			values[i] = row.CircularityGap
		}
	}

	p := plot.New()
	p.Title.Text = "Circularity gap by region"
	p.Title.TextStyle.Font.Size = vg.Points(16)
	if f.PerCapita {
		p.Y.Label.Text = "Gap per capita (t/pc)"
	} else {
		p.Y.Label.Text = "Circularity gap (t)"
	}

	bars, err := plotter.NewBarChart(values, vg.Points(20))
	if err != nil {
		return nil, fmt.Errorf("create bar chart: %w", err)
	}
	bars.Color = color.RGBA{R: 70, G: 130, B: 180, A: 255}
	bars.LineStyle.Width = vg.Length(0)

	p.Add(plotter.NewGrid())
	p.Add(bars)
	p.NominalX(labels...)
	p.X.Tick.Label.Rotation = math.Pi / 3
	p.X.Tick.Label.YAlign = draw.YCenter
	p.X.Tick.Label.XAlign = draw.XRight
	return p, nil
}
