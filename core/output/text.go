package output

import (
	"io"

	"github.com/shopspring/decimal"

	"circularity-gap/core/types"
	"circularity-gap/core/ui"
)

// TextFormatter renders the report as terminal tables
type TextFormatter struct {
	// Precision is the number of decimals shown
	Precision int32

	NoColor bool

	// Countries includes the per-country table, which is long for full datasets
	Countries bool
}

// Format returns FormatCLI
func (TextFormatter) Format() Format { return FormatCLI }

// Number formats v with a fixed number of decimals
func Number(v float64, precision int32) string {
	return decimal.NewFromFloat(v).StringFixed(precision)
}

// Render writes the summary, then the world, country and region sections
func (f TextFormatter) Render(w io.Writer, report *Report) error {
	if err := report.Validate(); err != nil {
		return err
	}
	out := ui.NewWriter(w, f.NoColor)
	num := func(v float64) string { return Number(v, f.Precision) }

	summary := out.NewGapSummary()
	summary.GlobalGap = num(report.GlobalGap())
	summary.Unit = report.World.Unit
	for _, c := range types.MaterialClasses() {
		summary.ByClass = append(summary.ByClass, ui.ClassGap{
			Class: string(c),
			Gap:   num(report.World.Classes[c].CircularityGap),
		})
	}
	summary.Countries = report.Countries.Len()
	summary.Regions = len(report.Regions.Rows)
	summary.Duration = report.Metadata.Duration
	summary.Render()

	out.Header("World (" + SectionWorld + ")")
	world := out.NewTable("", types.WorldColumn).AlignRight(1)
	for _, row := range report.World.Rows() {
		world.AddRow(row.Label, num(row.Value))
	}
	world.Render()

	headers := append([]string{""}, types.FlowColumns...)
	headers = append(headers, "Gap per capita (t/pc)")
	numeric := make([]int, 0, len(headers)-1)
	for i := 1; i < len(headers); i++ {
		numeric = append(numeric, i)
	}

	if f.Countries {
		out.Header("Countries (" + SectionCountry + ")")
		countries := out.NewTable(headers...).AlignRight(numeric...)
		for _, row := range report.CountryRows() {
			countries.AddRow(flowCells(row.Country, row.MaterialFlows, num)...)
		}
		countries.Render()
	}

	out.Header("Regions (" + SectionRegion + ")")
	regions := out.NewTable(headers...).AlignRight(numeric...)
	for _, row := range report.Regions.Rows {
		regions.AddRow(flowCells(row.Region, row.MaterialFlows, num)...)
	}
	regions.Render()

	if conv := report.Metadata.Conversions; len(conv) > 0 {
		out.Println("")
		out.SubHeader("Carbon conversions")
		for _, c := range conv {
			out.Println("  %s", c)
		}
	}

	if m := report.Metadata; m.RunID != "" {
		out.Println("")
		out.Info("run %s, schema %s, source %s", m.RunID, m.SchemaVersion, m.Source)
	}
	return nil
}

func flowCells(name string, m types.MaterialFlows, num func(float64) string) []string {
	cells := []string{name}
	for _, v := range m.Values() {
		cells = append(cells, num(v))
	}
	return append(cells, num(m.GapPerCapita()))
}
