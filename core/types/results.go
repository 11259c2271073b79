// Package types - Aggregation result types
package types

import (
	cgerrors "circularity-gap/internal/errors"
)

// MaterialClass is one of the four material groupings
type MaterialClass string

const (
	Fossil   MaterialClass = "fossil"
	Biomass  MaterialClass = "biomass"
	Metal    MaterialClass = "metal"
	NonMetal MaterialClass = "non-metal"
)

// MaterialClasses returns the classes in report order
func MaterialClasses() []MaterialClass {
	return []MaterialClass{Fossil, Biomass, Metal, NonMetal}
}

// Valid reports whether c is a known class
func (c MaterialClass) Valid() bool {
	switch c {
	case Fossil, Biomass, Metal, NonMetal:
		return true
	}
	return false
}

// ClassTotals holds the world-level quantities for one material class
type ClassTotals struct {
	Extraction              float64 `json:"extraction"`
	WasteSupply             float64 `json:"waste_supply"`
	WasteRecovery           float64 `json:"waste_recovery"`
	StockAdditions          float64 `json:"stock_additions"`
	StockDepletion          float64 `json:"stock_depletion"`
	DissipativeEmissions    float64 `json:"dissipative_emissions"`
	MaterialDispersed       float64 `json:"material_dispersed"`
	DomesticProcessedOutput float64 `json:"domestic_processed_output"`
	CircularityGap          float64 `json:"circularity_gap"`
}

// Div divides every quantity by d
func (t ClassTotals) Div(d float64) ClassTotals {
	return ClassTotals{
		Extraction:              t.Extraction / d,
		WasteSupply:             t.WasteSupply / d,
		WasteRecovery:           t.WasteRecovery / d,
		StockAdditions:          t.StockAdditions / d,
		StockDepletion:          t.StockDepletion / d,
		DissipativeEmissions:    t.DissipativeEmissions / d,
		MaterialDispersed:       t.MaterialDispersed / d,
		DomesticProcessedOutput: t.DomesticProcessedOutput / d,
		CircularityGap:          t.CircularityGap / d,
	}
}

// LabeledValue is one row of a single-column report section
type LabeledValue struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// WorldResult holds the global totals per material class
type WorldResult struct {
	// Unit is the unit of every value (Gt)
	Unit string `json:"unit"`

	Classes map[MaterialClass]ClassTotals `json:"classes"`
}

// WorldColumn is the header of the world section
const WorldColumn = "Gigatonnes (Gt)"

// Rows flattens the result into the 28 reported rows
func (w *WorldResult) Rows() []LabeledValue {
	quantities := []struct {
		prefix string
		get    func(ClassTotals) float64
	}{
		{"re", func(t ClassTotals) float64 { return t.Extraction }},
		{"dpo", func(t ClassTotals) float64 { return t.DomesticProcessedOutput }},
		{"w", func(t ClassTotals) float64 { return t.WasteSupply }},
		{"s_add", func(t ClassTotals) float64 { return t.StockAdditions }},
		{"s_dep", func(t ClassTotals) float64 { return t.StockDepletion }},
		{"gap", func(t ClassTotals) float64 { return t.CircularityGap }},
		{"w_rec", func(t ClassTotals) float64 { return t.WasteRecovery }},
	}

	rows := make([]LabeledValue, 0, len(quantities)*4)
	for _, q := range quantities {
		for _, c := range MaterialClasses() {
			rows = append(rows, LabeledValue{
				Label: q.prefix + "_" + string(c),
				Value: q.get(w.Classes[c]),
			})
		}
	}
	return rows
}

// FlowColumns are the column headers of the country and region sections
var FlowColumns = []string{
	"Resource extraction (t)",
	"Waste generation (t)",
	"Stock depletion (t)",
	"Waste recovery (t)",
	"Circularity gap (t)",
	"Stock additions (t)",
	"Dissipative emissions (t)",
	"Population (pc)",
}

// MaterialFlows is the eight-quantity shape shared by countries and regions
type MaterialFlows struct {
	Extraction           float64 `json:"extraction"`
	WasteGeneration      float64 `json:"waste_generation"`
	StockDepletion       float64 `json:"stock_depletion"`
	WasteRecovery        float64 `json:"waste_recovery"`
	CircularityGap       float64 `json:"circularity_gap"`
	StockAdditions       float64 `json:"stock_additions"`
	DissipativeEmissions float64 `json:"dissipative_emissions"`
	Population           float64 `json:"population"`
}

// Values returns the quantities in column order
func (m MaterialFlows) Values() []float64 {
	return []float64{
		m.Extraction,
		m.WasteGeneration,
		m.StockDepletion,
		m.WasteRecovery,
		m.CircularityGap,
		m.StockAdditions,
		m.DissipativeEmissions,
		m.Population,
	}
}

// Plus returns the elementwise sum
func (m MaterialFlows) Plus(o MaterialFlows) MaterialFlows {
	return MaterialFlows{
		Extraction:           m.Extraction + o.Extraction,
		WasteGeneration:      m.WasteGeneration + o.WasteGeneration,
		StockDepletion:       m.StockDepletion + o.StockDepletion,
		WasteRecovery:        m.WasteRecovery + o.WasteRecovery,
		CircularityGap:       m.CircularityGap + o.CircularityGap,
		StockAdditions:       m.StockAdditions + o.StockAdditions,
		DissipativeEmissions: m.DissipativeEmissions + o.DissipativeEmissions,
		Population:           m.Population + o.Population,
	}
}

// GapPerCapita is the circularity gap divided by population, or 0
func (m MaterialFlows) GapPerCapita() float64 {
	if m.Population == 0 {
		return 0
	}
	return m.CircularityGap / m.Population
}

// CountryResultRow holds the quantities for one country
type CountryResultRow struct {
	Country string `json:"country"`
	MaterialFlows
}

// CountryResultTable is the per-country result, in country-universe order
type CountryResultTable struct {
	rows  []CountryResultRow
	index map[string]int
}

// NewCountryResultTable indexes rows by country code
func NewCountryResultTable(rows []CountryResultRow) (*CountryResultTable, error) {
	t := &CountryResultTable{
		rows:  append([]CountryResultRow(nil), rows...),
		index: make(map[string]int, len(rows)),
	}
	for i, r := range rows {
		if _, dup := t.index[r.Country]; dup {
			return nil, cgerrors.DataShape("country results", "duplicate country %q", r.Country).
				WithContext("country", r.Country)
		}
		t.index[r.Country] = i
	}
	return t, nil
}

// Rows returns a copy of the rows
func (t *CountryResultTable) Rows() []CountryResultRow {
	return append([]CountryResultRow(nil), t.rows...)
}

// Len returns the number of countries
func (t *CountryResultTable) Len() int { return len(t.rows) }

// Lookup returns the row of one country
func (t *CountryResultTable) Lookup(country string) (CountryResultRow, bool) {
	i, ok := t.index[country]
	if !ok {
		return CountryResultRow{}, false
	}
	return t.rows[i], true
}

// RegionResultRow holds the summed quantities of a named group
type RegionResultRow struct {
	Region string `json:"region"`
	MaterialFlows
}

// RegionResultTable is the per-region result in report order
type RegionResultTable struct {
	Rows []RegionResultRow `json:"rows"`
}

// Lookup returns the row of one region
func (t *RegionResultTable) Lookup(region string) (RegionResultRow, bool) {
	for _, r := range t.Rows {
		if r.Region == region {
			return r, true
		}
	}
	return RegionResultRow{}, false
}
