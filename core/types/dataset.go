// Package types - Dataset and population types
package types

import (
	cgerrors "circularity-gap/internal/errors"
)

// TableName identifies one of the source flow tables
type TableName string

const (
	ResourceExtraction   TableName = "RE_ACT"
	ResourceExtractionFD TableName = "RE_FD"
	WasteSupply          TableName = "WS_ACT"
	WasteSupplyFD        TableName = "WS_FD"
	WasteUse             TableName = "WU_ACT"
	StockAdditions       TableName = "SA_ACT"
	StockAdditionsFD     TableName = "SA_FD"
	StockDepletion       TableName = "SD"
	Emissions            TableName = "EM_ACT"
	EmissionsFD          TableName = "EM_FD"
)

// PopulationFile is the name of the population vector
const PopulationFile = "POP"

// AllTables lists every flow table in load order
func AllTables() []TableName {
	return []TableName{
		ResourceExtraction, ResourceExtractionFD,
		WasteSupply, WasteSupplyFD,
		WasteUse,
		StockAdditions, StockAdditionsFD,
		StockDepletion,
		Emissions, EmissionsFD,
	}
}

// IndustryTables are the tables indexed by (country, activity)
func IndustryTables() []TableName {
	return []TableName{ResourceExtraction, WasteSupply, WasteUse, StockAdditions, StockDepletion, Emissions}
}

// FinalDemandTables are the tables indexed by (country, final-demand category)
func FinalDemandTables() []TableName {
	return []TableName{ResourceExtractionFD, WasteSupplyFD, StockAdditionsFD, EmissionsFD}
}

// LabelDepth is the number of row-label columns the table carries
func (n TableName) LabelDepth() int {
	if n == Emissions || n == EmissionsFD {
		return 3
	}
	return 2
}

// PopulationVector maps a country code to its population
type PopulationVector struct {
	order  []string
	values map[string]float64
}

// NewPopulationVector builds a vector preserving the given country order.
// Repeated codes accumulate.
func NewPopulationVector(countries []string, values []float64) (*PopulationVector, error) {
	if len(countries) != len(values) {
		return nil, cgerrors.DataShape(PopulationFile, "%d countries for %d values", len(countries), len(values))
	}
	p := &PopulationVector{values: make(map[string]float64, len(countries))}
	for i, c := range countries {
		if _, ok := p.values[c]; !ok {
			p.order = append(p.order, c)
		}
		p.values[c] += values[i]
	}
	return p, nil
}

// Get returns the population of a country
func (p *PopulationVector) Get(country string) (float64, bool) {
	v, ok := p.values[country]
	return v, ok
}

// Countries returns the countries in input order
func (p *PopulationVector) Countries() []string {
	return append([]string(nil), p.order...)
}

// Len returns the number of countries
func (p *PopulationVector) Len() int { return len(p.order) }

// Dataset is the full set of read-only inputs for one run
type Dataset struct {
	// Source describes where the tables came from
	Source string

	Tables     map[TableName]*FlowTable
	Population *PopulationVector
}

// Table returns a table or a DataShape error if it was never loaded
func (d *Dataset) Table(name TableName) (*FlowTable, error) {
	t, ok := d.Tables[name]
	if !ok || t == nil {
		return nil, cgerrors.DataShape(string(name), "table not loaded")
	}
	return t, nil
}

// Countries returns the country universe, sampled once per final-demand block
func (d *Dataset) Countries() ([]string, error) {
	t, err := d.Table(WasteSupplyFD)
	if err != nil {
		return nil, err
	}
	return t.Countries(), nil
}
