package classifier

import (
	"circularity-gap/core/types"
	cgerrors "circularity-gap/internal/errors"
)

// tableDomain maps each flow table to the row domain it is indexed by
var tableDomain = map[types.TableName]Domain{
	types.ResourceExtraction:   Resource,
	types.ResourceExtractionFD: Resource,
	types.WasteSupply:          Waste,
	types.WasteSupplyFD:        Waste,
	types.WasteUse:             Waste,
	types.StockAdditions:       Waste,
	types.StockAdditionsFD:     Waste,
	types.StockDepletion:       Waste,
	types.Emissions:            Emission,
	types.EmissionsFD:          Emission,
}

// Validate checks a dataset against the schema before anything is computed.
// Resource and waste tables may carry extra trailing rows (e.g. water and
// oxygen in the resource tables); only the first DomainRows rows are
// classified. Emission tables are summed whole per country, so they must
// have exactly DomainRows rows.
func Validate(s *Schema, ds *types.Dataset) error {
	for _, name := range types.AllTables() {
		t, ok := ds.Tables[name]
		if !ok || t == nil {
			return cgerrors.SchemaMismatch(string(name), "table missing from dataset")
		}

		domain := tableDomain[name]
		want := s.DomainRows(domain)
		if t.Rows() < want {
			return cgerrors.SchemaMismatch(string(name), "expected at least %d %s rows, got %d", want, domain, t.Rows()).
				WithContext("rows", t.Rows())
		}
		if domain == Emission && t.Rows() != want {
			return cgerrors.SchemaMismatch(string(name), "expected exactly %d %s rows, got %d", want, domain, t.Rows()).
				WithContext("rows", t.Rows())
		}
		for r := 0; r < t.Rows(); r++ {
			if got := len(t.RowLabel(r)); got != name.LabelDepth() {
				return cgerrors.SchemaMismatch(string(name), "row %d has %d labels, expected %d", r, got, name.LabelDepth()).
					WithContext("row", r)
			}
		}
	}

	industry := ds.Tables[types.ResourceExtraction]
	for _, name := range types.IndustryTables() {
		if !ds.Tables[name].SameColumns(industry) {
			return cgerrors.SchemaMismatch(string(name), "column labels differ from %s", types.ResourceExtraction)
		}
	}
	finalDemand := ds.Tables[types.WasteSupplyFD]
	for _, name := range types.FinalDemandTables() {
		if !ds.Tables[name].SameColumns(finalDemand) {
			return cgerrors.SchemaMismatch(string(name), "column labels differ from %s", types.WasteSupplyFD)
		}
	}

	width := s.Recovery().Width()
	if industry.Cols()%width != 0 {
		return cgerrors.SchemaMismatch(string(types.WasteUse), "%d columns do not divide into blocks of %d activities", industry.Cols(), width)
	}
	for _, country := range industry.Countries() {
		cols, _ := industry.CountryColumns(country)
		if len(cols) != width {
			return cgerrors.SchemaMismatch(string(types.WasteUse), "country %s has %d activities, expected %d", country, len(cols), width).
				WithContext("country", country)
		}
		// blocks must be contiguous so periodic selection lines up with country selection
		if cols[len(cols)-1]-cols[0] != width-1 {
			return cgerrors.SchemaMismatch(string(types.WasteUse), "country %s activity columns are not contiguous", country).
				WithContext("country", country)
		}
	}

	for _, country := range finalDemand.Countries() {
		if _, ok := industry.CountryColumns(country); !ok {
			return cgerrors.SchemaMismatch(string(types.ResourceExtraction), "final-demand country %s has no activity columns", country).
				WithContext("country", country)
		}
	}

	if ds.Population == nil {
		return cgerrors.SchemaMismatch(types.PopulationFile, "population vector missing from dataset")
	}

	return nil
}
