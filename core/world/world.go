// Package world computes global material totals per material class.
//
// Values are summed over every column of a table (all countries, all
// activities), converted where the schema flags a carbon-equivalent row,
// then reported in gigatonnes.
package world

import (
	"circularity-gap/core/classifier"
	"circularity-gap/core/types"
	cgerrors "circularity-gap/internal/errors"
)

// Unit of every reported world value
const Unit = "Gt"

// tonnesPerGigatonne converts the table unit (t) to the report unit
const tonnesPerGigatonne = 1e9

// Compute derives the world totals of each material class
func Compute(s *classifier.Schema, ds *types.Dataset) (*types.WorldResult, error) {
	t, err := loadTables(ds)
	if err != nil {
		return nil, err
	}

	recoveryCols, err := s.Recovery().Select(t.wu.Cols())
	if err != nil {
		return nil, cgerrors.Wrap(cgerrors.TypeDataShape, "select recovery activities", err).
			WithContext("table", string(types.WasteUse))
	}

	result := &types.WorldResult{
		Unit:    Unit,
		Classes: make(map[types.MaterialClass]types.ClassTotals, 4),
	}

	for _, class := range types.MaterialClasses() {
		totals, err := computeClass(s, t, class, recoveryCols)
		if err != nil {
			return nil, err
		}
		result.Classes[class] = totals.Div(tonnesPerGigatonne)
	}
	return result, nil
}

type tables struct {
	re, reFD, ws, wsFD, wu, sa, saFD, sd, em, emFD *types.FlowTable
}

func loadTables(ds *types.Dataset) (*tables, error) {
	t := &tables{}
	targets := []struct {
		name types.TableName
		dst  **types.FlowTable
	}{
		{types.ResourceExtraction, &t.re},
		{types.ResourceExtractionFD, &t.reFD},
		{types.WasteSupply, &t.ws},
		{types.WasteSupplyFD, &t.wsFD},
		{types.WasteUse, &t.wu},
		{types.StockAdditions, &t.sa},
		{types.StockAdditionsFD, &t.saFD},
		{types.StockDepletion, &t.sd},
		{types.Emissions, &t.em},
		{types.EmissionsFD, &t.emFD},
	}
	for _, target := range targets {
		table, err := ds.Table(target.name)
		if err != nil {
			return nil, err
		}
		*target.dst = table
	}
	return t, nil
}

func computeClass(s *classifier.Schema, t *tables, class types.MaterialClass, recoveryCols []int) (types.ClassTotals, error) {
	var (
		totals types.ClassTotals
		err    error
	)

	resource := s.Class(classifier.Resource, class)
	if totals.Extraction, err = sumClass(resource, t.re, optional(resource.FinalDemand, t.reFD)); err != nil {
		return totals, err
	}

	waste := s.Class(classifier.Waste, class)
	plain := classifier.ClassRows{Rows: waste.Rows}
	if totals.WasteSupply, err = sumClass(plain, t.ws, t.wsFD); err != nil {
		return totals, err
	}
	if totals.StockAdditions, err = sumClass(plain, t.sa, t.saFD); err != nil {
		return totals, err
	}
	if totals.StockDepletion, err = sumClass(plain, t.sd, nil); err != nil {
		return totals, err
	}
	if err = t.wu.RequireRows(waste.Rows); err != nil {
		return totals, err
	}
	if err = t.wu.RequireCols(recoveryCols); err != nil {
		return totals, err
	}
	for _, r := range waste.Rows {
		totals.WasteRecovery += t.wu.RowSumAt(r, recoveryCols)
	}

	emission := s.Class(classifier.Emission, class)
	if totals.DissipativeEmissions, err = sumClass(emission, t.em, optional(emission.FinalDemand, t.emFD)); err != nil {
		return totals, err
	}

	totals.MaterialDispersed = (totals.Extraction + totals.WasteRecovery) -
		(totals.WasteSupply + totals.StockAdditions + totals.DissipativeEmissions)
	totals.DomesticProcessedOutput = totals.DissipativeEmissions + totals.MaterialDispersed
	totals.CircularityGap = totals.WasteSupply + totals.StockDepletion - totals.WasteRecovery

	return totals, nil
}

func optional(enabled bool, t *types.FlowTable) *types.FlowTable {
	if !enabled {
		return nil
	}
	return t
}

// sumClass adds the selected rows of act (and fd, when given) across all
// columns. A row conversion applies to the combined row total.
func sumClass(rows classifier.ClassRows, act, fd *types.FlowTable) (float64, error) {
	if err := act.RequireRows(rows.Rows); err != nil {
		return 0, err
	}
	if fd != nil {
		if err := fd.RequireRows(rows.Rows); err != nil {
			return 0, err
		}
	}

	var total float64
	for _, r := range rows.Rows {
		v := act.RowSum(r)
		if fd != nil {
			v += fd.RowSum(r)
		}
		if conv, ok := rows.ConversionFor(r); ok {
			v = conv.Apply(v)
		}
		total += v
	}
	return total, nil
}
