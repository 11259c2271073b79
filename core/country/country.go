// Package country computes per-country material flows.
//
// Country figures are in tonnes and use every classified row of a domain;
// unlike the world totals, only the country conversions of the schema apply
// and only to activity extraction.
package country

import (
	"context"

	"golang.org/x/sync/errgroup"

	"circularity-gap/core/classifier"
	"circularity-gap/core/types"
	cgerrors "circularity-gap/internal/errors"
)

// ComputeRow derives the eight quantities of one country
func ComputeRow(country string, s *classifier.Schema, ds *types.Dataset) (types.CountryResultRow, error) {
	row := types.CountryResultRow{Country: country}

	if ds.Population == nil {
		return row, cgerrors.MissingPopulation(country)
	}
	population, ok := ds.Population.Get(country)
	if !ok {
		return row, cgerrors.MissingPopulation(country)
	}
	row.Population = population

	resourceRows := span(s.DomainRows(classifier.Resource))
	wasteRows := span(s.DomainRows(classifier.Waste))
	emissionRows := span(s.DomainRows(classifier.Emission))

	re, reCols, err := tableFor(ds, types.ResourceExtraction, country)
	if err != nil {
		return row, err
	}
	if err = re.RequireRows(resourceRows); err != nil {
		return row, err
	}
	for _, r := range resourceRows {
		v := re.RowSumAt(r, reCols)
		if conv, ok := s.CountryConversionFor(r); ok {
			v = conv.Apply(v)
		}
		row.Extraction += v
	}
	extractionFD, err := sumCountry(ds, types.ResourceExtractionFD, country, resourceRows)
	if err != nil {
		return row, err
	}
	row.Extraction += extractionFD

	if row.WasteGeneration, err = sumCountry(ds, types.WasteSupply, country, wasteRows); err != nil {
		return row, err
	}
	wasteFD, err := sumCountry(ds, types.WasteSupplyFD, country, wasteRows)
	if err != nil {
		return row, err
	}
	row.WasteGeneration += wasteFD

	wu, block, err := tableFor(ds, types.WasteUse, country)
	if err != nil {
		return row, err
	}
	recoveryCols, err := s.Recovery().Within(block)
	if err != nil {
		return row, err
	}
	if err = wu.RequireRows(wasteRows); err != nil {
		return row, err
	}
	for _, r := range wasteRows {
		row.WasteRecovery += wu.RowSumAt(r, recoveryCols)
	}

	if row.StockAdditions, err = sumCountry(ds, types.StockAdditions, country, wasteRows); err != nil {
		return row, err
	}
	stockFD, err := sumCountry(ds, types.StockAdditionsFD, country, wasteRows)
	if err != nil {
		return row, err
	}
	row.StockAdditions += stockFD

	if row.StockDepletion, err = sumCountry(ds, types.StockDepletion, country, wasteRows); err != nil {
		return row, err
	}

	if row.DissipativeEmissions, err = sumCountry(ds, types.Emissions, country, emissionRows); err != nil {
		return row, err
	}
	emissionFD, err := sumCountry(ds, types.EmissionsFD, country, emissionRows)
	if err != nil {
		return row, err
	}
	row.DissipativeEmissions += emissionFD

	row.CircularityGap = row.WasteGeneration + row.StockDepletion - row.WasteRecovery
	return row, nil
}

// ComputeTable runs ComputeRow for every country of the final-demand universe
// on at most workers goroutines. Rows keep the universe order; the first
// failure cancels the remaining countries.
func ComputeTable(ctx context.Context, s *classifier.Schema, ds *types.Dataset, workers int) (*types.CountryResultTable, error) {
	countries, err := ds.Countries()
	if err != nil {
		return nil, err
	}

	rows := make([]types.CountryResultRow, len(countries))
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}

	for i, c := range countries {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			row, err := ComputeRow(c, s, ds)
			if err != nil {
				return err
			}
			rows[i] = row
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return types.NewCountryResultTable(rows)
}

func tableFor(ds *types.Dataset, name types.TableName, country string) (*types.FlowTable, []int, error) {
	t, err := ds.Table(name)
	if err != nil {
		return nil, nil, err
	}
	cols, ok := t.CountryColumns(country)
	if !ok {
		return nil, nil, cgerrors.DataShape(string(name), "no columns for country %q", country).
			WithContext("country", country)
	}
	return t, cols, nil
}

func sumCountry(ds *types.Dataset, name types.TableName, country string, rows []int) (float64, error) {
	t, cols, err := tableFor(ds, name, country)
	if err != nil {
		return 0, err
	}
	if err := t.RequireRows(rows); err != nil {
		return 0, err
	}
	var total float64
	for _, r := range rows {
		total += t.RowSumAt(r, cols)
	}
	return total, nil
}

func span(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
