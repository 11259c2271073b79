// Package region sums country rows into named regions.
package region

import (
	"circularity-gap/core/classifier"
	"circularity-gap/core/types"
	cgerrors "circularity-gap/internal/errors"
)

// Aggregate builds one row per definition, in definition order.
// Country codes are opaque, including rest-of-world placeholders such as WE or WA.
func Aggregate(defs []classifier.Region, table *types.CountryResultTable) (*types.RegionResultTable, error) {
	result := &types.RegionResultTable{Rows: make([]types.RegionResultRow, 0, len(defs))}

	for _, def := range defs {
		row, err := aggregateOne(def, table)
		if err != nil {
			return nil, err
		}
		result.Rows = append(result.Rows, row)
	}
	return result, nil
}

func aggregateOne(def classifier.Region, table *types.CountryResultTable) (types.RegionResultRow, error) {
	row := types.RegionResultRow{Region: def.Name}

	if def.All {
		for _, c := range table.Rows() {
			row.MaterialFlows = row.MaterialFlows.Plus(c.MaterialFlows)
		}
		return row, nil
	}

	for i, code := range def.Members {
		c, ok := table.Lookup(code)
		if !ok {
			return row, cgerrors.MissingCountry(def.Name, code)
		}
		if i == 0 {
			row.MaterialFlows = c.MaterialFlows
			continue
		}
		row.MaterialFlows = row.MaterialFlows.Plus(c.MaterialFlows)
	}
	return row, nil
}
