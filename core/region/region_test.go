package region

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"circularity-gap/core/classifier"
	"circularity-gap/core/types"
	cgerrors "circularity-gap/internal/errors"
	"circularity-gap/internal/fixture"
)

func flows(v float64) types.MaterialFlows {
	return types.MaterialFlows{
		Extraction: v, WasteGeneration: v, StockDepletion: v, WasteRecovery: v,
		CircularityGap: v, StockAdditions: v, DissipativeEmissions: v, Population: v,
	}
}

// defaultTable has one row per country named by the default regions, each
// with every quantity set to its 1-based position
func defaultTable(t *testing.T, skip string) *types.CountryResultTable {
	t.Helper()
	seen := make(map[string]bool)
	var rows []types.CountryResultRow
	for _, def := range classifier.Default().Regions() {
		for _, code := range def.Members {
			if seen[code] || code == skip {
				continue
			}
			seen[code] = true
			rows = append(rows, types.CountryResultRow{Country: code, MaterialFlows: flows(float64(len(rows) + 1))})
		}
	}
	table, err := types.NewCountryResultTable(rows)
	require.NoError(t, err)
	return table
}

func TestAggregateFixture(t *testing.T) {
	table, err := types.NewCountryResultTable(fixture.CountryRows)
	require.NoError(t, err)

	result, err := Aggregate(fixture.Schema().Regions(), table)
	require.NoError(t, err)
	require.Len(t, result.Rows, 3)

	world := result.Rows[0]
	assert.Equal(t, "World", world.Region)
	assert.Equal(t, 73.0, world.Extraction)
	assert.Equal(t, 22.0, world.CircularityGap)
	assert.Equal(t, 150.0, world.Population)

	alpha, ok := result.Lookup("Alpha")
	require.True(t, ok)
	assert.Equal(t, fixture.CountryRows[0].MaterialFlows, alpha.MaterialFlows)

	pair, _ := result.Lookup("Pair")
	assert.Equal(t, world.MaterialFlows, pair.MaterialFlows)
}

func TestAggregateDefaultRegions(t *testing.T) {
	table := defaultTable(t, "")
	result, err := Aggregate(classifier.Default().Regions(), table)
	require.NoError(t, err)

	names := make([]string, len(result.Rows))
	for i, r := range result.Rows {
		names[i] = r.Region
	}
	assert.Equal(t, []string{
		"World", "Europe", "North America", "China", "Russia", "India",
		"Australia", "Japan", "Latin America", "Middle East", "Africa", "Asia and Pacific",
	}, names)

	t.Run("world is the sum of every country", func(t *testing.T) {
		var want types.MaterialFlows
		for _, r := range table.Rows() {
			want = want.Plus(r.MaterialFlows)
		}
		world, _ := result.Lookup("World")
		assert.Equal(t, want, world.MaterialFlows)
	})

	t.Run("europe sums its members", func(t *testing.T) {
		var defs classifier.Region
		for _, d := range classifier.Default().Regions() {
			if d.Name == "Europe" {
				defs = d
			}
		}
		require.Len(t, defs.Members, 31)
		var want types.MaterialFlows
		for _, code := range defs.Members {
			row, ok := table.Lookup(code)
			require.True(t, ok, code)
			want = want.Plus(row.MaterialFlows)
		}
		europe, _ := result.Lookup("Europe")
		assert.InDelta(t, want.CircularityGap, europe.CircularityGap, 1e-9)
		assert.InDelta(t, want.Population, europe.Population, 1e-9)
	})

	t.Run("single-country regions are copies", func(t *testing.T) {
		for region, code := range map[string]string{
			"China": "CN", "Russia": "RU", "India": "IN", "Australia": "AU", "Japan": "JP",
		} {
			row, ok := table.Lookup(code)
			require.True(t, ok, code)
			got, _ := result.Lookup(region)
			assert.Equal(t, row.MaterialFlows, got.MaterialFlows, region)
		}
	})
}

func TestAggregateMissingCountry(t *testing.T) {
	table := defaultTable(t, "PL")

	_, err := Aggregate(classifier.Default().Regions(), table)
	require.Error(t, err)
	assert.True(t, cgerrors.IsType(err, cgerrors.TypeMissingCountry))
	assert.Contains(t, err.Error(), `"PL"`)
	assert.Contains(t, err.Error(), "Europe")
}
