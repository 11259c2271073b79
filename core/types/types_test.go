package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cgerrors "circularity-gap/internal/errors"
)

func sampleTable(t *testing.T) *FlowTable {
	t.Helper()
	table, err := NewFlowTable("WS_ACT",
		[][]string{{"Waste", "Food"}, {"Waste", "Wood"}},
		[]ColumnLabel{{"AT", "A1"}, {"AT", "A2"}, {"BE", "A1"}, {"BE", "A2"}},
		[][]float64{
			{1, 2, 3, 4},
			{10, 20, 30, 40},
		})
	require.NoError(t, err)
	return table
}

func TestFlowTableAccessors(t *testing.T) {
	table := sampleTable(t)

	assert.Equal(t, 2, table.Rows())
	assert.Equal(t, 4, table.Cols())
	assert.Equal(t, 30.0, table.At(1, 2))
	assert.Equal(t, 10.0, table.RowSum(0))
	assert.Equal(t, 60.0, table.RowSumAt(1, []int{1, 3}))
	assert.Equal(t, []string{"AT", "BE"}, table.Countries())

	cols, ok := table.CountryColumns("BE")
	require.True(t, ok)
	assert.Equal(t, []int{2, 3}, cols)

	_, ok = table.CountryColumns("FR")
	assert.False(t, ok)
}

func TestFlowTableCopiesAreIndependent(t *testing.T) {
	table := sampleTable(t)

	label := table.RowLabel(0)
	label[0] = "mutated"
	assert.Equal(t, "Waste", table.RowLabel(0)[0])

	cols, _ := table.CountryColumns("AT")
	cols[0] = 99
	again, _ := table.CountryColumns("AT")
	assert.Equal(t, []int{0, 1}, again)
}

func TestFlowTableRejectsRaggedRows(t *testing.T) {
	_, err := NewFlowTable("SD",
		[][]string{{"a", "b"}},
		[]ColumnLabel{{"AT", "A1"}, {"AT", "A2"}},
		[][]float64{{1}})
	require.Error(t, err)
	assert.True(t, cgerrors.IsType(err, cgerrors.TypeDataShape))
}

func TestRequireRowsAndCols(t *testing.T) {
	table := sampleTable(t)
	assert.NoError(t, table.RequireRows([]int{0, 1}))
	assert.True(t, cgerrors.IsType(table.RequireRows([]int{2}), cgerrors.TypeDataShape))
	assert.True(t, cgerrors.IsType(table.RequireCols([]int{4}), cgerrors.TypeDataShape))
}

func TestWorldRowsOrder(t *testing.T) {
	w := &WorldResult{Unit: "Gt", Classes: map[MaterialClass]ClassTotals{
		Fossil:   {Extraction: 1, CircularityGap: 5},
		NonMetal: {WasteRecovery: 7},
	}}
	rows := w.Rows()
	require.Len(t, rows, 28)
	assert.Equal(t, LabeledValue{"re_fossil", 1}, rows[0])
	assert.Equal(t, "dpo_fossil", rows[4].Label)
	assert.Equal(t, LabeledValue{"gap_fossil", 5}, rows[20])
	assert.Equal(t, LabeledValue{"w_rec_non-metal", 7}, rows[27])
}

func TestMaterialFlowsPlus(t *testing.T) {
	a := MaterialFlows{Extraction: 1, Population: 10}
	b := MaterialFlows{Extraction: 2, CircularityGap: 3, Population: 5}
	sum := a.Plus(b)
	assert.Equal(t, []float64{3, 0, 0, 0, 3, 0, 0, 15}, sum.Values())
	assert.InDelta(t, 0.2, sum.GapPerCapita(), 1e-12)
	assert.Equal(t, 0.0, MaterialFlows{CircularityGap: 1}.GapPerCapita())
}

func TestCountryResultTable(t *testing.T) {
	table, err := NewCountryResultTable([]CountryResultRow{
		{Country: "AT", MaterialFlows: MaterialFlows{Extraction: 1}},
		{Country: "BE", MaterialFlows: MaterialFlows{Extraction: 2}},
	})
	require.NoError(t, err)
	row, ok := table.Lookup("BE")
	require.True(t, ok)
	assert.Equal(t, 2.0, row.Extraction)

	_, err = NewCountryResultTable([]CountryResultRow{{Country: "AT"}, {Country: "AT"}})
	assert.True(t, cgerrors.IsType(err, cgerrors.TypeDataShape))
}

func TestPopulationVector(t *testing.T) {
	pop, err := NewPopulationVector([]string{"AT", "BE", "AT"}, []float64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"AT", "BE"}, pop.Countries())
	v, ok := pop.Get("AT")
	require.True(t, ok)
	assert.Equal(t, 4.0, v)
	_, ok = pop.Get("JP")
	assert.False(t, ok)
}

func TestDatasetTableMissing(t *testing.T) {
	ds := &Dataset{Tables: map[TableName]*FlowTable{}}
	_, err := ds.Table(WasteUse)
	assert.True(t, cgerrors.IsType(err, cgerrors.TypeDataShape))
}
