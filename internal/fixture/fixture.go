// Package fixture provides a small two-country dataset with hand-computed
// results, shared by the aggregator, engine and adapter tests.
package fixture

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"circularity-gap/core/classifier"
	"circularity-gap/core/types"
)

// Countries in column order
var Countries = []string{"AA", "BB"}

var (
	industrySectors    = []string{"s1", "s2", "s3"}
	finalDemandSectors = []string{"f1", "f2"}
)

// Spec is a miniature classification with every class populated and
// conversions on both the resource and emission domains.
func Spec() classifier.Spec {
	co2 := func(row int) classifier.ConversionSpec {
		return classifier.ConversionSpec{Name: "co2_to_c", Row: row, Numerator: 12, Denominator: 44}
	}
	co := func(row int) classifier.ConversionSpec {
		return classifier.ConversionSpec{Name: "co_to_c", Row: row, Numerator: 12, Denominator: 28}
	}

	return classifier.Spec{
		Version:      "fixture-1",
		ResourceRows: 5,
		WasteRows:    4,
		EmissionRows: 5,
		Recovery:     classifier.RecoverySpec{BlockWidth: 3, Offsets: []int{1, 2}},
		Classes: []classifier.ClassSpec{
			{Domain: "resource", Class: "fossil", Rows: []int{0}},
			{Domain: "resource", Class: "biomass", Rows: []int{1, 3}, Conversions: []classifier.ConversionSpec{co2(3)}},
			{Domain: "resource", Class: "metal", Rows: []int{2}},
			{Domain: "resource", Class: "non-metal", Rows: []int{4}, FinalDemand: true},

			{Domain: "waste", Class: "fossil", Rows: []int{0}},
			{Domain: "waste", Class: "biomass", Rows: []int{1}},
			{Domain: "waste", Class: "metal", Rows: []int{2}},
			{Domain: "waste", Class: "non-metal", Rows: []int{3}},

			{Domain: "emission", Class: "fossil", Rows: []int{0, 1}, FinalDemand: true,
				Conversions: []classifier.ConversionSpec{co2(0), co(1)}},
			{Domain: "emission", Class: "biomass", Rows: []int{2}, FinalDemand: true,
				Conversions: []classifier.ConversionSpec{co2(2)}},
			{Domain: "emission", Class: "metal", Rows: []int{3}, FinalDemand: true},
			{Domain: "emission", Class: "non-metal", Rows: []int{4}, FinalDemand: true},
		},
		CountryConversions: []classifier.ConversionSpec{co2(3)},
		Regions: []classifier.RegionSpec{
			{Name: "World", All: true},
			{Name: "Alpha", Members: []string{"AA"}},
			{Name: "Pair", Members: []string{"AA", "BB"}},
		},
	}
}

// Schema returns the validated fixture schema
func Schema() *classifier.Schema {
	return classifier.MustNew(Spec())
}

// Tables holds the raw values of every table; rows are AA block then BB block
var Tables = map[types.TableName][][]float64{
	types.ResourceExtraction: {
		{1, 1, 1, 2, 2, 2},
		{1, 0, 0, 0, 0, 1},
		{5, 0, 0, 0, 5, 0},
		{44, 0, 0, 0, 0, 88},
		{2, 2, 0, 1, 0, 0},
		{1000, 1000, 1000, 1000, 1000, 1000}, // outside the classified rows
	},
	types.ResourceExtractionFD: {
		{1, 0, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
		{3, 0, 0, 7},
		{500, 500, 500, 500},
	},
	types.WasteSupply: {
		{1, 0, 0, 0, 0, 0},
		{0, 2, 0, 0, 3, 0},
		{0, 0, 4, 4, 0, 0},
		{1, 1, 1, 1, 1, 1},
	},
	types.WasteSupplyFD: {
		{1, 0, 0, 0},
		{0, 1, 2, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 1},
	},
	types.WasteUse: {
		{9, 1, 0, 9, 0, 0},
		{0, 0, 2, 0, 1, 1},
		{0, 3, 0, 0, 0, 0},
		{0, 0, 0, 9, 0, 1},
	},
	types.StockAdditions: {
		{1, 1, 1, 1, 1, 1},
		{1, 1, 1, 1, 1, 1},
		{1, 1, 1, 1, 1, 1},
		{1, 1, 1, 1, 1, 1},
	},
	types.StockAdditionsFD: {
		{0.5, 0.5, 0.5, 0.5},
		{0.5, 0.5, 0.5, 0.5},
		{0.5, 0.5, 0.5, 0.5},
		{0.5, 0.5, 0.5, 0.5},
	},
	types.StockDepletion: {
		{1, 0, 0, 0, 0, 0},
		{0, 0, 0, 0, 0, 0},
		{2, 0, 0, 0, 0, 3},
		{0, 0, 0, 0, 0, 0},
	},
	types.Emissions: {
		{44, 0, 0, 0, 0, 0},
		{28, 0, 0, 0, 0, 0},
		{0, 0, 0, 44, 0, 0},
		{1, 0, 0, 0, 1, 0},
		{0, 0, 0, 0, 0, 2},
	},
	types.EmissionsFD: {
		{44, 0, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 1, 0},
	},
}

// Population per country
var Population = map[string]float64{"AA": 100, "BB": 50}

// CountryRows are the expected per-country results
var CountryRows = []types.CountryResultRow{
	{Country: "AA", MaterialFlows: types.MaterialFlows{
		Extraction: 29, WasteGeneration: 12, StockDepletion: 3, WasteRecovery: 6,
		CircularityGap: 9, StockAdditions: 16, DissipativeEmissions: 117, Population: 100,
	}},
	{Country: "BB", MaterialFlows: types.MaterialFlows{
		Extraction: 44, WasteGeneration: 13, StockDepletion: 3, WasteRecovery: 3,
		CircularityGap: 13, StockAdditions: 16, DissipativeEmissions: 48, Population: 50,
	}},
}

// WorldTonnes are the expected world totals before the t → Gt conversion
var WorldTonnes = map[types.MaterialClass]types.ClassTotals{
	types.Fossil: {
		Extraction: 9, WasteSupply: 2, WasteRecovery: 1, StockAdditions: 8, StockDepletion: 1,
		DissipativeEmissions: 36, MaterialDispersed: -36, DomesticProcessedOutput: 0, CircularityGap: 2,
	},
	types.Biomass: {
		Extraction: 38, WasteSupply: 8, WasteRecovery: 4, StockAdditions: 8, StockDepletion: 0,
		DissipativeEmissions: 12, MaterialDispersed: 14, DomesticProcessedOutput: 26, CircularityGap: 4,
	},
	types.Metal: {
		Extraction: 10, WasteSupply: 8, WasteRecovery: 3, StockAdditions: 8, StockDepletion: 5,
		DissipativeEmissions: 2, MaterialDispersed: -5, DomesticProcessedOutput: -3, CircularityGap: 10,
	},
	types.NonMetal: {
		Extraction: 15, WasteSupply: 7, WasteRecovery: 1, StockAdditions: 8, StockDepletion: 0,
		DissipativeEmissions: 3, MaterialDispersed: -2, DomesticProcessedOutput: 1, CircularityGap: 6,
	},
}

func isFinalDemand(name types.TableName) bool {
	for _, n := range types.FinalDemandTables() {
		if n == name {
			return true
		}
	}
	return false
}

// Columns returns the column labels of a table
func Columns(name types.TableName) []types.ColumnLabel {
	sectors := industrySectors
	if isFinalDemand(name) {
		sectors = finalDemandSectors
	}
	cols := make([]types.ColumnLabel, 0, len(Countries)*len(sectors))
	for _, c := range Countries {
		for _, s := range sectors {
			cols = append(cols, types.ColumnLabel{Country: c, Sector: s})
		}
	}
	return cols
}

// RowLabels returns synthetic row labels of the right depth
func RowLabels(name types.TableName) [][]string {
	labels := make([][]string, len(Tables[name]))
	for r := range labels {
		label := []string{"cat" + strconv.Itoa(r), "sub" + strconv.Itoa(r)}
		if name.LabelDepth() == 3 {
			label = append(label, "air")
		}
		labels[r] = label
	}
	return labels
}

// Table builds one fixture table
func Table(tb testing.TB, name types.TableName) *types.FlowTable {
	tb.Helper()
	t, err := types.NewFlowTable(string(name), RowLabels(name), Columns(name), Tables[name])
	require.NoError(tb, err)
	return t
}

// PopulationVector builds the fixture population
func PopulationVector(tb testing.TB) *types.PopulationVector {
	tb.Helper()
	values := make([]float64, len(Countries))
	for i, c := range Countries {
		values[i] = Population[c]
	}
	p, err := types.NewPopulationVector(Countries, values)
	require.NoError(tb, err)
	return p
}

// Dataset builds the full fixture dataset
func Dataset(tb testing.TB) *types.Dataset {
	tb.Helper()
	ds := &types.Dataset{
		Source:     "fixture",
		Tables:     make(map[types.TableName]*types.FlowTable),
		Population: PopulationVector(tb),
	}
	for _, name := range types.AllTables() {
		ds.Tables[name] = Table(tb, name)
	}
	return ds
}

// WriteDir writes the fixture as EXIOBASE-style text files into dir
func WriteDir(tb testing.TB, dir string) {
	tb.Helper()
	for _, name := range types.AllTables() {
		path := filepath.Join(dir, string(name)+".txt")
		require.NoError(tb, os.WriteFile(path, []byte(Text(name)), 0o644))
	}

	var b strings.Builder
	b.WriteString("region\tpopulation\n")
	for _, c := range Countries {
		b.WriteString(c + "\t" + formatComma(Population[c]) + "\n")
	}
	require.NoError(tb, os.WriteFile(filepath.Join(dir, types.PopulationFile+".txt"), []byte(b.String()), 0o644))
}

// Text renders one table in the tab-separated, comma-decimal file layout:
// a country header, a sector header and an index-names line.
func Text(name types.TableName) string {
	depth := name.LabelDepth()
	cols := Columns(name)
	pad := func(first string) []string {
		cells := make([]string, depth)
		cells[0] = first
		return cells
	}

	var b strings.Builder
	countryLine, sectorLine := pad("region"), pad("sector")
	for _, c := range cols {
		countryLine = append(countryLine, c.Country)
		sectorLine = append(sectorLine, c.Sector)
	}
	b.WriteString(strings.Join(countryLine, "\t") + "\n")
	b.WriteString(strings.Join(sectorLine, "\t") + "\n")

	names := []string{"category", "sub-category", "type"}[:depth]
	b.WriteString(strings.Join(names, "\t") + strings.Repeat("\t", len(cols)) + "\n")

	for r, row := range Tables[name] {
		cells := append([]string(nil), RowLabels(name)[r]...)
		for _, v := range row {
			cells = append(cells, formatComma(v))
		}
		b.WriteString(strings.Join(cells, "\t") + "\n")
	}
	return b.String()
}

func formatComma(v float64) string {
	return strings.Replace(strconv.FormatFloat(v, 'f', -1, 64), ".", ",", 1)
}

// Provider serves the fixture tables from memory and counts loads
type Provider struct {
	// Fail makes Load return Err for the named table
	Fail types.TableName
	Err  error

	mu    sync.Mutex
	loads map[types.TableName]int
}

// Load returns a fresh copy of one fixture table
func (p *Provider) Load(ctx context.Context, name types.TableName) (*types.FlowTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	if p.loads == nil {
		p.loads = make(map[types.TableName]int)
	}
	p.loads[name]++
	p.mu.Unlock()

	if name == p.Fail {
		return nil, p.Err
	}
	return types.NewFlowTable(string(name), RowLabels(name), Columns(name), Tables[name])
}

// LoadPopulation returns the fixture population
func (p *Provider) LoadPopulation(ctx context.Context) (*types.PopulationVector, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	values := make([]float64, len(Countries))
	for i, c := range Countries {
		values[i] = Population[c]
	}
	return types.NewPopulationVector(Countries, values)
}

// Source names the in-memory source
func (p *Provider) Source() string { return "memory://fixture" }

// Loads reports how many times a table was requested
func (p *Provider) Loads(name types.TableName) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loads[name]
}
