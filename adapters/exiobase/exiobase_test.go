package exiobase

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"circularity-gap/core/types"
	cgerrors "circularity-gap/internal/errors"
	"circularity-gap/internal/fixture"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"0", 0},
		{"", 0},
		{"  ", 0},
		{"1,5", 1.5},
		{"-2,25", -2.25},
		{"1234", 1234},
		{"3,2E-05", 3.2e-5},
		{"7.5", 7.5},
	}
	for _, tt := range tests {
		got, err := ParseNumber(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseNumber("n/a")
	assert.Error(t, err)
}

func TestParseTableFixture(t *testing.T) {
	for _, name := range types.AllTables() {
		t.Run(string(name), func(t *testing.T) {
			table, err := ParseTable(name, strings.NewReader(fixture.Text(name)))
			require.NoError(t, err)

			want := fixture.Table(t, name)
			require.Equal(t, want.Rows(), table.Rows())
			require.Equal(t, want.Cols(), table.Cols())
			if diff := cmp.Diff(want.Columns(), table.Columns()); diff != "" {
				t.Errorf("columns mismatch (-want +got):\n%s", diff)
			}
			for r := 0; r < want.Rows(); r++ {
				assert.Equal(t, want.RowLabel(r), table.RowLabel(r))
				for c := 0; c < want.Cols(); c++ {
					assert.Equal(t, want.At(r, c), table.At(r, c), "cell %d,%d", r, c)
				}
			}
		})
	}
}

func TestParseTableForwardFillsCountries(t *testing.T) {
	src := "region\t\tAT\t\tBE\n" +
		"sector\t\ta\tb\ta\n" +
		"x\ty\t1\t2,5\t3\n"

	table, err := ParseTable(types.StockDepletion, strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, []string{"AT", "BE"}, table.Countries())
	cols, _ := table.CountryColumns("AT")
	assert.Equal(t, []int{0, 1}, cols)
	assert.Equal(t, 2.5, table.At(0, 1))
}

func TestParseTableErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want cgerrors.Type
	}{
		{"empty", "", cgerrors.TypeDataShape},
		{"no sector header", "region\t\tAT\n", cgerrors.TypeDataShape},
		{"header mismatch", "region\t\tAT\tAT\nsector\t\ta\n", cgerrors.TypeDataShape},
		{"short row", "region\t\tAT\nsector\t\ta\nx\ty\n", cgerrors.TypeDataShape},
		{"bad number", "region\t\tAT\nsector\t\ta\nx\ty\tabc\n", cgerrors.TypeParsing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTable(types.WasteSupply, strings.NewReader(tt.src))
			require.Error(t, err)
			assert.True(t, cgerrors.IsType(err, tt.want), "got %v", err)
		})
	}
}

func TestParsePopulation(t *testing.T) {
	src := "region\tpopulation\tmigrants\nAT\t8,4\t0,1\nBE\t11\t\n"
	pop, err := ParsePopulation(strings.NewReader(src))
	require.NoError(t, err)

	at, ok := pop.Get("AT")
	require.True(t, ok)
	assert.InDelta(t, 8.5, at, 1e-12)
	be, _ := pop.Get("BE")
	assert.Equal(t, 11.0, be)
	assert.Equal(t, []string{"AT", "BE"}, pop.Countries())
}

func TestDirProvider(t *testing.T) {
	dir := t.TempDir()
	fixture.WriteDir(t, dir)

	p, err := NewDirProvider(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, p.Source())

	ctx := context.Background()
	table, err := p.Load(ctx, types.Emissions)
	require.NoError(t, err)
	assert.Equal(t, 5, table.Rows())
	assert.Equal(t, []string{"cat0", "sub0", "air"}, table.RowLabel(0))

	pop, err := p.LoadPopulation(ctx)
	require.NoError(t, err)
	v, _ := pop.Get("BB")
	assert.Equal(t, 50.0, v)

	require.NoError(t, os.Remove(filepath.Join(dir, "SD.txt")))
	_, err = p.Load(ctx, types.StockDepletion)
	require.Error(t, err)
	assert.True(t, cgerrors.IsType(err, cgerrors.TypeInput))

	_, err = NewDirProvider(filepath.Join(dir, "nope"))
	assert.True(t, cgerrors.IsType(err, cgerrors.TypeInput))
}
