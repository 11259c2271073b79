package workbook

import (
	"bytes"
	"context"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"circularity-gap/core/engine"
	"circularity-gap/core/output"
	"circularity-gap/core/types"
	"circularity-gap/internal/fixture"
)

func fixtureReport(t *testing.T) *output.Report {
	t.Helper()
	report, err := engine.NewEngine(fixture.Schema(), &fixture.Provider{}, engine.Config{}).
		Compute(context.Background(), fixture.Dataset(t))
	require.NoError(t, err)
	return report
}

func TestBuildLayout(t *testing.T) {
	f, err := Build(fixtureReport(t))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"data_glo", "data_cou", "data_reg"}, f.GetSheetList())

	t.Run("world sheet", func(t *testing.T) {
		header, err := f.GetCellValue("data_glo", "B1")
		require.NoError(t, err)
		assert.Equal(t, "Gigatonnes (Gt)", header)

		label, _ := f.GetCellValue("data_glo", "A2")
		assert.Equal(t, "re_fossil", label)
		label, _ = f.GetCellValue("data_glo", "A29")
		assert.Equal(t, "w_rec_non-metal", label)

		raw, err := f.GetCellValue("data_glo", "B24", excelize.Options{RawCellValue: true})
		require.NoError(t, err)
		v, err := strconv.ParseFloat(raw, 64)
		require.NoError(t, err)
		assert.InDelta(t, 10/1e9, v, 1e-18) // gap_metal
	})

	t.Run("country sheet", func(t *testing.T) {
		rows, err := f.GetRows("data_cou")
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, append([]string{""}, types.FlowColumns...), rows[0])
		assert.Equal(t, []string{"AA", "29", "12", "3", "6", "9", "16", "117", "100"}, rows[1])
		assert.Equal(t, "BB", rows[2][0])
	})

	t.Run("region sheet", func(t *testing.T) {
		rows, err := f.GetRows("data_reg")
		require.NoError(t, err)
		require.Len(t, rows, 4)
		assert.Equal(t, "World", rows[1][0])
		assert.Equal(t, "22", rows[1][5])
		assert.Equal(t, "Pair", rows[3][0])
	})
}

func TestRenderThroughFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "results_20110601.xlsx")
	sink := &output.FileSink{Formatter: Formatter{}, Path: path}

	require.NoError(t, output.WriteAll(context.Background(), fixtureReport(t), sink))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Len(t, f.GetSheetList(), 3)
}

func TestRenderRejectsIncompleteReport(t *testing.T) {
	var buf bytes.Buffer
	err := Formatter{}.Render(&buf, &output.Report{})
	require.Error(t, err)
	assert.Zero(t, buf.Len())
}
