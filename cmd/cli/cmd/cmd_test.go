package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"circularity-gap/adapters/storage"
	"circularity-gap/core/classifier"
	"circularity-gap/core/types"
	"circularity-gap/internal/config"
	cgerrors "circularity-gap/internal/errors"
	"circularity-gap/internal/fixture"
	"circularity-gap/internal/logging"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	logging.Silence()
	return out.String(), err
}

// resetFlags undoes earlier Execute calls, which leave values and Changed set
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// workspace writes the fixture tables and a matching schema file
func workspace(t *testing.T) (dataDir, schemaPath string) {
	t.Helper()
	root := t.TempDir()
	dataDir = filepath.Join(root, "exio")
	require.NoError(t, os.MkdirAll(dataDir, 0755))
	fixture.WriteDir(t, dataDir)

	schemaPath = filepath.Join(root, "schema.hcl")
	require.NoError(t, os.WriteFile(schemaPath, classifier.Encode(fixture.Spec()), 0644))
	return dataDir, schemaPath
}

func TestComputeAndHistory(t *testing.T) {
	dataDir, schemaPath := workspace(t)
	outDir := t.TempDir()
	archive := filepath.Join(outDir, "runs")
	t.Setenv("CGAP_ARCHIVE_DIR", archive)

	workbookPath := filepath.Join(outDir, "results.xlsx")
	chartPath := filepath.Join(outDir, "gap.png")

	stdout, err := execute(t, "compute",
		"--data", dataDir,
		"--schema", schemaPath,
		"--output", workbookPath,
		"--chart", chartPath,
		"--format", "json",
		"--workers", "2",
	)
	require.NoError(t, err, stdout)

	var doc struct {
		Metadata struct {
			RunID         string `json:"run_id"`
			SchemaVersion string `json:"schema_version"`
		} `json:"metadata"`
		Regions []struct {
			Region         string  `json:"region"`
			CircularityGap float64 `json:"circularity_gap"`
		} `json:"data_reg"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &doc))
	assert.Equal(t, "fixture-1", doc.Metadata.SchemaVersion)
	require.Len(t, doc.Regions, 3)
	assert.InDelta(t, 22.0, doc.Regions[0].CircularityGap, 1e-9)

	f, err := excelize.OpenFile(workbookPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"data_glo", "data_cou", "data_reg"}, f.GetSheetList())
	require.NoError(t, f.Close())

	png, err := os.ReadFile(chartPath)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))

	t.Run("history list", func(t *testing.T) {
		out, err := execute(t, "history", "list", "--json")
		require.NoError(t, err)
		var runs []*storage.StoredRun
		require.NoError(t, json.Unmarshal([]byte(out), &runs))
		require.Len(t, runs, 1)
		assert.Equal(t, doc.Metadata.RunID, runs[0].ID)
		assert.InDelta(t, 22/1e9, runs[0].GlobalGap, 1e-18)
	})

	t.Run("history list filters", func(t *testing.T) {
		tests := []struct {
			name string
			args []string
			want int
		}{
			{"matching schema", []string{"--schema", "fixture-1"}, 1},
			{"other schema", []string{"--schema", "exiobase-mr-hiot-3.3.15"}, 0},
			{"recent", []string{"--since", "1h"}, 1},
			{"window in the past", []string{"--since", "2000-01-01", "--until", "2001-01-01"}, 0},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				out, err := execute(t, append([]string{"history", "list", "--json"}, tt.args...)...)
				require.NoError(t, err)
				var runs []*storage.StoredRun
				require.NoError(t, json.Unmarshal([]byte(out), &runs))
				assert.Len(t, runs, tt.want)
			})
		}
	})

	t.Run("history compare", func(t *testing.T) {
		id := doc.Metadata.RunID
		out, err := execute(t, "history", "compare", id[:8], id, "--json")
		require.NoError(t, err)
		var res storage.CompareResult
		require.NoError(t, json.Unmarshal([]byte(out), &res))
		assert.Zero(t, res.Total.Delta)
		assert.False(t, res.SchemaChanged)
	})
}

func TestComputeRejectsMismatchedData(t *testing.T) {
	dataDir, _ := workspace(t)
	out := filepath.Join(t.TempDir(), "results.xlsx")

	_, err := execute(t, "compute", "--data", dataDir, "--output", out, "--no-archive", "--schema", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SCHEMA_MISMATCH")
	assert.NoFileExists(t, out)
}

func TestComputeLeavesNoWorkbookWhenChartFails(t *testing.T) {
	dataDir, schemaPath := workspace(t)
	outDir := t.TempDir()
	workbookPath := filepath.Join(outDir, "results.xlsx")

	// a regular file where the chart directory should be
	blocker := filepath.Join(outDir, "charts")
	require.NoError(t, os.WriteFile(blocker, []byte("not a directory"), 0644))

	_, err := execute(t, "compute",
		"--data", dataDir,
		"--schema", schemaPath,
		"--output", workbookPath,
		"--chart", filepath.Join(blocker, "gap.png"),
		"--no-archive",
	)
	require.Error(t, err)
	assert.NoFileExists(t, workbookPath)

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "charts", entries[0].Name())
}

func TestSchemaCommands(t *testing.T) {
	out, err := execute(t, "schema", "show")
	require.NoError(t, err)
	schema, err := classifier.Decode("show.hcl", []byte(out))
	require.NoError(t, err)
	assert.Equal(t, classifier.Default().Version(), schema.Version())

	dataDir, schemaPath := workspace(t)
	_, err = execute(t, "schema", "validate", schemaPath, "--data", dataDir)
	require.NoError(t, err)
}

func TestListFilter(t *testing.T) {
	now := time.Date(2011, 6, 1, 12, 0, 0, 0, time.UTC)
	t.Cleanup(func() { historySchema, historySince, historyUntil, historyLimit = "", "", "", 20 })

	historySchema, historySince, historyUntil, historyLimit = "v2", "72h", "2011-06-01T11:00:00Z", 5
	filter, err := listFilter(now)
	require.NoError(t, err)
	assert.Equal(t, "v2", filter.SchemaVersion)
	assert.Equal(t, 5, filter.Limit)
	assert.True(t, filter.Since.Equal(now.Add(-72*time.Hour)))
	assert.True(t, filter.Until.Equal(now.Add(-time.Hour)))

	historySince, historyUntil = "2011-06-02T00:00:00Z", "2011-06-01T00:00:00Z"
	_, err = listFilter(now)
	assert.True(t, cgerrors.IsType(err, cgerrors.TypeInput), "got %v", err)

	historySince, historyUntil = "last tuesday", ""
	_, err = listFilter(now)
	assert.True(t, cgerrors.IsType(err, cgerrors.TypeInput), "got %v", err)
}

// swappedSpec moves the waste rows of the metal and non-metal classes
func swappedSpec() classifier.Spec {
	spec := fixture.Spec()
	spec.Version = "fixture-2"
	for i, c := range spec.Classes {
		if c.Domain != "waste" {
			continue
		}
		switch c.Class {
		case "metal":
			spec.Classes[i].Rows = []int{3}
		case "non-metal":
			spec.Classes[i].Rows = []int{2}
		}
	}
	return spec
}

func TestRunSchemasSharesTables(t *testing.T) {
	inner := &fixture.Provider{}
	store := storage.NewMemoryStore()
	cfg := config.Default()
	cfg.Dataset.CacheSize = 2

	ids, err := runSchemas(context.Background(), store, inner, cfg,
		fixture.Schema(), classifier.MustNew(swappedSpec()))
	require.NoError(t, err)
	require.Len(t, ids, 2)

	for _, name := range types.AllTables() {
		assert.Equal(t, 1, inner.Loads(name), "%s read more than once", name)
	}

	res, err := storage.CompareIDs(context.Background(), store, ids[0], ids[1])
	require.NoError(t, err)
	assert.True(t, res.SchemaChanged)
	assert.InDelta(t, 0, res.Total.Delta, 1e-18)
	for _, r := range res.Regions {
		assert.InDelta(t, 0, r.Delta, 1e-9, r.Label)
	}

	deltas := make(map[string]float64)
	for _, c := range res.Classes {
		deltas[c.Label] = c.Delta
	}
	assert.NotZero(t, deltas[string(types.Metal)])
	assert.InDelta(t, -deltas[string(types.Metal)], deltas[string(types.NonMetal)], 1e-18)
	assert.Zero(t, deltas[string(types.Fossil)])
}

func TestSchemaCompare(t *testing.T) {
	dataDir, schemaPath := workspace(t)
	swapped := filepath.Join(t.TempDir(), "swapped.hcl")
	require.NoError(t, os.WriteFile(swapped, classifier.Encode(swappedSpec()), 0644))

	out, err := execute(t, "schema", "compare", schemaPath, swapped, "--data", dataDir, "--json")
	require.NoError(t, err, out)

	var res storage.CompareResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.SchemaChanged)
	assert.NotEqual(t, res.OldID, res.NewID)
	require.Len(t, res.Regions, 3)
	assert.InDelta(t, 22.0, res.Regions[0].New, 1e-9)

	_, err = execute(t, "schema", "compare", "default", schemaPath, "--data", dataDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SCHEMA_MISMATCH")
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "cgap version "+Version+"\n", out)
}
