package output_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"circularity-gap/core/engine"
	"circularity-gap/core/output"
	cgerrors "circularity-gap/internal/errors"
	"circularity-gap/internal/fixture"
)

func fixtureReport(t *testing.T) *output.Report {
	t.Helper()
	report, err := engine.NewEngine(fixture.Schema(), &fixture.Provider{}, engine.Config{}).
		Compute(context.Background(), fixture.Dataset(t))
	require.NoError(t, err)
	report.Metadata.RunID = "run-1"
	return report
}

// recordingSink remembers the order sinks were written in
type recordingSink struct {
	name string
	log  *[]string
	err  error
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Write(ctx context.Context, report *output.Report) error {
	*s.log = append(*s.log, s.name)
	return s.err
}

type failingFormatter struct{}

func (failingFormatter) Format() output.Format { return "broken" }

func (failingFormatter) Render(w io.Writer, report *output.Report) error {
	_, _ = w.Write([]byte("partial"))
	return errors.New("render failed")
}

func TestRegistry(t *testing.T) {
	r := output.NewRegistry(output.JSONFormatter{})
	require.NoError(t, r.Register(output.TextFormatter{}))

	err := r.Register(output.JSONFormatter{})
	assert.True(t, cgerrors.IsType(err, cgerrors.TypeConfig))

	f, ok := r.Get(output.FormatCLI)
	require.True(t, ok)
	assert.Equal(t, output.FormatCLI, f.Format())
	_, ok = r.Get(output.FormatXLSX)
	assert.False(t, ok)

	assert.Equal(t, []output.Format{output.FormatCLI, output.FormatJSON}, r.Formats())
}

func TestWriteAll(t *testing.T) {
	report := fixtureReport(t)

	t.Run("in order", func(t *testing.T) {
		var log []string
		err := output.WriteAll(context.Background(), report,
			&recordingSink{name: "a", log: &log},
			&recordingSink{name: "b", log: &log},
		)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, log)
	})

	t.Run("stops at first failure", func(t *testing.T) {
		var log []string
		err := output.WriteAll(context.Background(), report,
			&recordingSink{name: "a", log: &log, err: errors.New("disk full")},
			&recordingSink{name: "b", log: &log},
		)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sink a")
		assert.Equal(t, []string{"a"}, log)
	})

	t.Run("failed render publishes nothing", func(t *testing.T) {
		dir := t.TempDir()
		workbook := filepath.Join(dir, "results.json")
		chart := filepath.Join(dir, "gap.out")
		var log []string

		err := output.WriteAll(context.Background(), report,
			&output.FileSink{Formatter: output.JSONFormatter{}, Path: workbook},
			&output.FileSink{Formatter: failingFormatter{}, Path: chart},
			&recordingSink{name: "stdout", log: &log},
		)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sink "+chart)
		assert.NoFileExists(t, workbook)
		assert.NoFileExists(t, chart)
		assert.Empty(t, log)

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries, "temporary files are removed")
	})

	t.Run("files and streams in order", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "results.json")
		var log []string
		err := output.WriteAll(context.Background(), report,
			&recordingSink{name: "first", log: &log},
			&output.FileSink{Formatter: output.JSONFormatter{}, Path: path},
			&recordingSink{name: "last", log: &log},
		)
		require.NoError(t, err)
		assert.FileExists(t, path)
		assert.Equal(t, []string{"first", "last"}, log)
	})

	t.Run("invalid report reaches no sink", func(t *testing.T) {
		var log []string
		incomplete := &output.Report{World: report.World}
		err := output.WriteAll(context.Background(), incomplete, &recordingSink{name: "a", log: &log})
		require.Error(t, err)
		assert.True(t, cgerrors.IsType(err, cgerrors.TypeInternal))
		assert.Empty(t, log)
	})
}

func TestFileSink(t *testing.T) {
	report := fixtureReport(t)
	dir := t.TempDir()

	path := filepath.Join(dir, "nested", "report.json")
	require.NoError(t, (&output.FileSink{Formatter: output.JSONFormatter{}, Path: path}).Write(context.Background(), report))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())

	broken := filepath.Join(dir, "broken.out")
	err = (&output.FileSink{Formatter: failingFormatter{}, Path: broken}).Write(context.Background(), report)
	require.Error(t, err)
	assert.NoFileExists(t, broken)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files are removed")

	t.Run("discarded stage leaves no file", func(t *testing.T) {
		path := filepath.Join(dir, "staged.json")
		staged, err := (&output.FileSink{Formatter: output.JSONFormatter{}, Path: path}).Stage(context.Background(), report)
		require.NoError(t, err)
		assert.NoFileExists(t, path)

		staged.Discard()
		require.Error(t, staged.Commit())
		assert.NoFileExists(t, path)
	})
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, output.JSONFormatter{}.Render(&buf, fixtureReport(t)))

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	for _, key := range append(output.Sections(), "metadata") {
		assert.Contains(t, doc, key)
	}

	var world struct {
		Unit string `json:"unit"`
		Rows []struct {
			Label string  `json:"label"`
			Value float64 `json:"value"`
		} `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(doc[output.SectionWorld], &world))
	assert.Equal(t, "Gt", world.Unit)
	require.Len(t, world.Rows, 28)
	assert.Equal(t, "re_fossil", world.Rows[0].Label)

	var countries []map[string]interface{}
	require.NoError(t, json.Unmarshal(doc[output.SectionCountry], &countries))
	require.Len(t, countries, 2)
	assert.Equal(t, "AA", countries[0]["country"])
	assert.InDelta(t, 29.0, countries[0]["extraction"], 1e-9)
}

func TestTextFormatter(t *testing.T) {
	report := fixtureReport(t)

	var buf bytes.Buffer
	require.NoError(t, output.TextFormatter{Precision: 2, NoColor: true}.Render(&buf, report))
	text := buf.String()

	assert.NotContains(t, text, "\033[")
	assert.Contains(t, text, "Global gap: 0.00 Gt")
	assert.Contains(t, text, "Gap per capita (t/pc)")
	assert.Contains(t, text, "Pair")
	assert.NotContains(t, text, "Countries (data_cou)")
	assert.Contains(t, text, "run run-1")
	assert.Contains(t, text, "▸ Carbon conversions")
	assert.Contains(t, text, "emission/fossil co_to_c: row 1 × 12/28")

	buf.Reset()
	require.NoError(t, output.TextFormatter{Precision: 1, NoColor: true, Countries: true}.Render(&buf, report))
	assert.Contains(t, buf.String(), "Countries (data_cou)")

	lines := strings.Split(buf.String(), "\n")
	var aa string
	for _, l := range lines {
		if strings.HasPrefix(l, "AA ") {
			aa = l
		}
	}
	require.NotEmpty(t, aa)
	// AA: gap 9 over population 100
	assert.True(t, strings.HasSuffix(strings.TrimSpace(aa), "0.1"), aa)
}

func TestNumber(t *testing.T) {
	assert.Equal(t, "1.235", output.Number(1.23456, 3))
	assert.Equal(t, "22", output.Number(22, 0))
	assert.Equal(t, "-0.50", output.Number(-0.5, 2))
}
