// Package cmd - compute command
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"circularity-gap/adapters/chart"
	"circularity-gap/adapters/exiobase"
	"circularity-gap/adapters/objectstore"
	"circularity-gap/adapters/storage"
	"circularity-gap/adapters/workbook"
	"circularity-gap/core/classifier"
	"circularity-gap/core/dataset"
	"circularity-gap/core/engine"
	"circularity-gap/core/output"
	"circularity-gap/internal/config"
	cgerrors "circularity-gap/internal/errors"
	"circularity-gap/internal/logging"
)

var (
	computeData      string
	computeSource    string
	computeSchema    string
	computeOutput    string
	computeFormats   []string
	computeChart     string
	computeWorkers   int
	computeCountries bool
	computeUpload    bool
	computeNoArchive bool
	computeTimeout   time.Duration
)

// computeCmd represents the compute command
var computeCmd = &cobra.Command{
	Use:   "compute",
	Short: "Compute the circularity gap report",
	Long: `Load the EXIOBASE extension tables, compute the world, country and region
sections and write them as an xlsx workbook with sheets data_glo, data_cou
and data_reg.

Examples:
  cgap compute --data ./exio_mr_hiot_v3.3.15_2011
  cgap compute --data ./exio --output results.xlsx --format cli --format json
  cgap compute --source s3 --chart gap.png --upload`,
	Args: cobra.NoArgs,
	RunE: runCompute,
}

func init() {
	computeCmd.Flags().StringVarP(&computeData, "data", "d", "", "directory holding the EXIOBASE tables")
	computeCmd.Flags().StringVar(&computeSource, "source", "", "dataset source (dir, s3)")
	computeCmd.Flags().StringVarP(&computeSchema, "schema", "s", "", "HCL classifier schema (default: built-in EXIOBASE 3.3 schema)")
	computeCmd.Flags().StringVarP(&computeOutput, "output", "o", "", "workbook path (default: results_YYYYMMDD.xlsx)")
	computeCmd.Flags().StringSliceVarP(&computeFormats, "format", "f", nil, "extra renderings on stdout (cli, json)")
	computeCmd.Flags().StringVar(&computeChart, "chart", "", "write a PNG chart of the regional gap")
	computeCmd.Flags().IntVarP(&computeWorkers, "workers", "w", 0, "country workers (default: number of CPUs)")
	computeCmd.Flags().BoolVar(&computeCountries, "countries", false, "include the per-country table in cli output")
	computeCmd.Flags().BoolVar(&computeUpload, "upload", false, "upload written files to the storage bucket")
	computeCmd.Flags().BoolVar(&computeNoArchive, "no-archive", false, "do not record the run in the history archive")
	computeCmd.Flags().DurationVar(&computeTimeout, "timeout", 30*time.Minute, "timeout for the whole run")
}

// computeConfig applies explicitly set flags on top of the loaded config
func computeConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := *config.Get()
	cfg.Output.Formats = append([]string(nil), cfg.Output.Formats...)

	flags := cmd.Flags()
	if flags.Changed("data") {
		cfg.Dataset.Dir = computeData
		if !flags.Changed("source") {
			cfg.Dataset.Source = config.SourceDir
		}
	}
	if flags.Changed("source") {
		cfg.Dataset.Source = computeSource
	}
	if flags.Changed("schema") {
		cfg.Dataset.SchemaFile = computeSchema
	}
	if flags.Changed("output") {
		cfg.Output.Path = computeOutput
	}
	if flags.Changed("format") {
		cfg.Output.Formats = computeFormats
	}
	if flags.Changed("chart") {
		cfg.Output.ChartPath = computeChart
	}
	if flags.Changed("workers") {
		cfg.Compute.Workers = computeWorkers
	}
	if flags.Changed("upload") {
		cfg.Output.Upload = computeUpload
	}
	if computeNoArchive {
		cfg.Output.ArchiveDir = ""
	}
	if cfg.Output.Path == "" {
		cfg.Output.Path = "results_" + time.Now().Format("20060102") + ".xlsx"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func runCompute(cmd *cobra.Command, args []string) error {
	cfg, err := computeConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, computeTimeout)
	defer cancel()

	schema, err := loadSchema(cfg.Dataset.SchemaFile)
	if err != nil {
		return err
	}

	var client *objectstore.Client
	if cfg.Dataset.Source == config.SourceS3 || cfg.Output.Upload {
		if client, err = objectstore.NewClient(cfg.Storage); err != nil {
			return err
		}
	}

	provider, err := buildProvider(cfg, client)
	if err != nil {
		return err
	}

	w := status()
	e := engine.NewEngine(schema, provider, engine.Config{
		Workers: cfg.Compute.Workers,
		Version: Version,
	})

	spinner := w.NewSpinner("Computing circularity gap from " + provider.Source())
	spinner.Start()
	report, err := e.Run(ctx)
	spinner.Stop(err == nil)
	if err != nil {
		return err
	}
	ctx, _ = logging.ForRun(ctx, report.Metadata.RunID)

	sinks, files, err := buildSinks(cmd, cfg)
	if err != nil {
		return err
	}
	if err := output.WriteAll(ctx, report, sinks...); err != nil {
		return err
	}
	for _, path := range files {
		w.Success("Wrote %s", path)
	}

	if cfg.Output.Upload {
		uploader := objectstore.NewUploader(client, cfg.Dataset.Prefix)
		for _, path := range files {
			key, err := uploader.Upload(ctx, report.Metadata.RunID, path)
			if err != nil {
				return err
			}
			w.Success("Uploaded %s to s3://%s/%s", path, client.Bucket(), key)
		}
	}

	if cfg.Output.ArchiveDir != "" {
		if err := archiveRun(ctx, cfg.Output.ArchiveDir, report); err != nil {
			logging.FromContext(ctx).Warn("archive run failed", zap.Error(err))
			w.Warning("Run not archived: %v", err)
		}
	}
	return nil
}

// loadSchema reads an HCL schema; an empty path or "default" selects the built-in one
func loadSchema(path string) (*classifier.Schema, error) {
	if path == "" || path == "default" {
		return classifier.Default(), nil
	}
	return classifier.LoadFile(path)
}

func buildProvider(cfg *config.Config, client *objectstore.Client) (dataset.Provider, error) {
	var next dataset.Provider
	switch cfg.Dataset.Source {
	case config.SourceS3:
		next = objectstore.NewProvider(client, cfg.Dataset.Prefix)
	case config.SourceDir:
		dir, err := exiobase.NewDirProvider(cfg.Dataset.Dir)
		if err != nil {
			return nil, err
		}
		next = dir
	default:
		return nil, cgerrors.Config("unknown dataset source "+cfg.Dataset.Source, nil)
	}
	return next, nil
}

// buildSinks returns the sinks in write order and the files they create
func buildSinks(cmd *cobra.Command, cfg *config.Config) ([]output.Sink, []string, error) {
	registry := output.NewRegistry(
		workbook.Formatter{},
		chart.Formatter{},
		output.JSONFormatter{},
		output.TextFormatter{
			Precision: cfg.Output.Precision,
			NoColor:   noColor,
			Countries: computeCountries,
		},
	)

	sinks := []output.Sink{&output.FileSink{Formatter: workbook.Formatter{}, Path: cfg.Output.Path}}
	files := []string{cfg.Output.Path}
	if cfg.Output.ChartPath != "" {
		sinks = append(sinks, &output.FileSink{Formatter: chart.Formatter{}, Path: cfg.Output.ChartPath})
		files = append(files, cfg.Output.ChartPath)
	}

	for _, name := range cfg.Output.Formats {
		format := output.Format(name)
		if format != output.FormatCLI && format != output.FormatJSON {
			return nil, nil, cgerrors.Input(fmt.Sprintf("format %q cannot be written to stdout (use cli or json)", name))
		}
		f, ok := registry.Get(format)
		if !ok {
			return nil, nil, cgerrors.Input(fmt.Sprintf("unknown format %q", name))
		}
		sinks = append(sinks, &output.StreamSink{Formatter: f, Out: cmd.OutOrStdout()})
	}
	return sinks, files, nil
}

func archiveRun(ctx context.Context, dir string, report *output.Report) error {
	store, err := storage.NewFileStore(dir)
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := storage.FromReport(report)
	if err != nil {
		return err
	}
	return store.Save(ctx, run)
}
