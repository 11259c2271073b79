// Package cmd - schema commands
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"circularity-gap/adapters/exiobase"
	"circularity-gap/adapters/objectstore"
	"circularity-gap/adapters/storage"
	"circularity-gap/core/classifier"
	"circularity-gap/core/dataset"
	"circularity-gap/core/engine"
	"circularity-gap/core/types"
	"circularity-gap/core/ui"
	"circularity-gap/internal/config"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Inspect and check classifier schemas",
	Long: `A classifier schema maps EXIOBASE extension rows to material classes,
lists the carbon-equivalent conversions and defines the reporting regions.
The built-in schema matches EXIOBASE 3.3.15.`,
}

var schemaShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the built-in schema as HCL",
	Long: `Print the built-in schema as HCL. The output is a valid starting point
for a custom schema passed to compute --schema.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := cmd.OutOrStdout().Write(classifier.Encode(classifier.DefaultSpec()))
		return err
	},
}

var schemaValidateCmd = &cobra.Command{
	Use:   "validate <schema.hcl>",
	Short: "Check a schema file, optionally against a dataset",
	Long: `Parse and check a schema file. With --data, also load the dataset and
check that every table has the rows and columns the schema expects.`,
	Args: cobra.ExactArgs(1),
	RunE: runSchemaValidate,
}

var schemaCompareCmd = &cobra.Command{
	Use:   "compare <old.hcl> <new.hcl>",
	Short: "Show how a schema change moves the circularity gap",
	Long: `Compute the report under two schemas on the same dataset and compare the
global, class and regional gaps. Either argument may be "default" for the
built-in schema. Tables are read once and shared by both computations.

Examples:
  cgap schema compare default custom.hcl --data ./exio
  cgap schema compare v1.hcl v2.hcl --json`,
	Args: cobra.ExactArgs(2),
	RunE: runSchemaCompare,
}

var (
	schemaData        string
	schemaCompareData string
	schemaCompareJSON bool
)

func init() {
	schemaCmd.AddCommand(schemaShowCmd)
	schemaCmd.AddCommand(schemaValidateCmd)
	schemaCmd.AddCommand(schemaCompareCmd)

	schemaValidateCmd.Flags().StringVarP(&schemaData, "data", "d", "", "directory holding the EXIOBASE tables")
	schemaCompareCmd.Flags().StringVarP(&schemaCompareData, "data", "d", "", "directory holding the EXIOBASE tables (default: dataset config)")
	schemaCompareCmd.Flags().BoolVar(&schemaCompareJSON, "json", false, "print JSON instead of a table")
}

func runSchemaValidate(cmd *cobra.Command, args []string) error {
	w := status()

	schema, err := classifier.LoadFile(args[0])
	if err != nil {
		return err
	}
	w.Success("Schema %s is well formed", schema.Version())
	for _, d := range classifier.Domains() {
		if rows := schema.Unclassified(d); len(rows) > 0 {
			w.Warning("%s rows not in any class: %v", d, rows)
		}
	}
	w.Info("%d regions, recovery blocks of %d columns", len(schema.Regions()), schema.Recovery().Width())

	if schemaData == "" {
		return nil
	}

	provider, err := exiobase.NewDirProvider(schemaData)
	if err != nil {
		return err
	}
	ds, err := dataset.Load(cmd.Context(), provider, 0)
	if err != nil {
		return err
	}
	if err := classifier.Validate(schema, ds); err != nil {
		return err
	}
	w.Success("Dataset %s matches the schema", provider.Source())
	return nil
}

func runSchemaCompare(cmd *cobra.Command, args []string) error {
	oldSchema, err := loadSchema(args[0])
	if err != nil {
		return err
	}
	newSchema, err := loadSchema(args[1])
	if err != nil {
		return err
	}

	cfg := *config.Get()
	if schemaCompareData != "" {
		cfg.Dataset.Source = config.SourceDir
		cfg.Dataset.Dir = schemaCompareData
	}
	cfg.Output.Upload = false
	if err := cfg.Validate(); err != nil {
		return err
	}

	var client *objectstore.Client
	if cfg.Dataset.Source == config.SourceS3 {
		if client, err = objectstore.NewClient(cfg.Storage); err != nil {
			return err
		}
	}
	provider, err := buildProvider(&cfg, client)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store := storage.NewMemoryStore()
	defer store.Close()

	w := status()
	spinner := w.NewSpinner(fmt.Sprintf("Computing %s and %s from %s", oldSchema.Version(), newSchema.Version(), provider.Source()))
	spinner.Start()
	ids, err := runSchemas(ctx, store, provider, &cfg, oldSchema, newSchema)
	spinner.Stop(err == nil)
	if err != nil {
		return err
	}

	res, err := storage.CompareIDs(ctx, store, ids[0], ids[1])
	if err != nil {
		return err
	}
	if schemaCompareJSON {
		return writeJSON(cmd, res)
	}
	renderComparison(ui.NewWriter(cmd.OutOrStdout(), noColor), res, cfg.Output.Precision)
	return nil
}

// runSchemas computes one report per schema and records each run in store.
// All runs read through one table cache, so every table is parsed once and
// every schema sees the same data. Run ids are returned in schema order.
func runSchemas(ctx context.Context, store storage.Store, next dataset.Provider, cfg *config.Config, schemas ...*classifier.Schema) ([]string, error) {
	size := cfg.Dataset.CacheSize
	if n := len(types.AllTables()); size < n {
		size = n
	}
	cached, err := dataset.NewCachedProvider(next, size)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(schemas))
	for _, s := range schemas {
		report, err := engine.NewEngine(s, cached, engine.Config{
			Workers: cfg.Compute.Workers,
			Version: Version,
		}).Run(ctx)
		if err != nil {
			return nil, fmt.Errorf("schema %s: %w", s.Version(), err)
		}

		run, err := storage.FromReport(report)
		if err != nil {
			return nil, err
		}
		if err := store.Save(ctx, run); err != nil {
			return nil, err
		}
		ids = append(ids, run.ID)
	}
	return ids, nil
}
