// Package cmd provides the CLI commands for cgap.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"circularity-gap/core/ui"
	"circularity-gap/internal/config"
	"circularity-gap/internal/logging"
)

// Version is overridden at build time with -ldflags
var Version = "0.1.0"

var (
	cfgFile string
	verbose bool
	noColor bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "cgap",
	Short: "Compute the circularity gap from EXIOBASE material flow tables",
	Long: `cgap aggregates EXIOBASE hybrid input-output extension tables into the
circularity gap indicators at world, country and region level.

Examples:
  cgap compute --data ./exio_mr_hiot_v3.3.15_2011
  cgap compute --data ./exio --format cli --chart gap.png
  cgap schema show > schema.hcl
  cgap history compare 3f2a 9c1d`,
	SilenceUsage: true,
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (json or yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	// Add subcommands
	rootCmd.AddCommand(computeCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	cfg := config.Default()
	if cfgFile != "" {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	cfg.ApplyEnv()
	config.Set(cfg)

	// Initialize logging
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if err := logging.Initialize(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
	}
}

// status writes progress and diagnostics to stderr so stdout stays parseable
func status() *ui.Writer {
	w := ui.NewWriter(os.Stderr, noColor)
	if verbose {
		w.SetVerbosity(2)
	}
	return w
}

// versionCmd prints version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "cgap version %s\n", Version)
	},
}
