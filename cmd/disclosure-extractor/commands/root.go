// Package commands implements the disclosure-extractor CLI.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/spherical/disclosure-extractor/cmd/disclosure-extractor/ui"
	"github.com/spherical/disclosure-extractor/internal/config"
	"github.com/spherical/disclosure-extractor/internal/observability"
)

// Version is set at build time.
var Version = "0.1.0"

var (
	cfgFile string
	verbose bool
	noColor bool

	cfg    *config.Config
	logger *observability.Logger
)

var rootCmd = &cobra.Command{
	Use:   "disclosure-extractor",
	Short: "Extract financial metrics from corporate disclosures",
	Long: `disclosure-extractor reads earnings releases, 10-K/10-Q filings, proxy
statements and earnings call transcripts and extracts every reported metric
with its value, unit, period, type and category.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ui.InitUI(noColor, verbose)

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		if verbose {
			cfg.Observability.LogLevel = "debug"
		}
		logger = newLogger(cfg)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
