package main

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"
	"shopscraper/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	quiet      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "shopscraper [category-url...]",
	Short: "Scrape product names, prices and images from shop category pages",
	Long: `shopscraper drives headless Chrome through a list of category pages,
collects every product tile it finds and writes the results to a JSON
report plus a zip archive containing the report and downloaded images.

Categories are scraped concurrently, one browser session per category.
A category that fails to load is recorded as aborted and never stops the
others.

Running shopscraper without a subcommand is the same as 'shopscraper scrape'.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	Args:          cobra.ArbitraryArgs,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Usage is only useful for parse errors, which happen before this hook
		cmd.SilenceUsage = true

		if quiet {
			ui.SetOutput(io.Discard)
		}
		if cmd.Name() == "shopscraper" || cmd.Name() == "scrape" {
			ui.PrintLogo()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./shopscraper.yaml or $HOME/.shopscraper.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")

	rootCmd.SetVersionTemplate(`shopscraper {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	// A bare invocation scrapes
	rootCmd.RunE = runScrape
}
