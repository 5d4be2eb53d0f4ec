package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"shopscraper/pkg/config"
	"shopscraper/pkg/ui"
)

const configHeader = `# shopscraper configuration
#
# Every value can also be set with a SHOPSCRAPER_ environment variable,
# e.g. SHOPSCRAPER_WORKER_LIMIT=5 or SHOPSCRAPER_URLS="url1,url2".
# Command line flags override both.
#
# Selectors accept CSS or XPath.
# Durations use Go syntax: 500ms, 1s, 2m.

`

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage shopscraper configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (SHOPSCRAPER_*) and .env files
  - Configuration file
  - Default values (lowest priority)`,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration file with the default values",
	Long: `Create a configuration file holding every option at its default value.

The file is written to ./shopscraper.yaml unless --config names another
path. An existing file is never overwritten.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration after defaults, the configuration file and
environment variables have been merged.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long: `Validate the effective configuration.

This command checks:
  - YAML syntax
  - Category URLs and the locale prefix
  - Value ranges
  - Output and log paths
  - The Chrome binary, when exec_path is set`,
	Args: cobra.NoArgs,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = "shopscraper.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		ui.PrintError("Configuration file already exists", configPath)
		return exitWith(exitConfig, fmt.Errorf("%s already exists", configPath))
	}

	data, err := yaml.Marshal(config.DefaultConfig())
	if err != nil {
		return exitWith(exitConfig, fmt.Errorf("failed to marshal config: %w", err))
	}
	if dir := filepath.Dir(configPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return exitWith(exitConfig, fmt.Errorf("failed to create config directory: %w", err))
		}
	}
	if err := os.WriteFile(configPath, append([]byte(configHeader), data...), 0644); err != nil {
		ui.PrintError("Failed to create configuration file", err.Error())
		return exitWith(exitConfig, err)
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	fmt.Fprintln(cmd.OutOrStdout(), "\nNext steps:")
	fmt.Fprintln(cmd.OutOrStdout(), "1. Edit the category URLs and selectors")
	fmt.Fprintln(cmd.OutOrStdout(), "2. Run 'shopscraper config validate' to check the configuration")
	fmt.Fprintln(cmd.OutOrStdout(), "3. Start scraping with 'shopscraper scrape'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		return exitWith(exitConfig, err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return exitWith(exitConfig, fmt.Errorf("failed to format configuration: %w", err))
	}

	out := cmd.OutOrStdout()
	fmt.Fprint(out, string(data))

	source := configFile
	if source == "" {
		source = config.FindConfigFile()
	}
	if source == "" {
		source = "(none found, defaults only)"
	}
	fmt.Fprintf(out, "\n# configuration file: %s\n", source)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	source := configFile
	if source == "" {
		source = config.FindConfigFile()
	}
	if source != "" {
		ui.PrintInfo("Validating configuration", source)
	} else {
		ui.PrintInfo("Validating configuration", "defaults and environment")
	}

	cfg, err := config.Load(source, nil)
	if err != nil {
		ui.PrintError("Configuration validation failed", err.Error())
		return exitWith(exitConfig, err)
	}

	problems, warnings := checkEnvironment(cfg)

	out := cmd.OutOrStdout()
	if len(problems) > 0 {
		ui.PrintError("Configuration has errors:")
		for _, p := range problems {
			fmt.Fprintf(out, "  - %s\n", p)
		}
		return exitWith(exitConfig, fmt.Errorf("%d configuration errors", len(problems)))
	}
	if len(warnings) > 0 {
		ui.PrintWarning("Configuration warnings:")
		for _, w := range warnings {
			fmt.Fprintf(out, "  - %s\n", w)
		}
		fmt.Fprintln(out)
	}

	ui.PrintSuccess("Configuration is valid")
	fmt.Fprintln(out, "\nConfiguration summary:")
	fmt.Fprintf(out, "  Categories: %d\n", len(cfg.Scrape.URLs))
	fmt.Fprintf(out, "  Workers: %d\n", cfg.Scrape.WorkerLimit)
	fmt.Fprintf(out, "  Wait timeout: %s\n", cfg.Scrape.WaitTimeout())
	fmt.Fprintf(out, "  Save images: %t\n", cfg.Scrape.SaveImages)
	fmt.Fprintf(out, "  Output directory: %s\n", cfg.Output.Directory)
	fmt.Fprintf(out, "  Log level: %s\n", cfg.Logging.Level)
	return nil
}

// checkEnvironment looks for problems Validate cannot see because they
// depend on the machine rather than the values.
func checkEnvironment(cfg *config.Config) (problems, warnings []string) {
	if err := os.MkdirAll(cfg.Output.Directory, 0755); err != nil {
		problems = append(problems, fmt.Sprintf("cannot create output directory: %v", err))
	}
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			problems = append(problems, fmt.Sprintf("cannot create log directory: %v", err))
		}
	}
	if cfg.Browser.ExecPath != "" {
		if _, err := os.Stat(cfg.Browser.ExecPath); err != nil {
			problems = append(problems, fmt.Sprintf("chrome binary not found: %s", cfg.Browser.ExecPath))
		}
	}

	if cfg.Scrape.WorkerLimit > runtime.NumCPU() {
		warnings = append(warnings, fmt.Sprintf("%d workers on %d CPUs; each worker runs its own Chrome", cfg.Scrape.WorkerLimit, runtime.NumCPU()))
	}
	if !cfg.Browser.Headless {
		warnings = append(warnings, "headless is off; a Chrome window opens per worker")
	}
	if !cfg.Browser.NoSandbox || !cfg.Browser.DisableDevShm {
		warnings = append(warnings, "Chrome may fail to start in containers without no_sandbox and disable_dev_shm")
	}
	return problems, warnings
}
