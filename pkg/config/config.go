package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// envPrefix is prepended to every recognised environment variable
const envPrefix = "SHOPSCRAPER_"

// MaxWorkerLimit caps the number of concurrent browser sessions
const MaxWorkerLimit = 16

// DefaultURLs are the category pages scraped when no URLs are configured
var DefaultURLs = []string{
	"https://www.uniqlo.com/ca/en/men/tops",
	"https://www.uniqlo.com/ca/en/men/outerwear",
	"https://www.uniqlo.com/ca/en/men/sweaters-and-knitwear",
	"https://www.uniqlo.com/ca/en/men/shirts-and-polo-shirts",
	"https://www.uniqlo.com/ca/en/men/bottoms",
	"https://www.uniqlo.com/ca/en/men/innerwear-and-base-layers/",
	"https://www.uniqlo.com/ca/en/men/loungewear",
	"https://www.uniqlo.com/ca/en/men/accessories-and-home",
	"https://www.uniqlo.com/ca/en/men/sport-utility-wear",
}

// Config holds all configuration options for the scraper
type Config struct {
	// Category scraping behaviour
	Scrape ScrapeConfig `yaml:"scrape" json:"scrape"`

	// Browser session startup options
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// Page selectors for the target site
	Selectors SelectorConfig `yaml:"selectors" json:"selectors"`

	// Image download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Notification preferences
	Notifications NotificationConfig `yaml:"notifications" json:"notifications"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Debug enables verbose logging and failure screenshots
	Debug bool `yaml:"debug" json:"debug"`
}

// ScrapeConfig holds the category run configuration
type ScrapeConfig struct {
	URLs                []string      `yaml:"urls" json:"urls"`
	WorkerLimit         int           `yaml:"worker_limit" json:"worker_limit"`
	SaveImages          bool          `yaml:"save_images" json:"save_images"`
	WaitTimeoutSeconds  int           `yaml:"wait_timeout_seconds" json:"wait_timeout_seconds"`
	SettleDelay         time.Duration `yaml:"settle_delay" json:"settle_delay"`
	MaxScrollIterations int           `yaml:"max_scroll_iterations" json:"max_scroll_iterations"`
	LocalePrefix        string        `yaml:"locale_prefix" json:"locale_prefix"`
	Version             string        `yaml:"version" json:"version"`
}

// WaitTimeout returns the bounded wait used for element and condition waits
func (s ScrapeConfig) WaitTimeout() time.Duration {
	return time.Duration(s.WaitTimeoutSeconds) * time.Second
}

// BrowserConfig holds the fixed startup configuration of each browser session
type BrowserConfig struct {
	Headless       bool          `yaml:"headless" json:"headless"`
	NoSandbox      bool          `yaml:"no_sandbox" json:"no_sandbox"`
	DisableDevShm  bool          `yaml:"disable_dev_shm" json:"disable_dev_shm"`
	UserAgent      string        `yaml:"user_agent" json:"user_agent"`
	ExecPath       string        `yaml:"exec_path" json:"exec_path"`
	StartupTimeout time.Duration `yaml:"startup_timeout" json:"startup_timeout"`
}

// SelectorConfig holds the site specific selectors. Each may be CSS or
// XPath. Direct div children of Grid are treated as product tiles.
type SelectorConfig struct {
	ConsentReject string `yaml:"consent_reject" json:"consent_reject"`
	Grid          string `yaml:"grid" json:"grid"`
	ProductName   string `yaml:"product_name" json:"product_name"`
	ProductPrice  string `yaml:"product_price" json:"product_price"`
	ProductImage  string `yaml:"product_image" json:"product_image"`
}

// DownloadConfig holds image download configuration
type DownloadConfig struct {
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
	UserAgent string        `yaml:"user_agent" json:"user_agent"`
}

// OutputConfig holds output locations. File and directory names are
// relative to Directory.
type OutputConfig struct {
	Directory   string `yaml:"directory" json:"directory"`
	ReportFile  string `yaml:"report_file" json:"report_file"`
	ArchiveFile string `yaml:"archive_file" json:"archive_file"`
	ImagesDir   string `yaml:"images_dir" json:"images_dir"`
	DebugDir    string `yaml:"debug_dir" json:"debug_dir"`
}

// ReportPath returns the full path of the JSON report
func (o OutputConfig) ReportPath() string {
	return filepath.Join(o.Directory, o.ReportFile)
}

// ArchivePath returns the full path of the archive
func (o OutputConfig) ArchivePath() string {
	return filepath.Join(o.Directory, o.ArchiveFile)
}

// NotificationConfig holds notification preferences
type NotificationConfig struct {
	Enabled    bool `yaml:"enabled" json:"enabled"`
	OnComplete bool `yaml:"on_complete" json:"on_complete"`
	OnError    bool `yaml:"on_error" json:"on_error"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Scrape: ScrapeConfig{
			URLs:                append([]string(nil), DefaultURLs...),
			WorkerLimit:         3,
			SaveImages:          true,
			WaitTimeoutSeconds:  15,
			SettleDelay:         time.Second,
			MaxScrollIterations: 50,
			LocalePrefix:        "/ca/en/",
			Version:             "1.0.0",
		},
		Browser: BrowserConfig{
			Headless:       true,
			NoSandbox:      true,
			DisableDevShm:  true,
			StartupTimeout: 30 * time.Second,
		},
		Selectors: SelectorConfig{
			ConsentReject: "#onetrust-reject-all-handler",
			Grid:          ".fr-ec-product-collection",
			ProductName:   "/html/body/div[1]/div/div/div[1]/div[2]/div/div[1]/div/main/div[1]/div",
			ProductPrice:  "/html/body/div[1]/div/div/div[1]/div[2]/div/div[1]/div/main/div[5]/div/div/div[1]/div/div/p",
			ProductImage:  ".image--ratio-3x4 .image__img",
		},
		Download: DownloadConfig{
			Timeout:   30 * time.Second,
			UserAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
		},
		Output: OutputConfig{
			Directory:   ".",
			ReportFile:  "prices.json",
			ArchiveFile: "output.zip",
			ImagesDir:   "images",
			DebugDir:    "debug",
		},
		Notifications: NotificationConfig{
			Enabled:    false,
			OnComplete: true,
			OnError:    true,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if urls := os.Getenv(envPrefix + "URLS"); urls != "" {
		c.Scrape.URLs = splitList(urls)
	}
	if v := os.Getenv(envPrefix + "WORKER_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sWORKER_LIMIT: %w", envPrefix, err))
		} else {
			c.Scrape.WorkerLimit = n
		}
	}
	if v := os.Getenv(envPrefix + "SAVE_IMAGES"); v != "" {
		c.Scrape.SaveImages = strings.ToLower(v) == "true"
	}
	if v := os.Getenv(envPrefix + "WAIT_TIMEOUT_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sWAIT_TIMEOUT_SECONDS: %w", envPrefix, err))
		} else {
			c.Scrape.WaitTimeoutSeconds = n
		}
	}
	if v := os.Getenv(envPrefix + "DEBUG"); v != "" {
		c.Debug = strings.ToLower(v) == "true"
	}
	if v := os.Getenv(envPrefix + "HEADLESS"); v != "" {
		c.Browser.Headless = strings.ToLower(v) == "true"
	}
	if v := os.Getenv(envPrefix + "CHROME_PATH"); v != "" {
		c.Browser.ExecPath = v
	}
	if v := os.Getenv(envPrefix + "OUTPUT_DIR"); v != "" {
		c.Output.Directory = v
	}
	if v := os.Getenv(envPrefix + "NOTIFICATIONS_ENABLED"); v != "" {
		c.Notifications.Enabled = strings.ToLower(v) == "true"
	}
	if v := os.Getenv(envPrefix + "LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = FindConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// FindConfigFile returns the first config file found in the usual
// locations, or an empty string
func FindConfigFile() string {
	locations := []string{
		"shopscraper.yaml",
		"shopscraper.yml",
		".shopscraper.yaml",
		filepath.Join(os.Getenv("HOME"), ".config", "shopscraper", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".shopscraper.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	// Validate scrape settings
	if len(c.Scrape.URLs) == 0 {
		errs = append(errs, errors.New("at least one category URL is required"))
	}
	if !strings.HasPrefix(c.Scrape.LocalePrefix, "/") {
		errs = append(errs, errors.New("locale prefix must start with /"))
	}
	for _, raw := range c.Scrape.URLs {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("invalid category URL %q", raw))
			continue
		}
		if !strings.HasPrefix(u.Path, c.Scrape.LocalePrefix) {
			errs = append(errs, fmt.Errorf("category URL %q does not start with locale prefix %q", raw, c.Scrape.LocalePrefix))
		}
	}
	if c.Scrape.WorkerLimit <= 0 {
		errs = append(errs, errors.New("worker limit must be positive"))
	}
	if c.Scrape.WorkerLimit > MaxWorkerLimit {
		errs = append(errs, fmt.Errorf("worker limit should not exceed %d", MaxWorkerLimit))
	}
	if c.Scrape.WaitTimeoutSeconds <= 0 {
		errs = append(errs, errors.New("wait timeout must be positive"))
	}
	if c.Scrape.SettleDelay < 0 {
		errs = append(errs, errors.New("settle delay cannot be negative"))
	}
	if c.Scrape.MaxScrollIterations <= 0 {
		errs = append(errs, errors.New("max scroll iterations must be positive"))
	}

	// Validate browser and selectors
	if c.Browser.StartupTimeout <= 0 {
		errs = append(errs, errors.New("browser startup timeout must be positive"))
	}
	if c.Selectors.Grid == "" || c.Selectors.ProductName == "" || c.Selectors.ProductPrice == "" {
		errs = append(errs, errors.New("grid, product name and product price selectors are required"))
	}
	if c.Scrape.SaveImages && c.Selectors.ProductImage == "" {
		errs = append(errs, errors.New("product image selector is required when saving images"))
	}

	// Validate download and output
	if c.Download.Timeout <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
	}
	if c.Output.Directory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	if c.Output.ReportFile == "" || c.Output.ArchiveFile == "" || c.Output.ImagesDir == "" {
		errs = append(errs, errors.New("report file, archive file and images directory are required"))
	}

	// Validate logging
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only keys present in the map are applied.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if urls, ok := flags["urls"].([]string); ok && len(urls) > 0 {
		c.Scrape.URLs = urls
	}
	if workers, ok := flags["workers"].(int); ok && workers > 0 {
		c.Scrape.WorkerLimit = workers
	}
	if save, ok := flags["save-images"].(bool); ok {
		c.Scrape.SaveImages = save
	}
	if timeout, ok := flags["wait-timeout"].(int); ok && timeout > 0 {
		c.Scrape.WaitTimeoutSeconds = timeout
	}
	if headless, ok := flags["headless"].(bool); ok {
		c.Browser.Headless = headless
	}
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Output.Directory = outputDir
	}
	if debug, ok := flags["debug"].(bool); ok {
		c.Debug = debug
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// applyDebug forces debug logging when debug mode is on
func (c *Config) applyDebug() {
	if c.Debug {
		c.Logging.Level = "debug"
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".shopscraper.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)
	config.applyDebug()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// splitList splits a comma or whitespace separated list, dropping empty items
func splitList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\n' || r == '\t'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
