package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the Plurk backup tool
type Config struct {
	// Plurk API credentials and endpoint
	Plurk PlurkConfig `yaml:"plurk" json:"plurk"`

	// Timeline crawl settings
	Crawl CrawlConfig `yaml:"crawl" json:"crawl"`

	// Media download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Retry policy for API calls. Media downloads are never retried.
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Terminal output
	UI UIConfig `yaml:"ui" json:"ui"`
}

// PlurkConfig holds the OAuth application and access credentials.
// The environment names match the .env files written by earlier versions.
type PlurkConfig struct {
	ConsumerKey       string        `yaml:"consumer_key" json:"consumer_key" env:"CONSUMER_KEY"`
	ConsumerSecret    string        `yaml:"consumer_secret" json:"consumer_secret" env:"CONSUMER_SECRET"`
	AccessToken       string        `yaml:"access_token" json:"access_token" env:"ACCESS_TOKEN"`
	AccessTokenSecret string        `yaml:"access_token_secret" json:"access_token_secret" env:"ACCESS_TOKEN_SECRET"`
	BaseURL           string        `yaml:"base_url" json:"base_url" env:"PLURKBACKUP_BASE_URL" validate:"required,url"`
	Timeout           time.Duration `yaml:"timeout" json:"timeout" env:"PLURKBACKUP_API_TIMEOUT" validate:"gt=0"`
}

// CrawlConfig holds timeline pagination and post processing settings
type CrawlConfig struct {
	PageSize int `yaml:"page_size" json:"page_size" env:"PLURKBACKUP_PAGE_SIZE" validate:"min=1,max=100"`
	// Posts with more favorites than this get their responses archived.
	// -1 archives responses for every post.
	FavoriteThreshold int `yaml:"favorite_threshold" json:"favorite_threshold" env:"PLURKBACKUP_FAVORITE_THRESHOLD" validate:"min=-1"`
	Workers           int `yaml:"workers" json:"workers" env:"PLURKBACKUP_WORKERS" validate:"min=1,max=64"`
	// Extra batches buffered between producer and processor. 0 keeps the
	// producer at most one fetched page ahead of the batch being processed.
	QueueDepth        int `yaml:"queue_depth" json:"queue_depth" env:"PLURKBACKUP_QUEUE_DEPTH" validate:"min=0,max=16"`
}

// DownloadConfig holds media download settings
type DownloadConfig struct {
	ConcurrentDownloads int           `yaml:"concurrent_downloads" json:"concurrent_downloads" env:"PLURKBACKUP_CONCURRENT_DOWNLOADS" validate:"min=1,max=32"`
	Timeout             time.Duration `yaml:"timeout" json:"timeout" env:"PLURKBACKUP_DOWNLOAD_TIMEOUT" validate:"gt=0"`
	UserAgent           string        `yaml:"user_agent" json:"user_agent" env:"PLURKBACKUP_USER_AGENT"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	BaseDirectory   string `yaml:"base_directory" json:"base_directory" env:"PLURKBACKUP_OUTPUT_DIR" validate:"required"`
	DirPermissions  string `yaml:"dir_permissions" json:"dir_permissions" validate:"required,numeric"`
	FilePermissions string `yaml:"file_permissions" json:"file_permissions" validate:"required,numeric"`
}

// RetryConfig holds the API transport retry policy
type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts" json:"max_attempts" env:"PLURKBACKUP_MAX_ATTEMPTS" validate:"min=1,max=10"`
	InitialBackoff time.Duration `yaml:"initial_backoff" json:"initial_backoff" validate:"gte=0"`
	MaxBackoff     time.Duration `yaml:"max_backoff" json:"max_backoff" validate:"gtefield=InitialBackoff"`
	Multiplier     float64       `yaml:"multiplier" json:"multiplier" validate:"gte=1"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `yaml:"level" json:"level" env:"PLURKBACKUP_LOG_LEVEL" validate:"oneof=debug info warn warning error disabled"`
	File       string `yaml:"file" json:"file" env:"PLURKBACKUP_LOG_FILE"`
	MaxSize    int    `yaml:"max_size" json:"max_size" validate:"gte=0"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups" validate:"gte=0"`
	MaxAge     int    `yaml:"max_age" json:"max_age" validate:"gte=0"`
	Compress   bool   `yaml:"compress" json:"compress"`
}

// UIConfig holds terminal output preferences
type UIConfig struct {
	NoColor bool `yaml:"no_color" json:"no_color"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Plurk: PlurkConfig{
			BaseURL: "https://www.plurk.com",
			Timeout: 30 * time.Second,
		},
		Crawl: CrawlConfig{
			PageSize:          30,
			FavoriteThreshold: -1,
			Workers:           defaultWorkers(),
			QueueDepth:        0,
		},
		Download: DownloadConfig{
			ConcurrentDownloads: 8,
			Timeout:             60 * time.Second,
			UserAgent:           "plurkbackup/1.0",
		},
		Output: OutputConfig{
			BaseDirectory:   ".",
			DirPermissions:  "0755",
			FilePermissions: "0644",
		},
		Retry: RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: 1 * time.Second,
			MaxBackoff:     30 * time.Second,
			Multiplier:     2.0,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     7,
		},
	}
}

func defaultWorkers() int {
	n := runtime.NumCPU()
	if n > 64 {
		n = 64
	}
	return n
}

// HasCredentials reports whether the consumer key pair is present.
// Access tokens are optional for public timelines.
func (p PlurkConfig) HasCredentials() bool {
	return p.ConsumerKey != "" && p.ConsumerSecret != ""
}

// LoadFromEnv overlays environment variables onto the configuration
func (c *Config) LoadFromEnv() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}
	// https://no-color.org: any non-empty value disables colour
	if os.Getenv("NO_COLOR") != "" {
		c.UI.NoColor = true
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
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

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home, _ := os.UserHomeDir()
	locations := []string{
		".plurkbackup.yaml",
		".plurkbackup.yml",
		filepath.Join(home, ".config", "plurkbackup", "config.yaml"),
		filepath.Join(home, ".config", "plurkbackup", "config.yml"),
		filepath.Join(home, ".plurkbackup.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	errs := make([]error, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		errs = append(errs, fmt.Errorf("%s: failed %q check (value %v)", fieldPath(fe.Namespace()), fe.Tag(), fe.Value()))
	}
	return errors.Join(errs...)
}

// fieldPath strips the root struct name from a validator namespace
func fieldPath(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

// DirMode parses the configured directory permissions
func (o OutputConfig) DirMode() os.FileMode {
	return parseMode(o.DirPermissions, 0755)
}

// FileMode parses the configured file permissions
func (o OutputConfig) FileMode() os.FileMode {
	return parseMode(o.FilePermissions, 0644)
}

func parseMode(s string, fallback os.FileMode) os.FileMode {
	v, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return fallback
	}
	return os.FileMode(v)
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

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only keys present in flags are applied.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if workers, ok := flags["workers"].(int); ok && workers > 0 {
		c.Crawl.Workers = workers
	}
	if concurrent, ok := flags["concurrent"].(int); ok && concurrent > 0 {
		c.Download.ConcurrentDownloads = concurrent
	}
	if threshold, ok := flags["threshold"].(int); ok {
		c.Crawl.FavoriteThreshold = threshold
	}
	if pageSize, ok := flags["page-size"].(int); ok && pageSize > 0 {
		c.Crawl.PageSize = pageSize
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
	if noColor, ok := flags["no-color"].(bool); ok && noColor {
		c.UI.NoColor = true
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > env file > Config file > Defaults
// An empty envFile means ".env" in the working directory.
func Load(configPath, envFile string, flags map[string]interface{}) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	// godotenv never overrides variables that are already set
	_ = godotenv.Load(envFile)
	if home, err := os.UserHomeDir(); err == nil {
		_ = godotenv.Load(filepath.Join(home, ".plurkbackup.env"))
	}

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
