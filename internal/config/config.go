package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix is the prefix for all environment variable overrides,
// e.g. INV_AUTH_TENANT_ID.
const EnvPrefix = "INV"

// DefaultFilePattern matches dated snapshot exports such as
// 2024-01-15_Raw_Data.xlsx. The single capture group must yield the
// snapshot date as YYYY-MM-DD.
const DefaultFilePattern = `^(\d{4}-\d{2}-\d{2})_Raw_Data\.xlsx$`

// Config represents the complete application configuration
type Config struct {
	Graph    GraphConfig    `yaml:"graph" envconfig:"GRAPH"`
	Auth     AuthConfig     `yaml:"auth" envconfig:"AUTH"`
	Pipeline PipelineConfig `yaml:"pipeline" envconfig:"PIPELINE"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
}

// GraphConfig locates the SharePoint document library holding the
// snapshot files.
type GraphConfig struct {
	SiteURL     string          `yaml:"site_url" envconfig:"SITE_URL" validate:"required,url"`
	LibraryName string          `yaml:"library_name" envconfig:"LIBRARY_NAME" validate:"required"`
	FolderPath  string          `yaml:"folder_path" envconfig:"FOLDER_PATH" validate:"required"`
	BaseURL     string          `yaml:"base_url" envconfig:"BASE_URL"`
	Timeout     time.Duration   `yaml:"timeout" envconfig:"TIMEOUT"`
	RateLimit   RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig paces outbound Graph requests
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps" envconfig:"RPS"`
	Burst int     `yaml:"burst" envconfig:"BURST"`
}

// AuthConfig contains the client-credentials settings for token
// acquisition. The client secret is environment-only and never read
// from the config file.
type AuthConfig struct {
	TenantID      string `yaml:"tenant_id" envconfig:"TENANT_ID" validate:"required"`
	ClientID      string `yaml:"client_id" envconfig:"CLIENT_ID" validate:"required"`
	ClientSecret  string `yaml:"-" envconfig:"CLIENT_SECRET" validate:"required"`
	AuthorityHost string `yaml:"authority_host" envconfig:"AUTHORITY_HOST"`
	Scope         string `yaml:"scope" envconfig:"SCOPE"`
	TokenCache    string `yaml:"token_cache" envconfig:"TOKEN_CACHE"`
}

// PipelineConfig controls snapshot selection and failure policy.
type PipelineConfig struct {
	FilePattern         string `yaml:"file_pattern" envconfig:"FILE_PATTERN" validate:"required"`
	SkipInvalidFiles    bool   `yaml:"skip_invalid_files" envconfig:"SKIP_INVALID_FILES"`
	AllowDuplicateDates bool   `yaml:"allow_duplicate_dates" envconfig:"ALLOW_DUPLICATE_DATES"`
	OutputFile          string `yaml:"output_file" envconfig:"OUTPUT_FILE" validate:"required"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Output   string `yaml:"output" envconfig:"OUTPUT"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// Load reads configuration from the YAML file at path, then applies
// environment variable overrides, fills defaults for anything still
// unset, and validates. Environment values take precedence over file
// values.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		fileCfg, err := loadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = *fileCfg
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyDefaults fills fields left unset by both file and environment.
// Defaults live here rather than in envconfig tags so that file values
// survive the env pass.
func (c *Config) applyDefaults() {
	if c.Graph.BaseURL == "" {
		c.Graph.BaseURL = "https://graph.microsoft.com/v1.0"
	}
	if c.Graph.Timeout == 0 {
		c.Graph.Timeout = 30 * time.Second
	}
	if c.Graph.RateLimit.RPS == 0 {
		c.Graph.RateLimit.RPS = 4
	}
	if c.Graph.RateLimit.Burst == 0 {
		c.Graph.RateLimit.Burst = 4
	}
	if c.Auth.AuthorityHost == "" {
		c.Auth.AuthorityHost = "https://login.microsoftonline.com"
	}
	if c.Auth.Scope == "" {
		c.Auth.Scope = "https://graph.microsoft.com/.default"
	}
	if c.Auth.TokenCache == "" {
		c.Auth.TokenCache = ".inv_token_cache.json"
	}
	if c.Pipeline.FilePattern == "" {
		c.Pipeline.FilePattern = DefaultFilePattern
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "console"
	}
	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/aggregator.log"
	}
}

// validate checks required fields using struct tags
func (c *Config) validate() error {
	v := validator.New()

	// Use YAML tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err := v.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			var fields []string
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("missing or invalid config fields: %s", strings.Join(fields, ", "))
		}
		return err
	}

	return nil
}
