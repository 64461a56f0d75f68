// Package config handles configuration loading for yieldboard.
// It supports YAML config files with environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/seenimoa/yieldboard/internal/logging"
	"github.com/seenimoa/yieldboard/internal/series"
)

// EnvPrefix prefixes every environment override, e.g. YIELDBOARD_API_PORT.
const EnvPrefix = "YIELDBOARD"

// Data sources.
const (
	SourceFRED     = "fred"
	SourceWorkbook = "workbook"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config represents the complete application configuration.
type Config struct {
	FRED    FREDConfig    `mapstructure:"fred"    yaml:"fred"`
	Data    DataConfig    `mapstructure:"data"    yaml:"data"`
	API     APIConfig     `mapstructure:"api"     yaml:"api"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// FREDConfig holds FRED API access settings.
type FREDConfig struct {
	APIKey     string `mapstructure:"api_key"     yaml:"api_key"`
	BaseURL    string `mapstructure:"base_url"    yaml:"base_url"`
	RateLimit  int    `mapstructure:"rate_limit"  yaml:"rate_limit"` // requests per minute
	TimeoutSec int    `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// DataConfig selects where observations come from and which dates to load.
type DataConfig struct {
	Source            string `mapstructure:"source"             yaml:"source"` // "fred" or "workbook"
	WorkbookPath      string `mapstructure:"workbook_path"      yaml:"workbook_path"`
	Start             string `mapstructure:"start"              yaml:"start"`
	End               string `mapstructure:"end"                yaml:"end"` // empty means today
	ConcurrentFetches int    `mapstructure:"concurrent_fetches" yaml:"concurrent_fetches"`
}

// APIConfig holds HTTP server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "auto", "text", "json" or "logfmt"
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.yieldboard/config.yaml (home directory)
//  3. /etc/yieldboard/config.yaml (system)
//
// Environment variables override config file values.
// Format: YIELDBOARD_<SECTION>_<KEY>, e.g., YIELDBOARD_API_PORT
func Load() (*Config, error) {
	v := newViper()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".yieldboard"))
	v.AddConfigPath("/etc/yieldboard")

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	overrideFromEnv(&cfg)
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// FRED defaults
	v.SetDefault("fred.api_key", "")
	v.SetDefault("fred.base_url", "https://api.stlouisfed.org/fred")
	v.SetDefault("fred.rate_limit", 120)
	v.SetDefault("fred.timeout_sec", 30)

	// Data defaults
	v.SetDefault("data.source", SourceFRED)
	v.SetDefault("data.workbook_path", "")
	v.SetDefault("data.start", "2000-01-01")
	v.SetDefault("data.end", "")
	v.SetDefault("data.concurrent_fetches", 4)

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8050)
	v.SetDefault("api.cors_origins", []string{"*"})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", logging.FormatAuto)
}

// overrideFromEnv explicitly reads sensitive keys from environment variables.
// The conventional FRED_API_KEY is honored when the prefixed variable is unset.
func overrideFromEnv(cfg *Config) {
	if key := os.Getenv("YIELDBOARD_FRED_API_KEY"); key != "" {
		cfg.FRED.APIKey = key
	} else if key := os.Getenv("FRED_API_KEY"); key != "" {
		cfg.FRED.APIKey = key
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var merr error

	switch c.Data.Source {
	case SourceFRED:
		if c.FRED.APIKey == "" {
			merr = multierror.Append(merr, errors.New("fred.api_key is required when data.source is fred (or set FRED_API_KEY)"))
		}
		if c.FRED.RateLimit <= 0 {
			merr = multierror.Append(merr, fmt.Errorf("fred.rate_limit must be positive, got %d", c.FRED.RateLimit))
		}
	case SourceWorkbook:
		if c.Data.WorkbookPath == "" {
			merr = multierror.Append(merr, errors.New("data.workbook_path is required when data.source is workbook"))
		}
	default:
		merr = multierror.Append(merr, fmt.Errorf("data.source must be %q or %q, got %q", SourceFRED, SourceWorkbook, c.Data.Source))
	}

	r, err := series.ParseDateRange(c.Data.Start, c.Data.End)
	if err != nil {
		merr = multierror.Append(merr, fmt.Errorf("data: %w", err))
	} else if r.End != (civil.Date{}) && r.Start.After(r.End) {
		merr = multierror.Append(merr, fmt.Errorf("data.start %s is after data.end %s", r.Start, r.End))
	}
	if c.Data.ConcurrentFetches <= 0 {
		merr = multierror.Append(merr, fmt.Errorf("data.concurrent_fetches must be positive, got %d", c.Data.ConcurrentFetches))
	}

	if c.API.Port <= 0 || c.API.Port > 65535 {
		merr = multierror.Append(merr, fmt.Errorf("api.port must be in 1-65535, got %d", c.API.Port))
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		merr = multierror.Append(merr, fmt.Errorf("logging.level: %w", err))
	}
	if c.Logging.Format != "" && !slices.Contains(logging.Formats, strings.ToLower(c.Logging.Format)) {
		merr = multierror.Append(merr, fmt.Errorf("logging.format must be one of %v, got %q", logging.Formats, c.Logging.Format))
	}

	if merr != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, merr)
	}
	return nil
}

// DateRange returns the configured load window.
func (c *Config) DateRange() (series.DateRange, error) {
	return series.ParseDateRange(c.Data.Start, c.Data.End)
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.API.Host, c.API.Port)
}

// YAML renders the configuration with secrets masked.
func (c *Config) YAML() ([]byte, error) {
	masked := *c
	if masked.FRED.APIKey != "" {
		masked.FRED.APIKey = maskKey(masked.FRED.APIKey)
	}
	masked.API.CORSOrigins = slices.Clone(c.API.CORSOrigins)
	out, err := yaml.Marshal(&masked)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return out, nil
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
