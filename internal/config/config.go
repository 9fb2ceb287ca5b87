// Package config loads the orderdesk YAML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/orderdesk/internal/catalog"
	"github.com/Aman-CERP/orderdesk/internal/export"
	"github.com/Aman-CERP/orderdesk/internal/logging"
	"github.com/Aman-CERP/orderdesk/internal/search"
)

// ProjectFileName is the per-directory configuration file.
const ProjectFileName = ".orderdesk.yaml"

// Config is the complete orderdesk configuration.
type Config struct {
	Version int           `yaml:"version" json:"version"`
	DataDir string        `yaml:"data_dir" json:"data_dir"`
	Search  SearchConfig  `yaml:"search" json:"search"`
	Catalog CatalogConfig `yaml:"catalog" json:"catalog"`
	Export  ExportConfig  `yaml:"export" json:"export"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// SearchConfig tunes the fuzzy search.
type SearchConfig struct {
	// Threshold is the tolerated share of edits per query token (0.0-1.0).
	Threshold float64 `yaml:"threshold" json:"threshold"`
	// FieldNormWeight dampens the penalty for long names. 0 disables it.
	FieldNormWeight float64 `yaml:"field_norm_weight" json:"field_norm_weight"`
	// MinMatchCharLength drops shorter query tokens and match runs.
	MinMatchCharLength int  `yaml:"min_match_char_length" json:"min_match_char_length"`
	FindAllMatches     bool `yaml:"find_all_matches" json:"find_all_matches"`
	IgnoreCase         bool `yaml:"ignore_case" json:"ignore_case"`
	// CacheSize is the number of cached result lists per list. 0 disables it.
	CacheSize  int `yaml:"cache_size" json:"cache_size"`
	MaxResults int `yaml:"max_results" json:"max_results"`
	// Telemetry keeps local search statistics (see 'orderdesk stats').
	Telemetry bool `yaml:"telemetry" json:"telemetry"`
}

// CatalogConfig describes the supplier catalog files.
type CatalogConfig struct {
	Delimiter string `yaml:"delimiter" json:"delimiter"`
	Encoding  string `yaml:"encoding" json:"encoding"`
}

// ExportConfig describes the CSV exports.
type ExportConfig struct {
	Delimiter string `yaml:"delimiter" json:"delimiter"`
	Encoding  string `yaml:"encoding" json:"encoding"`
	// Client is the orderer's mail address; its local part names export files.
	Client     string `yaml:"client" json:"client"`
	CostCenter string `yaml:"cost_center" json:"cost_center"`
}

// LoggingConfig configures the log file.
type LoggingConfig struct {
	Level     string `yaml:"level" json:"level"`
	File      string `yaml:"file" json:"file"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" json:"max_files"`
}

// NewConfig returns the defaults.
func NewConfig() *Config {
	idx := search.DefaultIndexOptions()
	return &Config{
		Version: 1,
		DataDir: defaultDataDir(),
		Search: SearchConfig{
			Threshold:          idx.Threshold,
			FieldNormWeight:    idx.FieldNormWeight,
			MinMatchCharLength: idx.MinMatchCharLength,
			FindAllMatches:     idx.FindAllMatches,
			IgnoreCase:         idx.IgnoreCase,
			CacheSize:          search.DefaultCacheSize,
			MaxResults:         20,
			Telemetry:          true,
		},
		Catalog: CatalogConfig{
			Delimiter: ";",
			Encoding:  catalog.EncodingWindows1252,
		},
		Export: ExportConfig{
			Delimiter:  ";",
			Encoding:   export.EncodingWindows1252,
			Client:     "anonymous",
			CostCenter: "KST626_50hertz",
		},
		Logging: LoggingConfig{
			Level:     "warn",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".orderdesk")
	}
	return filepath.Join(home, ".orderdesk")
}

// GetUserConfigPath returns the user configuration file:
//   - $XDG_CONFIG_HOME/orderdesk/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/orderdesk/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "orderdesk", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "orderdesk", "config.yaml")
	}
	return filepath.Join(home, ".config", "orderdesk", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists reports whether the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// Load builds the configuration for dir. Later layers win:
//  1. Defaults
//  2. User config (~/.config/orderdesk/config.yaml)
//  3. Project config (.orderdesk.yaml in dir)
//  4. Environment variables (ORDERDESK_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if path := GetUserConfigPath(); fileExists(path) {
		if err := cfg.loadYAML(path); err != nil {
			return nil, fmt.Errorf("failed to load user config: %w", err)
		}
	}

	if path := filepath.Join(dir, ProjectFileName); fileExists(path) {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadYAML overlays the keys present in the file onto c. Keys the file
// does not mention keep their current value, so explicit zeros and false
// are honoured.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides applies ORDERDESK_* environment variables. Values that
// do not parse are ignored.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("ORDERDESK_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("ORDERDESK_SEARCH_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Search.Threshold = f
		}
	}
	if v := os.Getenv("ORDERDESK_SEARCH_MAX_RESULTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Search.MaxResults = n
		}
	}
	if v := os.Getenv("ORDERDESK_CATALOG_ENCODING"); v != "" {
		c.Catalog.Encoding = v
	}
	if v := os.Getenv("ORDERDESK_EXPORT_ENCODING"); v != "" {
		c.Export.Encoding = v
	}
	if v := os.Getenv("ORDERDESK_EXPORT_CLIENT"); v != "" {
		c.Export.Client = v
	}
	if v := os.Getenv("ORDERDESK_EXPORT_COST_CENTER"); v != "" {
		c.Export.CostCenter = v
	}
	if v := os.Getenv("ORDERDESK_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	if err := c.IndexOptions().Validate(); err != nil {
		return fmt.Errorf("search: %w", err)
	}
	if c.Search.CacheSize < 0 {
		return fmt.Errorf("search.cache_size must be non-negative, got %d", c.Search.CacheSize)
	}
	if c.Search.MaxResults < 0 {
		return fmt.Errorf("search.max_results must be non-negative, got %d", c.Search.MaxResults)
	}

	if err := validateDelimiter("catalog.delimiter", c.Catalog.Delimiter); err != nil {
		return err
	}
	if err := validateEncoding("catalog.encoding", c.Catalog.Encoding); err != nil {
		return err
	}
	if err := validateDelimiter("export.delimiter", c.Export.Delimiter); err != nil {
		return err
	}
	if err := validateEncoding("export.encoding", c.Export.Encoding); err != nil {
		return err
	}
	if strings.TrimSpace(c.Export.CostCenter) == "" {
		return fmt.Errorf("export.cost_center must not be empty")
	}

	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level)
	}
	if c.Logging.MaxSizeMB < 0 || c.Logging.MaxFiles < 0 {
		return fmt.Errorf("logging.max_size_mb and logging.max_files must be non-negative")
	}
	return nil
}

func validateDelimiter(key, d string) error {
	if utf8.RuneCountInString(d) != 1 || d == "\n" || d == "\r" || d == "\"" {
		return fmt.Errorf("%s must be a single character other than newline or quote, got %q", key, d)
	}
	return nil
}

func validateEncoding(key, enc string) error {
	switch strings.ToLower(enc) {
	case catalog.EncodingUTF8, catalog.EncodingWindows1252:
		return nil
	}
	return fmt.Errorf("%s must be %q or %q, got %q", key, catalog.EncodingUTF8, catalog.EncodingWindows1252, enc)
}

// IndexOptions returns the fuzzy index options.
func (c *Config) IndexOptions() search.IndexOptions {
	opts := search.DefaultIndexOptions()
	opts.Threshold = c.Search.Threshold
	opts.FieldNormWeight = c.Search.FieldNormWeight
	opts.MinMatchCharLength = c.Search.MinMatchCharLength
	opts.FindAllMatches = c.Search.FindAllMatches
	opts.IgnoreCase = c.Search.IgnoreCase
	return opts
}

// ImportOptions returns the catalog parser options.
func (c *Config) ImportOptions() catalog.ImportOptions {
	d, _ := utf8.DecodeRuneInString(c.Catalog.Delimiter)
	return catalog.ImportOptions{Delimiter: d, Encoding: strings.ToLower(c.Catalog.Encoding)}
}

// ExportOptions returns the CSV writer options.
func (c *Config) ExportOptions() export.Options {
	d, _ := utf8.DecodeRuneInString(c.Export.Delimiter)
	return export.Options{Delimiter: d, Encoding: strings.ToLower(c.Export.Encoding)}
}

// LoggingConfig returns the logging setup. Without a log file, records go
// to stderr. debug forces debug level and the default log file.
func (c *Config) LoggingConfig(debug bool) logging.Config {
	cfg := logging.Config{
		Level:     c.Logging.Level,
		FilePath:  c.Logging.File,
		MaxSizeMB: c.Logging.MaxSizeMB,
		MaxFiles:  c.Logging.MaxFiles,
	}
	if debug {
		cfg.Level = "debug"
		if cfg.FilePath == "" {
			cfg.FilePath = logging.DefaultLogPath()
		}
	}
	cfg.WriteToStderr = cfg.FilePath == ""
	return cfg
}

// StorePath returns the state database path.
func (c *Config) StorePath() string {
	return filepath.Join(c.DataDir, "orderdesk.db")
}

// WriteYAML writes the configuration to path.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
