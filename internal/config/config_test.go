package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/orderdesk/internal/catalog"
	"github.com/Aman-CERP/orderdesk/internal/logging"
)

// isolate points the user config at an empty temp dir and clears the
// ORDERDESK_* variables Load reads.
func isolate(t *testing.T) string {
	t.Helper()
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	for _, k := range []string{
		"ORDERDESK_DATA_DIR", "ORDERDESK_SEARCH_THRESHOLD", "ORDERDESK_SEARCH_MAX_RESULTS",
		"ORDERDESK_CATALOG_ENCODING", "ORDERDESK_EXPORT_ENCODING", "ORDERDESK_EXPORT_CLIENT",
		"ORDERDESK_EXPORT_COST_CENTER", "ORDERDESK_LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
	return xdg
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
}

func TestNewConfig_ReturnsDefaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, 0.2, cfg.Search.Threshold)
	assert.Equal(t, 0.3, cfg.Search.FieldNormWeight)
	assert.Equal(t, 2, cfg.Search.MinMatchCharLength)
	assert.True(t, cfg.Search.IgnoreCase)
	assert.Equal(t, 128, cfg.Search.CacheSize)
	assert.True(t, cfg.Search.Telemetry)
	assert.Equal(t, ";", cfg.Catalog.Delimiter)
	assert.Equal(t, catalog.EncodingWindows1252, cfg.Export.Encoding)
	assert.Equal(t, "KST626_50hertz", cfg.Export.CostCenter)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, ".orderdesk", filepath.Base(cfg.DataDir))
	assert.NoError(t, cfg.Validate())
}

func TestLoad_NoFiles(t *testing.T) {
	isolate(t)

	cfg, err := Load(t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, NewConfig(), cfg)
}

func TestLoad_LayersInOrder(t *testing.T) {
	// Given: user config, project config and env each setting something
	xdg := isolate(t)
	writeFile(t, filepath.Join(xdg, "orderdesk", "config.yaml"), `
export:
  client: max@50hertz.de
  cost_center: KST100
search:
  threshold: 0.4
`)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ProjectFileName), `
export:
  cost_center: KST200
search:
  ignore_case: false
  cache_size: 0
`)
	t.Setenv("ORDERDESK_SEARCH_THRESHOLD", "0.1")

	// When: loading
	cfg, err := Load(dir)

	// Then: later layers win key by key, explicit zero values included
	require.NoError(t, err)
	assert.Equal(t, "max@50hertz.de", cfg.Export.Client)
	assert.Equal(t, "KST200", cfg.Export.CostCenter)
	assert.Equal(t, 0.1, cfg.Search.Threshold)
	assert.False(t, cfg.Search.IgnoreCase)
	assert.Equal(t, 0, cfg.Search.CacheSize)
	assert.Equal(t, 0.3, cfg.Search.FieldNormWeight, "untouched keys keep defaults")
}

func TestLoad_InvalidYAML(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ProjectFileName), "search: [not, a, map")

	_, err := Load(dir)

	assert.Error(t, err)
}

func TestLoad_InvalidValues(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ProjectFileName), "search:\n  threshold: 1.5\n")

	_, err := Load(dir)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "threshold")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty data dir", func(c *Config) { c.DataDir = "" }},
		{"negative cache", func(c *Config) { c.Search.CacheSize = -1 }},
		{"negative max results", func(c *Config) { c.Search.MaxResults = -1 }},
		{"zero min match length", func(c *Config) { c.Search.MinMatchCharLength = 0 }},
		{"long delimiter", func(c *Config) { c.Catalog.Delimiter = ";;" }},
		{"quote delimiter", func(c *Config) { c.Export.Delimiter = `"` }},
		{"unknown encoding", func(c *Config) { c.Export.Encoding = "latin-9" }},
		{"empty cost center", func(c *Config) { c.Export.CostCenter = " " }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDerivedOptions(t *testing.T) {
	cfg := NewConfig()
	cfg.Catalog.Delimiter = ","
	cfg.Catalog.Encoding = "UTF-8"
	cfg.Search.Threshold = 0.5

	assert.Equal(t, ',', cfg.ImportOptions().Delimiter)
	assert.Equal(t, catalog.EncodingUTF8, cfg.ImportOptions().Encoding)
	assert.Equal(t, ';', cfg.ExportOptions().Delimiter)
	assert.Equal(t, 0.5, cfg.IndexOptions().Threshold)
	assert.True(t, cfg.IndexOptions().IncludeMatches)
	assert.Equal(t, filepath.Join(cfg.DataDir, "orderdesk.db"), cfg.StorePath())
	debug := cfg.LoggingConfig(true)
	assert.Equal(t, "debug", debug.Level)
	assert.Equal(t, logging.DefaultLogPath(), debug.FilePath)
	assert.False(t, debug.WriteToStderr)
	plain := cfg.LoggingConfig(false)
	assert.Equal(t, "warn", plain.Level)
	assert.True(t, plain.WriteToStderr)
}

func TestWriteYAML_RoundTrip(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	cfg := NewConfig()
	cfg.Export.Client = "erika@50hertz.de"

	require.NoError(t, cfg.WriteYAML(filepath.Join(dir, ProjectFileName)))
	loaded, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestBackupUserConfig(t *testing.T) {
	// Given: no user config
	xdg := isolate(t)
	path, err := BackupUserConfig()
	require.NoError(t, err)
	assert.Empty(t, path)

	// When: backing up an existing config more often than MaxBackups
	writeFile(t, filepath.Join(xdg, "orderdesk", "config.yaml"), "version: 1\n")
	for i := 0; i < MaxBackups+2; i++ {
		writeFile(t, GetUserConfigPath()+BackupSuffix+".2020010"+string(rune('1'+i))+"-000000.000", "old\n")
	}
	path, err = BackupUserConfig()

	// Then: the newest backups are kept
	require.NoError(t, err)
	assert.FileExists(t, path)
	backups, err := ListUserConfigBackups()
	require.NoError(t, err)
	require.Len(t, backups, MaxBackups)
	assert.Equal(t, path, backups[0])
}
