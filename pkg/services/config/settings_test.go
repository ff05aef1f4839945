package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettingsDefaults(t *testing.T) {
	settings, err := LoadSettings("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", settings.Addr)
	assert.Equal(t, "azcops.db", settings.DBPath)
	assert.Equal(t, "default", settings.AzureProfile)
	assert.Equal(t, "local", settings.RawStorage.Backend)
	assert.Equal(t, 10, settings.Ingestion.MaxConcurrentSubscriptions)
	assert.Equal(t, 30, settings.Ingestion.CostLookbackDays)
	assert.Equal(t, 0.0, settings.Ingestion.MonthlyBudget)
}

func TestLoadSettingsFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
addr: ":9090"
db_path: /var/lib/azcops/azcops.db
raw_storage:
  backend: azure
  account_url: https://snapshots.blob.core.windows.net
  container: raw
ingestion:
  max_concurrent_subscriptions: 4
  monthly_budget: 10000
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	settings, err := LoadSettings(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", settings.Addr)
	assert.Equal(t, "/var/lib/azcops/azcops.db", settings.DBPath)
	assert.Equal(t, "azure", settings.RawStorage.Backend)
	assert.Equal(t, "raw", settings.RawStorage.Container)
	assert.Equal(t, 4, settings.Ingestion.MaxConcurrentSubscriptions)
	assert.Equal(t, 10000.0, settings.Ingestion.MonthlyBudget)
	// file overrides merge with defaults
	assert.Equal(t, 30, settings.Ingestion.CostLookbackDays)
}

func TestLoadSettingsRejectsUnknownBackend(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("raw_storage:\n  backend: ftp\n"), 0o644))

	_, err := LoadSettings(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown raw storage backend")
}
