package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// RawStorageSettings selects one snapshot backend at startup.
type RawStorageSettings struct {
	// Backend is one of "local", "azure", "s3".
	Backend    string `mapstructure:"backend"`
	LocalRoot  string `mapstructure:"local_root"`
	AccountURL string `mapstructure:"account_url"`
	Container  string `mapstructure:"container"`
	Bucket     string `mapstructure:"bucket"`
	Region     string `mapstructure:"region"`
}

type IngestionSettings struct {
	MaxConcurrentSubscriptions int     `mapstructure:"max_concurrent_subscriptions"`
	CostLookbackDays           int     `mapstructure:"cost_lookback_days"`
	MonthlyBudget              float64 `mapstructure:"monthly_budget"`
}

type Settings struct {
	Addr         string             `mapstructure:"addr"`
	DBPath       string             `mapstructure:"db_path"`
	AzureProfile string             `mapstructure:"azure_profile"`
	RawStorage   RawStorageSettings `mapstructure:"raw_storage"`
	Ingestion    IngestionSettings  `mapstructure:"ingestion"`
}

// LoadSettings reads application settings from an optional config file with
// AZCOPS_* environment overrides.
func LoadSettings(path string) (*Settings, error) {
	v := viper.New()

	v.SetDefault("addr", ":8080")
	v.SetDefault("db_path", "azcops.db")
	v.SetDefault("azure_profile", "default")
	v.SetDefault("raw_storage.backend", "local")
	v.SetDefault("raw_storage.local_root", "snapshots")
	v.SetDefault("ingestion.max_concurrent_subscriptions", 10)
	v.SetDefault("ingestion.cost_lookback_days", 30)
	v.SetDefault("ingestion.monthly_budget", 0)

	v.SetEnvPrefix("AZCOPS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}

	switch settings.RawStorage.Backend {
	case "local", "azure", "s3":
	default:
		return nil, fmt.Errorf("unknown raw storage backend %q", settings.RawStorage.Backend)
	}
	return &settings, nil
}
