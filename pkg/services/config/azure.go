package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"gopkg.in/ini.v1"
)

const DefaultProfile = "default"

// AzureProfile is one tenant's connection settings, read from the profile
// section of ~/.azure/config.
type AzureProfile struct {
	TenantID        string
	TenantName      string
	SubscriptionIDs []string
	Credentials     azcore.TokenCredential
}

// LoadAzureProfile resolves a named profile and builds its credential chain.
// Subscriptions may be a comma-separated list; an empty list means discovery
// is left to the caller.
func LoadAzureProfile(profile string) (*AzureProfile, error) {
	if profile == "" {
		profile = DefaultProfile
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("unable to get home directory: %w", err)
	}

	configPath := filepath.Join(homeDir, ".azure", "config")
	cfg, err := ini.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("unable to load Azure config file: %w", err)
	}

	section, err := cfg.GetSection(profile)
	if err != nil {
		return nil, fmt.Errorf("profile %s not found in Azure config: %w", profile, err)
	}

	parsed := &AzureProfile{
		TenantID:        section.Key("tenant").String(),
		TenantName:      section.Key("tenant_name").MustString(profile),
		SubscriptionIDs: section.Key("subscriptions").Strings(","),
	}
	if parsed.TenantID == "" {
		return nil, fmt.Errorf("tenant not found in profile %s", profile)
	}

	cred, err := newCredential(parsed.TenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get Azure credentials: %w", err)
	}
	parsed.Credentials = cred
	return parsed, nil
}

// newCredential prefers the ambient service identity and falls back to the
// local Azure CLI session for development.
func newCredential(tenantID string) (azcore.TokenCredential, error) {
	cred, err := azidentity.NewDefaultAzureCredential(&azidentity.DefaultAzureCredentialOptions{
		TenantID: tenantID,
	})
	if err == nil {
		return cred, nil
	}

	cliCred, cliErr := azidentity.NewAzureCLICredential(&azidentity.AzureCLICredentialOptions{
		TenantID: tenantID,
	})
	if cliErr != nil {
		return nil, fmt.Errorf("no usable credential (default: %v): %w", err, cliErr)
	}
	return cliCred, nil
}
