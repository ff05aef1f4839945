package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/azcops/azcops/pkg/azure"
	"github.com/azcops/azcops/pkg/server"
	"github.com/azcops/azcops/pkg/services/config"
	"github.com/azcops/azcops/pkg/services/connectors/advisor"
	"github.com/azcops/azcops/pkg/services/connectors/costmanagement"
	"github.com/azcops/azcops/pkg/services/connectors/monitor"
	"github.com/azcops/azcops/pkg/services/connectors/resourcegraph"
	"github.com/azcops/azcops/pkg/services/ingestion"
	"github.com/azcops/azcops/pkg/services/recommendation"
	"github.com/azcops/azcops/pkg/store/duckdb"
	duckdbinventory "github.com/azcops/azcops/pkg/store/duckdb/inventory"
	duckdbrecommendation "github.com/azcops/azcops/pkg/store/duckdb/recommendation"
	"github.com/azcops/azcops/pkg/store/raw"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var cfgPath string

func main() {
	var rootCmd = &cobra.Command{
		Use:   "web",
		Short: "Start the AzCops API server",
		RunE:  runServer,
	}

	rootCmd.Flags().StringVarP(&cfgPath, "config", "c", "",
		"Path to the azcops config file (settings come from AZCOPS_* env vars when omitted)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Error loading .env file: %v\n", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	ctx := logger.WithContext(cmd.Context())

	settings, err := config.LoadSettings(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	profile, err := config.LoadAzureProfile(settings.AzureProfile)
	if err != nil {
		return fmt.Errorf("failed to load azure profile: %w", err)
	}

	db, err := duckdb.NewDB(duckdb.Settings{
		DbPath: settings.DBPath,
	})
	if err != nil {
		return fmt.Errorf("failed to create DuckDB instance: %w", err)
	}

	inventoryStore, err := duckdbinventory.NewStore(db)
	if err != nil {
		return fmt.Errorf("failed to create inventory store: %w", err)
	}
	recommendationStore, err := duckdbrecommendation.NewStore(db)
	if err != nil {
		return fmt.Errorf("failed to create recommendation store: %w", err)
	}

	snapshots, err := newSnapshotWriter(ctx, settings.RawStorage, profile.Credentials)
	if err != nil {
		return fmt.Errorf("failed to create snapshot writer: %w", err)
	}

	client := azure.NewClient(profile.Credentials)
	connectors := ingestion.Connectors{
		ResourceGraph: resourcegraph.NewConnector(client),
		Costs:         costmanagement.NewConnector(client),
		Advisor:       advisor.NewConnector(client),
		Monitor:       monitor.NewConnector(client),
	}

	recService := recommendation.NewService(inventoryStore, recommendationStore, nil)
	orchestrator := ingestion.NewOrchestrator(
		connectors,
		inventoryStore,
		snapshots,
		recService,
		settings.Ingestion.MaxConcurrentSubscriptions,
	)
	runner := ingestion.NewRunner(
		orchestrator,
		inventoryStore,
		profile.TenantID,
		profile.TenantName,
		profile.SubscriptionIDs,
	)

	logger.Info().
		Str("tenant_id", profile.TenantID).
		Int("subscriptions", len(profile.SubscriptionIDs)).
		Str("raw_backend", settings.RawStorage.Backend).
		Msg("configuration loaded")

	api := server.NewWebAPI(logger, server.Config{
		Addr:            settings.Addr,
		ShutdownTimeout: 10 * time.Second,
		IngestionDefaults: ingestion.Options{
			CostLookbackDays: settings.Ingestion.CostLookbackDays,
			MonthlyBudget:    settings.Ingestion.MonthlyBudget,
		},
		Dependencies: server.Dependencies{
			Recommendations: recService,
			Ingestion:       runner,
		},
	})

	return api.Start()
}

func newSnapshotWriter(
	ctx context.Context,
	settings config.RawStorageSettings,
	cred azcore.TokenCredential,
) (raw.Writer, error) {
	switch settings.Backend {
	case "local":
		return raw.NewLocalWriter(settings.LocalRoot), nil
	case "azure":
		return raw.NewAzureWriter(settings.AccountURL, settings.Container, cred)
	case "s3":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithDefaultRegion(settings.Region))
		if err != nil {
			return nil, fmt.Errorf("unable to load AWS SDK config: %w", err)
		}
		return raw.NewS3Writer(awsCfg, settings.Bucket), nil
	default:
		return nil, fmt.Errorf("unknown raw storage backend %q", settings.Backend)
	}
}
