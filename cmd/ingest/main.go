package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/azcops/azcops/pkg/azure"
	"github.com/azcops/azcops/pkg/export"
	"github.com/azcops/azcops/pkg/models/domain"
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

// incrementalLookbackDays keeps the nightly cost refresh narrow; a few days
// of overlap absorbs late-arriving usage records.
const incrementalLookbackDays = 3

var (
	cfgPath string
	mode    string
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "ingest",
		Short: "Run one ingestion pass over the configured tenant",
		RunE:  runIngest,
	}

	rootCmd.Flags().StringVarP(&cfgPath, "config", "c", "",
		"Path to the azcops config file (settings come from AZCOPS_* env vars when omitted)")
	rootCmd.Flags().StringVarP(&mode, "mode", "m", "full",
		"Ingestion mode: 'full' runs the whole pipeline, 'incremental' refreshes costs only")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runIngest(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Error loading .env file: %v\n", err)
	}

	if mode != "full" && mode != "incremental" {
		return fmt.Errorf("unknown mode %q, expected 'full' or 'incremental'", mode)
	}

	runID := time.Now().UTC().Format("20060102T150405Z")
	correlationID := fmt.Sprintf("scheduler-%s-%s", mode, runID)

	logger := zerolog.New(os.Stdout).With().
		Timestamp().
		Str("correlation_id", correlationID).
		Logger()
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

	opts := ingestion.Options{
		CostLookbackDays: settings.Ingestion.CostLookbackDays,
		MonthlyBudget:    settings.Ingestion.MonthlyBudget,
		CorrelationID:    correlationID,
	}
	if mode == "incremental" {
		opts.CostOnly = true
		opts.CostLookbackDays = incrementalLookbackDays
	}

	logger.Info().
		Str("mode", mode).
		Str("run_id", runID).
		Str("tenant_id", profile.TenantID).
		Int("subscriptions", len(profile.SubscriptionIDs)).
		Msg("ingestion run started")

	result, err := runner.Run(ctx, opts)
	if err != nil {
		return fmt.Errorf("ingestion run failed: %w", err)
	}

	logger.Info().
		Str("mode", mode).
		Str("run_id", runID).
		Int("subscriptions_processed", result.SubscriptionsProcessed).
		Int("subscriptions_failed", result.SubscriptionsFailed).
		Int("total_resources", result.TotalResources).
		Int("total_cost_records", result.TotalCostRecords).
		Float64("duration_ms", result.DurationMS).
		Msg("ingestion run completed")

	reporter := export.NewReporter(os.Stdout)
	if err := reporter.IngestionSummary(result); err != nil {
		logger.Warn().Err(err).Msg("failed to render ingestion summary")
	}
	if mode == "full" {
		open, err := recService.List(ctx, duckdbrecommendation.ListFilter{
			Status: domain.StatusOpen,
			Limit:  10,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("failed to list open recommendations")
		} else if err := reporter.Recommendations(open); err != nil {
			logger.Warn().Err(err).Msg("failed to render recommendations")
		}
	}

	if result.SubscriptionsFailed > 0 {
		return fmt.Errorf("%d of %d subscriptions failed",
			result.SubscriptionsFailed, result.SubscriptionsFailed+result.SubscriptionsProcessed)
	}
	return nil
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
