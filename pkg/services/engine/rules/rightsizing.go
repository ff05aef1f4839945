package rules

import (
	"fmt"
	"strings"

	"github.com/azcops/azcops/pkg/models/domain"
)

const (
	cpuThresholdPct   = 10.0
	defaultVMCost     = 200.0
	downsizeSavingPct = 0.30
)

// UnderutilizedVMRule flags VMs whose average CPU stayed below 10% over the
// monitoring window.
type UnderutilizedVMRule struct{}

func (UnderutilizedVMRule) RuleID() string                { return "RESIZE-001" }
func (UnderutilizedVMRule) Category() domain.RuleCategory { return domain.CategoryRightsizing }

func (r UnderutilizedVMRule) Evaluate(resource domain.Resource, evalCtx EvalContext) (*domain.Finding, error) {
	if resource.Type != "microsoft.compute/virtualmachines" {
		return nil, nil
	}

	util, ok := evalCtx.VMMetrics[resource.ResourceID]
	if !ok || !util.HasCPUMetrics {
		return nil, nil
	}
	if util.CPUAvgPct >= cpuThresholdPct {
		return nil, nil
	}

	skuCost := defaultVMCost
	if tagged, err := tagFloat(resource.Tags, "current_sku_cost"); err == nil {
		skuCost = tagged
	}

	savings := round2(skuCost * downsizeSavingPct)
	return makeFinding(r, resource, evalCtx, domain.Finding{
		EstimatedMonthlySavings: savings,
		ConfidenceScore:         0.85,
		RiskLevel:               domain.RiskMedium,
		EffortLevel:             domain.EffortMedium,
		ShortDescription:        "VM CPU utilisation below 10% over 14 days, candidate for right-sizing",
		Detail: fmt.Sprintf("VM %s has average CPU utilisation of %.1f%% over %d days. Downsizing one tier could save ~$%.2f/month.",
			resourceName(resource), util.CPUAvgPct, util.LookbackDays, savings),
		Metadata: map[string]any{
			"cpu_avg_pct":      util.CPUAvgPct,
			"cpu_p95_pct":      util.CPUP95Pct,
			"current_sku_cost": skuCost,
		},
	})
}

var overProvisionedSKUPrefixes = []string{"P1", "P2", "P3", "S2", "S3"}

const defaultPlanCost = 100.0

// OverProvisionedAppServiceRule flags App Service Plans on premium or
// over-sized SKUs that are candidates for downsizing.
type OverProvisionedAppServiceRule struct{}

func (OverProvisionedAppServiceRule) RuleID() string { return "RESIZE-002" }
func (OverProvisionedAppServiceRule) Category() domain.RuleCategory {
	return domain.CategoryRightsizing
}

func (r OverProvisionedAppServiceRule) Evaluate(resource domain.Resource, evalCtx EvalContext) (*domain.Finding, error) {
	if resource.Type != "microsoft.web/serverfarms" {
		return nil, nil
	}

	sku := propMap(resource.Properties, "sku")
	tier := propString(sku, "tier")
	skuName := propString(sku, "name")

	switch strings.ToLower(tier) {
	case "free", "shared":
		return nil, nil
	}

	fires := strings.Contains(tier, "Premium")
	for _, prefix := range overProvisionedSKUPrefixes {
		if strings.HasPrefix(skuName, prefix) {
			fires = true
		}
	}

	numWorkers := 1
	if n, ok := propFloat(resource.Properties, "numberOfWorkers"); ok {
		numWorkers = int(n)
	}
	switch tier {
	case "Standard", "Premium", "PremiumV2", "PremiumV3":
		if numWorkers > 1 {
			fires = true
		}
	}

	if !fires {
		return nil, nil
	}

	planCost, ok := prices.AppServicePlanMonthly(skuName)
	if !ok {
		planCost = defaultPlanCost
	}
	savings := round2(planCost * downsizeSavingPct)

	return makeFinding(r, resource, evalCtx, domain.Finding{
		EstimatedMonthlySavings: savings,
		ConfidenceScore:         0.75,
		RiskLevel:               domain.RiskMedium,
		EffortLevel:             domain.EffortMedium,
		ShortDescription:        "App Service Plan may be over-provisioned",
		Detail: fmt.Sprintf("App Service Plan %s is running SKU %s (tier: %s) with %d worker(s). Downsizing could save ~$%.2f/month.",
			resourceName(resource), skuName, tier, numWorkers, savings),
		Metadata: map[string]any{
			"sku_name":            skuName,
			"tier":                tier,
			"num_workers":         numWorkers,
			"estimated_plan_cost": planCost,
		},
	})
}

const (
	defaultSQLDBCost = 100.0
	sqlSavingPct     = 0.40
	dtuThreshold     = 100
	vCoreThreshold   = 4
)

// OversizedSQLRule flags SQL databases provisioned with excess DTU or vCore
// capacity.
type OversizedSQLRule struct{}

func (OversizedSQLRule) RuleID() string                { return "RESIZE-003" }
func (OversizedSQLRule) Category() domain.RuleCategory { return domain.CategoryRightsizing }

func (r OversizedSQLRule) Evaluate(resource domain.Resource, evalCtx EvalContext) (*domain.Finding, error) {
	if resource.Type != "microsoft.sql/servers/databases" {
		return nil, nil
	}

	sku := propMap(resource.Properties, "sku")
	tier := propString(sku, "tier")
	skuName := propString(sku, "name")

	isDTU := tier == "Standard" || tier == "Premium"
	isVCore := tier == "BusinessCritical" || tier == "GeneralPurpose"
	if !isDTU && !isVCore {
		return nil, nil
	}

	capf, ok := propFloat(sku, "capacity")
	if !ok {
		return nil, nil
	}
	capacity := int(capf)

	if isDTU && capacity < dtuThreshold {
		return nil, nil
	}
	if isVCore && capacity < vCoreThreshold {
		return nil, nil
	}

	dbCost, ok := prices.SQLDatabaseMonthly(skuName)
	if !ok {
		if isVCore {
			dbCost = prices.SQLVCoreMonthly(capacity)
		} else {
			dbCost = defaultSQLDBCost
		}
	}
	savings := round2(dbCost * sqlSavingPct)

	return makeFinding(r, resource, evalCtx, domain.Finding{
		EstimatedMonthlySavings: savings,
		ConfidenceScore:         0.70,
		RiskLevel:               domain.RiskHigh,
		EffortLevel:             domain.EffortHigh,
		ShortDescription:        "SQL Database may have excess DTU/vCore capacity",
		Detail: fmt.Sprintf("SQL Database %s is using SKU %s (tier: %s) with capacity %d. Right-sizing could save ~$%.2f/month. Note: database resize may cause brief downtime.",
			resourceName(resource), skuName, tier, capacity, savings),
		Metadata: map[string]any{
			"sku_name":          skuName,
			"tier":              tier,
			"capacity":          capacity,
			"estimated_db_cost": dbCost,
		},
	})
}
