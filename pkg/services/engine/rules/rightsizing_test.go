package rules

import (
	"testing"

	"github.com/azcops/azcops/pkg/models/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vm(id string, props map[string]any) domain.Resource {
	return domain.Resource{
		ResourceID: id,
		Name:       "vm-1",
		Type:       "microsoft.compute/virtualmachines",
		Tags:       map[string]string{},
		Properties: props,
	}
}

func TestUnderutilizedVM(t *testing.T) {
	rule := UnderutilizedVMRule{}

	t.Run("idle VM fires", func(t *testing.T) {
		ctx := evalCtx()
		ctx.VMMetrics = map[string]domain.VMUtilization{
			"vm-1": {CPUAvgPct: 4.2, CPUP95Pct: 12.0, HasCPUMetrics: true, LookbackDays: 14},
		}
		f, err := rule.Evaluate(vm("vm-1", map[string]any{}), ctx)
		require.NoError(t, err)
		require.NotNil(t, f)
		assert.Equal(t, "RESIZE-001", f.RuleID)
		assert.Equal(t, 60.0, f.EstimatedMonthlySavings) // 200 * 0.30
		assert.Equal(t, 0.85, f.ConfidenceScore)
		assert.Equal(t, domain.RiskMedium, f.RiskLevel)
	})

	t.Run("busy VM is skipped", func(t *testing.T) {
		ctx := evalCtx()
		ctx.VMMetrics = map[string]domain.VMUtilization{
			"vm-1": {CPUAvgPct: 55.0, HasCPUMetrics: true},
		}
		f, err := rule.Evaluate(vm("vm-1", map[string]any{}), ctx)
		require.NoError(t, err)
		assert.Nil(t, f)
	})

	t.Run("VM without metrics is skipped", func(t *testing.T) {
		f, err := rule.Evaluate(vm("vm-1", map[string]any{}), evalCtx())
		require.NoError(t, err)
		assert.Nil(t, f)
	})

	t.Run("sku cost tag overrides default", func(t *testing.T) {
		ctx := evalCtx()
		ctx.VMMetrics = map[string]domain.VMUtilization{
			"vm-1": {CPUAvgPct: 2.0, HasCPUMetrics: true},
		}
		r := vm("vm-1", map[string]any{})
		r.Tags["current_sku_cost"] = "400"
		f, err := rule.Evaluate(r, ctx)
		require.NoError(t, err)
		require.NotNil(t, f)
		assert.Equal(t, 120.0, f.EstimatedMonthlySavings)
	})
}

func TestOverProvisionedAppService(t *testing.T) {
	rule := OverProvisionedAppServiceRule{}

	plan := func(tier, sku string, workers float64) domain.Resource {
		return domain.Resource{
			ResourceID: "plan-1",
			Type:       "microsoft.web/serverfarms",
			Tags:       map[string]string{},
			Properties: map[string]any{
				"sku":             map[string]any{"tier": tier, "name": sku},
				"numberOfWorkers": workers,
			},
		}
	}

	t.Run("premium plan fires with known sku cost", func(t *testing.T) {
		f, err := rule.Evaluate(plan("PremiumV2", "P1v2", 1), evalCtx())
		require.NoError(t, err)
		require.NotNil(t, f)
		assert.Equal(t, "RESIZE-002", f.RuleID)
		assert.Equal(t, 21.9, f.EstimatedMonthlySavings) // 73 * 0.30
	})

	t.Run("standard multi-worker plan fires", func(t *testing.T) {
		f, err := rule.Evaluate(plan("Standard", "S1", 3), evalCtx())
		require.NoError(t, err)
		require.NotNil(t, f)
	})

	t.Run("free tier is skipped", func(t *testing.T) {
		f, err := rule.Evaluate(plan("Free", "F1", 1), evalCtx())
		require.NoError(t, err)
		assert.Nil(t, f)
	})

	t.Run("basic single-worker plan is skipped", func(t *testing.T) {
		f, err := rule.Evaluate(plan("Basic", "B1", 1), evalCtx())
		require.NoError(t, err)
		assert.Nil(t, f)
	})
}

func TestOversizedSQL(t *testing.T) {
	rule := OversizedSQLRule{}

	db := func(tier, sku string, capacity float64) domain.Resource {
		return domain.Resource{
			ResourceID: "db-1",
			Type:       "microsoft.sql/servers/databases",
			Tags:       map[string]string{},
			Properties: map[string]any{
				"sku": map[string]any{"tier": tier, "name": sku, "capacity": capacity},
			},
		}
	}

	t.Run("high DTU database fires", func(t *testing.T) {
		f, err := rule.Evaluate(db("Standard", "S3", 100), evalCtx())
		require.NoError(t, err)
		require.NotNil(t, f)
		assert.Equal(t, "RESIZE-003", f.RuleID)
		assert.Equal(t, 60.0, f.EstimatedMonthlySavings) // 150 * 0.40
		assert.Equal(t, domain.RiskHigh, f.RiskLevel)
	})

	t.Run("low DTU database is skipped", func(t *testing.T) {
		f, err := rule.Evaluate(db("Standard", "S1", 20), evalCtx())
		require.NoError(t, err)
		assert.Nil(t, f)
	})

	t.Run("vCore database scales by capacity", func(t *testing.T) {
		f, err := rule.Evaluate(db("GeneralPurpose", "GP_Gen5_8", 8), evalCtx())
		require.NoError(t, err)
		require.NotNil(t, f)
		assert.Equal(t, 488.0, f.EstimatedMonthlySavings) // 610 * 8/4 * 0.40
	})

	t.Run("missing capacity is skipped", func(t *testing.T) {
		r := db("Premium", "P1", 0)
		r.Properties["sku"] = map[string]any{"tier": "Premium", "name": "P1"}
		f, err := rule.Evaluate(r, evalCtx())
		require.NoError(t, err)
		assert.Nil(t, f)
	})

	t.Run("basic tier is skipped", func(t *testing.T) {
		f, err := rule.Evaluate(db("Basic", "B", 5), evalCtx())
		require.NoError(t, err)
		assert.Nil(t, f)
	})
}
