package advisor

import (
	"context"
	"net/url"
	"testing"

	"github.com/azcops/azcops/pkg/azure"
	"github.com/azcops/azcops/pkg/models/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePaginator struct {
	items []any
	query url.Values
}

func (f *fakePaginator) Paginate(
	_ context.Context,
	_ string,
	_ string,
	_ domain.RequestContext,
	_ any,
	query url.Values,
	_ azure.PageOptions,
) ([]any, error) {
	f.query = query
	return f.items, nil
}

func advisorItem(typeID, impact string, extended map[string]any) map[string]any {
	return map[string]any{
		"id":   "/subscriptions/s1/providers/Microsoft.Advisor/recommendations/rec-1",
		"name": "rec-1",
		"properties": map[string]any{
			"category":             "Cost",
			"impact":               impact,
			"impactedField":        "Microsoft.Compute/virtualMachines",
			"impactedValue":        "vm-1",
			"recommendationTypeId": typeID,
			"shortDescription": map[string]any{
				"solution": "Right-size this VM",
				"problem":  "VM is underutilized",
			},
			"resourceMetadata":   map[string]any{"resourceId": "/sub/s1/vm-1"},
			"extendedProperties": extended,
		},
	}
}

func TestCollect_FiltersToCostCategory(t *testing.T) {
	fake := &fakePaginator{items: []any{advisorItem("type-1", "High", nil)}}
	c := NewConnector(fake)

	records, err := c.Collect(context.Background(), domain.RequestContext{TenantID: "t1", SubscriptionID: "s1"})
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, "Category eq 'Cost'", fake.query.Get("$filter"))
	assert.Equal(t, "Right-size this VM", records[0].ShortDescription)
	assert.Equal(t, "/sub/s1/vm-1", records[0].ResourceID)
	assert.Equal(t, "t1", records[0].TenantID)
}

func TestExtractSavings_FieldPriority(t *testing.T) {
	cases := []struct {
		name     string
		extended map[string]any
		impact   string
		want     float64
	}{
		{"direct amount", map[string]any{"savingsAmount": 120.0}, "Low", 120.0},
		{"direct amount as string", map[string]any{"savingsAmount": "99.5"}, "Low", 99.5},
		{"annual divided by 12", map[string]any{"annualSavingsAmount": 1200.0}, "Low", 100.0},
		{"monthly field", map[string]any{"monthlySavingsAmount": 55.0}, "Low", 55.0},
		{"direct wins over annual", map[string]any{"savingsAmount": 10.0, "annualSavingsAmount": 1200.0}, "Low", 10.0},
		{"high impact fallback", nil, "High", 500.0},
		{"medium impact fallback", nil, "Medium", 100.0},
		{"low impact fallback", nil, "Low", 20.0},
		{"unknown impact fallback", nil, "Critical", 20.0},
		{"unparseable value falls through", map[string]any{"savingsAmount": "n/a"}, "Medium", 100.0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			props := map[string]any{"impact": tc.impact}
			if tc.extended != nil {
				props["extendedProperties"] = tc.extended
			}
			assert.Equal(t, tc.want, extractSavings(props))
		})
	}
}

func TestMapRecommendation(t *testing.T) {
	rec := MapRecommendation(domain.AdvisorRecommendation{
		RecommendationTypeID:    "type-9",
		Impact:                  "Medium",
		ShortDescription:        "Buy a reservation",
		Problem:                 "On-demand spend is steady",
		EstimatedMonthlySavings: 250.0,
		ResourceID:              "/sub/s1/vm-9",
	}, "tenant-1")

	assert.Equal(t, "advisor.type-9", rec.RuleID)
	assert.Equal(t, domain.CategoryRateOptimization, rec.Category)
	assert.Equal(t, 0.7, rec.ConfidenceScore)
	assert.Equal(t, domain.RiskLow, rec.RiskLevel)
	assert.Equal(t, domain.StatusOpen, rec.Status)
	assert.Equal(t, "Buy a reservation", rec.Title)
	assert.Equal(t, "On-demand spend is steady", rec.Description)
}
