package monitor

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/azcops/azcops/pkg/models/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRequester struct {
	mu        sync.Mutex
	responses map[string]map[string]any
	errs      map[string]error
	queries   map[string]url.Values
}

func (f *fakeRequester) Request(_ context.Context, _ string, rawURL string, _ domain.RequestContext, _ any, query url.Values) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.queries == nil {
		f.queries = make(map[string]url.Values)
	}
	f.queries[rawURL] = query
	if err, ok := f.errs[rawURL]; ok {
		return nil, err
	}
	if resp, ok := f.responses[rawURL]; ok {
		return resp, nil
	}
	return map[string]any{"value": []any{}}, nil
}

func metricsURL(resourceID string) string {
	return "https://management.azure.com" + resourceID + "/providers/microsoft.insights/metrics"
}

func metricResponse(name, unit string, averages []float64) map[string]any {
	points := make([]any, 0, len(averages))
	for _, avg := range averages {
		points = append(points, map[string]any{"average": avg})
	}
	return map[string]any{
		"name":       map[string]any{"value": name},
		"unit":       unit,
		"timeseries": []any{map[string]any{"data": points}},
	}
}

func TestCollectAggregatesPerVM(t *testing.T) {
	vm := "/subscriptions/s1/resourceGroups/rg/providers/Microsoft.Compute/virtualMachines/vm-1"
	fake := &fakeRequester{responses: map[string]map[string]any{
		metricsURL(vm): {
			"value": []any{
				metricResponse(CPUMetric, "Percent", []float64{10, 20, 30, 40}),
				metricResponse(MemoryMetric, "Bytes", []float64{2147483648, 4294967296}),
			},
		},
	}}
	c := NewConnector(fake)

	rc := domain.RequestContext{TenantID: "t1", SubscriptionID: "s1", VMResourceIDs: []string{vm}}
	records, err := c.Collect(context.Background(), rc)
	require.NoError(t, err)
	require.Len(t, records, 2)

	byName := make(map[string]domain.MetricRecord)
	for _, r := range records {
		byName[r.MetricName] = r
	}

	cpu := byName[CPUMetric]
	assert.Equal(t, vm, cpu.ResourceID)
	assert.Equal(t, 25.0, cpu.Avg)
	assert.Equal(t, 10.0, cpu.Min)
	assert.Equal(t, 40.0, cpu.Max)
	assert.Equal(t, 40.0, cpu.P95)
	assert.Equal(t, 4, cpu.SampleCount)
	assert.Equal(t, LookbackDays, cpu.LookbackDays)
	assert.Equal(t, "Percent", cpu.Unit)

	mem := byName[MemoryMetric]
	assert.Equal(t, 2, mem.SampleCount)
	assert.Equal(t, "Bytes", mem.Unit)
}

func TestCollectQueryParameters(t *testing.T) {
	vm := "/subscriptions/s1/resourceGroups/rg/providers/Microsoft.Compute/virtualMachines/vm-1"
	fake := &fakeRequester{}
	c := NewConnector(fake)

	rc := domain.RequestContext{TenantID: "t1", SubscriptionID: "s1", VMResourceIDs: []string{vm}}
	_, err := c.Collect(context.Background(), rc)
	require.NoError(t, err)

	query := fake.queries[metricsURL(vm)]
	require.NotNil(t, query)
	assert.Equal(t, apiVersion, query.Get("api-version"))
	assert.Equal(t, CPUMetric+","+MemoryMetric, query.Get("metricnames"))
	assert.Equal(t, "Average,Maximum,Minimum", query.Get("aggregation"))
	assert.Equal(t, "PT1H", query.Get("interval"))
	assert.True(t, strings.Contains(query.Get("timespan"), "/"))
}

func TestCollectIsolatesPerVMFailures(t *testing.T) {
	good := "/subscriptions/s1/resourceGroups/rg/providers/Microsoft.Compute/virtualMachines/vm-good"
	bad := "/subscriptions/s1/resourceGroups/rg/providers/Microsoft.Compute/virtualMachines/vm-bad"
	fake := &fakeRequester{
		responses: map[string]map[string]any{
			metricsURL(good): {"value": []any{metricResponse(CPUMetric, "Percent", []float64{50})}},
		},
		errs: map[string]error{
			metricsURL(bad): fmt.Errorf("metrics unavailable"),
		},
	}
	c := NewConnector(fake)

	rc := domain.RequestContext{TenantID: "t1", SubscriptionID: "s1", VMResourceIDs: []string{good, bad}}
	records, err := c.Collect(context.Background(), rc)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, good, records[0].ResourceID)
}

func TestCollectNoVMs(t *testing.T) {
	fake := &fakeRequester{}
	c := NewConnector(fake)

	records, err := c.Collect(context.Background(), domain.RequestContext{TenantID: "t1", SubscriptionID: "s1"})
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Empty(t, fake.queries)
}

func TestP95Index(t *testing.T) {
	cases := []struct {
		n, want int
	}{
		{1, 0},
		{2, 1},
		{10, 9},
		{20, 18},
		{100, 94},
		{336, 319},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, p95Index(tc.n), "n=%d", tc.n)
	}
}

func TestParseMetricsSkipsEmptySeries(t *testing.T) {
	data := map[string]any{
		"value": []any{
			map[string]any{
				"name":       map[string]any{"value": CPUMetric},
				"timeseries": []any{},
			},
			map[string]any{
				"name":       map[string]any{"value": MemoryMetric},
				"timeseries": []any{map[string]any{"data": []any{map[string]any{"maximum": 1.0}}}},
			},
		},
	}
	records := parseMetrics("vm", data, "t1", "s1")
	assert.Empty(t, records)
}

func TestUtilizationFor(t *testing.T) {
	records := []domain.MetricRecord{
		{MetricName: CPUMetric, Avg: 12.5, P95: 45.0, SampleCount: 336},
		{MetricName: MemoryMetric, Avg: 6442450944, SampleCount: 300},
	}
	util := UtilizationFor(records)
	assert.True(t, util.HasCPUMetrics)
	assert.True(t, util.HasMemoryMetrics)
	assert.Equal(t, 12.5, util.CPUAvgPct)
	assert.Equal(t, 45.0, util.CPUP95Pct)
	assert.InDelta(t, 6.0, util.MemAvailableAvgGB, 0.001)
	assert.Equal(t, 336, util.SampleCount)
	assert.Equal(t, LookbackDays, util.LookbackDays)
}

func TestUtilizationByVM(t *testing.T) {
	records := []domain.MetricRecord{
		{ResourceID: "vm-a", MetricName: CPUMetric, Avg: 5, P95: 8, SampleCount: 10},
		{ResourceID: "vm-b", MetricName: CPUMetric, Avg: 80, P95: 95, SampleCount: 10},
	}
	byVM := UtilizationByVM(records)
	require.Len(t, byVM, 2)
	assert.Equal(t, 8.0, byVM["vm-a"].CPUP95Pct)
	assert.False(t, byVM["vm-b"].HasMemoryMetrics)
}
