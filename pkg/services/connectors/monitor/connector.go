package monitor

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/azcops/azcops/pkg/models/domain"
	"github.com/rs/zerolog"
)

const (
	apiVersion          = "2023-10-01"
	LookbackDays        = 14
	aggregationInterval = "PT1H"

	CPUMetric    = "Percentage CPU"
	MemoryMetric = "Available Memory Bytes"
)

type Requester interface {
	Request(ctx context.Context, method, url string, rc domain.RequestContext, body any, query url.Values) (map[string]any, error)
}

// Connector queries VM-level CPU and memory utilization over a 14-day window
// at 1-hour granularity. VM ids are seeded by the caller from the resource
// inventory; per-VM failures are logged and do not abort the batch.
type Connector struct {
	http Requester
	now  func() time.Time
}

func NewConnector(client Requester) *Connector {
	return &Connector{http: client, now: time.Now}
}

func (c *Connector) Collect(ctx context.Context, rc domain.RequestContext) ([]domain.MetricRecord, error) {
	logger := zerolog.Ctx(ctx)
	rc = rc.WithOperation("monitor.vm_metrics")

	if len(rc.VMResourceIDs) == 0 {
		logger.Debug().
			Str("subscription_id", rc.SubscriptionID).
			Str("tenant_id", rc.TenantID).
			Msg("monitor: no VMs to query")
		return []domain.MetricRecord{}, nil
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		records []domain.MetricRecord
	)
	for _, resourceID := range rc.VMResourceIDs {
		wg.Add(1)
		go func(resourceID string) {
			defer wg.Done()
			vmRecords, err := c.collectVM(ctx, resourceID, rc)
			if err != nil {
				logger.Warn().
					Err(err).
					Str("resource_id", resourceID).
					Str("tenant_id", rc.TenantID).
					Msg("monitor: VM metrics failed")
				return
			}
			mu.Lock()
			records = append(records, vmRecords...)
			mu.Unlock()
		}(resourceID)
	}
	wg.Wait()

	logger.Info().
		Int("vms_processed", len(rc.VMResourceIDs)).
		Int("metric_records", len(records)).
		Str("subscription_id", rc.SubscriptionID).
		Str("tenant_id", rc.TenantID).
		Msg("monitor collected")
	return records, nil
}

func (c *Connector) collectVM(ctx context.Context, resourceID string, rc domain.RequestContext) ([]domain.MetricRecord, error) {
	end := c.now().UTC()
	start := end.AddDate(0, 0, -LookbackDays)

	endpoint := fmt.Sprintf("https://management.azure.com%s/providers/microsoft.insights/metrics", resourceID)
	query := url.Values{
		"api-version": {apiVersion},
		"metricnames": {CPUMetric + "," + MemoryMetric},
		"aggregation": {"Average,Maximum,Minimum"},
		"interval":    {aggregationInterval},
		"timespan":    {start.Format(time.RFC3339) + "/" + end.Format(time.RFC3339)},
	}

	data, err := c.http.Request(ctx, "GET", endpoint, rc, nil, query)
	if err != nil {
		return nil, err
	}
	return parseMetrics(resourceID, data, rc.TenantID, rc.SubscriptionID), nil
}

// parseMetrics computes avg/min/max/p95 per metric from the raw
// average-per-interval samples.
func parseMetrics(resourceID string, data map[string]any, tenantID, subscriptionID string) []domain.MetricRecord {
	var records []domain.MetricRecord

	metrics, _ := data["value"].([]any)
	for _, raw := range metrics {
		metric, _ := raw.(map[string]any)
		nameObj, _ := metric["name"].(map[string]any)
		metricName, _ := nameObj["value"].(string)
		timeseries, _ := metric["timeseries"].([]any)
		if len(timeseries) == 0 {
			continue
		}

		var samples []float64
		for _, rawSeries := range timeseries {
			series, _ := rawSeries.(map[string]any)
			points, _ := series["data"].([]any)
			for _, rawPoint := range points {
				point, _ := rawPoint.(map[string]any)
				if avg, ok := point["average"].(float64); ok {
					samples = append(samples, avg)
				}
			}
		}
		if len(samples) == 0 {
			continue
		}

		sorted := append([]float64(nil), samples...)
		sort.Float64s(sorted)
		n := len(sorted)

		var sum float64
		for _, v := range samples {
			sum += v
		}

		unit, _ := metric["unit"].(string)
		records = append(records, domain.MetricRecord{
			ResourceID:     resourceID,
			TenantID:       tenantID,
			SubscriptionID: subscriptionID,
			MetricName:     metricName,
			Avg:            round2(sum / float64(n)),
			Min:            round2(sorted[0]),
			Max:            round2(sorted[n-1]),
			P95:            round2(sorted[p95Index(n)]),
			SampleCount:    n,
			LookbackDays:   LookbackDays,
			Unit:           unit,
		})
	}

	return records
}

// p95Index is max(0, ceil(0.95*n) - 1) over the sorted sample.
func p95Index(n int) int {
	idx := int(math.Ceil(0.95*float64(n))) - 1
	if idx < 0 {
		return 0
	}
	return idx
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
