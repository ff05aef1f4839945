package monitor

import (
	"github.com/azcops/azcops/pkg/models/domain"
)

const bytesPerGB = 1024 * 1024 * 1024

// UtilizationFor collapses a VM's metric records into a single utilization
// summary. CPU values are percentages; available memory is converted from
// bytes to GB.
func UtilizationFor(records []domain.MetricRecord) domain.VMUtilization {
	util := domain.VMUtilization{LookbackDays: LookbackDays}
	for _, r := range records {
		switch r.MetricName {
		case CPUMetric:
			util.CPUAvgPct = r.Avg
			util.CPUP95Pct = r.P95
			util.HasCPUMetrics = true
			if r.SampleCount > util.SampleCount {
				util.SampleCount = r.SampleCount
			}
		case MemoryMetric:
			util.MemAvailableAvgGB = r.Avg / bytesPerGB
			util.HasMemoryMetrics = true
			if r.SampleCount > util.SampleCount {
				util.SampleCount = r.SampleCount
			}
		}
	}
	return util
}

// UtilizationByVM groups metric records by resource id and summarizes each.
func UtilizationByVM(records []domain.MetricRecord) map[string]domain.VMUtilization {
	byVM := make(map[string][]domain.MetricRecord)
	for _, r := range records {
		byVM[r.ResourceID] = append(byVM[r.ResourceID], r)
	}
	out := make(map[string]domain.VMUtilization, len(byVM))
	for id, recs := range byVM {
		out[id] = UtilizationFor(recs)
	}
	return out
}
