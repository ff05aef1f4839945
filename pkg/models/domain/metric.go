package domain

// MetricRecord holds aggregate utilization statistics for one metric of one
// resource over the monitor lookback window. Values are in the metric's
// native unit (percent for CPU, bytes for memory).
type MetricRecord struct {
	ResourceID     string
	TenantID       string
	SubscriptionID string
	MetricName     string
	Avg            float64
	Min            float64
	Max            float64
	P95            float64
	SampleCount    int
	LookbackDays   int
	Unit           string
}

// VMUtilization is the per-VM summary the right-sizing rules consume.
type VMUtilization struct {
	CPUAvgPct         float64
	CPUP95Pct         float64
	MemAvailableAvgGB float64
	HasCPUMetrics     bool
	HasMemoryMetrics  bool
	SampleCount       int
	LookbackDays      int
}
