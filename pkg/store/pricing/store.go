package pricing

// Static monthly price book for the SKUs the rule engine reasons about.
// Figures are rounded East US pay-as-you-go list prices; they feed savings
// estimates, not invoices.

type Store interface {
	// VMOnDemandMonthly returns the on-demand monthly cost of a VM size.
	// Only reservation-eligible sizes are listed; ok is false otherwise.
	VMOnDemandMonthly(size string) (float64, bool)
	// AppServicePlanMonthly returns the monthly cost of an App Service
	// Plan SKU.
	AppServicePlanMonthly(sku string) (float64, bool)
	// SQLDatabaseMonthly returns the monthly cost of a DTU-model SQL
	// database SKU.
	SQLDatabaseMonthly(sku string) (float64, bool)
	// SQLVCoreMonthly estimates the monthly cost of a vCore-model SQL
	// database from its provisioned capacity.
	SQLVCoreMonthly(capacity int) float64
}

const sqlVCore4Monthly = 610.0

var vmOnDemandMonthly = map[string]float64{
	"Standard_D2s_v3": 96.0,
	"Standard_D4s_v3": 192.0,
	"Standard_D8s_v3": 384.0,
	"Standard_E2s_v3": 124.0,
	"Standard_E4s_v3": 248.0,
	"Standard_F2s_v2": 85.0,
	"Standard_F4s_v2": 170.0,
}

var appServicePlanMonthly = map[string]float64{
	"P1v2": 73.0,
	"P2v2": 146.0,
	"P3v2": 292.0,
	"P1v3": 95.0,
	"P2v3": 190.0,
	"P3v3": 380.0,
	"S1":   73.0,
	"S2":   146.0,
	"S3":   292.0,
}

var sqlDTUMonthly = map[string]float64{
	"S2": 75.0,
	"S3": 150.0,
	"P1": 465.0,
	"P2": 930.0,
	"P4": 1860.0,
}

type staticStore struct{}

func NewStatic() Store {
	return &staticStore{}
}

func (staticStore) VMOnDemandMonthly(size string) (float64, bool) {
	cost, ok := vmOnDemandMonthly[size]
	return cost, ok
}

func (staticStore) AppServicePlanMonthly(sku string) (float64, bool) {
	cost, ok := appServicePlanMonthly[sku]
	return cost, ok
}

func (staticStore) SQLDatabaseMonthly(sku string) (float64, bool) {
	cost, ok := sqlDTUMonthly[sku]
	return cost, ok
}

func (staticStore) SQLVCoreMonthly(capacity int) float64 {
	return sqlVCore4Monthly * float64(capacity) / 4.0
}
