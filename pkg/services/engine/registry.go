package engine

import (
	"github.com/azcops/azcops/pkg/services/engine/rules"
)

// DefaultRules returns the full rule set in registration order. Ordering is
// stable so repeated runs over the same inventory produce findings in the
// same sequence.
func DefaultRules() []rules.Rule {
	return []rules.Rule{
		rules.UnattachedDiskRule{},
		rules.IdlePublicIPRule{},
		rules.OrphanedNICRule{},
		rules.StaleSnapshotRule{},
		rules.UnderutilizedVMRule{},
		rules.OverProvisionedAppServiceRule{},
		rules.OversizedSQLRule{},
		rules.ReservedInstanceGapRule{},
		rules.SavingsPlanOpportunityRule{},
		rules.MissingCostCenterTagRule{},
		rules.BudgetThresholdRule{},
	}
}
