package rules

import (
	"fmt"
	"time"

	"github.com/azcops/azcops/pkg/models/domain"
)

const (
	diskCostPerGB    = 0.05
	diskSavingsFloor = 5.0
	defaultDiskGB    = 128.0

	publicIPMonthlyCost = 3.65
	orphanedNICCost     = 0.50

	staleSnapshotDays = 90
)

// UnattachedDiskRule flags managed disks not mounted to any VM.
type UnattachedDiskRule struct{}

func (UnattachedDiskRule) RuleID() string                { return "WASTE-001" }
func (UnattachedDiskRule) Category() domain.RuleCategory { return domain.CategoryWaste }

func (r UnattachedDiskRule) Evaluate(resource domain.Resource, evalCtx EvalContext) (*domain.Finding, error) {
	if resource.Type != "microsoft.compute/disks" {
		return nil, nil
	}

	diskState := propString(resource.Properties, "diskState")
	unattached := diskState == "Unattached" ||
		evalCtx.isWasteCandidate("unattached_disk", resource.ResourceID)
	if !unattached {
		return nil, nil
	}

	sizeGB, ok := propFloat(resource.Properties, "diskSizeGB")
	if !ok {
		if tagged, err := tagFloat(resource.Tags, "disk_size_gb"); err == nil {
			sizeGB = tagged
		} else {
			sizeGB = defaultDiskGB
		}
	}

	savings := round2(diskSavings(sizeGB))
	return makeFinding(r, resource, evalCtx, domain.Finding{
		EstimatedMonthlySavings: savings,
		ConfidenceScore:         0.95,
		RiskLevel:               domain.RiskLow,
		EffortLevel:             domain.EffortLow,
		ShortDescription:        "Unattached managed disk with no active VM mount",
		Detail: fmt.Sprintf("Disk %s has been unattached. Deleting saves ~$%.2f/month.",
			resourceName(resource), savings),
		Metadata: map[string]any{"disk_size_gb": sizeGB, "disk_state": diskState},
	})
}

func diskSavings(sizeGB float64) float64 {
	savings := sizeGB * diskCostPerGB
	if savings < diskSavingsFloor {
		return diskSavingsFloor
	}
	return savings
}

func tagFloat(tags map[string]string, key string) (float64, error) {
	v, ok := tags[key]
	if !ok {
		return 0, fmt.Errorf("tag %s missing", key)
	}
	var f float64
	if _, err := fmt.Sscanf(v, "%f", &f); err != nil {
		return 0, fmt.Errorf("tag %s is not numeric: %w", key, err)
	}
	return f, nil
}

// IdlePublicIPRule flags public IP addresses with neither an ipConfiguration
// nor a natGateway association.
type IdlePublicIPRule struct{}

func (IdlePublicIPRule) RuleID() string                { return "WASTE-002" }
func (IdlePublicIPRule) Category() domain.RuleCategory { return domain.CategoryWaste }

func (r IdlePublicIPRule) Evaluate(resource domain.Resource, evalCtx EvalContext) (*domain.Finding, error) {
	if resource.Type != "microsoft.network/publicipaddresses" {
		return nil, nil
	}

	if resource.Properties["ipConfiguration"] != nil || resource.Properties["natGateway"] != nil {
		return nil, nil
	}

	return makeFinding(r, resource, evalCtx, domain.Finding{
		EstimatedMonthlySavings: publicIPMonthlyCost,
		ConfidenceScore:         0.90,
		RiskLevel:               domain.RiskLow,
		EffortLevel:             domain.EffortLow,
		ShortDescription:        "Orphaned public IP not associated with any resource",
		Detail: fmt.Sprintf("Public IP %s has no ipConfiguration or natGateway association. Deleting saves ~$%.2f/month.",
			resourceName(resource), publicIPMonthlyCost),
	})
}

// OrphanedNICRule flags network interfaces not attached to any VM.
type OrphanedNICRule struct{}

func (OrphanedNICRule) RuleID() string                { return "WASTE-003" }
func (OrphanedNICRule) Category() domain.RuleCategory { return domain.CategoryWaste }

func (r OrphanedNICRule) Evaluate(resource domain.Resource, evalCtx EvalContext) (*domain.Finding, error) {
	if resource.Type != "microsoft.network/networkinterfaces" {
		return nil, nil
	}

	if resource.Properties["virtualMachine"] != nil {
		return nil, nil
	}

	return makeFinding(r, resource, evalCtx, domain.Finding{
		EstimatedMonthlySavings: orphanedNICCost,
		ConfidenceScore:         0.90,
		RiskLevel:               domain.RiskLow,
		EffortLevel:             domain.EffortLow,
		ShortDescription:        "Orphaned NIC not attached to any VM",
		Detail: fmt.Sprintf("Network interface %s has no virtualMachine association. Deleting saves ~$%.2f/month and reduces clutter.",
			resourceName(resource), orphanedNICCost),
	})
}

// StaleSnapshotRule flags snapshots older than 90 days. A snapshot with no
// parseable creation timestamp is assumed stale.
type StaleSnapshotRule struct {
	Now func() time.Time
}

func (StaleSnapshotRule) RuleID() string                { return "WASTE-004" }
func (StaleSnapshotRule) Category() domain.RuleCategory { return domain.CategoryWaste }

func (r StaleSnapshotRule) Evaluate(resource domain.Resource, evalCtx EvalContext) (*domain.Finding, error) {
	if resource.Type != "microsoft.compute/snapshots" {
		return nil, nil
	}

	now := time.Now
	if r.Now != nil {
		now = r.Now
	}

	ageDays, ok := snapshotAgeDays(propString(resource.Properties, "timeCreated"), now())
	if !ok {
		ageDays = staleSnapshotDays + 1
	}
	if ageDays < staleSnapshotDays {
		return nil, nil
	}

	sizeGB, ok := propFloat(resource.Properties, "diskSizeGB")
	if !ok {
		sizeGB = defaultDiskGB
	}

	savings := round2(diskSavings(sizeGB))
	return makeFinding(r, resource, evalCtx, domain.Finding{
		EstimatedMonthlySavings: savings,
		ConfidenceScore:         0.80,
		RiskLevel:               domain.RiskLow,
		EffortLevel:             domain.EffortLow,
		ShortDescription:        "Stale snapshot older than 90 days",
		Detail: fmt.Sprintf("Snapshot %s is ~%d days old (threshold: %d days). Deleting saves ~$%.2f/month.",
			resourceName(resource), int(ageDays), staleSnapshotDays, savings),
		Metadata: map[string]any{"age_days": ageDays, "snapshot_size_gb": sizeGB},
	})
}

func snapshotAgeDays(timeCreated string, now time.Time) (float64, bool) {
	if timeCreated == "" {
		return 0, false
	}
	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05.999999999Z",
		"2006-01-02T15:04:05Z",
	} {
		created, err := time.Parse(layout, timeCreated)
		if err != nil {
			continue
		}
		return now.Sub(created).Hours() / 24, true
	}
	return 0, false
}
