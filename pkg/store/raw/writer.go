package raw

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/azcops/azcops/pkg/models/domain"
)

// Writer persists raw connector payloads before any mapping or filtering,
// so ingestion runs can be replayed against the original API responses.
type Writer interface {
	WriteSnapshot(ctx context.Context, rc domain.RequestContext, connector string, records []map[string]any) (string, error)
}

// Envelope wraps a snapshot payload with the metadata needed to replay it.
type Envelope struct {
	SnapshotTime   string           `json:"snapshot_time"`
	TenantID       string           `json:"tenant_id"`
	SubscriptionID string           `json:"subscription_id"`
	Connector      string           `json:"connector"`
	RecordCount    int              `json:"record_count"`
	Data           []map[string]any `json:"data"`
}

func buildEnvelope(rc domain.RequestContext, connector string, records []map[string]any, at time.Time) Envelope {
	if records == nil {
		records = []map[string]any{}
	}
	return Envelope{
		SnapshotTime:   at.UTC().Format(time.RFC3339),
		TenantID:       rc.TenantID,
		SubscriptionID: rc.SubscriptionID,
		Connector:      connector,
		RecordCount:    len(records),
		Data:           records,
	}
}

// snapshotPath is {tenant}/{connector}/{yyyy}/{mm}/{dd}/{subscription}.json.
func snapshotPath(rc domain.RequestContext, connector string, at time.Time) string {
	at = at.UTC()
	return path.Join(
		rc.TenantID,
		connector,
		fmt.Sprintf("%04d", at.Year()),
		fmt.Sprintf("%02d", at.Month()),
		fmt.Sprintf("%02d", at.Day()),
		rc.SubscriptionID+".json",
	)
}

func encodeEnvelope(env Envelope) ([]byte, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot envelope: %w", err)
	}
	return data, nil
}
