package resourcegraph

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/azcops/azcops/pkg/models/domain"
)

// MapResource converts one Resource Graph row into a normalized Resource.
// The API may return tags and properties either as nested objects or as
// JSON-encoded strings; both are coerced to maps here so the ambiguity never
// travels downstream.
func MapResource(row map[string]any, tenantID, subscriptionDBID string) domain.Resource {
	return domain.Resource{
		TenantID:         tenantID,
		SubscriptionDBID: subscriptionDBID,
		ResourceID:       stringField(row, "id"),
		Name:             stringField(row, "name"),
		Type:             strings.ToLower(stringField(row, "type")),
		ResourceGroup:    strings.ToLower(stringField(row, "resourceGroup")),
		Location:         strings.ToLower(stringField(row, "location")),
		Tags:             coerceTags(row["tags"]),
		Properties:       coerceProperties(row["properties"]),
		LastSeen:         time.Now().UTC(),
	}
}

func MapResources(rows []map[string]any, tenantID, subscriptionDBID string) []domain.Resource {
	out := make([]domain.Resource, 0, len(rows))
	for _, row := range rows {
		out = append(out, MapResource(row, tenantID, subscriptionDBID))
	}
	return out
}

func stringField(row map[string]any, key string) string {
	s, _ := row[key].(string)
	return s
}

func coerceTags(v any) map[string]string {
	raw := coerceProperties(v)
	tags := make(map[string]string, len(raw))
	for k, val := range raw {
		if val == nil {
			tags[k] = ""
			continue
		}
		if s, ok := val.(string); ok {
			tags[k] = s
			continue
		}
		tags[k] = fmt.Sprint(val)
	}
	return tags
}

func coerceProperties(v any) map[string]any {
	switch val := v.(type) {
	case map[string]any:
		return val
	case string:
		decoded := map[string]any{}
		if err := json.Unmarshal([]byte(val), &decoded); err != nil {
			return map[string]any{}
		}
		return decoded
	default:
		return map[string]any{}
	}
}
