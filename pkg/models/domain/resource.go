package domain

import "time"

// Resource is a normalized inventory record for a single cloud object.
// Tags and Properties are always non-nil maps; the connectors coerce the
// provider's JSON-in-a-string encoding at the boundary.
type Resource struct {
	TenantID         string
	SubscriptionDBID string
	ResourceID       string
	Name             string
	Type             string // lower-cased, e.g. "microsoft.compute/disks"
	ResourceGroup    string // lower-cased
	Location         string // lower-cased
	Tags             map[string]string
	Properties       map[string]any
	LastSeen         time.Time
}

type Subscription struct {
	ID             string // internal id
	TenantID       string
	SubscriptionID string // provider GUID
	DisplayName    string
	IsActive       bool
}

type Tenant struct {
	ID            string
	AzureTenantID string
	Name          string
	IsActive      bool
}
