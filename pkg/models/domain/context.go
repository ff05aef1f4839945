package domain

// RequestContext carries tenant/subscription identity and a correlation id
// through every connector call so that any log line can be traced back to
// a single logical operation.
type RequestContext struct {
	TenantID       string
	SubscriptionID string
	CorrelationID  string
	Operation      string
	VMResourceIDs  []string
	Extra          map[string]any
}

// WithOperation returns a copy with the operation name set. Connectors stamp
// their own operation before issuing requests; the original context is not
// mutated.
func (rc RequestContext) WithOperation(name string) RequestContext {
	rc.Operation = name
	return rc
}

func (rc RequestContext) WithVMResourceIDs(ids []string) RequestContext {
	rc.VMResourceIDs = ids
	return rc
}
