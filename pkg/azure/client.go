package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/azcops/azcops/pkg/models/domain"
	"github.com/rs/zerolog"
)

const (
	// ManagementScope is the default token audience for ARM endpoints.
	ManagementScope = "https://management.azure.com/.default"

	maxRetries         = 5
	backoffMin         = 1 * time.Second
	backoffMax         = 60 * time.Second
	defaultRetryAfter  = 30 * time.Second
	requestTimeout     = 60 * time.Second
	tokenRefreshWindow = 60 * time.Second
)

func isRetriable(status int) bool {
	switch status {
	case http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// backoffFor returns the exponential delay before retrying attempt n (1-based).
func backoffFor(attempt int) time.Duration {
	d := backoffMin << (attempt - 1)
	if d > backoffMax {
		return backoffMax
	}
	return d
}

// Client issues authenticated requests against Azure management APIs.
// It owns the bearer-token cache and the retry/throttle policy; one instance
// is safe for concurrent use by the callers within a connector.
type Client struct {
	cred  azcore.TokenCredential
	scope string
	http  *http.Client
	sleep func(context.Context, time.Duration) error
	now   func() time.Time

	mu        sync.Mutex
	token     string
	expiresOn time.Time
}

// ClientOptions override defaults, primarily for tests.
type ClientOptions struct {
	Scope      string
	HTTPClient *http.Client
	Sleep      func(context.Context, time.Duration) error
}

func NewClient(cred azcore.TokenCredential) *Client {
	return NewClientWithOptions(cred, ClientOptions{})
}

func NewClientWithOptions(cred azcore.TokenCredential, opts ClientOptions) *Client {
	c := &Client{
		cred:  cred,
		scope: ManagementScope,
		http:  &http.Client{Timeout: requestTimeout},
		sleep: sleepContext,
		now:   time.Now,
	}
	if opts.Scope != "" {
		c.scope = opts.Scope
	}
	if opts.HTTPClient != nil {
		c.http = opts.HTTPClient
	}
	if opts.Sleep != nil {
		c.sleep = opts.Sleep
	}
	return c
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// getToken returns a cached bearer token, refreshing when fewer than 60s
// remain before expiry. A request never goes out with an expired token.
func (c *Client) getToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.expiresOn.Add(-tokenRefreshWindow)) {
		return c.token, nil
	}

	tok, err := c.cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{c.scope}})
	if err != nil {
		return "", fmt.Errorf("acquire token: %w", err)
	}
	c.token = tok.Token
	c.expiresOn = tok.ExpiresOn
	return c.token, nil
}

// Request performs one authenticated call with retry and throttle handling
// and returns the decoded JSON body.
func (c *Client) Request(
	ctx context.Context,
	method string,
	rawURL string,
	rc domain.RequestContext,
	body any,
	query url.Values,
) (map[string]any, error) {
	logger := zerolog.Ctx(ctx)

	token, err := c.getToken(ctx)
	if err != nil {
		return nil, err
	}

	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
	}

	target := rawURL
	if len(query) > 0 {
		sep := "?"
		if u, perr := url.Parse(rawURL); perr == nil && u.RawQuery != "" {
			sep = "&"
		}
		target = rawURL + sep + query.Encode()
	}

	start := c.now()
	for attempt := 1; attempt <= maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")
		if rc.CorrelationID != "" {
			req.Header.Set("x-ms-correlation-request-id", rc.CorrelationID)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			backoff := backoffFor(attempt)
			logger.Warn().
				Err(err).
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Str("url", rawURL).
				Str("tenant_id", rc.TenantID).
				Msg("provider network error")
			if attempt < maxRetries {
				if serr := c.sleep(ctx, backoff); serr != nil {
					return nil, serr
				}
				continue
			}
			return nil, &ConnectorError{Attempts: maxRetries, Err: err}
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("read response body: %w", readErr)
		}
		durationMS := float64(c.now().Sub(start)) / float64(time.Millisecond)

		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
			logger.Warn().
				Str("url", rawURL).
				Int("attempt", attempt).
				Dur("retry_after", retryAfter).
				Str("tenant_id", rc.TenantID).
				Str("subscription_id", rc.SubscriptionID).
				Str("operation", rc.Operation).
				Msg("provider throttled")
			if attempt < maxRetries {
				if serr := c.sleep(ctx, retryAfter); serr != nil {
					return nil, serr
				}
				// The throttle window may outlive the token.
				token, err = c.getToken(ctx)
				if err != nil {
					return nil, err
				}
				continue
			}
			return nil, &ThrottleError{RetryAfter: retryAfter}
		}

		if isRetriable(resp.StatusCode) {
			backoff := backoffFor(attempt)
			logger.Warn().
				Int("status", resp.StatusCode).
				Str("url", rawURL).
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Str("tenant_id", rc.TenantID).
				Msg("provider transient error")
			if attempt < maxRetries {
				if serr := c.sleep(ctx, backoff); serr != nil {
					return nil, serr
				}
				continue
			}
			return nil, &HTTPError{StatusCode: resp.StatusCode, Method: method, URL: rawURL, Body: string(respBody)}
		}

		if resp.StatusCode >= 400 {
			return nil, &HTTPError{StatusCode: resp.StatusCode, Method: method, URL: rawURL, Body: string(respBody)}
		}

		logger.Info().
			Str("method", method).
			Str("url", rawURL).
			Int("status", resp.StatusCode).
			Float64("duration_ms", durationMS).
			Int("attempt", attempt).
			Str("tenant_id", rc.TenantID).
			Str("subscription_id", rc.SubscriptionID).
			Str("operation", rc.Operation).
			Msg("provider request")

		decoded := map[string]any{}
		if len(respBody) > 0 {
			if err := json.Unmarshal(respBody, &decoded); err != nil {
				return nil, fmt.Errorf("decode response body: %w", err)
			}
		}
		return decoded, nil
	}

	return nil, &ConnectorError{Attempts: maxRetries, Err: fmt.Errorf("exhausted retries for %s", rawURL)}
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return defaultRetryAfter
	}
	secs, err := strconv.Atoi(header)
	if err != nil || secs < 0 {
		return defaultRetryAfter
	}
	return time.Duration(secs) * time.Second
}

// PageOptions configure where Paginate finds items and the continuation link.
type PageOptions struct {
	ValueKey    string // default "value"
	NextLinkKey string // default "nextLink"
}

// Paginate follows the continuation link until absent and returns the
// concatenated items. Continuation URLs are self-contained, so the original
// body and query are dropped after the first page.
func (c *Client) Paginate(
	ctx context.Context,
	method string,
	rawURL string,
	rc domain.RequestContext,
	body any,
	query url.Values,
	opts PageOptions,
) ([]any, error) {
	logger := zerolog.Ctx(ctx)

	valueKey := opts.ValueKey
	if valueKey == "" {
		valueKey = "value"
	}
	nextLinkKey := opts.NextLinkKey
	if nextLinkKey == "" {
		nextLinkKey = "nextLink"
	}

	var results []any
	current := rawURL
	currentBody := body
	currentQuery := query
	page := 0

	for current != "" {
		page++
		data, err := c.Request(ctx, method, current, rc, currentBody, currentQuery)
		if err != nil {
			return nil, err
		}

		items, _ := data[valueKey].([]any)
		results = append(results, items...)

		logger.Debug().
			Int("page", page).
			Int("items_on_page", len(items)).
			Int("total_so_far", len(results)).
			Str("operation", rc.Operation).
			Str("tenant_id", rc.TenantID).
			Msg("provider page")

		current, _ = data[nextLinkKey].(string)
		currentBody = nil
		currentQuery = nil
	}

	return results, nil
}
