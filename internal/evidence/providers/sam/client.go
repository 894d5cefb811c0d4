// Package sam implements the live exclusion and registration providers
// backed by the SAM.gov Exclusions and Entity Information APIs.
package sam

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"gonogo/internal/evidence/providers"
)

const maxResponseBytes = 4 << 20

// Config configures the SAM HTTP client.
type Config struct {
	EntityURL     string
	ExclusionsURL string
	APIKey        string
	Timeout       time.Duration
	MaxRetries    int
}

// client performs GETs against one SAM endpoint with retries on 5xx and 429.
type client struct {
	providerID string
	baseURL    string
	apiKey     string
	http       *retryablehttp.Client
	now        func() time.Time
}

func newClient(providerID, baseURL, apiKey string, cfg Config, logger *slog.Logger) *client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.MaxRetries
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.HTTPClient.Timeout = cfg.Timeout
	// Return the final response instead of a generic "giving up" error so the
	// status can be classified.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if logger != nil {
		rc.Logger = logger.With("provider", providerID)
	} else {
		rc.Logger = nil
	}

	return &client{
		providerID: providerID,
		baseURL:    baseURL,
		apiKey:     apiKey,
		http:       rc,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// response is a fully read provider response.
type response struct {
	Status    int
	Body      []byte
	Reference string
	FetchedAt time.Time
}

// get issues the request and reads the body. Non-2xx statuses other than 404
// are returned as classified provider errors.
func (c *client) get(ctx context.Context, params url.Values) (*response, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, providers.NewProviderError(providers.ErrorInternal, c.providerID, "invalid base URL", err)
	}
	reference := *u
	reference.RawQuery = params.Encode()

	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}
	u.RawQuery = params.Encode()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, providers.NewProviderError(providers.ErrorInternal, c.providerID, "build request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, providers.FromTransport(c.providerID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, providers.FromTransport(c.providerID, fmt.Errorf("read body: %w", err))
	}

	out := &response{
		Status:    resp.StatusCode,
		Body:      body,
		Reference: reference.String(),
		FetchedAt: c.now(),
	}
	if resp.StatusCode == http.StatusNotFound || (resp.StatusCode >= 200 && resp.StatusCode < 300) {
		return out, nil
	}
	return nil, providers.FromStatus(c.providerID, resp.StatusCode)
}
