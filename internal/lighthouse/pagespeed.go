package lighthouse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultPageSpeedEndpoint is the public PageSpeed Insights v5 API.
const DefaultPageSpeedEndpoint = "https://www.googleapis.com/pagespeedonline/v5/runPagespeed"

const maxReportBody = 32 << 20

var errNoLighthouseResult = errors.New("lighthouse: pagespeed response has no lighthouseResult")

// PageSpeedClient audits pages through the PageSpeed Insights API, which runs
// Lighthouse remotely and returns its report.
type PageSpeedClient struct {
	client     *http.Client
	endpoint   string
	apiKey     string
	strategy   string
	categories []string
}

// NewPageSpeedClient returns a client for the public API. apiKey may be empty
// for low-volume use.
func NewPageSpeedClient(apiKey string, timeout time.Duration) *PageSpeedClient {
	return newPageSpeedClient(DefaultPageSpeedEndpoint, apiKey, &http.Client{Timeout: timeout})
}

func newPageSpeedClient(endpoint, apiKey string, client *http.Client) *PageSpeedClient {
	return &PageSpeedClient{
		client:     client,
		endpoint:   endpoint,
		apiKey:     apiKey,
		strategy:   "mobile",
		categories: []string{"PERFORMANCE", "ACCESSIBILITY", "BEST_PRACTICES", "SEO"},
	}
}

type pageSpeedResponse struct {
	LighthouseResult json.RawMessage `json:"lighthouseResult"`
	Error            *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Audit requests a fresh report for targetURL.
func (c *PageSpeedClient) Audit(ctx context.Context, targetURL string) (*Result, error) {
	q := url.Values{}
	q.Set("url", targetURL)
	q.Set("strategy", c.strategy)
	for _, cat := range c.categories {
		q.Add("category", cat)
	}
	if c.apiKey != "" {
		q.Set("key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lighthouse: pagespeed request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReportBody))
	if err != nil {
		return nil, fmt.Errorf("lighthouse: read pagespeed response: %w", err)
	}

	var payload pageSpeedResponse
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("lighthouse: decode pagespeed response (status %d): %w", resp.StatusCode, err)
	}
	if payload.Error != nil {
		return nil, fmt.Errorf("lighthouse: pagespeed error %d: %s", payload.Error.Code, payload.Error.Message)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("lighthouse: pagespeed returned status %d", resp.StatusCode)
	}
	if len(payload.LighthouseResult) == 0 {
		return nil, errNoLighthouseResult
	}

	return Decode(payload.LighthouseResult)
}
