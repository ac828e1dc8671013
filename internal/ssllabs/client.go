// Package ssllabs looks up TLS grades through the SSL Labs assessment API.
package ssllabs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// DefaultEndpoint is the SSL Labs API v3 analyze call.
const DefaultEndpoint = "https://api.ssllabs.com/api/v3/analyze"

const (
	statusReady = "READY"
	statusError = "ERROR"
)

var errAssessment = errors.New("ssllabs: assessment failed")

// Host is the assessment of one host.
type Host struct {
	Host          string     `json:"host"`
	Status        string     `json:"status"`
	StatusMessage string     `json:"statusMessage,omitempty"`
	Endpoints     []Endpoint `json:"endpoints"`
}

// Endpoint is one server address behind the host. Grade is empty when the
// endpoint could not be graded.
type Endpoint struct {
	IPAddress     string `json:"ipAddress"`
	Grade         string `json:"grade,omitempty"`
	StatusMessage string `json:"statusMessage,omitempty"`
}

// Grades returns the grades of every graded endpoint.
func (h *Host) Grades() []string {
	grades := []string{}
	for _, ep := range h.Endpoints {
		if ep.Grade != "" {
			grades = append(grades, ep.Grade)
		}
	}
	return grades
}

// Client polls the assessment API until a host is graded.
type Client struct {
	client       *http.Client
	endpoint     string
	pollInterval time.Duration
}

// NewClient returns a Client for the public API.
func NewClient() *Client {
	return newClient(DefaultEndpoint, &http.Client{Timeout: 30 * time.Second}, 10*time.Second)
}

func newClient(endpoint string, client *http.Client, poll time.Duration) *Client {
	return &Client{client: client, endpoint: endpoint, pollInterval: poll}
}

// Analyze starts or reuses an assessment of host and waits for it to finish.
// Only ctx bounds how long it waits.
func (c *Client) Analyze(ctx context.Context, host string) (*Host, error) {
	first := true
	for {
		h, err := c.fetch(ctx, host, first)
		if err != nil {
			return nil, err
		}
		switch h.Status {
		case statusReady:
			return h, nil
		case statusError:
			return nil, fmt.Errorf("%w: %s: %s", errAssessment, host, h.StatusMessage)
		}
		first = false

		t := time.NewTimer(c.pollInterval)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}

// Grade returns the grades of every graded endpoint of host.
func (c *Client) Grade(ctx context.Context, host string) ([]string, error) {
	h, err := c.Analyze(ctx, host)
	if err != nil {
		return nil, err
	}
	return h.Grades(), nil
}

func (c *Client) fetch(ctx context.Context, host string, first bool) (*Host, error) {
	q := url.Values{}
	q.Set("host", host)
	q.Set("publish", "off")
	q.Set("all", "done")
	if first {
		q.Set("fromCache", "on")
		q.Set("maxAge", "24")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ssllabs: request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ssllabs: unexpected status %d", resp.StatusCode)
	}

	var h Host
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return nil, fmt.Errorf("ssllabs: decode: %w", err)
	}
	return &h, nil
}
