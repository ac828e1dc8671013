// Package siteprobe checks for well-known site resources.
package siteprobe

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// Prober issues existence checks against a site root.
type Prober struct {
	client    *http.Client
	userAgent string
}

// New returns a Prober using client, or a client with a 10s timeout when nil.
func New(client *http.Client, userAgent string) *Prober {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Prober{client: client, userAgent: userAgent}
}

// Sitemap reports whether /sitemap.xml exists on base's host.
func (p *Prober) Sitemap(ctx context.Context, base *url.URL) bool {
	return p.exists(ctx, resolve(base, "/sitemap.xml"))
}

// Robots reports whether /robots.txt exists on base's host.
func (p *Prober) Robots(ctx context.Context, base *url.URL) bool {
	return p.exists(ctx, resolve(base, "/robots.txt"))
}

func resolve(base *url.URL, path string) string {
	return (&url.URL{Scheme: base.Scheme, Host: base.Host, Path: path}).String()
}

// exists treats any 2xx answer to a GET as presence. Transport failures
// count as absence.
func (p *Prober) exists(ctx context.Context, target string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return false
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
