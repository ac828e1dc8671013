package pageinsight

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html/charset"

	"github.com/Bahjat/seo-audit/internal/platform/netguard"
)

// Response is a fetched resource. Body is decoded to UTF-8 for text content
// and capped at maxResponseBody; callers must close it.
type Response struct {
	URL         string // final URL after redirects
	StatusCode  int
	ContentType string
	Body        io.ReadCloser
}

// Fetcher defines how pages are retrieved.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Response, error)
}

// limitedReadCloser reads from a LimitReader but closes the original body.
type limitedReadCloser struct {
	io.Reader
	io.Closer
}

// HTTPClient implements Fetcher using a real HTTP client.
type HTTPClient struct {
	client    *http.Client
	userAgent string
}

const (
	maxRedirects    = 5
	maxResponseBody = 10 << 20

	// DefaultUserAgent identifies the auditor to the sites it fetches.
	DefaultUserAgent = "SEOAuditBot/1.0"
)

var (
	errTooManyRedirects = errors.New("too many redirects")
	errBlockedRedirect  = errors.New("redirect to non-http(s) scheme blocked")
)

// ClientOptions configure NewHTTPClient.
type ClientOptions struct {
	UserAgent            string
	Timeout              time.Duration
	AllowPrivateNetworks bool
}

// NewHTTPClient returns a Fetcher whose transport blocks connections to
// private and reserved IP ranges unless opts allow them, and whose redirect
// policy prevents SSRF via redirect chains.
func NewHTTPClient(opts ClientOptions) *HTTPClient {
	c := newHTTPClient(netguard.Transport(!opts.AllowPrivateNetworks, 10), opts.UserAgent)
	if opts.Timeout > 0 {
		c.client.Timeout = opts.Timeout
	}
	return c
}

func newHTTPClient(transport http.RoundTripper, userAgent string) *HTTPClient {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &HTTPClient{
		userAgent: userAgent,
		client: &http.Client{
			Timeout:       30 * time.Second,
			Transport:     transport,
			CheckRedirect: safeRedirectPolicy,
		},
	}
}

// UserAgent returns the User-Agent sent with every request.
func (c *HTTPClient) UserAgent() string {
	return c.userAgent
}

// safeRedirectPolicy validates redirect targets and limits the redirect chain length.
func safeRedirectPolicy(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("%w: stopped after %d", errTooManyRedirects, maxRedirects)
	}
	if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
		return fmt.Errorf("%w: %s", errBlockedRedirect, req.URL.Scheme)
	}
	return nil
}

// Fetch retrieves the resource at targetURL.
func (c *HTTPClient) Fetch(ctx context.Context, targetURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,*/*;q=0.8")

	resp, err := c.client.Do(req) //nolint:bodyclose // body is returned to caller via limitedReadCloser
	if err != nil {
		return nil, err
	}

	contentType := resp.Header.Get("Content-Type")
	var body io.Reader = io.LimitReader(resp.Body, maxResponseBody)
	if isText(contentType) {
		// Unknown charsets fall back to the raw bytes.
		if decoded, err := charset.NewReader(body, contentType); err == nil {
			body = decoded
		}
	}

	return &Response{
		URL:         resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Body:        &limitedReadCloser{Reader: body, Closer: resp.Body},
	}, nil
}

// isText reports whether a Content-Type header names markup or text. An
// absent header is treated as text.
func isText(contentType string) bool {
	if contentType == "" {
		return true
	}
	ct := strings.ToLower(contentType)
	return strings.HasPrefix(ct, "text/") || strings.Contains(ct, "html") || strings.Contains(ct, "xml")
}

// IsHTML reports whether a Content-Type header names an HTML document.
func IsHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	return strings.Contains(strings.ToLower(contentType), "html")
}
