package pageinsight

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html"

	"github.com/Bahjat/seo-audit/internal/model"
	"github.com/Bahjat/seo-audit/internal/platform/netguard"
)

const maxLinks = 1000

// Link is a URL referenced by a page, tagged with the element it came from.
type Link struct {
	URL      string
	Tag      string
	Internal bool
}

// LinkChecker validates link accessibility using a reusable HTTP client.
type LinkChecker struct {
	client      *http.Client
	userAgent   string
	concurrency int
}

// NewLinkChecker returns a LinkChecker with a 5s timeout that does not follow
// redirects. Unless allowPrivate is set it blocks connections to private and
// reserved IP ranges. concurrency sizes the worker pool.
func NewLinkChecker(concurrency int, userAgent string, allowPrivate bool) *LinkChecker {
	return newLinkChecker(concurrency, netguard.Transport(!allowPrivate, concurrency), userAgent)
}

func newLinkChecker(concurrency int, transport http.RoundTripper, userAgent string) *LinkChecker {
	return &LinkChecker{
		concurrency: max(concurrency, 1),
		userAgent:   userAgent,
		client: &http.Client{
			Timeout:   5 * time.Second,
			Transport: transport,
			CheckRedirect: func(_ *http.Request, _ []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

type linkStatus struct {
	broken bool
	code   int
	reason string
}

// Scan extracts every anchor, image and picture source of body, checks each
// distinct URL once and calls emit for every occurrence in document order.
// emit is only ever called from the calling goroutine.
func (lc *LinkChecker) Scan(ctx context.Context, pageURL string, body []byte, emit func(model.LinkResult)) error {
	base, err := url.Parse(pageURL)
	if err != nil {
		return fmt.Errorf("link check: parse page url: %w", err)
	}

	links, err := ExtractLinks(bytes.NewReader(body), base)
	if err != nil {
		return fmt.Errorf("link check: tokenize %s: %w", pageURL, err)
	}

	seen := make(map[string]struct{}, len(links))
	unique := make([]string, 0, len(links))
	for _, l := range links {
		if _, ok := seen[l.URL]; ok {
			continue
		}
		seen[l.URL] = struct{}{}
		unique = append(unique, l.URL)
	}

	statuses := lc.checkLinks(ctx, unique)
	for _, l := range links {
		st, ok := statuses[l.URL]
		if !ok {
			continue
		}
		emit(model.LinkResult{
			URL:        l.URL,
			Tag:        l.Tag,
			Internal:   l.Internal,
			Broken:     st.broken,
			StatusCode: st.code,
			Reason:     st.reason,
		})
	}
	return nil
}

// checkLinks validates a list of distinct URLs concurrently using a pool of
// worker goroutines. At most maxLinks URLs are checked.
func (lc *LinkChecker) checkLinks(ctx context.Context, links []string) map[string]linkStatus {
	limit := min(len(links), maxLinks)
	links = links[:limit]

	statuses := make(map[string]linkStatus, limit)
	if limit == 0 {
		return statuses
	}

	type checked struct {
		link   string
		status linkStatus
	}

	jobs := make(chan string, limit)
	results := make(chan checked, limit)

	var wg sync.WaitGroup
	for range min(limit, lc.concurrency) {
		wg.Go(func() {
			for link := range jobs {
				results <- checked{link: link, status: lc.checkLink(ctx, link)}
			}
		})
	}

	for _, link := range links {
		jobs <- link
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	for r := range results {
		statuses[r.link] = r.status
	}
	return statuses
}

// checkLink probes link with HEAD and retries with GET when the server
// rejects the method. Cancellation is never reported as broken.
func (lc *LinkChecker) checkLink(ctx context.Context, link string) linkStatus {
	st, err := lc.probe(ctx, http.MethodHead, link)
	if err == nil {
		switch st.code {
		case http.StatusForbidden, http.StatusMethodNotAllowed, http.StatusNotImplemented:
			st, err = lc.probe(ctx, http.MethodGet, link)
		}
	}
	if err != nil {
		if ctx.Err() != nil {
			return linkStatus{reason: ctx.Err().Error()}
		}
		return linkStatus{broken: true, reason: err.Error()}
	}
	return st
}

func (lc *LinkChecker) probe(ctx context.Context, method, link string) (linkStatus, error) {
	req, err := http.NewRequestWithContext(ctx, method, link, nil)
	if err != nil {
		return linkStatus{}, err
	}
	if lc.userAgent != "" {
		req.Header.Set("User-Agent", lc.userAgent)
	}

	resp, err := lc.client.Do(req)
	if err != nil {
		return linkStatus{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	st := linkStatus{code: resp.StatusCode}
	if resp.StatusCode >= 400 {
		st.broken = true
		st.reason = http.StatusText(resp.StatusCode)
	}
	return st, nil
}

// ExtractLinks tokenizes body and returns the http(s) URLs referenced by
// a[href], img[src], source[src] and source[srcset], resolved against base.
func ExtractLinks(body io.Reader, base *url.URL) ([]Link, error) {
	var links []Link
	z := html.NewTokenizer(body)

	for {
		switch z.Next() {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return links, nil
			}
			return nil, z.Err()

		case html.StartTagToken, html.SelfClosingTagToken:
			tn, hasAttr := z.TagName()
			if !hasAttr {
				continue
			}
			tag := string(tn)
			attrs := readAttrs(z)

			var refs []string
			switch tag {
			case "a":
				refs = []string{attrs["href"]}
			case "img":
				refs = []string{attrs["src"]}
			case "source":
				refs = append([]string{attrs["src"]}, srcsetURLs(attrs["srcset"])...)
			default:
				continue
			}

			for _, ref := range refs {
				if link, ok := classifyLink(ref, tag, base); ok {
					links = append(links, link)
				}
			}
		}
	}
}

func readAttrs(z *html.Tokenizer) map[string]string {
	attrs := map[string]string{}
	for {
		key, val, more := z.TagAttr()
		attrs[string(key)] = string(val)
		if !more {
			return attrs
		}
	}
}

// srcsetURLs returns the URL of every candidate in a srcset attribute.
func srcsetURLs(srcset string) []string {
	var urls []string
	for _, candidate := range strings.Split(srcset, ",") {
		if fields := strings.Fields(candidate); len(fields) > 0 {
			urls = append(urls, fields[0])
		}
	}
	return urls
}

func classifyLink(ref, tag string, base *url.URL) (Link, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "#") {
		return Link{}, false
	}

	parsed, err := url.Parse(ref)
	if err != nil {
		return Link{}, false
	}

	resolved := base.ResolveReference(parsed)

	// Skip mailto:, javascript:, tel:, data: and the like.
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return Link{}, false
	}
	resolved.Fragment = ""

	return Link{
		URL:      resolved.String(),
		Tag:      tag,
		Internal: strings.EqualFold(resolved.Host, base.Host),
	}, true
}
