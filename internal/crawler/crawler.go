// Package crawler discovers and downloads the pages of a site.
package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/Bahjat/seo-audit/internal/model"
	"github.com/Bahjat/seo-audit/internal/pageinsight"
)

var errInvalidExclude = errors.New("crawler: invalid exclude pattern")

// Options bound a crawl.
type Options struct {
	MaxDepth            int // 1 fetches only the seed; 0 or less is unlimited
	MaxPages            int // 0 is unlimited
	MaxConcurrency      int
	RequestsPerSecond   float64 // 0 is unlimited
	RespectRobotsTxt    bool
	DownloadUnsupported bool
	ExcludeFileTypes    []string
	ExcludeURLs         []string // regular expressions matched against the full URL
	UserAgent           string
}

// Crawler walks a site breadth first, one depth level at a time.
type Crawler struct {
	fetcher    pageinsight.Fetcher
	opts       Options
	logger     *slog.Logger
	limiter    *rate.Limiter
	excludeExt map[string]struct{}
	excludeURL []*regexp.Regexp

	mu   sync.Mutex
	runs map[*run]struct{}
}

// run is the state of one Crawl or FetchList call. A Crawler serves
// overlapping calls, each with its own run.
type run struct {
	stopped atomic.Bool
	cancel  context.CancelFunc
}

// New returns a Crawler. It fails when an exclude pattern does not compile.
func New(fetcher pageinsight.Fetcher, opts Options, logger *slog.Logger) (*Crawler, error) {
	if opts.MaxConcurrency < 1 {
		opts.MaxConcurrency = 1
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	c := &Crawler{
		fetcher:    fetcher,
		opts:       opts,
		logger:     logger,
		limiter:    rate.NewLimiter(limit, 1),
		excludeExt: make(map[string]struct{}, len(opts.ExcludeFileTypes)),
		runs:       make(map[*run]struct{}),
	}
	for _, ext := range opts.ExcludeFileTypes {
		c.excludeExt["."+strings.ToLower(strings.TrimPrefix(ext, "."))] = struct{}{}
	}
	for _, pattern := range opts.ExcludeURLs {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %w", errInvalidExclude, pattern, err)
		}
		c.excludeURL = append(c.excludeURL, re)
	}
	return c, nil
}

// Stop ends every crawl running on c. No new fetch starts after Stop. Fetches
// already in flight are cancelled instead of being left to finish, so pages
// they would have produced are lost; Crawl and FetchList return the pages
// collected before Stop. Calls started after Stop run normally.
func (c *Crawler) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for r := range c.runs {
		r.stopped.Store(true)
		r.cancel()
	}
}

func (c *Crawler) start(ctx context.Context) (context.Context, *run) {
	ctx, cancel := context.WithCancel(ctx)
	r := &run{cancel: cancel}
	c.mu.Lock()
	c.runs[r] = struct{}{}
	c.mu.Unlock()
	return ctx, r
}

func (c *Crawler) finish(r *run) {
	c.mu.Lock()
	delete(c.runs, r)
	c.mu.Unlock()
	r.cancel()
}

// queued is a URL waiting to be fetched. index fixes its position in the
// result so output follows discovery order.
type queued struct {
	url   *url.URL
	index int
}

// Crawl fetches seed and follows same-host links under the seed's path until
// a limit is reached. The seed is always the first page returned.
func (c *Crawler) Crawl(ctx context.Context, seed *url.URL, onEvent model.EventHandler) ([]model.FetchedPage, error) {
	parent := ctx
	ctx, r := c.start(ctx)
	defer c.finish(r)

	emit := serialize(onEvent)
	col := newCollector(c.opts.MaxPages, &r.stopped)
	within := newScope(seed)

	var robots *robotsRules
	if c.opts.RespectRobotsTxt {
		robots = c.fetchRobots(ctx, seed)
	}

	seen := map[string]struct{}{key(seed): {}}
	level := []queued{{url: seed, index: 0}}
	next := 1

	for depth := 1; len(level) > 0; depth++ {
		follow := c.opts.MaxDepth <= 0 || depth < c.opts.MaxDepth

		var (
			mu         sync.Mutex
			discovered = map[int][]*url.URL{}
		)
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(c.opts.MaxConcurrency)
		for _, q := range level {
			if col.full() || r.stopped.Load() {
				break
			}
			g.Go(func() error {
				links := c.visit(gctx, r, q, col, emit, follow)
				mu.Lock()
				discovered[q.index] = links
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()

		if err := parent.Err(); err != nil {
			return nil, err
		}
		if col.full() || r.stopped.Load() || !follow {
			break
		}

		// Queue children in the order their parents were discovered.
		parents := make([]int, 0, len(discovered))
		for idx := range discovered {
			parents = append(parents, idx)
		}
		slices.Sort(parents)

		level = nil
		for _, idx := range parents {
			for _, u := range discovered[idx] {
				k := key(u)
				if _, dup := seen[k]; dup {
					continue
				}
				seen[k] = struct{}{}
				if !c.allowed(u, within, robots) {
					continue
				}
				level = append(level, queued{url: u, index: next})
				next++
			}
		}
	}

	return col.pages(), nil
}

// FetchList fetches exactly the given URLs without following links. Pages
// come back in input order.
func (c *Crawler) FetchList(ctx context.Context, urls []*url.URL, onEvent model.EventHandler) ([]model.FetchedPage, error) {
	parent := ctx
	ctx, r := c.start(ctx)
	defer c.finish(r)

	emit := serialize(onEvent)
	col := newCollector(0, &r.stopped)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.MaxConcurrency)
	for i, u := range urls {
		g.Go(func() error {
			c.visit(gctx, r, queued{url: u, index: i}, col, emit, false)
			return nil
		})
	}
	_ = g.Wait()

	if err := parent.Err(); err != nil {
		return nil, err
	}
	return col.pages(), nil
}

// visit fetches one URL, records it when it is an indexable page and, when
// follow is set, returns the links it points to.
func (c *Crawler) visit(ctx context.Context, r *run, q queued, col *collector, emit model.EventHandler, follow bool) []*url.URL {
	target := q.url.String()
	if r.stopped.Load() {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil
	}

	resp, err := c.fetcher.Fetch(ctx, target)
	if err != nil {
		if ctx.Err() == nil {
			c.logger.Debug("fetch failed", "url", target, "error", err)
			emit(model.Event{Kind: model.EventError, URL: target, Message: err.Error()})
		}
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		emit(model.Event{Kind: model.EventError, URL: target, Code: resp.StatusCode, Message: statusMessage(resp.StatusCode)})
		return nil
	}

	if !pageinsight.IsHTML(resp.ContentType) && !c.opts.DownloadUnsupported {
		emit(model.Event{Kind: model.EventIgnore, URL: target, Message: "unsupported content type " + resp.ContentType})
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() == nil {
			emit(model.Event{Kind: model.EventError, URL: target, Message: err.Error()})
		}
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		emit(model.Event{Kind: model.EventError, URL: target, Message: err.Error()})
		return nil
	}

	noindex, nofollow := robotsMeta(doc)
	if noindex {
		emit(model.Event{Kind: model.EventIgnore, URL: target, Message: "noindex"})
	} else if col.add(q.index, model.FetchedPage{URL: target, Body: body}) {
		emit(model.Event{Kind: model.EventAdd, URL: target})
	}

	if !follow || nofollow {
		return nil
	}
	base := q.url
	if final, err := url.Parse(resp.URL); err == nil && resp.URL != "" {
		base = final
	}
	return pageLinks(doc, base)
}

func (c *Crawler) fetchRobots(ctx context.Context, seed *url.URL) *robotsRules {
	target := (&url.URL{Scheme: seed.Scheme, Host: seed.Host, Path: "/robots.txt"}).String()
	resp, err := c.fetcher.Fetch(ctx, target)
	if err != nil {
		c.logger.Debug("robots.txt unavailable", "url", target, "error", err)
		return nil
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Debug("robots.txt unreadable", "url", target, "error", err)
		return nil
	}
	rules, err := parseRobots(body, c.opts.UserAgent)
	if err != nil {
		c.logger.Debug("robots.txt unparsable", "url", target, "error", err)
		return nil
	}
	return rules
}

// allowed applies the crawl scope, the exclusions and robots.txt to u.
// Robots rules see the path and query.
func (c *Crawler) allowed(u *url.URL, s scope, robots *robotsRules) bool {
	if !s.contains(u) {
		return false
	}
	if _, skip := c.excludeExt[strings.ToLower(path.Ext(u.Path))]; skip {
		return false
	}
	raw := u.String()
	for _, re := range c.excludeURL {
		if re.MatchString(raw) {
			return false
		}
	}
	return robots == nil || robots.allowed(u.RequestURI())
}

// scope is the host and path prefix a crawl stays within.
type scope struct {
	host   string
	prefix string
}

func newScope(seed *url.URL) scope {
	dir := seed.Path
	if i := strings.LastIndexByte(dir, '/'); i >= 0 {
		dir = dir[:i+1]
	} else {
		dir = "/"
	}
	return scope{host: strings.ToLower(seed.Host), prefix: dir}
}

func (s scope) contains(u *url.URL) bool {
	if !strings.EqualFold(u.Host, s.host) {
		return false
	}
	p := u.Path
	if p == "" {
		p = "/"
	}
	return strings.HasPrefix(p, s.prefix)
}

// pageLinks returns the http(s) targets of every anchor, without fragments.
func pageLinks(doc *goquery.Document, base *url.URL) []*url.URL {
	var links []*url.URL
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		if rel := strings.ToLower(a.AttrOr("rel", "")); strings.Contains(rel, "nofollow") {
			return
		}
		ref, err := url.Parse(strings.TrimSpace(a.AttrOr("href", "")))
		if err != nil {
			return
		}
		u := base.ResolveReference(ref)
		if u.Scheme != "http" && u.Scheme != "https" {
			return
		}
		u.Fragment = ""
		u.RawFragment = ""
		links = append(links, u)
	})
	return links
}

// robotsMeta reads the robots meta directives of a page.
func robotsMeta(doc *goquery.Document) (noindex, nofollow bool) {
	doc.Find("meta[name]").Each(func(_ int, m *goquery.Selection) {
		if !strings.EqualFold(m.AttrOr("name", ""), "robots") {
			return
		}
		content := strings.ToLower(m.AttrOr("content", ""))
		if strings.Contains(content, "noindex") || strings.Contains(content, "none") {
			noindex = true
		}
		if strings.Contains(content, "nofollow") || strings.Contains(content, "none") {
			nofollow = true
		}
	})
	return noindex, nofollow
}

func statusMessage(code int) string {
	switch code {
	case http.StatusNotFound:
		return "page not found"
	case http.StatusRequestTimeout:
		return "request timed out"
	case http.StatusGone:
		return "page is gone"
	default:
		if text := http.StatusText(code); text != "" {
			return strings.ToLower(text)
		}
		return fmt.Sprintf("status %d", code)
	}
}

// key normalizes a URL for the visited set.
func key(u *url.URL) string {
	k := *u
	k.Fragment = ""
	k.RawFragment = ""
	k.Host = strings.ToLower(k.Host)
	if k.Path == "" {
		k.Path = "/"
	}
	return k.String()
}

// serialize wraps onEvent so it is never called concurrently.
func serialize(onEvent model.EventHandler) model.EventHandler {
	if onEvent == nil {
		return func(model.Event) {}
	}
	var mu sync.Mutex
	return func(ev model.Event) {
		mu.Lock()
		defer mu.Unlock()
		onEvent(ev)
	}
}
