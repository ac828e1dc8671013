package pageinsight

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Bahjat/seo-audit/internal/lighthouse"
	"github.com/Bahjat/seo-audit/internal/model"
	"github.com/Bahjat/seo-audit/internal/platform/errs"
	"github.com/Bahjat/seo-audit/internal/scoring"
)

// PageSource produces the pages of an audit.
type PageSource interface {
	Crawl(ctx context.Context, seed *url.URL, onEvent model.EventHandler) ([]model.FetchedPage, error)
	FetchList(ctx context.Context, urls []*url.URL, onEvent model.EventHandler) ([]model.FetchedPage, error)
}

// BrowserAuditor runs the browser audit of a page.
type BrowserAuditor interface {
	Run(ctx context.Context, targetURL string) (*lighthouse.Result, error)
}

// LinkScanner checks the links and images of a page body.
type LinkScanner interface {
	Scan(ctx context.Context, pageURL string, body []byte, emit func(model.LinkResult)) error
}

// SSLGrader returns the TLS grade of every endpoint of a host.
type SSLGrader interface {
	Grade(ctx context.Context, host string) ([]string, error)
}

// SiteProber checks for well-known site resources.
type SiteProber interface {
	Sitemap(ctx context.Context, base *url.URL) bool
	Robots(ctx context.Context, base *url.URL) bool
}

// Collaborators are the external services an Engine calls. A nil
// collaborator disables the checks it serves.
type Collaborators struct {
	Pages   PageSource
	Auditor BrowserAuditor
	Links   LinkScanner
	SSL     SSLGrader
	Probe   SiteProber
}

// Options select which checks run and how much runs at once.
type Options struct {
	IgnoreSSLTest              bool
	IgnoreRobotsTest           bool
	IgnoreSitemapTest          bool
	IgnoreInternalPagesIssues  bool
	IgnoreBrowserAudit         bool
	IgnoreBrokenLinksTest      bool
	IgnoreDuplicateContentTest bool

	MaxConcurrency      int
	SimilarityThreshold float64
	SSLTimeout          time.Duration // bounds the SSL grade lookup; 0 selects DefaultSSLTimeout
}

// DefaultSSLTimeout bounds an SSL grade lookup, which polls until the remote
// assessment finishes.
const DefaultSSLTimeout = 5 * time.Minute

// Engine turns fetched pages into graded page and summary reports.
type Engine struct {
	collab Collaborators
	opts   Options
	logger *slog.Logger
	now    func() time.Time
}

// NewEngine returns an Engine backed by the given collaborators.
func NewEngine(collab Collaborators, opts Options, logger *slog.Logger) *Engine {
	if opts.MaxConcurrency < 1 {
		opts.MaxConcurrency = 1
	}
	if opts.SimilarityThreshold <= 0 {
		opts.SimilarityThreshold = scoring.DefaultSimilarityThreshold
	}
	if opts.SSLTimeout <= 0 {
		opts.SSLTimeout = DefaultSSLTimeout
	}
	return &Engine{collab: collab, opts: opts, logger: logger, now: time.Now}
}

// Audit fetches the given URLs and composes the summary report. A single
// URL is crawled from; several URLs are analyzed exactly as given. Invalid
// URLs are reported through onEvent and skipped. onEvent may be nil.
func (e *Engine) Audit(ctx context.Context, rawURLs []string, onEvent model.EventHandler) (*model.SummaryReport, error) {
	if onEvent == nil {
		onEvent = func(model.Event) {}
	}
	if e.collab.Pages == nil {
		return nil, &errs.AppError{Kind: errs.Unknown, Message: "No page source configured."}
	}

	targets, err := parseTargets(rawURLs, onEvent)
	if err != nil {
		return nil, err
	}

	var pages []model.FetchedPage
	if len(targets) == 1 {
		pages, err = e.collab.Pages.Crawl(ctx, targets[0], onEvent)
	} else {
		pages, err = e.collab.Pages.FetchList(ctx, targets, onEvent)
	}
	if err != nil {
		return nil, &errs.AppError{
			Kind:    errs.Unreachable,
			Message: "The provided URL could not be crawled.",
			Cause:   err,
		}
	}
	if len(pages) == 0 {
		return nil, &errs.AppError{
			Kind:    errs.Unreachable,
			Message: "None of the provided URLs returned a page that could be audited.",
		}
	}

	report, err := e.compose(ctx, pages, targets[0])
	if err != nil {
		return nil, err
	}
	report.URL = targets[0].String()

	onEvent(model.Event{Kind: model.EventDone, URL: report.URL, Report: report})
	return report, nil
}

// AnalyzePages composes a summary report from already fetched pages. The
// first page is the seed. Site-level checks are not run.
func (e *Engine) AnalyzePages(ctx context.Context, pages []model.FetchedPage) (*model.SummaryReport, error) {
	report, err := e.compose(ctx, pages, nil)
	if err != nil {
		return nil, err
	}
	if len(pages) > 0 {
		report.URL = pages[0].URL
	}
	return report, nil
}

// AnalyzePage composes and scores a single page report.
func (e *Engine) AnalyzePage(ctx context.Context, page model.FetchedPage) (*model.PageReport, error) {
	run := newPageRun(page)
	if err := e.analyzePage(ctx, run, true); err != nil {
		return nil, pageError(page.URL, err)
	}
	scoring.ApplyImpact(&run.report.Issues)
	if err := run.advance(StateScored); err != nil {
		return nil, pageError(page.URL, err)
	}
	return &run.report, nil
}

// compose analyzes every page, runs the site checks when site is set, then
// the duplicate passes, and finally scores pages and summary.
func (e *Engine) compose(ctx context.Context, pages []model.FetchedPage, site *url.URL) (*model.SummaryReport, error) {
	runs := make([]*pageRun, len(pages))
	for i := range pages {
		runs[i] = newPageRun(pages[i])
	}

	var siteIssues map[string]*model.Issue
	g, gctx := errgroup.WithContext(ctx)
	if site != nil {
		g.Go(func() error {
			siteIssues = e.siteIssues(gctx, site)
			return nil
		})
	}
	g.Go(func() error {
		return e.analyzePages(gctx, runs)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	reports := make([]model.PageReport, len(runs))
	for i, run := range runs {
		reports[i] = run.report
	}

	summary := model.NewIssues()
	for id, issue := range e.duplicateIssues(reports, runs) {
		scoring.Put(&summary, id, issue)
	}
	for id, issue := range siteIssues {
		scoring.Put(&summary, id, issue)
	}

	for i, run := range runs {
		scoring.ApplyImpact(&run.report.Issues)
		if err := run.advance(StateScored); err != nil {
			return nil, pageError(run.report.URL, err)
		}
		reports[i] = run.report
	}
	scoring.ApplyImpact(&summary)

	return &model.SummaryReport{
		RunID:     uuid.NewString(),
		CreatedAt: e.now().UTC(),
		Pages:     reports,
		Issues:    summary,
	}, nil
}

// analyzePages runs every page through composition, at most MaxConcurrency
// at a time. The first fatal failure cancels the rest.
func (e *Engine) analyzePages(ctx context.Context, runs []*pageRun) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.MaxConcurrency)

	for i, run := range runs {
		withIssues := i == 0 || !e.opts.IgnoreInternalPagesIssues
		g.Go(func() error {
			if err := e.analyzePage(gctx, run, withIssues); err != nil {
				return pageError(run.report.URL, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// analyzePage extracts a page's facts and, when withIssues is set, builds its
// local issues and merges the external checks. It leaves the run composed.
func (e *Engine) analyzePage(ctx context.Context, run *pageRun, withIssues bool) error {
	if err := run.advance(StateExtracting); err != nil {
		return err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(run.body))
	if err != nil {
		return &errs.AppError{
			Kind:    errs.ParsingFailed,
			Message: "Failed to parse the HTML content.",
			Cause:   err,
		}
	}
	s := ExtractSignals(doc, run.body)

	r := &run.report
	r.Title = model.Optional(s.Title)
	r.Description = model.Optional(s.Description)
	r.Author = model.Optional(s.Author)
	r.Keywords = model.Optional(s.Keywords)
	r.Canonical = model.Optional(s.Canonical)
	r.Headers = s.Headers
	r.H1 = s.H1
	if withIssues {
		r.Issues = scoring.PageIssues(s)
	}

	if err := run.advance(StateAwaitingExternal); err != nil {
		return err
	}

	if withIssues {
		audit, links, err := e.external(ctx, r.URL, run.body)
		if err != nil {
			return err
		}
		if links != nil {
			for id, issue := range links.Issues() {
				scoring.Put(&r.Issues, id, issue)
			}
		}
		if audit != nil {
			scoring.ApplyBrowserAudit(r, audit)
		}
	}

	return run.advance(StateComposed)
}

// external runs the browser audit and the link check of one page
// concurrently. An unavailable browser audit degrades the page instead of
// failing it.
func (e *Engine) external(ctx context.Context, pageURL string, body []byte) (*lighthouse.Result, *scoring.LinkBuckets, error) {
	var (
		audit   *lighthouse.Result
		buckets *scoring.LinkBuckets
	)
	g, gctx := errgroup.WithContext(ctx)

	if e.collab.Auditor != nil && !e.opts.IgnoreBrowserAudit {
		g.Go(func() error {
			res, err := e.collab.Auditor.Run(gctx, pageURL)
			switch {
			case err == nil:
				audit = res
			case errors.Is(err, lighthouse.ErrAuditUnavailable):
				e.logger.Warn("browser audit unavailable, page degraded", "url", pageURL, "error", err)
			default:
				return fmt.Errorf("browser audit: %w", err)
			}
			return nil
		})
	}

	if e.collab.Links != nil && !e.opts.IgnoreBrokenLinksTest {
		g.Go(func() error {
			b := scoring.NewLinkBuckets()
			err := e.collab.Links.Scan(gctx, pageURL, body, func(r model.LinkResult) {
				if !b.Add(r) {
					e.logger.Warn("unexpected link tag", "url", pageURL, "tag", r.Tag)
				}
			})
			if err != nil {
				return err
			}
			buckets = b
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return audit, buckets, nil
}

func (e *Engine) duplicateIssues(reports []model.PageReport, runs []*pageRun) map[string]*model.Issue {
	issues := map[string]*model.Issue{
		scoring.IssueDuplicateTitle: scoring.DuplicateIssue(scoring.FieldDuplicates(reports, "title",
			func(p *model.PageReport) string { return model.Value(p.Title) })),
		scoring.IssueDuplicateDesc: scoring.DuplicateIssue(scoring.FieldDuplicates(reports, "description",
			func(p *model.PageReport) string { return model.Value(p.Description) })),
	}

	if !e.opts.IgnoreDuplicateContentTest {
		urls := make([]string, len(runs))
		bodies := make([][]byte, len(runs))
		for i, run := range runs {
			urls[i] = run.report.URL
			bodies[i] = run.body
		}
		issues[scoring.IssueDuplicateContent] = scoring.DuplicateIssue(
			scoring.ContentDuplicates(urls, bodies, e.opts.SimilarityThreshold))
	}
	return issues
}

// siteIssues runs the SSL, sitemap and robots checks concurrently. A failed
// or timed out SSL lookup omits its issue.
func (e *Engine) siteIssues(ctx context.Context, site *url.URL) map[string]*model.Issue {
	var (
		mu     sync.Mutex
		issues = map[string]*model.Issue{}
		wg     sync.WaitGroup
	)
	set := func(id string, issue *model.Issue) {
		mu.Lock()
		defer mu.Unlock()
		issues[id] = issue
	}

	if e.collab.SSL != nil && !e.opts.IgnoreSSLTest {
		wg.Go(func() {
			sslCtx, cancel := context.WithTimeout(ctx, e.opts.SSLTimeout)
			defer cancel()
			grades, err := e.collab.SSL.Grade(sslCtx, site.Hostname())
			if err != nil {
				e.logger.Warn("ssl lookup failed", "host", site.Hostname(), "error", err)
				return
			}
			set(scoring.IssueSSLCertificate, scoring.SSLCertificate(grades))
		})
	}
	if e.collab.Probe != nil && !e.opts.IgnoreSitemapTest {
		wg.Go(func() {
			set(scoring.IssueMissingSitemap, scoring.Exists("sitemap.xml", e.collab.Probe.Sitemap(ctx, site)))
		})
	}
	if e.collab.Probe != nil && !e.opts.IgnoreRobotsTest {
		wg.Go(func() {
			set(scoring.IssueMissingRobotsTxt, scoring.Exists("robots.txt", e.collab.Probe.Robots(ctx, site)))
		})
	}

	wg.Wait()
	return issues
}

// pageError wraps a fatal page failure. Application errors pass through.
func pageError(pageURL string, err error) error {
	var appErr *errs.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return &errs.AppError{
		Kind:    errs.AuditFailed,
		Message: fmt.Sprintf("Auditing %s failed.", pageURL),
		Cause:   err,
	}
}

// parseTargets validates every URL. Invalid ones are reported as error
// events; it fails only when none is left.
func parseTargets(rawURLs []string, onEvent model.EventHandler) ([]*url.URL, error) {
	if len(rawURLs) == 0 {
		return nil, &errs.AppError{Kind: errs.InvalidInput, Message: "At least one URL is required."}
	}

	var (
		targets []*url.URL
		lastErr error
	)
	for _, raw := range rawURLs {
		u, err := ParseTarget(raw)
		if err != nil {
			onEvent(model.Event{Kind: model.EventError, URL: raw, Message: err.Error()})
			lastErr = err
			continue
		}
		targets = append(targets, u)
	}
	if len(targets) == 0 {
		return nil, lastErr
	}
	return targets, nil
}

// ParseTarget validates an audit URL. Only absolute http(s) URLs are accepted.
func ParseTarget(raw string) (*url.URL, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, &errs.AppError{
			Kind:    errs.InvalidInput,
			Message: "Invalid URL format. Please ensure you entered a valid URL (e.g., https://example.com).",
			Cause:   err,
		}
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, &errs.AppError{
			Kind:    errs.InvalidInput,
			Message: "Invalid URL format. Please ensure you entered a valid URL (e.g., https://example.com).",
		}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, &errs.AppError{
			Kind:    errs.InvalidInput,
			Message: "Only http and https URLs are supported.",
		}
	}
	return parsed, nil
}
