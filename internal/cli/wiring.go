package cli

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/pflag"

	"github.com/Bahjat/seo-audit/internal/analyzer"
	"github.com/Bahjat/seo-audit/internal/crawler"
	"github.com/Bahjat/seo-audit/internal/lighthouse"
	"github.com/Bahjat/seo-audit/internal/pageinsight"
	"github.com/Bahjat/seo-audit/internal/platform/config"
	"github.com/Bahjat/seo-audit/internal/platform/netguard"
	"github.com/Bahjat/seo-audit/internal/siteprobe"
	"github.com/Bahjat/seo-audit/internal/ssllabs"
)

// A PageSpeed run executes Lighthouse remotely and routinely takes a minute.
const pageSpeedTimeout = 2 * time.Minute

// addAuditFlags registers one flag per audit option. Names match the
// configuration keys with dashes in place of underscores.
func addAuditFlags(fs *pflag.FlagSet) {
	fs.Int("max-depth", 1, "crawl depth, 1 audits the seed only and 0 is unlimited")
	fs.Int("max-pages", 100, "maximum pages to audit, 0 is unlimited")
	fs.String("user-agent", pageinsight.DefaultUserAgent, "User-Agent sent with every request")
	fs.Bool("respect-robots-txt", true, "skip pages disallowed by robots.txt")
	fs.Duration("timeout", 0, "per-request timeout (default 30s)")
	fs.Int("max-concurrency", 1, "pages fetched and analyzed at once")
	fs.Bool("download-unsupported", false, "audit non-HTML responses too")
	fs.StringSlice("exclude-file-types", nil, "file extensions never fetched")
	fs.StringSlice("exclude-urls", nil, "URL patterns never fetched")
	fs.Float64("requests-per-second", 0, "crawl rate limit, 0 is unlimited")

	fs.Bool("ignore-ssl-test", false, "skip the SSL grade check")
	fs.Bool("ignore-robots-test", false, "skip the robots.txt presence check")
	fs.Bool("ignore-sitemap-test", false, "skip the sitemap.xml presence check")
	fs.Bool("ignore-internal-pages-issues", false, "report issues for the seed page only")
	fs.Bool("ignore-browser-audit", false, "skip the Lighthouse audit")
	fs.Bool("ignore-broken-links-test", false, "skip the broken link check")
	fs.Bool("ignore-duplicate-content-test", false, "skip the duplicate content check")

	fs.Bool("use-terminal-option", false, "fall back to a local lighthouse binary")
	fs.Int("audit-retries", 3, "PageSpeed retries before falling back")
	fs.String("pagespeed-api-key", "", "PageSpeed Insights API key")
	fs.String("lighthouse-binary", "lighthouse", "lighthouse binary for the local fallback")
	fs.Int("link-check-concurrency", 10, "links checked at once per page")
	fs.Bool("allow-private-networks", false, "allow requests to private and loopback addresses")
}

// pipeline is a fully wired audit stack.
type pipeline struct {
	crawler *crawler.Crawler
	service *analyzer.Service
}

func newPipeline(opts config.Options, logger *slog.Logger) (*pipeline, error) {
	fetcher := pageinsight.NewHTTPClient(pageinsight.ClientOptions{
		UserAgent:            opts.UserAgent,
		Timeout:              opts.Timeout,
		AllowPrivateNetworks: opts.AllowPrivateNetworks,
	})

	c, err := crawler.New(fetcher, crawler.Options{
		MaxDepth:            opts.MaxDepth,
		MaxPages:            opts.MaxPages,
		MaxConcurrency:      opts.MaxConcurrency,
		RequestsPerSecond:   opts.RequestsPerSecond,
		RespectRobotsTxt:    opts.RespectRobotsTxt,
		DownloadUnsupported: opts.DownloadUnsupported,
		ExcludeFileTypes:    opts.ExcludeFileTypes,
		ExcludeURLs:         opts.ExcludeURLs,
		UserAgent:           opts.UserAgent,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("cli: crawler: %w", err)
	}

	var fallback lighthouse.Auditor
	if opts.UseTerminalOption {
		fallback = lighthouse.NewTerminalAuditor(lighthouse.CommandOutput, opts.LighthouseBinary)
	}
	runner := lighthouse.NewRunner(
		lighthouse.NewPageSpeedClient(opts.PageSpeedAPIKey, pageSpeedTimeout),
		fallback,
		lighthouse.Options{Retries: opts.AuditRetries, UseTerminal: opts.UseTerminalOption},
		logger,
	)

	probe := siteprobe.New(&http.Client{
		Transport: netguard.Transport(!opts.AllowPrivateNetworks, 4),
		Timeout:   opts.Timeout,
	}, opts.UserAgent)

	engine := pageinsight.NewEngine(pageinsight.Collaborators{
		Pages:   c,
		Auditor: runner,
		Links:   pageinsight.NewLinkChecker(opts.LinkCheckConcurrency, opts.UserAgent, opts.AllowPrivateNetworks),
		SSL:     ssllabs.NewClient(),
		Probe:   probe,
	}, pageinsight.Options{
		IgnoreSSLTest:              opts.IgnoreSSLTest,
		IgnoreRobotsTest:           opts.IgnoreRobotsTest,
		IgnoreSitemapTest:          opts.IgnoreSitemapTest,
		IgnoreInternalPagesIssues:  opts.IgnoreInternalPagesIssues,
		IgnoreBrowserAudit:         opts.IgnoreBrowserAudit,
		IgnoreBrokenLinksTest:      opts.IgnoreBrokenLinksTest,
		IgnoreDuplicateContentTest: opts.IgnoreDuplicateContentTest,
		MaxConcurrency:             opts.MaxConcurrency,
	}, logger)

	return &pipeline{crawler: c, service: analyzer.NewService(engine, logger)}, nil
}
