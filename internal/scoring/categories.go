package scoring

import "github.com/Bahjat/seo-audit/internal/model"

// Issue ids produced by the local builders and site-level adapters.
const (
	IssueMissingTitle         = "missing-title"
	IssueTooMuchTextInTitle   = "too-much-text-in-title"
	IssueMissingDescription   = "missing-description"
	IssueMissingAuthor        = "missing-author"
	IssueMissingKeywords      = "missing-keywords"
	IssueMultipleH1           = "multiple-h1"
	IssueImgAltAttribute      = "img-alt-attribute"
	IssueDocType              = "doc-type"
	IssueInternalBrokenLinks  = "internal-broken-links"
	IssueExternalBrokenLinks  = "external-broken-links"
	IssueInternalBrokenImages = "internal-broken-images"
	IssueExternalBrokenImages = "external-broken-images"
	IssueSSLCertificate       = "ssl-certificate"
	IssueMissingSitemap       = "missing-sitemap"
	IssueMissingRobotsTxt     = "missing-robots-txt"
	IssueDuplicateTitle       = "duplicateTitlePages"
	IssueDuplicateDesc        = "duplicateDescPages"
	IssueDuplicateContent     = "duplicateContentPages"
)

// auditCategories maps every known issue or browser-audit id to its
// category. Ids not listed here are notices.
var auditCategories = map[string]model.Category{
	// Local page checks.
	IssueMissingTitle:         model.CategoryErrors,
	IssueMissingDescription:   model.CategoryErrors,
	IssueDocType:              model.CategoryErrors,
	IssueInternalBrokenLinks:  model.CategoryErrors,
	IssueInternalBrokenImages: model.CategoryErrors,
	IssueTooMuchTextInTitle:   model.CategoryWarnings,
	IssueMultipleH1:           model.CategoryWarnings,
	IssueImgAltAttribute:      model.CategoryWarnings,
	IssueExternalBrokenLinks:  model.CategoryWarnings,
	IssueExternalBrokenImages: model.CategoryWarnings,
	IssueMissingAuthor:        model.CategoryNotices,
	IssueMissingKeywords:      model.CategoryNotices,

	// Site-level checks.
	IssueSSLCertificate:   model.CategoryErrors,
	IssueDuplicateTitle:   model.CategoryErrors,
	IssueDuplicateContent: model.CategoryErrors,
	IssueDuplicateDesc:    model.CategoryWarnings,
	IssueMissingSitemap:   model.CategoryWarnings,
	IssueMissingRobotsTxt: model.CategoryWarnings,

	// Browser audits.
	"is-on-https":               model.CategoryErrors,
	"http-status-code":          model.CategoryErrors,
	"document-title":            model.CategoryErrors,
	"meta-description":          model.CategoryErrors,
	"is-crawlable":              model.CategoryErrors,
	"robots-txt":                model.CategoryErrors,
	"canonical":                 model.CategoryErrors,
	"hreflang":                  model.CategoryErrors,
	"crawlable-anchors":         model.CategoryErrors,
	"viewport":                  model.CategoryErrors,
	"errors-in-console":         model.CategoryErrors,
	"redirects-http":            model.CategoryErrors,
	"no-vulnerable-libraries":   model.CategoryErrors,
	"image-alt":                 model.CategoryWarnings,
	"link-text":                 model.CategoryWarnings,
	"font-size":                 model.CategoryWarnings,
	"tap-targets":               model.CategoryWarnings,
	"plugins":                   model.CategoryWarnings,
	"structured-data":           model.CategoryWarnings,
	"html-has-lang":             model.CategoryWarnings,
	"html-lang-valid":           model.CategoryWarnings,
	"color-contrast":            model.CategoryWarnings,
	"document-title-unique":     model.CategoryWarnings,
	"first-contentful-paint":    model.CategoryWarnings,
	"largest-contentful-paint":  model.CategoryWarnings,
	"speed-index":               model.CategoryWarnings,
	"interactive":               model.CategoryWarnings,
	"total-blocking-time":       model.CategoryWarnings,
	"cumulative-layout-shift":   model.CategoryWarnings,
	"server-response-time":      model.CategoryWarnings,
	"render-blocking-resources": model.CategoryWarnings,
	"uses-text-compression":     model.CategoryWarnings,
	"uses-optimized-images":     model.CategoryWarnings,
	"uses-responsive-images":    model.CategoryWarnings,
	"offscreen-images":          model.CategoryWarnings,
	"unminified-css":            model.CategoryWarnings,
	"unminified-javascript":     model.CategoryWarnings,
	"unused-css-rules":          model.CategoryWarnings,
	"unused-javascript":         model.CategoryWarnings,
	"redirects":                 model.CategoryWarnings,
	"uses-http2":                model.CategoryWarnings,
	"uses-long-cache-ttl":       model.CategoryWarnings,
	"total-byte-weight":         model.CategoryWarnings,
	"dom-size":                  model.CategoryWarnings,
	"deprecations":              model.CategoryWarnings,
	"bootup-time":               model.CategoryNotices,
	"mainthread-work-breakdown": model.CategoryNotices,
	"font-display":              model.CategoryNotices,
	"uses-rel-preconnect":       model.CategoryNotices,
	"modern-image-formats":      model.CategoryNotices,
}

// CategoryOf resolves the category for an issue or audit id.
func CategoryOf(id string) model.Category {
	if c, ok := auditCategories[id]; ok {
		return c
	}
	return model.CategoryNotices
}

// Put files issue under id in the category the table assigns to id.
func Put(is *model.Issues, id string, issue *model.Issue) {
	is.Put(CategoryOf(id), id, issue)
}
