package model

import "time"

// HeadingLevels lists the heading tags reported per page.
var HeadingLevels = []string{"h1", "h2", "h3", "h4", "h5", "h6"}

// PageReport holds the extracted facts and graded findings for one URL.
// Textual facts missing from the page are nil and encode as null.
type PageReport struct {
	URL         string              `json:"url" yaml:"url"`
	Title       *string             `json:"title" yaml:"title"`
	Description *string             `json:"description" yaml:"description"`
	Author      *string             `json:"author" yaml:"author"`
	Keywords    *string             `json:"keywords" yaml:"keywords"`
	Canonical   *string             `json:"canonical" yaml:"canonical"`
	Headers     map[string][]string `json:"headers" yaml:"headers"`
	H1          string              `json:"h1" yaml:"h1"`
	Issues      Issues              `json:"issues" yaml:"issues"`

	// Populated only when the browser audit succeeded.
	Metrics          map[string]any     `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Scores           map[string]float64 `json:"scores,omitempty" yaml:"scores,omitempty"`
	LoadingTimeline  []TimelineFrame    `json:"loadingTimeline,omitempty" yaml:"loadingTimeline,omitempty"`
	IsMobileFriendly *bool              `json:"isMobileFriendly,omitempty" yaml:"isMobileFriendly,omitempty"`
}

// TimelineFrame is one screenshot sample of the page load.
type TimelineFrame struct {
	Timing    float64 `json:"timing" yaml:"timing"`
	Timestamp float64 `json:"timestamp" yaml:"timestamp"`
	Data      string  `json:"data,omitempty" yaml:"data,omitempty"`
}

// SummaryReport is the run-wide report.
type SummaryReport struct {
	RunID     string       `json:"runId" yaml:"runId"`
	URL       string       `json:"url" yaml:"url"`
	CreatedAt time.Time    `json:"createdAt" yaml:"createdAt"`
	Pages     []PageReport `json:"pages" yaml:"pages"`
	Issues    Issues       `json:"issues" yaml:"issues"`
}

// DuplicateGroup lists pages sharing a value with the source page.
type DuplicateGroup struct {
	Source  string            `json:"source" yaml:"source"`
	Field   string            `json:"field" yaml:"field"`
	Members []DuplicateMember `json:"members" yaml:"members"`
}

// DuplicateMember is one page of a duplicate group.
type DuplicateMember struct {
	URL        string  `json:"url" yaml:"url"`
	Value      string  `json:"value,omitempty" yaml:"value,omitempty"`
	Similarity float64 `json:"similarity,omitempty" yaml:"similarity,omitempty"`
}

// LinkResult is the outcome of checking one link or image found on a page.
type LinkResult struct {
	URL        string `json:"url" yaml:"url"`
	Tag        string `json:"tag" yaml:"tag"`
	Internal   bool   `json:"internal" yaml:"internal"`
	Broken     bool   `json:"broken" yaml:"broken"`
	StatusCode int    `json:"statusCode,omitempty" yaml:"statusCode,omitempty"`
	Reason     string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// FetchedPage is a crawled URL together with its decoded body.
type FetchedPage struct {
	URL  string
	Body []byte
}

// Optional returns a pointer to s, or nil when s is empty.
func Optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Value returns *s, or an empty string when s is nil.
func Value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
