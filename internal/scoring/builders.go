package scoring

import (
	"fmt"
	"unicode/utf8"

	"github.com/Bahjat/seo-audit/internal/model"
)

// maxTitleLength is the longest title, in characters, that is not reported
// as too much text.
const maxTitleLength = 75

// Signals are the atomic facts extracted from one page.
type Signals struct {
	Title       string
	Description string
	Author      string
	Keywords    string
	Canonical   string
	Headers     map[string][]string
	H1          string
	H1Count     int
	ImagesTotal int
	MissingAlt  []string
	HasDoctype  bool
}

// PageIssues builds every local issue for a page from its signals.
func PageIssues(s Signals) model.Issues {
	is := model.NewIssues()
	Put(&is, IssueMissingTitle, MissingTitle(s.Title))
	Put(&is, IssueTooMuchTextInTitle, TooMuchTextInTitle(s.Title))
	Put(&is, IssueMissingDescription, MissingMeta("description", s.Description))
	Put(&is, IssueMissingAuthor, MissingMeta("author", s.Author))
	Put(&is, IssueMissingKeywords, MissingMeta("keywords", s.Keywords))
	Put(&is, IssueMultipleH1, MultipleH1(s.H1Count))
	Put(&is, IssueImgAltAttribute, ImgAltAttribute(s.ImagesTotal, s.MissingAlt))
	Put(&is, IssueDocType, DocType(s.HasDoctype))
	return is
}

func newIssue(description string, value any, score float64) *model.Issue {
	return &model.Issue{
		Description: description,
		Value:       value,
		Weight:      1,
		Score:       score,
	}
}

// ratioScore returns 100 - part/total*100, or full compliance when total is 0.
func ratioScore(part, total int) float64 {
	if total == 0 {
		return 100
	}
	return 100 - float64(part)/float64(total)*100
}

func boolScore(ok bool) float64 {
	if ok {
		return 100
	}
	return 0
}

// MissingTitle grades the presence of a title tag.
func MissingTitle(title string) *model.Issue {
	if title == "" {
		return newIssue("Page doesn't have a title tag", nil, 0)
	}
	return newIssue("Page has a title tag", title, 100)
}

// TooMuchTextInTitle grades the title length. A missing title fails too.
func TooMuchTextInTitle(title string) *model.Issue {
	if title == "" {
		return newIssue("Page doesn't have a title tag", 0, 0)
	}
	n := utf8.RuneCountInString(title)
	if n > maxTitleLength {
		return newIssue(fmt.Sprintf("Title has %d characters, more than %d", n, maxTitleLength), n, 0)
	}
	return newIssue(fmt.Sprintf("Title has %d characters", n), n, 100)
}

// MissingMeta grades the presence of a named meta tag.
func MissingMeta(name, content string) *model.Issue {
	if content == "" {
		return newIssue(fmt.Sprintf("Page doesn't have a %s meta tag", name), nil, 0)
	}
	return newIssue(fmt.Sprintf("Page has a %s meta tag", name), content, 100)
}

// MultipleH1 passes only when the page has exactly one h1 heading.
func MultipleH1(count int) *model.Issue {
	switch {
	case count == 0:
		return newIssue("Page doesn't have an h1 heading", count, 0)
	case count > 1:
		return newIssue(fmt.Sprintf("Page has %d h1 headings, more than one", count), count, 0)
	default:
		return newIssue("Page has exactly one h1 heading", count, 100)
	}
}

// ImgAltAttribute grades the share of images carrying alt or title text.
// missing holds the src of every image without one.
func ImgAltAttribute(total int, missing []string) *model.Issue {
	issue := newIssue(
		fmt.Sprintf("%d images don't have alt attributes out of %d", len(missing), total),
		len(missing),
		ratioScore(len(missing), total),
	)
	for _, src := range missing {
		issue.List = append(issue.List, src)
	}
	return issue
}

// DocType grades the presence of a doctype declaration.
func DocType(present bool) *model.Issue {
	description := "Page has a doctype declared"
	if !present {
		description = "Page doesn't have a doctype declared"
	}
	return newIssue(description, present, boolScore(present))
}

// Exists grades a site-level existence probe such as sitemap.xml.
func Exists(resource string, exists bool) *model.Issue {
	description := fmt.Sprintf("Site has a %s", resource)
	if !exists {
		description = fmt.Sprintf("Site doesn't have a %s", resource)
	}
	return newIssue(description, exists, boolScore(exists))
}
