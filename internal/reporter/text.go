package reporter

import (
	"cmp"
	"fmt"
	"io"
	"slices"

	"github.com/charmbracelet/lipgloss"

	"github.com/Bahjat/seo-audit/internal/model"
)

var (
	colorError   = lipgloss.Color("#FF5F5F")
	colorWarning = lipgloss.Color("#FFAF00")
	colorNotice  = lipgloss.Color("#5FAFFF")
	colorMuted   = lipgloss.Color("#888888")

	styleTitle = lipgloss.NewStyle().Bold(true)
	styleMuted = lipgloss.NewStyle().Foreground(colorMuted)
)

func categoryStyle(c model.Category) lipgloss.Style {
	switch c {
	case model.CategoryErrors:
		return lipgloss.NewStyle().Foreground(colorError).Bold(true)
	case model.CategoryWarnings:
		return lipgloss.NewStyle().Foreground(colorWarning)
	default:
		return lipgloss.NewStyle().Foreground(colorNotice)
	}
}

// TextReporter renders a human-readable summary, issues ordered by impact.
type TextReporter struct {
	writer io.Writer
	err    error
}

// NewTextReporter creates a text reporter writing to w.
func NewTextReporter(w io.Writer) *TextReporter {
	return &TextReporter{writer: w}
}

// Generate writes the report and returns the first write error.
func (r *TextReporter) Generate(report *model.SummaryReport) error {
	r.printf("%s\n", styleTitle.Render("SEO audit: "+report.URL))
	r.printf("%s\n\n", styleMuted.Render(fmt.Sprintf("run %s, %s, %d page(s)",
		report.RunID, report.CreatedAt.UTC().Format("2006-01-02 15:04:05 MST"), len(report.Pages))))

	r.printf("%s\n", styleTitle.Render("Site"))
	r.printIssues(report.Issues)

	for i := range report.Pages {
		page := &report.Pages[i]
		r.printf("\n%s\n", styleTitle.Render(page.URL))
		if page.Title != nil {
			r.printf("  %s %s\n", styleMuted.Render("title:"), *page.Title)
		}
		if page.IsMobileFriendly != nil {
			r.printf("  %s %t\n", styleMuted.Render("mobile friendly:"), *page.IsMobileFriendly)
		}
		r.printIssues(page.Issues)
	}
	return r.err
}

type row struct {
	category model.Category
	id       string
	issue    *model.Issue
}

func (r *TextReporter) printIssues(issues model.Issues) {
	var rows []row
	issues.Each(func(c model.Category, id string, issue *model.Issue) {
		rows = append(rows, row{category: c, id: id, issue: issue})
	})
	if len(rows) == 0 {
		r.printf("  %s\n", styleMuted.Render("no issues"))
		return
	}

	slices.SortFunc(rows, func(a, b row) int {
		if c := cmp.Compare(b.issue.ImpactValue(), a.issue.ImpactValue()); c != 0 {
			return c
		}
		return cmp.Compare(a.id, b.id)
	})

	for _, rw := range rows {
		label := categoryStyle(rw.category).Render(fmt.Sprintf("%-8s", rw.category))
		r.printf("  %s %-28s score %5.1f  impact %7.1f  %s\n",
			label, rw.id, rw.issue.Score, rw.issue.ImpactValue(), rw.issue.Description)
	}
}

func (r *TextReporter) printf(format string, args ...any) {
	if r.err != nil {
		return
	}
	_, r.err = fmt.Fprintf(r.writer, format, args...)
}
