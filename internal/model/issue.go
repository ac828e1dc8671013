package model

// Category classifies an issue by severity.
type Category string

const (
	CategoryErrors   Category = "errors"
	CategoryWarnings Category = "warnings"
	CategoryNotices  Category = "notices"
)

// Categories lists every category in report order.
var Categories = []Category{CategoryErrors, CategoryWarnings, CategoryNotices}

// Issue is a single graded finding.
type Issue struct {
	Description string   `json:"description" yaml:"description"`
	Value       any      `json:"value" yaml:"value"`
	Weight      float64  `json:"weight" yaml:"weight"`
	Score       float64  `json:"score" yaml:"score"`
	Impact      *float64 `json:"impact,omitempty" yaml:"impact,omitempty"`
	List        []any    `json:"list,omitempty" yaml:"list,omitempty"`
}

// HasImpact reports whether the impact has already been computed or authored.
func (i *Issue) HasImpact() bool {
	return i.Impact != nil
}

// SetImpact records an explicit impact. Issues carrying one are skipped by
// the uniform impact pass.
func (i *Issue) SetImpact(v float64) {
	i.Impact = &v
}

// ImpactValue returns the impact, or 0 when it has not been set.
func (i *Issue) ImpactValue() float64 {
	if i.Impact == nil {
		return 0
	}
	return *i.Impact
}

// Issues groups issues by category, keyed by issue id.
type Issues struct {
	Errors   map[string]*Issue `json:"errors" yaml:"errors"`
	Warnings map[string]*Issue `json:"warnings" yaml:"warnings"`
	Notices  map[string]*Issue `json:"notices" yaml:"notices"`
}

// NewIssues returns an empty container with all categories initialized.
func NewIssues() Issues {
	return Issues{
		Errors:   map[string]*Issue{},
		Warnings: map[string]*Issue{},
		Notices:  map[string]*Issue{},
	}
}

// In returns the map backing the given category. Unknown categories resolve
// to notices.
func (is *Issues) In(c Category) map[string]*Issue {
	switch c {
	case CategoryErrors:
		if is.Errors == nil {
			is.Errors = map[string]*Issue{}
		}
		return is.Errors
	case CategoryWarnings:
		if is.Warnings == nil {
			is.Warnings = map[string]*Issue{}
		}
		return is.Warnings
	default:
		if is.Notices == nil {
			is.Notices = map[string]*Issue{}
		}
		return is.Notices
	}
}

// Put stores issue under id in category c.
func (is *Issues) Put(c Category, id string, issue *Issue) {
	is.In(c)[id] = issue
}

// Get looks an issue up by id across all categories.
func (is *Issues) Get(id string) (*Issue, Category, bool) {
	for _, c := range Categories {
		if issue, ok := is.In(c)[id]; ok {
			return issue, c, true
		}
	}
	return nil, "", false
}

// Each calls fn for every issue in every category.
func (is *Issues) Each(fn func(c Category, id string, issue *Issue)) {
	for _, c := range Categories {
		for id, issue := range is.In(c) {
			fn(c, id, issue)
		}
	}
}

// Len returns the total number of issues.
func (is *Issues) Len() int {
	return len(is.Errors) + len(is.Warnings) + len(is.Notices)
}
