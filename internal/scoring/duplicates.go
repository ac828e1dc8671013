package scoring

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/Bahjat/seo-audit/internal/model"
)

// DefaultSimilarityThreshold is the similarity ratio at which two bodies are
// considered duplicate content.
const DefaultSimilarityThreshold = 0.9

// DuplicateResult is the outcome of one pairwise duplicate pass.
type DuplicateResult struct {
	Field  string
	Groups []model.DuplicateGroup
	Pages  int // pages compared
	Trials int // unordered pairs examined, n*(n-1)/2
	Pairs  int // pairs recorded as duplicates
}

// Score returns 100 - pairs/trials*100, or 100 when nothing was compared.
func (r DuplicateResult) Score() float64 {
	return ratioScore(r.Pairs, r.Trials)
}

// Affected counts the pages that appear in any group, leaders included.
func (r DuplicateResult) Affected() int {
	n := 0
	for _, g := range r.Groups {
		n += 1 + len(g.Members)
	}
	return n
}

// matchFunc reports whether pages i and j are duplicates and returns the
// member record for j.
type matchFunc func(i, j int) (model.DuplicateMember, bool)

// detect walks every unordered pair (i, j), i < j, once. A page that joins a
// group as a member is claimed: it never leads a group and never joins a
// second one, so every page belongs to at most one group.
func detect(field string, urls []string, match matchFunc) DuplicateResult {
	n := len(urls)
	res := DuplicateResult{Field: field, Pages: n, Groups: []model.DuplicateGroup{}}
	if n < 2 {
		return res
	}
	res.Trials = n * (n - 1) / 2

	claimed := make([]bool, n)
	for i := 0; i < n-1; i++ {
		if claimed[i] {
			continue
		}
		group := model.DuplicateGroup{Source: urls[i], Field: field}
		for j := i + 1; j < n; j++ {
			if claimed[j] {
				continue
			}
			member, ok := match(i, j)
			if !ok {
				continue
			}
			claimed[j] = true
			res.Pairs++
			group.Members = append(group.Members, member)
		}
		if len(group.Members) > 0 {
			res.Groups = append(res.Groups, group)
		}
	}
	return res
}

// FieldDuplicates groups pages whose field value is equal and non-empty.
func FieldDuplicates(pages []model.PageReport, field string, value func(*model.PageReport) string) DuplicateResult {
	urls := make([]string, len(pages))
	values := make([]string, len(pages))
	for i := range pages {
		urls[i] = pages[i].URL
		values[i] = value(&pages[i])
	}

	return detect(field, urls, func(i, j int) (model.DuplicateMember, bool) {
		if values[i] == "" || values[i] != values[j] {
			return model.DuplicateMember{}, false
		}
		return model.DuplicateMember{URL: urls[j], Value: values[j]}, true
	})
}

// ContentDuplicates groups pages whose bodies have a similarity ratio of at
// least threshold. urls and bodies are parallel slices.
func ContentDuplicates(urls []string, bodies [][]byte, threshold float64) DuplicateResult {
	tokens := make([][]string, len(bodies))
	for i, b := range bodies {
		tokens[i] = strings.Fields(string(b))
	}

	return detect("content", urls, func(i, j int) (model.DuplicateMember, bool) {
		var ratio float64
		if bytes.Equal(bodies[i], bodies[j]) {
			ratio = 1
		} else {
			ratio = Similarity(tokens[i], tokens[j], threshold)
		}
		if ratio < threshold {
			return model.DuplicateMember{}, false
		}
		return model.DuplicateMember{URL: urls[j], Similarity: ratio}, true
	})
}

// Similarity returns the difflib ratio 2*M/T of two token sequences. When a
// cheap upper bound already falls below floor, that bound is returned
// instead of the exact ratio.
func Similarity(a, b []string, floor float64) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	m := difflib.NewMatcherWithJunk(a, b, false, nil)
	if r := m.RealQuickRatio(); r < floor {
		return r
	}
	if r := m.QuickRatio(); r < floor {
		return r
	}
	return m.Ratio()
}

// DuplicateIssue wraps a duplicate pass into a site-level issue. Its impact
// is the share of pages caught in a group times 100 times the weight, set
// here so the uniform impact pass leaves it alone.
func DuplicateIssue(r DuplicateResult) *model.Issue {
	issue := newIssue(
		fmt.Sprintf("%d pages share their %s with another page", r.Pairs, r.Field),
		r.Pairs,
		r.Score(),
	)
	for _, g := range r.Groups {
		issue.List = append(issue.List, g)
	}

	var impact float64
	if r.Pages > 0 {
		impact = float64(r.Affected()) / float64(r.Pages) * 100 * issue.Weight
	}
	issue.SetImpact(impact)
	return issue
}
