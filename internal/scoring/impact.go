package scoring

import "github.com/Bahjat/seo-audit/internal/model"

// Impact returns the severity-weighted deficiency of a score.
func Impact(score, weight float64) float64 {
	return (100 - score) * weight
}

// ApplyImpact sets impact = (100 - score) * weight on every issue of is that
// does not carry one yet. Issues with an explicit impact, such as duplicate
// groups, are left untouched, so running it twice changes nothing.
func ApplyImpact(is *model.Issues) {
	is.Each(func(_ model.Category, _ string, issue *model.Issue) {
		if issue == nil || issue.HasImpact() {
			return
		}
		issue.SetImpact(Impact(issue.Score, issue.Weight))
	})
}
