package scoring

import (
	"sort"

	"github.com/Bahjat/seo-audit/internal/lighthouse"
	"github.com/Bahjat/seo-audit/internal/model"
)

type weightedAudit struct {
	audit  lighthouse.Audit
	weight float64
}

// flattenAudits walks every category's audit references and returns each
// scored audit once, weighted by the largest weight any category gives it.
// Audits without a score and the mobile-friendly audit are left out.
func flattenAudits(res *lighthouse.Result) map[string]weightedAudit {
	ids := make([]string, 0, len(res.Categories))
	for id := range res.Categories {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	flat := map[string]weightedAudit{}
	for _, catID := range ids {
		for _, ref := range res.Categories[catID].AuditRefs {
			if ref.ID == lighthouse.MobileFriendlyAudit {
				continue
			}
			audit, ok := res.Audits[ref.ID]
			if !ok || audit.Score == nil {
				continue
			}
			if prev, seen := flat[ref.ID]; seen && prev.weight >= ref.Weight {
				continue
			}
			flat[ref.ID] = weightedAudit{audit: audit, weight: ref.Weight}
		}
	}
	return flat
}

// AuditIssue converts one audit into an issue with its score rescaled to 0-100.
func AuditIssue(audit lighthouse.Audit, weight float64) *model.Issue {
	var value any = audit.DisplayValue
	if audit.DisplayValue == "" && audit.NumericValue != nil {
		value = *audit.NumericValue
	}

	description := audit.Title
	if description == "" {
		description = audit.ID
	}

	var score float64
	if audit.Score != nil {
		score = *audit.Score * 100
	}

	return &model.Issue{
		Description: description,
		Value:       value,
		Weight:      weight,
		Score:       score,
	}
}

// MobileFriendly reports the mobile-friendly flag. The upstream audit flags
// problems, so a missing audit or a zero score means the page is friendly.
func MobileFriendly(res *lighthouse.Result) bool {
	audit, ok := res.Audits[lighthouse.MobileFriendlyAudit]
	if !ok || audit.Score == nil {
		return true
	}
	return *audit.Score == 0
}

// ApplyBrowserAudit files every audit of res into report's issues and sets
// the audit-derived fields.
func ApplyBrowserAudit(report *model.PageReport, res *lighthouse.Result) {
	for id, wa := range flattenAudits(res) {
		Put(&report.Issues, id, AuditIssue(wa.audit, wa.weight))
	}

	report.Scores = res.Scores()
	report.Metrics = res.Metrics()
	report.LoadingTimeline = res.Timeline()
	friendly := MobileFriendly(res)
	report.IsMobileFriendly = &friendly
}
