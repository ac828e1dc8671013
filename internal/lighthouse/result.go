// Package lighthouse runs browser audits and decodes their reports.
package lighthouse

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Bahjat/seo-audit/internal/model"
)

// MobileFriendlyAudit is reported separately from the other audits.
const MobileFriendlyAudit = "mobile-friendly"

var errEmptyReport = errors.New("lighthouse: report has no audits")

// Result is the subset of a Lighthouse report the auditor consumes.
type Result struct {
	RequestedURL      string              `json:"requestedUrl"`
	FinalURL          string              `json:"finalUrl"`
	LighthouseVersion string              `json:"lighthouseVersion"`
	Audits            map[string]Audit    `json:"audits"`
	Categories        map[string]Category `json:"categories"`
	RuntimeError      *RuntimeError       `json:"runtimeError,omitempty"`
}

// Audit is one named audit. Score is in [0,1], nil for audits that are not
// applicable or purely informative.
type Audit struct {
	ID               string          `json:"id"`
	Title            string          `json:"title"`
	Description      string          `json:"description"`
	Score            *float64        `json:"score"`
	ScoreDisplayMode string          `json:"scoreDisplayMode"`
	DisplayValue     string          `json:"displayValue,omitempty"`
	NumericValue     *float64        `json:"numericValue,omitempty"`
	Details          json.RawMessage `json:"details,omitempty"`
}

// Category groups audits and weighs them through its audit references.
type Category struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Score     *float64   `json:"score"`
	AuditRefs []AuditRef `json:"auditRefs"`
}

// AuditRef points a category at an audit with a weight.
type AuditRef struct {
	ID     string  `json:"id"`
	Weight float64 `json:"weight"`
	Group  string  `json:"group,omitempty"`
}

// RuntimeError is set by Lighthouse when the page could not be audited.
type RuntimeError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Decode parses a Lighthouse JSON report.
func Decode(data []byte) (*Result, error) {
	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("lighthouse: decode report: %w", err)
	}
	if err := res.validate(); err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *Result) validate() error {
	if r.RuntimeError != nil && r.RuntimeError.Code != "" && r.RuntimeError.Code != "NO_ERROR" {
		return fmt.Errorf("lighthouse: runtime error %s: %s", r.RuntimeError.Code, r.RuntimeError.Message)
	}
	if len(r.Audits) == 0 {
		return errEmptyReport
	}
	return nil
}

type itemsDetails[T any] struct {
	Items []T `json:"items"`
}

// Metrics returns the metrics audit's debug data, or nil when absent.
func (r *Result) Metrics() map[string]any {
	audit, ok := r.Audits["metrics"]
	if !ok || len(audit.Details) == 0 {
		return nil
	}
	var d itemsDetails[map[string]any]
	if err := json.Unmarshal(audit.Details, &d); err != nil || len(d.Items) == 0 {
		return nil
	}
	return d.Items[0]
}

// Timeline returns the screenshot filmstrip of the page load.
func (r *Result) Timeline() []model.TimelineFrame {
	audit, ok := r.Audits["screenshot-thumbnails"]
	if !ok || len(audit.Details) == 0 {
		return nil
	}
	var d itemsDetails[model.TimelineFrame]
	if err := json.Unmarshal(audit.Details, &d); err != nil {
		return nil
	}
	return d.Items
}

// Scores returns every category score rescaled to 0-100.
func (r *Result) Scores() map[string]float64 {
	scores := make(map[string]float64, len(r.Categories))
	for id, c := range r.Categories {
		if c.Score == nil {
			continue
		}
		scores[id] = *c.Score * 100
	}
	return scores
}
