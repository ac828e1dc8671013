package analyzer

import (
	"context"

	"github.com/Bahjat/seo-audit/internal/model"
)

// AuditProvider defines the contract for any audit engine.
type AuditProvider interface {
	Audit(ctx context.Context, urls []string, onEvent model.EventHandler) (*model.SummaryReport, error)
}
