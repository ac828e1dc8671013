package analyzer

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Bahjat/seo-audit/internal/model"
	"github.com/Bahjat/seo-audit/internal/platform/errs"
	"github.com/Bahjat/seo-audit/internal/platform/requestid"
)

// Service orchestrates an AuditProvider and logs results.
type Service struct {
	provider AuditProvider
	logger   *slog.Logger
}

// NewService creates a Service backed by the given provider.
func NewService(provider AuditProvider, logger *slog.Logger) *Service {
	return &Service{provider: provider, logger: logger}
}

// Audit delegates to the provider, logs crawl events and the outcome, and
// forwards every event to onEvent when it is set.
func (s *Service) Audit(ctx context.Context, urls []string, onEvent model.EventHandler) (*model.SummaryReport, error) {
	ctx, reqID := requestid.Ensure(ctx)
	logger := s.logger.With("urls", urls, "request_id", reqID)

	result, err := s.provider.Audit(ctx, urls, func(ev model.Event) {
		switch ev.Kind {
		case model.EventError:
			logger.Warn("page failed", "url", ev.URL, "status", ev.Code, "message", ev.Message)
		case model.EventIgnore:
			logger.Debug("page ignored", "url", ev.URL, "reason", ev.Message)
		case model.EventAdd:
			logger.Debug("page added", "url", ev.URL)
		}
		if onEvent != nil {
			onEvent(ev)
		}
	})
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = &errs.AppError{
				Kind:    errs.Timeout,
				Message: "Audit timed out. The target site may be slow to respond.",
				Cause:   err,
			}
		}

		attrs := []any{"error", err, "kind", errs.KindOf(err).String()}
		var appErr *errs.AppError
		if errors.As(err, &appErr) && appErr.UpstreamStatus != 0 {
			attrs = append(attrs, "target_status", appErr.UpstreamStatus)
		}
		logger.Error("audit failed", attrs...)
		return nil, err
	}

	var issues int
	for i := range result.Pages {
		issues += result.Pages[i].Issues.Len()
	}
	logger.Info("audit complete",
		"run_id", result.RunID,
		"pages", len(result.Pages),
		"page_issues", issues,
		"site_issues", result.Issues.Len(),
	)
	return result, nil
}
