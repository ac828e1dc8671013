package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Bahjat/seo-audit/internal/model"
	"github.com/Bahjat/seo-audit/internal/platform/errs"
	"github.com/Bahjat/seo-audit/internal/reporter"
)

func newAuditCommand(a *app) *cobra.Command {
	var (
		format   string
		output   string
		progress bool
	)

	cmd := &cobra.Command{
		Use:   "audit <url>...",
		Short: "Audit a site or a list of pages",
		Long: `Audit crawls from a single URL, following links within the site up to
--max-depth and --max-pages. With several URLs, each is audited as given
and no links are followed.

The first interrupt stops the crawl and audits the pages fetched so far.
A second interrupt aborts.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := reporter.ParseFormat(format)
			if err != nil {
				return &errs.AppError{Kind: errs.InvalidInput, Message: "invalid --format", Cause: err}
			}

			p, err := newPipeline(a.cfg.Audit, a.logger)
			if err != nil {
				return &errs.AppError{Kind: errs.InvalidInput, Message: "invalid audit options", Cause: err}
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			stopOnInterrupt(ctx, p.crawler.Stop, cancel)

			var onEvent model.EventHandler
			if progress {
				onEvent = progressPrinter(cmd.ErrOrStderr())
			}

			report, err := p.service.Audit(ctx, args, onEvent)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if output != "" {
				file, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				defer func() { _ = file.Close() }()
				w = file
			}
			return reporter.Write(w, f, report)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&format, "format", "f", string(reporter.FormatJSON), "output format: json, yaml or text")
	fs.StringVarP(&output, "output", "o", "", "write the report to a file instead of stdout")
	fs.BoolVar(&progress, "progress", false, "print crawl events to stderr")
	addAuditFlags(fs)
	return cmd
}

// stopOnInterrupt calls stop on the first SIGINT or SIGTERM and abort on the
// second. It returns once ctx is done.
func stopOnInterrupt(ctx context.Context, stop, abort func()) {
	sig := make(chan os.Signal, 2)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sig)
		select {
		case <-sig:
			stop()
		case <-ctx.Done():
			return
		}
		select {
		case <-sig:
			abort()
		case <-ctx.Done():
		}
	}()
}

func progressPrinter(w io.Writer) model.EventHandler {
	return func(ev model.Event) {
		switch ev.Kind {
		case model.EventAdd:
			_, _ = fmt.Fprintf(w, "+ %s\n", ev.URL)
		case model.EventIgnore:
			_, _ = fmt.Fprintf(w, "- %s (%s)\n", ev.URL, ev.Message)
		case model.EventError:
			_, _ = fmt.Fprintf(w, "! %s %d %s\n", ev.URL, ev.Code, ev.Message)
		case model.EventDone:
			_, _ = fmt.Fprintf(w, "done %s\n", ev.URL)
		}
	}
}
