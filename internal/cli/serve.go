package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Bahjat/seo-audit/internal/analyzer"
	"github.com/Bahjat/seo-audit/internal/platform/middleware"
)

const shutdownTimeout = 15 * time.Second

func newServeCommand(a *app) *cobra.Command {
	var auditTimeout time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve audits over HTTP",
		Long: `Serve exposes POST /audit, which takes {"url": "..."} or {"urls": [...]}
and answers with the summary report, and GET /healthz.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ln, err := net.Listen("tcp", ":"+a.cfg.Port)
			if err != nil {
				return fmt.Errorf("listen: %w", err)
			}
			handler, err := a.handler(auditTimeout)
			if err != nil {
				_ = ln.Close()
				return err
			}
			return a.serve(ctx, ln, handler)
		},
	}

	fs := cmd.Flags()
	fs.String("port", "8080", "port to listen on")
	fs.DurationVar(&auditTimeout, "audit-timeout", analyzer.DefaultAuditTimeout, "upper bound for one audit request")
	addAuditFlags(fs)
	return cmd
}

func (a *app) handler(auditTimeout time.Duration) (http.Handler, error) {
	p, err := newPipeline(a.cfg.Audit, a.logger)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	analyzer.NewTransport(p.service, a.logger, auditTimeout).RegisterRoutes(mux)
	return middleware.Chain(mux, middleware.RequestID, middleware.Logging(a.logger)), nil
}

// serve runs until ctx is done, then drains in-flight requests.
func (a *app) serve(ctx context.Context, ln net.Listener, handler http.Handler) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
