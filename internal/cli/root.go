// Package cli implements the seoaudit command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Bahjat/seo-audit/internal/platform/config"
	"github.com/Bahjat/seo-audit/internal/platform/errs"
	"github.com/Bahjat/seo-audit/internal/platform/logger"
)

// Exit codes.
const (
	ExitOK           = 0
	ExitFailure      = 1
	ExitInvalidInput = 2
	ExitUnreachable  = 3
)

var version = "dev"

// SetVersion records the build version shown by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// app carries state shared by the subcommands once flags are parsed.
type app struct {
	configFile string
	cfg        config.Config
	logger     *slog.Logger
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "seoaudit",
		Short: "Crawl a site and grade its SEO issues",
		Long: `seoaudit crawls a site, or audits a list of pages, and reports graded
SEO issues per page and for the whole site.

Settings are read from seoaudit.yaml, SEOAUDIT_* environment variables
and flags, in increasing order of precedence.

  seoaudit audit https://example.com
  seoaudit audit --format text --max-depth 2 https://example.com
  seoaudit serve --port 8080`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.configFile, cmd.Flags())
			if err != nil {
				return &errs.AppError{Kind: errs.InvalidInput, Message: "invalid configuration", Cause: err}
			}
			a.cfg = cfg
			a.logger = logger.NewWithWriter(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "config file (default: ./seoaudit.yaml or ~/seoaudit.yaml)")
	pf.String("log-level", "ERROR", "log level: DEBUG, INFO, WARN or ERROR")
	pf.String("log-format", "json", "log format: json or text")

	root.AddCommand(newAuditCommand(a), newServeCommand(a), newVersionCommand())
	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "seoaudit %s\n", version)
			return err
		},
	}
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := NewRootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return exitCode(err)
}

func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var appErr *errs.AppError
	if !errors.As(err, &appErr) {
		return ExitFailure
	}
	switch appErr.Kind {
	case errs.InvalidInput:
		return ExitInvalidInput
	case errs.Unreachable:
		return ExitUnreachable
	default:
		return ExitFailure
	}
}
