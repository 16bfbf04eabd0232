package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"sitelinks/internal/checker"
	"sitelinks/internal/config"
	"sitelinks/internal/report"
)

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check [build-dir]",
		Short: "Check every link in a built site once",
		Long: `Check walks build-dir (default ./build), checks every anchor in every HTML
page and writes a report to stdout. The exit status is non-zero when any
link is broken or the walk itself failed.

Examples:
  sitelinks check build
  sitelinks check --external --format json public`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := a.load(args)
			if err != nil {
				return err
			}
			failed, err := runCheck(cmd.Context(), logger, cfg, a.stdout)
			if err != nil {
				return err
			}
			if failed {
				return errLinksBroken
			}
			return nil
		},
	}
}

// runCheck runs one pass and writes its report to out. It reports whether
// any check failed.
func runCheck(ctx context.Context, logger *slog.Logger, cfg *config.Config, out io.Writer) (bool, error) {
	rep, err := report.New(cfg.Format, out)
	if err != nil {
		return false, err
	}
	if err := rep.Begin(); err != nil {
		return false, err
	}

	result, err := checker.Run(ctx, logger, cfg.Options(), rep.Result)
	if err != nil {
		return false, err
	}
	if err := rep.End(result); err != nil {
		return false, err
	}
	return result.Failed(), nil
}
