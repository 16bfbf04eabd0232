package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"sitelinks/internal/config"
	"sitelinks/internal/watch"
)

func newWatchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [build-dir]",
		Short: "Re-check links whenever the built site changes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := a.load(args)
			if err != nil {
				return err
			}

			w, err := watch.New(logger, cfg.BuildDir, cfg.Debounce)
			if err != nil {
				return err
			}
			defer w.Close()

			logger.Info("Watching for changes", slog.String("build_dir", cfg.BuildDir), slog.Duration("debounce", cfg.Debounce))
			err = w.Run(cmd.Context(), func(ctx context.Context) error {
				failed, err := runCheck(ctx, logger, cfg, a.stdout)
				if failed {
					logger.WarnContext(ctx, "Broken links found")
				}
				return err
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().Duration("debounce", 0, "quiet period after a change before re-checking (default 300ms)")
	bindFlags(a.v, cmd.Flags(), map[string]string{"debounce": config.KeyDebounce})
	return cmd
}
