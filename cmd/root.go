package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"sitelinks/internal/config"
)

// errLinksBroken is returned when the run finished but some check failed.
// The report already says which, so main exits without printing it again.
var errLinksBroken = errors.New("broken links found")

type app struct {
	v       *viper.Viper
	cfgFile string
	stdout  io.Writer
	stderr  io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{v: viper.New(), stdout: stdout, stderr: stderr}
	config.SetDefaults(a.v)

	root := &cobra.Command{
		Use:   "sitelinks",
		Short: "Check that the links of a built static site resolve",
		Long: `sitelinks walks the output directory of a static site build, extracts
every anchor from every HTML page and checks that each internal link
resolves to a file. Every broken link is reported in one pass.

Settings come from flags, SITELINKS_<KEY> environment variables
(e.g. SITELINKS_EXTERNAL=true) or a YAML file given with --config.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "YAML config file")
	flags.String("content-root", "", "directory the pages were authored in, used in failure messages (default ./content)")
	flags.String("source-ext", "", "extension of authored pages (default .md)")
	flags.Bool("external", false, "also check external http(s) links")
	flags.Int("workers", 0, "concurrent extractors and validators (default 4)")
	flags.Duration("timeout", 0, "timeout per external request (default 10s)")
	flags.Int("retries", 0, "attempts per external link (default 3)")
	flags.StringP("format", "f", "", "report format: tap, json or yaml (default tap)")
	flags.StringP("log-level", "l", "", "log level: debug, info, warn or error (default warn)")

	bindFlags(a.v, flags, map[string]string{
		"content-root": config.KeyContentRoot,
		"source-ext":   config.KeySourceExt,
		"external":     config.KeyExternal,
		"workers":      config.KeyWorkers,
		"timeout":      config.KeyTimeout,
		"retries":      config.KeyRetries,
		"format":       config.KeyFormat,
		"log-level":    config.KeyLogLevel,
	})

	root.AddCommand(newCheckCmd(a), newWatchCmd(a))
	return root
}

// bindFlags binds flags to viper keys. A bound flag only overrides the
// file and environment when it is set on the command line.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) {
	for name, key := range keys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", name, err))
		}
	}
}

// load reads the config file, applies the positional build directory and
// returns the validated config with a logger at the configured level.
func (a *app) load(args []string) (*config.Config, *slog.Logger, error) {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
		if err := a.v.ReadInConfig(); err != nil {
			return nil, nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	if len(args) > 0 {
		a.v.Set(config.KeyBuildDir, args[0])
	}

	cfg, err := config.Load(a.v)
	if err != nil {
		return nil, nil, err
	}
	level, err := cfg.Level()
	if err != nil {
		return nil, nil, err
	}

	logger := slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))
	if a.cfgFile != "" {
		logger.Debug("Using config file", slog.String("path", a.v.ConfigFileUsed()))
	}
	return cfg, logger, nil
}
