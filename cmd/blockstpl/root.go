package main

import (
	"fmt"
	"io"
	"os"

	"github.com/oarkflow/blockstpl"
	"github.com/oarkflow/blockstpl/internal/cli"
	"github.com/oarkflow/blockstpl/internal/config"
	"github.com/oarkflow/blockstpl/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type globalOptions struct {
	configPath   string
	templateRoot string
	cacheRoot    string
	dev          bool
	strict       bool
	logLevel     zapcore.Level
	logFormat    string
}

// app is what every subcommand runs against, built once the flags are
// parsed.
type app struct {
	cfg     *config.Config
	engine  *blockstpl.Engine
	log     *zap.Logger
	metrics *blockstpl.Metrics
	out     io.Writer
}

func newRootCommand(out io.Writer) *cobra.Command {
	var (
		opts globalOptions
		a    app
	)
	v := cli.NewViper("blockstpl")
	defaults := config.Default()

	root := &cobra.Command{
		Use:           "blockstpl",
		Short:         "Compile Blocks templates into cached PHP views",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			built, err := buildApp(v, &opts, out)
			if err != nil {
				return err
			}
			a = *built
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	root.SetOut(out)

	persistent := []cli.Opt{
		{DestP: &opts.configPath, Flag: "config", Desc: "path to an .hcl or .toml config file"},
		{DestP: &opts.templateRoot, Flag: "template-root", Default: defaults.TemplateRoot, Desc: "directory holding the template sources"},
		{DestP: &opts.cacheRoot, Flag: "cache-root", Default: defaults.CacheRoot, Desc: "directory receiving compiled artifacts"},
		{DestP: &opts.dev, Flag: "dev", Default: false, Desc: "recompile on every request"},
		{DestP: &opts.strict, Flag: "strict", Default: false, Desc: "fail on unknown or malformed directives"},
		{DestP: &opts.logLevel, Flag: "log-level", Default: zapcore.InfoLevel, Desc: "supported log levels are debug, info, warn and error"},
		{DestP: &opts.logFormat, Flag: "log-format", Default: defaults.Log.Format, Desc: "log format: auto, console, json or logfmt"},
	}
	for i := range persistent {
		persistent[i].Persistent = true
	}
	cli.BindOptions(v, root, persistent)

	root.AddCommand(
		newCompileCommand(&a),
		newCheckCommand(&a),
		newWarmCommand(&a),
		newWatchCommand(&a),
		newServeCommand(&a),
		newCleanCommand(&a),
	)
	return root
}

// buildApp layers the config file, then env vars and flags, over the
// defaults.
func buildApp(v *viper.Viper, opts *globalOptions, out io.Writer) (*app, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if cli.Changed(v, "template-root") {
		cfg.TemplateRoot = opts.templateRoot
	}
	if cli.Changed(v, "cache-root") {
		cfg.CacheRoot = opts.cacheRoot
	}
	if cli.Changed(v, "dev") {
		cfg.DevMode = opts.dev
	}
	if cli.Changed(v, "strict") {
		cfg.Strict = opts.strict
	}
	if cli.Changed(v, "log-level") {
		cfg.Log.Level = opts.logLevel.String()
	}
	if cli.Changed(v, "log-format") {
		cfg.Log.Format = opts.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	lc, _ := cfg.Logger()
	log, err := logger.New(os.Stderr, lc)
	if err != nil {
		return nil, err
	}
	mode, _ := cfg.Mode()
	metrics := blockstpl.NewMetrics()

	engine, err := blockstpl.New(cfg.TemplateRoot, cfg.CacheRoot,
		blockstpl.WithDevMode(cfg.DevMode),
		blockstpl.WithStrictMode(cfg.Strict),
		blockstpl.WithFileMode(mode),
		blockstpl.WithLogger(log),
		blockstpl.WithMetrics(metrics),
	)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, engine: engine, log: log, metrics: metrics, out: out}, nil
}

// targets returns the templates named on the command line, or every
// template below the root.
func (a *app) targets(args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	return a.engine.Templates(a.cfg.Extensions...)
}
