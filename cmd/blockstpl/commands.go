package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/oarkflow/blockstpl"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

func newCompileCommand(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "compile [templates...]",
		Short: "Compile templates whose source changed",
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := a.targets(args)
			if err != nil {
				return err
			}
			var errs error
			for _, f := range files {
				var res *blockstpl.Result
				if force {
					res, err = a.engine.CompileFile(cmd.Context(), f)
				} else {
					res, err = a.engine.Prepare(cmd.Context(), f)
				}
				if err != nil {
					errs = multierr.Append(errs, err)
					continue
				}
				a.report(res)
			}
			return errs
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "compile even when the cached artifact is current")
	return cmd
}

func newCheckCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check [templates...]",
		Short: "Report templates that need compiling",
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := a.targets(args)
			if err != nil {
				return err
			}
			stale := 0
			for _, f := range files {
				needs, err := a.engine.NeedsCompile(f)
				if err != nil {
					return err
				}
				state := "fresh"
				if needs {
					state = "stale"
					stale++
				}
				fmt.Fprintf(a.out, "%s\t%s\n", state, a.rel(f))
			}
			if stale > 0 {
				return fmt.Errorf("%d of %d templates need compiling", stale, len(files))
			}
			return nil
		},
	}
}

func newWarmCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "warm",
		Short: "Compile every stale template concurrently",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			results, err := a.engine.Warm(cmd.Context(), a.cfg.Extensions...)
			compiled := 0
			var size int64
			for _, res := range results {
				if res.Compiled {
					compiled++
					size += res.Size
				}
			}
			fmt.Fprintf(a.out, "warmed %d templates, compiled %d (%s)\n",
				len(results), compiled, humanize.Bytes(uint64(size)))
			return err
		},
	}
}

func newWatchCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Recompile templates as their sources change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			interval, _ := a.cfg.WatchInterval()
			w := a.engine.NewWatcher(interval, a.cfg.Extensions...)
			w.AddCallback(func(path string, res *blockstpl.Result, err error) {
				if err != nil {
					a.log.Error("Recompile failed", zap.String("source", path), zap.Error(err))
					return
				}
				a.report(res)
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			a.log.Info("Watching templates",
				zap.String("root", a.engine.TemplateRoot()),
				zap.Duration("interval", interval))
			if err := w.CheckOnce(ctx); err != nil {
				a.log.Warn("Initial compile incomplete", zap.Error(err))
			}
			if err := w.Run(ctx); err != nil && err != context.Canceled {
				return err
			}
			return nil
		},
	}
}

func newCleanCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove the cache root",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			root := a.engine.CacheRoot()
			sep := string(filepath.Separator)
			if strings.HasPrefix(a.engine.TemplateRoot()+sep, root+sep) || root == filepath.Dir(root) {
				return fmt.Errorf("refusing to remove %q", root)
			}
			if err := os.RemoveAll(root); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "removed %s\n", root)
			return nil
		},
	}
}

func (a *app) report(res *blockstpl.Result) {
	if !res.Compiled {
		fmt.Fprintf(a.out, "up to date\t%s\n", a.rel(res.Source))
		return
	}
	fmt.Fprintf(a.out, "compiled\t%s -> %s (%s)\n",
		a.rel(res.Source), res.Artifact, humanize.Bytes(uint64(res.Size)))
	for _, d := range res.Diagnostics {
		fmt.Fprintf(a.out, "\twarning: %s\n", d.Error())
	}
}

func (a *app) rel(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	if r, err := filepath.Rel(a.engine.TemplateRoot(), abs); err == nil {
		return r
	}
	return path
}
