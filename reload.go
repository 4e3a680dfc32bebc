package blockstpl

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ----------------------------- Template watcher -----------------------------

// DefaultExtensions selects template files when none are given.
var DefaultExtensions = []string{".html", ".tpl", ".php"}

// ReloadCallback is called after a watched template was recompiled, or
// failed to.
type ReloadCallback func(path string, res *Result, err error)

// Templates lists the template files below the template root with one of
// the given extensions, sorted by path. The cache root is skipped when it
// lives inside the template root.
func (e *Engine) Templates(exts ...string) ([]string, error) {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	var files []string
	err := filepath.WalkDir(e.templateRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path == e.cacheRoot {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		ext := filepath.Ext(path)
		for _, x := range exts {
			if strings.EqualFold(ext, x) {
				files = append(files, path)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing templates in %q: %w", e.templateRoot, err)
	}
	sort.Strings(files)
	return files, nil
}

// Warm prepares every template below the root concurrently. Per-file
// failures are collected; the returned results hold the successes.
func (e *Engine) Warm(ctx context.Context, exts ...string) ([]*Result, error) {
	files, err := e.Templates(exts...)
	if err != nil {
		return nil, err
	}

	var (
		mu      sync.Mutex
		results []*Result
		errs    error
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, f := range files {
		g.Go(func() error {
			res, err := e.Prepare(ctx, f)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = multierr.Append(errs, err)
				return nil
			}
			results = append(results, res)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		errs = multierr.Append(errs, err)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Source < results[j].Source })
	return results, errs
}

// Watcher polls the template root and recompiles templates whose source
// changed.
type Watcher struct {
	engine   *Engine
	exts     []string
	interval time.Duration

	mu        sync.RWMutex
	callbacks []ReloadCallback
	stopChan  chan struct{}
	stopped   bool
}

// NewWatcher creates a watcher polling every interval (one second if zero).
func (e *Engine) NewWatcher(interval time.Duration, exts ...string) *Watcher {
	if interval == 0 {
		interval = 1 * time.Second
	}
	return &Watcher{
		engine:   e,
		exts:     exts,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// AddCallback adds a callback to be called when templates are recompiled.
func (w *Watcher) AddCallback(cb ReloadCallback) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, cb)
}

// Start runs the watch loop in the background until Stop is called.
func (w *Watcher) Start() {
	go w.Run(context.Background())
}

func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.stopped {
		w.stopped = true
		close(w.stopChan)
	}
	w.mu.Unlock()
}

// Run checks the templates every interval until ctx is done or Stop is
// called.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopChan:
			return nil
		case <-ticker.C:
			if err := w.CheckOnce(ctx); err != nil {
				w.engine.log.Warn("Template check failed", zap.Error(err))
			}
		}
	}
}

// CheckOnce recompiles every template that changed and returns the
// combined errors.
func (w *Watcher) CheckOnce(ctx context.Context) error {
	files, err := w.engine.Templates(w.exts...)
	if err != nil {
		return err
	}

	var errs error
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return multierr.Append(errs, err)
		}
		p, err := w.engine.Paths(f)
		if err != nil {
			// removed between listing and resolving
			continue
		}
		if !w.engine.needsCompile(p) {
			continue
		}
		w.engine.decision(LabelCompile)
		res, err := w.engine.compile(ctx, p)
		errs = multierr.Append(errs, err)
		w.notify(f, res, err)
	}
	return errs
}

func (w *Watcher) notify(path string, res *Result, err error) {
	w.mu.RLock()
	cbs := append([]ReloadCallback(nil), w.callbacks...)
	w.mu.RUnlock()
	for _, cb := range cbs {
		cb(path, res, err)
	}
}
