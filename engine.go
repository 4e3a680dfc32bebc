package blockstpl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/hcl/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ----------------------------- Engine ---------------------------------------

// Host executes compiled artifacts. It is the rendering environment the
// generated code runs in.
type Host interface {
	// Execute runs the artifact at path with tags in scope. When capture is
	// set the produced output is returned instead of being emitted.
	Execute(ctx context.Context, artifact string, tags map[string]any, capture bool) (string, error)
}

// Result describes the cache state of one template after Prepare.
type Result struct {
	Paths
	// Compiled is set when the artifact was regenerated by this call.
	Compiled    bool
	Size        int64
	Variables   []string
	HasLayout   bool
	Markers     int
	Diagnostics hcl.Diagnostics
}

type EngineOption func(*EngineOptions)

type EngineOptions struct {
	devMode  bool
	strict   bool
	fileMode os.FileMode
	dialect  Dialect
	logger   *zap.Logger
	metrics  *Metrics
	memoSize int
}

// WithDevMode makes every request recompile its template.
func WithDevMode(dev bool) EngineOption { return func(eo *EngineOptions) { eo.devMode = dev } }

// WithStrictMode fails compilation on directives that would be dropped.
func WithStrictMode(strict bool) EngineOption { return func(eo *EngineOptions) { eo.strict = strict } }

// WithFileMode sets the permission bits applied to artifacts. Zero skips the
// chmod.
func WithFileMode(mode os.FileMode) EngineOption {
	return func(eo *EngineOptions) { eo.fileMode = mode }
}

func WithEngineDialect(d Dialect) EngineOption { return func(eo *EngineOptions) { eo.dialect = d } }

func WithLogger(l *zap.Logger) EngineOption { return func(eo *EngineOptions) { eo.logger = l } }

func WithMetrics(m *Metrics) EngineOption { return func(eo *EngineOptions) { eo.metrics = m } }

// WithMemoSize bounds the in-memory cache used by CompileString.
func WithMemoSize(n int) EngineOption { return func(eo *EngineOptions) { eo.memoSize = n } }

// Engine compiles templates below a template root into artifacts below a
// cache root and hands them to a Host.
type Engine struct {
	templateRoot string
	cacheRoot    string
	gate         Gatekeeper
	strict       bool
	fileMode     os.FileMode
	dialect      Dialect
	log          *zap.Logger
	metrics      *Metrics
	memo         *CompileCache
	group        singleflight.Group
}

// New creates an engine. Both roots are made absolute.
func New(templateRoot, cacheRoot string, opts ...EngineOption) (*Engine, error) {
	eo := EngineOptions{
		fileMode: 0o755,
		dialect:  DefaultPHP(),
		logger:   zap.NewNop(),
		memoSize: 500,
	}
	for _, o := range opts {
		o(&eo)
	}

	tr, err := filepath.Abs(templateRoot)
	if err != nil {
		return nil, fmt.Errorf("template root %q: %w", templateRoot, err)
	}
	cr, err := filepath.Abs(cacheRoot)
	if err != nil {
		return nil, fmt.Errorf("cache root %q: %w", cacheRoot, err)
	}

	return &Engine{
		templateRoot: tr,
		cacheRoot:    cr,
		gate:         Gatekeeper{DevMode: eo.devMode},
		strict:       eo.strict,
		fileMode:     eo.fileMode,
		dialect:      eo.dialect,
		log:          eo.logger,
		metrics:      eo.metrics,
		memo:         NewCompileCache(eo.memoSize),
	}, nil
}

func (e *Engine) TemplateRoot() string { return e.templateRoot }
func (e *Engine) CacheRoot() string    { return e.cacheRoot }

// Paths resolves a template and returns where its cache files live.
func (e *Engine) Paths(path string) (Paths, error) {
	abs, err := resolveSource(path)
	if err != nil {
		return Paths{}, err
	}
	return artifactPaths(e.templateRoot, e.cacheRoot, abs, e.dialect.Extension()), nil
}

// NeedsCompile reports whether path would be recompiled by Prepare.
func (e *Engine) NeedsCompile(path string) (bool, error) {
	p, err := e.Paths(path)
	if err != nil {
		return false, err
	}
	return e.needsCompile(p), nil
}

func (e *Engine) needsCompile(p Paths) bool {
	if e.gate.NeedsCompile(p.Source, p.Meta) {
		return true
	}
	// a verification copy without its artifact cannot be reused
	_, err := os.Stat(p.Artifact)
	return err != nil
}

// Prepare makes sure the artifact for path is current, compiling it when
// the source changed since the last compile.
func (e *Engine) Prepare(ctx context.Context, path string) (*Result, error) {
	p, err := e.Paths(path)
	if err != nil {
		return nil, err
	}
	if !e.needsCompile(p) {
		e.decision(LabelReuse)
		e.log.Debug("Reusing compiled template", zap.String("source", p.Source), zap.String("artifact", p.Artifact))
		return &Result{Paths: p}, nil
	}
	e.decision(LabelCompile)
	return e.compile(ctx, p)
}

// CompileFile compiles path regardless of the cache state.
func (e *Engine) CompileFile(ctx context.Context, path string) (*Result, error) {
	p, err := e.Paths(path)
	if err != nil {
		return nil, err
	}
	e.decision(LabelCompile)
	return e.compile(ctx, p)
}

// Render prepares the template at path and executes its artifact on host.
func (e *Engine) Render(ctx context.Context, host Host, path string, tags map[string]any, capture bool) (string, error) {
	res, err := e.Prepare(ctx, path)
	if err != nil {
		return "", err
	}
	return host.Execute(ctx, res.Artifact, tags, capture)
}

// CompileString compiles src without touching the disk. Results are
// memoised in memory.
func (e *Engine) CompileString(src string) (*Output, error) {
	return e.memo.Compile(src, WithDialect(e.dialect), WithStrict(e.strict))
}

func (e *Engine) compile(ctx context.Context, p Paths) (*Result, error) {
	v, err, shared := e.group.Do(p.Artifact, func() (any, error) {
		return e.compileAndPersist(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	res := *v.(*Result)
	if shared {
		e.log.Debug("Joined in-flight compile", zap.String("source", p.Source))
	}
	return &res, nil
}

func (e *Engine) compileAndPersist(ctx context.Context, p Paths) (_ *Result, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	log := e.log.With(zap.String("source", p.Source))
	defer func() {
		if e.metrics == nil {
			return
		}
		e.metrics.CompileDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			e.metrics.Compiles.WithLabelValues(LabelError).Inc()
		} else {
			e.metrics.Compiles.WithLabelValues(LabelSuccess).Inc()
		}
	}()

	src, err := os.ReadFile(p.Source)
	if err != nil {
		return nil, &MissingSourceError{Path: p.Source, Err: err}
	}
	out, err := Compile(string(src), WithDialect(e.dialect), WithStrict(e.strict), WithFilename(p.Source))
	if err != nil {
		log.Error("Template compile failed", zap.Error(err))
		return nil, fmt.Errorf("compiling template %q: %w", p.Source, err)
	}
	for _, d := range out.Diagnostics {
		log.Debug("Dropped template construct",
			zap.String("summary", d.Summary),
			zap.Stringer("range", d.Subject))
	}

	warn, err := persist(p, []byte(out.Code), src, e.fileMode)
	if err != nil {
		log.Error("Persisting artifact failed", zap.Error(err))
		return nil, err
	}
	if warn != nil {
		log.Warn("Cache write incomplete", zap.Error(warn))
	}
	if e.metrics != nil {
		e.metrics.Markers.Add(float64(out.Markers))
	}

	log.Info("Compiled template",
		zap.String("artifact", p.Artifact),
		zap.Int("variables", len(out.Variables)),
		zap.Int("markers", out.Markers),
		zap.Duration("elapsed", time.Since(start)))

	return &Result{
		Paths:       p,
		Compiled:    true,
		Size:        int64(len(out.Code)),
		Variables:   out.Variables,
		HasLayout:   out.HasLayout,
		Markers:     out.Markers,
		Diagnostics: out.Diagnostics,
	}, nil
}

func (e *Engine) decision(label string) {
	if e.metrics != nil {
		e.metrics.Decisions.WithLabelValues(label).Inc()
	}
}
