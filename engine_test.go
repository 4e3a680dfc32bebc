package blockstpl

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/sync/errgroup"
)

type fakeHost struct {
	mu       sync.Mutex
	calls    []string
	lastTags map[string]any
}

func (h *fakeHost) Execute(_ context.Context, artifact string, tags map[string]any, capture bool) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, artifact)
	h.lastTags = tags
	code, err := os.ReadFile(artifact)
	if err != nil {
		return "", err
	}
	if !capture {
		return "", nil
	}
	return string(code), nil
}

type testEngine struct {
	*Engine
	views, cache string
	metrics      *Metrics
}

func newTestEngine(t *testing.T, opts ...EngineOption) *testEngine {
	t.Helper()
	dir := t.TempDir()
	te := &testEngine{
		views:   filepath.Join(dir, "views"),
		cache:   filepath.Join(dir, "cache"),
		metrics: NewMetrics(),
	}
	require.NoError(t, os.MkdirAll(te.views, 0o755))
	opts = append([]EngineOption{WithLogger(zaptest.NewLogger(t)), WithMetrics(te.metrics)}, opts...)
	e, err := New(te.views, te.cache, opts...)
	require.NoError(t, err)
	te.Engine = e
	return te
}

func (te *testEngine) write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(te.views, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// age moves a file's mtime an hour back.
func age(t *testing.T, path string) {
	t.Helper()
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(path, past, past))
}

func TestEngine_RenderCompilesOnce(t *testing.T) {
	te := newTestEngine(t)
	src := te.write(t, "site/page.html", "<h1>{{ title }}</h1>")
	host := &fakeHost{}
	ctx := context.Background()

	out, err := te.Render(ctx, host, src, map[string]any{"title": "Hi"}, true)
	require.NoError(t, err)
	assert.Equal(t,
		"<?php\nif (!isset($title)) $title = TemplateHelper::getGlobalTag('title');\n$this->layout = null;\n?><h1><?php echo $title ?></h1>",
		out)

	artifact := filepath.Join(te.cache, "site", "page.html.php")
	meta := filepath.Join(te.cache, "site", "page.html.meta")
	assert.Equal(t, []string{artifact}, host.calls)
	assert.Equal(t, "Hi", host.lastTags["title"])

	metaBytes, err := os.ReadFile(meta)
	require.NoError(t, err)
	assert.Equal(t, "<h1>{{ title }}</h1>", string(metaBytes))

	res, err := te.Prepare(ctx, src)
	require.NoError(t, err)
	assert.False(t, res.Compiled)
	assert.Equal(t, artifact, res.Artifact)

	assert.Equal(t, 1.0, testutil.ToFloat64(te.metrics.Decisions.WithLabelValues(LabelCompile)))
	assert.Equal(t, 1.0, testutil.ToFloat64(te.metrics.Decisions.WithLabelValues(LabelReuse)))
	assert.Equal(t, 1.0, testutil.ToFloat64(te.metrics.Compiles.WithLabelValues(LabelSuccess)))
}

func TestEngine_RecompilesAfterEdit(t *testing.T) {
	te := newTestEngine(t)
	src := te.write(t, "page.html", "{{ a }}")
	ctx := context.Background()

	res, err := te.Prepare(ctx, src)
	require.NoError(t, err)
	require.True(t, res.Compiled)
	assert.Equal(t, []string{"a"}, res.Variables)

	age(t, res.Meta)
	te.write(t, "page.html", "{{ b }}")
	needs, err := te.NeedsCompile(src)
	require.NoError(t, err)
	assert.True(t, needs)

	res, err = te.Prepare(ctx, src)
	require.NoError(t, err)
	assert.True(t, res.Compiled)
	assert.Equal(t, []string{"b"}, res.Variables)

	needs, err = te.NeedsCompile(src)
	require.NoError(t, err)
	assert.False(t, needs)
}

func TestEngine_MissingArtifactRecompiles(t *testing.T) {
	te := newTestEngine(t)
	src := te.write(t, "page.html", "x")
	ctx := context.Background()

	res, err := te.Prepare(ctx, src)
	require.NoError(t, err)
	require.NoError(t, os.Remove(res.Artifact))

	res, err = te.Prepare(ctx, src)
	require.NoError(t, err)
	assert.True(t, res.Compiled)
	assert.FileExists(t, res.Artifact)
}

func TestEngine_DevModeAlwaysCompiles(t *testing.T) {
	te := newTestEngine(t, WithDevMode(true))
	src := te.write(t, "page.html", "x")
	for i := 0; i < 3; i++ {
		res, err := te.Prepare(context.Background(), src)
		require.NoError(t, err)
		assert.True(t, res.Compiled)
	}
	assert.Equal(t, 3.0, testutil.ToFloat64(te.metrics.Compiles.WithLabelValues(LabelSuccess)))
}

func TestEngine_ArtifactMode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not meaningful on windows")
	}
	te := newTestEngine(t)
	src := te.write(t, "page.html", "x")
	res, err := te.Prepare(context.Background(), src)
	require.NoError(t, err)
	info, err := os.Stat(res.Artifact)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
}

func TestEngine_PHPSourceKeepsName(t *testing.T) {
	te := newTestEngine(t)
	src := te.write(t, "view.php", "x")
	res, err := te.Prepare(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(te.cache, "view.php"), res.Artifact)
	assert.Equal(t, filepath.Join(te.cache, "view.php.meta"), res.Meta)
}

func TestEngine_MissingSource(t *testing.T) {
	te := newTestEngine(t)
	host := &fakeHost{}

	_, err := te.Render(context.Background(), host, filepath.Join(te.views, "nope.html"), nil, true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingSource))
	assert.Empty(t, host.calls)

	_, err = te.Prepare(context.Background(), te.views)
	assert.ErrorIs(t, err, ErrMissingSource)
}

func TestEngine_StrictFailureWritesNothing(t *testing.T) {
	te := newTestEngine(t, WithStrictMode(true))
	src := te.write(t, "bad.html", "ok\n{% nope %}")

	_, err := te.Prepare(context.Background(), src)
	require.Error(t, err)
	var diags hcl.Diagnostics
	require.ErrorAs(t, err, &diags)
	assert.Equal(t, src, diags[0].Subject.Filename)
	assert.Equal(t, 2, diags[0].Subject.Start.Line)

	assert.NoFileExists(t, filepath.Join(te.cache, "bad.html.php"))
	assert.NoFileExists(t, filepath.Join(te.cache, "bad.html.meta"))
	assert.Equal(t, 1.0, testutil.ToFloat64(te.metrics.Compiles.WithLabelValues(LabelError)))
}

func TestEngine_LenientKeepsDiagnostics(t *testing.T) {
	te := newTestEngine(t)
	src := te.write(t, "page.html", "{% nope %}")
	res, err := te.CompileFile(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, hcl.DiagWarning, res.Diagnostics[0].Severity)
}

func TestEngine_ConcurrentPrepare(t *testing.T) {
	te := newTestEngine(t)
	src := te.write(t, "page.html", "{{ x }}")
	want, err := Compile("{{ x }}")
	require.NoError(t, err)

	var g errgroup.Group
	for i := 0; i < 16; i++ {
		g.Go(func() error {
			_, err := te.Prepare(context.Background(), src)
			return err
		})
	}
	require.NoError(t, g.Wait())

	code, err := os.ReadFile(filepath.Join(te.cache, "page.html.php"))
	require.NoError(t, err)
	assert.Equal(t, want.Code, string(code))

	entries, err := os.ReadDir(te.cache)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".page.html.php.", "temporary file left behind")
	}
}

func TestEngine_CanceledContext(t *testing.T) {
	te := newTestEngine(t)
	src := te.write(t, "page.html", "x")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := te.Prepare(ctx, src)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngine_CompileString(t *testing.T) {
	te := newTestEngine(t)
	a, err := te.CompileString("{{ x }}")
	require.NoError(t, err)
	b, err := te.CompileString("{{ x }}")
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestMetrics_Register(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	reg.MustRegister(NewMetrics().PrometheusCollectors()...)
}
