package blockstpl

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArtifactPaths(t *testing.T) {
	root := filepath.FromSlash("/srv/views")
	cache := filepath.FromSlash("/srv/cache")
	tests := []struct {
		source   string
		artifact string
		meta     string
	}{
		{source: "page.html", artifact: "page.html.php", meta: "page.html.meta"},
		{source: "site/list.tpl", artifact: "site/list.tpl.php", meta: "site/list.tpl.meta"},
		{source: "raw.php", artifact: "raw.php", meta: "raw.php.meta"},
		{source: "RAW.PHP", artifact: "RAW.PHP", meta: "RAW.PHP.meta"},
		{source: "noext", artifact: "noext.php", meta: "noext.meta"},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			src := filepath.Join(root, filepath.FromSlash(tt.source))
			p := artifactPaths(root, cache, src, ".php")
			assert.Equal(t, src, p.Source)
			assert.Equal(t, filepath.Join(cache, filepath.FromSlash(tt.artifact)), p.Artifact)
			assert.Equal(t, filepath.Join(cache, filepath.FromSlash(tt.meta)), p.Meta)
		})
	}
}

func TestArtifactPaths_OutsideRoot(t *testing.T) {
	root := filepath.FromSlash("/srv/views")
	cache := filepath.FromSlash("/srv/cache")
	src := filepath.FromSlash("/srv/other/a.html")
	p := artifactPaths(root, cache, src, ".php")
	assert.True(t, strings.HasPrefix(p.Artifact, cache+string(filepath.Separator)))
	assert.True(t, strings.HasSuffix(p.Artifact, filepath.Join("srv", "other", "a.html.php")))
	assert.NotContains(t, p.Artifact, "..")
}

func TestResolveSource(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "page.html")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	got, err := resolveSource(file)
	require.NoError(t, err)
	assert.Equal(t, file, got)

	for _, bad := range []string{filepath.Join(dir, "missing.html"), dir} {
		_, err := resolveSource(bad)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMissingSource)
		var mse *MissingSourceError
		require.ErrorAs(t, err, &mse)
		assert.Equal(t, bad, mse.Path)
	}
}
