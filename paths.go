package blockstpl

import (
	"os"
	"path/filepath"
	"strings"
)

// Paths locates a source template and its cache files.
type Paths struct {
	Source   string
	Artifact string
	// Meta is the verification copy of the source.
	Meta string
}

// artifactPaths mirrors source's path below templateRoot under cacheRoot.
// The meta path is taken before ext is forced onto the artifact, so
// "page.html" caches as "page.html.php" next to "page.html.meta".
func artifactPaths(templateRoot, cacheRoot, source, ext string) Paths {
	rel, err := filepath.Rel(templateRoot, source)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		// outside the root: mirror the absolute path instead
		rel = strings.TrimLeft(strings.TrimPrefix(source, filepath.VolumeName(source)), `/\`)
	}
	base := filepath.Join(cacheRoot, rel)
	p := Paths{Source: source, Artifact: base, Meta: base + ".meta"}
	if !strings.EqualFold(filepath.Ext(rel), ext) {
		p.Artifact += ext
	}
	return p
}

// resolveSource returns the absolute path of a template that exists as a
// regular file.
func resolveSource(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", &MissingSourceError{Path: path, Err: err}
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", &MissingSourceError{Path: path, Err: err}
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", &MissingSourceError{Path: path, Err: err}
	}
	if !info.Mode().IsRegular() {
		return "", &MissingSourceError{Path: path}
	}
	return abs, nil
}
