package blockstpl

import (
	"errors"
	"fmt"

	"github.com/hashicorp/hcl/v2"
)

// ErrMissingSource is matched by errors.Is for every MissingSourceError.
var ErrMissingSource = errors.New("template does not exist")

// MissingSourceError reports a source template that could not be resolved to
// a regular file.
type MissingSourceError struct {
	Path string
	Err  error
}

func (e *MissingSourceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("the template %q does not exist", e.Path)
	}
	return fmt.Sprintf("the template %q does not exist: %v", e.Path, e.Err)
}

func (e *MissingSourceError) Unwrap() error { return e.Err }

func (e *MissingSourceError) Is(target error) bool { return target == ErrMissingSource }

// diagnostic builds a positioned diagnostic for src[start:end] of the pass
// whose input maps back to the original source through c.sm.
func (c *compilation) diagnostic(sev hcl.DiagnosticSeverity, start, end int, summary, detail string) *hcl.Diagnostic {
	so, eo := c.sm.origin(start), c.sm.origin(end)
	if eo < so {
		eo = so
	}
	return &hcl.Diagnostic{
		Severity: sev,
		Summary:  summary,
		Detail:   detail,
		Subject: &hcl.Range{
			Filename: c.filename,
			Start:    position(c.src, so),
			End:      position(c.src, eo),
		},
	}
}

// drop records a construct that compiles to nothing. Strict compilations
// fail on it; lenient ones keep it as a warning.
func (c *compilation) drop(start, end int, summary, detail string) {
	sev := hcl.DiagWarning
	if c.opts.strict {
		sev = hcl.DiagError
	}
	c.diags = append(c.diags, c.diagnostic(sev, start, end, summary, detail))
}
