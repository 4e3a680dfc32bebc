package blockstpl

import (
	"github.com/hashicorp/hcl/v2"
)

// ----------------------------- Public API -----------------------------------

// Output is the result of compiling one template source.
type Output struct {
	// Code is the complete artifact text.
	Code string
	// Variables lists every tag name the template reads, in first-seen order.
	Variables []string
	// HasLayout is set when the template uses layout or region.
	HasLayout bool
	// Markers counts the embedded code blocks that were protected.
	Markers int
	// Diagnostics holds warnings for constructs that compiled to nothing.
	Diagnostics hcl.Diagnostics
}

type Option func(*compileOptions)

type compileOptions struct {
	dialect  Dialect
	strict   bool
	filename string
}

// WithDialect sets the target dialect. The default is DefaultPHP().
func WithDialect(d Dialect) Option { return func(co *compileOptions) { co.dialect = d } }

// WithStrict turns dropped directives into compile errors.
func WithStrict(strict bool) Option { return func(co *compileOptions) { co.strict = strict } }

// WithFilename names the source in diagnostics.
func WithFilename(name string) Option { return func(co *compileOptions) { co.filename = name } }

func newCompileOptions(opts []Option) compileOptions {
	co := compileOptions{dialect: DefaultPHP()}
	for _, o := range opts {
		o(&co)
	}
	return co
}

// compilation is the state of one compile run.
type compilation struct {
	src       string
	filename  string
	opts      compileOptions
	d         Dialect
	markers   markerTable
	vars      *registry
	hasLayout bool
	sm        sourceMap
	diags     hcl.Diagnostics
}

// Compile translates template source into artifact code. With WithStrict it
// fails with hcl.Diagnostics when a directive would be dropped.
func Compile(src string, opts ...Option) (*Output, error) {
	co := newCompileOptions(opts)
	c := &compilation{
		src:      src,
		filename: co.filename,
		opts:     co,
		d:        co.dialect,
		vars:     newRegistry(),
	}

	text := c.isolate(src)
	text = c.stripComments(text)
	text = c.parseActions(text)
	text = c.parseVariableTags(text)

	if c.diags.HasErrors() {
		return nil, c.diags
	}
	return &Output{
		Code:        c.assemble(text),
		Variables:   c.vars.list(),
		HasLayout:   c.hasLayout,
		Markers:     c.markers.len(),
		Diagnostics: c.diags,
	}, nil
}

// assemble restores protected code and wraps the body with the lifecycle
// header and footer.
func (c *compilation) assemble(body string) string {
	body = c.markers.restore(body)
	return c.d.Header(c.vars.list(), c.hasLayout) + body + c.d.Footer(c.hasLayout)
}
