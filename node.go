package blockstpl

import (
	"strings"
)

// ----------------------------- AST & codegen --------------------------------

// exprNode is one piece of a parsed expression span.
type exprNode interface {
	gen(g *codegen, sb *strings.Builder)
}

// rawNode is source text that passes through untouched.
type rawNode struct{ text string }

func (n rawNode) gen(_ *codegen, sb *strings.Builder) {
	sb.WriteString(n.text)
}

// literalNode is a number or quoted string in argument position. Quoted
// strings keep their original quoting.
type literalNode struct{ text string }

func (n literalNode) gen(_ *codegen, sb *strings.Builder) {
	sb.WriteString(n.text)
}

// tagNode is a variable reference with its chain of subtag calls.
type tagNode struct {
	name    string
	off     int
	subtags []subtagNode
}

type subtagNode struct {
	fn   string
	args []exprNode
}

func (n tagNode) gen(g *codegen, sb *strings.Builder) {
	g.vars.add(n.name)
	ref := g.d.Reference(n.name)
	for _, st := range n.subtags {
		args := make([]string, 0, len(st.args))
		for _, a := range st.args {
			var asb strings.Builder
			a.gen(g, &asb)
			args = append(args, asb.String())
		}
		ref = g.d.Subtag(ref, st.fn, args)
	}
	if g.toString {
		ref = g.d.ToString(ref)
	}
	sb.WriteString(ref)
}

type codegen struct {
	d        Dialect
	vars     *registry
	toString bool
}

func (g *codegen) generate(nodes []exprNode) string {
	var sb strings.Builder
	for _, n := range nodes {
		n.gen(g, &sb)
	}
	return sb.String()
}

// registry records variable names in first-seen order.
type registry struct {
	names []string
	seen  map[string]struct{}
}

func newRegistry() *registry {
	return &registry{seen: make(map[string]struct{})}
}

func (r *registry) add(name string) {
	if _, ok := r.seen[name]; ok {
		return
	}
	r.seen[name] = struct{}{}
	r.names = append(r.names, name)
}

func (r *registry) list() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}
