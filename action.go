package blockstpl

import (
	"strings"
)

// ----------------------------- Action tags ----------------------------------

const (
	actionOpen  = "{%"
	actionClose = "%}"
)

// actionTag is a matched {% name params %} tag. start and end delimit the
// whole tag in the pass input.
type actionTag struct {
	name       string
	params     string
	start, end int
}

type directive func(c *compilation, tag actionTag) string

// directives is the dispatch table for action tags. Names match exactly.
var directives = map[string]directive{
	"layout":     (*compilation).layoutAction,
	"region":     (*compilation).regionAction,
	"/region":    (*compilation).endRegionAction,
	"endregion":  (*compilation).endRegionAction,
	"include":    (*compilation).includeAction,
	"foreach":    (*compilation).foreachAction,
	"/foreach":   (*compilation).endForeachAction,
	"endforeach": (*compilation).endForeachAction,
	"if":         (*compilation).ifAction,
	"elseif":     (*compilation).elseIfAction,
	"else":       (*compilation).elseAction,
	"/if":        (*compilation).endIfAction,
	"endif":      (*compilation).endIfAction,
	"redirect":   (*compilation).redirectAction,
}

// parseActions replaces every action tag with generated code.
func (c *compilation) parseActions(text string) string {
	rw := newRewriter(text)
	pos := 0
	for {
		idx := strings.Index(text[pos:], actionOpen)
		if idx < 0 {
			break
		}
		idx += pos
		tag, ok := matchAction(text, idx)
		if !ok {
			pos = idx + 1
			continue
		}
		rw.replace(tag.start, tag.end, c.dispatch(tag))
		pos = tag.end
	}
	out, m := rw.finish()
	c.sm = append(c.sm, m)
	return out
}

func (c *compilation) dispatch(tag actionTag) string {
	d, ok := directives[tag.name]
	if !ok {
		c.drop(tag.start, tag.end, "Unknown directive", "The directive \""+tag.name+"\" is not recognized and produces no output.")
		return ""
	}
	return d(c, tag)
}

// matchAction matches a tag starting at text[start:]. Whitespace may span
// lines around the name, but the parameters must sit on one line and the tag
// ends at the first close delimiter.
func matchAction(text string, start int) (actionTag, bool) {
	i := start + len(actionOpen)
	for i < len(text) && isSpaceByte(text[i]) {
		i++
	}
	nameStart := i
	if i < len(text) && text[i] == '/' {
		i++
	}
	wordStart := i
	for i < len(text) && isWordByte(text[i]) {
		i++
	}
	if i == wordStart {
		return actionTag{}, false
	}
	tag := actionTag{name: text[nameStart:i], start: start}

	j := i
	for j < len(text) && isSpaceByte(text[j]) {
		j++
	}
	if strings.HasPrefix(text[j:], actionClose) {
		tag.end = j + len(actionClose)
		return tag, true
	}
	if j == i {
		// params need leading whitespace
		return actionTag{}, false
	}
	end := strings.Index(text[j:], actionClose)
	if end < 0 {
		return actionTag{}, false
	}
	params := fastTrim(text[j : j+end])
	if strings.ContainsRune(params, '\n') {
		return actionTag{}, false
	}
	tag.params = params
	tag.end = j + end + len(actionClose)
	return tag, true
}

// ----------------------------- Directives -----------------------------------

func (c *compilation) layoutAction(tag actionTag) string {
	c.hasLayout = true
	return c.d.Layout(c.parseParam(tag.params))
}

func (c *compilation) regionAction(tag actionTag) string {
	c.hasLayout = true
	return c.d.BeginRegion(c.parseParam(tag.params))
}

func (c *compilation) endRegionAction(actionTag) string {
	return c.d.EndWidget()
}

func (c *compilation) includeAction(tag actionTag) string {
	return c.d.Include(c.parseParam(tag.params))
}

func (c *compilation) foreachAction(tag actionTag) string {
	clause, ok := parseForeach(tag.params)
	if !ok {
		c.drop(tag.start, tag.end, "Malformed foreach",
			"Expected \"<collection> as [<key> =>] <value>\", got \""+tag.params+"\".")
		return ""
	}
	coll := c.expression(clause.coll, false)
	return c.d.Foreach(coll, clause.key, clause.val)
}

func (c *compilation) endForeachAction(actionTag) string {
	return c.d.EndForeach()
}

func (c *compilation) ifAction(tag actionTag) string {
	return c.d.If(c.expression(tag.params, true))
}

func (c *compilation) elseIfAction(tag actionTag) string {
	return c.d.ElseIf(c.expression(tag.params, true))
}

func (c *compilation) elseAction(actionTag) string {
	return c.d.Else()
}

func (c *compilation) endIfAction(actionTag) string {
	return c.d.EndIf()
}

func (c *compilation) redirectAction(tag actionTag) string {
	return c.d.Redirect(c.parseParam(tag.params))
}

// ----------------------------- Parameters -----------------------------------

// expression rewrites every tag in src in place.
func (c *compilation) expression(src string, toString bool) string {
	g := codegen{d: c.d, vars: c.vars, toString: toString}
	return g.generate(parseExpr(src))
}

// parseParam turns a single action parameter into a string expression. One
// level of matching quotes is stripped; the rest is literal text with
// {{ tag }} interpolations.
func (c *compilation) parseParam(s string) string {
	s = unquote(s)
	var parts []Part
	pos := 0
	for {
		vt, ok := nextVarTag(s, pos)
		if !ok {
			break
		}
		parts = append(parts, Part{Text: s[pos:vt.start]})
		parts = append(parts, Part{Text: c.expression(vt.expr, true), IsCode: true})
		pos = vt.end
	}
	parts = append(parts, Part{Text: s[pos:]})
	return c.d.Interpolate(parts)
}

// foreachClause is "<coll> as [<key> =>] <val>".
type foreachClause struct {
	coll, key, val string
}

// parseForeach takes the last " as " that leaves a valid binding list.
func parseForeach(params string) (foreachClause, bool) {
	toks, err := lexExpr(params)
	if err != nil {
		return foreachClause{}, false
	}
	n := len(toks)
	if n > 0 && toks[n-1].kind == tokSpace {
		n--
	}
	ident := func(i int) bool {
		return i >= 0 && i < n && toks[i].kind == tokIdent && isLetter(toks[i].text[0])
	}
	space := func(i int) bool { return i >= 0 && toks[i].kind == tokSpace }
	optSpace := func(i int) int {
		if space(i) {
			return i - 1
		}
		return i
	}

	i := n - 1
	if !ident(i) {
		return foreachClause{}, false
	}
	clause := foreachClause{val: toks[i].text}
	i--

	if j := optSpace(i); j >= 1 && toks[j].is(tokPunct, ">") && toks[j-1].is(tokPunct, "=") {
		k := optSpace(j - 2)
		if !ident(k) {
			return foreachClause{}, false
		}
		clause.key = toks[k].text
		i = k - 1
	}

	// \s+ as \s+ <coll>
	if !space(i) || i < 1 || !toks[i-1].is(tokIdent, "as") || !space(i-2) || i-3 < 0 {
		return foreachClause{}, false
	}
	clause.coll = params[:toks[i-2].off]
	if fastTrim(clause.coll) == "" {
		return foreachClause{}, false
	}
	return clause, true
}
