package blockstpl

// ----------------------------- Expression parser ----------------------------
//
//	Tag       := Identifier Subtag*
//	Subtag    := '.' FuncName ( '(' ParamList? ')' )?
//	ParamList := Param (',' Param)*
//	Param     := Number | QuotedString | Tag

type exprParser struct {
	src  string
	toks []token
}

// parseExpr splits src into tag references and passthrough text. It never
// fails: anything that is not a well-formed tag is kept as raw text.
func parseExpr(src string) []exprNode {
	toks, err := lexExpr(src)
	if err != nil {
		return []exprNode{rawNode{text: src}}
	}
	p := exprParser{src: src, toks: toks}
	return p.parse()
}

func (p *exprParser) parse() []exprNode {
	nodes := make([]exprNode, 0, 4)
	rawStart := -1
	flush := func(end int) {
		if rawStart >= 0 {
			nodes = append(nodes, rawNode{text: p.src[rawStart:end]})
			rawStart = -1
		}
	}
	for i := 0; i < len(p.toks); {
		t := p.toks[i]
		if p.isTagRoot(t) {
			flush(t.off)
			tag, next := p.parseTag(i)
			nodes = append(nodes, tag)
			i = next
			continue
		}
		if rawStart < 0 {
			rawStart = t.off
		}
		i++
	}
	flush(len(p.src))
	return nodes
}

// isTagRoot reports whether t starts a variable reference. Identifiers right
// after '-', '.', a quote, '/', '$' or a word character are left alone, which
// also keeps already-qualified references from being rewritten again.
func (p *exprParser) isTagRoot(t token) bool {
	if t.kind != tokIdent || !isLetter(t.text[0]) {
		return false
	}
	if t.off == 0 {
		return true
	}
	switch c := p.src[t.off-1]; {
	case c == '-', c == '.', c == '\'', c == '"', c == '/', c == '$':
		return false
	case isWordByte(c):
		return false
	}
	return true
}

func (p *exprParser) parseTag(i int) (tagNode, int) {
	t := p.toks[i]
	tag := tagNode{name: t.text, off: t.off}
	j := i + 1
	for {
		st, next, ok := p.parseSubtag(j)
		if !ok {
			break
		}
		tag.subtags = append(tag.subtags, st)
		j = next
	}
	return tag, j
}

func (p *exprParser) parseSubtag(i int) (subtagNode, int, bool) {
	k := p.skipSpace(i)
	if !p.at(k, tokPunct, ".") {
		return subtagNode{}, i, false
	}
	k = p.skipSpace(k + 1)
	if k >= len(p.toks) || p.toks[k].kind != tokIdent || !isLetter(p.toks[k].text[0]) {
		return subtagNode{}, i, false
	}
	st := subtagNode{fn: p.toks[k].text}
	k++
	if p.at(k, tokPunct, "(") {
		if args, next, ok := p.parseParams(k + 1); ok {
			st.args = args
			return st, next, true
		}
	}
	return st, k, true
}

// parseParams parses up to and including the closing paren. On failure the
// caller keeps the subtag without arguments and the parens stay raw.
func (p *exprParser) parseParams(i int) ([]exprNode, int, bool) {
	k := p.skipSpace(i)
	if p.at(k, tokPunct, ")") {
		return nil, k + 1, true
	}
	var args []exprNode
	for {
		k = p.skipSpace(k)
		if k >= len(p.toks) {
			return nil, i, false
		}
		switch t := p.toks[k]; {
		case t.kind == tokNumber, t.kind == tokString:
			args = append(args, literalNode{text: t.text})
			k++
		case t.kind == tokIdent && isLetter(t.text[0]):
			tag, next := p.parseTag(k)
			args = append(args, tag)
			k = next
		default:
			return nil, i, false
		}
		k = p.skipSpace(k)
		switch {
		case p.at(k, tokPunct, ")"):
			return args, k + 1, true
		case p.at(k, tokPunct, ","):
			k++
		default:
			return nil, i, false
		}
	}
}

func (p *exprParser) at(i int, kind tokenKind, text string) bool {
	return i < len(p.toks) && p.toks[i].is(kind, text)
}

func (p *exprParser) skipSpace(i int) int {
	for i < len(p.toks) && p.toks[i].kind == tokSpace {
		i++
	}
	return i
}
