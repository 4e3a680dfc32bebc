package blockstpl

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// ----------------------------- Expression lexer -----------------------------

// exprLexer splits an expression span into tokens that cover every input byte,
// so unmatched text can always be emitted verbatim.
var exprLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "String", Pattern: `"(?:\\.|[^"\\])*"|'(?:\\.|[^'\\])*'`},
	{Name: "Ident", Pattern: `[A-Za-z_]\w*`},
	{Name: "Number", Pattern: `\d+`},
	{Name: "Space", Pattern: `\s+`},
	{Name: "Punct", Pattern: `[^\w\s]`},
})

type tokenKind int

const (
	tokString tokenKind = iota
	tokIdent
	tokNumber
	tokSpace
	tokPunct
)

var tokenKinds = func() map[lexer.TokenType]tokenKind {
	sym := exprLexer.Symbols()
	return map[lexer.TokenType]tokenKind{
		sym["String"]: tokString,
		sym["Ident"]:  tokIdent,
		sym["Number"]: tokNumber,
		sym["Space"]:  tokSpace,
		sym["Punct"]:  tokPunct,
	}
}()

type token struct {
	kind tokenKind
	text string
	off  int // byte offset in the lexed span
}

func (t token) is(kind tokenKind, text string) bool {
	return t.kind == kind && t.text == text
}

// lexExpr tokenizes src. The rule set accepts any input, so an error here
// means the lexer itself is broken.
func lexExpr(src string) ([]token, error) {
	lx, err := exprLexer.LexString("", src)
	if err != nil {
		return nil, err
	}
	raw, err := lexer.ConsumeAll(lx)
	if err != nil {
		return nil, err
	}
	toks := make([]token, 0, len(raw))
	for _, t := range raw {
		if t.EOF() {
			break
		}
		toks = append(toks, token{kind: tokenKinds[t.Type], text: t.Value, off: t.Pos.Offset})
	}
	return toks, nil
}
