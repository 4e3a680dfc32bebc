package blockstpl

import "strings"

const (
	varOpen  = "{{"
	varClose = "}}"
)

type varTag struct {
	expr       string
	start, end int
}

// nextVarTag finds the first {{ expr }} at or after pos. The expression must
// fit on one line and ends at the first close delimiter.
func nextVarTag(s string, pos int) (varTag, bool) {
	for {
		idx := strings.Index(s[pos:], varOpen)
		if idx < 0 {
			return varTag{}, false
		}
		idx += pos
		body := idx + len(varOpen)
		end := strings.Index(s[body:], varClose)
		if end < 0 {
			return varTag{}, false
		}
		inner := s[body : body+end]
		if inner != "" && !strings.ContainsRune(inner, '\n') {
			return varTag{expr: fastTrim(inner), start: idx, end: body + end + len(varClose)}, true
		}
		pos = idx + 1
	}
}

// parseVariableTags replaces the remaining {{ expr }} tags with print
// statements.
func (c *compilation) parseVariableTags(text string) string {
	rw := newRewriter(text)
	pos := 0
	for {
		vt, ok := nextVarTag(text, pos)
		if !ok {
			break
		}
		if vt.expr == "" {
			c.drop(vt.start, vt.end, "Empty variable tag", "A variable tag must contain an expression.")
			rw.replace(vt.start, vt.end, "")
		} else {
			rw.replace(vt.start, vt.end, c.d.Print(c.expression(vt.expr, false)))
		}
		pos = vt.end
	}
	out, m := rw.finish()
	c.sm = append(c.sm, m)
	return out
}
