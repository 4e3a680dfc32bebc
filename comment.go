package blockstpl

import "strings"

const (
	commentOpen  = "{!--"
	commentClose = "--}"
)

// stripComments removes {!-- ... --} regions. An unterminated comment is left
// in place.
func (c *compilation) stripComments(text string) string {
	rw := newRewriter(text)
	pos := 0
	for {
		start := strings.Index(text[pos:], commentOpen)
		if start < 0 {
			break
		}
		start += pos
		end := strings.Index(text[start+len(commentOpen):], commentClose)
		if end < 0 {
			break
		}
		pos = start + len(commentOpen) + end + len(commentClose)
		rw.replace(start, pos, "")
	}
	out, m := rw.finish()
	c.sm = append(c.sm, m)
	return out
}
