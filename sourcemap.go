package blockstpl

import (
	"bytes"
	"sort"
	"unicode/utf8"

	"github.com/hashicorp/hcl/v2"
)

// ----------------------------- Source mapping -------------------------------

// edit records that out[outStart:outEnd] replaced in[inStart:inEnd].
type edit struct {
	outStart, outEnd int
	inStart, inEnd   int
}

// offsetMap maps offsets in a pass's output back to its input.
type offsetMap []edit

func (m offsetMap) origin(off int) int {
	i := sort.Search(len(m), func(i int) bool { return m[i].outStart > off }) - 1
	if i < 0 {
		return off
	}
	e := m[i]
	if off < e.outEnd {
		return e.inStart
	}
	return e.inEnd + off - e.outEnd
}

// sourceMap chains the offset maps of every text pass, oldest first.
type sourceMap []offsetMap

func (s sourceMap) origin(off int) int {
	for i := len(s) - 1; i >= 0; i-- {
		off = s[i].origin(off)
	}
	return off
}

// rewriter copies src while splicing replacements into it.
type rewriter struct {
	src   string
	buf   *bytes.Buffer
	last  int
	edits offsetMap
}

func newRewriter(src string) *rewriter {
	buf := bufPool.Get().(*bytes.Buffer)
	buf.Reset()
	buf.Grow(len(src))
	return &rewriter{src: src, buf: buf}
}

func (r *rewriter) replace(start, end int, repl string) {
	r.buf.WriteString(r.src[r.last:start])
	outStart := r.buf.Len()
	r.buf.WriteString(repl)
	r.edits = append(r.edits, edit{outStart: outStart, outEnd: r.buf.Len(), inStart: start, inEnd: end})
	r.last = end
}

func (r *rewriter) finish() (string, offsetMap) {
	if len(r.edits) == 0 {
		bufPool.Put(r.buf)
		return r.src, nil
	}
	r.buf.WriteString(r.src[r.last:])
	out := r.buf.String()
	bufPool.Put(r.buf)
	return out, r.edits
}

// position converts a byte offset in src into an hcl position.
func position(src string, off int) hcl.Pos {
	if off > len(src) {
		off = len(src)
	}
	pos := hcl.Pos{Line: 1, Column: 1, Byte: off}
	for i := 0; i < off; {
		r, w := utf8.DecodeRuneInString(src[i:])
		if r == '\n' {
			pos.Line++
			pos.Column = 1
		} else {
			pos.Column++
		}
		i += w
	}
	return pos
}
