package blockstpl

import (
	"strings"
)

// ----------------------------- Literal code isolation -----------------------

// markerTable pairs generated markers with the code they stand for, in
// extraction order.
type markerTable struct {
	markers []string
	code    []string
}

func (t *markerTable) add(marker, code string) {
	t.markers = append(t.markers, marker)
	t.code = append(t.code, code)
}

func (t *markerTable) len() int { return len(t.markers) }

// restore swaps every marker for its code in a single pass; restored code is
// never scanned again.
func (t *markerTable) restore(s string) string {
	if len(t.markers) == 0 {
		return s
	}
	pairs := make([]string, 0, 2*len(t.markers))
	for i := range t.markers {
		pairs = append(pairs, t.markers[i], t.code[i])
	}
	return strings.NewReplacer(pairs...).Replace(s)
}

// codeForm is one embedded-code syntax: the opening delimiter and an optional
// rewrite of its body before it is stored.
type codeForm struct {
	open    string
	rewrite func(d Dialect, body string) string
}

// codeForms run in order; "<?" must come last since it prefixes the others.
var codeForms = []codeForm{
	{open: "<?php"},
	{open: "<?=", rewrite: func(d Dialect, body string) string { return d.EchoBody(body) }},
	{open: "<?"},
}

const codeClose = "?>"

// isolate replaces every embedded code block with a marker so later passes
// never see code as markup.
func (c *compilation) isolate(text string) string {
	for _, form := range codeForms {
		text = c.extract(text, form)
	}
	return text
}

func (c *compilation) extract(text string, form codeForm) string {
	rw := newRewriter(text)
	pos := 0
	for {
		start := strings.Index(text[pos:], form.open)
		if start < 0 {
			break
		}
		start += pos
		bodyStart := start + len(form.open)
		end := strings.Index(text[bodyStart:], codeClose)
		if end < 0 {
			break
		}
		end += bodyStart
		body := text[bodyStart:end]
		if form.rewrite != nil {
			body = form.rewrite(c.d, body)
		}
		marker := c.d.Marker(c.markers.len() + 1)
		c.markers.add(marker, c.d.CodeBlock(body))
		pos = end + len(codeClose)
		rw.replace(start, pos, marker)
	}
	out, m := rw.finish()
	c.sm = append(c.sm, m)
	return out
}
