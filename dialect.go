package blockstpl

import (
	"strconv"
	"strings"
)

// ----------------------------- Target dialect -------------------------------

// Dialect renders the target-language fragments a compiled template is built
// from. It is the only place that knows how the host spells its helpers.
type Dialect interface {
	// Name identifies the dialect in cache keys and logs.
	Name() string
	// Extension is the executable-source suffix forced onto artifact paths.
	Extension() string
	// Marker returns the placeholder for the n-th extracted code block.
	Marker(n int) string

	// CodeBlock wraps a code body into an executable block.
	CodeBlock(body string) string
	// EchoBody turns a short evaluate-and-emit body into a statement body.
	EchoBody(body string) string

	Reference(name string) string
	Subtag(recv, fn string, args []string) string
	ToString(expr string) string
	ToArray(expr string) string
	// Interpolate builds a single string expression from literal text and
	// code parts.
	Interpolate(parts []Part) string

	Print(expr string) string
	Layout(tmpl string) string
	BeginRegion(name string) string
	EndWidget() string
	Include(tmpl string) string
	Foreach(coll, key, val string) string
	EndForeach() string
	If(cond string) string
	ElseIf(cond string) string
	Else() string
	EndIf() string
	Redirect(url string) string

	Header(vars []string, hasLayout bool) string
	Footer(hasLayout bool) string
}

// Part is a segment of an interpolated string.
type Part struct {
	Text   string
	IsCode bool
}

// PHP emits code for the Blocks host, a PHP view renderer.
type PHP struct {
	// Helper is the class exposing getGlobalTag and getVarTag.
	Helper string
	// LayoutWidget and RegionWidget are the widget classes begun for layouts
	// and regions.
	LayoutWidget string
	RegionWidget string
	// RedirectCall is the callable expression used by the redirect directive.
	RedirectCall string
	// DefaultKey names the loop key when a foreach omits one.
	DefaultKey string
}

// DefaultPHP returns the dialect used unless WithDialect says otherwise.
func DefaultPHP() *PHP {
	return &PHP{
		Helper:       "TemplateHelper",
		LayoutWidget: "LayoutTemplateWidget",
		RegionWidget: "RegionTemplateWidget",
		RedirectCall: "Blocks::app()->request->redirect",
		DefaultKey:   "index",
	}
}

const phpEOL = "\n"

func (d *PHP) Name() string      { return "php" }
func (d *PHP) Extension() string { return ".php" }

func (d *PHP) Marker(n int) string { return "[PHP:" + strconv.Itoa(n) + "]" }

func (d *PHP) CodeBlock(body string) string {
	if body == "" || !isSpaceByte(body[0]) {
		body = " " + body
	}
	return "<?php" + body + "?>"
}

func (d *PHP) EchoBody(body string) string { return "echo " + body }

func (d *PHP) Reference(name string) string { return "$" + name }

func (d *PHP) Subtag(recv, fn string, args []string) string {
	if len(args) == 0 {
		return recv + "->_subtag('" + fn + "')"
	}
	return recv + "->_subtag('" + fn + "', [" + strings.Join(args, ", ") + "])"
}

func (d *PHP) ToString(expr string) string { return expr + "->__toString()" }
func (d *PHP) ToArray(expr string) string  { return expr + "->__toArray()" }

func (d *PHP) Interpolate(parts []Part) string {
	var sb strings.Builder
	sb.WriteByte('\'')
	for _, p := range parts {
		if p.IsCode {
			sb.WriteString("'.")
			sb.WriteString(p.Text)
			sb.WriteString(".'")
			continue
		}
		sb.WriteString(quoteSingle(p.Text))
	}
	sb.WriteByte('\'')
	return sb.String()
}

// quoteSingle escapes s for a single-quoted PHP string body.
func quoteSingle(s string) string {
	if !strings.ContainsAny(s, `'\`) {
		return s
	}
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}

func (d *PHP) Print(expr string) string { return "<?php echo " + expr + " ?>" }

func (d *PHP) Layout(tmpl string) string {
	return "<?php $_layout->template = " + tmpl + "; ?>"
}

func (d *PHP) BeginRegion(name string) string {
	return "<?php $_layout->regions[] = $this->beginWidget('" + d.RegionWidget + "', array('name' => " + name + ")); ?>"
}

func (d *PHP) EndWidget() string { return "<?php $this->endWidget(); ?>" }

func (d *PHP) Include(tmpl string) string {
	return "<?php $this->loadTemplate(" + tmpl + "); ?>"
}

func (d *PHP) Foreach(coll, key, val string) string {
	if key == "" {
		key = d.DefaultKey
	}
	k, v := d.Reference(key), d.Reference(val)
	return "<?php foreach (" + d.ToArray(coll) + " as " + k + " => " + v + "):" + phpEOL +
		k + " = " + d.Helper + "::getVarTag(" + k + ");" + phpEOL +
		v + " = " + d.Helper + "::getVarTag(" + v + "); ?>"
}

func (d *PHP) EndForeach() string { return "<?php endforeach ?>" }

func (d *PHP) If(cond string) string     { return "<?php if (" + cond + "): ?>" }
func (d *PHP) ElseIf(cond string) string { return "<?php elseif (" + cond + "): ?>" }
func (d *PHP) Else() string              { return "<?php else: ?>" }
func (d *PHP) EndIf() string             { return "<?php endif ?>" }

func (d *PHP) Redirect(url string) string {
	return "<?php " + d.RedirectCall + "(" + url + "); ?>"
}

func (d *PHP) Header(vars []string, hasLayout bool) string {
	var sb strings.Builder
	sb.WriteString("<?php" + phpEOL)
	for _, v := range vars {
		ref := d.Reference(v)
		sb.WriteString("if (!isset(" + ref + ")) " + ref + " = " + d.Helper + "::getGlobalTag('" + v + "');" + phpEOL)
	}
	sb.WriteString("$this->layout = null;" + phpEOL)
	if hasLayout {
		sb.WriteString("$_layout = $this->beginWidget('" + d.LayoutWidget + "');" + phpEOL)
	}
	sb.WriteString("?>")
	return sb.String()
}

func (d *PHP) Footer(hasLayout bool) string {
	if !hasLayout {
		return ""
	}
	return d.EndWidget() + phpEOL
}
