package erb

import (
	"regexp"
	"strings"
)

// writer accumulates rendered source.
type writer struct {
	b strings.Builder
}

func (w *writer) str(s string) {
	w.b.WriteString(s)
}

// Render renders a node tree to target source text.
func Render(n Node) string {
	if n == nil {
		return ""
	}
	w := &writer{}
	n.render(w)
	return w.b.String()
}

// identPattern matches names that are valid as bare Ruby symbols and
// identifiers.
var identPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// IsIdent reports whether s is identifier-shaped.
func IsIdent(s string) bool {
	return identPattern.MatchString(s)
}

// CanQuote reports whether s can be emitted as a Ruby string literal
// without escaping. There is no escaping fallback: values containing both
// quote characters cannot be represented.
func CanQuote(s string) bool {
	return !(strings.Contains(s, `"`) && strings.Contains(s, `'`))
}

func (n *Text) render(w *writer) { w.str(n.S) }

func (n *Output) render(w *writer) {
	w.str("<%= ")
	n.Expr.render(w)
	w.str(" %>")
}

func (n *Code) render(w *writer) {
	w.str("<% ")
	w.str(n.S)
	w.str(" %>")
}

func (n *Comment) render(w *writer) {
	w.str("<%# ")
	w.str(n.S)
	w.str(" %>")
}

func (n *HTMLComment) render(w *writer) {
	w.str("<!--[")
	w.str(n.S)
	w.str("]-->")
}

func (n *Seq) render(w *writer) {
	for _, c := range n.Nodes {
		c.render(w)
	}
}

func (n *Span) render(w *writer) {
	got := Render(n.Child)
	w.str(got)
	if missing := n.Want - strings.Count(got, "\n"); missing > 0 {
		w.str(strings.Repeat("\n", missing))
	}
}

func (n *Raw) render(w *writer) { w.str(n.S) }

func (n *Str) render(w *writer) {
	q := `"`
	if strings.Contains(n.S, `"`) {
		q = `'`
	}
	w.str(q)
	w.str(n.S)
	w.str(q)
}

func (n *Sym) render(w *writer) {
	if IsIdent(n.Name) {
		w.str(":")
		w.str(n.Name)
		return
	}
	w.str(`:"`)
	w.str(n.Name)
	w.str(`"`)
}

func (n *Nil) render(w *writer) { w.str("nil") }

func (n *Hash) render(w *writer) {
	w.str("{")
	for i, p := range n.Pairs {
		if i > 0 {
			w.str(", ")
		}
		p.Key.render(w)
		w.str(" => ")
		p.Value.render(w)
	}
	w.str("}")
}

func (n *Call) render(w *writer) {
	w.str(n.Name)
	w.str("(")
	for i, a := range n.Args {
		if i > 0 {
			w.str(", ")
		}
		a.render(w)
	}
	w.str(")")
	if n.Block != nil {
		w.str(" do")
		if len(n.Block.Params) > 0 {
			w.str(" |")
			w.str(strings.Join(n.Block.Params, ", "))
			w.str("|")
		}
		w.str(" %>")
		n.Block.Body.render(w)
		w.str("<% end")
	}
}

func (n *Proc) render(w *writer) {
	w.str("proc { ")
	if n.Wrap != "" {
		w.str(n.Wrap)
		w.str(" { ")
	}
	w.str("%>")
	n.Body.render(w)
	w.str("<% ")
	if n.Wrap != "" {
		w.str("} ")
	}
	w.str("}")
}

func (n *Cond) render(w *writer) {
	w.str("(test_if(")
	w.str(n.Test)
	w.str(") ? (")
	n.Body.render(w)
	w.str(") : '')")
}

func (n *Loop) render(w *writer) {
	w.str("repeat_attribute(")
	w.str(n.Over)
	w.str(") { ")
	n.Body.render(w)
	w.str(" }")
}

func (n *Def) render(w *writer) {
	w.str("<% def ")
	w.str(n.Name)
	w.str("(")
	w.str(strings.Join(n.Params, ", "))
	w.str("); ")
	if n.Prologue != "" {
		w.str(n.Prologue)
	}
	w.str(" do %>")
	n.Body.render(w)
	w.str("<% end; end %>")
}
