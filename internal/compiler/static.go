package compiler

import (
	"strings"

	"github.com/tagmark-lang/tagmark/internal/erb"
	"github.com/tagmark-lang/tagmark/internal/markup"
)

// compileStatic passes a plain markup element through as literal text,
// compiling children recursively. Code attribute values and #{...}
// shorthand become inline output blocks.
func (c *compile) compileStatic(el *markup.Node, cx context) (erb.Node, error) {
	start, err := c.renderStartTag(el)
	if err != nil {
		return nil, err
	}
	seq := &erb.Seq{Nodes: []erb.Node{&erb.Text{S: start}}}

	children, err := c.compileChildren(el, cx)
	if err != nil {
		return nil, err
	}
	seq.Nodes = append(seq.Nodes, children)
	if el.HasEndTag {
		seq.Nodes = append(seq.Nodes, &erb.Text{S: "</" + el.Name + ">"})
	}
	return c.pad(el, seq), nil
}

// renderStartTag re-serializes the element's start tag from its parsed
// attributes, rewriting dynamic values along the way.
func (c *compile) renderStartTag(el *markup.Node) (string, error) {
	var b strings.Builder
	b.WriteByte('<')
	b.WriteString(el.Name)
	for _, a := range el.Attrs {
		b.WriteByte(' ')
		b.WriteString(a.Name)
		if !a.HasValue {
			continue
		}
		value := interpolate(a.Value)
		if isCodeValue(a.Value) {
			node, err := c.codeExpr(el, a.Value)
			if err != nil {
				return "", err
			}
			value = "<%= " + erb.Render(node) + " %>"
		}
		quote := a.Quote
		if quote == 0 {
			quote = '"'
		}
		b.WriteByte('=')
		b.WriteByte(quote)
		b.WriteString(value)
		b.WriteByte(quote)
	}
	if el.SelfClosing {
		b.WriteString("/>")
	} else {
		b.WriteByte('>')
	}
	return b.String(), nil
}
