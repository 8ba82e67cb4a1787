package compiler

import (
	"github.com/tagmark-lang/tagmark/internal/builder"
	"github.com/tagmark-lang/tagmark/internal/erb"
	"github.com/tagmark-lang/tagmark/internal/markup"
)

// wrapPart extracts an element carrying a part attribute: the compiled
// expression moves into a separately registered part callable and the
// original occurrence becomes a part-dispatch call.
func (c *compile) wrapPart(el *markup.Node, cx context, expr erb.Node) (erb.Node, error) {
	pa, ok := c.findAttr(el, "part")
	if !ok {
		return expr, nil
	}
	if isTrueValue(pa) {
		return nil, c.errorf(el, "part attribute requires a name")
	}
	if !isTagName(pa.Value) {
		return nil, c.errorf(el, "illegal part name %q", pa.Value)
	}
	if c.subtreeHasParam(el) {
		return nil, c.errorf(el, "delegated parts are not supported: part %q contains a param substitution", pa.Value)
	}

	var locals []string
	if raw, ok := el.Attr("part-locals"); ok {
		for _, l := range splitCommaList(raw) {
			if !isTagName(l) {
				return nil, c.errorf(el, "illegal name %q in part-locals list", l)
			}
			locals = append(locals, mangle(l))
		}
	}

	name := mangle(pa.Value)
	def := &erb.Def{
		Name:     name + "_part",
		Params:   locals,
		Prologue: "new_context",
		Body:     &erb.Output{Expr: expr},
	}
	c.parts = append(c.parts, builder.Part{
		Name:   name,
		Source: erb.Render(c.pad(el, def)),
		Line:   el.Line,
	})

	// The DOM identifier defaults to the part name; an id attribute,
	// static or dynamic, overrides it.
	var domID erb.Node = &erb.Str{S: pa.Value}
	if idAttr, ok := c.findAttr(el, "id"); ok && idAttr.HasValue {
		var err error
		if domID, err = c.compileAttrValue(el, &idAttr.Value, false); err != nil {
			return nil, err
		}
	}

	args := []erb.Node{domID, &erb.Sym{Name: name}}
	for _, l := range locals {
		args = append(args, &erb.Raw{S: l})
	}
	return &erb.Call{Name: "call_part", Args: args}, nil
}

// subtreeHasParam reports whether any element at or below el carries a
// param attribute.
func (c *compile) subtreeHasParam(el *markup.Node) bool {
	for _, child := range el.Children {
		if child.Type != markup.ElementNode {
			continue
		}
		if child.HasAttr("param") || c.subtreeHasParam(child) {
			return true
		}
	}
	return false
}
