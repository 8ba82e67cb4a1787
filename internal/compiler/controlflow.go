package compiler

import (
	"github.com/tagmark-lang/tagmark/internal/erb"
	"github.com/tagmark-lang/tagmark/internal/markup"
)

// controlAttrs in the order conflicts are reported.
var controlAttrs = []string{"if", "unless", "repeat"}

// controlExpr builds the control expression of one if/unless/repeat
// attribute. The boolean shorthand tests the current context object; a
// static value is a field path on it; a code value is used directly.
func (c *compile) controlExpr(el *markup.Node, a markup.Attr) (string, error) {
	if isTrueValue(a) {
		return "this", nil
	}
	if isCodeValue(a.Value) {
		node, err := c.codeExpr(el, a.Value)
		if err != nil {
			return "", err
		}
		return erb.Render(node), nil
	}
	if !isFieldPath(a.Value) {
		return "", c.errorf(el, "illegal value %q for %s attribute", a.Value, a.Name)
	}
	return "this." + a.Value, nil
}

// wrapControl applies the element's control attribute, if any, around
// expr. At most one of if, unless, and repeat may appear.
func (c *compile) wrapControl(el *markup.Node, expr erb.Node) (erb.Node, error) {
	var found []markup.Attr
	for _, name := range controlAttrs {
		for _, a := range el.Attrs {
			if a.Name == name {
				found = append(found, a)
			}
		}
	}
	if len(found) == 0 {
		return expr, nil
	}
	if len(found) > 1 {
		return nil, c.errorf(el, "conflicting control attributes %s and %s", found[0].Name, found[1].Name)
	}

	a := found[0]
	ctrl, err := c.controlExpr(el, a)
	if err != nil {
		return nil, err
	}
	switch a.Name {
	case "if":
		return &erb.Cond{Test: "!(" + ctrl + ").blank?", Body: expr}, nil
	case "unless":
		return &erb.Cond{Test: "(" + ctrl + ").blank?", Body: expr}, nil
	default:
		return &erb.Loop{Over: ctrl, Body: expr}, nil
	}
}
