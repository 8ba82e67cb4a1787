package compiler

import (
	"fmt"
	"strings"

	"github.com/tagmark-lang/tagmark/internal/erb"
	"github.com/tagmark-lang/tagmark/internal/markup"
)

// compileCall compiles one tag invocation: callee resolution, attribute
// and parameter mappings, param registration, control-flow wrapping, part
// extraction, and debug metadata, in that order.
func (c *compile) compileCall(el *markup.Node, cx context) (erb.Node, error) {
	kind := classify(el, cx)
	_, base := splitQualifier(el.Name)
	if kind != kindStaticCall && !isTagName(base) {
		return nil, c.errorf(el, "illegal tag name %q", el.Name)
	}
	if el.HasAttr("restore") && !cx.inParam() {
		return nil, c.errorf(el, "restore is only allowed inside parameter content")
	}

	attrs, err := c.compileAttributes(el, cx)
	if err != nil {
		return nil, err
	}
	params, err := c.compileParameters(el, cx)
	if err != nil {
		return nil, err
	}
	attrsSrc := erb.Render(attrs)
	paramsSrc := erb.Render(params)

	callee, err := c.calleeBuilder(el, cx, kind, base)
	if err != nil {
		return nil, err
	}

	var expr erb.Node
	if pa, ok := c.findAttr(el, "param"); ok {
		if !cx.inDef() {
			return nil, c.errorf(el, "param is only allowed inside a definition")
		}
		pname := base
		if !isTrueValue(pa) {
			pname = pa.Value
			if !isTagName(pname) {
				return nil, c.errorf(el, "illegal parameter name %q", pname)
			}
		}
		// The enclosing call's received parameters travel along, so a
		// caller can substitute this parameter from outside.
		expr = &erb.Raw{S: fmt.Sprintf("call_tag_parameter(%s, parameters, %s, %s) { |a, p| %s }",
			erb.Render(&erb.Sym{Name: mangle(pname)}), attrsSrc, paramsSrc, callee("a", "p"))}
	} else {
		expr = &erb.Raw{S: callee(attrsSrc, paramsSrc)}
	}

	if expr, err = c.wrapControl(el, expr); err != nil {
		return nil, err
	}
	if expr, err = c.wrapPart(el, cx, expr); err != nil {
		return nil, err
	}

	out := &erb.Seq{Nodes: []erb.Node{&erb.Output{Expr: expr}}}
	if c.opts.Metadata && !noMetadataTags[base] {
		note := ""
		if pa, ok := c.findAttr(el, "param"); ok {
			pname := base
			if !isTrueValue(pa) {
				pname = pa.Value
			}
			note = fmt.Sprintf(" param='%s'", pname)
		}
		out.Nodes = append(out.Nodes, &erb.Comment{S: fmt.Sprintf("%s call%s line:%d", el.Name, note, el.Line)})
	}
	return c.pad(el, out), nil
}

// calleeBuilder returns a function building the call expression from the
// attribute and parameter argument sources, so the param wrapper can
// substitute its block arguments for the literal mappings.
func (c *compile) calleeBuilder(el *markup.Node, cx context, kind nodeKind, base string) (func(a, p string) string, error) {
	name := mangle(base)
	switch kind {
	case kindRestoreCall:
		restored := mangle(cx.paramName) + "_restore"
		return func(a, p string) string {
			return restored + ".call(" + a + ", " + p + ")"
		}, nil
	case kindPolymorphicCall:
		desc, err := c.typeDescriptor(el)
		if err != nil {
			return nil, err
		}
		sym := erb.Render(&erb.Sym{Name: name})
		return func(a, p string) string {
			return "call_polymorphic_tag(" + sym + ", " + desc + ", " + a + ", " + p + ")"
		}, nil
	case kindStaticCall:
		lit := erb.Render(&erb.Str{S: base})
		return func(a, p string) string {
			return "element(" + lit + ", " + a + ", " + p + ")"
		}, nil
	default:
		return func(a, p string) string {
			return name + "(" + a + ", " + p + ")"
		}, nil
	}
}

// typeDescriptor compiles the for-type attribute into the runtime type
// expression polymorphic dispatch keys on.
func (c *compile) typeDescriptor(el *markup.Node) (string, error) {
	a, _ := c.findAttr(el, "for-type")
	switch {
	case isTrueValue(a):
		return "this_type", nil
	case isCodeValue(a.Value):
		node, err := c.codeExpr(el, a.Value)
		if err != nil {
			return "", err
		}
		return erb.Render(node), nil
	case strings.HasPrefix(a.Value, "."):
		field := a.Value[1:]
		if !isTagName(field) {
			return "", c.errorf(el, "illegal field name %q in for-type attribute", a.Value)
		}
		return "field_type(" + erb.Render(&erb.Sym{Name: mangle(field)}) + ")", nil
	default:
		if !erb.CanQuote(a.Value) {
			return "", c.errorf(el, "attribute value %q mixes single and double quotes", a.Value)
		}
		return erb.Render(&erb.Str{S: a.Value}), nil
	}
}
