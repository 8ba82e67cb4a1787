package compiler

import (
	"github.com/tagmark-lang/tagmark/internal/erb"
	"github.com/tagmark-lang/tagmark/internal/markup"
)

// compileAttributes builds the attributes-mapping argument of a call: the
// literal hash of non-reserved attributes, the implicit field entry of a
// qualified name, and the caller merge when requested.
func (c *compile) compileAttributes(el *markup.Node, cx context) (erb.Node, error) {
	hash := &erb.Hash{}
	if qualifier, _ := splitQualifier(el.Name); qualifier != "" {
		hash.Pairs = append(hash.Pairs, erb.Pair{
			Key:   &erb.Sym{Name: "field"},
			Value: &erb.Str{S: qualifier},
		})
	}
	for _, a := range el.Attrs {
		if reservedAttrs[a.Name] {
			continue
		}
		var value erb.Node
		if !a.HasValue {
			value = &erb.Raw{S: "true"}
		} else {
			var err error
			if value, err = c.compileAttrValue(el, &a.Value, false); err != nil {
				return nil, err
			}
		}
		hash.Pairs = append(hash.Pairs, erb.Pair{Key: &erb.Sym{Name: a.Name}, Value: value})
	}

	caller, err := c.mergeSource(el, cx, "merge-attrs", "attributes")
	if err != nil {
		return nil, err
	}
	if caller == nil {
		return hash, nil
	}
	return &erb.Call{Name: "merge_attrs", Args: []erb.Node{hash, caller}}, nil
}

// compileParameters builds the parameters-mapping argument of a call.
// Children are either parameter tags, each becoming one named callable
// entry, or plain default content under the :default key.
func (c *compile) compileParameters(el *markup.Node, cx context) (erb.Node, error) {
	var paramTags []*markup.Node
	plain := false
	for _, child := range el.Children {
		switch {
		case child.Type == markup.ElementNode && child.IsParameterTag():
			paramTags = append(paramTags, child)
		case child.Type == markup.CommentNode:
		case child.Type == markup.TextNode && child.IsWhitespaceText():
		default:
			plain = true
		}
	}
	if len(paramTags) > 0 && plain {
		return nil, c.errorf(el, "call to <%s> mixes parameter tags with plain content", el.Name)
	}

	hash := &erb.Hash{}
	switch {
	case len(paramTags) > 0:
		for _, pt := range paramTags {
			pair, err := c.compileParameterTag(pt, cx)
			if err != nil {
				return nil, err
			}
			hash.Pairs = append(hash.Pairs, pair)
		}
	case plain:
		body, err := c.compileChildren(el, cx)
		if err != nil {
			return nil, err
		}
		hash.Pairs = append(hash.Pairs, erb.Pair{
			Key:   &erb.Sym{Name: "default"},
			Value: &erb.Proc{Wrap: "new_context", Body: body},
		})
	}

	caller, err := c.mergeSource(el, cx, "merge-params", "parameters")
	if err != nil {
		return nil, err
	}
	if caller == nil {
		return hash, nil
	}
	return &erb.Call{Name: "merge_params", Args: []erb.Node{hash, caller}}, nil
}

// compileParameterTag compiles one <name:> child into a hash pair whose
// value is the callable replacement content.
func (c *compile) compileParameterTag(pt *markup.Node, cx context) (erb.Pair, error) {
	c.lastElement = pt
	name := pt.BaseName()
	if !isTagName(name) {
		return erb.Pair{}, c.errorf(pt, "illegal parameter name %q", name)
	}
	if container, ok := pt.Attr("for"); ok && !isTagName(container) {
		return erb.Pair{}, c.errorf(pt, "illegal tag name %q in for attribute", container)
	}
	for _, a := range pt.Attrs {
		if a.Name != "for" && a.Name != "merge" && a.Name != "merge-params" {
			return erb.Pair{}, c.errorf(pt, "illegal attribute %q on parameter tag <%s>", a.Name, pt.Name)
		}
	}

	inner := cx
	inner.paramName = name
	body, err := c.compileChildren(pt, inner)
	if err != nil {
		return erb.Pair{}, err
	}
	key := &erb.Sym{Name: mangle(name)}
	var value erb.Node = &erb.Proc{Wrap: "new_context", Body: body}
	if container, ok := pt.Attr("for"); ok {
		// The wrapper tells the runtime which named container this
		// replacement targets; a bare callable targets the innermost tag
		// being defined.
		target, err := c.compileAttrValue(pt, &container, true)
		if err != nil {
			return erb.Pair{}, err
		}
		value = &erb.Call{Name: "parameter_for", Args: []erb.Node{target, value}}
	}
	if pt.HasAttr("merge") || pt.HasAttr("merge-params") {
		if !cx.inDef() {
			return erb.Pair{}, c.errorf(pt, "merge on a parameter tag is only allowed inside a definition")
		}
		prev := &erb.Raw{S: "parameters[" + erb.Render(key) + "]"}
		value = &erb.Call{Name: "merge_parameter", Args: []erb.Node{prev, value}}
	}
	return erb.Pair{Key: key, Value: c.pad(pt, value)}, nil
}

// mergeSource resolves the caller side of a merge for one mapping. The
// element's dedicated attribute wins over the shorthand merge attribute.
// Boolean forms forward the enclosing definition's own mapping.
func (c *compile) mergeSource(el *markup.Node, cx context, attrName, implicit string) (erb.Node, error) {
	a, ok := c.findAttr(el, attrName)
	if !ok {
		if a, ok = c.findAttr(el, "merge"); !ok {
			return nil, nil
		}
	}
	if isTrueValue(a) {
		if !cx.inDef() {
			return nil, c.errorf(el, "%s without a value is only allowed inside a definition", a.Name)
		}
		return &erb.Raw{S: implicit}, nil
	}
	return c.compileAttrValue(el, &a.Value, false)
}

func (c *compile) findAttr(el *markup.Node, name string) (markup.Attr, bool) {
	for _, a := range el.Attrs {
		if a.Name == name {
			return a, true
		}
	}
	return markup.Attr{}, false
}
