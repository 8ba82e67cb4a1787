package compiler

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tagmark-lang/tagmark/internal/builder"
	"github.com/tagmark-lang/tagmark/internal/erb"
	"github.com/tagmark-lang/tagmark/internal/markup"
)

// typeNamePattern shapes the for attribute of a type-specialized
// definition: namespaced type constants like Blog::Post.
var typeNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*(::[A-Za-z_][A-Za-z0-9_-]*)*$`)

// compileDef compiles one definition element into build instructions. It
// contributes no page output of its own.
func (c *compile) compileDef(el *markup.Node, cx context) error {
	if el.Parent == nil || el.Parent.Type != markup.DocumentNode {
		return c.errorf(el, "<def> is only allowed at top level")
	}
	tag, ok := el.Attr("tag")
	if !ok {
		return c.errorf(el, "<def> requires a tag attribute")
	}
	if !isTagName(tag) {
		return c.errorf(el, "illegal tag name %q", tag)
	}

	aliasOf, hasAlias := el.Attr("alias-of")
	extendWith, hasExtend := el.Attr("extend-with")
	forType, hasFor := el.Attr("for")
	if hasAlias && hasExtend {
		return c.errorf(el, "<def> takes alias-of or extend-with, not both")
	}

	if hasAlias {
		if hasFor {
			return c.errorf(el, "alias-of cannot define a type-specialized variant")
		}
		if !isTagName(aliasOf) {
			return c.errorf(el, "illegal tag name %q in alias-of attribute", aliasOf)
		}
		if c.hasContent(el) {
			return c.errorf(el, "a def with alias-of must have an empty body")
		}
		c.instructions = append(c.instructions, builder.Instruction{
			Kind: builder.KindAlias, Name: mangle(tag), OldName: mangle(aliasOf), Line: el.Line,
		})
		return nil
	}

	name := mangle(tag)
	if hasFor {
		if !typeNamePattern.MatchString(forType) {
			return c.errorf(el, "illegal type name %q in for attribute", forType)
		}
		name += "__for_" + mangleType(forType)
	}
	defName := name
	if hasExtend {
		if !isTagName(extendWith) {
			return c.errorf(el, "illegal name %q in extend-with attribute", extendWith)
		}
		defName = name + "_with_" + mangle(extendWith)
	}

	declared, err := c.declaredAttrs(el)
	if err != nil {
		return err
	}

	body, err := c.compileChildren(el, context{defTag: tag, defName: defName})
	if err != nil {
		return err
	}
	if c.opts.Metadata && !noMetadataTags[tag] {
		body = &erb.Seq{Nodes: []erb.Node{
			&erb.HTMLComment{S: fmt.Sprintf("tagmark:def %s %s line:%d", tag, c.path, el.Line)},
			body,
			&erb.HTMLComment{S: "/tagmark:def " + tag},
		}}
	}

	var prologue []string
	if len(declared) > 0 {
		lhs := strings.Join(declared, ", ")
		if len(declared) == 1 {
			lhs += ","
		}
		syms := make([]string, len(declared))
		for i, d := range declared {
			syms[i] = erb.Render(&erb.Sym{Name: d})
		}
		prologue = append(prologue, lhs+" = attributes.values_at("+strings.Join(syms, ", ")+")")
	}
	prologue = append(prologue,
		"new_tag_context("+erb.Render(&erb.Sym{Name: mangle(tag)})+", attributes, parameters)")

	def := &erb.Def{
		Name:     defName,
		Params:   []string{"attributes", "parameters"},
		Prologue: strings.Join(prologue, "; "),
		Body:     body,
	}
	c.instructions = append(c.instructions, builder.Instruction{
		Kind:          builder.KindDefineFunction,
		Name:          defName,
		Source:        erb.Render(c.pad(el, def)),
		Line:          el.Line,
		DeclaredAttrs: declared,
	})

	if hasExtend {
		suffix := mangle(extendWith)
		c.instructions = append(c.instructions,
			builder.Instruction{Kind: builder.KindAlias, Name: name + "_without_" + suffix, OldName: name, Line: el.Line},
			builder.Instruction{Kind: builder.KindAlias, Name: name, OldName: defName, Line: el.Line},
		)
	}
	return nil
}

// declaredAttrs validates and mangles the attrs list of a definition.
func (c *compile) declaredAttrs(el *markup.Node) ([]string, error) {
	raw, ok := el.Attr("attrs")
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var declared []string
	seen := map[string]bool{}
	for _, a := range splitCommaList(raw) {
		if !isTagName(a) {
			return nil, c.errorf(el, "illegal attribute name %q in attrs list", a)
		}
		if reservedAttrs[a] {
			return nil, c.errorf(el, "declared attribute %q is reserved", a)
		}
		m := mangle(a)
		if implicitLocals[m] {
			return nil, c.errorf(el, "declared attribute %q collides with an implicit local", a)
		}
		if seen[m] {
			return nil, c.errorf(el, "duplicate attribute %q in attrs list", a)
		}
		seen[m] = true
		declared = append(declared, m)
	}
	return declared, nil
}
