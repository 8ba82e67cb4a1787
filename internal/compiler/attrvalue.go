package compiler

import (
	"regexp"

	"github.com/tagmark-lang/tagmark/internal/erb"
	"github.com/tagmark-lang/tagmark/internal/markup"
	"github.com/tagmark-lang/tagmark/internal/scriptlet"
)

// entityPattern matches a character entity at the start of an attribute
// value. A value that is one of these keeps its leading ampersand literal
// instead of marking a code attribute.
var entityPattern = regexp.MustCompile(`^&(#[0-9]+;|#[xX][0-9a-fA-F]+;|[a-zA-Z][a-zA-Z0-9]*;)`)

// interpolationPattern matches one #{...} interpolation region inside a
// static attribute value.
var interpolationPattern = regexp.MustCompile(`#\{([^}]*)\}`)

// isCodeValue reports whether raw is a code attribute value: a leading
// ampersand that does not begin a character entity.
func isCodeValue(raw string) bool {
	return len(raw) > 0 && raw[0] == '&' && !entityPattern.MatchString(raw)
}

// isTrueValue reports whether a present attribute carries the boolean
// true shorthand: no value, an empty value, or a value repeating the
// attribute's own name.
func isTrueValue(a markup.Attr) bool {
	return !a.HasValue || a.Value == "" || a.Value == a.Name
}

// codeExpr wraps a code attribute body in parentheses so it composes as
// one expression regardless of its internal precedence.
func (c *compile) codeExpr(el *markup.Node, raw string) (erb.Node, error) {
	body := raw[1:]
	if scriptlet.ContainsPlaceholder(body) {
		return nil, c.errorf(el, "scriptlet blocks are not allowed inside code attributes")
	}
	return &erb.Raw{S: "(" + body + ")"}, nil
}

// compileAttrValue converts one raw attribute value to a target
// expression. A nil raw means the attribute was absent. With symbolize
// set, a static value that is a plain identifier becomes a symbol.
func (c *compile) compileAttrValue(el *markup.Node, raw *string, symbolize bool) (erb.Node, error) {
	if raw == nil {
		return &erb.Nil{}, nil
	}
	if isCodeValue(*raw) {
		return c.codeExpr(el, *raw)
	}
	if !erb.CanQuote(*raw) {
		return nil, c.errorf(el, "attribute value %q mixes single and double quotes", *raw)
	}
	if symbolize && erb.IsIdent(*raw) {
		return &erb.Sym{Name: *raw}, nil
	}
	return &erb.Str{S: *raw}, nil
}

// interpolate rewrites #{...} regions of a static attribute value into
// inline output blocks for static re-serialization.
func interpolate(value string) string {
	return interpolationPattern.ReplaceAllString(value, "<%= $1 %>")
}
