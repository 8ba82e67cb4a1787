package compiler

import "github.com/tagmark-lang/tagmark/internal/markup"

// nodeKind is the classification of one element, fixing which compilation
// path it takes.
type nodeKind int

const (
	kindDefinition nodeKind = iota
	kindAliasDefinition
	kindInclude
	kindSetTheme
	kindSet
	kindSetScoped
	kindParamContent
	kindStaticMarkup
	kindStaticCall
	kindPlainCall
	kindPolymorphicCall
	kindRestoreCall
)

func (k nodeKind) String() string {
	switch k {
	case kindDefinition:
		return "definition"
	case kindAliasDefinition:
		return "alias definition"
	case kindInclude:
		return "include"
	case kindSetTheme:
		return "set-theme"
	case kindSet:
		return "variable binding"
	case kindSetScoped:
		return "scoped variable binding"
	case kindParamContent:
		return "param-content"
	case kindStaticMarkup:
		return "static markup"
	case kindStaticCall:
		return "static element call"
	case kindPlainCall:
		return "tag call"
	case kindPolymorphicCall:
		return "polymorphic tag call"
	case kindRestoreCall:
		return "parameter-restoring call"
	default:
		return "unknown"
	}
}

// classify decides the compilation path of one element. Directive names
// win over everything; restore beats polymorphic dispatch; a known markup
// element without tag-level attributes or a qualifier stays static.
func classify(el *markup.Node, cx context) nodeKind {
	switch el.Name {
	case "def":
		if el.HasAttr("alias-of") {
			return kindAliasDefinition
		}
		return kindDefinition
	case "include":
		return kindInclude
	case "set-theme":
		return kindSetTheme
	case "set":
		return kindSet
	case "set-scoped":
		return kindSetScoped
	case "param-content":
		return kindParamContent
	}

	if cx.inParam() && el.HasAttr("restore") {
		return kindRestoreCall
	}
	if el.HasAttr("for-type") {
		return kindPolymorphicCall
	}
	if qualifier, base := splitQualifier(el.Name); qualifier == "" && markup.IsKnownHTMLTag(base) {
		for _, name := range callMarkerAttrs {
			if el.HasAttr(name) {
				return kindStaticCall
			}
		}
		return kindStaticMarkup
	}
	return kindPlainCall
}
