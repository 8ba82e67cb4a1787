package compiler

import (
	"regexp"
	"strings"
)

// reservedAttrs are the attribute names with dedicated compilation logic.
// They never become ordinary call attributes.
var reservedAttrs = map[string]bool{
	"param":        true,
	"merge":        true,
	"merge-params": true,
	"merge-attrs":  true,
	"for-type":     true,
	"if":           true,
	"unless":       true,
	"repeat":       true,
	"part":         true,
	"part-locals":  true,
	"restore":      true,
}

// callMarkerAttrs force a known markup element through the programmatic
// call path instead of static re-serialization.
var callMarkerAttrs = []string{
	"param", "merge", "merge-params", "merge-attrs",
	"if", "unless", "repeat", "part", "part-locals", "restore",
}

// rubyReserved are target-language keywords that cannot name a generated
// method or local. Mangling appends an underscore.
var rubyReserved = map[string]bool{
	"BEGIN": true, "END": true, "alias": true, "and": true, "begin": true,
	"break": true, "case": true, "class": true, "def": true, "defined?": true,
	"do": true, "else": true, "elsif": true, "end": true, "ensure": true,
	"false": true, "for": true, "if": true, "in": true, "module": true,
	"next": true, "nil": true, "not": true, "or": true, "redo": true,
	"rescue": true, "retry": true, "return": true, "self": true, "super": true,
	"then": true, "true": true, "undef": true, "unless": true, "until": true,
	"when": true, "while": true, "yield": true,
}

// implicitLocals are bound in every generated definition body and cannot
// be shadowed by declared attributes.
var implicitLocals = map[string]bool{
	"attributes": true,
	"parameters": true,
	"this":       true,
}

// noMetadataTags suppress debug metadata comments, which would be invalid
// or visible inside these elements.
var noMetadataTags = map[string]bool{
	"html": true, "head": true, "title": true, "meta": true,
	"link": true, "script": true, "style": true, "base": true,
}

var (
	tagNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_-]*$`)
	pathPattern    = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*(\.[a-zA-Z_][a-zA-Z0-9_]*)*$`)
)

// isTagName reports whether s is a legal tag, attribute, part, or
// parameter name before mangling.
func isTagName(s string) bool { return tagNamePattern.MatchString(s) }

// isFieldPath reports whether s is a dotted chain of plain identifiers.
func isFieldPath(s string) bool { return pathPattern.MatchString(s) }

// mangle maps a markup name to a target-language identifier: hyphens
// become underscores and reserved words grow a trailing underscore.
func mangle(name string) string {
	s := strings.ReplaceAll(name, "-", "_")
	if rubyReserved[s] {
		s += "_"
	}
	return s
}

// mangleType flattens a type name into an identifier suffix, so a
// definition specialized for Blog::Post lands on name__for_blog__post.
func mangleType(t string) string {
	s := strings.ToLower(t)
	s = strings.ReplaceAll(s, "::", "__")
	s = strings.ReplaceAll(s, "-", "_")
	return s
}

// splitQualifier splits a leading field qualifier off a call name, so
// "user.card" yields ("user", "card"). Names without a dot pass through.
func splitQualifier(name string) (qualifier, base string) {
	if i := strings.IndexByte(name, '.'); i > 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}

// splitCommaList splits a comma-separated attribute value, trimming
// whitespace and dropping empty entries.
func splitCommaList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
