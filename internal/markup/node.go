// Package markup parses tag-markup source into a node tree for the compiler.
// The parser is deliberately literal: attribute values are kept raw (no
// entity decoding), tag names keep their case, and every node carries its
// byte offset and 1-based line so compile errors point at the original file.
package markup

import (
	"strings"

	"golang.org/x/net/html/atom"
)

// NodeType identifies the type of a markup node.
type NodeType int

// NodeType constants for markup node types.
const (
	DocumentNode NodeType = iota
	ElementNode
	TextNode
	CommentNode
	CDATANode
)

func (t NodeType) String() string {
	switch t {
	case DocumentNode:
		return "document"
	case ElementNode:
		return "element"
	case TextNode:
		return "text"
	case CommentNode:
		return "comment"
	case CDATANode:
		return "cdata"
	default:
		return "unknown"
	}
}

// Attr is one attribute of an element. Values are raw source text.
// HasValue distinguishes a bare attribute (merge) from an explicit empty
// value (merge=""); both are meaningful to the compiler.
type Attr struct {
	Name     string
	Value    string
	HasValue bool
	Quote    byte // quoting character in source; 0 for bare/unquoted
}

// Node is one node of the parsed tree.
type Node struct {
	Type     NodeType
	Name     string // element name, raw (may carry a field qualifier or trailing colon)
	Attrs    []Attr // ordered by declaration
	Data     string // raw text for text/comment/cdata nodes, delimiters included
	Parent   *Node
	Children []*Node

	Offset int // byte offset of the node start in the source
	End    int // byte offset just past the node end
	Line   int // 1-based source line of the node start

	HasEndTag   bool
	SelfClosing bool
	RawStart    string // raw start-tag source text, including < and >
}

// Attr returns the raw value of the named attribute and whether it is
// present. Absence and empty value are distinct.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// HasAttr reports whether the named attribute is present.
func (n *Node) HasAttr(name string) bool {
	_, ok := n.Attr(name)
	return ok
}

// IsParameterTag reports whether the element is a parameter tag: a child
// element supplying named content rather than an attribute, written with a
// trailing colon (<title:>...</title:>).
func (n *Node) IsParameterTag() bool {
	return n.Type == ElementNode && strings.HasSuffix(n.Name, ":")
}

// BaseName returns the element name without a parameter-tag colon.
func (n *Node) BaseName() string {
	return strings.TrimSuffix(n.Name, ":")
}

// IsWhitespaceText reports whether the node is text consisting only of
// whitespace.
func (n *Node) IsWhitespaceText() bool {
	return n.Type == TextNode && strings.TrimSpace(n.Data) == ""
}

// ChildElements returns the element children in document order.
func (n *Node) ChildElements() []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Type == ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// voidElements lists HTML elements that never take an end tag.
var voidElements = map[atom.Atom]bool{
	atom.Area: true, atom.Base: true, atom.Br: true, atom.Col: true,
	atom.Embed: true, atom.Hr: true, atom.Img: true, atom.Input: true,
	atom.Link: true, atom.Meta: true, atom.Source: true, atom.Track: true,
	atom.Wbr: true,
}

// IsKnownHTMLTag reports whether name is a standard HTML element name.
func IsKnownHTMLTag(name string) bool {
	return atom.Lookup([]byte(strings.ToLower(name))) != 0
}

// IsVoidTag reports whether name is an HTML void element (no end tag).
func IsVoidTag(name string) bool {
	return voidElements[atom.Lookup([]byte(strings.ToLower(name)))]
}
