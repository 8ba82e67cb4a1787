package markup

import (
	"fmt"
	"strings"
)

// ParseError represents a markup parse failure.
type ParseError struct {
	File    string
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Message)
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// parser walks the source byte by byte, tracking line numbers.
type parser struct {
	src  string
	file string
	pos  int
	line int
}

// Parse parses tag-markup source into a document node.
func Parse(src, file string) (*Node, error) {
	p := &parser{src: src, file: file, line: 1}
	doc := &Node{Type: DocumentNode, Line: 1, End: len(src)}

	var stack []*Node
	top := func() *Node {
		if len(stack) > 0 {
			return stack[len(stack)-1]
		}
		return doc
	}

	for p.pos < len(p.src) {
		start, startLine := p.pos, p.line

		switch {
		case p.match("<!--"):
			raw, err := p.scanTo("-->", "unterminated comment")
			if err != nil {
				return nil, err
			}
			p.append(top(), &Node{Type: CommentNode, Data: raw, Offset: start, End: p.pos, Line: startLine})

		case p.match("<![CDATA["):
			raw, err := p.scanTo("]]>", "unterminated CDATA section")
			if err != nil {
				return nil, err
			}
			p.append(top(), &Node{Type: CDATANode, Data: raw, Offset: start, End: p.pos, Line: startLine})

		case p.match("<!"):
			// Doctype and other declarations pass through as literal text.
			raw, err := p.scanTo(">", "unterminated markup declaration")
			if err != nil {
				return nil, err
			}
			p.append(top(), &Node{Type: TextNode, Data: raw, Offset: start, End: p.pos, Line: startLine})

		case p.match("</"):
			name, err := p.scanEndTag()
			if err != nil {
				return nil, err
			}
			if len(stack) == 0 {
				return nil, p.errorAt(startLine, fmt.Sprintf("unexpected end tag </%s>", name))
			}
			open := stack[len(stack)-1]
			if open.Name != name {
				return nil, p.errorAt(startLine, fmt.Sprintf("mismatched end tag </%s>; expected </%s>", name, open.Name))
			}
			open.HasEndTag = true
			open.End = p.pos
			stack = stack[:len(stack)-1]

		case p.startsElement():
			el, err := p.scanStartTag()
			if err != nil {
				return nil, err
			}
			p.append(top(), el)
			if !el.SelfClosing && !IsVoidTag(el.Name) {
				stack = append(stack, el)
			}

		default:
			text := p.scanText()
			p.append(top(), &Node{Type: TextNode, Data: text, Offset: start, End: p.pos, Line: startLine})
		}
	}

	if len(stack) > 0 {
		open := stack[len(stack)-1]
		return nil, p.errorAt(open.Line, fmt.Sprintf("unclosed element <%s>", open.Name))
	}

	return doc, nil
}

func (p *parser) append(parent, child *Node) {
	child.Parent = parent
	parent.Children = append(parent.Children, child)
}

func (p *parser) errorAt(line int, msg string) *ParseError {
	return &ParseError{File: p.file, Line: line, Message: msg}
}

// match reports whether the input at the current position begins with s.
func (p *parser) match(s string) bool {
	return strings.HasPrefix(p.src[p.pos:], s)
}

// startsElement reports whether the current position opens a start tag.
func (p *parser) startsElement() bool {
	if p.pos+1 >= len(p.src) || p.src[p.pos] != '<' {
		return false
	}
	return isNameStart(p.src[p.pos+1])
}

// advance moves n bytes forward, counting newlines.
func (p *parser) advance(n int) {
	end := p.pos + n
	if end > len(p.src) {
		end = len(p.src)
	}
	p.line += strings.Count(p.src[p.pos:end], "\n")
	p.pos = end
}

// scanTo consumes input through the first occurrence of end and returns the
// raw text including both delimiters.
func (p *parser) scanTo(end, errMsg string) (string, error) {
	startLine := p.line
	i := strings.Index(p.src[p.pos:], end)
	if i < 0 {
		return "", p.errorAt(startLine, errMsg)
	}
	raw := p.src[p.pos : p.pos+i+len(end)]
	p.advance(i + len(end))
	return raw, nil
}

// scanText consumes literal text up to the next markup construct.
func (p *parser) scanText() string {
	start := p.pos
	for p.pos < len(p.src) {
		if p.src[p.pos] == '<' && p.pos+1 < len(p.src) {
			c := p.src[p.pos+1]
			if isNameStart(c) || c == '/' || c == '!' {
				break
			}
		}
		p.advance(1)
	}
	return p.src[start:p.pos]
}

// scanEndTag consumes </name> and returns the name.
func (p *parser) scanEndTag() (string, error) {
	startLine := p.line
	p.advance(2) // </
	name := p.scanName()
	if name == "" {
		return "", p.errorAt(startLine, "malformed end tag")
	}
	p.skipSpace()
	if p.pos >= len(p.src) || p.src[p.pos] != '>' {
		return "", p.errorAt(startLine, fmt.Sprintf("malformed end tag </%s", name))
	}
	p.advance(1)
	return name, nil
}

// scanStartTag consumes a start tag and returns the element node.
func (p *parser) scanStartTag() (*Node, error) {
	start, startLine := p.pos, p.line
	p.advance(1) // <
	name := p.scanName()

	el := &Node{Type: ElementNode, Name: name, Offset: start, Line: startLine}

	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			return nil, p.errorAt(startLine, fmt.Sprintf("unterminated start tag <%s", name))
		}
		if p.match("/>") {
			p.advance(2)
			el.SelfClosing = true
			break
		}
		if p.src[p.pos] == '>' {
			p.advance(1)
			break
		}

		attr, err := p.scanAttr(startLine, name)
		if err != nil {
			return nil, err
		}
		for _, existing := range el.Attrs {
			if existing.Name == attr.Name {
				return nil, p.errorAt(startLine, fmt.Sprintf("duplicate attribute %q on <%s>", attr.Name, name))
			}
		}
		el.Attrs = append(el.Attrs, attr)
	}

	el.End = p.pos
	el.RawStart = p.src[start:p.pos]
	return el, nil
}

// scanAttr consumes one attribute. Quoted values are kept raw: no entity
// decoding, newlines preserved.
func (p *parser) scanAttr(tagLine int, tagName string) (Attr, error) {
	name := p.scanAttrName()
	if name == "" {
		return Attr{}, p.errorAt(p.line, fmt.Sprintf("malformed attribute in <%s>", tagName))
	}

	p.skipSpace()
	if p.pos >= len(p.src) || p.src[p.pos] != '=' {
		return Attr{Name: name}, nil // bare attribute
	}
	p.advance(1)
	p.skipSpace()

	if p.pos < len(p.src) && (p.src[p.pos] == '"' || p.src[p.pos] == '\'') {
		quote := p.src[p.pos]
		p.advance(1)
		start := p.pos
		i := strings.IndexByte(p.src[p.pos:], quote)
		if i < 0 {
			return Attr{}, p.errorAt(tagLine, fmt.Sprintf("unterminated value for attribute %q in <%s>", name, tagName))
		}
		p.advance(i)
		value := p.src[start:p.pos]
		p.advance(1)
		return Attr{Name: name, Value: value, HasValue: true, Quote: quote}, nil
	}

	// Unquoted value: a single token.
	start := p.pos
	for p.pos < len(p.src) && !isSpace(p.src[p.pos]) && p.src[p.pos] != '>' && !p.match("/>") {
		p.advance(1)
	}
	if p.pos == start {
		return Attr{}, p.errorAt(tagLine, fmt.Sprintf("missing value for attribute %q in <%s>", name, tagName))
	}
	return Attr{Name: name, Value: p.src[start:p.pos], HasValue: true}, nil
}

func (p *parser) scanName() string {
	start := p.pos
	for p.pos < len(p.src) && isNameChar(p.src[p.pos]) {
		p.advance(1)
	}
	return p.src[start:p.pos]
}

func (p *parser) scanAttrName() string {
	start := p.pos
	for p.pos < len(p.src) && isAttrNameChar(p.src[p.pos]) {
		p.advance(1)
	}
	return p.src[start:p.pos]
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) && isSpace(p.src[p.pos]) {
		p.advance(1)
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isNameStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

func isNameChar(c byte) bool {
	return isNameStart(c) || c >= '0' && c <= '9' || c == '-' || c == '.' || c == ':'
}

func isAttrNameChar(c byte) bool {
	return isNameStart(c) || c >= '0' && c <= '9' || c == '-' || c == '.' || c == ':'
}
