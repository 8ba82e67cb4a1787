package compiler

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/tagmark-lang/tagmark/internal/builder"
	"github.com/tagmark-lang/tagmark/internal/erb"
	"github.com/tagmark-lang/tagmark/internal/markup"
	"github.com/tagmark-lang/tagmark/internal/scriptlet"
)

// InstructionSink receives the ordered build output of a successful
// compile. *builder.Builder satisfies it.
type InstructionSink interface {
	AddBuildInstruction(builder.Instruction)
	AddPart(name, source string, line int)
}

// Options configure one compile.
type Options struct {
	// Metadata adds debug comments locating definitions and calls in
	// the original source.
	Metadata bool
	Logger   *slog.Logger
}

// compile holds the per-document state of one compilation.
type compile struct {
	path   string
	src    string // shielded source, offsets match the node tree
	shield *scriptlet.Shield
	opts   Options
	log    *slog.Logger

	lastElement *markup.Node

	// Build output is buffered and forwarded to the sink only when the
	// whole document compiles.
	instructions []builder.Instruction
	parts        []builder.Part
}

// context threads the enclosing definition and parameter substitution
// through the tree walk. It is passed by value; child contexts never leak
// back up.
type context struct {
	defTag    string // raw tag name of the enclosing definition
	defName   string // mangled method name of the enclosing definition
	paramName string // enclosing parameter substitution, "" outside one
}

func (cx context) inDef() bool   { return cx.defName != "" }
func (cx context) inParam() bool { return cx.paramName != "" }

// Compile translates one tag markup document into procedural template
// source, forwarding build instructions to sink. The returned source
// preserves the newline count of every input span.
func Compile(src, path string, sink InstructionSink, opts Options) (string, error) {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	shield := scriptlet.Extract(src)
	doc, err := markup.Parse(shield.Text, path)
	if err != nil {
		var line int
		if pe, ok := err.(*markup.ParseError); ok {
			line = pe.Line
		}
		return "", &Error{Path: path, Line: line, Message: "parse error: " + err.Error(), Cause: err}
	}

	c := &compile{path: path, src: shield.Text, shield: shield, opts: opts, log: log}
	body, err := c.compileChildren(doc, context{})
	if err != nil {
		return "", err
	}

	out := shield.Restore(erb.Render(body))
	for i := range c.instructions {
		if c.instructions[i].Source != "" {
			c.instructions[i].Source = shield.Restore(c.instructions[i].Source)
		}
	}
	for i := range c.parts {
		c.parts[i].Source = shield.Restore(c.parts[i].Source)
	}
	if sink != nil {
		for _, in := range c.instructions {
			sink.AddBuildInstruction(in)
		}
		for _, p := range c.parts {
			sink.AddPart(p.Name, p.Source, p.Line)
		}
	}

	log.Debug("compiled template",
		"path", path,
		"instructions", len(c.instructions),
		"parts", len(c.parts),
		"scriptlets", shield.Count())
	return out, nil
}

// errorf builds a compile error positioned at el, falling back to the
// last element visited when el is nil.
func (c *compile) errorf(el *markup.Node, format string, args ...any) *Error {
	if el == nil {
		el = c.lastElement
	}
	line := 0
	if el != nil {
		line = el.Line
	}
	return &Error{Path: c.path, Line: line, Message: fmt.Sprintf(format, args...)}
}

// spanNewlines counts the newlines the node occupies in the source.
func (c *compile) spanNewlines(n *markup.Node) int {
	if n.End <= n.Offset || n.End > len(c.src) {
		return 0
	}
	return strings.Count(c.src[n.Offset:n.End], "\n")
}

// pad returns a node whose rendering is padded to the source newline
// count of n.
func (c *compile) pad(n *markup.Node, child erb.Node) erb.Node {
	return &erb.Span{Want: c.spanNewlines(n), Child: child}
}

func (c *compile) compileChildren(n *markup.Node, cx context) (erb.Node, error) {
	seq := &erb.Seq{}
	for _, child := range n.Children {
		node, err := c.compileNode(child, cx)
		if err != nil {
			return nil, err
		}
		if node != nil {
			seq.Nodes = append(seq.Nodes, node)
		}
	}
	return seq, nil
}

func (c *compile) compileNode(n *markup.Node, cx context) (erb.Node, error) {
	switch n.Type {
	case markup.TextNode, markup.CommentNode, markup.CDATANode:
		return &erb.Text{S: n.Data}, nil
	case markup.ElementNode:
		return c.compileElement(n, cx)
	default:
		return nil, c.errorf(n, "unexpected %s node", n.Type)
	}
}

func (c *compile) compileElement(el *markup.Node, cx context) (erb.Node, error) {
	c.lastElement = el
	if el.IsParameterTag() {
		return nil, c.errorf(el, "parameter tag <%s> is only allowed directly inside a tag call", el.Name)
	}

	switch classify(el, cx) {
	case kindDefinition, kindAliasDefinition:
		if err := c.compileDef(el, cx); err != nil {
			return nil, err
		}
		// Definitions leave only their newlines in the page output.
		return c.pad(el, &erb.Seq{}), nil
	case kindInclude:
		return c.compileInclude(el)
	case kindSetTheme:
		return c.compileSetTheme(el)
	case kindSet:
		return c.compileSet(el)
	case kindSetScoped:
		return c.compileSetScoped(el, cx)
	case kindParamContent:
		return c.compileParamContent(el, cx)
	case kindStaticMarkup:
		return c.compileStatic(el, cx)
	default:
		return c.compileCall(el, cx)
	}
}

// compileInclude buffers a taglib import. Includes are only meaningful
// before rendering, so they must sit at top level.
func (c *compile) compileInclude(el *markup.Node) (erb.Node, error) {
	if el.Parent == nil || el.Parent.Type != markup.DocumentNode {
		return nil, c.errorf(el, "<include> is only allowed at top level")
	}
	in := builder.Instruction{Kind: builder.KindInclude, Line: el.Line}
	var ok bool
	in.Module, _ = el.Attr("module")
	in.Src, _ = el.Attr("src")
	in.As, _ = el.Attr("as")
	if in.Module == "" && in.Src == "" {
		return nil, c.errorf(el, "<include> requires a module or src attribute")
	}
	if in.Module != "" && in.Src != "" {
		return nil, c.errorf(el, "<include> takes module or src, not both")
	}
	if _, ok = el.Attr("as"); ok && in.As == "" {
		return nil, c.errorf(el, "illegal empty as attribute on <include>")
	}
	if c.hasContent(el) {
		return nil, c.errorf(el, "<include> must be empty")
	}
	c.instructions = append(c.instructions, in)
	return c.pad(el, &erb.Seq{}), nil
}

func (c *compile) compileSetTheme(el *markup.Node) (erb.Node, error) {
	if el.Parent == nil || el.Parent.Type != markup.DocumentNode {
		return nil, c.errorf(el, "<set-theme> is only allowed at top level")
	}
	name, ok := el.Attr("name")
	if !ok || name == "" {
		return nil, c.errorf(el, "<set-theme> requires a name attribute")
	}
	if c.hasContent(el) {
		return nil, c.errorf(el, "<set-theme> must be empty")
	}
	c.instructions = append(c.instructions, builder.Instruction{
		Kind: builder.KindSetTheme, Theme: name, Line: el.Line,
	})
	return c.pad(el, &erb.Seq{}), nil
}

// compileSet emits local variable assignments, one per attribute, in
// declaration order.
func (c *compile) compileSet(el *markup.Node) (erb.Node, error) {
	if c.hasContent(el) {
		return nil, c.errorf(el, "<set> must be empty")
	}
	if len(el.Attrs) == 0 {
		return nil, c.errorf(el, "<set> requires at least one attribute")
	}
	var stmts []string
	for _, a := range el.Attrs {
		name, expr, err := c.assignment(el, a)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, name+" = "+expr)
	}
	return c.pad(el, &erb.Code{S: strings.Join(stmts, "; ")}), nil
}

// compileSetScoped binds scoped variables around its compiled content.
func (c *compile) compileSetScoped(el *markup.Node, cx context) (erb.Node, error) {
	pairs := &erb.Hash{}
	for _, a := range el.Attrs {
		name, expr, err := c.assignment(el, a)
		if err != nil {
			return nil, err
		}
		pairs.Pairs = append(pairs.Pairs, erb.Pair{
			Key:   &erb.Sym{Name: name},
			Value: &erb.Raw{S: expr},
		})
	}
	body, err := c.compileChildren(el, cx)
	if err != nil {
		return nil, err
	}
	seq := &erb.Seq{Nodes: []erb.Node{
		&erb.Code{S: "with_scoped_variables(" + erb.Render(pairs) + ") do"},
		body,
		&erb.Code{S: "end"},
	}}
	return c.pad(el, seq), nil
}

// assignment validates and compiles one variable-binding attribute.
func (c *compile) assignment(el *markup.Node, a markup.Attr) (name, expr string, err error) {
	if !isTagName(a.Name) {
		return "", "", c.errorf(el, "illegal variable name %q", a.Name)
	}
	name = mangle(a.Name)
	if implicitLocals[name] {
		return "", "", c.errorf(el, "cannot assign to implicit variable %q", name)
	}
	raw := &a.Value
	if !a.HasValue {
		raw = nil
	}
	node, err := c.compileAttrValue(el, raw, false)
	if err != nil {
		return "", "", err
	}
	return name, erb.Render(node), nil
}

// compileParamContent re-emits the default content of the named parameter.
func (c *compile) compileParamContent(el *markup.Node, cx context) (erb.Node, error) {
	if c.hasContent(el) {
		return nil, c.errorf(el, "<param-content> must be empty")
	}
	container, ok := el.Attr("for")
	if !ok {
		container = cx.defTag
	}
	if container == "" {
		return nil, c.errorf(el, "<param-content> outside a definition requires a for attribute")
	}
	if !isTagName(container) {
		return nil, c.errorf(el, "illegal tag name %q in for attribute", container)
	}
	expr := &erb.Raw{S: "param_content(" + erb.Render(&erb.Sym{Name: mangle(container)}) + ")"}
	return c.pad(el, &erb.Output{Expr: expr}), nil
}

// hasContent reports whether el has children beyond insignificant
// whitespace and comments.
func (c *compile) hasContent(el *markup.Node) bool {
	for _, child := range el.Children {
		switch child.Type {
		case markup.CommentNode:
		case markup.TextNode:
			if !child.IsWhitespaceText() {
				return true
			}
		default:
			return true
		}
	}
	return false
}
