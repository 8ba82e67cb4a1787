// Package erb provides a small typed syntax tree for the Ruby/ERB source the
// compiler generates, plus a single rendering pass to text. Building target
// source through this tree (instead of ad hoc string concatenation) keeps
// quoting rules and the newline-preservation invariant in one place.
package erb

// Node is the interface for all generated-source nodes.
type Node interface {
	render(w *writer)
	node() // marker method to restrict implementation
}

// nodeBase provides the marker method for all nodes.
type nodeBase struct{}

func (nodeBase) node() {}

// Text is template text passed through unchanged (raw-passthrough).
type Text struct {
	nodeBase
	S string
}

// Output is an expression emitted into the rendered page: <%= expr %>.
type Output struct {
	nodeBase
	Expr Node
}

// Code is a Ruby statement fragment: <% s %>.
type Code struct {
	nodeBase
	S string
}

// Comment is an ERB comment: <%# s %>. It renders to nothing at runtime.
type Comment struct {
	nodeBase
	S string
}

// HTMLComment is a literal markup comment: <!--[s]-->.
type HTMLComment struct {
	nodeBase
	S string
}

// Seq is an ordered sequence of nodes.
type Seq struct {
	nodeBase
	Nodes []Node
}

// Span wraps a node whose rendering must reproduce the newline count of its
// source span. Rendering pads with trailing newlines when the child emits
// fewer than Want; it never removes newlines the child emits.
type Span struct {
	nodeBase
	Want  int
	Child Node
}

// Raw is a verbatim Ruby expression.
type Raw struct {
	nodeBase
	S string
}

// Str is a quoted Ruby string literal. The renderer quotes with double
// quotes, or single quotes when the value contains a double quote. Values
// containing both quote characters must be rejected before construction
// (see CanQuote).
type Str struct {
	nodeBase
	S string
}

// Sym is a Ruby symbol literal. Identifier-shaped names render as :name,
// anything else as :"name".
type Sym struct {
	nodeBase
	Name string
}

// Nil is the Ruby nil literal.
type Nil struct {
	nodeBase
}

// Pair is one key/value entry of a Hash.
type Pair struct {
	Key   Node
	Value Node
}

// Hash is a Ruby hash literal: {k => v, ...}.
type Hash struct {
	nodeBase
	Pairs []Pair
}

// Call is a method call expression. When Block is non-nil it renders as a
// trailing do-block whose body is template text.
type Call struct {
	nodeBase
	Name  string
	Args  []Node
	Block *Block
}

// Block is a do-block spanning ERB delimiters:
//
//	do |params| %>BODY<% end
type Block struct {
	Params []string
	Body   Node
}

// Proc is an anonymous callable over template content:
//
//	proc { Wrap { %>BODY<% } }
//
// Wrap names the runtime helper that opens a fresh rendering scope; it may
// be empty, in which case the proc wraps the body directly.
type Proc struct {
	nodeBase
	Wrap string
	Body Node
}

// Cond is a conditional wrapper (the if/unless reserved attributes):
//
//	(test_if(TEST) ? (BODY) : '')
//
// Test is a rendered Ruby expression; the helper records the process-wide
// last-conditional flag on both branches.
type Cond struct {
	nodeBase
	Test string
	Body Node
}

// Loop is a repeat wrapper (the repeat reserved attribute):
//
//	repeat_attribute(OVER) { BODY }
type Loop struct {
	nodeBase
	Over string
	Body Node
}

// Def is a generated method definition whose body is template text:
//
//	<% def NAME(PARAMS); PROLOGUE do %>BODY<% end; end %>
//
// Prologue holds Ruby statements ending in the call that takes the do-block
// (typically the tag-context helper).
type Def struct {
	nodeBase
	Name     string
	Params   []string
	Prologue string
	Body     Node
}
