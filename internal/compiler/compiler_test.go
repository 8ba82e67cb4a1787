package compiler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagmark-lang/tagmark/internal/builder"
)

// recordingSink captures the build output of a compile.
type recordingSink struct {
	instructions []builder.Instruction
	parts        []builder.Part
}

func (s *recordingSink) AddBuildInstruction(in builder.Instruction) {
	s.instructions = append(s.instructions, in)
}

func (s *recordingSink) AddPart(name, source string, line int) {
	s.parts = append(s.parts, builder.Part{Name: name, Source: source, Line: line})
}

func mustCompile(t *testing.T, src string) (string, *recordingSink) {
	t.Helper()
	sink := &recordingSink{}
	out, err := Compile(src, "test.tm", sink, Options{})
	require.NoError(t, err)
	return out, sink
}

func TestCompile_Output(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "plain text",
			in:   "Hello, world",
			want: "Hello, world",
		},
		{
			name: "static element",
			in:   `<p class="big">Hello</p>`,
			want: `<p class="big">Hello</p>`,
		},
		{
			name: "static element keeps quote style",
			in:   `<p class='big'>x</p>`,
			want: `<p class='big'>x</p>`,
		},
		{
			name: "static element dynamic attribute",
			in:   `<p class="&c">x</p>`,
			want: `<p class="<%= (c) %>">x</p>`,
		},
		{
			name: "static element interpolation",
			in:   `<p title="Hi #{name}!">x</p>`,
			want: `<p title="Hi <%= name %>!">x</p>`,
		},
		{
			name: "static element entity value stays literal",
			in:   `<a href="&amp;x">x</a>`,
			want: `<a href="&amp;x">x</a>`,
		},
		{
			name: "void element",
			in:   `<br>`,
			want: `<br>`,
		},
		{
			name: "bare call",
			in:   `<card/>`,
			want: `<%= card({}, {}) %>`,
		},
		{
			name: "call attributes",
			in:   `<card title="News" compact/>`,
			want: `<%= card({:title => "News", :compact => true}, {}) %>`,
		},
		{
			name: "call dynamic attribute",
			in:   `<card title="&post.title"/>`,
			want: `<%= card({:title => (post.title)}, {}) %>`,
		},
		{
			name: "call hyphenated names",
			in:   `<form-field auto-focus="yes"/>`,
			want: `<%= form_field({:"auto-focus" => "yes"}, {}) %>`,
		},
		{
			name: "call reserved word tag name",
			in:   `<case/>`,
			want: `<%= case_({}, {}) %>`,
		},
		{
			name: "field qualifier",
			in:   `<user.card/>`,
			want: `<%= card({:field => "user"}, {}) %>`,
		},
		{
			name: "default content parameter",
			in:   `<card>Hi</card>`,
			want: `<%= card({}, {:default => proc { new_context { %>Hi<% } }}) %>`,
		},
		{
			name: "named parameter tag",
			in:   `<page><title:>Hi</title:></page>`,
			want: `<%= page({}, {:title => proc { new_context { %>Hi<% } }}) %>`,
		},
		{
			name: "hyphenated parameter tag mangles key",
			in:   `<page><nav-bar:>x</nav-bar:></page>`,
			want: `<%= page({}, {:nav_bar => proc { new_context { %>x<% } }}) %>`,
		},
		{
			name: "parameter tag targeting a named container",
			in:   `<page><title: for="card">x</title:></page>`,
			want: `<%= page({}, {:title => parameter_for(:card, proc { new_context { %>x<% } })}) %>`,
		},
		{
			name: "parameter tag container with a hyphenated name",
			in:   `<page><title: for="nav-bar">x</title:></page>`,
			want: `<%= page({}, {:title => parameter_for("nav-bar", proc { new_context { %>x<% } })}) %>`,
		},
		{
			name: "if attribute field path",
			in:   `<card if="published"/>`,
			want: `<%= (test_if(!(this.published).blank?) ? (card({}, {})) : '') %>`,
		},
		{
			name: "if attribute dynamic",
			in:   `<card if="&logged_in?"/>`,
			want: `<%= (test_if(!((logged_in?)).blank?) ? (card({}, {})) : '') %>`,
		},
		{
			name: "unless attribute",
			in:   `<card unless="hidden"/>`,
			want: `<%= (test_if((this.hidden).blank?) ? (card({}, {})) : '') %>`,
		},
		{
			name: "repeat boolean shorthand",
			in:   `<card repeat/>`,
			want: `<%= repeat_attribute(this) { card({}, {}) } %>`,
		},
		{
			name: "repeat dotted path",
			in:   `<card repeat="blog.posts"/>`,
			want: `<%= repeat_attribute(this.blog.posts) { card({}, {}) } %>`,
		},
		{
			name: "polymorphic literal type",
			in:   `<card for-type="Blog::Post"/>`,
			want: `<%= call_polymorphic_tag(:card, "Blog::Post", {}, {}) %>`,
		},
		{
			name: "polymorphic call-site type",
			in:   `<card for-type/>`,
			want: `<%= call_polymorphic_tag(:card, this_type, {}, {}) %>`,
		},
		{
			name: "polymorphic field type",
			in:   `<card for-type=".author"/>`,
			want: `<%= call_polymorphic_tag(:card, field_type(:author), {}, {}) %>`,
		},
		{
			name: "polymorphic dynamic type",
			in:   `<card for-type="&x.class"/>`,
			want: `<%= call_polymorphic_tag(:card, (x.class), {}, {}) %>`,
		},
		{
			name: "set variables",
			in:   `<set x="1" y="&f(2)"/>`,
			want: `<% x = "1"; y = (f(2)) %>`,
		},
		{
			name: "set-scoped wraps content",
			in:   `<set-scoped theme="dark"><card/></set-scoped>`,
			want: `<% with_scoped_variables({:theme => "dark"}) do %><%= card({}, {}) %><% end %>`,
		},
		{
			name: "comment passthrough",
			in:   `<!-- note --><card/>`,
			want: `<!-- note --><%= card({}, {}) %>`,
		},
		{
			name: "scriptlet passthrough",
			in:   "a <% x = 1 %> b <%= x %>",
			want: "a <% x = 1 %> b <%= x %>",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _ := mustCompile(t, tt.in)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestCompile_GreetScenario(t *testing.T) {
	src := `<def tag="greet" attrs="name"><b>Hello <%= name %></b></def>` + "\n" +
		`<greet name="&user.name"/>`
	out, sink := mustCompile(t, src)

	assert.Equal(t, "\n<%= greet({:name => (user.name)}, {}) %>", out)

	require.Len(t, sink.instructions, 1)
	in := sink.instructions[0]
	assert.Equal(t, builder.KindDefineFunction, in.Kind)
	assert.Equal(t, "greet", in.Name)
	assert.Equal(t, []string{"name"}, in.DeclaredAttrs)
	assert.Equal(t, 1, in.Line)
	assert.Equal(t,
		`<% def greet(attributes, parameters); name, = attributes.values_at(:name); `+
			`new_tag_context(:greet, attributes, parameters) do %>`+
			`<b>Hello <%= name %></b><% end; end %>`,
		in.Source)
}

func TestCompile_MultipleDeclaredAttrs(t *testing.T) {
	src := `<def tag="card" attrs="title, body-text">x</def>`
	_, sink := mustCompile(t, src)

	require.Len(t, sink.instructions, 1)
	in := sink.instructions[0]
	assert.Equal(t, []string{"title", "body_text"}, in.DeclaredAttrs)
	assert.Contains(t, in.Source, "title, body_text = attributes.values_at(:title, :body_text)")
}

func TestCompile_ParamSubstitution(t *testing.T) {
	src := `<def tag="page"><h1 param="title">Welcome</h1></def>`
	_, sink := mustCompile(t, src)

	require.Len(t, sink.instructions, 1)
	assert.Equal(t,
		`<% def page(attributes, parameters); new_tag_context(:page, attributes, parameters) do %>`+
			`<%= call_tag_parameter(:title, parameters, {}, `+
			`{:default => proc { new_context { %>Welcome<% } }}) `+
			`{ |a, p| element("h1", a, p) } %>`+
			`<% end; end %>`,
		sink.instructions[0].Source)
}

func TestCompile_ParamDefaultsToTagName(t *testing.T) {
	src := `<def tag="page"><card param/></def>`
	_, sink := mustCompile(t, src)

	require.Len(t, sink.instructions, 1)
	assert.Contains(t, sink.instructions[0].Source,
		`call_tag_parameter(:card, parameters, {}, {}) { |a, p| card(a, p) }`)
}

func TestCompile_MergeForwardsCallerMappings(t *testing.T) {
	src := `<def tag="page2"><page merge><title: merge>Hi</title:></page></def>`
	_, sink := mustCompile(t, src)

	require.Len(t, sink.instructions, 1)
	assert.Contains(t, sink.instructions[0].Source,
		`page(merge_attrs({}, attributes), `+
			`merge_params({:title => merge_parameter(parameters[:title], `+
			`proc { new_context { %>Hi<% } })}, parameters))`)
}

func TestCompile_MergeAttrsExplicitValue(t *testing.T) {
	src := `<def tag="page2"><card merge-attrs="&opts"/></def>`
	_, sink := mustCompile(t, src)

	require.Len(t, sink.instructions, 1)
	assert.Contains(t, sink.instructions[0].Source, `card(merge_attrs({}, (opts)), {})`)
}

func TestCompile_RestoreCall(t *testing.T) {
	src := `<def tag="page2"><page><title:><b><title restore/></b></title:></page></def>`
	_, sink := mustCompile(t, src)

	require.Len(t, sink.instructions, 1)
	assert.Contains(t, sink.instructions[0].Source,
		`{:title => proc { new_context { %><b><%= title_restore.call({}, {}) %></b><% } }}`)
}

func TestCompile_ParamContent(t *testing.T) {
	src := `<def tag="page"><param-content/> and <param-content for="card"/></def>`
	_, sink := mustCompile(t, src)

	require.Len(t, sink.instructions, 1)
	assert.Contains(t, sink.instructions[0].Source,
		`<%= param_content(:page) %> and <%= param_content(:card) %>`)
}

func TestCompile_PartExtraction(t *testing.T) {
	out, sink := mustCompile(t, `<div part="sidebar">x</div>`)

	assert.Equal(t, `<%= call_part("sidebar", :sidebar) %>`, out)
	require.Len(t, sink.parts, 1)
	assert.Equal(t, "sidebar", sink.parts[0].Name)
	assert.Equal(t, 1, sink.parts[0].Line)
	assert.Equal(t,
		`<% def sidebar_part(); new_context do %>`+
			`<%= element("div", {}, {:default => proc { new_context { %>x<% } }}) %>`+
			`<% end; end %>`,
		sink.parts[0].Source)
}

func TestCompile_PartLocalsAndID(t *testing.T) {
	out, sink := mustCompile(t, `<div part="row" part-locals="item, index" id="&item.id">x</div>`)

	assert.Equal(t, `<%= call_part((item.id), :row, item, index) %>`, out)
	require.Len(t, sink.parts, 1)
	assert.True(t, strings.HasPrefix(sink.parts[0].Source, "<% def row_part(item, index); new_context do %>"))
}

func TestCompile_AliasDefinition(t *testing.T) {
	_, sink := mustCompile(t, `<def tag="panel" alias-of="card"/>`)

	require.Len(t, sink.instructions, 1)
	assert.Equal(t, builder.Instruction{
		Kind: builder.KindAlias, Name: "panel", OldName: "card", Line: 1,
	}, sink.instructions[0])
}

func TestCompile_ExtendWith(t *testing.T) {
	_, sink := mustCompile(t, `<def tag="card" extend-with="icon"><b>x</b></def>`)

	require.Len(t, sink.instructions, 3)
	assert.Equal(t, builder.KindDefineFunction, sink.instructions[0].Kind)
	assert.Equal(t, "card_with_icon", sink.instructions[0].Name)
	assert.Contains(t, sink.instructions[0].Source, "def card_with_icon(attributes, parameters)")

	assert.Equal(t, builder.KindAlias, sink.instructions[1].Kind)
	assert.Equal(t, "card_without_icon", sink.instructions[1].Name)
	assert.Equal(t, "card", sink.instructions[1].OldName)

	assert.Equal(t, builder.KindAlias, sink.instructions[2].Kind)
	assert.Equal(t, "card", sink.instructions[2].Name)
	assert.Equal(t, "card_with_icon", sink.instructions[2].OldName)
}

func TestCompile_TypeSpecializedDefinition(t *testing.T) {
	_, sink := mustCompile(t, `<def tag="card" for="Blog::Post">x</def>`)

	require.Len(t, sink.instructions, 1)
	assert.Equal(t, "card__for_blog__post", sink.instructions[0].Name)
}

func TestCompile_IncludeAndTheme(t *testing.T) {
	src := `<include module="core" as="c"/>` + "\n" +
		`<include src="lib/forms"/>` + "\n" +
		`<set-theme name="clean"/>`
	out, sink := mustCompile(t, src)

	assert.Equal(t, "\n\n", out)
	require.Len(t, sink.instructions, 3)
	assert.Equal(t, builder.KindInclude, sink.instructions[0].Kind)
	assert.Equal(t, "core", sink.instructions[0].Module)
	assert.Equal(t, "c", sink.instructions[0].As)
	assert.Equal(t, "lib/forms", sink.instructions[1].Src)
	assert.Equal(t, builder.KindSetTheme, sink.instructions[2].Kind)
	assert.Equal(t, "clean", sink.instructions[2].Theme)
}

func TestCompile_NewlinePreservation(t *testing.T) {
	src := "<def tag=\"page\"\n     attrs=\"title\">\n  <h1>hi</h1>\n</def>\n<page/>"
	out, sink := mustCompile(t, src)

	assert.Equal(t, strings.Count(src, "\n"), strings.Count(out, "\n"))
	require.Len(t, sink.instructions, 1)
	assert.Equal(t, 3, strings.Count(sink.instructions[0].Source, "\n"))
}

func TestCompile_ScriptletNewlinesSurviveShield(t *testing.T) {
	src := "a<%\n x = 1\n%>b"
	out, _ := mustCompile(t, src)
	assert.Equal(t, src, out)
}

func TestCompile_Metadata(t *testing.T) {
	sink := &recordingSink{}
	out, err := Compile(`<card/>`, "test.tm", sink, Options{Metadata: true})
	require.NoError(t, err)
	assert.Equal(t, `<%= card({}, {}) %><%# card call line:1 %>`, out)

	sink = &recordingSink{}
	_, err = Compile(`<def tag="greet">x</def>`, "test.tm", sink, Options{Metadata: true})
	require.NoError(t, err)
	require.Len(t, sink.instructions, 1)
	assert.Contains(t, sink.instructions[0].Source,
		`<!--[tagmark:def greet test.tm line:1]-->x<!--[/tagmark:def greet]-->`)

	// script is in the exclusion set, no comment may land inside it.
	sink = &recordingSink{}
	out, err = Compile(`<script if="&debug">x</script>`, "test.tm", sink, Options{Metadata: true})
	require.NoError(t, err)
	assert.NotContains(t, out, "<%#")
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "nested def",
			in:   "<div>\n<def tag=\"x\">y</def>\n</div>",
			want: "test.tm:2: <def> is only allowed at top level",
		},
		{
			name: "def missing tag",
			in:   `<def attrs="a">x</def>`,
			want: "test.tm:1: <def> requires a tag attribute",
		},
		{
			name: "def alias and extend conflict",
			in:   `<def tag="a" alias-of="b" extend-with="c"/>`,
			want: "test.tm:1: <def> takes alias-of or extend-with, not both",
		},
		{
			name: "alias with body",
			in:   `<def tag="a" alias-of="b">x</def>`,
			want: "test.tm:1: a def with alias-of must have an empty body",
		},
		{
			name: "reserved declared attribute",
			in:   `<def tag="a" attrs="if">x</def>`,
			want: `test.tm:1: declared attribute "if" is reserved`,
		},
		{
			name: "declared attribute collides with implicit local",
			in:   `<def tag="a" attrs="this">x</def>`,
			want: `test.tm:1: declared attribute "this" collides with an implicit local`,
		},
		{
			name: "conflicting control attributes",
			in:   `<card if unless/>`,
			want: "test.tm:1: conflicting control attributes if and unless",
		},
		{
			name: "param outside definition",
			in:   `<card param/>`,
			want: "test.tm:1: param is only allowed inside a definition",
		},
		{
			name: "restore outside parameter content",
			in:   `<card restore/>`,
			want: "test.tm:1: restore is only allowed inside parameter content",
		},
		{
			name: "mixed content and parameter tags",
			in:   `<page><title:>x</title:>stray</page>`,
			want: "test.tm:1: call to <page> mixes parameter tags with plain content",
		},
		{
			name: "stray parameter tag",
			in:   `<title:>x</title:>`,
			want: "test.tm:1: parameter tag <title:> is only allowed directly inside a tag call",
		},
		{
			name: "scriptlet inside code attribute",
			in:   `<card x="&f(<% y %>)"/>`,
			want: "test.tm:1: scriptlet blocks are not allowed inside code attributes",
		},
		{
			name: "delegated part",
			in:   `<def tag="page"><div part="s"><h1 param/></div></def>`,
			want: `test.tm:1: delegated parts are not supported: part "s" contains a param substitution`,
		},
		{
			name: "part without name",
			in:   `<div part>x</div>`,
			want: "test.tm:1: part attribute requires a name",
		},
		{
			name: "merge outside definition",
			in:   `<card merge/>`,
			want: "test.tm:1: merge without a value is only allowed inside a definition",
		},
		{
			name: "include not at top level",
			in:   `<div><include module="core"/></div>`,
			want: "test.tm:1: <include> is only allowed at top level",
		},
		{
			name: "include with both module and src",
			in:   `<include module="a" src="b"/>`,
			want: "test.tm:1: <include> takes module or src, not both",
		},
		{
			name: "set-theme without name",
			in:   `<set-theme/>`,
			want: "test.tm:1: <set-theme> requires a name attribute",
		},
		{
			name: "assignment to implicit variable",
			in:   `<set this="1"/>`,
			want: `test.tm:1: cannot assign to implicit variable "this"`,
		},
		{
			name: "illegal control value",
			in:   `<card if="a b"/>`,
			want: `test.tm:1: illegal value "a b" for if attribute`,
		},
		{
			name: "parse error",
			in:   "<div>\n<b>unclosed\n</div>",
			want: "test.tm",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.in, "test.tm", &recordingSink{}, Options{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCompile_ErrorAbortsInstructionForwarding(t *testing.T) {
	src := `<def tag="ok">x</def>` + "\n" + `<card if unless/>`
	sink := &recordingSink{}
	_, err := Compile(src, "test.tm", sink, Options{})
	require.Error(t, err)
	assert.Empty(t, sink.instructions)
	assert.Empty(t, sink.parts)
}

func TestMangle(t *testing.T) {
	tests := []struct{ in, want string }{
		{"card", "card"},
		{"nav-bar", "nav_bar"},
		{"if", "if_"},
		{"class", "class_"},
		{"end", "end_"},
		{"my-def", "my_def"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, mangle(tt.in), tt.in)
	}
}

func TestMangleType(t *testing.T) {
	assert.Equal(t, "blog__post", mangleType("Blog::Post"))
	assert.Equal(t, "user", mangleType("User"))
}

func TestSplitQualifier(t *testing.T) {
	q, base := splitQualifier("user.card")
	assert.Equal(t, "user", q)
	assert.Equal(t, "card", base)

	q, base = splitQualifier("card")
	assert.Equal(t, "", q)
	assert.Equal(t, "card", base)
}

func TestSplitCommaList(t *testing.T) {
	assert.Equal(t, []string{"a", "b-c", "d"}, splitCommaList(" a, b-c ,d,"))
	assert.Nil(t, splitCommaList("  "))
}
