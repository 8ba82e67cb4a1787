package builder

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TagInfo records the registry metadata of one defined tag.
type TagInfo struct {
	Name          string
	DeclaredAttrs []string
	Line          int
}

// Part records one extracted part callable.
type Part struct {
	Name   string
	Source string
	Line   int
}

// Import records one taglib include request, resolved later against the
// taglib search path.
type Import struct {
	Module string
	Src    string
	As     string
}

// Template is the compiled artifact of one source file: the generated page
// source, the definition prologue assembled from the replayed instructions,
// and the registry metadata the tooling reports on.
type Template struct {
	BuildID  uuid.UUID
	Path     string
	MTime    time.Time
	Source   string
	Prologue string

	Tags    map[string]TagInfo
	Aliases map[string]string
	Parts   map[string]Part
	Imports []Import
	Theme   string
}

// Tag reports the registry entry for name, following alias links.
func (t *Template) Tag(name string) (TagInfo, bool) {
	seen := map[string]bool{}
	for !seen[name] {
		seen[name] = true
		if info, ok := t.Tags[name]; ok {
			return info, true
		}
		old, ok := t.Aliases[name]
		if !ok {
			return TagInfo{}, false
		}
		name = old
	}
	return TagInfo{}, false
}

// TagNames returns the defined and aliased tag names in sorted order.
func (t *Template) TagNames() []string {
	names := make([]string, 0, len(t.Tags)+len(t.Aliases))
	for name := range t.Tags {
		names = append(names, name)
	}
	for name := range t.Aliases {
		if _, ok := t.Tags[name]; !ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Combined returns the full renderable source, prologue first.
func (t *Template) Combined() string {
	if t.Prologue == "" {
		return t.Source
	}
	return t.Prologue + t.Source
}

// Builder replays one document's instruction stream. A Builder is used for
// a single build and is not safe for concurrent use.
type Builder struct {
	log          *slog.Logger
	instructions []Instruction
}

// New returns a Builder logging through log. A nil log discards.
func New(log *slog.Logger) *Builder {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Builder{log: log}
}

// AddBuildInstruction appends one instruction to the replay stream.
func (b *Builder) AddBuildInstruction(in Instruction) {
	b.instructions = append(b.instructions, in)
}

// AddPart registers one extracted part callable as a define-part
// instruction.
func (b *Builder) AddPart(name, source string, line int) {
	b.instructions = append(b.instructions, Instruction{
		Kind:   KindDefinePart,
		Name:   name,
		Source: source,
		Line:   line,
	})
}

// Build replays the accumulated instructions over the generated page source
// and returns the assembled artifact.
func (b *Builder) Build(path, source string, mtime time.Time) (*Template, error) {
	t := &Template{
		BuildID: uuid.New(),
		Path:    path,
		MTime:   mtime,
		Source:  source,
		Tags:    map[string]TagInfo{},
		Aliases: map[string]string{},
		Parts:   map[string]Part{},
	}

	var prologue strings.Builder
	for _, in := range b.instructions {
		switch in.Kind {
		case KindDefineFunction:
			if _, dup := t.Tags[in.Name]; dup {
				return nil, fmt.Errorf("%s: duplicate definition of tag %q", path, in.Name)
			}
			t.Tags[in.Name] = TagInfo{Name: in.Name, DeclaredAttrs: in.DeclaredAttrs, Line: in.Line}
			delete(t.Aliases, in.Name)
			prologue.WriteString(in.Source)
		case KindDefinePart:
			if _, dup := t.Parts[in.Name]; dup {
				return nil, fmt.Errorf("%s: duplicate part %q", path, in.Name)
			}
			t.Parts[in.Name] = Part{Name: in.Name, Source: in.Source, Line: in.Line}
			prologue.WriteString(in.Source)
		case KindAlias:
			t.Aliases[in.Name] = in.OldName
			prologue.WriteString(fmt.Sprintf("<%% alias_method :%s, :%s %%>", in.Name, in.OldName))
		case KindInclude:
			t.Imports = append(t.Imports, Import{Module: in.Module, Src: in.Src, As: in.As})
		case KindSetTheme:
			t.Theme = in.Theme
		default:
			return nil, fmt.Errorf("%s: unknown build instruction kind %d", path, int(in.Kind))
		}
	}
	t.Prologue = prologue.String()

	b.log.Debug("template built",
		"path", path,
		"build_id", t.BuildID,
		"tags", len(t.Tags),
		"aliases", len(t.Aliases),
		"parts", len(t.Parts))
	return t, nil
}
