// Package builder receives the ordered build instructions produced by one
// document compile and replays them into a compiled template artifact. It
// also owns the process-wide, path-keyed artifact cache with
// modification-time invalidation.
package builder

import "fmt"

// Kind identifies a build-instruction kind.
type Kind int

// The closed set of instruction kinds replayed by the builder.
const (
	KindDefineFunction Kind = iota // generated source + line anchor + declared attrs
	KindDefinePart                 // part callable source + line anchor
	KindAlias                      // name pair
	KindInclude                    // taglib import options
	KindSetTheme                   // theme name
)

func (k Kind) String() string {
	switch k {
	case KindDefineFunction:
		return "define-function"
	case KindDefinePart:
		return "define-part"
	case KindAlias:
		return "alias"
	case KindInclude:
		return "include"
	case KindSetTheme:
		return "set-theme"
	default:
		return "unknown"
	}
}

// Instruction is one ordered, opaque unit of compiled output. Which fields
// are meaningful depends on Kind.
type Instruction struct {
	Kind Kind

	// Name names the defined function, part, or alias target.
	Name string
	// OldName is the aliased existing name (KindAlias).
	OldName string
	// Source is the generated target source (definitions and parts).
	Source string
	// Line anchors Source to the original file for error reporting.
	Line int
	// DeclaredAttrs is the declared-attribute metadata of a definition.
	DeclaredAttrs []string

	// Include options (KindInclude).
	Module string
	Src    string
	As     string

	// Theme name (KindSetTheme).
	Theme string
}

func (in Instruction) String() string {
	switch in.Kind {
	case KindAlias:
		return fmt.Sprintf("alias %s -> %s", in.Name, in.OldName)
	case KindInclude:
		ref := in.Module
		if ref == "" {
			ref = in.Src
		}
		return fmt.Sprintf("include %s", ref)
	case KindSetTheme:
		return fmt.Sprintf("set-theme %s", in.Theme)
	default:
		return fmt.Sprintf("%s %s", in.Kind, in.Name)
	}
}
