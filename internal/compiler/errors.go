// Package compiler translates tag markup source into procedural template
// source. A compile walks the parsed node tree once, classifies every
// element, and emits generated output plus an ordered stream of build
// instructions for the builder to replay.
package compiler

import "fmt"

// Error is a compile failure positioned in the original source file.
type Error struct {
	Path    string
	Line    int
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }
