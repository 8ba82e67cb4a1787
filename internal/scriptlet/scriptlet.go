// Package scriptlet shields raw embedded-code fragments (<% ... %>) from the
// markup parser. Fragments are pulled out of the source before parsing and
// replaced with structurally inert placeholders that carry the same newline
// count, so line numbers in the shielded text match the original file. After
// compilation a restoration pass puts every fragment back, re-wrapped in the
// target inline-code delimiters.
package scriptlet

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// scriptletPattern matches one embedded-code fragment including delimiters.
var scriptletPattern = regexp.MustCompile(`(?s)<%(.*?)%>`)

// placeholderPattern matches a shield placeholder. The newlines of the
// original fragment live inside the brackets so that restoring a fragment
// replaces them along with the placeholder.
var placeholderPattern = regexp.MustCompile(`\[!\[TAGMARK-SCRIPTLET(\d+)\n*\]!\]`)

// Shield holds the shielded source and the extracted fragment table for one
// compile. It is per-document state and must not be shared across compiles.
type Shield struct {
	// Text is the source with every scriptlet replaced by a placeholder.
	Text string

	fragments map[int]string
	next      int
}

// Extract removes every scriptlet from src and returns the shield.
func Extract(src string) *Shield {
	s := &Shield{fragments: make(map[int]string)}
	s.Text = scriptletPattern.ReplaceAllStringFunc(src, func(m string) string {
		body := m[2 : len(m)-2] // strip <% and %>
		id := s.next
		s.next++
		s.fragments[id] = body
		return placeholder(id, strings.Count(m, "\n"))
	})
	return s
}

// placeholder builds the inert replacement token for fragment id, carrying
// newlines newline characters.
func placeholder(id, newlines int) string {
	return fmt.Sprintf("[![TAGMARK-SCRIPTLET%d%s]!]", id, strings.Repeat("\n", newlines))
}

// Restore replaces every placeholder occurrence in generated with the
// original fragment wrapped in the target inline-code delimiters.
// Placeholders with no matching fragment are left untouched.
func (s *Shield) Restore(generated string) string {
	return placeholderPattern.ReplaceAllStringFunc(generated, func(m string) string {
		sub := placeholderPattern.FindStringSubmatch(m)
		id, err := strconv.Atoi(sub[1])
		if err != nil {
			return m
		}
		body, ok := s.fragments[id]
		if !ok {
			return m
		}
		return "<%" + body + "%>"
	})
}

// Count returns the number of extracted fragments.
func (s *Shield) Count() int {
	return len(s.fragments)
}

// ContainsPlaceholder reports whether text embeds a shield placeholder.
// Code attributes may not embed scriptlets; the attribute compiler uses this
// to reject the mix.
func ContainsPlaceholder(text string) bool {
	return placeholderPattern.MatchString(text)
}
