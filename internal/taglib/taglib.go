// Package taglib resolves cross-file tag-library includes. A library is a
// directory carrying a taglib.yaml manifest naming the template files it
// exports; includes reference libraries by module name or by direct
// source path.
package taglib

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ManifestFile is the manifest name looked up inside library directories.
const ManifestFile = "taglib.yaml"

// Manifest describes one tag library.
type Manifest struct {
	Name        string   `yaml:"name"`
	Version     string   `yaml:"version"`
	Description string   `yaml:"description"`
	Templates   []string `yaml:"templates"`

	// Dir is where the manifest was loaded from. Not part of the file.
	Dir string `yaml:"-"`
}

// LoadManifest reads and validates a manifest file. Unknown fields are
// rejected so typos surface instead of silently dropping settings.
func LoadManifest(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer f.Close()

	var m Manifest
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", path, err)
	}
	if m.Name == "" {
		return nil, fmt.Errorf("invalid manifest %s: missing name", path)
	}
	if len(m.Templates) == 0 {
		return nil, fmt.Errorf("invalid manifest %s: no templates listed", path)
	}
	m.Dir = filepath.Dir(path)
	return &m, nil
}

// TemplatePaths returns the absolute paths of the library's templates.
func (m *Manifest) TemplatePaths() []string {
	out := make([]string, len(m.Templates))
	for i, t := range m.Templates {
		out[i] = filepath.Join(m.Dir, t)
	}
	return out
}

// Resolver locates libraries across a search path.
type Resolver struct {
	SearchPaths []string
}

// NewResolver returns a Resolver over the given search paths.
func NewResolver(searchPaths []string) *Resolver {
	return &Resolver{SearchPaths: searchPaths}
}

// Resolve finds the library named module. Each search path is scanned for
// a directory whose manifest carries that name; the directory's own name
// is tried first as a shortcut.
func (r *Resolver) Resolve(module string) (*Manifest, error) {
	for _, root := range r.SearchPaths {
		direct := filepath.Join(root, module, ManifestFile)
		if _, err := os.Stat(direct); err == nil {
			m, err := LoadManifest(direct)
			if err != nil {
				return nil, err
			}
			if m.Name == module {
				return m, nil
			}
		}

		entries, err := os.ReadDir(root)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			candidate := filepath.Join(root, e.Name(), ManifestFile)
			if _, err := os.Stat(candidate); err != nil {
				continue
			}
			m, err := LoadManifest(candidate)
			if err != nil {
				return nil, err
			}
			if m.Name == module {
				return m, nil
			}
		}
	}
	return nil, fmt.Errorf("tag library not found: %s", module)
}

// ResolveSrc resolves a direct source include relative to the including
// file's directory, trying the path as given and with known extensions.
func (r *Resolver) ResolveSrc(baseDir, src string, extensions []string) (string, error) {
	candidates := []string{src}
	if filepath.Ext(src) == "" {
		for _, ext := range extensions {
			candidates = append(candidates, src+ext)
		}
	}
	for _, c := range candidates {
		path := c
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, c)
		}
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", fmt.Errorf("included template not found: %s", src)
}
