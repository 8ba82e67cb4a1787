// Package project orchestrates whole-project compiles: template
// discovery, cached per-file compilation, include resolution across tag
// libraries, output writing, and artifact persistence.
package project

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/tagmark-lang/tagmark/internal/builder"
	"github.com/tagmark-lang/tagmark/internal/compiler"
	"github.com/tagmark-lang/tagmark/internal/config"
	"github.com/tagmark-lang/tagmark/internal/state"
	"github.com/tagmark-lang/tagmark/internal/taglib"
)

// Project compiles the templates of one configured project.
type Project struct {
	cfg      *config.Config
	cache    *builder.Cache
	store    state.Store
	resolver *taglib.Resolver
	log      *slog.Logger
}

// New returns a Project over cfg. store may be nil to skip persistence; a
// nil log discards.
func New(cfg *config.Config, store state.Store, log *slog.Logger) *Project {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Project{
		cfg:      cfg,
		cache:    builder.NewCache(log),
		store:    store,
		resolver: taglib.NewResolver(cfg.TaglibPaths),
		log:      log,
	}
}

// Cache exposes the artifact cache, mainly for watch-mode invalidation.
func (p *Project) Cache() *builder.Cache {
	return p.cache
}

// Discover walks the templates directory and returns every template file,
// sorted. Hidden directories are skipped.
func (p *Project) Discover() ([]string, error) {
	var paths []string
	err := filepath.WalkDir(p.cfg.TemplatesDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if name := d.Name(); name != "." && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if slices.Contains(p.cfg.Extensions, filepath.Ext(path)) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to discover templates: %w", err)
	}
	sort.Strings(paths)
	return paths, nil
}

// CompileFile compiles one template through the cache, resolving its
// includes first.
func (p *Project) CompileFile(path string) (*builder.Template, error) {
	return p.compile(path, map[string]bool{})
}

// compile returns the template at path with its includes folded in. The
// cache holds the import-free base compile; import resolution recurses
// outside the cache's in-flight build so mutually-including templates
// fail with a cycle error instead of blocking each other.
func (p *Project) compile(path string, visiting map[string]bool) (*builder.Template, error) {
	if visiting[path] {
		return nil, fmt.Errorf("include cycle detected at %s", path)
	}
	visiting[path] = true
	defer delete(visiting, path)

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat template: %w", err)
	}

	base, err := p.cache.Get(path, info.ModTime(), p.buildBase)
	if err != nil {
		return nil, err
	}
	if len(base.Imports) == 0 {
		return base, nil
	}

	tpl := cloneTemplate(base)
	if err := p.resolveImports(tpl, visiting); err != nil {
		return nil, err
	}
	return tpl, nil
}

func (p *Project) buildBase(path string) (*builder.Template, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat template: %w", err)
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template: %w", err)
	}

	b := builder.New(p.log)
	out, err := compiler.Compile(string(src), path, b, compiler.Options{
		Metadata: p.cfg.Metadata,
		Logger:   p.log,
	})
	if err != nil {
		return nil, err
	}
	tpl, err := b.Build(path, out, info.ModTime())
	if err != nil {
		return nil, err
	}
	if tpl.Theme == "" {
		tpl.Theme = p.cfg.Theme
	}
	return tpl, nil
}

// cloneTemplate copies the registries so import merging never mutates the
// cached base.
func cloneTemplate(base *builder.Template) *builder.Template {
	tpl := *base
	tpl.Tags = make(map[string]builder.TagInfo, len(base.Tags))
	for name, info := range base.Tags {
		tpl.Tags[name] = info
	}
	tpl.Aliases = make(map[string]string, len(base.Aliases))
	for name, old := range base.Aliases {
		tpl.Aliases[name] = old
	}
	return &tpl
}

// resolveImports compiles each included library or file and folds its tag
// registry into tpl. Local definitions win name clashes; an include alias
// additionally exposes imported tags under a prefixed name.
func (p *Project) resolveImports(tpl *builder.Template, visiting map[string]bool) error {
	for _, imp := range tpl.Imports {
		var sources []string
		switch {
		case imp.Module != "":
			m, err := p.resolver.Resolve(imp.Module)
			if err != nil {
				return fmt.Errorf("%s: %w", tpl.Path, err)
			}
			sources = m.TemplatePaths()
		default:
			src, err := p.resolver.ResolveSrc(filepath.Dir(tpl.Path), imp.Src, p.cfg.Extensions)
			if err != nil {
				return fmt.Errorf("%s: %w", tpl.Path, err)
			}
			sources = []string{src}
		}

		for _, src := range sources {
			dep, err := p.compile(src, visiting)
			if err != nil {
				return err
			}
			p.mergeImported(tpl, dep, imp.As)
		}
	}
	return nil
}

func (p *Project) mergeImported(tpl, dep *builder.Template, as string) {
	for name, info := range dep.Tags {
		if _, exists := tpl.Tags[name]; !exists {
			if _, exists := tpl.Aliases[name]; !exists {
				tpl.Tags[name] = info
			}
		}
		if as != "" {
			tpl.Aliases[as+"__"+name] = name
		}
	}
	for name, old := range dep.Aliases {
		if _, exists := tpl.Tags[name]; !exists {
			if _, exists := tpl.Aliases[name]; !exists {
				tpl.Aliases[name] = old
			}
		}
	}
}

// Result pairs one compiled template with its source path.
type Result struct {
	Path     string
	Template *builder.Template
}

// CompileAll compiles every discovered template in parallel, writes the
// generated sources under the output directory, and persists artifacts
// when a store is configured. The first compile error cancels the rest.
func (p *Project) CompileAll(ctx context.Context) ([]Result, error) {
	paths, err := p.Discover()
	if err != nil {
		return nil, err
	}

	var build *state.Build
	if p.store != nil {
		if build, err = p.store.StartBuild(); err != nil {
			return nil, err
		}
	}

	results := make([]Result, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			tpl, err := p.CompileFile(path)
			if err != nil {
				return err
			}
			if err := p.writeOutput(path, tpl); err != nil {
				return err
			}
			results[i] = Result{Path: path, Template: tpl}
			return nil
		})
	}
	err = g.Wait()

	if p.store != nil {
		status, errMsg := state.BuildStatusCompleted, ""
		if err != nil {
			status, errMsg = state.BuildStatusFailed, err.Error()
		}
		if serr := p.finishBuild(build.ID, status, errMsg, results, err == nil); serr != nil {
			p.log.Warn("failed to persist build", "error", serr)
		}
	}
	if err != nil {
		return nil, err
	}

	p.log.Info("project compiled", "templates", len(results))
	return results, nil
}

func (p *Project) finishBuild(id string, status state.BuildStatus, errMsg string, results []Result, save bool) error {
	count := 0
	for _, r := range results {
		if r.Template == nil {
			continue
		}
		count++
		if !save {
			continue
		}
		if err := p.store.SaveArtifact(artifactOf(r.Template)); err != nil {
			return err
		}
	}
	return p.store.CompleteBuild(id, status, errMsg, count)
}

func artifactOf(tpl *builder.Template) *state.Artifact {
	a := &state.Artifact{
		ID:       tpl.BuildID.String(),
		Path:     tpl.Path,
		MTime:    tpl.MTime,
		Source:   tpl.Source,
		Prologue: tpl.Prologue,
		Theme:    tpl.Theme,
	}
	for _, name := range tpl.TagNames() {
		if info, ok := tpl.Tags[name]; ok {
			a.Tags = append(a.Tags, state.TagRecord{
				Name:          info.Name,
				Line:          info.Line,
				DeclaredAttrs: info.DeclaredAttrs,
			})
		}
	}
	return a
}

// writeOutput writes the compiled source next to the template's relative
// location under the output directory, with the target extension.
func (p *Project) writeOutput(path string, tpl *builder.Template) error {
	rel, err := filepath.Rel(p.cfg.TemplatesDir, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	out := filepath.Join(p.cfg.OutputDir, strings.TrimSuffix(rel, filepath.Ext(rel))+".erb")
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(out, []byte(tpl.Combined()), 0o644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// Clean removes the output directory and drops cached and persisted
// artifacts.
func (p *Project) Clean() error {
	if err := os.RemoveAll(p.cfg.OutputDir); err != nil {
		return fmt.Errorf("failed to remove output directory: %w", err)
	}
	p.cache.ClearAll()
	if p.store != nil {
		return p.store.Clear()
	}
	return nil
}
