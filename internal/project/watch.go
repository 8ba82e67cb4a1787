package project

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounceDelay = 100 * time.Millisecond

// OnRebuild receives the outcome of each watch-triggered compile.
type OnRebuild func(results []Result, err error)

// Watch recompiles the project whenever a template or tag library file
// changes, until ctx is cancelled. An initial full compile runs before
// watching starts.
func (p *Project) Watch(ctx context.Context, onRebuild OnRebuild) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	roots := append([]string{p.cfg.TemplatesDir}, p.cfg.TaglibPaths...)
	for _, root := range roots {
		if err := watchDir(watcher, root); err != nil {
			return err
		}
	}

	onRebuild(p.CompileAll(ctx))

	p.log.Info("watching for template changes", "dirs", roots)
	return p.watchLoop(ctx, watcher, onRebuild)
}

func (p *Project) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, onRebuild OnRebuild) error {
	var debounceTimer *time.Timer
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !p.relevant(event.Name) {
				continue
			}
			p.log.Debug("template changed", "path", event.Name)
			p.cache.Clear(event.Name)
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounceDelay, func() {
				onRebuild(p.CompileAll(ctx))
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			p.log.Warn("file watcher error", "error", err)
		}
	}
}

// relevant reports whether a changed path should trigger a rebuild.
func (p *Project) relevant(path string) bool {
	if filepath.Base(path) == "taglib.yaml" {
		return true
	}
	return slices.Contains(p.cfg.Extensions, filepath.Ext(path))
}

// watchDir recursively registers root and its subdirectories, skipping
// hidden directories.
func watchDir(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if name := d.Name(); name != "." && strings.HasPrefix(name, ".") {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}
